package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Errores del motor de despacho/recepción.
	ErrOrderNotFound          = errors.New("orden no encontrada")
	ErrOrderHasNoLines        = errors.New("la orden no tiene líneas")
	ErrInvalidOrderState      = errors.New("estado de la orden no permite la operación")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrNegativeStockRejected  = errors.New("el movimiento dejaría stock negativo")
	ErrConcurrentModification = errors.New("modificación concurrente, reintente la operación")
	ErrStoreUnavailable       = errors.New("almacenamiento no disponible")
)

// InsufficientStockError detalle de un faltante detectado en la verificación previa al despacho.
type InsufficientStockError struct {
	WarehouseID string
	ItemID      string
	Available   int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para el ítem %s en bodega %s: disponible %d, solicitado %d",
		e.ItemID, e.WarehouseID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NegativeStockError se produce cuando ApplyDelta dejaría la fila por debajo de cero sin allowNegative.
type NegativeStockError struct {
	WarehouseID string
	ItemID      string
	Current     int64
	Delta       int64
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("stock negativo rechazado para el ítem %s en bodega %s: actual %d, delta %d",
		e.ItemID, e.WarehouseID, e.Current, e.Delta)
}

func (e *NegativeStockError) Unwrap() error { return ErrNegativeStockRejected }

// InvalidOrderStateError la orden existe pero su estado no admite la acción.
type InvalidOrderStateError struct {
	OrderID string
	Status  string
	Action  string
}

func (e *InvalidOrderStateError) Error() string {
	return fmt.Sprintf("la orden %s en estado %s no admite %s", e.OrderID, e.Status, e.Action)
}

func (e *InvalidOrderStateError) Unwrap() error { return ErrInvalidOrderState }

// StoreUnavailable envuelve un fallo de infraestructura para que el caller pueda reintentar más tarde.
func StoreUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// ConcurrentModification envuelve un fallo de contención (bloqueo, serialización o CAS).
func ConcurrentModification(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrConcurrentModification)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrConcurrentModification, err)
}
