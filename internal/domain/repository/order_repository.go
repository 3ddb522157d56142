package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// OrderFilter filtros para listar órdenes.
type OrderFilter struct {
	Kind   string
	Status string
	Limit  int
	Offset int
}

// OrderStatusRepository subconjunto que el motor usa dentro de la transacción: solo toca el estado.
type OrderStatusRepository interface {
	// GetForUpdate devuelve la orden con sus líneas y bloquea la cabecera; nil si no existe.
	GetForUpdate(ctx context.Context, id string) (*entity.Order, error)
	// UpdateStatus compara y cambia: falla con domain.ErrConcurrentModification si el estado actual no es from.
	UpdateStatus(ctx context.Context, id, from, to string) error
}

// OrderRepository puerto de persistencia de órdenes de compra/venta y sus líneas.
type OrderRepository interface {
	OrderStatusRepository

	Create(ctx context.Context, order *entity.Order) error
	// GetByID devuelve la orden con sus líneas; nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*entity.Order, error)

	AddLine(ctx context.Context, line *entity.OrderLine) error
	UpdateLine(ctx context.Context, line *entity.OrderLine) error
	DeleteLine(ctx context.Context, orderID, lineID string) error
}
