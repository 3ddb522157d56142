package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockReader lecturas de stock fuera de transacción.
type StockReader interface {
	// Get devuelve la fila; si no existe, una fila en cero (no persistida).
	Get(ctx context.Context, warehouseID, itemID string) (*entity.StockRow, error)
	// List lista filas de una bodega; warehouseID vacío = todas.
	List(ctx context.Context, warehouseID string) ([]*entity.StockRow, error)
}

// StockRepository define el puerto para consultar/actualizar stock por bodega+ítem.
// Las escrituras solo ocurren dentro de transacciones (TxRunner), junto con su entrada del libro.
type StockRepository interface {
	StockReader
	// GetForUpdate igual que Get pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, warehouseID, itemID string) (*entity.StockRow, error)
	// ApplyDelta crea la fila en 0 si no existe y suma delta. Devuelve *domain.NegativeStockError
	// si el resultado queda bajo cero y allowNegative es false.
	ApplyDelta(ctx context.Context, warehouseID, itemID string, delta int64, allowNegative bool) (int64, error)
	// LockWarehouse toma el bloqueo exclusivo de la bodega hasta el fin de la transacción.
	LockWarehouse(ctx context.Context, warehouseID string) error
}
