package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryLevelRepository lecturas de stock unidas a ítems y bodegas (solo lectura).
// warehouseID vacío = todas las bodegas.
type InventoryLevelRepository interface {
	ListLevels(ctx context.Context, warehouseID string) ([]entity.InventoryLevel, error)

	// ListBelowReorderLevel devuelve las filas cuya cantidad es inferior al punto de reorden del ítem,
	// ordenadas por mayor déficit primero.
	ListBelowReorderLevel(ctx context.Context, warehouseID string) ([]entity.InventoryLevel, error)
}
