package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.InventoryLevelRepository = (*InventoryLevelRepo)(nil)

// InventoryLevelRepo implementación de InventoryLevelRepository sobre PostgreSQL.
type InventoryLevelRepo struct {
	q Querier
}

// NewInventoryLevelRepository construye el adaptador. Acepta pool o tx (Querier).
func NewInventoryLevelRepository(q Querier) *InventoryLevelRepo {
	return &InventoryLevelRepo{q: q}
}

const levelSelect = `
	SELECT s.warehouse_id, w.name, s.item_id, i.name, i.unit_of_measure,
	       s.quantity, i.reorder_level, i.unit_price, s.updated_at
	FROM stock s
	JOIN items i ON i.id = s.item_id
	JOIN warehouses w ON w.id = s.warehouse_id
	WHERE ($1 = '' OR s.warehouse_id = $1)`

func (r *InventoryLevelRepo) ListLevels(ctx context.Context, warehouseID string) ([]entity.InventoryLevel, error) {
	return r.list(ctx, levelSelect+`
		ORDER BY s.warehouse_id, s.item_id`, warehouseID)
}

// ListBelowReorderLevel filas con cantidad < punto de reorden, mayor déficit primero.
func (r *InventoryLevelRepo) ListBelowReorderLevel(ctx context.Context, warehouseID string) ([]entity.InventoryLevel, error) {
	return r.list(ctx, levelSelect+`
		  AND s.quantity < i.reorder_level
		ORDER BY (i.reorder_level - s.quantity) DESC, s.warehouse_id, s.item_id`, warehouseID)
}

func (r *InventoryLevelRepo) list(ctx context.Context, query, warehouseID string) ([]entity.InventoryLevel, error) {
	rows, err := r.q.Query(ctx, query, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("list inventory levels: %w", mapError(err))
	}
	defer rows.Close()
	var list []entity.InventoryLevel
	for rows.Next() {
		var l entity.InventoryLevel
		if err := rows.Scan(&l.WarehouseID, &l.WarehouseName, &l.ItemID, &l.ItemName, &l.UnitOfMeasure,
			&l.Quantity, &l.ReorderLevel, &l.UnitPrice, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory level: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}
