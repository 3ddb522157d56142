package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el stock actual de un ítem en una bodega; fila en cero si no existe.
func (r *StockRepo) Get(ctx context.Context, warehouseID, itemID string) (*entity.StockRow, error) {
	return r.get(ctx, `
		SELECT warehouse_id, item_id, quantity, updated_at
		FROM stock WHERE warehouse_id = $1 AND item_id = $2`, warehouseID, itemID)
}

// GetForUpdate obtiene el stock y bloquea la fila para update (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, warehouseID, itemID string) (*entity.StockRow, error) {
	return r.get(ctx, `
		SELECT warehouse_id, item_id, quantity, updated_at
		FROM stock WHERE warehouse_id = $1 AND item_id = $2
		FOR UPDATE`, warehouseID, itemID)
}

func (r *StockRepo) get(ctx context.Context, query, warehouseID, itemID string) (*entity.StockRow, error) {
	var s entity.StockRow
	err := r.q.QueryRow(ctx, query, warehouseID, itemID).Scan(&s.WarehouseID, &s.ItemID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockRow{WarehouseID: warehouseID, ItemID: itemID}, nil
		}
		return nil, fmt.Errorf("get stock: %w", mapError(err))
	}
	return &s, nil
}

// ApplyDelta crea la fila en 0 si no existe, la bloquea y suma delta. Sin allowNegative, un resultado
// bajo cero se rechaza antes de escribir.
func (r *StockRepo) ApplyDelta(ctx context.Context, warehouseID, itemID string, delta int64, allowNegative bool) (int64, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock (warehouse_id, item_id, quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (warehouse_id, item_id) DO NOTHING`, warehouseID, itemID)
	if err != nil {
		return 0, fmt.Errorf("init stock: %w", mapError(err))
	}
	current, err := r.GetForUpdate(ctx, warehouseID, itemID)
	if err != nil {
		return 0, err
	}
	if next := current.Quantity + delta; next < 0 && !allowNegative {
		return 0, &domain.NegativeStockError{WarehouseID: warehouseID, ItemID: itemID, Current: current.Quantity, Delta: delta}
	}
	var quantity int64
	err = r.q.QueryRow(ctx, `
		UPDATE stock SET quantity = quantity + $3, updated_at = now()
		WHERE warehouse_id = $1 AND item_id = $2
		RETURNING quantity`, warehouseID, itemID, delta).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("apply stock delta: %w", mapError(err))
	}
	return quantity, nil
}

// LockWarehouse toma un advisory lock transaccional sobre la bodega; se libera con commit o rollback.
func (r *StockRepo) LockWarehouse(ctx context.Context, warehouseID string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('warehouse:' || $1))`, warehouseID); err != nil {
		return fmt.Errorf("lock warehouse: %w", mapError(err))
	}
	return nil
}

// List lista las filas de una bodega (todas si warehouseID es vacío).
func (r *StockRepo) List(ctx context.Context, warehouseID string) ([]*entity.StockRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT warehouse_id, item_id, quantity, updated_at
		FROM stock
		WHERE $1 = '' OR warehouse_id = $1
		ORDER BY warehouse_id, item_id`, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.StockRow
	for rows.Next() {
		var s entity.StockRow
		if err := rows.Scan(&s.WarehouseID, &s.ItemID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
