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

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo órdenes de compra/venta y sus líneas sobre PostgreSQL (pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador.
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, kind, counterparty_id, warehouse_id, order_date, status, created_at, updated_at`

func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.Kind, o.CounterpartyID, o.WarehouseID, o.OrderDate, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: orden %s ya existe", domain.ErrConflict, o.ID)
		}
		return fmt.Errorf("insert order: %w", mapError(err))
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUpdate bloquea la cabecera (SELECT FOR UPDATE); las líneas se leen en la misma tx.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepo) get(ctx context.Context, query, id string) (*entity.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", mapError(err))
	}
	if o.Lines, err = r.lines(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepo) lines(ctx context.Context, orderID string) ([]entity.OrderLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, item_id, quantity, unit_price
		FROM order_lines WHERE order_id = $1
		ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", mapError(err))
	}
	defer rows.Close()
	var lines []entity.OrderLine
	for rows.Next() {
		var l entity.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ItemID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// UpdateStatus compare-and-set: solo cambia si el estado almacenado sigue siendo from.
func (r *OrderRepo) UpdateStatus(ctx context.Context, id, from, to string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return fmt.Errorf("update order status: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ConcurrentModification("update order status", fmt.Errorf("orden %s ya no está en %s", id, from))
	}
	return nil
}

// List órdenes más recientes primero. Las líneas se cargan por orden.
func (r *OrderRepo) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = '' OR kind = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, f.Kind, f.Status, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", mapError(err))
	}
	var list []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", mapError(err))
	}
	for _, o := range list {
		if o.Lines, err = r.lines(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *OrderRepo) AddLine(ctx context.Context, l *entity.OrderLine) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO order_lines (id, order_id, item_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`,
		l.ID, l.OrderID, l.ItemID, l.Quantity, l.UnitPrice)
	if err != nil {
		return fmt.Errorf("insert order line: %w", mapError(err))
	}
	return r.touch(ctx, l.OrderID)
}

func (r *OrderRepo) UpdateLine(ctx context.Context, l *entity.OrderLine) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE order_lines SET quantity = $3, unit_price = $4
		WHERE id = $1 AND order_id = $2`, l.ID, l.OrderID, l.Quantity, l.UnitPrice)
	if err != nil {
		return fmt.Errorf("update order line: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: línea %s", domain.ErrNotFound, l.ID)
	}
	return r.touch(ctx, l.OrderID)
}

func (r *OrderRepo) DeleteLine(ctx context.Context, orderID, lineID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM order_lines WHERE id = $1 AND order_id = $2`, lineID, orderID)
	if err != nil {
		return fmt.Errorf("delete order line: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: línea %s", domain.ErrNotFound, lineID)
	}
	return r.touch(ctx, orderID)
}

func (r *OrderRepo) touch(ctx context.Context, orderID string) error {
	tag, err := r.q.Exec(ctx, `UPDATE orders SET updated_at = now() WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("touch order: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var o entity.Order
	err := row.Scan(&o.ID, &o.Kind, &o.CounterpartyID, &o.WarehouseID, &o.OrderDate, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
