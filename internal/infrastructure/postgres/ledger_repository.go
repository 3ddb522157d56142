package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// ledgerLockKey clave del advisory lock que ordena las inserciones en el libro.
const ledgerLockKey = 7_310_001

// LedgerRepo libro de movimientos sobre PostgreSQL. Solo inserción.
type LedgerRepo struct {
	q      Querier
	locked bool
}

// NewLedgerRepository construye el adaptador. Dentro de una tx usar una instancia por transacción.
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append inserta la entrada y completa ID y LoggedAt. El primer Append de la transacción toma un
// advisory lock global: los IDs se confirman en el mismo orden en que se asignan.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	if !r.locked {
		if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(ledgerLockKey)); err != nil {
			return fmt.Errorf("lock ledger: %w", mapError(err))
		}
		r.locked = true
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO ledger_entries
			(transaction_id, warehouse_id, item_id, change_type, delta_qty, ref_type, ref_id, actor_id, note, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, now())
		RETURNING id, logged_at`,
		e.TransactionID, e.WarehouseID, e.ItemID, e.ChangeType, e.DeltaQty,
		e.RefType, e.RefID, e.ActorID, e.Note,
	).Scan(&e.ID, &e.LoggedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", mapError(err))
	}
	return nil
}

// List entradas con ID > AfterID en orden ascendente.
func (r *LedgerRepo) List(ctx context.Context, f entity.LedgerFilter) ([]*entity.LedgerEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, transaction_id, warehouse_id, item_id, change_type, delta_qty, ref_type,
		       COALESCE(ref_id, ''), COALESCE(actor_id, ''), note, logged_at
		FROM ledger_entries
		WHERE id > $1
		  AND ($2 = '' OR warehouse_id = $2)
		  AND ($3 = '' OR item_id = $3)
		  AND ($4 = '' OR ref_type = $4)
		  AND ($5 = '' OR ref_id = $5)
		ORDER BY id
		LIMIT $6`,
		f.AfterID, f.WarehouseID, f.ItemID, f.RefType, f.RefID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", mapError(err))
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		var e entity.LedgerEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.WarehouseID, &e.ItemID, &e.ChangeType, &e.DeltaQty,
			&e.RefType, &e.RefID, &e.ActorID, &e.Note, &e.LoggedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
