package memory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ fulfillment.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks sobre una transacción en memoria: las escrituras se acumulan
// y se aplican juntas bajo el lock del Store al confirmar.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el Store.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run ejecuta fn; confirma si no hubo error y el contexto sigue vivo, si no descarta todo.
func (r *TxRunner) Run(ctx context.Context, fn func(
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	orderRepo repository.OrderStatusRepository,
) error) error {
	tx := &memTx{
		s:      r.s,
		deltas: make(map[entity.StockKey]*stagedDelta),
		status: make(map[string]stagedStatus),
	}
	if err := fn(&txStockRepo{tx: tx}, &txLedgerRepo{tx: tx}, &txOrderRepo{tx: tx}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.s.checkFault(OpCommit, entity.StockKey{}); err != nil {
		return domain.StoreUnavailable("commit transaction", err)
	}
	return tx.commit()
}

type stagedDelta struct {
	delta  int64
	strict bool // algún ApplyDelta sin allowNegative
}

type stagedStatus struct {
	from, to string
}

type memTx struct {
	s       *Store
	deltas  map[entity.StockKey]*stagedDelta
	entries []*entity.LedgerEntry
	status  map[string]stagedStatus
}

func (tx *memTx) quantity(key entity.StockKey) int64 {
	tx.s.mu.RLock()
	base := tx.s.stock[key].Quantity
	tx.s.mu.RUnlock()
	if d, ok := tx.deltas[key]; ok {
		return base + d.delta
	}
	return base
}

// commit valida primero todo el conjunto de escrituras y luego lo aplica; si algo cambió
// desde que se leyó (otro escritor sin el lock de bodega) no se aplica nada.
func (tx *memTx) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range tx.status {
		o, ok := s.orders[id]
		if !ok {
			return domain.ErrOrderNotFound
		}
		if o.Status != st.from {
			return domain.ConcurrentModification("commit order status", nil)
		}
	}
	for key, d := range tx.deltas {
		if d.strict && s.stock[key].Quantity+d.delta < 0 {
			return domain.ConcurrentModification("commit stock", nil)
		}
	}

	now := s.nowFn()
	for key, d := range tx.deltas {
		row := s.stock[key]
		row.WarehouseID, row.ItemID = key.WarehouseID, key.ItemID
		row.Quantity += d.delta
		row.UpdatedAt = now
		s.stock[key] = row
	}
	for _, e := range tx.entries {
		if e.LoggedAt.IsZero() {
			e.LoggedAt = now
		}
		s.appendEntryLocked(e)
	}
	for id, st := range tx.status {
		o := s.orders[id]
		o.Status = st.to
		o.UpdatedAt = now
	}
	return nil
}

type txStockRepo struct{ tx *memTx }

func (r *txStockRepo) Get(_ context.Context, warehouseID, itemID string) (*entity.StockRow, error) {
	key := entity.StockKey{WarehouseID: warehouseID, ItemID: itemID}
	r.tx.s.mu.RLock()
	row := r.tx.s.stock[key]
	r.tx.s.mu.RUnlock()
	row.WarehouseID, row.ItemID = warehouseID, itemID
	if d, ok := r.tx.deltas[key]; ok {
		row.Quantity += d.delta
	}
	return &row, nil
}

func (r *txStockRepo) GetForUpdate(ctx context.Context, warehouseID, itemID string) (*entity.StockRow, error) {
	return r.Get(ctx, warehouseID, itemID)
}

func (r *txStockRepo) ApplyDelta(_ context.Context, warehouseID, itemID string, delta int64, allowNegative bool) (int64, error) {
	key := entity.StockKey{WarehouseID: warehouseID, ItemID: itemID}
	if err := r.tx.s.checkFault(OpApplyDelta, key); err != nil {
		return 0, err
	}
	current := r.tx.quantity(key)
	next := current + delta
	if next < 0 && !allowNegative {
		return current, &domain.NegativeStockError{WarehouseID: warehouseID, ItemID: itemID, Current: current, Delta: delta}
	}
	d, ok := r.tx.deltas[key]
	if !ok {
		d = &stagedDelta{}
		r.tx.deltas[key] = d
	}
	d.delta += delta
	d.strict = d.strict || !allowNegative
	return next, nil
}

func (r *txStockRepo) LockWarehouse(context.Context, string) error { return nil }

func (r *txStockRepo) List(_ context.Context, warehouseID string) ([]*entity.StockRow, error) {
	r.tx.s.mu.RLock()
	merged := make(map[entity.StockKey]entity.StockRow, len(r.tx.s.stock))
	for k, v := range r.tx.s.stock {
		merged[k] = v
	}
	r.tx.s.mu.RUnlock()
	for k, d := range r.tx.deltas {
		row := merged[k]
		row.WarehouseID, row.ItemID = k.WarehouseID, k.ItemID
		row.Quantity += d.delta
		merged[k] = row
	}
	return sortedStockRows(merged, warehouseID), nil
}

type txLedgerRepo struct{ tx *memTx }

// Append deja la entrada pendiente; el ID se asigna al confirmar.
func (r *txLedgerRepo) Append(_ context.Context, entry *entity.LedgerEntry) error {
	if err := r.tx.s.checkFault(OpAppendLedger, entry.Key()); err != nil {
		return err
	}
	r.tx.entries = append(r.tx.entries, entry)
	return nil
}

// List solo ve entradas confirmadas.
func (r *txLedgerRepo) List(ctx context.Context, filter entity.LedgerFilter) ([]*entity.LedgerEntry, error) {
	return NewLedgerRepository(r.tx.s).List(ctx, filter)
}

type txOrderRepo struct{ tx *memTx }

func (r *txOrderRepo) GetForUpdate(_ context.Context, id string) (*entity.Order, error) {
	r.tx.s.mu.RLock()
	o, ok := r.tx.s.orders[id]
	var c *entity.Order
	if ok {
		c = cloneOrder(o)
	}
	r.tx.s.mu.RUnlock()
	if c == nil {
		return nil, nil
	}
	if st, ok := r.tx.status[id]; ok {
		c.Status = st.to
	}
	return c, nil
}

func (r *txOrderRepo) UpdateStatus(ctx context.Context, id, from, to string) error {
	if err := r.tx.s.checkFault(OpUpdateStatus, entity.StockKey{}); err != nil {
		return err
	}
	o, err := r.GetForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if o == nil {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ConcurrentModification("update order status", nil)
	}
	first := from
	if st, ok := r.tx.status[id]; ok {
		first = st.from
	}
	r.tx.status[id] = stagedStatus{from: first, to: to}
	return nil
}
