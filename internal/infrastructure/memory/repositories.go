package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.StockReader              = (*StockRepo)(nil)
	_ repository.LedgerReader             = (*LedgerRepo)(nil)
	_ repository.OrderRepository          = (*OrderRepo)(nil)
	_ repository.ItemRepository           = (*ItemRepo)(nil)
	_ repository.WarehouseRepository      = (*WarehouseRepo)(nil)
	_ repository.InventoryLevelRepository = (*InventoryLevelRepo)(nil)
)

// StockRepo lecturas fuera de transacción; las escrituras pasan por TxRunner.
type StockRepo struct{ s *Store }

// NewStockRepository construye el adaptador.
func NewStockRepository(s *Store) *StockRepo { return &StockRepo{s: s} }

func (r *StockRepo) Get(_ context.Context, warehouseID, itemID string) (*entity.StockRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	key := entity.StockKey{WarehouseID: warehouseID, ItemID: itemID}
	if row, ok := r.s.stock[key]; ok {
		return &row, nil
	}
	return &entity.StockRow{WarehouseID: warehouseID, ItemID: itemID}, nil
}

func (r *StockRepo) List(_ context.Context, warehouseID string) ([]*entity.StockRow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return sortedStockRows(r.s.stock, warehouseID), nil
}

// LedgerRepo lectura del libro en memoria; las entradas se agregan al confirmar una transacción.
type LedgerRepo struct{ s *Store }

// NewLedgerRepository construye el adaptador.
func NewLedgerRepository(s *Store) *LedgerRepo { return &LedgerRepo{s: s} }

func (r *LedgerRepo) List(_ context.Context, filter entity.LedgerFilter) ([]*entity.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	// ledger está ordenado por ID: búsqueda binaria del cursor
	start := sort.Search(len(r.s.ledger), func(i int) bool { return r.s.ledger[i].ID > filter.AfterID })
	var out []*entity.LedgerEntry
	for i := start; i < len(r.s.ledger); i++ {
		e := r.s.ledger[i]
		if !filter.Matches(&e) {
			continue
		}
		out = append(out, &e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) appendEntryLocked(entry *entity.LedgerEntry) {
	s.nextEntryID++
	entry.ID = s.nextEntryID
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = s.nowFn()
	}
	s.ledger = append(s.ledger, *entry)
}

// OrderRepo órdenes y líneas en memoria.
type OrderRepo struct{ s *Store }

// NewOrderRepository construye el adaptador.
func NewOrderRepository(s *Store) *OrderRepo { return &OrderRepo{s: s} }

func (r *OrderRepo) Create(_ context.Context, order *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[order.ID]; ok {
		return domain.ErrConflict
	}
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *OrderRepo) UpdateStatus(_ context.Context, id, from, to string) error {
	if err := r.s.checkFault(OpUpdateStatus, entity.StockKey{}); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ConcurrentModification("update order status", nil)
	}
	o.Status = to
	o.UpdatedAt = r.s.nowFn()
	return nil
}

func (r *OrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]*entity.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*entity.Order
	for _, o := range r.s.orders {
		if filter.Kind != "" && o.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		list = append(list, cloneOrder(o))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(list) {
			return nil, nil
		}
		list = list[filter.Offset:]
	}
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (r *OrderRepo) AddLine(_ context.Context, line *entity.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[line.OrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Lines = append(o.Lines, *line)
	o.UpdatedAt = r.s.nowFn()
	return nil
}

func (r *OrderRepo) UpdateLine(_ context.Context, line *entity.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[line.OrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	existing, ok := o.Line(line.ID)
	if !ok {
		return domain.ErrNotFound
	}
	existing.Quantity = line.Quantity
	existing.UnitPrice = line.UnitPrice
	o.UpdatedAt = r.s.nowFn()
	return nil
}

func (r *OrderRepo) DeleteLine(_ context.Context, orderID, lineID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			o.UpdatedAt = r.s.nowFn()
			return nil
		}
	}
	return domain.ErrNotFound
}

// ItemRepo catálogo de ítems.
type ItemRepo struct{ s *Store }

// NewItemRepository construye el adaptador.
func NewItemRepository(s *Store) *ItemRepo { return &ItemRepo{s: s} }

func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	it, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *ItemRepo) List(_ context.Context) ([]*entity.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.Item, 0, len(r.s.items))
	for _, it := range r.s.items {
		i := it
		list = append(list, &i)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// WarehouseRepo bodegas.
type WarehouseRepo struct{ s *Store }

// NewWarehouseRepository construye el adaptador.
func NewWarehouseRepository(s *Store) *WarehouseRepo { return &WarehouseRepo{s: s} }

func (r *WarehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *WarehouseRepo) List(_ context.Context) ([]*entity.Warehouse, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.Warehouse, 0, len(r.s.warehouses))
	for _, w := range r.s.warehouses {
		wh := w
		list = append(list, &wh)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// InventoryLevelRepo vista stock + ítem + bodega.
type InventoryLevelRepo struct{ s *Store }

// NewInventoryLevelRepository construye el adaptador.
func NewInventoryLevelRepository(s *Store) *InventoryLevelRepo { return &InventoryLevelRepo{s: s} }

func (r *InventoryLevelRepo) ListLevels(_ context.Context, warehouseID string) ([]entity.InventoryLevel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.levelsLocked(warehouseID, false), nil
}

func (r *InventoryLevelRepo) ListBelowReorderLevel(_ context.Context, warehouseID string) ([]entity.InventoryLevel, error) {
	r.s.mu.RLock()
	levels := r.levelsLocked(warehouseID, true)
	r.s.mu.RUnlock()
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].ReorderLevel-levels[i].Quantity > levels[j].ReorderLevel-levels[j].Quantity
	})
	return levels, nil
}

func (r *InventoryLevelRepo) levelsLocked(warehouseID string, onlyLow bool) []entity.InventoryLevel {
	var out []entity.InventoryLevel
	for _, row := range sortedStockRows(r.s.stock, warehouseID) {
		it, ok := r.s.items[row.ItemID]
		if !ok {
			continue
		}
		lvl := entity.InventoryLevel{
			WarehouseID:   row.WarehouseID,
			WarehouseName: r.s.warehouses[row.WarehouseID].Name,
			ItemID:        row.ItemID,
			ItemName:      it.Name,
			UnitOfMeasure: it.UnitOfMeasure,
			Quantity:      row.Quantity,
			ReorderLevel:  it.ReorderLevel,
			UnitPrice:     it.UnitPrice,
			UpdatedAt:     row.UpdatedAt,
		}
		if onlyLow && !lvl.IsLow() {
			continue
		}
		out = append(out, lvl)
	}
	return out
}
