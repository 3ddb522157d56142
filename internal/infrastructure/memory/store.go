package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Operaciones sobre las que se pueden inyectar fallos (tests de atomicidad).
const (
	OpApplyDelta   = "stock.apply_delta"
	OpAppendLedger = "ledger.append"
	OpUpdateStatus = "order.update_status"
	OpCommit       = "tx.commit"
)

// FaultFunc permite simular fallos de almacenamiento. key es el par afectado (vacío en commit/estado).
type FaultFunc func(op string, key entity.StockKey) error

// Store almacenamiento en memoria con la misma semántica que PostgreSQL: las transacciones
// acumulan escrituras y se aplican todas juntas al confirmar, o ninguna.
type Store struct {
	mu          sync.RWMutex
	stock       map[entity.StockKey]entity.StockRow
	ledger      []entity.LedgerEntry
	nextEntryID int64
	orders      map[string]*entity.Order
	items       map[string]entity.Item
	warehouses  map[string]entity.Warehouse

	faultMu sync.RWMutex
	fault   FaultFunc

	nowFn func() time.Time
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		stock:      make(map[entity.StockKey]entity.StockRow),
		orders:     make(map[string]*entity.Order),
		items:      make(map[string]entity.Item),
		warehouses: make(map[string]entity.Warehouse),
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// SetFault instala (o quita con nil) el inyector de fallos.
func (s *Store) SetFault(fn FaultFunc) {
	s.faultMu.Lock()
	s.fault = fn
	s.faultMu.Unlock()
}

func (s *Store) checkFault(op string, key entity.StockKey) error {
	s.faultMu.RLock()
	fn := s.fault
	s.faultMu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(op, key)
}

// PutItem registra o reemplaza un ítem del catálogo.
func (s *Store) PutItem(item entity.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.nowFn()
	}
	item.UpdatedAt = s.nowFn()
	s.items[item.ID] = item
}

// PutWarehouse registra o reemplaza una bodega.
func (s *Store) PutWarehouse(wh entity.Warehouse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wh.CreatedAt.IsZero() {
		wh.CreatedAt = s.nowFn()
	}
	wh.UpdatedAt = s.nowFn()
	s.warehouses[wh.ID] = wh
}

// Seed catálogo inicial (ítems y bodegas) para el driver en memoria.
type Seed struct {
	Warehouses []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"warehouses"`
	Items []struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		UnitOfMeasure string          `json:"unit_of_measure"`
		UnitPrice     decimal.Decimal `json:"unit_price"`
		ReorderLevel  int64           `json:"reorder_level"`
	} `json:"items"`
}

// LoadSeedFile carga un catálogo JSON en el almacenamiento.
func (s *Store) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("leer seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parsear seed: %w", err)
	}
	for _, w := range seed.Warehouses {
		s.PutWarehouse(entity.Warehouse{ID: w.ID, Name: w.Name, Address: w.Address})
	}
	for _, it := range seed.Items {
		if it.ReorderLevel < 0 {
			return fmt.Errorf("seed: reorder_level negativo para %s", it.ID)
		}
		s.PutItem(entity.Item{
			ID:            it.ID,
			Name:          it.Name,
			UnitOfMeasure: it.UnitOfMeasure,
			UnitPrice:     it.UnitPrice.Round(2),
			ReorderLevel:  it.ReorderLevel,
		})
	}
	return nil
}

func cloneOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Lines = append([]entity.OrderLine(nil), o.Lines...)
	return &c
}

func sortedStockRows(m map[entity.StockKey]entity.StockRow, warehouseID string) []*entity.StockRow {
	list := make([]*entity.StockRow, 0, len(m))
	for _, row := range m {
		if warehouseID != "" && row.WarehouseID != warehouseID {
			continue
		}
		r := row
		list = append(list, &r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].WarehouseID != list[j].WarehouseID {
			return list[i].WarehouseID < list[j].WarehouseID
		}
		return list[i].ItemID < list[j].ItemID
	})
	return list
}
