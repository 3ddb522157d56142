package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LowStockMonitor deriva las alertas de reorden del estado del stock. El último estado conocido
// por par es solo caché: la verdad es siempre cantidad < punto de reorden.
type LowStockMonitor struct {
	stockRepo repository.StockReader
	itemRepo  repository.ItemRepository
	levelRepo repository.InventoryLevelRepository
	publisher AlertPublisher
	log       zerolog.Logger
	nowFn     func() time.Time

	// mu serializa observe completo (comparación y publicación) para que las transiciones
	// de un par se publiquen en el orden en que se observaron.
	mu   sync.Mutex
	last map[entity.StockKey]observation
}

type observation struct {
	low bool
	at  time.Time
}

// NewLowStockMonitor construye el monitor.
func NewLowStockMonitor(
	stockRepo repository.StockReader,
	itemRepo repository.ItemRepository,
	levelRepo repository.InventoryLevelRepository,
	publisher AlertPublisher,
	log zerolog.Logger,
) *LowStockMonitor {
	return &LowStockMonitor{
		stockRepo: stockRepo,
		itemRepo:  itemRepo,
		levelRepo: levelRepo,
		publisher: publisher,
		log:       log,
		nowFn:     time.Now,
		last:      make(map[entity.StockKey]observation),
	}
}

// IsLow indica si el par está por debajo del punto de reorden del ítem.
func (m *LowStockMonitor) IsLow(ctx context.Context, warehouseID, itemID string) (bool, error) {
	item, err := m.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, itemID)
	}
	row, err := m.stockRepo.Get(ctx, warehouseID, itemID)
	if err != nil {
		return false, err
	}
	return item.IsLow(row.Quantity), nil
}

// ListLow lista los pares bajo punto de reorden (warehouseID vacío = todas las bodegas),
// mayor déficit primero.
func (m *LowStockMonitor) ListLow(ctx context.Context, warehouseID string) ([]entity.InventoryLevel, error) {
	return m.levelRepo.ListBelowReorderLevel(ctx, warehouseID)
}

// Refresh recalcula los pares tocados por una operación confirmada y publica las transiciones.
func (m *LowStockMonitor) Refresh(ctx context.Context, keys []entity.StockKey) error {
	var errs []error
	for _, k := range keys {
		item, err := m.itemRepo.GetByID(ctx, k.ItemID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if item == nil {
			continue
		}
		row, err := m.stockRepo.Get(ctx, k.WarehouseID, k.ItemID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := m.observe(ctx, k, item.Name, row.Quantity, item.ReorderLevel, row.UpdatedAt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sweep recorre todos los pares existentes y publica las transiciones pendientes.
// Devuelve cuántos pares quedaron bajo el punto de reorden.
func (m *LowStockMonitor) Sweep(ctx context.Context) (int, error) {
	levels, err := m.levelRepo.ListLevels(ctx, "")
	if err != nil {
		return 0, err
	}
	var errs []error
	low := 0
	for _, l := range levels {
		if l.IsLow() {
			low++
		}
		key := entity.StockKey{WarehouseID: l.WarehouseID, ItemID: l.ItemID}
		if err := m.observe(ctx, key, l.ItemName, l.Quantity, l.ReorderLevel, l.UpdatedAt); err != nil {
			errs = append(errs, err)
		}
	}
	return low, errors.Join(errs...)
}

// observe publica solo cuando el estado cambia; un par nunca visto se publica si ya está bajo.
// Una lectura anterior a la última observada (updatedAt menor) se descarta.
func (m *LowStockMonitor) observe(ctx context.Context, key entity.StockKey, itemName string, qty, reorder int64, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	low := qty < reorder
	prev, known := m.last[key]
	if known && updatedAt.Before(prev.at) {
		return nil
	}
	m.last[key] = observation{low: low, at: updatedAt}
	if (known && prev.low == low) || (!known && !low) {
		return nil
	}
	alert := LowStockAlert{
		WarehouseID:  key.WarehouseID,
		ItemID:       key.ItemID,
		ItemName:     itemName,
		Quantity:     qty,
		ReorderLevel: reorder,
		Low:          low,
		DetectedAt:   m.nowFn().UTC(),
	}
	if err := m.publisher.Publish(ctx, alert); err != nil {
		// se olvida el estado para que el próximo refresh o barrido lo reintente
		if known {
			m.last[key] = prev
		} else {
			delete(m.last, key)
		}
		return fmt.Errorf("publicar alerta %s/%s: %w", key.WarehouseID, key.ItemID, err)
	}
	return nil
}
