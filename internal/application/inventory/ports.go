package inventory

import (
	"context"
	"time"
)

// LowStockAlert transición de estado de un par (bodega, ítem) respecto a su punto de reorden.
type LowStockAlert struct {
	WarehouseID  string    `json:"warehouse_id"`
	ItemID       string    `json:"item_id"`
	ItemName     string    `json:"item_name"`
	Quantity     int64     `json:"quantity"`
	ReorderLevel int64     `json:"reorder_level"`
	Low          bool      `json:"low"` // true = quedó bajo; false = se recuperó
	DetectedAt   time.Time `json:"detected_at"`
}

// AlertPublisher destino de las alertas de bajo stock (log, Kafka...).
type AlertPublisher interface {
	Publish(ctx context.Context, alert LowStockAlert) error
}
