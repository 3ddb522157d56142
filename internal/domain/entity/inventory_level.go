package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryLevel vista de lectura: fila de stock enriquecida con datos maestros del ítem y la bodega.
type InventoryLevel struct {
	WarehouseID   string
	WarehouseName string
	ItemID        string
	ItemName      string
	UnitOfMeasure string
	Quantity      int64
	ReorderLevel  int64
	UnitPrice     decimal.Decimal
	UpdatedAt     time.Time
}

// IsLow cantidad < punto de reorden.
func (l InventoryLevel) IsLow() bool {
	return l.Quantity < l.ReorderLevel
}
