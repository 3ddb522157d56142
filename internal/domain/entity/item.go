package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item representa un artículo del catálogo (dato maestro, solo lectura para el motor).
// UnitPrice tiene 2 decimales; ReorderLevel es el umbral de bajo stock.
type Item struct {
	ID            string
	Name          string
	UnitOfMeasure string
	UnitPrice     decimal.Decimal
	ReorderLevel  int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsLow indica si la cantidad está por debajo del punto de reorden.
func (i *Item) IsLow(quantity int64) bool {
	return quantity < i.ReorderLevel
}
