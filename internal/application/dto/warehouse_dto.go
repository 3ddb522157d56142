package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseResponse salida de una bodega.
type WarehouseResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarehouseListResponse lista de bodegas.
type WarehouseListResponse struct {
	Items []WarehouseResponse `json:"items"`
}

// ItemResponse salida de un ítem del catálogo.
type ItemResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ReorderLevel  int64           `json:"reorder_level"`
}

// ItemListResponse lista de ítems.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
}
