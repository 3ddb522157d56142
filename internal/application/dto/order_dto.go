package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest body para POST /api/orders. Kind: PURCHASE o SALES.
type CreateOrderRequest struct {
	Kind           string     `json:"kind"`
	CounterpartyID string     `json:"counterparty_id"`
	WarehouseID    string     `json:"warehouse_id"`
	OrderDate      *time.Time `json:"order_date,omitempty"`
}

// AddOrderLineRequest body para POST /api/orders/:id/lines. UnitPrice solo se respeta en ventas.
type AddOrderLineRequest struct {
	ItemID    string           `json:"item_id"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// UpdateOrderLineRequest body para PUT /api/orders/:id/lines/:lineId (campos opcionales).
type UpdateOrderLineRequest struct {
	Quantity  *int64           `json:"quantity,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// AdvanceStatusRequest body para POST /api/orders/:id/status.
type AdvanceStatusRequest struct {
	Status string `json:"status"`
}

// FulfillOrderRequest body opcional para POST /api/orders/:id/receive y /ship.
type FulfillOrderRequest struct {
	Note         string `json:"note,omitempty"`
	SkipPreCheck bool   `json:"skip_pre_check,omitempty"`
}

// OrderLineResponse línea con subtotal derivado.
type OrderLineResponse struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"item_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderResponse orden con líneas y total derivado (no se persiste).
type OrderResponse struct {
	ID             string              `json:"id"`
	Kind           string              `json:"kind"`
	CounterpartyID string              `json:"counterparty_id"`
	WarehouseID    string              `json:"warehouse_id"`
	OrderDate      time.Time           `json:"order_date"`
	Status         string              `json:"status"`
	Lines          []OrderLineResponse `json:"lines"`
	Total          decimal.Decimal     `json:"total"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// OrderListResponse listado paginado de órdenes.
type OrderListResponse struct {
	Items []OrderResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// FulfillmentResponse lo confirmado por una recepción, despacho, ajuste o devolución.
type FulfillmentResponse struct {
	TransactionID string                `json:"transaction_id"`
	OrderID       string                `json:"order_id,omitempty"`
	OrderStatus   string                `json:"order_status,omitempty"`
	Entries       []LedgerEntryResponse `json:"entries"`
	Quantities    []StockResponse       `json:"quantities"`
}
