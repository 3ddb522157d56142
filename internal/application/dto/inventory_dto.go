package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/inventory/adjustments y /api/inventory/returns.
// Type: ADJUST (cantidad con signo), RETURN_CUSTOMER o RETURN_SUPPLIER (cantidad positiva).
type RegisterMovementRequest struct {
	WarehouseID   string `json:"warehouse_id"`
	ItemID        string `json:"item_id"`
	Type          string `json:"type,omitempty"`
	Quantity      int64  `json:"quantity"`
	Note          string `json:"note,omitempty"`
	AllowNegative bool   `json:"allow_negative,omitempty"`
}

// StockResponse cantidad actual de un par.
type StockResponse struct {
	WarehouseID string    `json:"warehouse_id"`
	ItemID      string    `json:"item_id"`
	Quantity    int64     `json:"quantity"`
	IsLow       bool      `json:"is_low"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// LedgerEntryResponse entrada del libro de movimientos.
type LedgerEntryResponse struct {
	ID            int64     `json:"id"`
	TransactionID string    `json:"transaction_id"`
	WarehouseID   string    `json:"warehouse_id"`
	ItemID        string    `json:"item_id"`
	ChangeType    string    `json:"change_type"`
	DeltaQty      int64     `json:"delta_qty"`
	RefType       string    `json:"ref_type"`
	RefID         *string   `json:"ref_id"`
	ActorID       *string   `json:"actor_id"`
	Note          string    `json:"note,omitempty"`
	LoggedAt      time.Time `json:"logged_at"`
}

// LedgerPageResponse página del libro con cursor.
type LedgerPageResponse struct {
	Items      []LedgerEntryResponse `json:"items"`
	NextCursor int64                 `json:"next_cursor,omitempty"`
}

// InventoryLevelResponse fila de stock con datos maestros.
type InventoryLevelResponse struct {
	WarehouseID   string          `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	ItemID        string          `json:"item_id"`
	ItemName      string          `json:"item_name"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	Quantity      int64           `json:"quantity"`
	ReorderLevel  int64           `json:"reorder_level"`
	Deficit       int64           `json:"deficit"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un ítem bajo su punto de reorden.
type ReplenishmentSuggestionDTO struct {
	WarehouseID        string          `json:"warehouse_id"`
	WarehouseName      string          `json:"warehouse_name"`
	ItemID             string          `json:"item_id"`
	ItemName           string          `json:"item_name"`
	UnitOfMeasure      string          `json:"unit_of_measure"`
	CurrentStock       int64           `json:"current_stock"`
	ReorderLevel       int64           `json:"reorder_level"`
	IdealStock         int64           `json:"ideal_stock"`          // ceil(ReorderLevel * 1.5)
	SuggestedOrderQty  int64           `json:"suggested_order_qty"`  // IdealStock - CurrentStock
	UnitPrice          decimal.Decimal `json:"unit_price"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitPrice
	Priority           int             `json:"priority"`             // 1 = más urgente
}

// DiscrepancyResponse par cuyo stock no coincide con la suma del libro.
type DiscrepancyResponse struct {
	WarehouseID string `json:"warehouse_id"`
	ItemID      string `json:"item_id"`
	Stored      int64  `json:"stored"`
	Replayed    int64  `json:"replayed"`
}

// ReconcileResponse resultado de la conciliación.
type ReconcileResponse struct {
	WarehouseID   string                `json:"warehouse_id,omitempty"`
	Entries       int                   `json:"entries"`
	Rows          int                   `json:"rows"`
	Consistent    bool                  `json:"consistent"`
	Discrepancies []DiscrepancyResponse `json:"discrepancies"`
}
