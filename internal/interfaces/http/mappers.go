package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/fulfillment"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// requestContext contexto del request con el deadline configurado; el motor lo respeta hasta el commit.
func requestContext(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), timeout)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toLedgerEntryResponse(e entity.LedgerEntry) dto.LedgerEntryResponse {
	return dto.LedgerEntryResponse{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		WarehouseID:   e.WarehouseID,
		ItemID:        e.ItemID,
		ChangeType:    e.ChangeType,
		DeltaQty:      e.DeltaQty,
		RefType:       e.RefType,
		RefID:         optionalString(e.RefID),
		ActorID:       optionalString(e.ActorID),
		Note:          e.Note,
		LoggedAt:      e.LoggedAt,
	}
}

func toFulfillmentResponse(r *fulfillment.Result) dto.FulfillmentResponse {
	out := dto.FulfillmentResponse{
		TransactionID: r.TransactionID,
		OrderID:       r.OrderID,
		OrderStatus:   r.OrderStatus,
		Entries:       make([]dto.LedgerEntryResponse, 0, len(r.Entries)),
		Quantities:    make([]dto.StockResponse, 0, len(r.Quantities)),
	}
	for _, e := range r.Entries {
		out.Entries = append(out.Entries, toLedgerEntryResponse(e))
	}
	for _, q := range r.Quantities {
		out.Quantities = append(out.Quantities, dto.StockResponse{
			WarehouseID: q.WarehouseID,
			ItemID:      q.ItemID,
			Quantity:    q.Quantity,
			UpdatedAt:   q.UpdatedAt,
		})
	}
	return out
}

func toLevelResponse(l entity.InventoryLevel) dto.InventoryLevelResponse {
	deficit := l.ReorderLevel - l.Quantity
	if deficit < 0 {
		deficit = 0
	}
	return dto.InventoryLevelResponse{
		WarehouseID:   l.WarehouseID,
		WarehouseName: l.WarehouseName,
		ItemID:        l.ItemID,
		ItemName:      l.ItemName,
		UnitOfMeasure: l.UnitOfMeasure,
		Quantity:      l.Quantity,
		ReorderLevel:  l.ReorderLevel,
		Deficit:       deficit,
		UnitPrice:     l.UnitPrice,
	}
}
