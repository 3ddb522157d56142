package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	invdomain "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición para una bodega (o todas).
type ReplenishmentUseCase struct {
	levelRepo repository.InventoryLevelRepository
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(levelRepo repository.InventoryLevelRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{levelRepo: levelRepo}
}

// GenerateReplenishmentList devuelve los ítems bajo punto de reorden con la cantidad sugerida
// para volver al stock ideal (punto de reorden × 1.5) y su costo estimado a precio de catálogo.
// warehouseID puede ser vacío para considerar todas las bodegas.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, warehouseID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	rawItems, err := uc.levelRepo.ListBelowReorderLevel(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	if len(rawItems) == 0 {
		return []dto.ReplenishmentSuggestionDTO{}, nil
	}

	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(rawItems))
	for _, item := range rawItems {
		ideal, qty := invdomain.SuggestedOrderQty(item.Quantity, item.ReorderLevel)
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			WarehouseID:        item.WarehouseID,
			WarehouseName:      item.WarehouseName,
			ItemID:             item.ItemID,
			ItemName:           item.ItemName,
			UnitOfMeasure:      item.UnitOfMeasure,
			CurrentStock:       item.Quantity,
			ReorderLevel:       item.ReorderLevel,
			IdealStock:         ideal,
			SuggestedOrderQty:  qty,
			UnitPrice:          item.UnitPrice,
			EstimatedOrderCost: decimal.NewFromInt(qty).Mul(item.UnitPrice).Round(2),
		})
	}

	// Mayor déficit primero; a igual déficit, el pedido más costoso.
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		defA, defB := a.ReorderLevel-a.CurrentStock, b.ReorderLevel-b.CurrentStock
		if defA != defB {
			return defA > defB
		}
		if !a.EstimatedOrderCost.Equal(b.EstimatedOrderCost) {
			return a.EstimatedOrderCost.GreaterThan(b.EstimatedOrderCost)
		}
		return a.ItemID < b.ItemID
	})

	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
