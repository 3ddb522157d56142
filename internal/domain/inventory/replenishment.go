package inventory

import "github.com/shopspring/decimal"

// idealFactor stock objetivo = punto de reorden × 1.5.
var idealFactor = decimal.NewFromFloat(1.5)

// SuggestedOrderQty cantidad sugerida para volver al stock ideal. Nunca negativa.
func SuggestedOrderQty(quantity, reorderLevel int64) (ideal, suggested int64) {
	ideal = decimal.NewFromInt(reorderLevel).Mul(idealFactor).Ceil().IntPart()
	suggested = ideal - quantity
	if suggested < 0 {
		suggested = 0
	}
	return ideal, suggested
}
