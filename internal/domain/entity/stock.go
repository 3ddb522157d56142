package entity

import "time"

// StockKey identifica una fila de stock: par (bodega, ítem).
type StockKey struct {
	WarehouseID string `json:"warehouse_id"`
	ItemID      string `json:"item_id"`
}

// StockRow representa la cantidad disponible de un ítem en una bodega.
// Se crea en 0 con el primer movimiento y nunca se elimina.
type StockRow struct {
	WarehouseID string
	ItemID      string
	Quantity    int64
	UpdatedAt   time.Time
}

// Key devuelve la clave (bodega, ítem) de la fila.
func (s StockRow) Key() StockKey {
	return StockKey{WarehouseID: s.WarehouseID, ItemID: s.ItemID}
}
