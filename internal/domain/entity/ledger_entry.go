package entity

import "time"

// Tipos de cambio en el libro de movimientos.
const (
	ChangeTypeIN     = "IN"
	ChangeTypeOUT    = "OUT"
	ChangeTypeADJUST = "ADJUST"
)

// Tipos de referencia (procedencia) de un movimiento.
const (
	RefTypePO         = "PO"
	RefTypeSO         = "SO"
	RefTypeManual     = "MANUAL"
	RefTypeReturnCust = "RETURN_CUST"
	RefTypeReturnSupp = "RETURN_SUPP"
)

// LedgerEntry es un registro inmutable del libro de movimientos.
// DeltaQty tiene signo: la suma de los deltas de un par reproduce la cantidad actual.
type LedgerEntry struct {
	ID            int64
	TransactionID string
	WarehouseID   string
	ItemID        string
	ChangeType    string
	DeltaQty      int64
	RefType       string
	RefID         string // vacío = sin referencia
	ActorID       string // vacío = sin actor
	Note          string
	LoggedAt      time.Time
}

// Key devuelve el par (bodega, ítem) afectado.
func (e LedgerEntry) Key() StockKey {
	return StockKey{WarehouseID: e.WarehouseID, ItemID: e.ItemID}
}

// LedgerFilter filtra el libro. AfterID es el cursor: solo entradas con ID > AfterID.
type LedgerFilter struct {
	WarehouseID string
	ItemID      string
	RefType     string
	RefID       string
	AfterID     int64
	Limit       int
}

// Matches aplica el filtro (sin cursor ni límite) a una entrada.
func (f LedgerFilter) Matches(e *LedgerEntry) bool {
	if f.WarehouseID != "" && e.WarehouseID != f.WarehouseID {
		return false
	}
	if f.ItemID != "" && e.ItemID != f.ItemID {
		return false
	}
	if f.RefType != "" && e.RefType != f.RefType {
		return false
	}
	if f.RefID != "" && e.RefID != f.RefID {
		return false
	}
	return true
}
