package fulfillment

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Action tipo de operación que el motor ejecuta como una unidad atómica.
type Action string

const (
	ActionReceivePO      Action = "RECEIVE_PO"
	ActionShipSO         Action = "SHIP_SO"
	ActionAdjust         Action = "ADJUST"
	ActionReturnCustomer Action = "RETURN_CUSTOMER"
	ActionReturnSupplier Action = "RETURN_SUPPLIER"
)

// Options ajustes por llamada.
type Options struct {
	// AllowNegative permite stock negativo en ajustes y devoluciones a proveedor. Se rechaza en despachos.
	AllowNegative bool
	// SkipPreCheck omite la verificación previa de disponibilidad (ApplyDelta sigue rechazando negativos).
	SkipPreCheck bool
}

// Request entrada del motor. OrderID aplica a ReceivePO/ShipSO; WarehouseID, ItemID y Quantity
// a los movimientos de una sola línea (Adjust, ReturnCustomer, ReturnSupplier).
type Request struct {
	Action      Action
	OrderID     string
	WarehouseID string
	ItemID      string
	Quantity    int64
	ActorID     string
	Note        string
	Options     Options
}

// Result lo que quedó confirmado por una llamada.
type Result struct {
	TransactionID string
	OrderID       string
	OrderStatus   string
	Entries       []entity.LedgerEntry
	// Quantities cantidad final de cada par tocado, en el orden en que se tocaron.
	Quantities []entity.StockRow
	Attempts   int
}

// Touched pares afectados, sin repetir.
func (r *Result) Touched() []entity.StockKey {
	keys := make([]entity.StockKey, 0, len(r.Quantities))
	for _, q := range r.Quantities {
		keys = append(keys, q.Key())
	}
	return keys
}

// Policy configuración del motor.
type Policy struct {
	MaxRetries                  int
	LockTimeout                 time.Duration
	AllowNegativeAdjust         bool
	AllowNegativeReturnSupplier bool
}

func (p Policy) allowNegative(a Action) bool {
	switch a {
	case ActionAdjust:
		return p.AllowNegativeAdjust
	case ActionReturnSupplier:
		return p.AllowNegativeReturnSupplier
	}
	return false
}

// movement describe cómo una acción se traduce al libro.
type movement struct {
	changeType string
	refType    string
	sign       int64
}

var movements = map[Action]movement{
	ActionReceivePO:      {changeType: entity.ChangeTypeIN, refType: entity.RefTypePO, sign: 1},
	ActionShipSO:         {changeType: entity.ChangeTypeOUT, refType: entity.RefTypeSO, sign: -1},
	ActionAdjust:         {changeType: entity.ChangeTypeADJUST, refType: entity.RefTypeManual, sign: 1},
	ActionReturnCustomer: {changeType: entity.ChangeTypeIN, refType: entity.RefTypeReturnCust, sign: 1},
	ActionReturnSupplier: {changeType: entity.ChangeTypeOUT, refType: entity.RefTypeReturnSupp, sign: -1},
}

// orderKind tipo de orden que consume cada acción basada en orden.
func (a Action) orderKind() string {
	switch a {
	case ActionReceivePO:
		return entity.OrderKindPurchase
	case ActionShipSO:
		return entity.OrderKindSales
	}
	return ""
}

func (a Action) valid() bool {
	_, ok := movements[a]
	return ok
}
