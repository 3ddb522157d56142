package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de orden.
const (
	OrderKindPurchase = "PURCHASE"
	OrderKindSales    = "SALES"
)

// Estados de la orden de compra (PO).
const (
	POStatusCreated  = "CREATED"
	POStatusApproved = "APPROVED"
	POStatusPartial  = "PARTIAL"
	POStatusReceived = "RECEIVED"
)

// Estados de la orden de venta (SO).
const (
	SOStatusNew       = "NEW"
	SOStatusConfirmed = "CONFIRMED"
	SOStatusShipped   = "SHIPPED"
)

// El orden de cada slice es el orden de la máquina de estados; el último es terminal.
var statusFlow = map[string][]string{
	OrderKindPurchase: {POStatusCreated, POStatusApproved, POStatusPartial, POStatusReceived},
	OrderKindSales:    {SOStatusNew, SOStatusConfirmed, SOStatusShipped},
}

// Order cabecera de una orden de compra o venta. Las líneas comparten la bodega de la orden.
type Order struct {
	ID             string
	Kind           string
	CounterpartyID string // proveedor (PO) o cliente (SO)
	WarehouseID    string
	OrderDate      time.Time
	Status         string
	Lines          []OrderLine
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderLine línea de una orden. UnitPrice se fija al insertar la línea.
type OrderLine struct {
	ID        string
	OrderID   string
	ItemID    string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Subtotal cantidad × precio unitario.
func (l OrderLine) Subtotal() decimal.Decimal {
	return decimal.NewFromInt(l.Quantity).Mul(l.UnitPrice)
}

// ValidKind indica si kind es un tipo de orden conocido.
func ValidKind(kind string) bool {
	_, ok := statusFlow[kind]
	return ok
}

// InitialStatus estado con el que nace una orden del tipo indicado.
func InitialStatus(kind string) string {
	flow := statusFlow[kind]
	if len(flow) == 0 {
		return ""
	}
	return flow[0]
}

// TerminalStatus estado final (RECEIVED o SHIPPED).
func TerminalStatus(kind string) string {
	flow := statusFlow[kind]
	if len(flow) == 0 {
		return ""
	}
	return flow[len(flow)-1]
}

func statusRank(kind, status string) int {
	for i, s := range statusFlow[kind] {
		if s == status {
			return i
		}
	}
	return -1
}

// CanTransition solo permite avanzar; nunca retroceder ni quedarse en el mismo estado.
func CanTransition(kind, from, to string) bool {
	rf, rt := statusRank(kind, from), statusRank(kind, to)
	return rf >= 0 && rt >= 0 && rt > rf
}

// IsTerminal indica si la orden ya alcanzó su estado final.
func (o *Order) IsTerminal() bool {
	return o.Status == TerminalStatus(o.Kind)
}

// IsFulfillable indica si la orden está en el conjunto elegible para recibir/despachar:
// cualquier estado válido distinto del terminal.
func (o *Order) IsFulfillable() bool {
	return statusRank(o.Kind, o.Status) >= 0 && !o.IsTerminal()
}

// Total valor derivado de la orden: Σ(cantidad × precio), redondeado a 2 decimales. No se persiste.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}

// Line busca una línea por ID.
func (o *Order) Line(lineID string) (*OrderLine, bool) {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i], true
		}
	}
	return nil, false
}
