package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition_SoloHaciaAdelante(t *testing.T) {
	assert.True(t, CanTransition(OrderKindPurchase, POStatusCreated, POStatusApproved))
	assert.True(t, CanTransition(OrderKindPurchase, POStatusCreated, POStatusReceived))
	assert.False(t, CanTransition(OrderKindPurchase, POStatusApproved, POStatusCreated))
	assert.False(t, CanTransition(OrderKindPurchase, POStatusApproved, POStatusApproved))
	assert.False(t, CanTransition(OrderKindSales, SOStatusNew, POStatusApproved))
	assert.True(t, CanTransition(OrderKindSales, SOStatusConfirmed, SOStatusShipped))
	assert.False(t, CanTransition(OrderKindSales, SOStatusShipped, SOStatusNew))
}

func TestOrder_ConjuntoElegible(t *testing.T) {
	for _, s := range []string{POStatusCreated, POStatusApproved, POStatusPartial} {
		o := &Order{Kind: OrderKindPurchase, Status: s}
		assert.True(t, o.IsFulfillable(), s)
	}
	assert.False(t, (&Order{Kind: OrderKindPurchase, Status: POStatusReceived}).IsFulfillable())
	assert.True(t, (&Order{Kind: OrderKindSales, Status: SOStatusConfirmed}).IsFulfillable())
	assert.False(t, (&Order{Kind: OrderKindSales, Status: SOStatusShipped}).IsFulfillable())
	assert.False(t, (&Order{Kind: OrderKindSales, Status: "BOGUS"}).IsFulfillable())
	assert.Equal(t, POStatusCreated, InitialStatus(OrderKindPurchase))
	assert.Equal(t, "", InitialStatus("OTHER"))
}

func TestOrder_TotalRedondeado(t *testing.T) {
	o := &Order{Lines: []OrderLine{
		{ItemID: "A", Quantity: 10, UnitPrice: decimal.RequireFromString("2.00")},
		{ItemID: "B", Quantity: 5, UnitPrice: decimal.RequireFromString("1.00")},
		{ItemID: "C", Quantity: 3, UnitPrice: decimal.RequireFromString("0.335")},
	}}
	assert.Equal(t, "26.01", o.Total().StringFixed(2))
	assert.True(t, (&Order{}).Total().IsZero())
}
