package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderValidate(t *testing.T) {
	valid := Order{
		OrderID:  "ord-1",
		Ticker:   "ASML",
		Status:   OrderStatusFilled,
		Quantity: 10,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Order)
	}{
		{"empty order_id", func(o *Order) { o.OrderID = " " }},
		{"empty ticker", func(o *Order) { o.Ticker = "" }},
		{"zero quantity", func(o *Order) { o.Quantity = 0 }},
		{"negative stop price", func(o *Order) { o.StopPrice = Float64Ptr(-1) }},
		{"unknown status", func(o *Order) { o.Status = "open" }},
		{"stop order unlinked", func(o *Order) { o.OrderKind = OrderKindStop }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			assert.ErrorIs(t, o.Validate(), ErrValidation)
		})
	}
}

func TestOrderValidateLinkedStop(t *testing.T) {
	o := Order{
		OrderID:       "stp-1",
		Ticker:        "ASML",
		Status:        OrderStatusPending,
		Quantity:      10,
		OrderKind:     OrderKindStop,
		ParentOrderID: "ord-1",
		PositionID:    "pos-1",
		StopPrice:     Float64Ptr(90),
	}
	assert.NoError(t, o.Validate())
}

func TestNormalizeOrderType(t *testing.T) {
	allowed := []string{"buy", "sell"}

	assert.Equal(t, "buy", NormalizeOrderType("buy", allowed))
	assert.Equal(t, "sell", NormalizeOrderType(" SELL ", allowed))
	assert.Equal(t, "", NormalizeOrderType("short", allowed))
	assert.Equal(t, "", NormalizeOrderType("", allowed))
}
