package domain

import (
	"fmt"
	"strings"
)

// OrderStatus tracks the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderKind classifies the role an order plays for a position: the entry
// order that opened it, or a protective stop / take-profit order guarding it.
// An empty kind means the order has not been linked yet.
type OrderKind string

const (
	OrderKindEntry      OrderKind = "entry"
	OrderKindStop       OrderKind = "stop"
	OrderKindTakeProfit OrderKind = "take_profit"
)

// Order represents a broker order, either imported from a transaction export
// or synthesized by the migration linker.
type Order struct {
	OrderID       string      `json:"order_id"`
	Ticker        string      `json:"ticker"`
	Status        OrderStatus `json:"status"`
	OrderType     string      `json:"order_type"`
	Quantity      int         `json:"quantity"`
	LimitPrice    *float64    `json:"limit_price,omitempty"`
	StopPrice     *float64    `json:"stop_price,omitempty"`
	EntryPrice    *float64    `json:"entry_price,omitempty"`
	OrderDate     string      `json:"order_date"`
	FilledDate    string      `json:"filled_date"`
	OrderKind     OrderKind   `json:"order_kind,omitempty"`
	ParentOrderID string      `json:"parent_order_id,omitempty"`
	PositionID    string      `json:"position_id,omitempty"`
	TIF           string      `json:"tif,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	Locked        bool        `json:"locked"`
}

// Validate checks the structural invariants of an order. A stop order must
// always carry the links back to the entry order and position it protects.
func (o Order) Validate() error {
	if strings.TrimSpace(o.OrderID) == "" {
		return fmt.Errorf("order: empty order_id: %w", ErrValidation)
	}
	if strings.TrimSpace(o.Ticker) == "" {
		return fmt.Errorf("order %s: empty ticker: %w", o.OrderID, ErrValidation)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("order %s: quantity %d must be positive: %w", o.OrderID, o.Quantity, ErrValidation)
	}
	for name, v := range map[string]*float64{
		"limit_price": o.LimitPrice,
		"stop_price":  o.StopPrice,
		"entry_price": o.EntryPrice,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("order %s: negative %s: %w", o.OrderID, name, ErrValidation)
		}
	}
	switch o.Status {
	case OrderStatusPending, OrderStatusFilled, OrderStatusCancelled:
	default:
		return fmt.Errorf("order %s: unknown status %q: %w", o.OrderID, o.Status, ErrValidation)
	}
	if o.OrderKind == OrderKindStop && (o.ParentOrderID == "" || o.PositionID == "") {
		return fmt.Errorf("order %s: stop order missing parent/position link: %w", o.OrderID, ErrValidation)
	}
	return nil
}

// NormalizeOrderType maps a free-form order type onto the caller's allow-list.
// Types not on the list collapse to the empty string rather than erroring, so
// imports never fail over a cosmetic field.
func NormalizeOrderType(orderType string, allowed []string) string {
	t := strings.ToLower(strings.TrimSpace(orderType))
	for _, a := range allowed {
		if t == strings.ToLower(a) {
			return t
		}
	}
	return ""
}
