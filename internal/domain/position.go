package domain

import (
	"fmt"
	"strings"
)

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position represents a long position in a single instrument. The model is
// long-only: entry_price stays strictly above stop_price for the whole open
// lifetime, and stop_price only ever moves up.
type Position struct {
	Ticker            string         `json:"ticker"`
	Status            PositionStatus `json:"status"`
	EntryDate         string         `json:"entry_date"`
	EntryPrice        float64        `json:"entry_price"`
	StopPrice         float64        `json:"stop_price"`
	Shares            int            `json:"shares"`
	InitialRisk       *float64       `json:"initial_risk,omitempty"`
	MaxFavorablePrice *float64       `json:"max_favorable_price,omitempty"`
	PositionID        string         `json:"position_id,omitempty"`
	SourceOrderID     string         `json:"source_order_id,omitempty"`
	ExitPrice         *float64       `json:"exit_price,omitempty"`
	Notes             string         `json:"notes,omitempty"`
	Locked            bool           `json:"locked"`
}

// RiskPerShare returns the cached initial risk when present and positive,
// otherwise the live distance between entry and stop.
func (p Position) RiskPerShare() float64 {
	if p.InitialRisk != nil && *p.InitialRisk > 0 {
		return *p.InitialRisk
	}
	return p.EntryPrice - p.StopPrice
}

// IsOpen reports whether the position is still open.
func (p Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}

// Validate checks the structural invariants of a position.
func (p Position) Validate() error {
	if strings.TrimSpace(p.Ticker) == "" {
		return fmt.Errorf("position: empty ticker: %w", ErrValidation)
	}
	switch p.Status {
	case PositionStatusOpen, PositionStatusClosed:
	default:
		return fmt.Errorf("position %s: unknown status %q: %w", p.Ticker, p.Status, ErrValidation)
	}
	if p.Status == PositionStatusOpen {
		if p.Shares <= 0 {
			return fmt.Errorf("position %s: open with %d shares: %w", p.Ticker, p.Shares, ErrValidation)
		}
		if p.StopPrice > 0 && p.EntryPrice <= p.StopPrice {
			return fmt.Errorf("position %s: entry %.4f not above stop %.4f: %w",
				p.Ticker, p.EntryPrice, p.StopPrice, ErrValidation)
		}
	}
	return nil
}

// Float64Ptr returns a pointer to v. Convenience for the optional numeric
// fields on Order and Position.
func Float64Ptr(v float64) *float64 {
	return &v
}
