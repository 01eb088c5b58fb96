// Package migrate backfills the ownership links between filled entry orders
// and positions, and synthesizes the protective stop orders that older
// snapshots are missing. Link is idempotent: running it on its own output is
// a no-op.
package migrate

import (
	"github.com/google/uuid"

	"github.com/mkruijs/positionbot/internal/domain"
)

// Link walks the order and position sets and repairs three things, in order:
// positions without a position_id get one, filled entry orders get linked to
// the position they opened, and open positions without a protective stop
// order get a pending GTC stop synthesized from their current stop price.
//
// Matching assumes at most one unresolved position per ticker per run; when
// several unmatched positions share a ticker the first in slice order wins
// (the caller controls the ordering).
//
// The returned bool is true iff anything changed. Inputs are not mutated.
func Link(orders []domain.Order, positions []domain.Position) ([]domain.Order, []domain.Position, bool) {
	outOrders := make([]domain.Order, len(orders))
	copy(outOrders, orders)
	outPositions := make([]domain.Position, len(positions))
	copy(outPositions, positions)

	mutated := false

	// Positions created before IDs existed get a stable one now.
	for i := range outPositions {
		if outPositions[i].PositionID == "" {
			outPositions[i].PositionID = uuid.NewString()
			mutated = true
		}
	}

	// Link filled entry orders to the position they opened.
	for i := range outPositions {
		pos := &outPositions[i]
		if pos.SourceOrderID != "" {
			continue
		}
		for j := range outOrders {
			ord := &outOrders[j]
			if ord.Ticker != pos.Ticker || ord.Status != domain.OrderStatusFilled {
				continue
			}
			if ord.OrderKind != "" && ord.OrderKind != domain.OrderKindEntry {
				continue
			}
			// Untagged sells from a reconciliation run are not entry candidates.
			if ord.OrderKind == "" && ord.OrderType == "sell" {
				continue
			}
			if ord.PositionID != "" && ord.PositionID != pos.PositionID {
				continue
			}
			pos.SourceOrderID = ord.OrderID
			if ord.OrderKind != domain.OrderKindEntry {
				ord.OrderKind = domain.OrderKindEntry
				mutated = true
			}
			if ord.TIF != "GTC" {
				ord.TIF = "GTC"
				mutated = true
			}
			if ord.PositionID != pos.PositionID {
				ord.PositionID = pos.PositionID
				mutated = true
			}
			mutated = true
			break
		}
	}

	// Every linked open position with a stop price gets a protective stop
	// order if none exists. A position whose stop the operator has not set yet
	// is left alone; a pending stop order at price zero would be meaningless.
	for i := range outPositions {
		pos := outPositions[i]
		if pos.SourceOrderID == "" || !pos.IsOpen() || pos.StopPrice <= 0 {
			continue
		}
		if hasStopOrder(outOrders, pos) {
			continue
		}
		outOrders = append(outOrders, domain.Order{
			OrderID:       uuid.NewString(),
			Ticker:        pos.Ticker,
			Status:        domain.OrderStatusPending,
			Quantity:      pos.Shares,
			StopPrice:     domain.Float64Ptr(pos.StopPrice),
			OrderDate:     pos.EntryDate,
			OrderKind:     domain.OrderKindStop,
			ParentOrderID: pos.SourceOrderID,
			PositionID:    pos.PositionID,
			TIF:           "GTC",
			Notes:         "synthesized protective stop",
		})
		mutated = true
	}

	return outOrders, outPositions, mutated
}

func hasStopOrder(orders []domain.Order, pos domain.Position) bool {
	for _, o := range orders {
		if o.OrderKind != domain.OrderKindStop {
			continue
		}
		if o.ParentOrderID == pos.SourceOrderID || (pos.PositionID != "" && o.PositionID == pos.PositionID) {
			return true
		}
	}
	return false
}
