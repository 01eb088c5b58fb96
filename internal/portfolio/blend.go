// Package portfolio holds the in-memory mutations of existing positions that
// are not driven by the stop engine, currently the scale-in blender.
package portfolio

import (
	"fmt"

	"github.com/mkruijs/positionbot/internal/domain"
)

// Blend merges an additional fill into an open position using a share-weighted
// average entry price. The stop price is left where it is, so the blend is
// rejected when the averaged-down entry would collapse to or below the stop
// (the long-only invariant entry > stop must hold strictly).
func Blend(pos domain.Position, addPrice float64, addShares int) (domain.Position, error) {
	if !pos.IsOpen() {
		return domain.Position{}, fmt.Errorf("portfolio: blend into closed position %s: %w", pos.Ticker, domain.ErrValidation)
	}
	if pos.Locked {
		return domain.Position{}, fmt.Errorf("portfolio: blend %s: %w", pos.Ticker, domain.ErrLocked)
	}
	if addShares <= 0 {
		return domain.Position{}, fmt.Errorf("portfolio: blend %s: add shares %d must be positive: %w", pos.Ticker, addShares, domain.ErrValidation)
	}
	if addPrice <= 0 {
		return domain.Position{}, fmt.Errorf("portfolio: blend %s: add price %.4f must be positive: %w", pos.Ticker, addPrice, domain.ErrValidation)
	}

	newShares := pos.Shares + addShares
	newEntry := (pos.EntryPrice*float64(pos.Shares) + addPrice*float64(addShares)) / float64(newShares)

	if newEntry <= pos.StopPrice {
		return domain.Position{}, fmt.Errorf(
			"portfolio: blend %s: blended entry %.4f not above stop %.4f: %w",
			pos.Ticker, newEntry, pos.StopPrice, domain.ErrValidation)
	}

	pos.Shares = newShares
	pos.EntryPrice = newEntry
	pos.InitialRisk = domain.Float64Ptr(newEntry - pos.StopPrice)
	if pos.MaxFavorablePrice != nil && addPrice > *pos.MaxFavorablePrice {
		pos.MaxFavorablePrice = domain.Float64Ptr(addPrice)
	}
	return pos, nil
}
