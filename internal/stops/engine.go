// Package stops implements the stop-management state machine. Evaluate turns
// the current price panel and the open positions into one PositionUpdate per
// position; Apply commits those decisions into a new position list. The two
// steps are split so callers can render or veto decisions before committing.
package stops

import (
	"fmt"
	"log/slog"

	"github.com/mkruijs/positionbot/internal/domain"
	"github.com/mkruijs/positionbot/internal/indicator"
)

// Config holds the stop-management thresholds, all expressed in R-multiples
// of the initial per-share risk.
type Config struct {
	// BreakevenAtR is the gain, in R, at which the stop moves to entry.
	BreakevenAtR float64
	// TrailAfterR is the gain, in R, after which the stop trails the
	// high-water mark.
	TrailAfterR float64
	// TrailATRMultiple is the trail distance in ATRs behind the high-water
	// mark. When the candle history is too short to compute an ATR, the
	// per-share risk is used as the trail distance instead.
	TrailATRMultiple float64
	// ATRWindow is the lookback for the trailing ATR.
	ATRWindow int
}

// Engine evaluates open positions against the price panel.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an Engine with the given thresholds.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "stops")),
	}
}

// Evaluate produces one update per position and a parallel position list with
// max_favorable_price refreshed. It never mutates its inputs and never lowers
// a stop: every suggested stop is floored at the current one.
func (e *Engine) Evaluate(panel domain.Panel, positions []domain.Position) ([]domain.PositionUpdate, []domain.Position) {
	updates := make([]domain.PositionUpdate, 0, len(positions))
	refreshed := make([]domain.Position, 0, len(positions))

	for _, pos := range positions {
		upd, p := e.evaluateOne(panel, pos)
		updates = append(updates, upd)
		refreshed = append(refreshed, p)
	}
	return updates, refreshed
}

func (e *Engine) evaluateOne(panel domain.Panel, pos domain.Position) (domain.PositionUpdate, domain.Position) {
	upd := domain.PositionUpdate{
		Ticker:        pos.Ticker,
		Status:        pos.Status,
		Entry:         pos.EntryPrice,
		StopOld:       pos.StopPrice,
		StopSuggested: pos.StopPrice,
		Shares:        pos.Shares,
		Action:        domain.ActionNone,
	}

	if !pos.IsOpen() {
		upd.Reason = "position closed"
		return upd, pos
	}

	last, ok := panel.LastClose(pos.Ticker)
	if !ok {
		e.logger.Warn("no price data for position", slog.String("ticker", pos.Ticker))
		upd.Reason = "no price data"
		return upd, pos
	}
	upd.Last = last

	// High-water mark only ever moves up.
	if pos.MaxFavorablePrice == nil || last > *pos.MaxFavorablePrice {
		pos.MaxFavorablePrice = domain.Float64Ptr(last)
	}

	risk := pos.RiskPerShare()
	if risk > 0 && pos.Shares > 0 {
		upd.RNow = (last - pos.EntryPrice) / risk
	}

	switch {
	case last <= pos.StopPrice:
		upd.Action = domain.ActionCloseStopHit
		upd.Reason = "Stop hit"

	case upd.RNow >= e.cfg.TrailAfterR:
		trail := e.trailDistance(panel[pos.Ticker], risk)
		suggested := *pos.MaxFavorablePrice - trail
		if suggested > pos.StopPrice {
			upd.StopSuggested = suggested
			upd.Action = domain.ActionMoveStopUp
			upd.Reason = fmt.Sprintf("Trailing %.2f behind high %.2f (%.2fR)", trail, *pos.MaxFavorablePrice, upd.RNow)
		} else {
			upd.Reason = fmt.Sprintf("Trailing stop %.2f not above current %.2f", suggested, pos.StopPrice)
		}

	case upd.RNow >= e.cfg.BreakevenAtR:
		if pos.EntryPrice > pos.StopPrice {
			upd.StopSuggested = pos.EntryPrice
			upd.Action = domain.ActionMoveStopUp
			upd.Reason = fmt.Sprintf("Breakeven at %.2fR", upd.RNow)
		} else {
			upd.Reason = "Stop already at or above entry"
		}

	default:
		upd.Reason = fmt.Sprintf("Holding at %.2fR", upd.RNow)
	}

	return upd, pos
}

// trailDistance is the absolute price distance the stop trails behind the
// high-water mark.
func (e *Engine) trailDistance(candles []domain.Candle, riskPerShare float64) float64 {
	if atr, ok := indicator.ATR(candles, e.cfg.ATRWindow); ok {
		return e.cfg.TrailATRMultiple * atr
	}
	return riskPerShare
}

// Apply commits evaluated updates into a new position list. It is a pure
// function and idempotent: re-applying the same updates to its own output
// changes nothing, because a stop never retreats and closed is terminal.
func Apply(positions []domain.Position, updates []domain.PositionUpdate) []domain.Position {
	byTicker := make(map[string]domain.PositionUpdate, len(updates))
	for _, u := range updates {
		byTicker[u.Ticker] = u
	}

	out := make([]domain.Position, 0, len(positions))
	for _, pos := range positions {
		upd, ok := byTicker[pos.Ticker]
		if !ok || !pos.IsOpen() {
			out = append(out, pos)
			continue
		}
		switch upd.Action {
		case domain.ActionMoveStopUp:
			if upd.StopSuggested > pos.StopPrice {
				pos.StopPrice = upd.StopSuggested
			}
		case domain.ActionCloseStopHit:
			pos.Status = domain.PositionStatusClosed
			pos.ExitPrice = domain.Float64Ptr(upd.Last)
		}
		out = append(out, pos)
	}
	return out
}
