package stops

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkruijs/positionbot/internal/domain"
)

func testEngine(cfg Config) *Engine {
	return NewEngine(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func defaultConfig() Config {
	return Config{
		BreakevenAtR:     1.0,
		TrailAfterR:      2.0,
		TrailATRMultiple: 2.0,
		ATRWindow:        14,
	}
}

// flatPanel builds a single-candle history whose close is the given last
// price, too short for an ATR so the engine falls back to the per-share risk
// as trail distance.
func flatPanel(ticker string, last float64) domain.Panel {
	return domain.Panel{
		ticker: {{Date: "2026-08-25", Open: last, High: last, Low: last, Close: last}},
	}
}

func openPosition(ticker string, entry, stop float64, shares int) domain.Position {
	return domain.Position{
		Ticker:     ticker,
		Status:     domain.PositionStatusOpen,
		EntryPrice: entry,
		StopPrice:  stop,
		Shares:     shares,
	}
}

func TestEvaluateRMultiple(t *testing.T) {
	pos := openPosition("ASML", 15.89, 14.60, 100)
	pos.InitialRisk = domain.Float64Ptr(1.29)
	e := testEngine(defaultConfig())

	tests := []struct {
		name string
		last float64
		want float64
	}{
		{"above entry", 16.65, 0.59},
		{"at entry", 15.89, 0.0},
		{"at stop", 14.60, -1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates, _ := e.Evaluate(flatPanel("ASML", tt.last), []domain.Position{pos})
			require.Len(t, updates, 1)
			assert.InDelta(t, tt.want, updates[0].RNow, 0.01)
		})
	}
}

func TestEvaluateStopHit(t *testing.T) {
	pos := openPosition("ASML", 100, 90, 10)
	e := testEngine(defaultConfig())

	updates, _ := e.Evaluate(flatPanel("ASML", 89.5), []domain.Position{pos})
	require.Len(t, updates, 1)
	assert.Equal(t, domain.ActionCloseStopHit, updates[0].Action)
	assert.Equal(t, "Stop hit", updates[0].Reason)
	// Suggested stop stays where it was on a close.
	assert.Equal(t, 90.0, updates[0].StopSuggested)
}

func TestEvaluateBreakeven(t *testing.T) {
	pos := openPosition("ASML", 100, 90, 10)
	e := testEngine(defaultConfig())

	// 1.0R gain moves the stop to entry.
	updates, _ := e.Evaluate(flatPanel("ASML", 110), []domain.Position{pos})
	require.Len(t, updates, 1)
	assert.Equal(t, domain.ActionMoveStopUp, updates[0].Action)
	assert.Equal(t, 100.0, updates[0].StopSuggested)
}

func TestEvaluateBreakevenAlreadyThere(t *testing.T) {
	pos := openPosition("ASML", 100, 90, 10)
	pos.StopPrice = 100 // operator already moved it by hand
	pos.InitialRisk = domain.Float64Ptr(10)
	e := testEngine(defaultConfig())

	updates, _ := e.Evaluate(flatPanel("ASML", 112), []domain.Position{pos})
	require.Len(t, updates, 1)
	assert.Equal(t, domain.ActionNone, updates[0].Action)
	assert.Equal(t, 100.0, updates[0].StopSuggested)
}

func TestEvaluateTrailingNeverRetreats(t *testing.T) {
	pos := openPosition("ASML", 100, 98, 10)
	pos.InitialRisk = domain.Float64Ptr(2)
	pos.MaxFavorablePrice = domain.Float64Ptr(130)
	e := testEngine(defaultConfig())

	// 2R+ gain with a short history: trail distance falls back to the
	// per-share risk, so the suggested stop is 130 - 2 = 128.
	updates, _ := e.Evaluate(flatPanel("ASML", 120), []domain.Position{pos})
	require.Len(t, updates, 1)
	assert.Equal(t, domain.ActionMoveStopUp, updates[0].Action)
	assert.InDelta(t, 128.0, updates[0].StopSuggested, 1e-9)

	// With the stop already above the trail level, nothing moves.
	pos.StopPrice = 129
	updates, _ = e.Evaluate(flatPanel("ASML", 130), []domain.Position{pos})
	assert.Equal(t, domain.ActionNone, updates[0].Action)
	assert.Equal(t, 129.0, updates[0].StopSuggested)
}

func TestEvaluateMissingPriceData(t *testing.T) {
	pos := openPosition("ASML", 100, 90, 10)
	e := testEngine(defaultConfig())

	updates, refreshed := e.Evaluate(domain.Panel{}, []domain.Position{pos})
	require.Len(t, updates, 1)
	assert.Equal(t, domain.ActionNone, updates[0].Action)
	assert.Equal(t, "no price data", updates[0].Reason)
	assert.Nil(t, refreshed[0].MaxFavorablePrice)
}

func TestEvaluateHighWaterMarkMonotonic(t *testing.T) {
	pos := openPosition("ASML", 100, 90, 10)
	pos.MaxFavorablePrice = domain.Float64Ptr(120)
	e := testEngine(defaultConfig())

	_, refreshed := e.Evaluate(flatPanel("ASML", 105), []domain.Position{pos})
	require.NotNil(t, refreshed[0].MaxFavorablePrice)
	assert.Equal(t, 120.0, *refreshed[0].MaxFavorablePrice)

	_, refreshed = e.Evaluate(flatPanel("ASML", 125), []domain.Position{pos})
	assert.Equal(t, 125.0, *refreshed[0].MaxFavorablePrice)
}

func TestApplyIdempotent(t *testing.T) {
	e := testEngine(defaultConfig())
	positions := []domain.Position{
		openPosition("AAA", 100, 90, 10), // breakeven move at 110
		openPosition("BBB", 50, 45, 20),  // stop hit at 44
		openPosition("CCC", 30, 27, 5),   // no action at 30.5
	}
	panel := domain.Panel{}
	for k, v := range flatPanel("AAA", 110) {
		panel[k] = v
	}
	for k, v := range flatPanel("BBB", 44) {
		panel[k] = v
	}
	for k, v := range flatPanel("CCC", 30.5) {
		panel[k] = v
	}

	updates, refreshed := e.Evaluate(panel, positions)
	applied := Apply(refreshed, updates)
	again := Apply(applied, updates)
	assert.Equal(t, applied, again)

	byTicker := map[string]domain.Position{}
	for _, p := range applied {
		byTicker[p.Ticker] = p
	}
	assert.Equal(t, 100.0, byTicker["AAA"].StopPrice)
	assert.Equal(t, domain.PositionStatusOpen, byTicker["AAA"].Status)
	assert.Equal(t, domain.PositionStatusClosed, byTicker["BBB"].Status)
	require.NotNil(t, byTicker["BBB"].ExitPrice)
	assert.Equal(t, 44.0, *byTicker["BBB"].ExitPrice)
	assert.Equal(t, 27.0, byTicker["CCC"].StopPrice)
}

func TestRepeatedCyclesNeverLowerStop(t *testing.T) {
	e := testEngine(defaultConfig())
	positions := []domain.Position{openPosition("AAA", 100, 90, 10)}

	lastStops := 0.0
	for _, price := range []float64{110, 130, 105, 102} {
		updates, refreshed := e.Evaluate(flatPanel("AAA", price), positions)
		positions = Apply(refreshed, updates)
		require.Len(t, positions, 1)
		assert.GreaterOrEqual(t, positions[0].StopPrice, lastStops,
			"stop retreated after price %v", price)
		lastStops = positions[0].StopPrice
	}
}
