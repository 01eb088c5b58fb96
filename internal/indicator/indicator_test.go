package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkruijs/positionbot/internal/domain"
)

func candles(closes []float64, halfRange float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		out[i] = domain.Candle{Open: c, High: c + halfRange, Low: c - halfRange, Close: c}
	}
	return out
}

func TestSMA(t *testing.T) {
	cs := candles([]float64{1, 2, 3, 4, 5}, 0)

	sma, ok := SMA(cs, 5)
	require.True(t, ok)
	assert.InDelta(t, 3.0, sma, 1e-9)

	// Only the trailing window counts.
	sma, ok = SMA(cs, 2)
	require.True(t, ok)
	assert.InDelta(t, 4.5, sma, 1e-9)
}

func TestSMAInsufficientData(t *testing.T) {
	cs := candles([]float64{1, 2, 3}, 0)

	_, ok := SMA(cs, 4)
	assert.False(t, ok)
	_, ok = SMA(nil, 1)
	assert.False(t, ok)
	_, ok = SMA(cs, 0)
	assert.False(t, ok)
}

func TestATR(t *testing.T) {
	// Flat closes with a constant 2-point daily range: every true range is 2.
	cs := candles([]float64{100, 100, 100, 100}, 1)

	atr, ok := ATR(cs, 3)
	require.True(t, ok)
	assert.InDelta(t, 2.0, atr, 1e-9)
}

func TestATRUsesGaps(t *testing.T) {
	// A gap beyond the bar's own range dominates its true range.
	cs := []domain.Candle{
		{High: 101, Low: 99, Close: 100},
		{High: 111, Low: 109, Close: 110}, // gap up: |111-100| = 11
	}

	atr, ok := ATR(cs, 1)
	require.True(t, ok)
	assert.InDelta(t, 11.0, atr, 1e-9)
}

func TestATRNeedsWindowPlusOne(t *testing.T) {
	cs := candles([]float64{100, 100, 100}, 1)

	_, ok := ATR(cs, 3)
	assert.False(t, ok)
}

func TestATRPercent(t *testing.T) {
	cs := candles([]float64{100, 100, 100, 100}, 1)

	pct, ok := ATRPercent(cs, 3)
	require.True(t, ok)
	assert.InDelta(t, 2.0, pct, 1e-9)

	_, ok = ATRPercent(cs[:2], 3)
	assert.False(t, ok)
}
