package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeRiskBudgetBound(t *testing.T) {
	cfg := SizingConfig{
		AccountSize:    500,
		RiskPct:        0.01,
		KATR:           2.0,
		MaxPositionPct: 0.6,
	}

	plan := Size(30, 1.2, cfg)
	require.NotNil(t, plan)

	// Risk budget 5.00, per-share risk 2.40.
	assert.Equal(t, 2, plan.Shares)
	assert.InDelta(t, 27.6, plan.Stop, 1e-9)
	assert.InDelta(t, 60.0, plan.PositionValue, 1e-9)
	assert.LessOrEqual(t, plan.PositionValue, cfg.AccountSize*cfg.MaxPositionPct)
	assert.Less(t, plan.Stop, 30.0)
}

func TestSizeTooVolatile(t *testing.T) {
	cfg := SizingConfig{
		AccountSize:    500,
		RiskPct:        0.01,
		KATR:           2.0,
		MaxPositionPct: 0.6,
	}

	// Per-share risk 20.00 swallows the whole 5.00 budget before one share.
	assert.Nil(t, Size(30, 10, cfg))
}

func TestSizeCappedByPositionValue(t *testing.T) {
	cfg := SizingConfig{
		AccountSize:    10_000,
		RiskPct:        0.01,
		KATR:           2.0,
		MaxPositionPct: 0.25,
	}

	// Budget alone allows 50 shares; the 25% value cap trims it to 25.
	plan := Size(100, 1, cfg)
	require.NotNil(t, plan)
	assert.Equal(t, 25, plan.Shares)
	assert.InDelta(t, 2500.0, plan.PositionValue, 1e-9)
}

func TestSizeDegenerateInputs(t *testing.T) {
	cfg := SizingConfig{
		AccountSize:    10_000,
		RiskPct:        0.01,
		KATR:           2.0,
		MaxPositionPct: 0.25,
	}

	assert.Nil(t, Size(0, 1, cfg))
	assert.Nil(t, Size(-5, 1, cfg))
	assert.Nil(t, Size(100, 0, cfg))
}
