package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkruijs/positionbot/internal/domain"
)

func TestBlendWeightedEntry(t *testing.T) {
	pos := domain.Position{
		Ticker:     "ASML",
		Status:     domain.PositionStatusOpen,
		EntryPrice: 100,
		StopPrice:  90,
		Shares:     10,
	}

	blended, err := Blend(pos, 110, 5)
	require.NoError(t, err)

	// (100*10 + 110*5) / 15
	assert.InDelta(t, 103.3333, blended.EntryPrice, 1e-4)
	assert.Equal(t, 15, blended.Shares)
	assert.Equal(t, 90.0, blended.StopPrice)
	require.NotNil(t, blended.InitialRisk)
	assert.InDelta(t, 13.3333, *blended.InitialRisk, 1e-4)
}

func TestBlendRejectsEntryAtOrBelowStop(t *testing.T) {
	pos := domain.Position{
		Ticker:     "ASML",
		Status:     domain.PositionStatusOpen,
		EntryPrice: 100,
		StopPrice:  90,
		Shares:     10,
	}

	// (100*10 + 80*10) / 20 = 90, exactly at the stop.
	_, err := Blend(pos, 80, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBlendRejectsClosedPosition(t *testing.T) {
	pos := domain.Position{
		Ticker:     "ASML",
		Status:     domain.PositionStatusClosed,
		EntryPrice: 100,
		StopPrice:  90,
		Shares:     10,
	}

	_, err := Blend(pos, 110, 5)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBlendRejectsLockedPosition(t *testing.T) {
	pos := domain.Position{
		Ticker:     "ASML",
		Status:     domain.PositionStatusOpen,
		EntryPrice: 100,
		StopPrice:  90,
		Shares:     10,
		Locked:     true,
	}

	_, err := Blend(pos, 110, 5)
	assert.ErrorIs(t, err, domain.ErrLocked)
}

func TestBlendRejectsNonPositiveInputs(t *testing.T) {
	pos := domain.Position{
		Ticker:     "ASML",
		Status:     domain.PositionStatusOpen,
		EntryPrice: 100,
		StopPrice:  90,
		Shares:     10,
	}

	_, err := Blend(pos, 110, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = Blend(pos, 0, 5)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBlendRaisesHighWaterMark(t *testing.T) {
	pos := domain.Position{
		Ticker:            "ASML",
		Status:            domain.PositionStatusOpen,
		EntryPrice:        100,
		StopPrice:         90,
		Shares:            10,
		MaxFavorablePrice: domain.Float64Ptr(105),
	}

	blended, err := Blend(pos, 110, 5)
	require.NoError(t, err)
	require.NotNil(t, blended.MaxFavorablePrice)
	assert.Equal(t, 110.0, *blended.MaxFavorablePrice)

	// Adding below the mark leaves it alone.
	blended, err = Blend(pos, 104, 5)
	require.NoError(t, err)
	assert.Equal(t, 105.0, *blended.MaxFavorablePrice)
}
