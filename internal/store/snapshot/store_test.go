package snapshot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkruijs/positionbot/internal/domain"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s, dir
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	orders := domain.OrderSnapshot{
		AsOf: "2026-08-25",
		Orders: []domain.Order{
			{OrderID: "ord-1", Ticker: "ASML", Status: domain.OrderStatusFilled, Quantity: 10},
		},
	}
	require.NoError(t, s.SaveOrders(ctx, orders))

	positions := domain.PositionSnapshot{
		AsOf: "2026-08-25",
		Positions: []domain.Position{
			{
				PositionID: "pos-1",
				Ticker:     "ASML",
				Status:     domain.PositionStatusOpen,
				EntryPrice: 100,
				StopPrice:  90,
				Shares:     10,
				ExitPrice:  domain.Float64Ptr(0), // pointer fields survive the trip
			},
		},
	}
	require.NoError(t, s.SavePositions(ctx, positions))

	gotOrders, err := s.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, orders, gotOrders)

	gotPositions, err := s.LoadPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, positions, gotPositions)
}

func TestLoadMissingFilesAsEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	orders, err := s.LoadOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders.Orders)
	assert.Empty(t, orders.AsOf)

	positions, err := s.LoadPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions.Positions)
}

func TestLoadCorruptFileAsEmpty(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "positions.json"), []byte("{not json"), 0o644))

	positions, err := s.LoadPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions.Positions)

	// The next save replaces the corrupt document.
	require.NoError(t, s.SavePositions(ctx, domain.PositionSnapshot{AsOf: "2026-08-25"}))
	positions, err = s.LoadPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-25", positions.AsOf)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveOrders(ctx, domain.OrderSnapshot{AsOf: "2026-08-25"}))
	require.NoError(t, s.SaveOrders(ctx, domain.OrderSnapshot{AsOf: "2026-08-26"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "orders.json", entries[0].Name())
}
