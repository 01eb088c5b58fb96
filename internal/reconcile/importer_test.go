package reconcile

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkruijs/positionbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBootstrapShareConservation(t *testing.T) {
	isinMap := map[string]string{"NL0010273215": "ASML"}
	txns := []Transaction{
		isinTrade(1, "NL0010273215", 2, 100),
		isinTrade(2, "NL0010273215", -2, 120),
		isinTrade(3, "NL0010273215", 1, 110),
	}

	res := Bootstrap(txns, isinMap, Config{DefaultStopPct: 0.08}, testLogger())

	require.Len(t, res.Positions, 2)
	assert.Equal(t, 1, res.ClosedPositions)
	assert.Equal(t, 1, res.OpenPositions)
	assert.Equal(t, 2, res.PositionsGenerated)

	closed := res.Positions[0]
	assert.Equal(t, domain.PositionStatusClosed, closed.Status)
	assert.Equal(t, 2, closed.Shares)
	assert.InDelta(t, 100.0, closed.EntryPrice, 1e-9)
	require.NotNil(t, closed.ExitPrice)
	assert.InDelta(t, 120.0, *closed.ExitPrice, 1e-9)

	open := res.Positions[1]
	assert.Equal(t, domain.PositionStatusOpen, open.Status)
	assert.Equal(t, 1, open.Shares)
	assert.InDelta(t, 110.0, open.EntryPrice, 1e-9)
	assert.InDelta(t, 110*(1-0.08), open.StopPrice, 1e-9)
	require.NotNil(t, open.InitialRisk)
	assert.InDelta(t, 110*0.08, *open.InitialRisk, 1e-9)

	// Shares in positions equal net shares in the ledger, split across trips.
	total := 0
	for _, p := range res.Positions {
		total += p.Shares
	}
	assert.Equal(t, 3, total)
}

func TestBootstrapOrdersIncludeSynthesizedStop(t *testing.T) {
	isinMap := map[string]string{"NL0010273215": "ASML"}
	txns := []Transaction{
		isinTrade(1, "NL0010273215", 2, 100),
		isinTrade(2, "NL0010273215", -2, 120),
		isinTrade(3, "NL0010273215", 1, 110),
	}

	res := Bootstrap(txns, isinMap, Config{DefaultStopPct: 0.08}, testLogger())

	// Three ledger rows plus one protective stop for the open position.
	assert.Equal(t, 4, res.OrdersGenerated)
	require.Len(t, res.Orders, 4)

	var stops []domain.Order
	for _, o := range res.Orders {
		if o.OrderKind == domain.OrderKindStop {
			stops = append(stops, o)
		}
	}
	require.Len(t, stops, 1)
	assert.Equal(t, domain.OrderStatusPending, stops[0].Status)
	assert.Equal(t, 1, stops[0].Quantity)
	require.NotNil(t, stops[0].StopPrice)
	assert.InDelta(t, 110*(1-0.08), *stops[0].StopPrice, 1e-9)

	// Every position is linked to the order that opened it.
	for _, p := range res.Positions {
		assert.NotEmpty(t, p.PositionID)
		assert.NotEmpty(t, p.SourceOrderID)
	}
}

func TestBootstrapUnresolvedISINs(t *testing.T) {
	isinMap := map[string]string{"NL0010273215": "ASML"}
	txns := []Transaction{
		isinTrade(1, "NL0010273215", 2, 100),
		isinTrade(1, "US0000000001", 3, 50),
		isinTrade(2, "US0000000001", 1, 52),
		isinTrade(2, "DE0000000002", 4, 20),
	}

	res := Bootstrap(txns, isinMap, Config{}, testLogger())

	assert.Equal(t, []string{"DE0000000002", "US0000000001"}, res.UnresolvedISINs)
	// Excluded rows produce neither orders nor positions.
	assert.Equal(t, 1, res.OrdersGenerated)
	require.Len(t, res.Positions, 1)
	assert.Equal(t, "ASML", res.Positions[0].Ticker)
}

func TestBootstrapNoDefaultStopLeavesStopUnset(t *testing.T) {
	isinMap := map[string]string{"NL0010273215": "ASML"}
	txns := []Transaction{isinTrade(1, "NL0010273215", 2, 100)}

	res := Bootstrap(txns, isinMap, Config{}, testLogger())

	require.Len(t, res.Positions, 1)
	assert.Zero(t, res.Positions[0].StopPrice)
	assert.Nil(t, res.Positions[0].InitialRisk)
	assert.NotEmpty(t, res.Positions[0].SourceOrderID)

	// No stop price, no synthesized stop order: just the buy itself.
	assert.Equal(t, 1, res.OrdersGenerated)
}

func TestBootstrapExportEndToEnd(t *testing.T) {
	raw := exportHeader +
		`03-01-2026,10:30,ASML HOLDING,NL0010273215,EAM,XAMS,2,"612,50","-1.225,00","-1.225,00",,"-2,00","-1.227,00",ref-1` + "\n" +
		`bad-date,10:30,BROKEN,XX0000000001,EAM,XAMS,1,"10,00","-10,00","-10,00",,"0,00","-10,00",ref-x` + "\n"

	res, err := BootstrapExport(strings.NewReader(raw),
		',', map[string]string{"NL0010273215": "ASML"}, Config{DefaultStopPct: 0.08}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 1, res.OpenPositions)
	// The malformed row's ISIN is reported alongside unmapped ones.
	assert.Equal(t, []string{"XX0000000001"}, res.UnresolvedISINs)
}

func TestBootstrapExportEmptyInput(t *testing.T) {
	res, err := BootstrapExport(strings.NewReader(exportHeader), ',', nil, Config{}, testLogger())
	require.NoError(t, err)
	assert.Zero(t, res.OrdersGenerated)
	assert.Zero(t, res.PositionsGenerated)
	assert.Empty(t, res.UnresolvedISINs)
}

func isinTrade(day int, isin string, qty int, price float64) Transaction {
	txn := trade(day, qty, price)
	txn.ISIN = isin
	return txn
}
