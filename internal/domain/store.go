package domain

import "context"

// OrderSnapshot is the durable document holding all known orders as of a date.
type OrderSnapshot struct {
	AsOf   string  `json:"asof"`
	Orders []Order `json:"orders"`
}

// PositionSnapshot is the durable document holding all known positions as of
// a date.
type PositionSnapshot struct {
	AsOf      string     `json:"asof"`
	Positions []Position `json:"positions"`
}

// OrderStore loads and replaces the order snapshot. Save must replace the
// snapshot atomically; a crash mid-save never leaves a partial document.
type OrderStore interface {
	LoadOrders(ctx context.Context) (OrderSnapshot, error)
	SaveOrders(ctx context.Context, snap OrderSnapshot) error
}

// PositionStore loads and replaces the position snapshot with the same
// atomicity contract as OrderStore.
type PositionStore interface {
	LoadPositions(ctx context.Context) (PositionSnapshot, error)
	SavePositions(ctx context.Context, snap PositionSnapshot) error
}

// PanelCache provides per-ticker daily candle history. GetPanel reports
// tickers without cached history in the missing slice instead of failing the
// whole lookup.
type PanelCache interface {
	SetCandles(ctx context.Context, ticker string, candles []Candle) error
	GetPanel(ctx context.Context, tickers []string) (Panel, []string, error)
}

// SnapshotArchiver stores a dated copy of a snapshot document before it is
// overwritten.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, name string, doc any) error
}
