package reconcile

import (
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/mkruijs/positionbot/internal/domain"
	"github.com/mkruijs/positionbot/internal/migrate"
)

// Config holds the bootstrap defaults for fields the export cannot provide.
type Config struct {
	// DefaultStopPct places the stop of a reconstructed open position this
	// fraction below its weighted entry price. Zero leaves the stop unset for
	// the operator to fill in.
	DefaultStopPct float64
}

// Result is the outcome of one bootstrap run. Unresolved ISINs are reported,
// never fatal: a batch reconciliation always completes.
type Result struct {
	Orders             []domain.Order    `json:"orders"`
	Positions          []domain.Position `json:"positions"`
	OrdersGenerated    int               `json:"orders_generated"`
	PositionsGenerated int               `json:"positions_generated"`
	OpenPositions      int               `json:"open_positions"`
	ClosedPositions    int               `json:"closed_positions"`
	UnresolvedISINs    []string          `json:"unresolved_isins"`
}

// Bootstrap rebuilds a consistent order/position set from raw broker
// transactions. Transactions whose ISIN is missing from isinToTicker are
// excluded and reported; the rest are grouped per ticker, replayed FIFO, and
// turned into filled orders plus one position per round trip or residual open
// lot. A final migration pass links orders to positions and synthesizes the
// protective stop orders, so the counts include synthesized stops.
func Bootstrap(txns []Transaction, isinToTicker map[string]string, cfg Config, logger *slog.Logger) Result {
	logger = logger.With(slog.String("component", "reconcile"))

	unresolved := make(map[string]struct{})
	groups := make(map[string][]Transaction)
	for _, txn := range txns {
		ticker, ok := isinToTicker[txn.ISIN]
		if !ok {
			unresolved[txn.ISIN] = struct{}{}
			continue
		}
		if txn.Quantity == 0 {
			continue
		}
		groups[ticker] = append(groups[ticker], txn)
	}

	tickers := make([]string, 0, len(groups))
	for t := range groups {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var (
		orders    []domain.Order
		positions []domain.Position
	)
	for _, ticker := range tickers {
		group := groups[ticker]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})

		for _, txn := range group {
			orders = append(orders, orderFromTransaction(ticker, txn))
		}

		trips, residual := matchFIFO(group)
		for _, trip := range trips {
			positions = append(positions, domain.Position{
				Ticker:     ticker,
				Status:     domain.PositionStatusClosed,
				EntryDate:  trip.entryDate,
				EntryPrice: trip.entryPrice,
				Shares:     trip.shares,
				ExitPrice:  domain.Float64Ptr(trip.exitPrice),
				Notes:      "reconstructed from broker export",
			})
		}
		if residual != nil {
			pos := domain.Position{
				Ticker:     ticker,
				Status:     domain.PositionStatusOpen,
				EntryDate:  residual.entryDate,
				EntryPrice: residual.entryPrice,
				Shares:     residual.shares,
				Notes:      "reconstructed from broker export",
			}
			if cfg.DefaultStopPct > 0 {
				pos.StopPrice = residual.entryPrice * (1 - cfg.DefaultStopPct)
				pos.InitialRisk = domain.Float64Ptr(residual.entryPrice - pos.StopPrice)
			}
			positions = append(positions, pos)
		}
	}

	orders, positions, _ = migrate.Link(orders, positions)

	res := Result{
		Orders:             orders,
		Positions:          positions,
		OrdersGenerated:    len(orders),
		PositionsGenerated: len(positions),
		UnresolvedISINs:    sortedKeys(unresolved),
	}
	for _, p := range positions {
		if p.IsOpen() {
			res.OpenPositions++
		} else {
			res.ClosedPositions++
		}
	}

	logger.Info("bootstrap complete",
		slog.Int("orders", res.OrdersGenerated),
		slog.Int("positions", res.PositionsGenerated),
		slog.Int("open", res.OpenPositions),
		slog.Int("closed", res.ClosedPositions),
		slog.Int("unresolved_isins", len(res.UnresolvedISINs)),
	)
	return res
}

// BootstrapExport parses a raw export stream and runs Bootstrap over it.
// ISINs of rows that failed to parse join the unresolved accounting, so one
// malformed row never fails the batch.
func BootstrapExport(r io.Reader, sep rune, isinToTicker map[string]string, cfg Config, logger *slog.Logger) (Result, error) {
	txns, skipped, err := ParseTransactions(r, sep)
	if err != nil {
		return Result{}, err
	}
	res := Bootstrap(txns, isinToTicker, cfg, logger)

	if len(skipped) > 0 {
		merged := make(map[string]struct{}, len(res.UnresolvedISINs)+len(skipped))
		for _, isin := range res.UnresolvedISINs {
			merged[isin] = struct{}{}
		}
		for _, isin := range skipped {
			merged[isin] = struct{}{}
		}
		res.UnresolvedISINs = sortedKeys(merged)
	}
	return res, nil
}

func orderFromTransaction(ticker string, txn Transaction) domain.Order {
	id := txn.OrderRef
	if id == "" {
		id = uuid.NewString()
	}
	ord := domain.Order{
		OrderID:    id,
		Ticker:     ticker,
		Status:     domain.OrderStatusFilled,
		OrderDate:  txn.Date,
		FilledDate: txn.Date,
	}
	if txn.Quantity > 0 {
		ord.OrderType = "buy"
		ord.OrderKind = domain.OrderKindEntry
		ord.Quantity = txn.Quantity
		ord.EntryPrice = domain.Float64Ptr(txn.Price)
	} else {
		ord.OrderType = "sell"
		ord.Quantity = -txn.Quantity
		ord.LimitPrice = domain.Float64Ptr(txn.Price)
	}
	return ord
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
