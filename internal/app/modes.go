package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mkruijs/positionbot/internal/domain"
	"github.com/mkruijs/positionbot/internal/migrate"
	"github.com/mkruijs/positionbot/internal/reconcile"
	"github.com/mkruijs/positionbot/internal/report"
	"github.com/mkruijs/positionbot/internal/risk"
	"github.com/mkruijs/positionbot/internal/stops"
)

// ManageMode runs one stop-management cycle: evaluate every open position
// against the cached price panel, write the action report, then apply the
// decisions and persist the new snapshots.
func (a *App) ManageMode(ctx context.Context, deps *Dependencies) error {
	if deps.Panels == nil {
		return fmt.Errorf("app: manage mode requires the redis panel cache (redis.enabled)")
	}

	var (
		orderSnap domain.OrderSnapshot
		posSnap   domain.PositionSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orderSnap, err = deps.Orders.LoadOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		posSnap, err = deps.Positions.LoadPositions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("app: load snapshots: %w", err)
	}

	var open, closed []domain.Position
	for _, p := range posSnap.Positions {
		if p.IsOpen() {
			open = append(open, p)
		} else {
			closed = append(closed, p)
		}
	}

	tickers := make([]string, 0, len(open))
	for _, p := range open {
		tickers = append(tickers, p.Ticker)
	}
	panel, missing, err := deps.Panels.GetPanel(ctx, tickers)
	if err != nil {
		return fmt.Errorf("app: load panel: %w", err)
	}
	if len(missing) > 0 {
		a.logger.WarnContext(ctx, "tickers without cached prices", slog.Any("tickers", missing))
	}

	engine := stops.NewEngine(stops.Config{
		BreakevenAtR:     a.cfg.Stops.BreakevenAtR,
		TrailAfterR:      a.cfg.Stops.TrailAfterR,
		TrailATRMultiple: a.cfg.Stops.TrailATRMultiple,
		ATRWindow:        a.cfg.Stops.ATRWindow,
	}, a.logger)

	updates, refreshed := engine.Evaluate(panel, open)

	md := report.Markdown(updates)
	if err := os.WriteFile(a.cfg.Report.Path, []byte(md), 0o644); err != nil {
		return fmt.Errorf("app: write report %s: %w", a.cfg.Report.Path, err)
	}
	a.logger.InfoContext(ctx, "action report written", slog.String("path", a.cfg.Report.Path))

	a.archive(ctx, deps, "positions", posSnap)

	applied := stops.Apply(refreshed, updates)
	posSnap = domain.PositionSnapshot{
		AsOf:      today(),
		Positions: append(applied, closed...),
	}
	if err := deps.Positions.SavePositions(ctx, posSnap); err != nil {
		return fmt.Errorf("app: save positions: %w", err)
	}

	if orders, changed := syncStopOrders(orderSnap.Orders, updates); changed {
		a.archive(ctx, deps, "orders", orderSnap)
		orderSnap = domain.OrderSnapshot{AsOf: today(), Orders: orders}
		if err := deps.Orders.SaveOrders(ctx, orderSnap); err != nil {
			return fmt.Errorf("app: save orders: %w", err)
		}
	}

	a.logger.InfoContext(ctx, "manage cycle complete",
		slog.Int("evaluated", len(updates)),
		slog.Int("open", len(open)),
	)
	return nil
}

// BootstrapMode rebuilds both snapshots from the broker transaction export
// and the ISIN map, archiving whatever they held before.
func (a *App) BootstrapMode(ctx context.Context, deps *Dependencies) error {
	isinMap, err := loadISINMap(a.cfg.Bootstrap.ISINMapPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("app: isin map %s: %w", a.cfg.Bootstrap.ISINMapPath, domain.ErrNotFound)
		}
		return fmt.Errorf("app: load isin map: %w", err)
	}

	f, err := os.Open(a.cfg.Bootstrap.TransactionsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("app: export %s: %w", a.cfg.Bootstrap.TransactionsPath, domain.ErrNotFound)
		}
		return fmt.Errorf("app: open export %s: %w", a.cfg.Bootstrap.TransactionsPath, err)
	}
	defer f.Close()

	res, err := reconcile.BootstrapExport(f, []rune(a.cfg.Bootstrap.CSVSeparator)[0], isinMap, reconcile.Config{
		DefaultStopPct: a.cfg.Bootstrap.DefaultStopPct,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("app: bootstrap: %w", err)
	}

	if err := validateSnapshot(res.Orders, res.Positions); err != nil {
		return fmt.Errorf("app: bootstrap produced invalid snapshot: %w", err)
	}

	if prev, err := deps.Orders.LoadOrders(ctx); err == nil && len(prev.Orders) > 0 {
		a.archive(ctx, deps, "orders", prev)
	}
	if prev, err := deps.Positions.LoadPositions(ctx); err == nil && len(prev.Positions) > 0 {
		a.archive(ctx, deps, "positions", prev)
	}

	if err := deps.Orders.SaveOrders(ctx, domain.OrderSnapshot{AsOf: today(), Orders: res.Orders}); err != nil {
		return fmt.Errorf("app: save orders: %w", err)
	}
	if err := deps.Positions.SavePositions(ctx, domain.PositionSnapshot{AsOf: today(), Positions: res.Positions}); err != nil {
		return fmt.Errorf("app: save positions: %w", err)
	}

	a.logger.InfoContext(ctx, "bootstrap saved",
		slog.Int("orders", res.OrdersGenerated),
		slog.Int("positions", res.PositionsGenerated),
		slog.Int("open", res.OpenPositions),
		slog.Int("closed", res.ClosedPositions),
		slog.Any("unresolved_isins", res.UnresolvedISINs),
	)
	return nil
}

// MigrateMode repairs order/position links in place and persists the result
// only when something actually changed.
func (a *App) MigrateMode(ctx context.Context, deps *Dependencies) error {
	var (
		orderSnap domain.OrderSnapshot
		posSnap   domain.PositionSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orderSnap, err = deps.Orders.LoadOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		posSnap, err = deps.Positions.LoadPositions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("app: load snapshots: %w", err)
	}

	orders, positions, mutated := migrate.Link(orderSnap.Orders, posSnap.Positions)
	if !mutated {
		a.logger.InfoContext(ctx, "migration: nothing to do")
		return nil
	}

	a.archive(ctx, deps, "orders", orderSnap)
	a.archive(ctx, deps, "positions", posSnap)

	if err := deps.Orders.SaveOrders(ctx, domain.OrderSnapshot{AsOf: today(), Orders: orders}); err != nil {
		return fmt.Errorf("app: save orders: %w", err)
	}
	if err := deps.Positions.SavePositions(ctx, domain.PositionSnapshot{AsOf: today(), Positions: positions}); err != nil {
		return fmt.Errorf("app: save positions: %w", err)
	}

	a.logger.InfoContext(ctx, "migration saved",
		slog.Int("orders", len(orders)),
		slog.Int("positions", len(positions)),
	)
	return nil
}

// proposal is the propose mode's stdout document.
type proposal struct {
	Ticker           string               `json:"ticker"`
	Signal           string               `json:"signal,omitempty"`
	Viable           bool                 `json:"viable"`
	Plan             *risk.SizePlan       `json:"plan,omitempty"`
	RegimeMultiplier float64              `json:"regime_multiplier"`
	Regime           risk.RegimeMeta      `json:"regime"`
	Recommendation   *risk.Recommendation `json:"recommendation,omitempty"`
}

// ProposeMode sizes a prospective trade under the current regime and runs it
// through the recommendation gate, printing the structured verdict on stdout.
func (a *App) ProposeMode(ctx context.Context, deps *Dependencies, req ProposeRequest) error {
	regimeCfg := risk.RegimeConfig{
		Enabled:            a.cfg.Regime.Enabled,
		SMAWindow:          a.cfg.Regime.SMAWindow,
		TrendMultiplier:    a.cfg.Regime.TrendMultiplier,
		ATRWindow:          a.cfg.Regime.ATRWindow,
		VolATRPctThreshold: a.cfg.Regime.VolATRPctThreshold,
		VolMultiplier:      a.cfg.Regime.VolMultiplier,
	}

	var benchCandles []domain.Candle
	if regimeCfg.Enabled {
		if deps.Panels == nil {
			return fmt.Errorf("app: regime filter requires the redis panel cache (redis.enabled)")
		}
		panel, missing, err := deps.Panels.GetPanel(ctx, []string{a.cfg.Regime.Benchmark})
		if err != nil {
			return fmt.Errorf("app: load benchmark candles: %w", err)
		}
		if len(missing) > 0 {
			a.logger.WarnContext(ctx, "benchmark has no cached prices, regime filters will not fire",
				slog.String("benchmark", a.cfg.Regime.Benchmark))
		}
		benchCandles = panel[a.cfg.Regime.Benchmark]
	}

	multiplier, meta := risk.RegimeMultiplier(benchCandles, a.cfg.Regime.Benchmark, regimeCfg)

	sizingCfg := risk.SizingConfig{
		AccountSize:    a.cfg.Sizing.AccountSize,
		RiskPct:        a.cfg.Sizing.RiskPct * multiplier,
		KATR:           a.cfg.Sizing.KATR,
		MaxPositionPct: a.cfg.Sizing.MaxPositionPct,
	}
	plan := risk.Size(req.Entry, req.ATR, sizingCfg)

	out := proposal{
		Ticker:           req.Ticker,
		Signal:           req.Signal,
		RegimeMultiplier: multiplier,
		Regime:           meta,
	}
	if plan != nil {
		out.Viable = true
		out.Plan = plan

		in := risk.GateInput{
			Signal:        req.Signal,
			Entry:         req.Entry,
			Stop:          &plan.Stop,
			Target:        req.Target,
			Shares:        plan.Shares,
			AccountSize:   a.cfg.Sizing.AccountSize,
			RiskPctTarget: sizingCfg.RiskPct,
			RRTarget:      a.cfg.Gate.RRTarget,
			CommissionPct: a.cfg.Gate.CommissionPct,
			SlippageBps:   a.cfg.Gate.SlippageBps,
		}
		if a.cfg.Gate.MinRR > 0 {
			in.MinRR = &a.cfg.Gate.MinRR
		}
		if a.cfg.Gate.MaxFeeRiskPct > 0 {
			in.MaxFeeRiskPct = &a.cfg.Gate.MaxFeeRiskPct
		}
		rec := risk.EvaluateTrade(in)
		out.Recommendation = &rec
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("app: encode proposal: %w", err)
	}
	return nil
}

// archive uploads the given snapshot copy when an archiver is configured.
// Archival is best effort: a failed upload is logged, not fatal, so it never
// blocks stop protection.
func (a *App) archive(ctx context.Context, deps *Dependencies, name string, doc any) {
	if deps.Archiver == nil {
		return
	}
	if err := deps.Archiver.ArchiveSnapshot(ctx, name, doc); err != nil {
		a.logger.WarnContext(ctx, "snapshot archival failed",
			slog.String("name", name), slog.String("error", err.Error()))
	}
}

// syncStopOrders carries applied stop decisions over to the pending stop
// orders: a raised stop updates the order's stop price, a closed position
// cancels its now-pointless stop order. Locked orders are never touched.
func syncStopOrders(orders []domain.Order, updates []domain.PositionUpdate) ([]domain.Order, bool) {
	byTicker := make(map[string]domain.PositionUpdate, len(updates))
	for _, u := range updates {
		byTicker[u.Ticker] = u
	}

	out := make([]domain.Order, len(orders))
	copy(out, orders)

	changed := false
	for i := range out {
		o := &out[i]
		if o.OrderKind != domain.OrderKindStop || o.Status != domain.OrderStatusPending || o.Locked {
			continue
		}
		upd, ok := byTicker[o.Ticker]
		if !ok {
			continue
		}
		switch upd.Action {
		case domain.ActionMoveStopUp:
			if o.StopPrice == nil || *o.StopPrice != upd.StopSuggested {
				o.StopPrice = domain.Float64Ptr(upd.StopSuggested)
				changed = true
			}
		case domain.ActionCloseStopHit:
			o.Status = domain.OrderStatusCancelled
			changed = true
		}
	}
	return out, changed
}

// validateSnapshot checks every reconstructed record before it replaces the
// durable snapshot. Only freshly generated sets go through here; persisted
// snapshots may legitimately hold positions with the stop raised to entry,
// which the open-position invariant check would reject.
func validateSnapshot(orders []domain.Order, positions []domain.Position) error {
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	for _, p := range positions {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func loadISINMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func today() string {
	return time.Now().Format("2006-01-02")
}
