package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mkruijs/positionbot/internal/domain"
)

// PanelCache implements domain.PanelCache using Redis. Each ticker's daily
// candle history is stored as a JSON array under "ohlc:{ticker}"; a price
// collaborator populates the keys, this process only reads and refreshes.
type PanelCache struct {
	rdb *redis.Client
}

// NewPanelCache creates a PanelCache backed by the given Client.
func NewPanelCache(c *Client) *PanelCache {
	return &PanelCache{rdb: c.Underlying()}
}

func panelKey(ticker string) string {
	return "ohlc:" + ticker
}

// SetCandles stores the full candle history for one ticker, replacing any
// previous value.
func (pc *PanelCache) SetCandles(ctx context.Context, ticker string, candles []domain.Candle) error {
	data, err := json.Marshal(candles)
	if err != nil {
		return fmt.Errorf("redis: marshal candles %s: %w", ticker, err)
	}
	if err := pc.rdb.Set(ctx, panelKey(ticker), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set candles %s: %w", ticker, err)
	}
	return nil
}

// GetPanel collects the candle history for many tickers with one pipeline.
// Tickers without a cached history (or with an undecodable one) end up in
// the missing slice rather than failing the lookup; the stop engine treats
// them as "no price data".
func (pc *PanelCache) GetPanel(ctx context.Context, tickers []string) (domain.Panel, []string, error) {
	panel := make(domain.Panel, len(tickers))
	if len(tickers) == 0 {
		return panel, nil, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(tickers))
	for _, t := range tickers {
		cmds[t] = pipe.Get(ctx, panelKey(t))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, fmt.Errorf("redis: get panel pipeline: %w", err)
	}

	var missing []string
	for _, t := range tickers {
		data, err := cmds[t].Bytes()
		if err != nil {
			missing = append(missing, t)
			continue
		}
		var candles []domain.Candle
		if err := json.Unmarshal(data, &candles); err != nil || len(candles) == 0 {
			missing = append(missing, t)
			continue
		}
		panel[t] = candles
	}
	return panel, missing, nil
}

// Compile-time interface check.
var _ domain.PanelCache = (*PanelCache)(nil)
