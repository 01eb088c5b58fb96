package risk

import (
	"fmt"

	"github.com/mkruijs/positionbot/internal/domain"
	"github.com/mkruijs/positionbot/internal/indicator"
)

// RegimeConfig controls the benchmark-driven risk multiplier. The trend and
// volatility filters are independent and multiplicative.
type RegimeConfig struct {
	Enabled            bool
	SMAWindow          int
	TrendMultiplier    float64
	ATRWindow          int
	VolATRPctThreshold float64
	VolMultiplier      float64
}

// RegimeMeta records which filters fired and the values they saw.
type RegimeMeta struct {
	Enabled   bool     `json:"enabled"`
	Benchmark string   `json:"benchmark,omitempty"`
	Close     float64  `json:"close,omitempty"`
	SMA       *float64 `json:"sma,omitempty"`
	ATRPct    *float64 `json:"atr_pct,omitempty"`
	Reasons   []string `json:"reasons,omitempty"`
}

// RegimeMultiplier derives a scalar on the risk budget from the benchmark's
// trend and volatility state. With the regime filter disabled it returns 1.0.
// Both filters, one, or neither may fire; their multipliers compound.
func RegimeMultiplier(candles []domain.Candle, benchmark string, cfg RegimeConfig) (float64, RegimeMeta) {
	if !cfg.Enabled {
		return 1.0, RegimeMeta{Enabled: false}
	}

	meta := RegimeMeta{Enabled: true, Benchmark: benchmark}
	multiplier := 1.0

	if len(candles) > 0 {
		meta.Close = candles[len(candles)-1].Close
	}

	if sma, ok := indicator.SMA(candles, cfg.SMAWindow); ok {
		meta.SMA = domain.Float64Ptr(sma)
		if meta.Close < sma {
			multiplier *= cfg.TrendMultiplier
			meta.Reasons = append(meta.Reasons,
				fmt.Sprintf("%s close %.2f below %d-day SMA %.2f", benchmark, meta.Close, cfg.SMAWindow, sma))
		}
	}

	if atrPct, ok := indicator.ATRPercent(candles, cfg.ATRWindow); ok {
		meta.ATRPct = domain.Float64Ptr(atrPct)
		if atrPct > cfg.VolATRPctThreshold {
			multiplier *= cfg.VolMultiplier
			meta.Reasons = append(meta.Reasons,
				fmt.Sprintf("%s ATR%% %.2f above threshold %.2f", benchmark, atrPct, cfg.VolATRPctThreshold))
		}
	}

	return multiplier, meta
}
