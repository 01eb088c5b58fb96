// Package risk sizes prospective trades and gates them against the account's
// risk rules: the position sizing calculator, the benchmark regime
// multiplier, and the recommendation gate.
package risk

import "math"

// SizingConfig holds the account-level risk settings. Percentages are
// fractions (0.01 = 1%).
type SizingConfig struct {
	AccountSize    float64
	RiskPct        float64
	KATR           float64
	MaxPositionPct float64
}

// SizePlan is a viable share count and stop for a new trade.
type SizePlan struct {
	Shares        int     `json:"shares"`
	Stop          float64 `json:"stop"`
	PositionValue float64 `json:"position_value"`
}

// Size proposes shares and a stop for a new position at the given entry
// price and volatility. The per-share risk is KATR ATRs; the share count
// spends at most RiskPct of the account on that risk, then is capped so the
// position value stays within MaxPositionPct of the account. It returns nil
// when no viable plan exists, i.e. the asset is too volatile for the risk
// budget.
func Size(entry, atr float64, cfg SizingConfig) *SizePlan {
	if entry <= 0 {
		return nil
	}
	perShareRisk := cfg.KATR * atr
	if perShareRisk <= 0 {
		return nil
	}

	riskBudget := cfg.AccountSize * cfg.RiskPct
	shares := int(math.Floor(riskBudget / perShareRisk))

	capShares := int(math.Floor(cfg.AccountSize * cfg.MaxPositionPct / entry))
	if shares > capShares {
		shares = capShares
	}
	if shares < 1 {
		return nil
	}

	return &SizePlan{
		Shares:        shares,
		Stop:          entry - perShareRisk,
		PositionValue: float64(shares) * entry,
	}
}
