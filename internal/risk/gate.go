package risk

import "fmt"

// Verdicts of the recommendation gate.
const (
	VerdictRecommended    = "RECOMMENDED"
	VerdictNotRecommended = "NOT_RECOMMENDED"
)

// Reason codes for failed gates.
const (
	ReasonStopMissing = "STOP_MISSING"
	ReasonRRTooLow    = "RR_TOO_LOW"
	ReasonFeesTooHigh = "FEES_TOO_HIGH"
)

// defaultMaxFeeRiskPct caps round-trip fee drag at 10% of the dollar risk
// when the caller does not override it.
const defaultMaxFeeRiskPct = 0.10

// GateInput describes the prospective trade under evaluation. Percentages are
// fractions; slippage is in basis points. Stop, Target, MinRR and
// MaxFeeRiskPct are optional.
type GateInput struct {
	Signal        string
	Entry         float64
	Stop          *float64
	Target        *float64
	Shares        int
	AccountSize   float64
	RiskPctTarget float64
	RRTarget      float64
	CommissionPct float64
	SlippageBps   float64
	MinRR         *float64
	MaxFeeRiskPct *float64
}

// Check is one gate's outcome. Code is empty while a gate passes.
type Check struct {
	Name    string `json:"name"`
	Code    string `json:"code,omitempty"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Recommendation is the structured verdict of the gate. Gate failures are
// business data, not errors: the checklist always covers every gate and
// ReasonsDetailed repeats just the failing ones.
type Recommendation struct {
	Verdict         string  `json:"verdict"`
	Risk            float64 `json:"risk"`
	Checklist       []Check `json:"checklist"`
	ReasonsDetailed []Check `json:"reasons_detailed,omitempty"`
}

// EvaluateTrade runs every gate over the prospective trade and returns the
// combined verdict. Gates are independent and never short-circuit, so a trade
// missing its stop still reports its fee drag problem too.
func EvaluateTrade(in GateInput) Recommendation {
	var (
		riskPerShare float64
		riskAmount   float64
	)
	if in.Stop != nil {
		riskPerShare = in.Entry - *in.Stop
		riskAmount = riskPerShare * float64(in.Shares)
	}

	checks := []Check{
		checkStop(in),
		checkRewardRisk(in, riskPerShare),
		checkFees(in, riskAmount),
	}

	rec := Recommendation{
		Verdict:   VerdictRecommended,
		Risk:      riskAmount,
		Checklist: checks,
	}
	for _, c := range checks {
		if !c.Passed {
			rec.Verdict = VerdictNotRecommended
			rec.ReasonsDetailed = append(rec.ReasonsDetailed, c)
		}
	}
	return rec
}

func checkStop(in GateInput) Check {
	if in.Stop == nil {
		return Check{
			Name:    "stop",
			Code:    ReasonStopMissing,
			Message: "no stop price defined for the trade",
		}
	}
	return Check{Name: "stop", Passed: true, Message: fmt.Sprintf("stop at %.2f", *in.Stop)}
}

func checkRewardRisk(in GateInput, riskPerShare float64) Check {
	minRR := in.RRTarget
	if in.MinRR != nil {
		minRR = *in.MinRR
	}

	if in.Stop == nil || riskPerShare <= 0 {
		return Check{
			Name:    "reward_risk",
			Code:    ReasonRRTooLow,
			Message: "risk per share undefined, cannot establish reward:risk",
		}
	}

	// Reward defaults to the configured R target unless the signal carries
	// an explicit price target.
	rr := in.RRTarget
	if in.Target != nil {
		rr = (*in.Target - in.Entry) / riskPerShare
	}

	if rr < minRR {
		return Check{
			Name:    "reward_risk",
			Code:    ReasonRRTooLow,
			Message: fmt.Sprintf("reward:risk %.2f below minimum %.2f", rr, minRR),
		}
	}
	return Check{Name: "reward_risk", Passed: true, Message: fmt.Sprintf("reward:risk %.2f", rr)}
}

func checkFees(in GateInput, riskAmount float64) Check {
	maxFeeRiskPct := defaultMaxFeeRiskPct
	if in.MaxFeeRiskPct != nil {
		maxFeeRiskPct = *in.MaxFeeRiskPct
	}

	if riskAmount <= 0 {
		return Check{
			Name:    "fees",
			Code:    ReasonFeesTooHigh,
			Message: "dollar risk undefined, cannot bound fee drag",
		}
	}

	positionValue := in.Entry * float64(in.Shares)
	roundTripDrag := (in.CommissionPct*2 + in.SlippageBps/10_000*2) * positionValue
	feeRisk := roundTripDrag / riskAmount

	if feeRisk > maxFeeRiskPct {
		return Check{
			Name: "fees",
			Code: ReasonFeesTooHigh,
			Message: fmt.Sprintf("round-trip costs %.2f are %.0f%% of the %.2f risk budget (max %.0f%%)",
				roundTripDrag, feeRisk*100, riskAmount, maxFeeRiskPct*100),
		}
	}
	return Check{Name: "fees", Passed: true, Message: fmt.Sprintf("round-trip costs %.2f within budget", roundTripDrag)}
}
