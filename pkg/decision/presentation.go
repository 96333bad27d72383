package decision

import (
	"fmt"
	"math"
	"strings"
)

// ConfidenceExplanation describes the risk implied by a confidence percentage.
func ConfidenceExplanation(confidence float64) string {
	risk := fmt.Sprintf("estimated %.0f%% risk of negative outcome", 100-confidence)
	switch {
	case confidence >= 80:
		return "Proceed with confidence - " + risk
	case confidence >= 65:
		return "Likely beneficial - " + risk
	case confidence >= 50:
		return "Mixed signals - " + risk
	case confidence >= 35:
		return "Risky proposition - " + risk
	default:
		return "High risk - " + risk
	}
}

type factorWeight struct {
	name   string
	weight float64
}

// ConfidenceFactorsText lists the factors that carry weight at the given
// preference, with each weight rounded to a whole percent.
func ConfidenceFactorsText(preference float64, withFailure bool) string {
	costWeight, throughputWeight := Weights(preference)

	candidates := []factorWeight{
		{FactorFinancialBenefit, BenefitWeight * costWeight},
		{FactorTimeBenefit, BenefitWeight * throughputWeight},
		{FactorFinancialROI, ROIWeight * costWeight},
		{FactorTimeROI, ROIWeight * throughputWeight},
		{FactorFinancialBreakEven, BreakEvenWeight * costWeight},
		{FactorTimeBreakEven, BreakEvenWeight * throughputWeight},
	}
	if withFailure {
		candidates = append(candidates, factorWeight{FactorFailureImpact, FailureWeight})
	}
	candidates = append(candidates, factorWeight{FactorSpeedGain, SpeedGainWeight})

	var factors []string
	for _, c := range candidates {
		w := math.Round(c.weight)
		if w > 0 {
			factors = append(factors, fmt.Sprintf("%s (%.0f%%)", c.name, w))
		}
	}

	return fmt.Sprintf("Confidence is based on %d factors: %s", len(factors), strings.Join(factors, ", "))
}

// ConfidenceMessage summarizes the verdict from the perspective of the
// preference dial.
func ConfidenceMessage(confidence float64, verdict Verdict, preference float64) string {
	var focus string
	switch ModeFor(preference) {
	case ModeCost:
		focus = "from a cost optimization perspective"
	case ModeThroughput:
		focus = "from a throughput optimization perspective"
	default:
		focus = "from a balanced perspective"
	}

	if verdict == Yes {
		return fmt.Sprintf("%.0f%% confident this optimization is beneficial %s", confidence, focus)
	}
	return fmt.Sprintf("%.0f%% confident this optimization is not worthwhile %s", confidence, focus)
}
