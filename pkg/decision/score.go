package decision

import (
	"fmt"
	"math"
)

// Mode labels how the preference dial splits weight between money and time.
type Mode string

// Scoring modes.
const (
	ModeCost       Mode = "Cost-optimized"
	ModeBalanced   Mode = "Balanced"
	ModeThroughput Mode = "Throughput-optimized"
)

// Nominal factor weights. Weighted factors are scaled by the cost or
// throughput share of the preference dial; the cost and throughput halves of
// each pair always sum to the nominal weight.
const (
	BenefitWeight     = 40.0
	ROIWeight         = 30.0
	BreakEvenWeight   = 20.0
	SpeedGainWeight   = 10.0 // not scaled by preference
	FailureWeight     = 15.0 // not scaled by preference, only when failure rates are known
	benefitMultiplier = 15.0
)

// Factor names, in scoring order.
const (
	FactorFinancialBenefit   = "Financial Benefit"
	FactorTimeBenefit        = "Time Benefit"
	FactorFinancialROI       = "Financial ROI"
	FactorTimeROI            = "Time ROI"
	FactorFinancialBreakEven = "Financial Break-Even"
	FactorTimeBreakEven      = "Time Break-Even"
	FactorFailureImpact      = "Failure Rate Impact"
	FactorSpeedGain          = "Speed Gain"
)

// Factor is one scored contribution to the confidence.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"` // maximum points this factor can award
	Points float64 `json:"points"` // points actually awarded, 0 <= Points <= Weight
	Reason string  `json:"reason"`
}

// Scorecard is the outcome of the scoring pass.
type Scorecard struct {
	Mode      Mode
	Score     float64
	MaxScore  float64
	Factors   []Factor
	Reasoning []string // banner first, then one line per factor
}

// Weights splits the preference dial into cost and throughput shares.
// The shares always sum to 1.
func Weights(preference float64) (cost, throughput float64) {
	return (100 - preference) / 100, preference / 100
}

// ModeFor returns the scoring mode label for a preference value.
func ModeFor(preference float64) Mode {
	switch {
	case preference < 33:
		return ModeCost
	case preference > 67:
		return ModeThroughput
	default:
		return ModeBalanced
	}
}

// scorer accumulates factors. Every factor adds its weight to the maximum
// whether or not it awards points, so missing benefits pull confidence down.
type scorer struct {
	card Scorecard
}

func (s *scorer) add(name string, weight, points float64, reason string) {
	s.card.MaxScore += weight
	s.card.Score += points
	s.card.Factors = append(s.card.Factors, Factor{Name: name, Weight: weight, Points: points, Reason: reason})
	s.card.Reasoning = append(s.card.Reasoning, reason)
}

// Score runs the weighted multi-factor scoring over derived metrics.
func Score(m Metrics, preference float64) Scorecard {
	costWeight, throughputWeight := Weights(preference)
	mode := ModeFor(preference)

	s := &scorer{card: Scorecard{Mode: mode}}
	s.card.Reasoning = append(s.card.Reasoning, fmt.Sprintf(
		"Scoring (%s mode): Each factor contributes points based on its impact. Higher scores indicate stronger recommendations.", mode))

	scoreBenefit(s, FactorFinancialBenefit, m.NetBenefitMoney, m.TotalCostMoney, costWeight, "financial benefit of 💰", "")
	scoreBenefit(s, FactorTimeBenefit, m.NetBenefit, m.TotalCost, throughputWeight, "time benefit of ", " hours")
	scoreROI(s, FactorFinancialROI, "monetary", m.ROIMoney, costWeight)
	scoreROI(s, FactorTimeROI, "time", m.ROI, throughputWeight)
	scoreBreakEven(s, FactorFinancialBreakEven, "monetary", m.BreakEvenYearsMoney, m.TimeHorizonYears, costWeight)
	scoreBreakEven(s, FactorTimeBreakEven, "time-based", m.BreakEvenYears, m.TimeHorizonYears, throughputWeight)
	if m.Failure != nil {
		scoreFailure(s, m.Failure.FailureRateChange)
	}
	scoreSpeedGain(s, m.SpeedGainFraction)

	return s.card
}

// scoreBenefit awards points proportional to net benefit over cost, capped at the weight.
func scoreBenefit(s *scorer, name string, net, cost, share float64, label, suffix string) {
	weight := BenefitWeight * share
	if net > 0 {
		// A zero share would turn a zero cost into Inf*0 = NaN.
		var points float64
		if weight > 0 {
			points = math.Min(weight, net/cost*benefitMultiplier*share)
		}
		s.add(name, weight, points, fmt.Sprintf("Positive %s%.2f%s (+%.1f points, weight: %.0f%%)",
			label, net, suffix, points, share*100))
		return
	}
	s.add(name, weight, 0, fmt.Sprintf("Negative %s%.2f%s (0 points - no benefit)", label, math.Abs(net), suffix))
}

// scoreROI awards a bucketed share of the weight by ROI percentage.
func scoreROI(s *scorer, name, kind string, roi, share float64) {
	weight := ROIWeight * share
	var grade, note string
	var fraction float64
	switch {
	case roi > 200:
		grade, note, fraction = "Excellent", "exceptional return", 1
	case roi > 100:
		grade, note, fraction = "Great", "strong return", 0.83
	case roi > 50:
		grade, note, fraction = "Good", "solid return", 0.67
	case roi > 20:
		grade, note, fraction = "Moderate", "decent return", 0.5
	case roi > 0:
		grade, note, fraction = "Low", "minimal return", 0.33
	default:
		s.add(name, weight, 0, fmt.Sprintf("Negative %s ROI of %.0f%% (0 points - no return)", kind, roi))
		return
	}
	points := weight * fraction
	s.add(name, weight, points, fmt.Sprintf("%s %s ROI of %.0f%% (+%.1f points - %s, weight: %.0f%%)",
		grade, kind, roi, points, note, share*100))
}

// scoreBreakEven awards points for paying back early within the horizon.
func scoreBreakEven(s *scorer, name, kind string, years, horizonYears, share float64) {
	weight := BreakEvenWeight * share
	if math.IsInf(years, 0) || math.IsNaN(years) {
		never := "monetarily"
		if kind != "monetary" {
			never = "on time"
		}
		s.add(name, weight, 0, fmt.Sprintf("Never breaks even %s (0 points - infinite payback time)", never))
		return
	}

	label := capitalize(kind)
	var points float64
	var reason string
	switch {
	case years < horizonYears*0.25:
		points = weight
		reason = fmt.Sprintf("Quick %s break-even in %.2f years (+%.1f points - very fast payback, weight: %.0f%%)",
			kind, years, points, share*100)
	case years < horizonYears*0.5:
		points = weight * 0.75
		reason = fmt.Sprintf("Reasonable %s break-even in %.2f years (+%.1f points - good payback, weight: %.0f%%)",
			kind, years, points, share*100)
	case years < horizonYears:
		points = weight * 0.5
		reason = fmt.Sprintf("%s break-even within time horizon at %.2f years (+%.1f points - acceptable payback, weight: %.0f%%)",
			label, years, points, share*100)
	default:
		reason = fmt.Sprintf("%s break-even beyond time horizon at %.2f years (0 points - too long)", label, years)
	}
	s.add(name, weight, points, reason)
}

// scoreFailure rewards optimizations that lower the failure rate and
// penalizes ones that are likely to introduce more failures than they fix.
func scoreFailure(s *scorer, change float64) {
	pct := math.Abs(change * 100)
	var points float64
	var reason string
	switch {
	case change > 0.03:
		points = 15
		reason = fmt.Sprintf("Significant failure rate reduction of %.1f%% (+15 points)", pct)
	case change > 0.01:
		points = 10
		reason = fmt.Sprintf("Moderate failure rate reduction of %.1f%% (+10 points)", pct)
	case change > 0:
		points = 5
		reason = fmt.Sprintf("Slight failure rate reduction of %.1f%% (+5 points)", pct)
	case change == 0:
		points = 7
		reason = "No change in failure rate (+7 points - neutral)"
	case change > -0.01:
		points = 3
		reason = fmt.Sprintf("Slight failure rate increase of %.1f%% (+3 points - minor risk)", pct)
	default:
		reason = fmt.Sprintf("Failure rate increase of %.1f%% (0 points - introduces more failures than it fixes)", pct)
	}
	s.add(FactorFailureImpact, FailureWeight, points, reason)
}

// scoreSpeedGain awards fixed points by the size of the speedup.
func scoreSpeedGain(s *scorer, fraction float64) {
	pct := fraction * 100
	switch {
	case fraction > 0.5:
		s.add(FactorSpeedGain, SpeedGainWeight, 10, fmt.Sprintf("Major speed improvement of %.1f%% (+10 points)", pct))
	case fraction > 0.3:
		s.add(FactorSpeedGain, SpeedGainWeight, 8, fmt.Sprintf("Significant speed improvement of %.1f%% (+8 points)", pct))
	case fraction > 0.1:
		s.add(FactorSpeedGain, SpeedGainWeight, 5, fmt.Sprintf("Moderate speed improvement of %.1f%% (+5 points)", pct))
	default:
		s.add(FactorSpeedGain, SpeedGainWeight, 2, fmt.Sprintf("Minor speed improvement of %.1f%% (+2 points)", pct))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
