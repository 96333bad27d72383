package decision

import (
	"math"
	"strconv"
)

// Infinity is the display sentinel for a break-even that never happens.
const Infinity = "∞"

// FormattedMetrics is the display contract for Metrics: fixed-precision
// decimal strings, with Infinity for non-finite break-evens.
type FormattedMetrics struct {
	RatePerHour              string `json:"ratePerHour"`
	DurationHours            string `json:"durationHours"`
	TotalRequestsPerYear     string `json:"totalRequestsPerYear"`
	TotalRequestsOverHorizon string `json:"totalRequestsOverHorizon"`
	TimeSavedPerRequest      string `json:"timeSavedPerRequest"`
	TotalTimeSaved           string `json:"totalTimeSaved"`
	ImplementationCost       string `json:"implementationCost"`
	MaintenanceCost          string `json:"maintenanceCost"`
	TotalCost                string `json:"totalCost"`
	NetBenefit               string `json:"netBenefit"`
	ROI                      string `json:"roi"`
	BreakEvenYears           string `json:"breakEvenYears"`

	// Present only when failure rates were supplied
	CurrentFailedRequests string `json:"currentFailedRequests,omitempty"`
	BugFailedRequests     string `json:"bugFailedRequests,omitempty"`
	NetFailureChange      string `json:"netFailureChange,omitempty"`
	FailureRateChange     string `json:"failureRateChange,omitempty"` // percentage points

	ComputeCostSavings      string `json:"computeCostSavings"`
	ImplementationCostMoney string `json:"implementationCostMoney"`
	MaintenanceCostMoney    string `json:"maintenanceCostMoney"`
	TotalCostMoney          string `json:"totalCostMoney"`
	NetBenefitMoney         string `json:"netBenefitMoney"`
	ROIMoney                string `json:"roiMoney"`
	BreakEvenYearsMoney     string `json:"breakEvenYearsMoney"`
}

// Formatted is the string-typed result handed to presentation layers.
type Formatted struct {
	Decision   Verdict          `json:"decision"`
	Confidence string           `json:"confidence"` // one decimal
	Metrics    FormattedMetrics `json:"metrics"`
	Reasoning  []string         `json:"reasoning"`
}

// Format renders the result for display.
func (r Result) Format() Formatted {
	return Formatted{
		Decision:   r.Decision,
		Confidence: fixed(r.Confidence, 1),
		Metrics:    r.Metrics.Format(),
		Reasoning:  r.Reasoning,
	}
}

// Format renders metrics as fixed-precision strings.
func (m Metrics) Format() FormattedMetrics {
	f := FormattedMetrics{
		RatePerHour:              fixed(m.RatePerHour, 2),
		DurationHours:            fixed(m.DurationHours, 6),
		TotalRequestsPerYear:     fixed(m.TotalRequestsPerYear, 0),
		TotalRequestsOverHorizon: fixed(m.TotalRequestsOverHorizon, 0),
		TimeSavedPerRequest:      fixed(m.TimeSavedPerRequest, 8),
		TotalTimeSaved:           fixed(m.TotalTimeSaved, 2),
		ImplementationCost:       fixed(m.ImplementationCost, 2),
		MaintenanceCost:          fixed(m.MaintenanceCost, 2),
		TotalCost:                fixed(m.TotalCost, 2),
		NetBenefit:               fixed(m.NetBenefit, 2),
		ROI:                      fixed(m.ROI, 2),
		BreakEvenYears:           years(m.BreakEvenYears),
		ComputeCostSavings:       fixed(m.ComputeCostSavings, 2),
		ImplementationCostMoney:  fixed(m.ImplementationCostMoney, 2),
		MaintenanceCostMoney:     fixed(m.MaintenanceCostMoney, 2),
		TotalCostMoney:           fixed(m.TotalCostMoney, 2),
		NetBenefitMoney:          fixed(m.NetBenefitMoney, 2),
		ROIMoney:                 fixed(m.ROIMoney, 2),
		BreakEvenYearsMoney:      years(m.BreakEvenYearsMoney),
	}
	if m.Failure != nil {
		f.CurrentFailedRequests = fixed(m.Failure.CurrentFailedRequests, 0)
		f.BugFailedRequests = fixed(m.Failure.BugFailedRequests, 0)
		f.NetFailureChange = fixed(m.Failure.NetFailureChange, 0)
		f.FailureRateChange = fixed(m.Failure.FailureRateChange*100, 2)
	}
	return f
}

func years(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return Infinity
	}
	return fixed(v, 2)
}

func fixed(v float64, decimals int) string {
	if v == 0 {
		v = 0 // drop the sign of negative zero
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
