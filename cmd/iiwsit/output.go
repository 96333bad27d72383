package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/d-led/iiwsit/pkg/decision"
	"github.com/d-led/iiwsit/pkg/humanize"
)

// report is the JSON form of one evaluation.
//
//nolint:govet // fieldalignment: output field order optimized for readability
type report struct {
	Result      decision.Formatted `json:"result"`
	Mode        decision.Mode      `json:"mode"`
	Factors     []decision.Factor  `json:"factors"`
	Explanation string             `json:"explanation"`
	Message     string             `json:"message"`
	FactorsText string             `json:"factors_summary"`
	Inputs      decision.Params    `json:"inputs"`
}

func printResult(w io.Writer, format string, p decision.Params, r decision.Result) error {
	if format == "json" {
		return printJSON(w, p, r)
	}
	printHumanReadable(w, p, r)
	return nil
}

// printHumanReadable outputs the verdict followed by an itemized breakdown.
func printHumanReadable(w io.Writer, p decision.Params, r decision.Result) {
	m := r.Metrics

	fmt.Fprintf(w, "OPTIMIZATION DECISION\n")
	fmt.Fprintf(w, "=====================\n\n")
	fmt.Fprintf(w, "Decision:    %s (%.1f%% confidence, %.1f of %.0f points)\n",
		r.Decision, r.Confidence, r.Score, r.MaxScore)
	fmt.Fprintf(w, "Mode:        %s\n", r.Mode)
	fmt.Fprintf(w, "             %s\n", decision.ConfidenceMessage(r.Confidence, r.Decision, p.OptimizationPreference))
	fmt.Fprintf(w, "             %s\n", decision.ConfidenceExplanation(r.Confidence))
	fmt.Fprintf(w, "             %s\n\n", decision.ConfidenceFactorsText(p.OptimizationPreference, p.HasFailureRates()))

	fmt.Fprintf(w, "TRAFFIC\n")
	fmt.Fprintf(w, "  %-28s %s\n", "Requests per year", humanize.Number(m.TotalRequestsPerYear, 0))
	fmt.Fprintf(w, "  %-28s %s\n", "Requests over horizon", humanize.Number(m.TotalRequestsOverHorizon, 0))
	fmt.Fprintf(w, "  %-28s %s\n\n", "Time horizon", humanize.Years(m.TimeHorizonYears))

	fmt.Fprintf(w, "TIME\n")
	fmt.Fprintf(w, "  %-28s %s\n", "Saved per request", humanize.Hours(m.TimeSavedPerRequest))
	fmt.Fprintf(w, "  %-28s %s\n", "Total time saved", humanize.Hours(m.TotalTimeSaved))
	fmt.Fprintf(w, "  %-28s %s\n", "Implementation", humanize.Hours(m.ImplementationCost))
	fmt.Fprintf(w, "  %-28s %s\n", "Maintenance", humanize.Hours(m.MaintenanceCost))
	fmt.Fprintf(w, "  ---\n")
	fmt.Fprintf(w, "  %-28s %s\n", "Net benefit", signedHours(m.NetBenefit))
	fmt.Fprintf(w, "  %-28s %.0f%%\n", "ROI", m.ROI)
	fmt.Fprintf(w, "  %-28s %s\n\n", "Break-even", humanize.Years(m.BreakEvenYears))

	fmt.Fprintf(w, "MONEY\n")
	fmt.Fprintf(w, "  %-28s %s\n", "Compute savings", humanize.Money(m.ComputeCostSavings, 2))
	fmt.Fprintf(w, "  %-28s %s\n", "Implementation", humanize.Money(m.ImplementationCostMoney, 2))
	fmt.Fprintf(w, "  %-28s %s\n", "Maintenance", humanize.Money(m.MaintenanceCostMoney, 2))
	fmt.Fprintf(w, "  ---\n")
	fmt.Fprintf(w, "  %-28s %s\n", "Net benefit", humanize.Money(m.NetBenefitMoney, 2))
	fmt.Fprintf(w, "  %-28s %.0f%%\n", "ROI", m.ROIMoney)
	fmt.Fprintf(w, "  %-28s %s\n\n", "Break-even", humanize.Years(m.BreakEvenYearsMoney))

	if f := m.Failure; f != nil {
		fmt.Fprintf(w, "FAILURES\n")
		fmt.Fprintf(w, "  %-28s %s\n", "At current rate", humanize.Number(f.CurrentFailedRequests, 0))
		fmt.Fprintf(w, "  %-28s %s\n", "At introduced rate", humanize.Number(f.BugFailedRequests, 0))
		fmt.Fprintf(w, "  %-28s %s\n", "Net change", humanize.Number(f.NetFailureChange, 0))
		fmt.Fprintf(w, "  %-28s %+.2f points\n\n", "Rate change", f.FailureRateChange*100)
	}

	fmt.Fprintf(w, "REASONING\n")
	for i, line := range r.Reasoning {
		fmt.Fprintf(w, "  %d. %s\n", i+1, line)
	}
}

// signedHours is humanize.Hours for values that may be negative.
func signedHours(h float64) string {
	if h < 0 {
		return "-" + humanize.Hours(math.Abs(h))
	}
	return humanize.Hours(h)
}

// printJSON outputs the evaluation in JSON format.
func printJSON(w io.Writer, p decision.Params, r decision.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report{
		Result:      r.Format(),
		Mode:        r.Mode,
		Factors:     r.Factors,
		Explanation: decision.ConfidenceExplanation(r.Confidence),
		Message:     decision.ConfidenceMessage(r.Confidence, r.Decision, p.OptimizationPreference),
		FactorsText: decision.ConfidenceFactorsText(p.OptimizationPreference, p.HasFailureRates()),
		Inputs:      p,
	}); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

// printScenarioTable outputs one line per scenario, in input order.
func printScenarioTable(w io.Writer, result *decision.BatchResult) {
	width := len("SCENARIO")
	for _, o := range result.Outcomes {
		width = max(width, len(o.Name))
	}

	fmt.Fprintf(w, "%-*s  %-8s  %10s  %14s  %12s\n", width, "SCENARIO", "DECISION", "CONFIDENCE", "NET BENEFIT", "BREAK-EVEN")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", width+2+8+2+10+2+14+2+12))
	for _, o := range result.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "%-*s  %-8s  %v\n", width, o.Name, "ERROR", o.Err)
			continue
		}
		m := o.Result.Metrics
		fmt.Fprintf(w, "%-*s  %-8s  %9.1f%%  %14s  %12s\n", width, o.Name,
			o.Result.Decision, o.Result.Confidence,
			humanize.Money(m.NetBenefitMoney, 0), humanize.Years(m.BreakEvenYearsMoney))
	}
	fmt.Fprintf(w, "\n%d evaluated, %d skipped\n", result.Evaluated, result.Skipped)
}
