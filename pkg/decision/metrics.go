package decision

import (
	"math"

	"github.com/d-led/iiwsit/pkg/units"
)

// Metrics holds every derived quantity for one evaluation.
// Time-based costs are in hours, money-based costs in the caller's currency.
// Break-even values are +Inf when the optimization never pays back.
type Metrics struct {
	// Normalized inputs
	RatePerHour             float64 // requests per hour
	DurationHours           float64 // time per request before optimization
	MaintenanceHoursPerYear float64
	TimeHorizonYears        float64
	SpeedGainFraction       float64 // 0.2 = 20% faster

	// Traffic
	TotalRequestsPerYear     float64
	TotalRequestsOverHorizon float64

	// Time side
	TimeSavedPerRequest float64 // hours
	TotalTimeSaved      float64 // hours over the horizon
	ImplementationCost  float64 // hours
	MaintenanceCost     float64 // hours over the horizon
	TotalCost           float64 // hours
	NetBenefit          float64 // hours
	ROI                 float64 // percent
	BreakEvenYears      float64

	// Money side
	ComputeCostSavings      float64
	ImplementationCostMoney float64
	MaintenanceCostMoney    float64
	TotalCostMoney          float64
	NetBenefitMoney         float64
	ROIMoney                float64 // percent
	BreakEvenYearsMoney     float64

	// Failure impact, nil unless both failure rates were supplied
	Failure *FailureMetrics
}

// FailureMetrics describes how the optimization shifts request failures.
type FailureMetrics struct {
	CurrentFailedRequests float64 // failures over the horizon at the current rate
	BugFailedRequests     float64 // failures over the horizon at the rate the change may introduce
	NetFailureChange      float64 // current minus introduced; positive means fewer failures
	FailureRateChange     float64 // fraction, (current% - bug%) / 100
}

// DeriveMetrics computes all time and money metrics for p in a single pass.
func DeriveMetrics(p Params) Metrics {
	var m Metrics

	// Normalize inputs
	m.RatePerHour = units.RateToPerHour(p.Rate, p.RateUnit)
	m.DurationHours = units.ToHours(p.Duration, p.DurationUnit)
	m.MaintenanceHoursPerYear = units.MaintenanceToHoursPerYear(p.Maintenance, p.MaintenanceUnit)
	m.TimeHorizonYears = units.HorizonToYears(p.TimeHorizon, p.TimeHorizonUnit)

	// Traffic over the horizon
	m.TotalRequestsPerYear = m.RatePerHour * units.HoursPerDay * units.DaysPerYear
	m.TotalRequestsOverHorizon = m.TotalRequestsPerYear * m.TimeHorizonYears

	// Time saved
	m.SpeedGainFraction = p.SpeedGain / 100
	m.TimeSavedPerRequest = m.DurationHours * m.SpeedGainFraction
	m.TotalTimeSaved = m.TimeSavedPerRequest * m.TotalRequestsOverHorizon

	// Time-based costs
	m.ImplementationCost = p.ImplementationTime
	m.MaintenanceCost = m.MaintenanceHoursPerYear * m.TimeHorizonYears
	m.TotalCost = m.ImplementationCost + m.MaintenanceCost
	m.NetBenefit = m.TotalTimeSaved - m.TotalCost
	if m.TotalCost > 0 {
		m.ROI = m.NetBenefit / m.TotalCost * 100
	}
	m.BreakEvenYears = breakEven(m.TotalCost, m.TotalTimeSaved, m.TimeHorizonYears)

	// Money-based costs: saved processing time is billed at the compute rate,
	// labor at the developer rate.
	m.ComputeCostSavings = m.TotalTimeSaved * p.ComputeCostPerHour
	m.ImplementationCostMoney = p.ImplementationTime * p.DeveloperHourlyRate
	m.MaintenanceCostMoney = m.MaintenanceCost * p.DeveloperHourlyRate
	m.TotalCostMoney = m.ImplementationCostMoney + m.MaintenanceCostMoney
	m.NetBenefitMoney = m.ComputeCostSavings - m.TotalCostMoney
	if m.TotalCostMoney > 0 {
		m.ROIMoney = m.NetBenefitMoney / m.TotalCostMoney * 100
	}
	m.BreakEvenYearsMoney = breakEven(m.TotalCostMoney, m.ComputeCostSavings, m.TimeHorizonYears)

	if p.HasFailureRates() {
		current, bug := *p.CurrentFailure, *p.BugFailure
		f := &FailureMetrics{
			CurrentFailedRequests: m.TotalRequestsOverHorizon * current / 100,
			BugFailedRequests:     m.TotalRequestsOverHorizon * bug / 100,
			FailureRateChange:     (current - bug) / 100,
		}
		f.NetFailureChange = f.CurrentFailedRequests - f.BugFailedRequests
		m.Failure = f
	}

	return m
}

// breakEven returns the years needed for savings accrued evenly over the
// horizon to cover cost, or +Inf when there are no savings.
func breakEven(cost, savings, horizonYears float64) float64 {
	if savings > 0 {
		return cost / (savings / horizonYears)
	}
	return math.Inf(1)
}
