// Package decision decides whether a proposed software optimization is worth
// building. It derives time and money metrics from traffic and cost inputs and
// scores them into a YES/NO/MAYBE verdict with itemized reasoning.
package decision

import "github.com/d-led/iiwsit/pkg/units"

// Params holds every input the calculator needs for one evaluation.
// Wire names are the keys of the stored settings file.
type Params struct {
	// Request arrival rate, e.g. 100 per second
	Rate     float64        `json:"rate" yaml:"rate" validate:"finite,gte=0"`
	RateUnit units.RateUnit `json:"rateUnit" yaml:"rateUnit" validate:"rate_unit"`

	// Time spent per request before the optimization
	Duration     float64        `json:"duration" yaml:"duration" validate:"finite,gte=0"`
	DurationUnit units.TimeUnit `json:"durationUnit" yaml:"durationUnit" validate:"time_unit"`

	// Percentage reduction of per-request duration (0-100)
	SpeedGain float64 `json:"speedGain" yaml:"speedGain" validate:"finite,gte=0"`

	// Optional failure rates in percent. The failure impact factor is scored
	// only when both are present.
	CurrentFailure *float64 `json:"currentFailure,omitempty" yaml:"currentFailure,omitempty" validate:"omitempty,finite,gte=0,lte=100"`
	BugFailure     *float64 `json:"bugFailure,omitempty" yaml:"bugFailure,omitempty" validate:"omitempty,finite,gte=0,lte=100"`

	// Ongoing upkeep labor
	Maintenance     float64               `json:"maintenance" yaml:"maintenance" validate:"finite,gte=0"`
	MaintenanceUnit units.MaintenanceUnit `json:"maintenanceUnit" yaml:"maintenanceUnit" validate:"maintenance_unit"`

	// One-time labor hours to build the optimization
	ImplementationTime float64 `json:"implementationTime" yaml:"implementationTime" validate:"finite,gte=0"`

	// Analysis window
	TimeHorizon     float64           `json:"timeHorizon" yaml:"timeHorizon" validate:"finite,gt=0"`
	TimeHorizonUnit units.HorizonUnit `json:"timeHorizonUnit" yaml:"timeHorizonUnit" validate:"horizon_unit"`

	// Cost of one hour of request-processing time
	ComputeCostPerHour float64 `json:"computeCostPerHour" yaml:"computeCostPerHour" validate:"finite,gte=0"`

	// Cost of one hour of developer labor
	DeveloperHourlyRate float64 `json:"developerHourlyRate" yaml:"developerHourlyRate" validate:"finite,gte=0"`

	// 0 = pure cost focus, 100 = pure throughput focus, 50 = balanced
	OptimizationPreference float64 `json:"optimizationPreference" yaml:"optimizationPreference" validate:"finite,gte=0,lte=100"`
}

// DefaultParams returns the calculator's out-of-the-box inputs.
func DefaultParams() Params {
	return Params{
		Rate:                   100,
		RateUnit:               units.PerSecond,
		Duration:               500,
		DurationUnit:           units.Millisecond,
		SpeedGain:              20,
		Maintenance:            2,
		MaintenanceUnit:        units.HoursPerWeekOfUpkeep,
		ImplementationTime:     40,
		TimeHorizon:            1,
		TimeHorizonUnit:        units.HorizonYears,
		ComputeCostPerHour:     0.5,
		DeveloperHourlyRate:    75,
		OptimizationPreference: 50, // balanced
	}
}

// HasFailureRates reports whether both failure-rate inputs are present.
func (p Params) HasFailureRates() bool {
	return p.CurrentFailure != nil && p.BugFailure != nil
}

// WithFailureRates returns a copy of p with both failure rates set.
func (p Params) WithFailureRates(current, bug float64) Params {
	p.CurrentFailure = &current
	p.BugFailure = &bug
	return p
}
