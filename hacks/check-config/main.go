// Package main prints the default calculator inputs and the unit conversion constants.
package main

import (
	"fmt"

	"github.com/d-led/iiwsit/pkg/decision"
	"github.com/d-led/iiwsit/pkg/units"
)

func main() {
	p := decision.DefaultParams()
	fmt.Printf("Rate: %v per %s\n", p.Rate, p.RateUnit)
	fmt.Printf("Duration: %v %s\n", p.Duration, p.DurationUnit)
	fmt.Printf("SpeedGain: %v%%\n", p.SpeedGain)
	fmt.Printf("Maintenance: %v %s\n", p.Maintenance, p.MaintenanceUnit)
	fmt.Printf("ImplementationTime: %v hours\n", p.ImplementationTime)
	fmt.Printf("TimeHorizon: %v %s\n", p.TimeHorizon, p.TimeHorizonUnit)
	fmt.Printf("ComputeCostPerHour: %v\n", p.ComputeCostPerHour)
	fmt.Printf("DeveloperHourlyRate: %v\n", p.DeveloperHourlyRate)
	fmt.Printf("OptimizationPreference: %v (%s)\n", p.OptimizationPreference, decision.ModeFor(p.OptimizationPreference))

	fmt.Printf("\nHoursPerDay: %v\n", units.HoursPerDay)
	fmt.Printf("DaysPerYear: %v\n", units.DaysPerYear)
	fmt.Printf("DaysPerMonth: %v\n", units.DaysPerMonth)
	fmt.Printf("WeeksPerYear: %v\n", units.WeeksPerYear)
	fmt.Printf("HumanDaysPerYear: %v\n", units.HumanDaysPerYear)
}
