// Package units normalizes the calculator's heterogeneous inputs into three
// canonical bases: hours, requests per hour, and years.
//
// The constants below are deliberate approximations. A month is 30 days for
// duration conversion, a year is 365 days for traffic and maintenance, and
// presentation code uses a 365.25-day year when humanizing break-even times.
package units

import (
	"errors"
	"fmt"
	"math"
)

// Conversion constants.
const (
	HoursPerDay      = 24.0
	DaysPerYear      = 365.0
	DaysPerMonth     = 30.0 // approximate
	SecondsPerHour   = 3600.0
	MinutesPerHour   = 60.0
	MillisPerSecond  = 1000.0
	WeeksPerYear     = 52.0
	MonthsPerYear    = 12.0
	HumanDaysPerYear = 365.25 // used only when humanizing durations
)

// ErrUnknownUnit is returned when parsing a unit name that is not recognized.
var ErrUnknownUnit = errors.New("unknown unit")

// TimeUnit is the unit of a per-request duration.
type TimeUnit string

// Time units.
const (
	Millisecond TimeUnit = "millisecond"
	Second      TimeUnit = "second"
	Minute      TimeUnit = "minute"
	Hour        TimeUnit = "hour"
	Day         TimeUnit = "day"
	Month       TimeUnit = "month"
	Year        TimeUnit = "year"
)

// RateUnit is the denominator of a request arrival rate.
type RateUnit string

// Rate units.
const (
	PerSecond RateUnit = "second"
	PerMinute RateUnit = "minute"
	PerHour   RateUnit = "hour"
)

// MaintenanceUnit expresses recurring upkeep labor.
type MaintenanceUnit string

// Maintenance units.
const (
	HoursPerDayOfUpkeep   MaintenanceUnit = "hour-per-day"
	HoursPerWeekOfUpkeep  MaintenanceUnit = "hour-per-week"
	HoursPerMonthOfUpkeep MaintenanceUnit = "hour-per-month"
)

// HorizonUnit is the unit of the analysis window.
type HorizonUnit string

// Horizon units.
const (
	HorizonMonths HorizonUnit = "month"
	HorizonYears  HorizonUnit = "year"
)

// ToHours converts a duration expressed in unit to hours.
// Unknown units yield NaN so that the mistake propagates visibly.
func ToHours(value float64, unit TimeUnit) float64 {
	switch unit {
	case Millisecond:
		return value / (MillisPerSecond * SecondsPerHour)
	case Second:
		return value / SecondsPerHour
	case Minute:
		return value / MinutesPerHour
	case Hour:
		return value
	case Day:
		return value * HoursPerDay
	case Month:
		return value * HoursPerDay * DaysPerMonth
	case Year:
		return value * HoursPerDay * DaysPerYear
	default:
		return math.NaN()
	}
}

// RateToPerHour converts a rate of value requests per unit to requests per hour.
func RateToPerHour(value float64, unit RateUnit) float64 {
	switch unit {
	case PerSecond:
		return value * SecondsPerHour
	case PerMinute:
		return value * MinutesPerHour
	case PerHour:
		return value
	default:
		return math.NaN()
	}
}

// MaintenanceToHoursPerYear converts recurring upkeep to hours per year.
func MaintenanceToHoursPerYear(value float64, unit MaintenanceUnit) float64 {
	switch unit {
	case HoursPerDayOfUpkeep:
		return value * DaysPerYear
	case HoursPerWeekOfUpkeep:
		return value * WeeksPerYear
	case HoursPerMonthOfUpkeep:
		return value * MonthsPerYear
	default:
		return math.NaN()
	}
}

// HorizonToYears converts an analysis window to years.
func HorizonToYears(value float64, unit HorizonUnit) float64 {
	switch unit {
	case HorizonMonths:
		return value / MonthsPerYear
	case HorizonYears:
		return value
	default:
		return math.NaN()
	}
}

// Valid reports whether u is a known time unit.
func (u TimeUnit) Valid() bool {
	switch u {
	case Millisecond, Second, Minute, Hour, Day, Month, Year:
		return true
	default:
		return false
	}
}

// Valid reports whether u is a known rate unit.
func (u RateUnit) Valid() bool {
	switch u {
	case PerSecond, PerMinute, PerHour:
		return true
	default:
		return false
	}
}

// Valid reports whether u is a known maintenance unit.
func (u MaintenanceUnit) Valid() bool {
	switch u {
	case HoursPerDayOfUpkeep, HoursPerWeekOfUpkeep, HoursPerMonthOfUpkeep:
		return true
	default:
		return false
	}
}

// Valid reports whether u is a known horizon unit.
func (u HorizonUnit) Valid() bool {
	switch u {
	case HorizonMonths, HorizonYears:
		return true
	default:
		return false
	}
}

// ParseTimeUnit parses a time unit name such as "millisecond".
func ParseTimeUnit(s string) (TimeUnit, error) {
	u := TimeUnit(s)
	if !u.Valid() {
		return "", fmt.Errorf("time unit %q: %w", s, ErrUnknownUnit)
	}
	return u, nil
}

// ParseRateUnit parses a rate unit name such as "second".
func ParseRateUnit(s string) (RateUnit, error) {
	u := RateUnit(s)
	if !u.Valid() {
		return "", fmt.Errorf("rate unit %q: %w", s, ErrUnknownUnit)
	}
	return u, nil
}

// ParseMaintenanceUnit parses a maintenance unit name such as "hour-per-week".
func ParseMaintenanceUnit(s string) (MaintenanceUnit, error) {
	u := MaintenanceUnit(s)
	if !u.Valid() {
		return "", fmt.Errorf("maintenance unit %q: %w", s, ErrUnknownUnit)
	}
	return u, nil
}

// ParseHorizonUnit parses a horizon unit name such as "year".
func ParseHorizonUnit(s string) (HorizonUnit, error) {
	u := HorizonUnit(s)
	if !u.Valid() {
		return "", fmt.Errorf("horizon unit %q: %w", s, ErrUnknownUnit)
	}
	return u, nil
}
