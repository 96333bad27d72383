package units

import (
	"errors"
	"math"
	"testing"
)

func TestConstants(t *testing.T) {
	if HoursPerDay != 24 {
		t.Errorf("Expected 24 hours per day, got %v", HoursPerDay)
	}
	if DaysPerYear != 365 {
		t.Errorf("Expected 365 days per year, got %v", DaysPerYear)
	}
	if DaysPerMonth != 30 {
		t.Errorf("Expected 30 days per month, got %v", DaysPerMonth)
	}
	if HumanDaysPerYear != 365.25 {
		t.Errorf("Expected 365.25 days per humanized year, got %v", HumanDaysPerYear)
	}
	if WeeksPerYear != 52 {
		t.Errorf("Expected 52 weeks per year, got %v", WeeksPerYear)
	}
}

func TestToHours(t *testing.T) {
	tests := []struct {
		unit  TimeUnit
		value float64
		want  float64
	}{
		{Millisecond, 3_600_000, 1},
		{Millisecond, 500, 500.0 / 3_600_000},
		{Second, 3600, 1},
		{Second, 10, 10.0 / 3600},
		{Minute, 90, 1.5},
		{Hour, 2, 2},
		{Day, 1, 24},
		{Month, 1, 720},
		{Year, 1, 8760},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			got := ToHours(tt.value, tt.unit)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("ToHours(%v, %s) = %v, want %v", tt.value, tt.unit, got, tt.want)
			}
		})
	}
}

func TestRateToPerHour(t *testing.T) {
	tests := []struct {
		unit  RateUnit
		value float64
		want  float64
	}{
		{PerSecond, 1000, 3_600_000},
		{PerMinute, 2, 120},
		{PerHour, 0.1, 0.1},
	}

	for _, tt := range tests {
		if got := RateToPerHour(tt.value, tt.unit); got != tt.want {
			t.Errorf("RateToPerHour(%v, %s) = %v, want %v", tt.value, tt.unit, got, tt.want)
		}
	}
}

func TestMaintenanceToHoursPerYear(t *testing.T) {
	tests := []struct {
		unit  MaintenanceUnit
		value float64
		want  float64
	}{
		{HoursPerDayOfUpkeep, 8, 2920},
		{HoursPerWeekOfUpkeep, 2, 104},
		{HoursPerMonthOfUpkeep, 3, 36},
		{HoursPerWeekOfUpkeep, 0, 0},
	}

	for _, tt := range tests {
		if got := MaintenanceToHoursPerYear(tt.value, tt.unit); got != tt.want {
			t.Errorf("MaintenanceToHoursPerYear(%v, %s) = %v, want %v", tt.value, tt.unit, got, tt.want)
		}
	}
}

func TestHorizonToYears(t *testing.T) {
	if got := HorizonToYears(6, HorizonMonths); got != 0.5 {
		t.Errorf("HorizonToYears(6, month) = %v, want 0.5", got)
	}
	if got := HorizonToYears(3, HorizonYears); got != 3 {
		t.Errorf("HorizonToYears(3, year) = %v, want 3", got)
	}
}

func TestUnknownUnitsYieldNaN(t *testing.T) {
	if !math.IsNaN(ToHours(1, "fortnight")) {
		t.Error("ToHours with unknown unit should be NaN")
	}
	if !math.IsNaN(RateToPerHour(1, "day")) {
		t.Error("RateToPerHour with unknown unit should be NaN")
	}
	if !math.IsNaN(MaintenanceToHoursPerYear(1, "hour-per-year")) {
		t.Error("MaintenanceToHoursPerYear with unknown unit should be NaN")
	}
	if !math.IsNaN(HorizonToYears(1, "week")) {
		t.Error("HorizonToYears with unknown unit should be NaN")
	}
}

func TestParse(t *testing.T) {
	if u, err := ParseTimeUnit("minute"); err != nil || u != Minute {
		t.Errorf("ParseTimeUnit(minute) = %q, %v", u, err)
	}
	if u, err := ParseRateUnit("hour"); err != nil || u != PerHour {
		t.Errorf("ParseRateUnit(hour) = %q, %v", u, err)
	}
	if u, err := ParseMaintenanceUnit("hour-per-month"); err != nil || u != HoursPerMonthOfUpkeep {
		t.Errorf("ParseMaintenanceUnit(hour-per-month) = %q, %v", u, err)
	}
	if u, err := ParseHorizonUnit("month"); err != nil || u != HorizonMonths {
		t.Errorf("ParseHorizonUnit(month) = %q, %v", u, err)
	}

	_, err := ParseTimeUnit("week")
	if !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("ParseTimeUnit(week) error = %v, want ErrUnknownUnit", err)
	}
	if _, err := ParseHorizonUnit(""); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("ParseHorizonUnit(\"\") error = %v, want ErrUnknownUnit", err)
	}
}
