package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/d-led/iiwsit/pkg/units"
)

// Helper functions to create test data.
func newScenario(t *testing.T, name string, overrides map[string]any) BatchScenario {
	t.Helper()
	sc := BatchScenario{Name: name}
	if len(overrides) == 0 {
		return sc
	}
	raw, err := json.Marshal(overrides)
	if err != nil {
		t.Fatalf("Failed to marshal overrides: %v", err)
	}
	sc.Params = raw
	return sc
}

// newRateSweep returns scenarios that differ only in request rate.
func newRateSweep(t *testing.T, rates ...float64) []BatchScenario {
	t.Helper()
	scenarios := make([]BatchScenario, len(rates))
	for i, r := range rates {
		scenarios[i] = newScenario(t, fmt.Sprintf("rate-%g", r), map[string]any{
			"rate":     r,
			"rateUnit": units.PerHour,
		})
	}
	return scenarios
}
