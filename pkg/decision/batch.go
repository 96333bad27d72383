package decision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoScenarios is returned by Evaluate when the request is empty.
var ErrNoScenarios = errors.New("no scenarios provided")

// Scenario is one named set of inputs to evaluate.
type Scenario struct {
	Name   string `json:"name"`
	Params Params `json:"params"`
}

// BatchRequest contains the scenarios to evaluate.
//
//nolint:govet // fieldalignment: struct field order optimized for API clarity
type BatchRequest struct {
	Scenarios   []Scenario
	Logger      *slog.Logger // Optional logger for progress
	Concurrency int          // Number of concurrent evaluations (0 = sequential)
}

// Outcome is the evaluation of one scenario. Err is set, and Result is zero,
// when the scenario failed validation or was not evaluated before cancellation.
type Outcome struct {
	Name   string
	Index  int
	Result Result
	Err    error
}

// BatchResult holds one outcome per scenario, in request order.
type BatchResult struct {
	Outcomes  []Outcome
	Evaluated int
	Skipped   int // scenarios rejected by validation or cancelled
}

// Evaluate validates and calculates every scenario in req.
// Evaluations are independent, so they run on a bounded pool of goroutines
// when Concurrency > 1. Cancelling ctx stops new evaluations from starting.
func Evaluate(ctx context.Context, req *BatchRequest) (*BatchResult, error) {
	if len(req.Scenarios) == 0 {
		return nil, ErrNoScenarios
	}

	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	outcomes := make([]Outcome, len(req.Scenarios))

	evaluate := func(i int, sc Scenario) {
		outcomes[i] = Outcome{Name: sc.Name, Index: i}
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			return
		}
		if err := Validate(sc.Params); err != nil {
			if req.Logger != nil {
				req.Logger.WarnContext(ctx, "Invalid scenario, skipping",
					"scenario", sc.Name, "index", i, "error", err)
			}
			outcomes[i].Err = err
			return
		}
		outcomes[i].Result = Calculate(sc.Params)
		if req.Logger != nil {
			req.Logger.DebugContext(ctx, "Evaluated scenario",
				"scenario", sc.Name,
				"decision", outcomes[i].Result.Decision,
				"confidence", outcomes[i].Result.Confidence,
				"progress", fmt.Sprintf("%d/%d", i+1, len(req.Scenarios)))
		}
	}

	if concurrency == 1 {
		for i, sc := range req.Scenarios {
			evaluate(i, sc)
		}
	} else {
		// Each goroutine writes only its own slot, so outcomes needs no lock.
		var wg sync.WaitGroup
		semaphore := make(chan struct{}, concurrency)

		for i, sc := range req.Scenarios {
			wg.Add(1)
			go func(index int, scenario Scenario) {
				defer wg.Done()

				semaphore <- struct{}{}
				defer func() { <-semaphore }()

				evaluate(index, scenario)
			}(i, sc)
		}

		wg.Wait()
	}

	result := &BatchResult{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Err != nil {
			result.Skipped++
		} else {
			result.Evaluated++
		}
	}

	if result.Evaluated == 0 {
		return result, fmt.Errorf("no scenarios could be evaluated (%d skipped)", result.Skipped)
	}

	return result, nil
}
