package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/d-led/iiwsit/pkg/decision"
)

// scenarioFile is the YAML document read by -scenarios. Each scenario's
// params are merged over the inputs given on the command line.
type scenarioFile struct {
	Scenarios []struct {
		Name   string    `yaml:"name"`
		Params yaml.Node `yaml:"params"`
	} `yaml:"scenarios"`
}

// scenarioReport is the JSON form of one scenario outcome.
type scenarioReport struct {
	Name   string              `json:"name"`
	Index  int                 `json:"index"`
	Result *decision.Formatted `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// loadScenarios reads the scenario file, using base for inputs a scenario omits.
func loadScenarios(path string, base decision.Params) ([]decision.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}

	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, decision.ErrNoScenarios
	}

	scenarios := make([]decision.Scenario, len(file.Scenarios))
	for i, sc := range file.Scenarios {
		params := cloneParams(base)
		if !sc.Params.IsZero() {
			if err := sc.Params.Decode(&params); err != nil {
				return nil, fmt.Errorf("scenario %d: parse params: %w", i+1, err)
			}
		}
		name := sc.Name
		if name == "" {
			name = fmt.Sprintf("scenario-%d", i+1)
		}
		scenarios[i] = decision.Scenario{Name: name, Params: params}
	}
	return scenarios, nil
}

// cloneParams copies p so that decoding into the copy cannot write through
// the shared failure-rate pointers.
func cloneParams(p decision.Params) decision.Params {
	if p.CurrentFailure != nil {
		v := *p.CurrentFailure
		p.CurrentFailure = &v
	}
	if p.BugFailure != nil {
		v := *p.BugFailure
		p.BugFailure = &v
	}
	return p
}

// runScenarios evaluates every scenario in the -scenarios file. It exits
// non-zero when any scenario was rejected.
//
//nolint:revive // argument-limit: mirrors run's dependencies
func runScenarios(ctx context.Context, opts *options, base decision.Params, logger *slog.Logger, stdout, stderr io.Writer) int {
	scenarios, err := loadScenarios(opts.scenarios, base)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger.InfoContext(ctx, "Evaluating scenarios", "file", opts.scenarios, "count", len(scenarios))

	result, err := decision.Evaluate(ctx, &decision.BatchRequest{
		Scenarios:   scenarios,
		Logger:      logger,
		Concurrency: opts.concurrency,
	})
	if result == nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.format == "json" {
		reports := make([]scenarioReport, len(result.Outcomes))
		for i, o := range result.Outcomes {
			reports[i] = scenarioReport{Name: o.Name, Index: o.Index}
			if o.Err != nil {
				reports[i].Error = o.Err.Error()
				continue
			}
			formatted := o.Result.Format()
			reports[i].Result = &formatted
		}
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(reports); err != nil {
			fmt.Fprintf(stderr, "Error: encode JSON: %v\n", err)
			return 1
		}
	} else {
		printScenarioTable(stdout, result)
	}

	if result.Skipped > 0 {
		return 1
	}
	return 0
}
