// Package main implements a CLI tool that decides whether a software
// optimization is worth the time it takes to build.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/d-led/iiwsit/pkg/decision"
	"github.com/d-led/iiwsit/pkg/settings"
	"github.com/d-led/iiwsit/pkg/units"
)

const errorKey = "error"

// options is the parsed command line.
//
//nolint:govet // fieldalignment: grouped by purpose for readability
type options struct {
	params      decision.Params
	set         map[string]bool // flags given explicitly
	format      string
	settingsDir string
	scenarios   string
	concurrency int
	save        bool
	reset       bool
	watch       bool
	verbose     bool
}

// paramFlags copies one Params field from the flag values into a base set of
// inputs, for flags the user gave explicitly.
var paramFlags = map[string]func(dst *decision.Params, src decision.Params){
	"rate":                func(d *decision.Params, s decision.Params) { d.Rate = s.Rate },
	"rate-unit":           func(d *decision.Params, s decision.Params) { d.RateUnit = s.RateUnit },
	"duration":            func(d *decision.Params, s decision.Params) { d.Duration = s.Duration },
	"duration-unit":       func(d *decision.Params, s decision.Params) { d.DurationUnit = s.DurationUnit },
	"speed-gain":          func(d *decision.Params, s decision.Params) { d.SpeedGain = s.SpeedGain },
	"current-failure":     func(d *decision.Params, s decision.Params) { d.CurrentFailure = s.CurrentFailure },
	"bug-failure":         func(d *decision.Params, s decision.Params) { d.BugFailure = s.BugFailure },
	"maintenance":         func(d *decision.Params, s decision.Params) { d.Maintenance = s.Maintenance },
	"maintenance-unit":    func(d *decision.Params, s decision.Params) { d.MaintenanceUnit = s.MaintenanceUnit },
	"implementation-time": func(d *decision.Params, s decision.Params) { d.ImplementationTime = s.ImplementationTime },
	"time-horizon":        func(d *decision.Params, s decision.Params) { d.TimeHorizon = s.TimeHorizon },
	"time-horizon-unit":   func(d *decision.Params, s decision.Params) { d.TimeHorizonUnit = s.TimeHorizonUnit },
	"compute-cost":        func(d *decision.Params, s decision.Params) { d.ComputeCostPerHour = s.ComputeCostPerHour },
	"developer-rate":      func(d *decision.Params, s decision.Params) { d.DeveloperHourlyRate = s.DeveloperHourlyRate },
	"preference":          func(d *decision.Params, s decision.Params) { d.OptimizationPreference = s.OptimizationPreference },
}

// overlay applies the explicitly given flags on top of base.
func (o *options) overlay(base decision.Params) decision.Params {
	for name := range o.set {
		if apply, ok := paramFlags[name]; ok {
			apply(&base, o.params)
		}
	}
	return base
}

// usesStore reports whether the settings store is involved.
func (o *options) usesStore() bool {
	return o.settingsDir != "" || o.save || o.reset || o.watch
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("iiwsit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{params: decision.DefaultParams(), set: make(map[string]bool)}
	p := &o.params
	var rateUnit, durationUnit, maintenanceUnit, horizonUnit string
	var currentFailure, bugFailure float64

	fs.Float64Var(&p.Rate, "rate", p.Rate, "Requests per rate unit")
	fs.StringVar(&rateUnit, "rate-unit", string(p.RateUnit), "Rate unit: second, minute or hour")
	fs.Float64Var(&p.Duration, "duration", p.Duration, "Time per request before optimization")
	fs.StringVar(&durationUnit, "duration-unit", string(p.DurationUnit),
		"Duration unit: millisecond, second, minute, hour, day, month or year")
	fs.Float64Var(&p.SpeedGain, "speed-gain", p.SpeedGain, "Percentage reduction of request duration (0-100)")
	fs.Float64Var(&currentFailure, "current-failure", 0, "Current failure rate in percent (optional)")
	fs.Float64Var(&bugFailure, "bug-failure", 0, "Failure rate in percent the change may introduce (optional)")
	fs.Float64Var(&p.Maintenance, "maintenance", p.Maintenance, "Upkeep hours per maintenance unit")
	fs.StringVar(&maintenanceUnit, "maintenance-unit", string(p.MaintenanceUnit),
		"Maintenance unit: hour-per-day, hour-per-week or hour-per-month")
	fs.Float64Var(&p.ImplementationTime, "implementation-time", p.ImplementationTime, "Hours to build the optimization")
	fs.Float64Var(&p.TimeHorizon, "time-horizon", p.TimeHorizon, "Analysis window")
	fs.StringVar(&horizonUnit, "time-horizon-unit", string(p.TimeHorizonUnit), "Time horizon unit: month or year")
	fs.Float64Var(&p.ComputeCostPerHour, "compute-cost", p.ComputeCostPerHour, "Cost of one hour of request processing")
	fs.Float64Var(&p.DeveloperHourlyRate, "developer-rate", p.DeveloperHourlyRate, "Cost of one developer hour")
	fs.Float64Var(&p.OptimizationPreference, "preference", p.OptimizationPreference,
		"0 = pure cost focus, 100 = pure throughput focus")

	fs.StringVar(&o.format, "format", "human", "Output format: human or json")
	fs.StringVar(&o.settingsDir, "settings-dir", "", "Directory of the settings file (default: user config dir when saving, resetting or watching)")
	fs.StringVar(&o.scenarios, "scenarios", "", "YAML file of named scenarios to evaluate together")
	fs.IntVar(&o.concurrency, "concurrency", 4, "Scenarios evaluated in parallel with -scenarios")
	fs.BoolVar(&o.save, "save", false, "Save the resulting inputs to the settings file")
	fs.BoolVar(&o.reset, "reset", false, "Delete the settings file before evaluating")
	fs.BoolVar(&o.watch, "watch", false, "Re-evaluate whenever the settings file changes")
	fs.BoolVar(&o.verbose, "v", false, "Verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: iiwsit [options]\n\n")
		fmt.Fprintf(stderr, "Decide whether a software optimization is worth spending the time on.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  iiwsit -rate 1000 -speed-gain 30 -developer-rate 100\n")
		fmt.Fprintf(stderr, "  iiwsit -current-failure 5 -bug-failure 1 -format json\n")
		fmt.Fprintf(stderr, "  iiwsit -settings-dir . -preference 80 -save\n")
		fmt.Fprintf(stderr, "  iiwsit -scenarios scenarios.yaml\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	switch o.format {
	case "human", "json":
	default:
		return nil, fmt.Errorf("unknown format: %s (must be human or json)", o.format)
	}

	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	p.RateUnit = units.RateUnit(rateUnit)
	p.DurationUnit = units.TimeUnit(durationUnit)
	p.MaintenanceUnit = units.MaintenanceUnit(maintenanceUnit)
	p.TimeHorizonUnit = units.HorizonUnit(horizonUnit)
	if o.set["current-failure"] {
		p.CurrentFailure = &currentFailure
	}
	if o.set["bug-failure"] {
		p.BugFailure = &bugFailure
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		AddSource: opts.verbose,
		Level:     level,
	})).With("component", "iiwsit-cli")

	params := opts.overlay(decision.DefaultParams())

	var store *settings.Store
	if opts.usesStore() {
		dir := opts.settingsDir
		if dir == "" {
			if dir, err = settings.DefaultDir(); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
		}
		store = settings.New(dir)
		store.SetLogger(logger)

		if opts.reset {
			if _, err := store.Reset(); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 1
			}
			fmt.Fprintf(stderr, "Settings reset: %s\n", store.Path())
		}
		params = opts.overlay(store.Load())
	}

	if opts.scenarios != "" {
		return runScenarios(ctx, opts, params, logger, stdout, stderr)
	}

	if err := decision.Validate(params); err != nil {
		printValidationError(stderr, err)
		return 1
	}

	if opts.save {
		if err := store.Save(params); err != nil {
			logger.ErrorContext(ctx, "Failed to save settings", errorKey, err)
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "Settings saved: %s\n", store.Path())
	}

	if err := printResult(stdout, opts.format, params, decision.Calculate(params)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if !opts.watch {
		return 0
	}

	fmt.Fprintf(stderr, "Watching %s for changes (Ctrl+C to stop)\n", store.Path())
	err = store.Watch(ctx, func(stored decision.Params) {
		p := opts.overlay(stored)
		if err := decision.Validate(p); err != nil {
			printValidationError(stderr, err)
			return
		}
		if err := printResult(stdout, opts.format, p, decision.Calculate(p)); err != nil {
			logger.ErrorContext(ctx, "Failed to print result", errorKey, err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// printValidationError lists every rejected input.
func printValidationError(w io.Writer, err error) {
	var verr *decision.ValidationError
	if !errors.As(err, &verr) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", decision.ErrInvalidParams)
	for _, f := range verr.Fields {
		if f.Param != "" {
			fmt.Fprintf(w, "  %s: failed %s=%s\n", f.Field, f.Rule, f.Param)
		} else {
			fmt.Fprintf(w, "  %s: failed %s\n", f.Field, f.Rule)
		}
	}
}
