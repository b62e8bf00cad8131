package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/queuesim/queuesim/sim"
	"github.com/queuesim/queuesim/sim/scenario"
	"github.com/queuesim/queuesim/sim/telemetry"
	"github.com/queuesim/queuesim/sim/trace"
)

var (
	// scenario selection
	scenarioRef  string // preset name or scenario file path
	defaultsPath string // path to defaults.yaml

	// run overrides; applied only when the flag was set
	seed         int64   // master seed
	trials       int     // number of trials
	trialSeeding string  // shared or independent
	strategy     string  // queue or station strategy
	horizon      float64 // station horizon
	batchSize    int     // observations per batch
	warmup       int     // warm-up batches
	precision    float64 // target full interval width
	zValue       float64 // normal quantile
	maxBatches   int     // batch cap for unstable queues

	// output
	outputFormat    string // text or json
	traceLevel      string // none or events
	traceMaxRecords int    // cap on stored trace records
	printMetrics    bool   // print OpenTelemetry run metrics after the report
	logLevel        string // log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "queuesim",
	Short: "Discrete-event simulator for queues and resource stations",
}

// runCmd executes one scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario preset or scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if outputFormat != "text" && outputFormat != "json" {
			logrus.Fatalf("Invalid output format %q; valid: text, json", outputFormat)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level %q; valid: none, events", traceLevel)
		}

		s, err := resolveScenario(scenarioRef, defaultsPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := applyOverrides(cmd, s); err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := s.Validate(); err != nil {
			logrus.Fatalf("Invalid scenario %s: %v", scenarioRef, err)
		}

		logrus.Infof("Starting %s simulation: seed=%d trials=%d", s.Model, s.Seed, s.Trials)
		if err := runScenario(s, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// presetsCmd lists the presets in defaults.yaml
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List scenario presets",
	Run: func(cmd *cobra.Command, args []string) {
		listPresets(os.Stdout, loadPresets(defaultsPath))
	},
}

func listPresets(w io.Writer, pf *scenario.PresetFile) {
	for _, name := range pf.Names() {
		p := pf.Presets[name]
		fmt.Fprintf(w, "%-22s %-9s %s\n", name, p.Model, p.Description)
	}
}

// applyOverrides copies explicitly set flags onto the scenario.
// Flags left at their defaults never overwrite scenario values.
func applyOverrides(cmd *cobra.Command, s *scenario.Scenario) error {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		s.Seed = seed
	}
	if flags.Changed("trials") {
		s.Trials = trials
	}
	if flags.Changed("trial-seeding") {
		s.TrialSeeding = trialSeeding
	}
	if flags.Changed("strategy") {
		if err := s.SetStrategy(strategy); err != nil {
			return err
		}
	}
	if flags.Changed("horizon") {
		if err := s.SetHorizon(horizon); err != nil {
			return err
		}
	}
	est := s.Estimator()
	if est == nil {
		return fmt.Errorf("scenario has no %s section", s.Model)
	}
	if flags.Changed("batch-size") {
		est.BatchSize = batchSize
	}
	if flags.Changed("warmup") {
		est.WarmupBatches = warmup
	}
	if flags.Changed("precision") {
		est.Precision = precision
	}
	if flags.Changed("z") {
		est.Z = zValue
	}
	if flags.Changed("max-batches") {
		est.MaxBatches = maxBatches
	}
	return nil
}

// runScenario runs s with the output flags and writes the report to w.
func runScenario(s *scenario.Scenario, w io.Writer) error {
	opts := sim.RunOptions{}
	if level := trace.TraceLevel(traceLevel); level != "" && level != trace.TraceLevelNone {
		opts.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: level, MaxRecords: traceMaxRecords})
	}
	var recorder *telemetry.Recorder
	if printMetrics {
		recorder = telemetry.NewRecorder()
		defer func() {
			if err := recorder.Shutdown(context.Background()); err != nil {
				logrus.Warnf("shutting down metrics: %v", err)
			}
		}()
		opts.Metrics = recorder
	}

	report, err := s.Run(opts)
	if err != nil {
		return err
	}
	if outputFormat == "json" {
		if err := report.WriteJSON(w); err != nil {
			return err
		}
	} else {
		report.Print(w)
	}

	if recorder != nil {
		points, err := recorder.Collect(context.Background())
		if err != nil {
			return err
		}
		telemetry.WritePoints(w, points)
	}
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	defaults := sim.DefaultEstimatorConfig()

	runCmd.Flags().StringVar(&scenarioRef, "scenario", "bike-station", "Preset name from defaults.yaml or path to a scenario YAML file")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for the clock bank")
	runCmd.Flags().IntVar(&trials, "trials", 1, "Number of independent trials")
	runCmd.Flags().StringVar(&trialSeeding, "trial-seeding", sim.TrialSeedingShared, "Trial sources: shared (one stream) or independent (derived per trial)")
	runCmd.Flags().StringVar(&strategy, "strategy", "", "Queue strategy (tick, event) or station strategy (per-class, aggregate, bernoulli)")
	runCmd.Flags().Float64Var(&horizon, "horizon", 120, "Station horizon in simulated time units")

	// Batch-means estimator
	runCmd.Flags().IntVar(&batchSize, "batch-size", defaults.BatchSize, "Observations per batch")
	runCmd.Flags().IntVar(&warmup, "warmup", defaults.WarmupBatches, "Warm-up batches before the stop rule is checked")
	runCmd.Flags().Float64Var(&precision, "precision", defaults.Precision, "Stop when the full interval width 2h is at most this")
	runCmd.Flags().Float64Var(&zValue, "z", defaults.Z, "Normal quantile for the confidence interval")
	runCmd.Flags().IntVar(&maxBatches, "max-batches", 0, "Stop after this many batches even without convergence (0 = unbounded)")

	// Output
	runCmd.Flags().StringVar(&outputFormat, "output", "text", "Report format (text, json)")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Trace verbosity (none, events)")
	runCmd.Flags().IntVar(&traceMaxRecords, "trace-max-records", 0, "Maximum trace records kept (0 = unlimited)")
	runCmd.Flags().BoolVar(&printMetrics, "metrics", false, "Print OpenTelemetry run metrics after the report")

	rootCmd.PersistentFlags().StringVar(&defaultsPath, "defaults-filepath", "defaults.yaml", "Path to defaults.yaml")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(presetsCmd)
}
