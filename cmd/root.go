package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devs-sim/devs-sim/sim"
	"github.com/devs-sim/devs-sim/sim/celldevs"
	"github.com/devs-sim/devs-sim/sim/celldevs/sirds"
	"github.com/devs-sim/devs-sim/sim/efp"
	"github.com/devs-sim/devs-sim/sim/trace"
)

// defaultMaxTime is the simulation horizon of `run` when none is given.
const defaultMaxTime = 500

var (
	// CLI flags shared by run and efp
	logLevel    string // Log verbosity level
	outPath     string // Trajectory output path
	separator   string // Trajectory field delimiter
	traceFormat string // Trajectory sink: csv or sqlite
	parallel    bool   // Run coordinator children concurrently

	// CLI flags for run
	startTime float64 // Simulation start time

	// CLI flags for efp
	period         float64 // Mean time between generated jobs
	processingTime float64 // Processor service time
	obsTime        float64 // Transducer observation window
	arrivalMode    string  // constant or exponential arrivals
	serviceMode    string  // constant or exponential processing times
	seed           int64   // Seed for exponential modes
	efpMaxTime     float64 // Simulation horizon of efp
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "devs-sim",
	Short: "Hierarchical DEVS simulator",
}

// scenarioOptions configures one Cell-DEVS scenario run.
type scenarioOptions struct {
	ScenarioPath string
	StartTime    float64
	MaxTime      float64
	OutPath      string
	Separator    string
	Format       string
	Parallel     bool
}

// efpOptions configures one experimental frame run. An empty OutPath disables
// the trajectory file.
type efpOptions struct {
	Frame     efp.Config
	MaxTime   float64
	OutPath   string
	Separator string
	Format    string
	Parallel  bool
}

// parseMaxTime reads the optional horizon argument. "inf" is accepted.
func parseMaxTime(args []string) (float64, error) {
	if len(args) == 0 {
		return defaultMaxTime, nil
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, fmt.Errorf("max simulation time %q is not a number", args[0])
	}
	if math.IsNaN(v) || v < 0 {
		return 0, fmt.Errorf("max simulation time %q must be non-negative", args[0])
	}
	return v, nil
}

// newTrajectory builds the trajectory sink for a run. The summary always
// observes the run; the file sink is only added when path is set.
func newTrajectory(format, path, sep string) (trace.Logger, *trace.Summary, error) {
	summary := trace.NewSummary()
	if path == "" {
		return summary, summary, nil
	}
	if !trace.IsValidFormat(format) {
		return nil, nil, fmt.Errorf("unknown trajectory format %q; valid: csv, sqlite", format)
	}
	file, err := trace.New(format, path, sep)
	if err != nil {
		return nil, nil, err
	}
	return trace.Tee(file, summary), summary, nil
}

// simulate drives model from start to until and always stops the root, so the
// trajectory is flushed even when the run fails.
func simulate(model sim.CoupledModel, cfg sim.Config, start, until float64) (*sim.Metrics, error) {
	root, err := sim.NewRootCoordinator(model, cfg)
	if err != nil {
		return nil, err
	}
	runErr := root.Start(start)
	if runErr == nil {
		runErr = root.Simulate(until)
	}
	if err := root.Stop(); err != nil && runErr == nil {
		runErr = err
	}
	return root.Metrics(), runErr
}

// runScenario loads a SIRDS scenario, simulates it and prints the run metrics.
func runScenario(opts scenarioOptions, w io.Writer) error {
	scenario, err := celldevs.LoadScenario(opts.ScenarioPath)
	if err != nil {
		return err
	}
	model := sirds.NewCoupled("sirds", scenario)
	if err := model.BuildModel(); err != nil {
		return err
	}
	logger, summary, err := newTrajectory(opts.Format, opts.OutPath, opts.Separator)
	if err != nil {
		return err
	}
	logrus.Infof("Simulating %d cells from %s until t=%v", len(model.Cells()), opts.ScenarioPath, opts.MaxTime)
	metrics, err := simulate(model, sim.Config{Logger: logger, Parallel: opts.Parallel}, opts.StartTime, opts.MaxTime)
	if err != nil {
		return err
	}
	metrics.Print(w)
	summary.Print(w)
	return nil
}

// runEFP simulates the experimental frame and prints its report followed by
// the run metrics.
func runEFP(opts efpOptions, w io.Writer) (efp.Report, error) {
	frame, err := efp.New("efp", opts.Frame)
	if err != nil {
		return efp.Report{}, err
	}
	logger, _, err := newTrajectory(opts.Format, opts.OutPath, opts.Separator)
	if err != nil {
		return efp.Report{}, err
	}
	metrics, err := simulate(frame, sim.Config{Logger: logger, Parallel: opts.Parallel}, 0, opts.MaxTime)
	if err != nil {
		return efp.Report{}, err
	}
	report, ok := frame.Report()
	if ok {
		report.Print(w)
	} else {
		logrus.Warnf("Observation window of %v not reached before t=%v; no report", opts.Frame.ObsTime, metrics.SimEndedTime)
	}
	metrics.Print(w)
	return report, nil
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runCmd simulates a Cell-DEVS scenario
var runCmd = &cobra.Command{
	Use:   "run <scenario-config-path> [max-simulation-time]",
	Short: "Run a SIRDS Cell-DEVS scenario",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		maxTime, err := parseMaxTime(args[1:])
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts := scenarioOptions{
			ScenarioPath: args[0],
			StartTime:    startTime,
			MaxTime:      maxTime,
			OutPath:      outPath,
			Separator:    separator,
			Format:       traceFormat,
			Parallel:     parallel,
		}
		if err := runScenario(opts, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// efpCmd simulates the experimental frame / processor model
var efpCmd = &cobra.Command{
	Use:   "efp",
	Short: "Run the generator/processor/transducer experimental frame",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if !efp.IsValidArrivalMode(arrivalMode) {
			logrus.Fatalf("Unknown arrival mode %q; valid: constant, exponential", arrivalMode)
		}
		if !efp.IsValidServiceMode(serviceMode) {
			logrus.Fatalf("Unknown service mode %q; valid: constant, exponential", serviceMode)
		}
		opts := efpOptions{
			Frame: efp.Config{
				Period:         period,
				ProcessingTime: processingTime,
				ObsTime:        obsTime,
				Arrival:        efp.ArrivalMode(arrivalMode),
				Service:        efp.ServiceMode(serviceMode),
				Seed:           seed,
			},
			MaxTime:   efpMaxTime,
			OutPath:   outPath,
			Separator: separator,
			Format:    traceFormat,
			Parallel:  parallel,
		}
		logrus.Infof("Starting experimental frame: period=%v processing=%v observation=%v", period, processingTime, obsTime)
		if _, err := runEFP(opts, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	defaults := efp.DefaultConfig()

	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outPath, "out", "log.csv", "Trajectory output path")
	runCmd.Flags().StringVar(&separator, "sep", ";", "Trajectory field delimiter (csv only)")
	runCmd.Flags().StringVar(&traceFormat, "format", string(trace.FormatCSV), "Trajectory format (csv, sqlite)")
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "Run the children of each coordinator concurrently")
	runCmd.Flags().Float64Var(&startTime, "start-time", 0, "Simulation start time")

	efpCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	efpCmd.Flags().StringVar(&outPath, "out", "", "Trajectory output path (empty disables the trajectory file)")
	efpCmd.Flags().StringVar(&separator, "sep", ";", "Trajectory field delimiter (csv only)")
	efpCmd.Flags().StringVar(&traceFormat, "format", string(trace.FormatCSV), "Trajectory format (csv, sqlite)")
	efpCmd.Flags().BoolVar(&parallel, "parallel", false, "Run the children of each coordinator concurrently")
	efpCmd.Flags().Float64Var(&period, "period", defaults.Period, "Time between generated jobs (mean for exponential arrivals)")
	efpCmd.Flags().Float64Var(&processingTime, "processing-time", defaults.ProcessingTime, "Processor service time")
	efpCmd.Flags().Float64Var(&obsTime, "obs-time", defaults.ObsTime, "Transducer observation window")
	efpCmd.Flags().StringVar(&arrivalMode, "arrival", string(defaults.Arrival), "Arrival mode (constant, exponential)")
	efpCmd.Flags().StringVar(&serviceMode, "service", string(defaults.Service), "Service mode (constant, exponential)")
	efpCmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Seed for exponential arrivals and service")
	efpCmd.Flags().Float64Var(&efpMaxTime, "max-time", sim.Infinity, "Simulation horizon")

	// Attach `run` and `efp` as subcommands of `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(efpCmd)
}
