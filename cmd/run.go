package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/homesim/homesim/sim"
	"github.com/homesim/homesim/sim/record"
	"github.com/homesim/homesim/sim/scenario"
	"github.com/homesim/homesim/sim/trace"
)

var (
	// CLI flags for a run
	endTime    int64  // Last simulated second, overrides the scenario
	seed       int64  // RNG seed, overrides the scenario
	outPath    string // Recorded output file
	outFormat  string // jsonl, sqlite or none
	traceLevel string // Decision trace level
)

// runOptions is everything runScenario needs, resolved from flags.
type runOptions struct {
	ScenarioPath string
	OutPath      string
	Format       string
	Trace        trace.TraceLevel
	End          *int64
	Seed         *int64
}

// runSummary describes a finished run.
type runSummary struct {
	RunID   string
	Ticks   int
	Clock   int64
	Elapsed time.Duration
	Trace   *trace.TraceSummary // nil without decision tracing
}

// runCmd executes a scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario and record its probes",
	Run: func(cmd *cobra.Command, args []string) {
		if scenarioPath == "" {
			logrus.Fatalf("Scenario file not provided. Use --scenario.")
		}
		opts := runOptions{
			ScenarioPath: scenarioPath,
			OutPath:      outPath,
			Format:       outFormat,
			Trace:        trace.TraceLevel(traceLevel),
		}
		// flags only override the scenario when given explicitly
		if cmd.Flags().Changed("end") {
			opts.End = &endTime
		}
		if cmd.Flags().Changed("seed") {
			opts.Seed = &seed
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		sum, err := runScenario(ctx, opts)
		if err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
		printSummary(cmd.OutOrStdout(), sum)
		logrus.Info("Simulation complete.")
	},
}

// runScenario loads, builds and runs one scenario, writing its probes to the selected sink.
func runScenario(ctx context.Context, opts runOptions) (*runSummary, error) {
	s, err := scenario.Load(opts.ScenarioPath)
	if err != nil {
		return nil, err
	}
	w, tr, err := scenario.Build(s, scenario.DefaultCatalog(), scenario.Options{
		End:   opts.End,
		Seed:  opts.Seed,
		Trace: opts.Trace,
	})
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", opts.ScenarioPath, err)
	}

	runID := record.NewRunID()
	format, err := resolveFormat(opts.Format, opts.OutPath)
	if err != nil {
		return nil, err
	}
	sink, err := openSink(format, opts.OutPath, runID)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Starting run %s of %s (format=%s)", runID, opts.ScenarioPath, format)

	start := time.Now()
	runErr := w.Run(ctx, sink)
	if sink != nil {
		if err := sink.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("closing %s: %w", opts.OutPath, err)
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	sum := &runSummary{RunID: runID, Ticks: w.Ticks(), Clock: w.Clock(), Elapsed: time.Since(start)}
	if tr != nil {
		sum.Trace = trace.Summarize(tr)
	}
	return sum, nil
}

// resolveFormat picks the sink format. Without --format it follows the output extension,
// and no output file means no sink.
func resolveFormat(format, path string) (string, error) {
	if format == "" {
		switch {
		case path == "":
			return "none", nil
		case filepath.Ext(path) == ".db" || filepath.Ext(path) == ".sqlite":
			return "sqlite", nil
		default:
			return "jsonl", nil
		}
	}
	switch format {
	case "none":
		return format, nil
	case "jsonl", "sqlite":
		if path == "" {
			return "", fmt.Errorf("format %s needs --out", format)
		}
		return format, nil
	}
	return "", fmt.Errorf("unknown output format %q (want jsonl, sqlite or none)", format)
}

func openSink(format, path, runID string) (sim.Sink, error) {
	switch format {
	case "jsonl":
		j, err := record.OpenJSONLZstd(path, runID)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "sqlite":
		db, err := record.OpenSQLite(path, runID)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, nil
}

// printSummary writes the run summary block to w.
func printSummary(w io.Writer, s *runSummary) {
	fmt.Fprintln(w, "=== Run Summary ===")
	fmt.Fprintf(w, "Run ID               : %s\n", s.RunID)
	fmt.Fprintf(w, "Ticks                : %d\n", s.Ticks)
	fmt.Fprintf(w, "Final Clock          : %d s\n", s.Clock)
	fmt.Fprintf(w, "Wall Time            : %s\n", s.Elapsed.Round(time.Millisecond))
	if s.Trace == nil {
		return
	}
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Rule Passes          : %d (%d failed)\n", s.Trace.TotalPasses, s.Trace.FailedPasses)
	fmt.Fprintf(w, "Rule Firings         : %d\n", s.Trace.TotalFirings)
	fmt.Fprintf(w, "Firings per Pass     : %.2f mean, %d max\n", s.Trace.MeanFiringsPerPass, s.Trace.MaxFiringsPerPass)
	names := make([]string, 0, len(s.Trace.RuleDistribution))
	for name := range s.Trace.RuleDistribution {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %d\n", name, s.Trace.RuleDistribution[name])
	}
}

func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to scenario YAML file")
	runCmd.Flags().Int64Var(&endTime, "end", 0, "Last simulated second (overrides scenario end)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed (overrides scenario seed)")
	runCmd.Flags().StringVar(&outPath, "out", "", "Recorded output file")
	runCmd.Flags().StringVar(&outFormat, "format", "", "Output format: jsonl, sqlite or none (default from --out extension)")
	runCmd.Flags().StringVar(&traceLevel, "trace", "", "Decision trace level: none or decisions (overrides scenario)")
}
