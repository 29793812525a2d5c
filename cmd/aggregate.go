package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fedscope/fedscope/agg"
)

var (
	experimentRoot string        // Directory holding one subdirectory per run
	trackedMetrics []string      // Metric names that must be complete per step
	outputPath     string        // Output file path; empty writes to stdout
	outputFormat   string        // csv, table, or paste
	columns        []string      // Column selection; empty selects all
	pasteColumn    string        // Single column for paste output
	pastePerLine   int           // Values per line in paste output
	workers        int           // Concurrent run ingestions
	runTimeout     time.Duration // Bound on one run's full scan
)

// aggregateCmd ingests every run under the experiment root and exports the report
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Summarize all runs of one experiment into a single report",
	Long: "Read the telemetry of every run directory under --experiment-root, align metrics " +
		"by training step, summarize each run, and export the cross-run report ordered by " +
		"completion time. Corrupt or incomplete runs are skipped and reported individually.",
	Run: func(cmd *cobra.Command, args []string) {
		if experimentRoot == "" {
			logrus.Fatalf("--experiment-root is required")
		}

		runDirs, err := agg.ListRunDirs(experimentRoot)
		if err != nil {
			logrus.Fatalf("Failed to enumerate runs: %v", err)
		}

		report, failures, err := agg.Aggregate(context.Background(), runDirs, agg.AggregateConfig{
			Tracked:    trackedMetrics,
			Workers:    workers,
			RunTimeout: runTimeout,
		})
		if err != nil {
			logrus.Fatalf("Aggregation failed: %v", err)
		}
		if len(failures) > 0 {
			logrus.Warnf("%d of %d runs skipped", len(failures), len(runDirs))
		}

		out := io.Writer(os.Stdout)
		if outputPath != "" {
			f, err := os.Create(outputPath)
			if err != nil {
				logrus.Fatalf("Failed to create output file %s: %v", outputPath, err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}

		if err := exportReport(out, report); err != nil {
			logrus.Fatalf("Export failed: %v", err)
		}
	},
}

func exportReport(w io.Writer, report *agg.ExperimentReport) error {
	switch outputFormat {
	case "csv":
		return agg.WriteCSV(w, report, columns)
	case "table":
		return agg.RenderTable(w, report, columns)
	case "paste":
		blob, err := agg.Flatten(report, pasteColumn, pastePerLine, "\t", "\n")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, blob)
		return err
	default:
		return fmt.Errorf("unknown format %q; valid: csv, table, paste", outputFormat)
	}
}

func init() {
	aggregateCmd.Flags().StringVar(&experimentRoot, "experiment-root", "", "Directory containing one subdirectory per run")
	aggregateCmd.Flags().StringArrayVar(&trackedMetrics, "metric", nil, "Tracked metric name (can be repeated; default: all metrics a run reports)")
	aggregateCmd.Flags().StringVar(&outputPath, "out", "", "Output file (default: stdout)")
	aggregateCmd.Flags().StringVar(&outputFormat, "format", "csv", "Output format (csv, table, paste)")
	aggregateCmd.Flags().StringArrayVar(&columns, "column", nil, "Column to export (can be repeated; default: all)")
	aggregateCmd.Flags().StringVar(&pasteColumn, "paste-column", "total_time", "Column to flatten in paste format")
	aggregateCmd.Flags().IntVar(&pastePerLine, "per-line", 0, "Values per line in paste format (0: single line)")
	aggregateCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent run ingestions (0: default)")
	aggregateCmd.Flags().DurationVar(&runTimeout, "run-timeout", 0, "Bound on scanning one run (0: default 1m, negative: unbounded)")
	_ = aggregateCmd.MarkFlagRequired("experiment-root")

	rootCmd.AddCommand(aggregateCmd)
}
