package agg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultTelemetryDir is the expected sub-path from a run directory to its
// event files. This layout is an external contract with the orchestration
// side; changing it there requires changing it here.
const DefaultTelemetryDir = "telemetry"

const (
	defaultWorkers    = 8
	defaultRunTimeout = time.Minute
)

// AggregateConfig carries explicit parameters for one aggregation call.
// Nothing is read from ambient process state.
type AggregateConfig struct {
	// Tracked selects the metric columns; empty means every metric a run reports.
	Tracked []string
	// TelemetryDir overrides DefaultTelemetryDir.
	TelemetryDir string
	// Workers bounds how many runs are ingested concurrently (default 8).
	Workers int
	// RunTimeout bounds one run's full scan; an expired run is an
	// IngestError. Default one minute; negative disables the bound.
	RunTimeout time.Duration
}

func (c *AggregateConfig) telemetryDir() string {
	if c.TelemetryDir != "" {
		return c.TelemetryDir
	}
	return DefaultTelemetryDir
}

// ExperimentReport is the ordered collection of RunSummary rows for one
// experiment. Rows ascend by EndTime: the run that finished first is first.
// Repeated trials of the same configuration are legitimate duplicate rows.
type ExperimentReport struct {
	Runs []RunSummary
}

// ListRunDirs enumerates the immediate subdirectories of an experiment root.
// Run identity is the directory base name.
func ListRunDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading experiment root %s: %w", root, err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}

// Aggregate ingests every run directory independently and in parallel,
// summarizes each, and assembles the experiment report. A failing run never
// aborts its siblings: its failure is logged, recorded, and returned. Only
// when zero runs succeed does Aggregate fail, with an *AggregationError
// enumerating every per-run failure.
func Aggregate(ctx context.Context, runDirs []string, cfg AggregateConfig) (*ExperimentReport, []RunFailure, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	timeout := cfg.RunTimeout
	if timeout == 0 {
		timeout = defaultRunTimeout
	}

	var (
		mu       sync.Mutex
		runs     []RunSummary
		failures []RunFailure
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, dir := range runDirs {
		dir := dir
		g.Go(func() error {
			runID := filepath.Base(dir)
			runCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			summary, err := aggregateRun(runCtx, runID, dir, &cfg)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logrus.Warnf("Skipping run %s: %v", runID, err)
				failures = append(failures, RunFailure{RunID: runID, Err: err})
				return nil
			}
			runs = append(runs, *summary)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failures, err
	}

	if len(runs) == 0 {
		return nil, failures, &AggregationError{Failures: failures}
	}

	// Completion order, not submission order. RunID breaks exact end-time
	// ties so repeated aggregations stay byte-identical.
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].EndTime != runs[j].EndTime {
			return runs[i].EndTime < runs[j].EndTime
		}
		return runs[i].RunID < runs[j].RunID
	})
	sort.Slice(failures, func(i, j int) bool { return failures[i].RunID < failures[j].RunID })

	return &ExperimentReport{Runs: runs}, failures, nil
}

// aggregateRun runs the full per-run pipeline: layout resolution, per-file
// decode, step alignment, summarization.
func aggregateRun(ctx context.Context, runID, dir string, cfg *AggregateConfig) (*RunSummary, error) {
	paths, err := resolveRunLayout(dir, cfg.telemetryDir())
	if err != nil {
		return nil, err
	}

	var records []EventRecord
	for _, path := range paths {
		recs, err := ReadEvents(ctx, path)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	table := BuildMetricTable(records, cfg.Tracked)
	return Summarize(runID, table)
}

// resolveRunLayout locates the run's event files under the expected
// telemetry sub-path, sorted by name for a deterministic read order.
func resolveRunLayout(dir, telemetryDir string) ([]string, error) {
	sub := filepath.Join(dir, telemetryDir)
	if info, err := os.Stat(sub); err != nil || !info.IsDir() {
		return nil, &LayoutError{RunDir: dir, Err: fmt.Errorf("missing %s directory", telemetryDir)}
	}
	paths, err := filepath.Glob(filepath.Join(sub, "*"+EventFileSuffix))
	if err != nil {
		return nil, &LayoutError{RunDir: dir, Err: err}
	}
	if len(paths) == 0 {
		return nil, &LayoutError{RunDir: dir, Err: fmt.Errorf("no *%s files under %s", EventFileSuffix, telemetryDir)}
	}
	sort.Strings(paths)
	return paths, nil
}
