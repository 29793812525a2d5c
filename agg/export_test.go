package agg

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleReport() *ExperimentReport {
	return &ExperimentReport{Runs: []RunSummary{
		{RunID: "run1", Step: 20, StartTime: 940, EndTime: 1000, TotalTime: 60,
			Metrics: map[string]float64{"accuracy_per_epoch": 85.24}},
		{RunID: "run3", Step: 20, StartTime: 1940, EndTime: 2000, TotalTime: 60,
			Metrics: map[string]float64{"accuracy_per_epoch": 86.56}},
		{RunID: "run2", Step: 20, StartTime: 2940, EndTime: 3000, TotalTime: 60,
			Metrics: map[string]float64{"accuracy_per_epoch": 86.72}},
	}}
}

func TestReportColumns_FixedThenMetricsSorted(t *testing.T) {
	report := sampleReport()
	report.Runs[0].Metrics["loss"] = 0.3

	got := report.Columns()

	want := []string{"run_id", "step", "start_time", "end_time", "total_time", "accuracy_per_epoch", "loss"}
	assert.Equal(t, want, got)
}

func TestWriteCSV_HeaderAndAllSignificantDigits(t *testing.T) {
	// GIVEN a report containing a value that does not round-trip at short precision
	report := &ExperimentReport{Runs: []RunSummary{
		{RunID: "r0", Step: 1, StartTime: 0, EndTime: 0.30000000000000004, TotalTime: 0.30000000000000004,
			Metrics: map[string]float64{"loss": 85.24}},
	}}

	// WHEN exported
	var buf bytes.Buffer
	if err := WriteCSV(&buf, report, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	// THEN the header matches the columns and floats keep every digit
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	assert.Equal(t, "run_id,step,start_time,end_time,total_time,loss", lines[0])
	assert.Equal(t, "r0,1,0,0.30000000000000004,0.30000000000000004,85.24", lines[1])
}

func TestWriteCSV_ColumnSelection(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, sampleReport(), []string{"run_id", "accuracy_per_epoch"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "run_id,accuracy_per_epoch\nrun1,85.24\nrun3,86.56\nrun2,86.72\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_UnknownColumn_Error(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, sampleReport(), []string{"run_id", "f1_score"})

	var unknown *UnknownColumnError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want *UnknownColumnError", err)
	}
	if unknown.Column != "f1_score" {
		t.Errorf("column = %q, want %q", unknown.Column, "f1_score")
	}
	if buf.Len() != 0 {
		t.Error("no output should be written on a bad selection")
	}
}

func TestFlatten_TabFieldsNewlineEveryK(t *testing.T) {
	// GIVEN the sample report's accuracy column
	report := sampleReport()

	// WHEN flattened two values per line
	blob, err := Flatten(report, "accuracy_per_epoch", 2, "\t", "\n")

	// THEN fields are tab-separated with a newline after every second value
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, "85.24\t86.56\n86.72", blob)
}

func TestFlatten_NonPositivePerLine_SingleLine(t *testing.T) {
	blob, err := Flatten(sampleReport(), "run_id", 0, "\t", "\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.Equal(t, "run1\trun3\trun2", blob)
}

func TestFlatten_UnknownColumn_Error(t *testing.T) {
	_, err := Flatten(sampleReport(), "nope", 0, "\t", "\n")
	var unknown *UnknownColumnError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want *UnknownColumnError", err)
	}
}

func TestRenderTable_HeaderRowsAndCount(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTable(&buf, sampleReport(), []string{"run_id", "accuracy_per_epoch"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"run_id", "accuracy_per_epoch", "85.24", "86.72", "(3 runs)"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}
}
