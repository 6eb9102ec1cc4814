package sink

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/23skdu/layerlens/internal/report"
)

func TestWriteReadSamplesRoundTrip(t *testing.T) {
	samples := []report.Sample{
		{Task: "plurality", Layer: 1, Run: 0, Metric: report.MetricAccuracy, Value: 0.9},
		{Task: "plurality", Layer: 1, Run: 1, Metric: report.MetricAccuracy, Value: 0.95},
		{Task: "pos", Layer: 7, Run: 0, Metric: report.MetricMutualInformation, Value: 0.61},
	}

	path := filepath.Join(t.TempDir(), "out", "samples.arrow")
	if err := WriteSamples(path, samples); err != nil {
		t.Fatalf("WriteSamples: %v", err)
	}

	got, err := ReadSamples(path)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if !reflect.DeepEqual(got, samples) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, samples)
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	summaries := []report.Summary{
		{Task: "pos", Layer: 3, Metric: report.MetricF1Macro, Mean: 0.8, CILow: 0.7, CIHigh: 0.9, NRuns: 3},
	}

	path := filepath.Join(t.TempDir(), "summary.csv")
	if err := WriteSummary(path, summaries); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "task,layer,metric,mean") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "pos") || !strings.Contains(lines[1], "3") {
		t.Errorf("unexpected row: %q", lines[1])
	}
}
