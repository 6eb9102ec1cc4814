package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowcsv "github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/layerlens/internal/report"
)

// Tabular output of the pipeline: one Arrow IPC file with every per-run
// metric sample, and a CSV summary with one row per (task, layer, metric).

var sampleSchema = arrow.NewSchema([]arrow.Field{
	{Name: "task", Type: arrow.BinaryTypes.String},
	{Name: "layer", Type: arrow.PrimitiveTypes.Int32},
	{Name: "run", Type: arrow.PrimitiveTypes.Int32},
	{Name: "metric", Type: arrow.BinaryTypes.String},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
}, nil)

var summarySchema = arrow.NewSchema([]arrow.Field{
	{Name: "task", Type: arrow.BinaryTypes.String},
	{Name: "layer", Type: arrow.PrimitiveTypes.Int32},
	{Name: "metric", Type: arrow.BinaryTypes.String},
	{Name: "mean", Type: arrow.PrimitiveTypes.Float64},
	{Name: "ci_low", Type: arrow.PrimitiveTypes.Float64},
	{Name: "ci_high", Type: arrow.PrimitiveTypes.Float64},
	{Name: "n_runs", Type: arrow.PrimitiveTypes.Int32},
}, nil)

// WriteSamples persists per-run samples as an Arrow IPC file.
func WriteSamples(path string, samples []report.Sample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sink: %w", err)
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, sampleSchema)
	defer b.Release()
	for _, s := range samples {
		b.Field(0).(*array.StringBuilder).Append(s.Task)
		b.Field(1).(*array.Int32Builder).Append(int32(s.Layer))
		b.Field(2).(*array.Int32Builder).Append(int32(s.Run))
		b.Field(3).(*array.StringBuilder).Append(s.Metric)
		b.Field(4).(*array.Float64Builder).Append(s.Value)
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(sampleSchema))
	if err != nil {
		return fmt.Errorf("sink: open IPC writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		return fmt.Errorf("sink: write samples: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("sink: close IPC writer: %w", err)
	}
	return nil
}

// ReadSamples loads a samples IPC file back, for tooling and tests.
func ReadSamples(path string) ([]report.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("sink: open IPC reader: %w", err)
	}
	defer r.Close()

	var out []report.Sample
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("sink: read record %d: %w", i, err)
		}
		tasks := rec.Column(0).(*array.String)
		layers := rec.Column(1).(*array.Int32)
		runs := rec.Column(2).(*array.Int32)
		names := rec.Column(3).(*array.String)
		values := rec.Column(4).(*array.Float64)
		for row := 0; row < int(rec.NumRows()); row++ {
			out = append(out, report.Sample{
				Task:   tasks.Value(row),
				Layer:  int(layers.Value(row)),
				Run:    int(runs.Value(row)),
				Metric: names.Value(row),
				Value:  values.Value(row),
			})
		}
	}
	return out, nil
}

// WriteSummary persists the aggregated table as CSV with a header row.
func WriteSummary(path string, summaries []report.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sink: %w", err)
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, summarySchema)
	defer b.Release()
	for _, s := range summaries {
		b.Field(0).(*array.StringBuilder).Append(s.Task)
		b.Field(1).(*array.Int32Builder).Append(int32(s.Layer))
		b.Field(2).(*array.StringBuilder).Append(s.Metric)
		b.Field(3).(*array.Float64Builder).Append(s.Mean)
		b.Field(4).(*array.Float64Builder).Append(s.CILow)
		b.Field(5).(*array.Float64Builder).Append(s.CIHigh)
		b.Field(6).(*array.Int32Builder).Append(int32(s.NRuns))
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	defer f.Close()

	w := arrowcsv.NewWriter(f, summarySchema, arrowcsv.WithHeader(true), arrowcsv.WithComma(','))
	if err := w.Write(rec); err != nil {
		return fmt.Errorf("sink: write summary: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("sink: flush summary: %w", err)
	}
	return w.Error()
}
