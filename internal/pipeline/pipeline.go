package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/23skdu/layerlens/internal/dataset"
	"github.com/23skdu/layerlens/internal/extract"
	"github.com/23skdu/layerlens/internal/logger"
	"github.com/23skdu/layerlens/internal/metrics"
	"github.com/23skdu/layerlens/internal/model"
	"github.com/23skdu/layerlens/internal/probe"
	"github.com/23skdu/layerlens/internal/reduce"
	"github.com/23skdu/layerlens/internal/report"
)

// Options is the run-level configuration the pipeline consumes.
type Options struct {
	Tasks      []string
	Layers     []int
	Components int
	Runs       int
	Seed       int64
	Confidence float64
	BatchSize  int
	DatasetDir string
}

// LabelDegeneracyError aborts one task's branch: a probe over fewer than two
// observed classes measures nothing.
type LabelDegeneracyError struct {
	Task   string
	Labels []string
}

func (e *LabelDegeneracyError) Error() string {
	return fmt.Sprintf("task %s: fewer than 2 distinct labels observed (%v)", e.Task, e.Labels)
}

// TaskFailure records a task branch that was aborted; siblings continue.
type TaskFailure struct {
	Task string
	Err  error
}

// Result is the full output of one pipeline invocation. Failed task branches
// and skipped layers appear as missing rows, not as crashes.
type Result struct {
	Samples   []report.Sample
	Summaries []report.Summary
	Failures  []TaskFailure
	Dropped   int
}

// Run drives extraction, reduction, probing and aggregation for every
// configured task. Per-example and per-layer failures are absorbed at their
// boundaries; a task failure aborts only that branch; a model interface
// failure aborts the whole run.
func Run(ctx context.Context, m model.Model, opts Options) (*Result, error) {
	res := &Result{}
	log := logger.Log.Stage("pipeline")

	for _, name := range opts.Tasks {
		samples, dropped, err := runTask(ctx, m, name, opts)
		if err != nil {
			if errors.Is(err, extract.ErrModel) {
				return nil, err
			}
			log.Error("task branch aborted", "task", name, "err", err.Error())
			metrics.TaskFailures.Inc()
			res.Failures = append(res.Failures, TaskFailure{Task: name, Err: err})
			continue
		}
		res.Samples = append(res.Samples, samples...)
		res.Dropped += dropped
	}

	if len(res.Samples) == 0 {
		return nil, fmt.Errorf("no task produced any measurement")
	}

	summaries, err := report.Summarize(res.Samples, opts.Confidence)
	if err != nil {
		return nil, err
	}
	res.Summaries = summaries
	return res, nil
}

func runTask(ctx context.Context, m model.Model, name string, opts Options) ([]report.Sample, int, error) {
	log := logger.Log.Stage("pipeline").Task(name)

	task, err := dataset.Load(name, opts.DatasetDir)
	if err != nil {
		return nil, 0, err
	}

	ext, err := extract.Run(ctx, m, task, opts.Layers, opts.BatchSize)
	if err != nil {
		return nil, 0, err
	}

	if observed := distinct(ext.Labels); len(observed) < 2 {
		return nil, 0, &LabelDegeneracyError{Task: name, Labels: observed}
	}

	var samples []report.Sample
	for _, layer := range opts.Layers {
		ext.LogDiagnostics(layer)

		red, err := reduce.PCA(ext.Matrices[layer], opts.Components)
		if err != nil {
			// Per-layer failure: this layer becomes a gap in the summary,
			// the remaining layers still report.
			log.Error("layer skipped", "layer", layer, "err", err.Error())
			continue
		}
		metrics.ExplainedVariance.WithLabelValues(name, fmt.Sprint(layer)).Set(red.CumulativeVariance())
		log.Debug("reduction complete",
			"layer", layer,
			"components", red.Components,
			"cumulative_variance", red.CumulativeVariance())

		runs, err := probe.Runs(red.Projected, ext.Labels, opts.Runs, opts.Seed, name)
		if err != nil {
			return nil, 0, err
		}
		for run, preds := range runs {
			samples = append(samples, report.Evaluate(name, layer, run, ext.Labels, preds)...)
		}
	}
	if len(samples) == 0 {
		return nil, 0, fmt.Errorf("task %s: every layer failed reduction", name)
	}
	return samples, len(ext.Dropped), nil
}

func distinct(labels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}
