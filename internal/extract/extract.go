package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/layerlens/internal/align"
	"github.com/23skdu/layerlens/internal/dataset"
	"github.com/23skdu/layerlens/internal/logger"
	"github.com/23skdu/layerlens/internal/metrics"
	"github.com/23skdu/layerlens/internal/model"
)

// ErrModel marks failures of the external model collaborator. These are fatal
// for the whole run: with no activations there is nothing to substitute.
var ErrModel = errors.New("model interface failure")

// Drop records one example excluded from a task because of an alignment
// failure.
type Drop struct {
	ExampleID int
	Err       error
}

// Result holds one task's activation matrices. Matrices[l] has one row per
// included example, in dataset order; the row set is identical for every
// layer, which downstream aggregation depends on.
type Result struct {
	Task       string
	Layers     []int
	ExampleIDs []int
	Labels     []string
	Matrices   map[int]*mat.Dense
	Dropped    []Drop
}

// Run extracts per-layer activation vectors at the aligned target-token site
// for every example in the task. Alignment failures are absorbed here: the
// example is dropped from all layers and logged, never zero-filled. Model
// failures are fatal and propagate.
func Run(ctx context.Context, m model.Model, task *dataset.Task, layers []int, batchSize int) (*Result, error) {
	log := logger.Log.Stage("extract").Task(task.Name)

	// Resolve alignments up front so a failing example is excluded before
	// any model call, keeping row sets consistent across layers.
	type aligned struct {
		ex   dataset.Example
		site int
	}
	var kept []aligned
	var dropped []Drop

	for _, ex := range task.Examples {
		tokens := m.Tokenize(ex.Text)
		a, err := align.Resolve(ex.Text, ex.TargetWord, ex.TargetPosition, tokens)
		if err != nil {
			log.Warn("dropping example", "id", ex.ID, "err", err.Error())
			metrics.AlignmentFailures.WithLabelValues(task.Name).Inc()
			dropped = append(dropped, Drop{ExampleID: ex.ID, Err: err})
			continue
		}
		kept = append(kept, aligned{ex: ex, site: a.Site()})
	}

	if len(kept) == 0 {
		return nil, fmt.Errorf("task %s: no example survived alignment", task.Name)
	}

	dim := m.Dim()
	res := &Result{
		Task:     task.Name,
		Layers:   layers,
		Matrices: make(map[int]*mat.Dense, len(layers)),
	}
	data := make(map[int][]float64, len(layers))
	for _, l := range layers {
		data[l] = make([]float64, 0, len(kept)*dim)
	}

	for start := 0; start < len(kept); start += batchSize {
		end := start + batchSize
		if end > len(kept) {
			end = len(kept)
		}
		batch := kept[start:end]
		texts := make([]string, len(batch))
		for i, k := range batch {
			texts[i] = k.ex.Text
		}

		began := time.Now()
		acts, err := m.HiddenStates(ctx, texts, layers)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w: %w", task.Name, ErrModel, err)
		}
		metrics.ExtractionDuration.WithLabelValues(task.Name).Observe(time.Since(began).Seconds())

		if len(acts) != len(batch) {
			return nil, fmt.Errorf("task %s: model returned %d items for batch of %d", task.Name, len(acts), len(batch))
		}

		for i, k := range batch {
			for _, l := range layers {
				rows := acts[i].Layers[l]
				if k.site >= len(rows) {
					return nil, fmt.Errorf("task %s example %d: site %d beyond %d tokens at layer %d",
						task.Name, k.ex.ID, k.site, len(rows), l)
				}
				vec := rows[k.site]
				if len(vec) != dim {
					return nil, fmt.Errorf("task %s example %d: vector width %d, model dim %d",
						task.Name, k.ex.ID, len(vec), dim)
				}
				for _, v := range vec {
					data[l] = append(data[l], float64(v))
				}
			}
			res.ExampleIDs = append(res.ExampleIDs, k.ex.ID)
			res.Labels = append(res.Labels, k.ex.Label)
		}
	}

	for _, l := range layers {
		res.Matrices[l] = mat.NewDense(len(res.ExampleIDs), dim, data[l])
	}
	res.Dropped = dropped
	metrics.ExamplesExtracted.WithLabelValues(task.Name).Add(float64(len(res.ExampleIDs)))

	log.Info("extraction complete",
		"examples", len(res.ExampleIDs),
		"dropped", len(dropped),
		"layers", len(layers),
		"dim", dim)
	return res, nil
}
