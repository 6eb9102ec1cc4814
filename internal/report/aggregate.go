package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Summary is the terminal artifact per (layer, task, metric): the mean of the
// run samples with a two-sided Student's-t confidence interval.
type Summary struct {
	Layer  int
	Task   string
	Metric string
	Mean   float64
	CILow  float64
	CIHigh float64
	NRuns  int
}

// Summarize reduces run samples to one Summary per (layer, task, metric).
// The interval is mean ± t_crit * (sample_std / sqrt(n)) with n-1 degrees of
// freedom. A single run gives a zero-width interval at the mean; that is a
// defined edge case, not an error.
func Summarize(samples []Sample, confidence float64) ([]Summary, error) {
	if confidence <= 0 || confidence >= 1 {
		return nil, fmt.Errorf("summarize: confidence %v outside (0,1)", confidence)
	}

	type key struct {
		layer  int
		task   string
		metric string
	}
	groups := make(map[key][]float64)
	var order []key
	for _, s := range samples {
		k := key{s.Layer, s.Task, s.Metric}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], s.Value)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.task != b.task {
			return a.task < b.task
		}
		if a.layer != b.layer {
			return a.layer < b.layer
		}
		return a.metric < b.metric
	})

	out := make([]Summary, 0, len(order))
	for _, k := range order {
		values := groups[k]
		mean, err := stats.Mean(values)
		if err != nil {
			return nil, fmt.Errorf("summarize %s layer %d %s: %w", k.task, k.layer, k.metric, err)
		}

		half := 0.0
		if len(values) > 1 {
			sd, err := stats.StandardDeviationSample(values)
			if err != nil {
				return nil, fmt.Errorf("summarize %s layer %d %s: %w", k.task, k.layer, k.metric, err)
			}
			t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(values) - 1)}
			crit := t.Quantile(0.5 + confidence/2)
			half = crit * sd / math.Sqrt(float64(len(values)))
		}

		out = append(out, Summary{
			Layer:  k.layer,
			Task:   k.task,
			Metric: k.metric,
			Mean:   mean,
			CILow:  mean - half,
			CIHigh: mean + half,
			NRuns:  len(values),
		})
	}
	return out, nil
}
