package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AlignmentFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "probe_alignment_failures_total",
		Help: "Examples dropped because the target word could not be aligned",
	}, []string{"task"})

	ExamplesExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "probe_examples_extracted_total",
		Help: "Examples with activations extracted across all layers",
	}, []string{"task"})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "probe_extraction_duration_seconds",
		Help:    "Wall-clock time of model activation batches",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	ProbeRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "probe_run_duration_seconds",
		Help:    "Wall-clock time of a single probe fit-and-predict pass",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	DegenerateReductions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "probe_degenerate_reductions_total",
		Help: "Layers where PCA yielded fewer components than requested",
	})

	TaskFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "probe_task_failures_total",
		Help: "Task branches aborted (label degeneracy or no usable examples)",
	})

	ExplainedVariance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "probe_pca_cumulative_explained_variance",
		Help: "Cumulative explained variance ratio of the kept components",
	}, []string{"task", "layer"})
)
