package extract

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/layerlens/internal/logger"
)

// Stats summarizes one layer's activation matrix. Used to spot dead layers
// and datasets with no class signal before any probe is trained.
type Stats struct {
	Mean        float64
	Std         float64
	Min         float64
	Max         float64
	ZeroVarDims int
	// Separability is the between-class variance of the two class means
	// over the total variance; only set for binary tasks.
	Separability float64
}

// Diagnose computes activation statistics for one layer of a result.
func (r *Result) Diagnose(layer int) Stats {
	m := r.Matrices[layer]
	rows, cols := m.Dims()

	var s Stats
	s.Min = math.Inf(1)
	s.Max = math.Inf(-1)

	var sum, sumSq float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			sum += v
			sumSq += v * v
			if v < s.Min {
				s.Min = v
			}
			if v > s.Max {
				s.Max = v
			}
		}
	}
	n := float64(rows * cols)
	s.Mean = sum / n
	s.Std = math.Sqrt(sumSq/n - s.Mean*s.Mean)

	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, m)
		if variance(col) < 1e-10 {
			s.ZeroVarDims++
		}
	}

	classes := distinct(r.Labels)
	if len(classes) == 2 {
		m0 := classMean(m, r.Labels, classes[0])
		m1 := classMean(m, r.Labels, classes[1])
		between := (m0 - m1) * (m0 - m1) / 2
		total := sumSq/n - s.Mean*s.Mean
		s.Separability = between / (total + 1e-10)
	}
	return s
}

// LogDiagnostics writes one layer's statistics through the stage logger.
func (r *Result) LogDiagnostics(layer int) {
	s := r.Diagnose(layer)
	log := logger.Log.Stage("diagnostics").Task(r.Task)
	log.Debug("layer activations",
		"layer", layer,
		"mean", s.Mean,
		"std", s.Std,
		"min", s.Min,
		"max", s.Max,
		"zero_var_dims", s.ZeroVarDims,
		"separability", s.Separability)
}

func variance(xs []float64) float64 {
	var sum, sumSq float64
	for _, v := range xs {
		sum += v
		sumSq += v * v
	}
	n := float64(len(xs))
	m := sum / n
	return sumSq/n - m*m
}

func classMean(m *mat.Dense, labels []string, class string) float64 {
	rows, cols := m.Dims()
	var sum float64
	var count int
	for i := 0; i < rows; i++ {
		if labels[i] != class {
			continue
		}
		for j := 0; j < cols; j++ {
			sum += m.At(i, j)
		}
		count += cols
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
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
