package reduce

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/layerlens/internal/logger"
	"github.com/23skdu/layerlens/internal/metrics"
)

// Reduction is the output of a per-layer PCA fit. The basis is fit on that
// layer's activations alone; there is no cross-layer sharing.
type Reduction struct {
	Requested  int
	Components int // actual, <= Requested when the data is rank-deficient
	Degenerate bool

	// Basis columns are the principal directions (dim x Components).
	Basis *mat.Dense
	// Projected is the reduced representation (examples x Components).
	Projected *mat.Dense
	// ExplainedVariance holds the per-component explained variance ratio,
	// non-negative and non-increasing.
	ExplainedVariance []float64
}

// CumulativeVariance is the fraction of total variance the kept components
// capture.
func (r *Reduction) CumulativeVariance() float64 {
	var sum float64
	for _, v := range r.ExplainedVariance {
		sum += v
	}
	return sum
}

// PCA centers x column-wise and projects it onto the top nComponents
// right-singular directions. Features are not scaled to unit variance: each
// neuron keeps its natural variance contribution. The decomposition is
// numerically deterministic, so repeated runs on identical input agree.
//
// When nComponents exceeds the matrix rank the reduction narrows to the
// available rank instead of padding with zeros; callers must adapt to
// r.Components.
func PCA(x *mat.Dense, nComponents int) (*Reduction, error) {
	rows, cols := x.Dims()
	if rows < 2 {
		return nil, fmt.Errorf("pca: need at least 2 rows, have %d", rows)
	}
	if nComponents <= 0 {
		return nil, fmt.Errorf("pca: invalid component count %d", nComponents)
	}

	centered := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, x)
		var mean float64
		for _, v := range col {
			mean += v
		}
		mean /= float64(rows)
		for i := 0; i < rows; i++ {
			centered.Set(i, j, col[i]-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, fmt.Errorf("pca: SVD failed to converge")
	}

	s := svd.Values(nil)
	var total float64
	for _, v := range s {
		total += v * v
	}
	if total == 0 {
		return nil, fmt.Errorf("pca: matrix has no variance")
	}

	// Effective rank: singular values below tolerance carry no signal.
	tol := s[0] * 1e-12
	rank := 0
	for _, v := range s {
		if v > tol {
			rank++
		}
	}

	k := nComponents
	if k > rank {
		k = rank
	}

	var v mat.Dense
	svd.VTo(&v)
	basis := mat.DenseCopyOf(v.Slice(0, cols, 0, k))

	projected := mat.NewDense(rows, k, nil)
	projected.Mul(centered, basis)

	evr := make([]float64, k)
	for i := 0; i < k; i++ {
		evr[i] = s[i] * s[i] / total
	}

	r := &Reduction{
		Requested:         nComponents,
		Components:        k,
		Degenerate:        k < nComponents,
		Basis:             basis,
		Projected:         projected,
		ExplainedVariance: evr,
	}
	if r.Degenerate {
		metrics.DegenerateReductions.Inc()
		logger.Log.Stage("reduce").Warn("rank-deficient layer",
			"requested", nComponents, "kept", k, "rank", rank)
	}
	return r, nil
}
