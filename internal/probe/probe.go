package probe

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/23skdu/layerlens/internal/metrics"
)

// Multinomial softmax-regression probe over a reduced representation.
//
// There is deliberately no train/test split: the probe is fit and evaluated on
// the same rows. The quantity being measured is the representational capacity
// of a layer (how linearly decodable the label is), not generalization. Do not
// "fix" this by holding data out.

const (
	maxEpochs    = 2000
	learningRate = 0.5
	initScale    = 0.01
	tolerance    = 1e-7
)

// Train fits one probe from scratch and returns a predicted label for every
// row of x. The seed drives only the weight initialization; identical seeds
// give identical predictions. Fewer than two distinct labels is a dataset
// configuration error and fails loudly.
func Train(x *mat.Dense, labels []string, seed int64) ([]string, error) {
	rows, cols := x.Dims()
	if rows != len(labels) {
		return nil, fmt.Errorf("probe: %d rows but %d labels", rows, len(labels))
	}

	classes := distinctSorted(labels)
	if len(classes) < 2 {
		return nil, fmt.Errorf("probe: need at least 2 classes, have %d", len(classes))
	}
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	// Standardize features for the optimizer. This is an affine transform of
	// the input, so the fitted model stays a linear classifier over the
	// reduced space.
	feat := standardize(x)
	nClasses := len(classes)

	// Weights laid out (cols+1) x nClasses, last row is the bias.
	rng := rand.New(rand.NewSource(seed))
	w := make([]float64, (cols+1)*nClasses)
	for i := range w {
		w[i] = rng.NormFloat64() * initScale
	}

	y := make([]int, rows)
	for i, l := range labels {
		y[i] = classIdx[l]
	}

	logits := make([]float64, nClasses)
	grad := make([]float64, len(w))
	prevLoss := math.Inf(1)

	for epoch := 0; epoch < maxEpochs; epoch++ {
		for i := range grad {
			grad[i] = 0
		}
		loss := 0.0

		for r := 0; r < rows; r++ {
			forward(feat, r, cols, w, nClasses, logits)
			softmaxInPlace(logits)
			loss -= math.Log(math.Max(logits[y[r]], 1e-300))

			for c := 0; c < nClasses; c++ {
				delta := logits[c]
				if c == y[r] {
					delta -= 1
				}
				for j := 0; j < cols; j++ {
					grad[j*nClasses+c] += delta * feat[r*cols+j]
				}
				grad[cols*nClasses+c] += delta
			}
		}

		scale := learningRate / float64(rows)
		for i := range w {
			w[i] -= scale * grad[i]
		}

		loss /= float64(rows)
		if math.Abs(prevLoss-loss) < tolerance {
			break
		}
		prevLoss = loss
	}

	preds := make([]string, rows)
	for r := 0; r < rows; r++ {
		forward(feat, r, cols, w, nClasses, logits)
		best := 0
		for c := 1; c < nClasses; c++ {
			if logits[c] > logits[best] {
				best = c
			}
		}
		preds[r] = classes[best]
	}
	return preds, nil
}

// Runs trains n independent probes, varying only the seed (base+run). Each
// run fits from scratch; no state is shared between runs.
func Runs(x *mat.Dense, labels []string, n int, baseSeed int64, task string) ([][]string, error) {
	out := make([][]string, n)
	for run := 0; run < n; run++ {
		began := time.Now()
		preds, err := Train(x, labels, baseSeed+int64(run))
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", run, err)
		}
		metrics.ProbeRunDuration.WithLabelValues(task).Observe(time.Since(began).Seconds())
		out[run] = preds
	}
	return out, nil
}

func forward(feat []float64, row, cols int, w []float64, nClasses int, logits []float64) {
	for c := 0; c < nClasses; c++ {
		logits[c] = w[cols*nClasses+c] // bias
	}
	for j := 0; j < cols; j++ {
		v := feat[row*cols+j]
		if v == 0 {
			continue
		}
		for c := 0; c < nClasses; c++ {
			logits[c] += v * w[j*nClasses+c]
		}
	}
}

func softmaxInPlace(x []float64) {
	max := x[0]
	for _, v := range x {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	for i := range x {
		x[i] = math.Exp(x[i] - max)
		sum += x[i]
	}
	if sum > 0 {
		inv := 1 / sum
		for i := range x {
			x[i] *= inv
		}
	}
}

// standardize returns row-major features with zero mean and unit variance per
// column; constant columns pass through centered.
func standardize(x *mat.Dense) []float64 {
	rows, cols := x.Dims()
	out := make([]float64, rows*cols)
	for j := 0; j < cols; j++ {
		var sum, sumSq float64
		for i := 0; i < rows; i++ {
			v := x.At(i, j)
			sum += v
			sumSq += v * v
		}
		mean := sum / float64(rows)
		std := math.Sqrt(math.Max(sumSq/float64(rows)-mean*mean, 0))
		if std == 0 {
			std = 1
		}
		for i := 0; i < rows; i++ {
			out[i*cols+j] = (x.At(i, j) - mean) / std
		}
	}
	return out
}

func distinctSorted(labels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}
