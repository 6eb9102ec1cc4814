package report

import (
	"math"
)

// Metric names attached to samples.
const (
	MetricMutualInformation = "mutual_information"
	MetricAccuracy          = "accuracy"
	MetricF1Macro           = "f1_macro"
)

// Sample is one scalar measurement from one probe run.
type Sample struct {
	Layer  int
	Task   string
	Run    int
	Metric string
	Value  float64
}

// Evaluate scores one probe run's predictions against the truth and returns
// the three per-run samples.
func Evaluate(task string, layer, run int, truth, preds []string) []Sample {
	return []Sample{
		{Layer: layer, Task: task, Run: run, Metric: MetricMutualInformation, Value: MutualInformation(truth, preds)},
		{Layer: layer, Task: task, Run: run, Metric: MetricAccuracy, Value: Accuracy(truth, preds)},
		{Layer: layer, Task: task, Run: run, Metric: MetricF1Macro, Value: MacroF1(truth, preds)},
	}
}

// MutualInformation is the empirical mutual information between the true and
// predicted label distributions, in nats. Zero iff the two are independent
// under the empirical estimate; never negative.
func MutualInformation(truth, preds []string) float64 {
	n := len(truth)
	if n == 0 || n != len(preds) {
		return 0
	}

	joint := make(map[[2]string]int)
	truthCount := make(map[string]int)
	predCount := make(map[string]int)
	for i := 0; i < n; i++ {
		joint[[2]string{truth[i], preds[i]}]++
		truthCount[truth[i]]++
		predCount[preds[i]]++
	}

	mi := 0.0
	fn := float64(n)
	for pair, c := range joint {
		pxy := float64(c) / fn
		px := float64(truthCount[pair[0]]) / fn
		py := float64(predCount[pair[1]]) / fn
		mi += pxy * math.Log(pxy/(px*py))
	}
	if mi < 0 {
		// Rounding noise only; empirical MI is non-negative.
		mi = 0
	}
	return mi
}

// Accuracy is the fraction of exact prediction matches.
func Accuracy(truth, preds []string) float64 {
	if len(truth) == 0 || len(truth) != len(preds) {
		return 0
	}
	correct := 0
	for i := range truth {
		if truth[i] == preds[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(truth))
}

// MacroF1 is the unweighted mean of per-class F1 over the classes observed in
// either the truth or the predictions. A class with zero precision and recall
// contributes an F1 of 0; there is no silent division by zero.
func MacroF1(truth, preds []string) float64 {
	if len(truth) == 0 || len(truth) != len(preds) {
		return 0
	}

	classes := make(map[string]bool)
	for _, l := range truth {
		classes[l] = true
	}
	for _, l := range preds {
		classes[l] = true
	}

	var sum float64
	for class := range classes {
		var tp, fp, fn int
		for i := range truth {
			predIs := preds[i] == class
			truthIs := truth[i] == class
			switch {
			case predIs && truthIs:
				tp++
			case predIs && !truthIs:
				fp++
			case !predIs && truthIs:
				fn++
			}
		}
		// F1 = 2tp / (2tp + fp + fn); zero-support convention: 0.
		denom := float64(2*tp + fp + fn)
		if denom > 0 {
			sum += 2 * float64(tp) / denom
		}
	}
	return sum / float64(len(classes))
}
