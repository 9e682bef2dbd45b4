// Package inference implements goodness scoring and label selection for Forward-Forward networks
package inference

import (
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/errs"
)

// Goodness returns the mean of squared activations of every row of h.
func Goodness(h *mat.Dense) []float64 {
	r, c := h.Dims()
	g := make([]float64, r)
	for i := range g {
		var sum float64
		for _, v := range h.RawRowView(i) {
			sum += v * v
		}
		g[i] = sum / float64(c)
	}
	return g
}

// Accumulate adds goodness g into column label of scores.
func Accumulate(scores *mat.Dense, label int, g []float64) {
	for i, v := range g {
		scores.Set(i, label, scores.At(i, label)+v)
	}
}

// Argmax returns, for each row, the column of its largest value. Ties go to
// the lowest column index.
func Argmax(scores *mat.Dense) []int {
	r, _ := scores.Dims()
	out := make([]int, r)
	for i := range out {
		row := scores.RawRowView(i)
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// Accuracy returns the fraction of predicted labels equal to the expected ones.
func Accuracy(predicted, expected []int) (float64, error) {
	if len(predicted) != len(expected) {
		return 0, errs.Shape("accuracy: %d predictions for %d labels", len(predicted), len(expected))
	}
	if len(expected) == 0 {
		return 0, nil
	}
	var hits int
	for i := range expected {
		if predicted[i] == expected[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(expected)), nil
}
