// Package overlay encodes class labels into the leading features of input vectors.
package overlay

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/datasets"
	"github.com/neurlang/ffsnn/errs"
)

// Overlay returns a copy of x where, in every row i, the first classes
// features are zeroed and feature y[i] is set to the maximum value of the
// whole batch. Features from classes onward are copied unchanged.
func Overlay(x *mat.Dense, y []int, classes int) (*mat.Dense, error) {
	if classes <= 0 {
		return nil, errs.Config("overlay: classes must be > 0 (got %d)", classes)
	}
	if x == nil {
		return nil, errs.Shape("overlay: nil batch")
	}
	r, c := x.Dims()
	if c < classes {
		return nil, errs.Shape("overlay: feature dimension %d smaller than %d classes", c, classes)
	}
	if len(y) != r {
		return nil, errs.Shape("overlay: %d rows but %d labels", r, len(y))
	}
	for i, label := range y {
		if label < 0 || label >= classes {
			return nil, errs.Shape("overlay: label %d of sample %d outside [0, %d)", label, i, classes)
		}
	}
	peak := mat.Max(x)
	out := mat.DenseCopyOf(x)
	for i, label := range y {
		row := out.RawRowView(i)
		floats.Scale(0, row[:classes])
		row[label] = peak
	}
	return out, nil
}

// Fill returns n copies of label.
func Fill(n, label int) []int {
	y := make([]int, n)
	for i := range y {
		y[i] = label
	}
	return y
}

// Permute returns the labels shuffled by a random permutation. Negative
// samples built from it carry plausible labels that usually, but not always,
// differ from the true ones.
func Permute(y []int, rng *rand.Rand) []int {
	perm := rng.Perm(len(y))
	out := make([]int, len(y))
	for i, p := range perm {
		out[i] = y[p]
	}
	return out
}

// Pairs builds the positive (true label) and negative (permuted label)
// overlays of a batch.
func Pairs(b datasets.Batch, classes int, rng *rand.Rand) (pos, neg *mat.Dense, err error) {
	pos, err = Overlay(b.X, b.Labels, classes)
	if err != nil {
		return nil, nil, err
	}
	neg, err = Overlay(b.X, Permute(b.Labels, rng), classes)
	if err != nil {
		return nil, nil, err
	}
	return pos, neg, nil
}
