// Package datasets implements the labeled sample batches fed to Forward-Forward networks
package datasets

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/errs"
)

// Pixel statistics of the MNIST training set, used to standardise images
// so the background sits below zero.
const (
	PixelMean = 0.1307
	PixelStd  = 0.3081
)

// Standardize maps pixel intensities in [0, 1] to (v - PixelMean) / PixelStd in place.
func Standardize(img []float64) {
	for j, v := range img {
		img[j] = (v - PixelMean) / PixelStd
	}
}

// Batch is an ordered collection of feature vectors (rows of X) with one
// integer class label per row.
type Batch struct {
	X      *mat.Dense
	Labels []int
}

// NewBatch validates that x and labels describe the same samples.
func NewBatch(x *mat.Dense, labels []int) (Batch, error) {
	if x == nil {
		return Batch{}, errs.Shape("batch: nil features")
	}
	r, _ := x.Dims()
	if r != len(labels) {
		return Batch{}, errs.Shape("batch: %d rows but %d labels", r, len(labels))
	}
	return Batch{X: x, Labels: labels}, nil
}

// Len returns the number of samples.
func (b Batch) Len() int {
	return len(b.Labels)
}

// Dim returns the feature dimension.
func (b Batch) Dim() int {
	if b.X == nil {
		return 0
	}
	_, c := b.X.Dims()
	return c
}

// Set is a whole split held in memory, row i of Images paired with Labels[i].
type Set struct {
	Images [][]float64
	Labels []int
}

// Len returns the number of samples in the set.
func (s Set) Len() int {
	return len(s.Labels)
}

// Batch copies samples [offset, offset+n) into a Batch. n is clipped to the
// end of the set.
func (s Set) Batch(offset, n int) (Batch, error) {
	if offset < 0 || offset >= s.Len() {
		return Batch{}, errs.Shape("set: offset %d outside %d samples", offset, s.Len())
	}
	if offset+n > s.Len() {
		n = s.Len() - offset
	}
	if n <= 0 {
		return Batch{}, errs.Shape("set: empty batch requested")
	}
	dim := len(s.Images[offset])
	x := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		img := s.Images[offset+i]
		if len(img) != dim {
			return Batch{}, errs.Shape("set: sample %d has %d features, want %d", offset+i, len(img), dim)
		}
		x.SetRow(i, img)
	}
	labels := append([]int(nil), s.Labels[offset:offset+n]...)
	return Batch{X: x, Labels: labels}, nil
}

// Shuffle permutes the set in place.
func (s Set) Shuffle(rng *rand.Rand) {
	rng.Shuffle(s.Len(), func(i, j int) {
		s.Labels[i], s.Labels[j] = s.Labels[j], s.Labels[i]
		s.Images[i], s.Images[j] = s.Images[j], s.Images[i]
	})
}
