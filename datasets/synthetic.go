package datasets

import (
	"math/rand"

	"github.com/neurlang/ffsnn/errs"
)

// Synthetic generates an MNIST-like set: each class owns a random sparse
// prototype in [0, 1] and samples are noisy copies of their prototype,
// standardised with the MNIST pixel statistics like the loaded digits.
// The labels cycle through the classes so every class is present once n >= classes.
func Synthetic(n, dim, classes int, seed int64) (Set, error) {
	if n <= 0 || classes <= 0 {
		return Set{}, errs.Config("synthetic: n and classes must be > 0 (got %d, %d)", n, classes)
	}
	if dim < classes {
		return Set{}, errs.Shape("synthetic: dim %d smaller than %d classes", dim, classes)
	}
	rng := rand.New(rand.NewSource(seed))
	prototypes := make([][]float64, classes)
	for c := range prototypes {
		p := make([]float64, dim)
		for j := range p {
			if rng.Float64() < 0.2 {
				p[j] = 0.5 + 0.5*rng.Float64()
			}
		}
		prototypes[c] = p
	}
	set := Set{
		Images: make([][]float64, n),
		Labels: make([]int, n),
	}
	for i := 0; i < n; i++ {
		c := i % classes
		img := make([]float64, dim)
		for j, v := range prototypes[c] {
			v += 0.1 * rng.NormFloat64()
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			img[j] = v
		}
		Standardize(img)
		set.Images[i] = img
		set.Labels[i] = c
	}
	return set, nil
}
