package learning

import (
	"math"

	"github.com/neurlang/ffsnn/errs"
)

// HyperParameters configures the Adam optimizer of one layer.
type HyperParameters struct {
	LearningRate float64 // step size

	Beta1 float64 // first moment decay
	Beta2 float64 // second moment decay
	Eps   float64 // added to the denominator for numerical stability

	WeightDecay float64 // L2 penalty added to the gradient (0 disables)
}

// DefaultHyperParameters returns Adam with learning rate 0.03.
func DefaultHyperParameters() HyperParameters {
	return HyperParameters{
		LearningRate: 0.03,
		Beta1:        0.9,
		Beta2:        0.999,
		Eps:          1e-8,
	}
}

// Validate reports whether the hyperparameters describe a usable optimizer.
func (h HyperParameters) Validate() error {
	if !(h.LearningRate > 0) || math.IsInf(h.LearningRate, 0) {
		return errs.Config("learning rate must be finite and > 0 (got %v)", h.LearningRate)
	}
	if h.Beta1 < 0 || h.Beta1 >= 1 || h.Beta2 < 0 || h.Beta2 >= 1 {
		return errs.Config("adam betas must be in [0, 1) (got %v, %v)", h.Beta1, h.Beta2)
	}
	if !(h.Eps > 0) {
		return errs.Config("adam eps must be > 0 (got %v)", h.Eps)
	}
	if h.WeightDecay < 0 {
		return errs.Config("weight decay must be >= 0 (got %v)", h.WeightDecay)
	}
	return nil
}
