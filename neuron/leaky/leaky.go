// Package leaky implements a single-step leaky integrate-and-fire unit.
//
// Each Activate call performs exactly one integration step:
//
//	reset = 1 if P > threshold else 0
//	P'    = beta*P + I - reset*threshold
//	S     = 1 if P' > threshold else 0
//
// The output is the membrane potential P', not the spike train. Layers pass a
// nil state on every forward call, so the potential starts from zero each time.
package leaky

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/errs"
	"github.com/neurlang/ffsnn/neuron"
)

const (
	// DefaultBeta is the membrane decay per step.
	DefaultBeta = 0.9
	// DefaultThreshold is the firing threshold.
	DefaultThreshold = 1.0
)

// Unit is a leaky integrate-and-fire neuron with subtractive reset.
type Unit struct {
	Beta      float64
	Threshold float64
}

// New creates a unit with decay beta and firing threshold.
func New(beta, threshold float64) (Unit, error) {
	if math.IsNaN(beta) || beta < 0 || beta > 1 {
		return Unit{}, errs.Config("leaky: beta must be in [0, 1] (got %v)", beta)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		return Unit{}, errs.Config("leaky: threshold must be finite and > 0 (got %v)", threshold)
	}
	return Unit{Beta: beta, Threshold: threshold}, nil
}

// MustNew is New that panics on error.
func MustNew(beta, threshold float64) Unit {
	u, err := New(beta, threshold)
	if err != nil {
		panic(err.Error())
	}
	return u
}

// Default returns a unit with DefaultBeta and DefaultThreshold.
func Default() Unit {
	return Unit{Beta: DefaultBeta, Threshold: DefaultThreshold}
}

// Activate integrates in for one step on top of state.
func (u Unit) Activate(in *mat.Dense, state *neuron.State) (*mat.Dense, *neuron.State) {
	r, c := in.Dims()
	potential := mat.NewDense(r, c, nil)
	spikes := mat.NewDense(r, c, nil)
	var prev *mat.Dense
	if state != nil && state.Potential != nil {
		prev = state.Potential
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			p := in.At(i, j)
			if prev != nil {
				old := prev.At(i, j)
				p += u.Beta * old
				if old > u.Threshold {
					p -= u.Threshold
				}
			}
			potential.Set(i, j, p)
			if p > u.Threshold {
				spikes.Set(i, j, 1)
			}
		}
	}
	out := mat.DenseCopyOf(potential)
	return out, &neuron.State{Potential: potential, Spikes: spikes}
}

// Derivative is 1 everywhere: the reset term depends only on the previous
// potential and the output is the potential itself.
func (Unit) Derivative(in, _ *mat.Dense) *mat.Dense {
	r, c := in.Dims()
	d := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := d.RawRowView(i)
		for j := range row {
			row[j] = 1
		}
	}
	return d
}

// Kind reports neuron.KindLeaky.
func (Unit) Kind() neuron.Kind {
	return neuron.KindLeaky
}
