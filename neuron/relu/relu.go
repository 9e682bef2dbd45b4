// Package relu implements the stateless rectifying unit.
package relu

import (
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/neuron"
)

// Unit is max(0, x). It keeps no membrane state.
type Unit struct{}

// New creates a rectifying unit.
func New() Unit {
	return Unit{}
}

// Activate applies max(0, x); state is ignored and the next state is nil.
func (Unit) Activate(in *mat.Dense, _ *neuron.State) (*mat.Dense, *neuron.State) {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	}, in)
	return &out, nil
}

// Derivative is 1 where the input was positive and 0 elsewhere.
func (Unit) Derivative(in, _ *mat.Dense) *mat.Dense {
	var d mat.Dense
	d.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	}, in)
	return &d
}

// Kind reports neuron.KindRectifier.
func (Unit) Kind() neuron.Kind {
	return neuron.KindRectifier
}
