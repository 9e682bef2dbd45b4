// Package neuron defines the activation unit interface shared by Forward-Forward layers.
package neuron

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/errs"
)

// Kind names an activation unit variant.
type Kind uint8

const (
	// KindLeaky is the single-step leaky integrate-and-fire unit.
	KindLeaky Kind = iota
	// KindRectifier is the stateless max(0, x) unit.
	KindRectifier
)

func (k Kind) String() string {
	switch k {
	case KindLeaky:
		return "lif"
	case KindRectifier:
		return "relu"
	default:
		return "unknown"
	}
}

// ParseKind resolves a configuration string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lif", "leaky":
		return KindLeaky, nil
	case "relu", "rectifier":
		return KindRectifier, nil
	}
	return 0, errs.Config("unsupported activation %q", s)
}

// State is the membrane state carried between activations. A nil State is a
// freshly reset neuron with zero potential.
type State struct {
	Potential *mat.Dense
	Spikes    *mat.Dense
}

// Unit maps a weighted input to an output activation.
type Unit interface {

	// Activate integrates in on top of state and returns the output plus the
	// next state. It must not modify in or state.
	Activate(in *mat.Dense, state *State) (out *mat.Dense, next *State)

	// Derivative returns d(out)/d(in) elementwise for an in/out pair produced
	// by Activate with a fresh state.
	Derivative(in, out *mat.Dense) *mat.Dense

	// Kind reports the variant.
	Kind() Kind
}

// SpikeRate returns the fraction of units that fired in state. Stateless
// units report zero.
func SpikeRate(state *State) float64 {
	if state == nil || state.Spikes == nil {
		return 0
	}
	r, c := state.Spikes.Dims()
	if r*c == 0 {
		return 0
	}
	return mat.Sum(state.Spikes) / float64(r*c)
}
