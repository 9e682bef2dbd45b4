// Package learning implements the first-order optimizer each layer owns.
package learning

import "math"

// Parameter is a trainable tensor flattened to a slice, with its gradient.
// Value aliases the owner's storage; the optimizer updates it in place.
type Parameter struct {
	Name  string
	Value []float64
	Grad  []float64
}

// NewParameter wraps value with a zeroed gradient of the same length.
func NewParameter(name string, value []float64) *Parameter {
	return &Parameter{Name: name, Value: value, Grad: make([]float64, len(value))}
}

// Optimizer updates the parameters it was bound to from their gradients.
type Optimizer interface {

	// ZeroGrad clears all gradients.
	ZeroGrad()

	// Step applies one update from the current gradients.
	Step()

	// Steps reports the number of updates applied so far.
	Steps() int
}

type moments struct {
	m []float64 // first moment (mean of gradients)
	v []float64 // second moment (mean of squared gradients)
}

// Adam is bound to a fixed parameter list at construction.
type Adam struct {
	h      HyperParameters
	params []*Parameter
	states []moments
	step   int
}

// NewAdam binds an Adam optimizer to params.
func NewAdam(h HyperParameters, params ...*Parameter) (*Adam, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	states := make([]moments, len(params))
	for i, p := range params {
		states[i] = moments{
			m: make([]float64, len(p.Value)),
			v: make([]float64, len(p.Value)),
		}
	}
	return &Adam{h: h, params: params, states: states}, nil
}

// ZeroGrad clears the gradients of the bound parameters.
func (a *Adam) ZeroGrad() {
	for _, p := range a.params {
		for i := range p.Grad {
			p.Grad[i] = 0
		}
	}
}

// Step performs one bias-corrected Adam update:
//
//	m = beta1*m + (1-beta1)*g
//	v = beta2*v + (1-beta2)*g^2
//	w -= lr * (m/(1-beta1^t)) / (sqrt(v/(1-beta2^t)) + eps)
func (a *Adam) Step() {
	a.step++
	b1, b2, eps, lr, wd := a.h.Beta1, a.h.Beta2, a.h.Eps, a.h.LearningRate, a.h.WeightDecay
	mCorr := 1 / (1 - math.Pow(b1, float64(a.step)))
	vCorr := 1 / (1 - math.Pow(b2, float64(a.step)))

	for i, p := range a.params {
		m, v := a.states[i].m, a.states[i].v
		for j := range p.Value {
			g := p.Grad[j] + wd*p.Value[j]
			m[j] = b1*m[j] + (1-b1)*g
			v[j] = b2*v[j] + (1-b2)*g*g
			p.Value[j] -= lr * (m[j] * mCorr) / (math.Sqrt(v[j]*vCorr) + eps)
		}
	}
}

// Steps reports the number of updates applied.
func (a *Adam) Steps() int {
	return a.step
}

// HyperParameters returns the configuration the optimizer was built with.
func (a *Adam) HyperParameters() HyperParameters {
	return a.h
}
