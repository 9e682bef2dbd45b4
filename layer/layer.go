// Package layer implements the Forward-Forward local-learning layer.
//
// A layer normalises its input rows, applies a linear map and a neuron unit,
// and trains itself by pushing the goodness (mean squared output) of positive
// samples above a threshold and of negative samples below it. The gradient
// never leaves the layer: Train only ever updates this layer's own weight,
// bias and optimizer state.
package layer

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/device"
	"github.com/neurlang/ffsnn/errs"
	"github.com/neurlang/ffsnn/inference"
	"github.com/neurlang/ffsnn/learning"
	"github.com/neurlang/ffsnn/neuron"
	"github.com/neurlang/ffsnn/neuron/leaky"
	"github.com/neurlang/ffsnn/parallel"
)

// normEps keeps the row normalisation finite for all-zero rows.
const normEps = 1e-4

// State is the lifecycle stage of a layer.
type State uint8

const (
	Uninitialized State = iota
	Ready
	Trained
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Trained:
		return "trained"
	default:
		return "uninitialized"
	}
}

// Config describes one layer.
type Config struct {
	In  int // input features
	Out int // output features

	Unit      neuron.Unit
	Threshold float64 // goodness threshold
	Epochs    int     // optimisation steps per Train call
	Bias      bool    // whether to learn a bias vector

	Optimizer learning.HyperParameters

	Seed int64 // weight initialisation seed
}

// DefaultConfig returns the reference configuration: a leaky unit,
// threshold 2, 1000 epochs and Adam with learning rate 0.03.
func DefaultConfig(in, out int) Config {
	return Config{
		In:        in,
		Out:       out,
		Unit:      leaky.Default(),
		Threshold: 2.0,
		Epochs:    1000,
		Bias:      true,
		Optimizer: learning.DefaultHyperParameters(),
	}
}

// Layer is a linear map followed by a neuron unit, trained locally.
type Layer struct {
	cfg   Config
	dev   device.Context
	w     *mat.Dense // [Out, In]
	b     []float64  // [Out] or nil
	opt   learning.Optimizer
	grads []*learning.Parameter
	state State
}

// New creates a layer with weights drawn from U(-1/sqrt(In), 1/sqrt(In)) and
// a zero bias.
func New(cfg Config, dev device.Context) (*Layer, error) {
	if cfg.In <= 0 || cfg.Out <= 0 {
		return nil, errs.Config("layer: dimensions must be > 0 (got %dx%d)", cfg.Out, cfg.In)
	}
	if cfg.Unit == nil {
		return nil, errs.Config("layer: nil neuron unit")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	bound := 1 / math.Sqrt(float64(cfg.In))
	data := make([]float64, cfg.Out*cfg.In)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * bound
	}
	l := &Layer{
		cfg: cfg,
		dev: dev,
		w:   mat.NewDense(cfg.Out, cfg.In, data),
	}
	l.grads = []*learning.Parameter{learning.NewParameter("weight", data)}
	if cfg.Bias {
		l.b = make([]float64, cfg.Out)
		l.grads = append(l.grads, learning.NewParameter("bias", l.b))
	}
	opt, err := learning.NewAdam(cfg.Optimizer, l.grads...)
	if err != nil {
		return nil, err
	}
	l.opt = opt
	l.state = Ready
	return l, nil
}

// MustNew is New that panics on error.
func MustNew(cfg Config, dev device.Context) *Layer {
	l, err := New(cfg, dev)
	if err != nil {
		panic(err.Error())
	}
	return l
}

// Config returns the configuration the layer was built with.
func (l *Layer) Config() Config {
	return l.cfg
}

// Unit returns the neuron unit.
func (l *Layer) Unit() neuron.Unit {
	return l.cfg.Unit
}

// State reports the lifecycle stage.
func (l *Layer) State() State {
	if l == nil {
		return Uninitialized
	}
	return l.state
}

// Steps reports how many optimizer updates the layer has applied.
func (l *Layer) Steps() int {
	if l.opt == nil {
		return 0
	}
	return l.opt.Steps()
}

// Weights returns a copy of the [Out, In] weight matrix.
func (l *Layer) Weights() *mat.Dense {
	return mat.DenseCopyOf(l.w)
}

// Bias returns a copy of the bias, or nil when the layer has none.
func (l *Layer) Bias() []float64 {
	if l.b == nil {
		return nil
	}
	return append([]float64(nil), l.b...)
}

// SetParameters overwrites the weights and bias, for restoring a saved layer.
func (l *Layer) SetParameters(w []float64, b []float64) error {
	if err := l.ready(); err != nil {
		return err
	}
	if len(w) != l.cfg.Out*l.cfg.In {
		return errs.Shape("layer: %d weights for a %dx%d layer", len(w), l.cfg.Out, l.cfg.In)
	}
	if (l.b == nil) != (b == nil) || len(b) != len(l.b) {
		return errs.Shape("layer: %d bias values for a layer with %d", len(b), len(l.b))
	}
	copy(l.w.RawMatrix().Data, w)
	copy(l.b, b)
	l.state = Trained
	return nil
}

// Fingerprint hashes the layer parameters.
func (l *Layer) Fingerprint() [32]byte {
	return parallel.Fingerprint(l.w.RawMatrix().Data, l.b)
}

func (l *Layer) ready() error {
	if l == nil || l.w == nil {
		return errs.Config("layer: not initialized")
	}
	return nil
}

func (l *Layer) checkInput(x *mat.Dense) error {
	if x == nil {
		return errs.Shape("layer: nil input")
	}
	r, c := x.Dims()
	if c != l.cfg.In {
		return errs.Shape("layer: input has %d features, layer expects %d", c, l.cfg.In)
	}
	if r == 0 {
		return errs.Shape("layer: empty batch")
	}
	return nil
}

// normalize scales every row of x to unit L2 norm.
func (l *Layer) normalize(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	out := mat.DenseCopyOf(x)
	l.dev.Rows(r, c, func(i int) {
		row := out.RawRowView(i)
		floats.Scale(1/(floats.Norm(row, 2)+normEps), row)
	})
	return out
}

// linear computes xn * W^T + b.
func (l *Layer) linear(xn *mat.Dense) *mat.Dense {
	r, _ := xn.Dims()
	z := mat.NewDense(r, l.cfg.Out, nil)
	z.Mul(xn, l.w.T())
	if l.b != nil {
		l.dev.Rows(r, l.cfg.Out, func(i int) {
			floats.Add(z.RawRowView(i), l.b)
		})
	}
	return z
}

// Forward returns the layer output (the membrane potential for leaky units).
// The neuron starts from a fresh state on every call.
func (l *Layer) Forward(x *mat.Dense) (*mat.Dense, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	if err := l.checkInput(x); err != nil {
		return nil, err
	}
	out, _ := l.cfg.Unit.Activate(l.linear(l.normalize(x)), nil)
	return out, nil
}

// Goodness returns the per-sample goodness of the layer output for x.
func (l *Layer) Goodness(x *mat.Dense) ([]float64, error) {
	h, err := l.Forward(x)
	if err != nil {
		return nil, err
	}
	return inference.Goodness(h), nil
}
