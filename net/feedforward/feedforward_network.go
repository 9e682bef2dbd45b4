// Package feedforward implements a greedy layer-wise Forward-Forward network
package feedforward

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/device"
	"github.com/neurlang/ffsnn/errs"
	"github.com/neurlang/ffsnn/inference"
	"github.com/neurlang/ffsnn/layer"
	"github.com/neurlang/ffsnn/learning"
	"github.com/neurlang/ffsnn/neuron"
	"github.com/neurlang/ffsnn/neuron/leaky"
	"github.com/neurlang/ffsnn/neuron/relu"
	"github.com/neurlang/ffsnn/overlay"
)

// Options configure every layer built by FromDims.
type Options struct {
	Classes    int
	Activation string // "lif" or "relu"

	Threshold float64 // goodness threshold
	Epochs    int
	Bias      bool
	Optimizer learning.HyperParameters

	// Leaky unit parameters, ignored for relu.
	Beta           float64
	SpikeThreshold float64

	Seed int64
}

// DefaultOptions returns the reference setup for a classes-way classifier.
func DefaultOptions(classes int) Options {
	return Options{
		Classes:        classes,
		Activation:     "lif",
		Threshold:      2.0,
		Epochs:         1000,
		Bias:           true,
		Optimizer:      learning.DefaultHyperParameters(),
		Beta:           leaky.DefaultBeta,
		SpikeThreshold: leaky.DefaultThreshold,
	}
}

// NewUnit builds the neuron unit of the named kind.
func NewUnit(kind neuron.Kind, beta, spikeThreshold float64) (neuron.Unit, error) {
	switch kind {
	case neuron.KindLeaky:
		return leaky.New(beta, spikeThreshold)
	case neuron.KindRectifier:
		return relu.New(), nil
	}
	return nil, errs.Config("unsupported activation kind %d", kind)
}

// FeedforwardNetwork is an ordered stack of locally trained layers.
type FeedforwardNetwork struct {
	classes  int
	layers   []*layer.Layer
	dev      device.Context
	run      uuid.UUID
	observer Observer
}

// New assembles a network from already built layers. Adjacent widths must
// chain and the first layer must be wide enough to carry the label overlay.
func New(classes int, dev device.Context, layers ...*layer.Layer) (*FeedforwardNetwork, error) {
	if classes <= 0 {
		return nil, errs.Config("network: classes must be > 0 (got %d)", classes)
	}
	if len(layers) == 0 {
		return nil, errs.Config("network: no layers")
	}
	for i, l := range layers {
		if l.State() == layer.Uninitialized {
			return nil, errs.Config("network: layer %d is not initialized", i)
		}
		if i > 0 && layers[i-1].Config().Out != l.Config().In {
			return nil, errs.Shape("network: layer %d emits %d features, layer %d expects %d",
				i-1, layers[i-1].Config().Out, i, l.Config().In)
		}
	}
	if in := layers[0].Config().In; in < classes {
		return nil, errs.Shape("network: %d input features cannot carry %d labels", in, classes)
	}
	return &FeedforwardNetwork{
		classes:  classes,
		layers:   layers,
		dev:      dev,
		run:      uuid.New(),
		observer: NopObserver{},
	}, nil
}

// FromDims builds len(dims)-1 layers, layer i mapping dims[i] to dims[i+1].
// Layer i is seeded with opts.Seed+i.
func FromDims(dims []int, opts Options, dev device.Context) (*FeedforwardNetwork, error) {
	if len(dims) < 2 {
		return nil, errs.Config("network: need at least two dims, got %v", dims)
	}
	kind, err := neuron.ParseKind(opts.Activation)
	if err != nil {
		return nil, err
	}
	layers := make([]*layer.Layer, 0, len(dims)-1)
	for i := 0; i+1 < len(dims); i++ {
		unit, err := NewUnit(kind, opts.Beta, opts.SpikeThreshold)
		if err != nil {
			return nil, err
		}
		l, err := layer.New(layer.Config{
			In:        dims[i],
			Out:       dims[i+1],
			Unit:      unit,
			Threshold: opts.Threshold,
			Epochs:    opts.Epochs,
			Bias:      opts.Bias,
			Optimizer: opts.Optimizer,
			Seed:      opts.Seed + int64(i),
		}, dev)
		if err != nil {
			return nil, errs.WithLayer(err, i)
		}
		layers = append(layers, l)
	}
	return New(opts.Classes, dev, layers...)
}

// Classes returns the number of labels the network scores.
func (f *FeedforwardNetwork) Classes() int {
	return f.classes
}

// Len returns the number of layers.
func (f *FeedforwardNetwork) Len() int {
	return len(f.layers)
}

// GetLayer returns the n-th layer.
func (f *FeedforwardNetwork) GetLayer(n int) *layer.Layer {
	if n < 0 || n >= len(f.layers) {
		return nil
	}
	return f.layers[n]
}

// Dims returns the input width followed by every layer's output width.
func (f *FeedforwardNetwork) Dims() []int {
	dims := []int{f.layers[0].Config().In}
	for _, l := range f.layers {
		dims = append(dims, l.Config().Out)
	}
	return dims
}

// RunID identifies the training run. It changes on every Train call and is
// restored when weights are read back.
func (f *FeedforwardNetwork) RunID() uuid.UUID {
	return f.run
}

// SetObserver installs o to receive training events. nil disables events.
func (f *FeedforwardNetwork) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	f.observer = o
}

// Train trains the layers one after another. Layer i+1 is trained on the
// outputs of the already trained layer i. It returns one loss history per
// layer reached.
//
// When a layer fails its partial history is included, the error carries the
// layer index, earlier layers keep their training and later layers are not
// touched.
func (f *FeedforwardNetwork) Train(ctx context.Context, xPos, xNeg *mat.Dense) ([][]float64, error) {
	if xPos == nil || xNeg == nil {
		return nil, errs.Shape("network: nil training batch")
	}
	if _, c := xPos.Dims(); c != f.layers[0].Config().In {
		return nil, errs.Shape("network: positive batch has %d features, network expects %d", c, f.layers[0].Config().In)
	}
	if _, c := xNeg.Dims(); c != f.layers[0].Config().In {
		return nil, errs.Shape("network: negative batch has %d features, network expects %d", c, f.layers[0].Config().In)
	}
	for i, l := range f.layers {
		if err := l.Validate(); err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
	}

	f.run = uuid.New()
	losses := make([][]float64, 0, len(f.layers))
	pos, neg := xPos, xNeg
	for i, l := range f.layers {
		i := i
		res, err := l.Train(ctx, pos, neg, func(epoch int, loss float64) {
			f.observer.OnEpoch(Event{Run: f.run, Layer: i, Epoch: epoch, Loss: loss})
		})
		if err != nil {
			if res.Losses != nil {
				losses = append(losses, res.Losses)
			}
			return losses, errs.WithLayer(err, i)
		}
		losses = append(losses, res.Losses)
		f.observer.OnLayerDone(LayerDone{Run: f.run, Layer: i, Losses: res.Losses, SpikeRate: res.SpikeRate})
		pos, neg = res.Pos.Dense(), res.Neg.Dense()
	}
	return losses, nil
}

// Scores returns the N x Classes matrix of goodness summed over all layers,
// with each label overlaid in turn.
func (f *FeedforwardNetwork) Scores(x *mat.Dense) (*mat.Dense, error) {
	if x == nil {
		return nil, errs.Shape("network: nil batch")
	}
	n, c := x.Dims()
	if c != f.layers[0].Config().In {
		return nil, errs.Shape("network: batch has %d features, network expects %d", c, f.layers[0].Config().In)
	}
	if n == 0 {
		return nil, errs.Shape("network: empty batch")
	}

	scores := mat.NewDense(n, f.classes, nil)
	failed := make([]error, f.classes)
	f.dev.Rows(f.classes, n*c, func(label int) {
		h, err := overlay.Overlay(x, overlay.Fill(n, label), f.classes)
		if err != nil {
			failed[label] = err
			return
		}
		for i, l := range f.layers {
			h, err = l.Forward(h)
			if err != nil {
				failed[label] = errs.WithLayer(err, i)
				return
			}
			inference.Accumulate(scores, label, inference.Goodness(h))
		}
	})
	for _, err := range failed {
		if err != nil {
			return nil, err
		}
	}
	return scores, nil
}

// Predict returns the label with the largest summed goodness for every row
// of x. Ties go to the smallest label.
func (f *FeedforwardNetwork) Predict(x *mat.Dense) ([]int, error) {
	scores, err := f.Scores(x)
	if err != nil {
		return nil, err
	}
	return inference.Argmax(scores), nil
}
