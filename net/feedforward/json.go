package feedforward

import (
	"compress/lzw"
	"encoding/json"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/neurlang/ffsnn/device"
	"github.com/neurlang/ffsnn/errs"
	"github.com/neurlang/ffsnn/layer"
	"github.com/neurlang/ffsnn/neuron"
	"github.com/neurlang/ffsnn/neuron/leaky"
)

type jsonLayer struct {
	In             int       `json:"in"`
	Out            int       `json:"out"`
	Kind           string    `json:"kind"`
	Threshold      float64   `json:"threshold"`
	Beta           float64   `json:"beta,omitempty"`
	SpikeThreshold float64   `json:"spike_threshold,omitempty"`
	Weights        []float64 `json:"weights"`
	Bias           []float64 `json:"bias,omitempty"`
}

type jsonNetwork struct {
	Run     string      `json:"run"`
	Classes int         `json:"classes"`
	Layers  []jsonLayer `json:"layers"`
}

func (f *FeedforwardNetwork) toJSON() jsonNetwork {
	out := jsonNetwork{Run: f.run.String(), Classes: f.classes}
	for _, l := range f.layers {
		cfg := l.Config()
		jl := jsonLayer{
			In:        cfg.In,
			Out:       cfg.Out,
			Kind:      cfg.Unit.Kind().String(),
			Threshold: cfg.Threshold,
			Weights:   l.Weights().RawMatrix().Data,
			Bias:      l.Bias(),
		}
		if u, ok := cfg.Unit.(leaky.Unit); ok {
			jl.Beta, jl.SpikeThreshold = u.Beta, u.Threshold
		}
		out.Layers = append(out.Layers, jl)
	}
	return out
}

// WriteCompressedWeightsToFile writes model weights to a lzw file
func (f *FeedforwardNetwork) WriteCompressedWeightsToFile(name string) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	err = f.WriteCompressedWeights(file)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// WriteCompressedWeights writes model weights to a writer
func (f *FeedforwardNetwork) WriteCompressedWeights(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	if err := json.NewEncoder(lw).Encode(f.toJSON()); err != nil {
		lw.Close()
		return errors.Wrap(err, "encode weights")
	}
	return lw.Close()
}

func readJSON(r io.Reader) (jsonNetwork, error) {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()
	var net jsonNetwork
	if err := json.NewDecoder(lr).Decode(&net); err != nil {
		return net, errors.Wrap(err, "decode weights")
	}
	return net, nil
}

// ReadCompressedWeightsFromFile reads model weights from a lzw file
func (f *FeedforwardNetwork) ReadCompressedWeightsFromFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return f.ReadCompressedWeights(file)
}

// ReadCompressedWeights reads model weights from a reader into a network of
// the same shape and unit settings. Every layer is checked before any is
// overwritten.
func (f *FeedforwardNetwork) ReadCompressedWeights(r io.Reader) error {
	net, err := readJSON(r)
	if err != nil {
		return err
	}
	if net.Classes != f.classes || len(net.Layers) != len(f.layers) {
		return errs.Shape("weights: stored %d layers for %d classes, network has %d layers for %d classes",
			len(net.Layers), net.Classes, len(f.layers), f.classes)
	}
	for i, jl := range net.Layers {
		cfg := f.layers[i].Config()
		if jl.In != cfg.In || jl.Out != cfg.Out {
			return errs.Shape("weights: layer %d stored as %dx%d, network has %dx%d", i, jl.Out, jl.In, cfg.Out, cfg.In)
		}
		if jl.Kind != cfg.Unit.Kind().String() {
			return errs.Config("weights: layer %d stored as %s, network uses %s", i, jl.Kind, cfg.Unit.Kind())
		}
		if len(jl.Weights) != jl.In*jl.Out {
			return errs.Shape("weights: layer %d stores %d weights for %dx%d", i, len(jl.Weights), jl.Out, jl.In)
		}
		if (jl.Bias == nil) != (f.layers[i].Bias() == nil) || (jl.Bias != nil && len(jl.Bias) != cfg.Out) {
			return errs.Shape("weights: layer %d stores %d biases, network expects bias=%t", i, len(jl.Bias), cfg.Bias)
		}
		if jl.Threshold != cfg.Threshold {
			return errs.Config("weights: layer %d stored with threshold %v, network uses %v", i, jl.Threshold, cfg.Threshold)
		}
		if u, ok := cfg.Unit.(leaky.Unit); ok && (jl.Beta != u.Beta || jl.SpikeThreshold != u.Threshold) {
			return errs.Config("weights: layer %d stored with beta %v spike threshold %v, network uses %v and %v",
				i, jl.Beta, jl.SpikeThreshold, u.Beta, u.Threshold)
		}
	}
	for i, jl := range net.Layers {
		if err := f.layers[i].SetParameters(jl.Weights, jl.Bias); err != nil {
			return errs.WithLayer(err, i)
		}
	}
	return f.setRun(net.Run)
}

func (f *FeedforwardNetwork) setRun(s string) error {
	run, err := uuid.Parse(s)
	if err != nil {
		return errors.Wrap(err, "weights: run id")
	}
	f.run = run
	return nil
}

// ReadCompressedNetworkFromFile builds a network from a lzw weights file.
func ReadCompressedNetworkFromFile(name string, dev device.Context) (*FeedforwardNetwork, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCompressedNetwork(file, dev)
}

// ReadCompressedNetwork builds a network whose shape, units and weights all
// come from r. Epoch count and optimizer settings are not stored; the
// layers get the defaults of layer.DefaultConfig.
func ReadCompressedNetwork(r io.Reader, dev device.Context) (*FeedforwardNetwork, error) {
	net, err := readJSON(r)
	if err != nil {
		return nil, err
	}
	layers := make([]*layer.Layer, 0, len(net.Layers))
	for i, jl := range net.Layers {
		kind, err := neuron.ParseKind(jl.Kind)
		if err != nil {
			return nil, errs.WithLayer(err, i)
		}
		unit, err := NewUnit(kind, jl.Beta, jl.SpikeThreshold)
		if err != nil {
			return nil, err
		}
		cfg := layer.DefaultConfig(jl.In, jl.Out)
		cfg.Unit = unit
		cfg.Threshold = jl.Threshold
		cfg.Bias = jl.Bias != nil
		l, err := layer.New(cfg, dev)
		if err != nil {
			return nil, err
		}
		if err := l.SetParameters(jl.Weights, jl.Bias); err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	f, err := New(net.Classes, dev, layers...)
	if err != nil {
		return nil, err
	}
	if err := f.setRun(net.Run); err != nil {
		return nil, err
	}
	return f, nil
}
