// Package config loads the YAML description of a training run.
package config

import (
	"bytes"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/neurlang/ffsnn/errs"
	"github.com/neurlang/ffsnn/learning"
	"github.com/neurlang/ffsnn/net/feedforward"
	"github.com/neurlang/ffsnn/neuron"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	Dims           []int   `yaml:"dims"`
	Classes        int     `yaml:"classes"`
	Activation     string  `yaml:"activation"`
	Threshold      float64 `yaml:"threshold"`
	Epochs         int     `yaml:"epochs"`
	LearningRate   float64 `yaml:"learning_rate"`
	Beta           float64 `yaml:"beta"`
	SpikeThreshold float64 `yaml:"spike_threshold"`
	Bias           bool    `yaml:"bias"`
	BatchSize      int     `yaml:"batch_size"`
	TestSize       int     `yaml:"test_size"` // 0 picks a 95% significance sample
	Seed           int64   `yaml:"seed"`
	Threads        int     `yaml:"threads"`
	DataDir        string  `yaml:"data_dir"`
	Synthetic      bool    `yaml:"synthetic"`
	ModelPath      string  `yaml:"model_path"`
	Resume         bool    `yaml:"resume"`
	LossCSV        string  `yaml:"loss_csv"`
	LogEvery       int     `yaml:"log_every"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Dims           []int
	Activation     string
	Threshold      float64
	Epochs         int
	LearningRate   float64
	Beta           float64
	SpikeThreshold float64
	BatchSize      int
	Seed           int64
	Threads        int
	DataDir        string
	Synthetic      bool
	ModelPath      string
	Resume         bool
	LossCSV        string
	LogEvery       int
}

// Default returns the MNIST reference run: two 500-unit leaky layers.
func Default() *Config {
	opts := feedforward.DefaultOptions(10)
	return &Config{
		Dims:           []int{784, 500, 500},
		Classes:        opts.Classes,
		Activation:     opts.Activation,
		Threshold:      opts.Threshold,
		Epochs:         opts.Epochs,
		LearningRate:   opts.Optimizer.LearningRate,
		Beta:           opts.Beta,
		SpikeThreshold: opts.SpikeThreshold,
		Bias:           opts.Bias,
		BatchSize:      50000,
		DataDir:        "/tmp/mnist/",
		LogEvery:       50,
	}
}

// Load reads a Config from YAML on top of Default and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errs.Config("parse config: %v", err)
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if len(o.Dims) > 0 {
		c.Dims = append([]int(nil), o.Dims...)
	}
	if o.Beta > 0 {
		c.Beta = o.Beta
	}
	if o.SpikeThreshold > 0 {
		c.SpikeThreshold = o.SpikeThreshold
	}
	if o.Activation != "" {
		c.Activation = o.Activation
	}
	if o.Threshold != 0 {
		c.Threshold = o.Threshold
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.Threads > 0 {
		c.Threads = o.Threads
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Synthetic {
		c.Synthetic = true
	}
	if o.ModelPath != "" {
		c.ModelPath = o.ModelPath
	}
	if o.Resume {
		c.Resume = true
	}
	if o.LossCSV != "" {
		c.LossCSV = o.LossCSV
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errs.Config("config is nil")
	}
	if len(c.Dims) < 2 {
		return errs.Config("dims needs an input and at least one layer (got %v)", c.Dims)
	}
	for i, d := range c.Dims {
		if d <= 0 {
			return errs.Config("dims[%d] must be > 0 (got %d)", i, d)
		}
	}
	if c.Classes <= 0 || c.Classes > c.Dims[0] {
		return errs.Config("classes must be in [1, %d] (got %d)", c.Dims[0], c.Classes)
	}
	kind, err := neuron.ParseKind(c.Activation)
	if err != nil {
		return err
	}
	if _, err := feedforward.NewUnit(kind, c.Beta, c.SpikeThreshold); err != nil {
		return err
	}
	if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
		return errs.Config("threshold must be finite (got %v)", c.Threshold)
	}
	if c.Epochs <= 0 {
		return errs.Config("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return errs.Config("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.Resume && c.ModelPath == "" {
		return errs.Config("resume needs model_path")
	}
	if c.TestSize < 0 {
		return errs.Config("test_size must be >= 0 (got %d)", c.TestSize)
	}
	if err := c.HyperParameters().Validate(); err != nil {
		return err
	}
	if c.LogEvery <= 0 {
		return errs.Config("log_every must be > 0 (got %d)", c.LogEvery)
	}
	return nil
}

// ParseDims reads a comma separated list of layer widths such as "784,500,500".
func ParseDims(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	dims := make([]int, len(fields))
	for i, f := range fields {
		d, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || d <= 0 {
			return nil, errs.Config("dims: bad width %q", f)
		}
		dims[i] = d
	}
	return dims, nil
}

// HyperParameters returns the Adam settings of the run.
func (c *Config) HyperParameters() learning.HyperParameters {
	h := learning.DefaultHyperParameters()
	h.LearningRate = c.LearningRate
	return h
}

// Options returns the network options of the run.
func (c *Config) Options() feedforward.Options {
	return feedforward.Options{
		Classes:        c.Classes,
		Activation:     c.Activation,
		Threshold:      c.Threshold,
		Epochs:         c.Epochs,
		Bias:           c.Bias,
		Optimizer:      c.HyperParameters(),
		Beta:           c.Beta,
		SpikeThreshold: c.SpikeThreshold,
		Seed:           c.Seed,
	}
}
