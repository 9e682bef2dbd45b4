package layer

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/device"
	"github.com/neurlang/ffsnn/errs"
	"github.com/neurlang/ffsnn/neuron"
	"github.com/neurlang/ffsnn/neuron/leaky"
	"github.com/neurlang/ffsnn/neuron/relu"
)

func randDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(r, c, data)
}

func testLayer(t *testing.T, in, out int, unit neuron.Unit, mod func(*Config)) *Layer {
	t.Helper()
	cfg := DefaultConfig(in, out)
	cfg.Unit = unit
	cfg.Seed = 7
	if mod != nil {
		mod(&cfg)
	}
	l, err := New(cfg, device.Serial())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestNewRejects(t *testing.T) {
	for _, cfg := range []Config{
		{In: 0, Out: 3, Unit: relu.New()},
		{In: 3, Out: -1, Unit: relu.New()},
		{In: 3, Out: 3},
	} {
		if _, err := New(cfg, device.Serial()); !errors.Is(err, errs.ErrInvalidConfig) {
			t.Errorf("New(%+v) = %v, want ErrInvalidConfig", cfg, err)
		}
	}
}

func TestInitBounds(t *testing.T) {
	l := testLayer(t, 16, 8, relu.New(), nil)
	if l.State() != Ready {
		t.Fatalf("state %v", l.State())
	}
	bound := 1 / math.Sqrt(16)
	for _, w := range l.Weights().RawMatrix().Data {
		if w < -bound || w > bound {
			t.Fatalf("weight %v outside ±%v", w, bound)
		}
	}
	for _, b := range l.Bias() {
		if b != 0 {
			t.Fatalf("bias not zero: %v", l.Bias())
		}
	}
	other := testLayer(t, 16, 8, relu.New(), nil)
	if l.Fingerprint() != other.Fingerprint() {
		t.Fatal("same seed gave different weights")
	}
}

func TestForward(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := testLayer(t, 10, 6, leaky.Default(), nil)
	x := randDense(rng, 4, 10)

	a, err := l.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := a.Dims(); r != 4 || c != 6 {
		t.Fatalf("dims %dx%d", r, c)
	}
	b, err := l.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(a, b) {
		t.Fatal("forward is not idempotent")
	}

	// Row scaling does not change the output beyond the normalisation epsilon.
	var scaled mat.Dense
	scaled.Scale(100, x)
	c, _ := l.Forward(&scaled)
	if !mat.EqualApprox(a, c, 1e-3) {
		t.Fatal("forward depends on row scale")
	}
}

func TestForwardShapeMismatch(t *testing.T) {
	l := testLayer(t, 5, 3, relu.New(), nil)
	if _, err := l.Forward(mat.NewDense(2, 4, nil)); !errors.Is(err, errs.ErrShapeMismatch) {
		t.Fatalf("got %v", err)
	}
	if _, err := l.Forward(nil); !errors.Is(err, errs.ErrShapeMismatch) {
		t.Fatalf("got %v", err)
	}
	var zero Layer
	if _, err := zero.Forward(mat.NewDense(1, 5, nil)); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("got %v", err)
	}
}

func TestGradient(t *testing.T) {
	for _, unit := range []neuron.Unit{leaky.Default(), relu.New()} {
		t.Run(unit.Kind().String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(3))
			l := testLayer(t, 6, 4, unit, func(c *Config) { c.Threshold = 0.1 })
			for i := range l.b {
				l.b[i] = rng.NormFloat64() * 0.1
			}
			pos := l.normalize(randDense(rng, 5, 6))
			neg := l.normalize(randDense(rng, 3, 6))

			l.opt.ZeroGrad()
			l.lossAndGrad(pos, neg)
			wantW := append([]float64(nil), l.grads[0].Grad...)
			wantB := append([]float64(nil), l.grads[1].Grad...)

			settings := &fd.Settings{Formula: fd.Central, Step: 1e-6}
			for _, p := range []struct {
				value []float64
				want  []float64
			}{
				{l.w.RawMatrix().Data, wantW},
				{l.b, wantB},
			} {
				orig := append([]float64(nil), p.value...)
				got := fd.Gradient(nil, func(x []float64) float64 {
					copy(p.value, x)
					l.opt.ZeroGrad()
					return l.lossAndGrad(pos, neg)
				}, orig, settings)
				copy(p.value, orig)
				if !floats.EqualApprox(got, p.want, 1e-6) {
					t.Fatalf("gradient mismatch\nnumeric  %v\nanalytic %v", got, p.want)
				}
			}
		})
	}
}

func TestTrainZeroEpochs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := testLayer(t, 5, 3, relu.New(), func(c *Config) { c.Epochs = 0 })
	if err := l.Validate(); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("Validate: %v", err)
	}
	before := l.Fingerprint()
	_, err := l.Train(context.Background(), randDense(rng, 2, 5), randDense(rng, 2, 5), nil)
	if !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("got %v", err)
	}
	if l.Fingerprint() != before || l.Steps() != 0 {
		t.Fatal("parameters changed")
	}
}

func TestTrainRejects(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := testLayer(t, 5, 3, relu.New(), func(c *Config) { c.Threshold = math.Inf(1) })
	if _, err := l.Train(context.Background(), randDense(rng, 2, 5), randDense(rng, 2, 5), nil); !errors.Is(err, errs.ErrInvalidConfig) {
		t.Fatalf("got %v", err)
	}
	l = testLayer(t, 5, 3, relu.New(), nil)
	if _, err := l.Train(context.Background(), randDense(rng, 2, 5), randDense(rng, 2, 4), nil); !errors.Is(err, errs.ErrShapeMismatch) {
		t.Fatalf("got %v", err)
	}
}

// trainingPair returns a positive batch and a negative batch whose first
// half of features is blanked.
func trainingPair(rng *rand.Rand) (pos, neg *mat.Dense) {
	pos = randDense(rng, 8, 20)
	neg = randDense(rng, 8, 20)
	neg.Apply(func(_, j int, v float64) float64 {
		if j < 10 {
			return 0
		}
		return v
	}, neg)
	return pos, neg
}

func TestTrain(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	l := testLayer(t, 20, 10, leaky.Default(), func(c *Config) { c.Epochs = 60 })
	pos, neg := trainingPair(rng)

	var seen []int
	res, err := l.Train(context.Background(), pos, neg, func(epoch int, _ float64) {
		seen = append(seen, epoch)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Losses) != 60 || len(seen) != 60 || seen[59] != 59 {
		t.Fatalf("losses %d callbacks %d", len(res.Losses), len(seen))
	}
	if res.Losses[59] >= res.Losses[0] {
		t.Fatalf("loss did not decrease: %v -> %v", res.Losses[0], res.Losses[59])
	}
	if l.State() != Trained || l.Steps() != 60 {
		t.Fatalf("state %v steps %d", l.State(), l.Steps())
	}
	if res.SpikeRate < 0 || res.SpikeRate > 1 {
		t.Fatalf("spike rate %v", res.SpikeRate)
	}

	want, _ := l.Forward(pos)
	if !mat.EqualApprox(res.Pos.Dense(), want, 1e-12) {
		t.Fatal("result activations differ from forward with final weights")
	}
	if r, c := res.Neg.Dense().Dims(); r != 8 || c != 10 {
		t.Fatalf("neg dims %dx%d", r, c)
	}

	// Mutating a copy leaves the result alone.
	d := res.Pos.Dense()
	d.Set(0, 0, 1e9)
	if res.Pos.Dense().At(0, 0) == 1e9 {
		t.Fatal("activations share storage")
	}
}

func TestTrainRaisesPositiveGoodness(t *testing.T) {
	const seeds = 10
	for _, unit := range []neuron.Unit{leaky.Default(), relu.New()} {
		var rose int
		var gain float64
		for seed := int64(1); seed <= seeds; seed++ {
			rng := rand.New(rand.NewSource(seed))
			l := testLayer(t, 20, 10, unit, func(c *Config) {
				c.Epochs = 60
				c.Seed = seed
			})
			pos, neg := trainingPair(rng)
			before, _ := l.Goodness(pos)
			res, err := l.Train(context.Background(), pos, neg, nil)
			if err != nil {
				t.Fatal(err)
			}
			after, _ := l.Goodness(pos)
			if floats.Sum(after) > floats.Sum(before) {
				rose++
			}
			gain += (floats.Sum(after) - floats.Sum(before)) / seeds
			if unit.Kind() == neuron.KindRectifier && res.SpikeRate != 0 {
				t.Errorf("relu reported spike rate %v", res.SpikeRate)
			}
		}
		if rose < seeds*3/4 || gain <= 0 {
			t.Errorf("%v: positive goodness rose for %d/%d seeds, mean gain %v", unit.Kind(), rose, seeds, gain)
		}
	}
}

func TestTrainDivergence(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := testLayer(t, 4, 3, leaky.Default(), func(c *Config) { c.Epochs = 5 })
	before := l.Fingerprint()
	pos := randDense(rng, 2, 4)
	pos.Set(1, 2, math.NaN())

	res, err := l.Train(context.Background(), pos, randDense(rng, 2, 4), nil)
	if !errors.Is(err, errs.ErrNumericDivergence) {
		t.Fatalf("got %v", err)
	}
	var div *errs.DivergenceError
	if !errors.As(err, &div) || div.Epoch != 0 || div.Layer != -1 {
		t.Fatalf("got %#v", err)
	}
	if len(res.Losses) != 0 || l.Fingerprint() != before || l.Steps() != 0 {
		t.Fatal("diverged step was applied")
	}
}

func TestTrainCanceled(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	l := testLayer(t, 4, 3, relu.New(), func(c *Config) { c.Epochs = 10 })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := l.Train(ctx, randDense(rng, 2, 4), randDense(rng, 2, 4), func(epoch int, _ float64) {
		if epoch == 2 {
			cancel()
		}
	})
	if !errors.Is(err, errs.ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	var ce *errs.CanceledError
	if !errors.As(err, &ce) || ce.Epoch != 3 {
		t.Fatalf("got %#v", err)
	}
	if len(res.Losses) != 3 || l.Steps() != 3 || l.State() != Ready {
		t.Fatalf("losses %d steps %d state %v", len(res.Losses), l.Steps(), l.State())
	}
}

func TestSetParameters(t *testing.T) {
	src := testLayer(t, 4, 3, relu.New(), func(c *Config) { c.Seed = 1 })
	dst := testLayer(t, 4, 3, relu.New(), func(c *Config) { c.Seed = 2 })
	if err := dst.SetParameters(src.Weights().RawMatrix().Data, src.Bias()); err != nil {
		t.Fatal(err)
	}
	if dst.Fingerprint() != src.Fingerprint() {
		t.Fatal("fingerprints differ after restore")
	}
	if err := dst.SetParameters(make([]float64, 5), src.Bias()); !errors.Is(err, errs.ErrShapeMismatch) {
		t.Fatalf("got %v", err)
	}
	if err := dst.SetParameters(make([]float64, 12), nil); !errors.Is(err, errs.ErrShapeMismatch) {
		t.Fatalf("got %v", err)
	}
}
