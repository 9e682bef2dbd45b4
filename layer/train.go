package layer

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/errs"
	"github.com/neurlang/ffsnn/inference"
	"github.com/neurlang/ffsnn/neuron"
)

// EpochFunc observes the loss of every completed epoch.
type EpochFunc func(epoch int, loss float64)

// Activations is a layer output that is not connected to the layer that
// produced it. Feeding it to another layer cannot move gradient back.
type Activations struct {
	m *mat.Dense
}

// Dense returns a fresh copy of the activations.
func (a Activations) Dense() *mat.Dense {
	if a.m == nil {
		return nil
	}
	return mat.DenseCopyOf(a.m)
}

// Result is what Train hands back: the per-epoch losses and the outputs for
// the positive and negative batches computed with the final parameters.
// SpikeRate is the fraction of units firing on the positive batch, zero for
// units that do not spike.
type Result struct {
	Pos       Activations
	Neg       Activations
	Losses    []float64
	SpikeRate float64
}

// Validate reports whether the layer can be trained as configured.
func (l *Layer) Validate() error {
	if err := l.ready(); err != nil {
		return err
	}
	if l.cfg.Epochs <= 0 {
		return errs.Config("layer: epochs must be > 0 (got %d)", l.cfg.Epochs)
	}
	if math.IsNaN(l.cfg.Threshold) || math.IsInf(l.cfg.Threshold, 0) {
		return errs.Config("layer: threshold must be finite (got %v)", l.cfg.Threshold)
	}
	return nil
}

// Train runs cfg.Epochs optimisation steps on the goodness loss of this
// layer alone. onEpoch may be nil. The context is checked before every epoch.
//
// On divergence or cancellation the losses recorded so far are returned
// together with the error, and no further update is applied.
func (l *Layer) Train(ctx context.Context, xPos, xNeg *mat.Dense, onEpoch EpochFunc) (Result, error) {
	if err := l.Validate(); err != nil {
		return Result{}, err
	}
	if err := l.checkInput(xPos); err != nil {
		return Result{}, err
	}
	if err := l.checkInput(xNeg); err != nil {
		return Result{}, err
	}

	pos, neg := l.normalize(xPos), l.normalize(xNeg)
	losses := make([]float64, 0, l.cfg.Epochs)
	for epoch := 0; epoch < l.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return Result{Losses: losses}, errs.Canceled(-1, epoch, err)
		}
		l.opt.ZeroGrad()
		loss := l.lossAndGrad(pos, neg)
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return Result{Losses: losses}, &errs.DivergenceError{Layer: -1, Epoch: epoch, Loss: loss}
		}
		l.opt.Step()
		losses = append(losses, loss)
		if onEpoch != nil {
			onEpoch(epoch, loss)
		}
	}
	l.state = Trained

	hPos, state := l.cfg.Unit.Activate(l.linear(pos), nil)
	hNeg, _ := l.cfg.Unit.Activate(l.linear(neg), nil)
	return Result{
		Pos:       Activations{hPos},
		Neg:       Activations{hNeg},
		Losses:    losses,
		SpikeRate: neuron.SpikeRate(state),
	}, nil
}

// lossAndGrad evaluates
//
//	L = mean(softplus([theta - g(pos), g(neg) - theta]))
//
// on normalised inputs and writes dL/dW and dL/db into the parameter gradients.
func (l *Layer) lossAndGrad(pos, neg *mat.Dense) float64 {
	nPos, _ := pos.Dims()
	nNeg, _ := neg.Dims()
	m := float64(nPos + nNeg)
	theta := l.cfg.Threshold

	zPos, zNeg := l.linear(pos), l.linear(neg)
	aPos, _ := l.cfg.Unit.Activate(zPos, nil)
	aNeg, _ := l.cfg.Unit.Activate(zNeg, nil)
	gPos, gNeg := inference.Goodness(aPos), inference.Goodness(aNeg)

	var loss float64
	for i, g := range gPos {
		loss += softplus(theta - g)
		gPos[i] = -sigmoid(theta-g) / m
	}
	for i, g := range gNeg {
		loss += softplus(g - theta)
		gNeg[i] = sigmoid(g-theta) / m
	}
	loss /= m

	dPos := l.backward(zPos, aPos, gPos)
	dNeg := l.backward(zNeg, aNeg, gNeg)

	gw := mat.NewDense(l.cfg.Out, l.cfg.In, l.grads[0].Grad)
	gw.Mul(dPos.T(), pos)
	var tmp mat.Dense
	tmp.Mul(dNeg.T(), neg)
	gw.Add(gw, &tmp)

	if l.b != nil {
		db := l.grads[1].Grad
		for _, d := range []*mat.Dense{dPos, dNeg} {
			r, _ := d.Dims()
			for i := 0; i < r; i++ {
				floats.Add(db, d.RawRowView(i))
			}
		}
	}
	return loss
}

// backward turns per-sample dL/dg into dL/dz. Goodness is mean(a^2) so
// dg/da = 2a/F.
func (l *Layer) backward(z, a *mat.Dense, dg []float64) *mat.Dense {
	r, c := a.Dims()
	dz := l.cfg.Unit.Derivative(z, a)
	scale := 2 / float64(c)
	l.dev.Rows(r, c, func(i int) {
		row := dz.RawRowView(i)
		floats.Mul(row, a.RawRowView(i))
		floats.Scale(scale*dg[i], row)
	})
	return dz
}

func softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
