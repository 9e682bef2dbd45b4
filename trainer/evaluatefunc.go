package trainer

import (
	"context"
	"math"

	"github.com/neurlang/ffsnn/datasets"
	"github.com/neurlang/ffsnn/errs"
	"github.com/neurlang/ffsnn/net/feedforward"
	"github.com/neurlang/ffsnn/parallel"
)

// evalChunk bounds the number of samples scored at once.
const evalChunk = 1000

// Evaluation is the outcome of scoring a network on part of a set.
type Evaluation struct {
	Correct int
	Samples int
	Hash    [32]byte // digest of the predicted labels, chunk by chunk
}

// Accuracy returns the fraction of correct predictions.
func (e Evaluation) Accuracy() float64 {
	if e.Samples == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Samples)
}

// sampleSize calculates the statistically sufficient sample size
// for a given dataset size N and significance level (0–100).
func sampleSize(N int, significance byte) int {

	// Convert significance level to Z-score
	z := zScoreFromAlpha(100 - significance)

	// Worst-case proportion p = 0.5; margin of error is 100-significance percent
	p := 0.5
	e := float64(100-significance) * 0.01

	ss := z * z * p * (1 - p) / (e * e)

	// Finite population correction
	corrected := ss * float64(N) / (float64(N) - 1 + ss)

	if int(corrected) > N {
		return N
	}
	return int(corrected)
}

// zScoreFromAlpha returns the Z-score for a given alpha level
// Common: 90% => 1.645, 95% => 1.96, 99% => 2.576
func zScoreFromAlpha(alpha byte) float64 {
	switch {
	case alpha <= 1:
		return 2.576
	case alpha <= 5:
		return 1.96
	case alpha <= 10:
		return 1.645
	default:
		return 1.96
	}
}

// Evaluate predicts the first n samples of set in chunks and counts the
// correct labels. n <= 0 or n beyond the set evaluates everything.
func Evaluate(ctx context.Context, net *feedforward.FeedforwardNetwork, set datasets.Set, n int) (Evaluation, error) {
	if n <= 0 || n > set.Len() {
		n = set.Len()
	}
	if n == 0 {
		return Evaluation{}, errs.Shape("evaluate: empty set")
	}
	chunks := int(math.Ceil(float64(n) / evalChunk))
	h := parallel.NewHasher(chunks)
	var ev Evaluation
	for c := 0; c < chunks; c++ {
		if err := ctx.Err(); err != nil {
			return ev, err
		}
		size := evalChunk
		if rest := n - c*evalChunk; rest < size {
			size = rest
		}
		batch, err := set.Batch(c*evalChunk, size)
		if err != nil {
			return ev, err
		}
		pred, err := net.Predict(batch.X)
		if err != nil {
			return ev, err
		}
		block := make([]float64, len(pred))
		for i, p := range pred {
			block[i] = float64(p)
			if p == batch.Labels[i] {
				ev.Correct++
			}
		}
		h.MustPut(c, block)
		ev.Samples += len(pred)
	}
	ev.Hash = h.Sum()
	return ev, nil
}

// NewEvaluateFunc returns a closure scoring net on a sample of set that is
// statistically sufficient at the given significance (0–100). The closure
// returns the accuracy in percent and the prediction digest.
func NewEvaluateFunc(ctx context.Context, net *feedforward.FeedforwardNetwork, set datasets.Set, significance byte) func() (int, [32]byte, error) {
	n := sampleSize(set.Len(), significance)
	return func() (int, [32]byte, error) {
		ev, err := Evaluate(ctx, net, set, n)
		if err != nil {
			return 0, ev.Hash, err
		}
		return int(100 * ev.Accuracy()), ev.Hash, nil
	}
}
