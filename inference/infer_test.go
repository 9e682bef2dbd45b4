package inference

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/ffsnn/errs"
)

func TestGoodness(t *testing.T) {
	h := mat.NewDense(2, 2, []float64{1, 3, 0, -2})
	g := Goodness(h)
	if g[0] != 5 || g[1] != 2 {
		t.Errorf("unexpected goodness %v", g)
	}
}

// The first maximum wins so predictions are reproducible.
func TestArgmaxStableTieBreak(t *testing.T) {
	scores := mat.NewDense(3, 4, []float64{
		1, 3, 3, 0,
		2, 2, 2, 2,
		0, 0, 0, 5,
	})
	got := Argmax(scores)
	want := []int{1, 0, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestAccumulate(t *testing.T) {
	scores := mat.NewDense(2, 3, nil)
	Accumulate(scores, 1, []float64{1, 2})
	Accumulate(scores, 1, []float64{0.5, 0.5})
	if scores.At(0, 1) != 1.5 || scores.At(1, 1) != 2.5 || scores.At(0, 0) != 0 {
		t.Errorf("unexpected scores %v", mat.Formatted(scores))
	}
}

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]int{1, 2, 3, 4}, []int{1, 0, 3, 0})
	if err != nil || acc != 0.5 {
		t.Errorf("expected 0.5, got %v (%v)", acc, err)
	}
	if _, err := Accuracy([]int{1}, []int{1, 2}); !errors.Is(err, errs.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch, got %v", err)
	}
}
