package relu

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestActivate(t *testing.T) {
	in := mat.NewDense(1, 4, []float64{-2, 0, 0.5, 3})
	out, state := New().Activate(in, nil)
	if state != nil {
		t.Errorf("rectifier must not carry state")
	}
	want := []float64{0, 0, 0.5, 3}
	for j, w := range want {
		if out.At(0, j) != w {
			t.Errorf("index %d: expected %v, got %v", j, w, out.At(0, j))
		}
	}
	if in.At(0, 0) != -2 {
		t.Errorf("input was modified")
	}
	d := New().Derivative(in, out)
	for j, w := range []float64{0, 0, 1, 1} {
		if d.At(0, j) != w {
			t.Errorf("derivative %d: expected %v, got %v", j, w, d.At(0, j))
		}
	}
}
