package parallel

import "testing"

// hasher test
func TestHasher(t *testing.T) {
	a := Fingerprint([]float64{1, 2, 3}, []float64{4})
	b := Fingerprint([]float64{1, 2, 3}, []float64{4})
	if a != b {
		t.Errorf("fingerprint not deterministic: %x vs %x", a, b)
	}
	c := Fingerprint([]float64{1, 2}, []float64{3, 4})
	if a == c {
		t.Errorf("block boundaries must affect the fingerprint: %x", a)
	}
	d := Fingerprint([]float64{1, 2, 3}, []float64{4.000000000000001})
	if a == d {
		t.Errorf("single ulp change must affect the fingerprint")
	}
}

func TestHasherDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on duplicate block")
		}
	}()
	h := NewHasher(1)
	h.MustPut(0, []float64{1})
	h.MustPut(0, []float64{1})
}

func TestForEach(t *testing.T) {
	for _, limit := range []int{0, 1, 3, 64} {
		seen := make([]int, 100)
		ForEach(len(seen), limit, func(i int) {
			seen[i]++
		})
		for i, v := range seen {
			if v != 1 {
				t.Fatalf("limit %d: index %d visited %d times", limit, i, v)
			}
		}
	}
	ForEach(0, 4, func(i int) {
		t.Fatalf("body called for empty loop")
	})
}
