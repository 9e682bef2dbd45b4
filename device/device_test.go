package device

import (
	"strings"
	"testing"
)

func TestCPU(t *testing.T) {
	c := CPU()
	if c.Threads < 1 {
		t.Errorf("expected at least one thread, got %d", c.Threads)
	}
	if !strings.Contains(c.String(), "threads=") {
		t.Errorf("unexpected description %q", c.String())
	}
}

func TestRowsVisitsEveryRowOnce(t *testing.T) {
	for _, c := range []Context{Serial(), CPU().WithThreads(4)} {
		counts := make([]int, 1000)
		c.Rows(len(counts), 1000, func(i int) {
			counts[i]++
		})
		for i, v := range counts {
			if v != 1 {
				t.Fatalf("%s: row %d visited %d times", c, i, v)
			}
		}
	}
}

func TestWithThreads(t *testing.T) {
	c := Serial().WithThreads(0)
	if c.Threads != 1 {
		t.Errorf("expected 1 thread, got %d", c.Threads)
	}
	if Serial().WithThreads(8).Threads != 8 {
		t.Errorf("expected override to 8 threads")
	}
}
