// Package device describes the numeric backend a network computes on.
package device

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"

	"github.com/neurlang/ffsnn/parallel"
)

// minParallelWork is the number of scalar operations below which row loops stay serial.
const minParallelWork = 1 << 15

// GPU is an accelerator found by the CUDA probe. Compute stays on the CPU;
// GPUs are reported so that runs can be compared across machines.
type GPU struct {
	Ordinal int
	Name    string
	Memory  int64
}

// Context is the backend handle passed explicitly to layers and networks.
type Context struct {
	Name      string
	Threads   int
	AVX2      bool
	AVX512    bool
	FMA       bool
	GPUs      []GPU
	cudaError error
}

// CPU probes the host processor.
func CPU() Context {
	c := Context{
		Name:    cpuid.CPU.BrandName,
		Threads: cpuid.CPU.LogicalCores,
		AVX2:    cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:  cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
		FMA:     cpuid.CPU.Supports(cpuid.FMA3),
	}
	if c.Threads <= 0 {
		c.Threads = runtime.NumCPU()
	}
	if c.Name == "" {
		c.Name = runtime.GOARCH
	}
	c.GPUs, c.cudaError = probeCUDA()
	return c
}

// Serial is a single-threaded context, mostly useful in tests.
func Serial() Context {
	return Context{Name: "serial", Threads: 1}
}

// WithThreads returns a copy of c limited to n threads. n <= 0 keeps c unchanged.
func (c Context) WithThreads(n int) Context {
	if n > 0 {
		c.Threads = n
	}
	return c
}

// CUDAError reports why the CUDA probe found nothing, if it failed.
func (c Context) CUDAError() error {
	return c.cudaError
}

// Rows runs body for every row in [0, n). cost is the work per row; small
// workloads stay on the calling goroutine. Each row is handled by exactly one
// goroutine so results do not depend on the thread count.
func (c Context) Rows(n, cost int, body func(i int)) {
	threads := c.Threads
	if threads <= 1 || n*cost < minParallelWork {
		threads = 1
	}
	parallel.ForEach(n, threads, body)
}

func (c Context) String() string {
	simd := "none"
	switch {
	case c.AVX512:
		simd = "avx512"
	case c.AVX2:
		simd = "avx2"
	}
	return fmt.Sprintf("cpu=%q threads=%d simd=%s fma=%t gpus=%d", c.Name, c.Threads, simd, c.FMA, len(c.GPUs))
}
