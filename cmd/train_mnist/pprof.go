package main

import (
	"os"
	"runtime/pprof"
)

// startCPUProfile collects a CPU profile into name until stop is called.
// A profile named default.pgo enables profile guided optimisation on the next build.
func startCPUProfile(name string) (stop func(), err error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}
