package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStartCPUProfile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "default.pgo")
	stop, err := startCPUProfile(name)
	if err != nil {
		t.Fatal(err)
	}
	stop()
	fi, err := os.Stat(name)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() == 0 {
		t.Fatal("profile not flushed on stop")
	}
	// A second profile can start once the first is stopped.
	again, err := startCPUProfile(name)
	if err != nil {
		t.Fatalf("profile still running: %v", err)
	}
	again()
}
