package mnist

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/neurlang/ffsnn/datasets"
	"github.com/neurlang/ffsnn/errs"
)

func gz(t *testing.T, parts ...[]byte) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	w := gzip.NewWriter(buf)
	for _, p := range parts {
		if _, err := w.Write(p); err != nil {
			t.Fatalf("gzip write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf
}

func header(values ...uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func TestDecode(t *testing.T) {
	images := gz(t, header(imagesMagic, 2, 2, 2), []byte{0, 255, 51, 0, 255, 255, 0, 0})
	labels := gz(t, header(labelsMagic, 2), []byte{7, 3})
	set, err := Decode(images, labels)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 samples, got %d", set.Len())
	}
	if set.Labels[0] != 7 || set.Labels[1] != 3 {
		t.Errorf("unexpected labels %v", set.Labels)
	}
	for j, raw := range []float64{0, 1, 0.2, 0} {
		want := (raw - datasets.PixelMean) / datasets.PixelStd
		if math.Abs(set.Images[0][j]-want) > 1e-12 {
			t.Errorf("pixel %d: got %f, want %f", j, set.Images[0][j], want)
		}
	}
}

func TestDecodeCountMismatch(t *testing.T) {
	images := gz(t, header(imagesMagic, 1, 1, 1), []byte{9})
	labels := gz(t, header(labelsMagic, 2), []byte{1, 2})
	if _, err := Decode(images, labels); !errors.Is(err, errs.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch, got %v", err)
	}
}

func TestDecodeBadMagic(t *testing.T) {
	images := gz(t, header(1234, 0, 1, 1))
	labels := gz(t, header(labelsMagic, 0))
	if _, err := Decode(images, labels); err == nil {
		t.Errorf("expected bad magic error")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, _, err := Load(t.TempDir()); err == nil {
		t.Errorf("expected error for empty directory")
	}
}
