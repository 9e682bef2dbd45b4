// Package parallel contains the bounded ForEach loop and parameter fingerprinting.
package parallel

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"math"
	"sync"
)

// Hasher fingerprints float64 parameter blocks. Blocks may be put from
// several goroutines, but the digest depends only on block order.
type Hasher struct {
	mut  sync.Mutex
	sha  hash.Hash
	data [][]float64
}

// NewHasher creates a hasher expecting n blocks.
func NewHasher(n int) *Hasher {
	return &Hasher{
		sha:  sha256.New(),
		data: make([][]float64, n),
	}
}

// MustPut stores block n. Putting the same block twice panics.
func (h *Hasher) MustPut(n int, values []float64) {
	h.mut.Lock()
	defer h.mut.Unlock()
	if h.data[n] != nil {
		panic("duplicate block write")
	}
	h.data[n] = append(make([]float64, 0, len(values)), values...)
}

// Sum digests all blocks in order. Missing blocks hash as empty.
func (h *Hasher) Sum() (ret [32]byte) {
	h.mut.Lock()
	defer h.mut.Unlock()
	var buf [8]byte
	for _, block := range h.data {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(block)))
		h.sha.Write(buf[:])
		for _, v := range block {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			h.sha.Write(buf[:])
		}
	}
	copy(ret[:], h.sha.Sum(nil))
	h.sha.Reset()
	return
}

// Fingerprint hashes the given blocks in order.
func Fingerprint(blocks ...[]float64) [32]byte {
	h := NewHasher(len(blocks))
	for i, b := range blocks {
		h.MustPut(i, b)
	}
	return h.Sum()
}
