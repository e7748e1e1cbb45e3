// Package random provides the single randomness dependency shared by the
// dice, the card pile, and seat assignment. Every consumer takes a Source so
// games can be replayed deterministically from a seed.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Source is the subset of *rand.Rand the game engine needs.
// *math/rand/v2.Rand satisfies it.
type Source interface {
	// IntN returns a uniform integer in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// NewSeeded returns a deterministic PCG-backed source.
func NewSeeded(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// New returns a source seeded from the operating system's entropy pool.
func New() *rand.Rand {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return NewSeeded(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]))
}

// Factory hands out independent sources, one per game. With a non-zero
// seed every game gets a reproducible stream derived from the seed and the
// order in which games were created.
type Factory struct {
	seed   uint64
	stream uint64
}

// NewFactory creates a factory. A zero seed yields entropy-seeded sources.
func NewFactory(seed uint64) *Factory {
	return &Factory{seed: seed}
}

// Next returns a fresh source. Not safe for concurrent use; callers hold
// their own lock.
func (f *Factory) Next() Source {
	if f.seed == 0 {
		return New()
	}
	f.stream++
	return NewSeeded(f.seed, f.stream)
}
