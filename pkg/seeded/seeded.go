// Package seeded provides the deterministic randomness every generation
// step draws from. All values are pure functions of a seed string, so the
// same seeds always reproduce the same rows.
package seeded

import (
	"math/rand/v2"

	"github.com/zeebo/xxh3"
)

// Random is a deterministic source keyed by seed strings.
type Random interface {
	// Intn returns a value in [0, n). n must be positive.
	Intn(seed string, n int) int
	// Float64 returns a value in [0, 1).
	Float64(seed string) float64
	// Rand returns a stream seeded from seed, for drawing several values.
	Rand(seed string) *rand.Rand
}

// Pick returns one candidate chosen by seed.
func Pick[T any](r Random, seed string, candidates []T) T {
	return candidates[r.Intn(seed, len(candidates))]
}

// Hash is the default Random, backed by xxh3.
type Hash struct{}

// New returns the default Random.
func New() Random {
	return Hash{}
}

// Intn returns a value in [0, n).
func (Hash) Intn(seed string, n int) int {
	if n <= 0 {
		panic("seeded: Intn called with non-positive n")
	}
	return int(xxh3.HashString(seed) % uint64(n))
}

// Float64 returns a value in [0, 1).
func (Hash) Float64(seed string) float64 {
	return float64(xxh3.HashString(seed)>>11) / (1 << 53)
}

// Rand returns a PCG stream whose state is the 128-bit hash of seed.
func (Hash) Rand(seed string) *rand.Rand {
	h := xxh3.HashString128(seed)
	return rand.New(rand.NewPCG(h.Hi, h.Lo))
}
