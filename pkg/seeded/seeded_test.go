package seeded

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_Deterministic(t *testing.T) {
	r := New()

	assert.Equal(t, r.Intn("session/users/1/0", 100), r.Intn("session/users/1/0", 100))
	assert.Equal(t, r.Float64("a"), r.Float64("a"))
	assert.Equal(t, r.Rand("a").Int64(), r.Rand("a").Int64())
}

func TestHash_Ranges(t *testing.T) {
	r := New()
	for _, seed := range []string{"", "a", "b", "session/posts/2/9"} {
		n := r.Intn(seed, 7)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 7)

		f := r.Float64(seed)
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}

func TestPick(t *testing.T) {
	r := New()
	candidates := []string{"x", "y", "z"}

	got := Pick(r, "seed", candidates)
	assert.Contains(t, candidates, got)
	assert.Equal(t, got, Pick(r, "seed", candidates))
}

func TestHash_IntnPanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { New().Intn("seed", 0) })
}
