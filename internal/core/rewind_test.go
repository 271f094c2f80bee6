package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func draw(r *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r.NormFloat64()
	}
	return out
}

func TestRewindSourceReplaysDiscardedDraws(t *testing.T) {
	t.Parallel()
	plain := rand.New(rand.NewSource(3))
	want := draw(plain, 8)

	src := newRewindSource(rand.NewSource(3))
	r := rand.New(src)
	first := draw(r, 3)
	src.rewind()
	partial := draw(r, 2)
	src.rewind()
	got := draw(r, 8)
	src.commit()

	assert.Equal(t, want[:3], first)
	assert.Equal(t, want[:2], partial)
	assert.Equal(t, want, got)
	assert.Empty(t, src.replay)
	assert.Empty(t, src.journal)
}
