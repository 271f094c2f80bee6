package core

import "math/rand"

// rewindSource wraps a rand.Source so the values drawn during a tick can be handed
// out again when the tick is discarded. Not safe for concurrent use.
type rewindSource struct {
	src     rand.Source
	replay  []int64 // drawn by a discarded tick, served first
	journal []int64 // served since the last commit
}

func newRewindSource(src rand.Source) *rewindSource {
	return &rewindSource{src: src}
}

func (r *rewindSource) Int63() int64 {
	var v int64
	if len(r.replay) > 0 {
		v = r.replay[0]
		r.replay = r.replay[1:]
	} else {
		v = r.src.Int63()
	}
	r.journal = append(r.journal, v)
	return v
}

func (r *rewindSource) Seed(seed int64) {
	r.src.Seed(seed)
	r.replay = nil
	r.journal = nil
}

// commit forgets the values served since the last commit.
func (r *rewindSource) commit() {
	r.journal = r.journal[:0]
}

// rewind queues the values served since the last commit to be served again.
func (r *rewindSource) rewind() {
	if len(r.journal) == 0 {
		return
	}
	replay := make([]int64, 0, len(r.journal)+len(r.replay))
	replay = append(replay, r.journal...)
	r.replay = append(replay, r.replay...)
	r.journal = r.journal[:0]
}
