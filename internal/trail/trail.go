// Package trail keeps a bounded, chronological history of estimated positions per vehicle.
package trail

import "FleetTrack/internal/model"

// DefaultCapacity is the number of positions kept per vehicle unless configured.
const DefaultCapacity = 50

type ring struct {
	buf   []model.LatLng
	start int
	size  int
}

func (r *ring) push(p model.LatLng) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = p
		r.size++
		return
	}
	r.buf[r.start] = p
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) at(i int) model.LatLng { return r.buf[(r.start+i)%len(r.buf)] }

// Buffer holds one ring per vehicle. Owned by the simulation tick; readers only
// ever see the copies returned by Snapshot and Recent.
type Buffer struct {
	capacity int
	rings    map[int]*ring
}

// New returns a Buffer keeping capacity positions per vehicle.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity, rings: make(map[int]*ring)}
}

// Capacity is the per-vehicle limit.
func (b *Buffer) Capacity() int { return b.capacity }

// Push appends p to the trail of vehicle id, evicting the oldest entry when full.
func (b *Buffer) Push(id int, p model.LatLng) {
	r, ok := b.rings[id]
	if !ok {
		r = &ring{buf: make([]model.LatLng, b.capacity)}
		b.rings[id] = r
	}
	r.push(p)
}

// Len is the number of positions stored for vehicle id.
func (b *Buffer) Len(id int) int {
	if r, ok := b.rings[id]; ok {
		return r.size
	}
	return 0
}

// Snapshot returns a copy of the trail of vehicle id, oldest first.
func (b *Buffer) Snapshot(id int) []model.LatLng {
	r, ok := b.rings[id]
	if !ok {
		return []model.LatLng{}
	}
	out := make([]model.LatLng, r.size)
	for i := range out {
		out[i] = r.at(i)
	}
	return out
}

// Recent returns up to n of the newest positions of vehicle id, newest first.
func (b *Buffer) Recent(id, n int) []model.LatLng {
	r, ok := b.rings[id]
	if !ok || n <= 0 {
		return []model.LatLng{}
	}
	n = min(n, r.size)
	out := make([]model.LatLng, n)
	for i := 0; i < n; i++ {
		out[i] = r.at(r.size - 1 - i)
	}
	return out
}

// Preview returns the trail of vehicle id as it would be after Push(id, p), without
// modifying the buffer.
func (b *Buffer) Preview(id int, p model.LatLng) []model.LatLng {
	out := append(b.Snapshot(id), p)
	if len(out) > b.capacity {
		out = out[len(out)-b.capacity:]
	}
	return out
}

// Resize changes the capacity for every vehicle, keeping the newest entries.
func (b *Buffer) Resize(capacity int) {
	if capacity <= 0 || capacity == b.capacity {
		return
	}
	for id := range b.rings {
		kept := b.Snapshot(id)
		if len(kept) > capacity {
			kept = kept[len(kept)-capacity:]
		}
		r := &ring{buf: make([]model.LatLng, capacity)}
		for _, p := range kept {
			r.push(p)
		}
		b.rings[id] = r
	}
	b.capacity = capacity
}
