// Package snapshot assembles per-vehicle derived state into immutable, versioned
// snapshots and publishes them to concurrent readers.
package snapshot

import (
	"FleetTrack/internal/model"
	"sync/atomic"
	"time"
)

// Snapshot is one self-consistent view of the fleet. It is never mutated after
// publication; replacing it in a Store is the only permitted change.
type Snapshot struct {
	Seq       uint64
	RunID     string
	Generated time.Time
	Stale     bool
	Vehicles  []model.VehicleRecord
}

// Store hands the latest Snapshot to readers with a single atomic pointer swap.
// Readers never block on the writer.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// Load returns the latest snapshot, or nil before the first publication.
func (s *Store) Load() *Snapshot { return s.current.Load() }

// Publish makes snap the latest snapshot. Sequence numbers must strictly increase;
// an out-of-order snapshot is dropped and Publish reports false.
func (s *Store) Publish(snap *Snapshot) bool {
	for {
		old := s.current.Load()
		if old != nil && snap.Seq <= old.Seq {
			return false
		}
		if s.current.CompareAndSwap(old, snap) {
			return true
		}
	}
}

// MarkStale republishes the latest snapshot flagged stale. The vehicle records are
// shared with the previous version; both are read-only.
func (s *Store) MarkStale() {
	for {
		old := s.current.Load()
		if old == nil || old.Stale {
			return
		}
		cp := *old
		cp.Stale = true
		if s.current.CompareAndSwap(old, &cp) {
			return
		}
	}
}

// IsStale reports whether snap should be treated as stale at now: either flagged by
// a halted scheduler or older than maxAge (when maxAge is positive).
func IsStale(snap *Snapshot, now time.Time, maxAge time.Duration) bool {
	if snap == nil {
		return true
	}
	if snap.Stale {
		return true
	}
	return maxAge > 0 && now.Sub(snap.Generated) > maxAge
}
