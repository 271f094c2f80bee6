// Package eta estimates minutes to arrival from remaining route distance and smoothed speed.
package eta

import (
	"FleetTrack/internal/model"
	"FleetTrack/internal/route"
	"math"
)

// DefaultSpeedFloorKmh keeps ETAs finite for vehicles crawling in traffic.
const DefaultSpeedFloorKmh = 5.0

// Minutes is remainingKm / max(speedKmh, floorKmh) * 60.
func Minutes(remainingKm, speedKmh, floorKmh float64) float64 {
	return remainingKm / math.Max(speedKmh, floorKmh) * 60
}

// Estimate returns the ETA in minutes for a vehicle at progress on r, using the
// estimator's speed. It is absent for STOPPED vehicles and when no distance remains
// on a route that does not loop. Looping routes count down to the loop boundary.
func Estimate(r *route.Route, status model.Status, progress, speedKmh, floorKmh float64) (float64, bool) {
	if r == nil || status == model.StatusStopped {
		return 0, false
	}
	remaining := r.Remaining(progress)
	if remaining <= 0 || math.IsNaN(remaining) {
		return 0, false
	}
	if floorKmh <= 0 {
		floorKmh = DefaultSpeedFloorKmh
	}
	m := Minutes(remaining, speedKmh, floorKmh)
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, false
	}
	return m, true
}
