// Package route implements the route catalog: validated waypoint sequences with
// precomputed cumulative distances and interpolation by progress.
package route

import (
	"FleetTrack/internal/model"
	"math"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Policy decides what happens when progress reaches the end of a route.
type Policy string

const (
	// PolicyLoop wraps progress back to the start.
	PolicyLoop Policy = "loop"
	// PolicyStop clamps progress at the end; the vehicle stops.
	PolicyStop Policy = "stop"
)

const (
	defaultColor        = "#2563eb"
	defaultAverageSpeed = 35.0
	minAverageSpeed     = 5.0
	minLoopSeconds      = 900
)

// Route is immutable after Load and shared read-only by every vehicle driving it.
type Route struct {
	ID              string
	Name            string
	Color           string
	Policy          Policy
	Waypoints       []model.LatLng
	Cumulative      []float64 // km from the first waypoint, one entry per waypoint
	Length          float64   // km
	AverageSpeedKmh float64
	Origin          model.Endpoint
	Destination     model.Endpoint
	Dwell           time.Duration
}

// Loops reports whether progress wraps at the end of the route.
func (r *Route) Loops() bool { return r.Policy == PolicyLoop }

// LoopSeconds is the nominal time to drive the route once at its average speed.
func (r *Route) LoopSeconds() int {
	return int(math.Max(r.Length/r.AverageSpeedKmh*3600, minLoopSeconds))
}

// DistanceAt normalizes progress onto the route: wrapped for looping routes,
// clamped to [0, Length] otherwise.
func (r *Route) DistanceAt(progress float64) float64 {
	if r.Length <= 0 || progress <= 0 {
		return 0
	}
	if progress < r.Length {
		return progress
	}
	if r.Loops() {
		return math.Mod(progress, r.Length)
	}
	return r.Length
}

// Remaining is the distance left until the end of the route (or the loop boundary).
func (r *Route) Remaining(progress float64) float64 {
	return r.Length - r.DistanceAt(progress)
}

// WaypointAt interpolates the position at progress and returns the index of the
// segment start it falls on.
func (r *Route) WaypointAt(progress float64) (model.LatLng, int) {
	d := r.DistanceAt(progress)
	last := len(r.Waypoints) - 1
	if d <= 0 {
		return r.Waypoints[0], 0
	}
	if d >= r.Length {
		return r.Waypoints[last], last - 1
	}
	idx := sort.SearchFloat64s(r.Cumulative, d)
	if r.Cumulative[idx] == d {
		return r.Waypoints[idx], max(idx-1, 0)
	}
	prev := idx - 1
	span := r.Cumulative[idx] - r.Cumulative[prev]
	if span <= 0 {
		return r.Waypoints[prev], prev
	}
	ratio := (d - r.Cumulative[prev]) / span
	a, b := r.Waypoints[prev], r.Waypoints[idx]
	return model.LatLng{
		Lat: a.Lat + (b.Lat-a.Lat)*ratio,
		Lng: a.Lng + (b.Lng-a.Lng)*ratio,
	}, prev
}

// HeadingAt is the bearing of the segment that progress falls on, in [0, 360).
func (r *Route) HeadingAt(progress float64) float64 {
	_, seg := r.WaypointAt(progress)
	return Bearing(r.Waypoints[seg], r.Waypoints[seg+1])
}

// Upcoming returns the unconsumed suffix of the route: the interpolated position
// at progress followed by every waypoint not yet reached.
func (r *Route) Upcoming(progress float64) []model.LatLng {
	pos, seg := r.WaypointAt(progress)
	rest := r.Waypoints[seg+1:]
	out := make([]model.LatLng, 0, len(rest)+1)
	out = append(out, pos)
	for _, p := range rest {
		if p != pos {
			out = append(out, p)
		}
	}
	if len(out) <= 1 {
		return []model.LatLng{}
	}
	return out
}

// DistanceKm is the haversine distance between two coordinates.
func DistanceKm(a, b model.LatLng) float64 {
	return geo.DistanceHaversine(point(a), point(b)) / 1000
}

// Bearing is the forward azimuth from a to b, normalized to [0, 360).
func Bearing(a, b model.LatLng) float64 {
	return NormalizeDegrees(geo.Bearing(point(a), point(b)))
}

// NormalizeDegrees maps any angle onto [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func point(p model.LatLng) orb.Point { return orb.Point{p.Lng, p.Lat} }
