// Package noise perturbs true positions to emulate GPS error.
package noise

import (
	"FleetTrack/internal/model"
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Profile is the error model of a simulated receiver.
type Profile struct {
	SigmaM             float64 // per-axis standard deviation in metres
	MaxRadiusM         float64 // offsets longer than this are shortened to it; 0 disables the cap
	DropoutProbability float64 // chance that a tick yields no observation
}

// Injector draws offsets from an injected random source. Not safe for concurrent use.
type Injector struct {
	rng *rand.Rand
}

// NewInjector returns an Injector drawing from src.
func NewInjector(src rand.Source) *Injector {
	return &Injector{rng: rand.New(src)}
}

// Observe returns the observed position for truth, or false when the tick drops out.
// Every call consumes the same number of draws regardless of the outcome, so one
// vehicle's dropout never shifts the offsets drawn for the next.
func (n *Injector) Observe(truth model.LatLng, p Profile) (model.LatLng, bool) {
	drop := n.rng.Float64()
	east := n.rng.NormFloat64() * p.SigmaM
	north := n.rng.NormFloat64() * p.SigmaM
	if drop < p.DropoutProbability {
		return model.LatLng{}, false
	}
	return Offset(truth, east, north, p.MaxRadiusM), true
}

// Offset moves truth by (east, north) metres, truncated to maxRadius when positive.
func Offset(truth model.LatLng, east, north, maxRadius float64) model.LatLng {
	r := math.Hypot(east, north)
	if r == 0 {
		return truth
	}
	if maxRadius > 0 && r > maxRadius {
		r = maxRadius
	}
	bearing := math.Atan2(east, north) * 180 / math.Pi
	p := geo.PointAtBearingAndDistance(orb.Point{truth.Lng, truth.Lat}, bearing, r)
	return model.LatLng{Lat: p[1], Lng: p[0]}
}
