// Package motion advances vehicles along their routes. All randomness comes from an
// injected source so a fixed seed replays the same trajectories.
package motion

import (
	"FleetTrack/internal/model"
	"FleetTrack/internal/route"
	"math"
	"math/rand"
	"time"
)

// State is the mutable motion state of one vehicle. It is owned by the tick.
type State struct {
	RouteID  string
	Progress float64 // km along the route
	SpeedKmh float64 // target speed
	Status   model.Status
	Laps     int
	dwell    time.Duration
}

// Bounds clamps the speed random walk.
type Bounds struct {
	MinSpeedKmh    float64
	MaxSpeedKmh    float64
	SpeedJitterKmh float64 // standard deviation of the per-tick speed change
}

// Fix is the noise-free outcome of one step.
type Fix struct {
	Position   model.LatLng
	Heading    float64
	AdvancedKm float64
	Wrapped    bool
}

// Model steps vehicles. It is not safe for concurrent use.
type Model struct {
	rng *rand.Rand
}

// New returns a Model drawing speed variation from src.
func New(src rand.Source) *Model {
	return &Model{rng: rand.New(src)}
}

// Start builds the initial state for a vehicle placed at progress on r.
func Start(r *route.Route, progress, speedKmh float64) State {
	if speedKmh <= 0 {
		speedKmh = r.AverageSpeedKmh
	}
	return State{
		RouteID:  r.ID,
		Progress: r.DistanceAt(progress),
		SpeedKmh: speedKmh,
		Status:   model.StatusMoving,
	}
}

// Advance moves s along r by its speed over dt. Speed first takes one step of a
// random walk clamped to b. Progress wraps or clamps per the route policy; a vehicle
// that reaches the end of a non-looping route is STOPPED and stays there.
func (m *Model) Advance(r *route.Route, s State, dt time.Duration, b Bounds) (State, Fix) {
	if s.Status == model.StatusStopped {
		pos, _ := r.WaypointAt(s.Progress)
		return s, Fix{Position: pos, Heading: r.HeadingAt(s.Progress)}
	}

	if s.dwell > 0 {
		s.dwell -= dt
		if s.dwell > 0 {
			s.Status = model.StatusIdle
			pos, _ := r.WaypointAt(s.Progress)
			return s, Fix{Position: pos, Heading: r.HeadingAt(s.Progress)}
		}
		s.dwell = 0
	}

	s.SpeedKmh = m.walk(s.SpeedKmh, b)
	s.Status = model.StatusMoving

	step := s.SpeedKmh * dt.Hours()
	next := s.Progress + step
	fix := Fix{AdvancedKm: step}

	if next >= r.Length {
		if r.Loops() {
			fix.Wrapped = true
			s.Laps++
			next = math.Mod(next, r.Length)
			if r.Dwell > 0 {
				next = 0
				s.dwell = r.Dwell
				s.Status = model.StatusIdle
			}
		} else {
			fix.AdvancedKm = r.Length - s.Progress
			next = r.Length
			s.Status = model.StatusStopped
		}
	}
	s.Progress = next

	fix.Position, _ = r.WaypointAt(s.Progress)
	fix.Heading = r.HeadingAt(s.Progress)
	return s, fix
}

func (m *Model) walk(speed float64, b Bounds) float64 {
	if b.SpeedJitterKmh > 0 {
		speed += m.rng.NormFloat64() * b.SpeedJitterKmh
	}
	if b.MaxSpeedKmh > 0 {
		speed = math.Min(speed, b.MaxSpeedKmh)
	}
	return math.Max(speed, b.MinSpeedKmh)
}

// Phase is the human readable leg label shown on dashboards.
func Phase(r *route.Route, s State) string {
	switch s.Status {
	case model.StatusStopped:
		return "Arrived"
	case model.StatusIdle:
		return "Dwelling"
	}
	progress := s.Progress / r.Length
	switch {
	case progress < 0.05:
		return "Departing Terminal"
	case progress > 0.95:
		return "Approaching Destination"
	case s.SpeedKmh < r.AverageSpeedKmh*0.6:
		return "Congested"
	}
	return "En Route"
}
