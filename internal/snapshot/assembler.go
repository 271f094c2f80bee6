package snapshot

import (
	"FleetTrack/internal/estimator"
	"FleetTrack/internal/eta"
	"FleetTrack/internal/model"
	"FleetTrack/internal/motion"
	"FleetTrack/internal/overlay"
	"FleetTrack/internal/route"
	"FleetTrack/internal/util"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrEmptyFleet is returned when there is nothing to simulate at all.
var ErrEmptyFleet = errors.New("no vehicles and no routes configured")

// minHeadingSpeedKmh is the speed below which the estimated velocity is too small
// to give a heading; the route heading is used instead.
const minHeadingSpeedKmh = 1.0

// VehicleState is everything the tick derived for one vehicle.
type VehicleState struct {
	Identity      model.VehicleIdentity
	Route         *route.Route // nil when the route id is unknown
	Motion        motion.State
	MotionHeading float64
	Truth         model.LatLng // position used before the first belief exists
	Belief        *estimator.Belief
	Observation   *model.LatLng
	Trail         []model.LatLng
	Err           error // failure raised earlier in the tick for this vehicle
}

// Assembler merges per-vehicle state into snapshots and stamps them with a strictly
// increasing sequence number.
type Assembler struct {
	runID    string
	seq      uint64
	overlays *overlay.Set
	etaFloor float64
}

// CheckFleet fails when there are neither vehicles nor routes to simulate.
func CheckFleet(vehicles, routes int) error {
	if vehicles == 0 && routes == 0 {
		return ErrEmptyFleet
	}
	return nil
}

// NewAssembler returns an Assembler tagging snapshots with runID.
func NewAssembler(runID string, overlays *overlay.Set, etaFloorKmh float64) *Assembler {
	if etaFloorKmh <= 0 {
		etaFloorKmh = eta.DefaultSpeedFloorKmh
	}
	return &Assembler{runID: runID, overlays: overlays, etaFloor: etaFloorKmh}
}

// Seq is the sequence number of the last assembled snapshot.
func (a *Assembler) Seq() uint64 { return a.seq }

// Assemble builds the next snapshot. A vehicle whose derivation fails is logged and
// emitted with defaulted fields; it never aborts the snapshot.
func (a *Assembler) Assemble(now time.Time, states []VehicleState) *Snapshot {
	records := make([]model.VehicleRecord, 0, len(states))
	for _, st := range states {
		rec, err := a.derive(now, st)
		if err != nil {
			util.Component("assembler").WithError(err).WithField("vehicle_id", st.Identity.ID).
				Warn("vehicle derivation failed, emitting partial record")
		}
		records = append(records, rec)
	}
	a.seq++
	return &Snapshot{
		Seq:       a.seq,
		RunID:     a.runID,
		Generated: now,
		Vehicles:  records,
	}
}

func (a *Assembler) derive(now time.Time, st VehicleState) (rec model.VehicleRecord, err error) {
	id := st.Identity
	rec = model.VehicleRecord{
		ID:              id.ID,
		UID:             fmt.Sprintf("%s:%s", id.RouteID, id.Identifiers.DeviceID),
		Name:            id.Name,
		FleetArea:       id.FleetArea,
		Status:          model.StatusStopped,
		Phase:           "Unavailable",
		Identifiers:     id.Identifiers,
		Path:            []model.LatLng{},
		Trail:           []model.LatLng{},
		Upcoming:        []model.LatLng{},
		LastUpdate:      now,
		LastUpdateEpoch: float64(now.UnixNano()) / 1e9,
	}
	defer func() {
		if p := recover(); p != nil {
			err = &model.VehicleDerivationError{VehicleID: id.ID, Stage: "assemble", Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	rec.Location = roundPoint(st.Truth)
	if st.Belief != nil {
		rec.Location = roundPoint(st.Belief.Position)
	}
	if st.Observation != nil {
		raw := roundPoint(*st.Observation)
		rec.RawLocation = &raw
	}
	if st.Trail != nil {
		rec.Trail = roundPoints(st.Trail)
	}
	rec.Geofences = a.overlays.Containing(rec.Location)

	if st.Route == nil {
		if st.Err == nil {
			st.Err = fmt.Errorf("unknown route %q", id.RouteID)
		}
		return rec, &model.VehicleDerivationError{VehicleID: id.ID, Stage: "route", Err: st.Err}
	}
	r := st.Route

	rec.Status = st.Motion.Status
	rec.Phase = motion.Phase(r, st.Motion)
	heading := st.MotionHeading
	var speed float64
	if st.Belief != nil {
		speed = st.Belief.SpeedKmh()
		if speed >= minHeadingSpeedKmh {
			heading = route.NormalizeDegrees(math.Atan2(st.Belief.Velocity.East, st.Belief.Velocity.North) * 180 / math.Pi)
		}
	}
	rec.SpeedKmh = round(math.Max(speed, 0), 1)
	rec.Heading = math.Mod(round(heading, 1), 360)

	progress := r.DistanceAt(st.Motion.Progress)
	if minutes, ok := eta.Estimate(r, st.Motion.Status, progress, speed, a.etaFloor); ok {
		m := math.Max(round(minutes, 1), 0.1)
		rec.EtaMinutes = &m
	}

	rec.Route = &model.RouteRef{
		ID:          r.ID,
		Name:        r.Name,
		Color:       r.Color,
		Progress:    round(progress/r.Length, 3),
		DistanceKm:  round(r.Length, 2),
		Origin:      roundEndpoint(r.Origin),
		Destination: roundEndpoint(r.Destination),
	}
	rec.Path = roundPoints(r.Waypoints)
	upcoming := r.Upcoming(progress)
	if len(upcoming) > 0 {
		upcoming[0] = rec.Location
	}
	rec.Upcoming = roundPoints(upcoming)

	if st.Err != nil {
		return rec, &model.VehicleDerivationError{VehicleID: id.ID, Stage: "tick", Err: st.Err}
	}
	return rec, nil
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func roundPoint(p model.LatLng) model.LatLng {
	return model.LatLng{Lat: round(p.Lat, 6), Lng: round(p.Lng, 6)}
}

func roundPoints(ps []model.LatLng) []model.LatLng {
	out := make([]model.LatLng, len(ps))
	for i, p := range ps {
		out[i] = roundPoint(p)
	}
	return out
}

func roundEndpoint(e model.Endpoint) model.Endpoint {
	return model.Endpoint{Label: e.Label, Lat: round(e.Lat, 6), Lng: round(e.Lng, 6)}
}
