// Package core contains the runtime logic and orchestration layer for FleetTrack.
// It defines the Engine that runs one simulation tick, the Scheduler that drives it,
// and the System that wires the engine, traffic adapter and HTTP server together.
package core

import (
	"FleetTrack/internal/estimator"
	"FleetTrack/internal/model"
	"FleetTrack/internal/motion"
	"FleetTrack/internal/noise"
	"FleetTrack/internal/overlay"
	"FleetTrack/internal/route"
	"FleetTrack/internal/snapshot"
	"FleetTrack/internal/trail"
	"FleetTrack/internal/util"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"
)

// EngineOptions configures NewEngine.
type EngineOptions struct {
	Catalog    *route.Catalog
	Vehicles   []model.VehicleConfig
	Overlays   *overlay.Set
	Simulation model.SimulationSettings
	Estimator  model.EstimatorSettings
	RunID      string

	// Random sources; seeded from Simulation.Seed when nil.
	MotionSource rand.Source
	NoiseSource  rand.Source
}

// Engine runs the per-tick pipeline: motion, noise, estimation, trail, assembly.
// Tick must only be called from one goroutine at a time. UpdateTuning and Reconfigure
// are safe to call concurrently.
type Engine struct {
	vehicles  []*Vehicle
	motionSrc *rewindSource
	noiseSrc  *rewindSource
	motion    *motion.Model
	noise     *noise.Injector
	bank      *estimator.Bank
	trails    *trail.Buffer
	asm       *snapshot.Assembler

	tuning        atomic.Pointer[model.Tuning]
	trailCapacity atomic.Int64
	measFloor     float64
	measVar       float64
}

// staged is one vehicle's outcome of a tick, applied only once the whole tick succeeds.
type staged struct {
	vehicle *Vehicle
	motion  motion.State
	last    model.LatLng
	filter  *estimator.Filter
	trail   *model.LatLng
	ok      bool
}

// NewEngine validates the fleet and builds an Engine. It fails only when there are
// neither vehicles nor routes.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("engine: nil route catalog")
	}
	if err := snapshot.CheckFleet(len(opts.Vehicles), opts.Catalog.Len()); err != nil {
		return nil, &model.ConfigError{Section: "catalog", Err: err}
	}
	cfgs := opts.Vehicles
	if len(cfgs) == 0 {
		cfgs = defaultFleet(opts.Catalog)
	}
	seen := make(map[int]bool, len(cfgs))
	vehicles := make([]*Vehicle, 0, len(cfgs))
	for i, c := range cfgs {
		if seen[c.ID] {
			return nil, &model.ConfigError{Section: fmt.Sprintf("vehicles[%d]", i), Field: "id", Err: fmt.Errorf("duplicate vehicle id %d", c.ID)}
		}
		seen[c.ID] = true
		vehicles = append(vehicles, NewVehicle(c, opts.Catalog))
	}

	if opts.MotionSource == nil {
		opts.MotionSource = rand.NewSource(opts.Simulation.Seed)
	}
	if opts.NoiseSource == nil {
		opts.NoiseSource = rand.NewSource(opts.Simulation.Seed + 1)
	}

	est := estimator.DefaultParams()
	if opts.Estimator.ProcessNoise > 0 {
		est.ProcessNoise = opts.Estimator.ProcessNoise
	}
	if opts.Estimator.VelocityVariance > 0 {
		est.VelocityVariance = opts.Estimator.VelocityVariance
	}
	floor := opts.Estimator.MeasurementFloorM2
	if floor <= 0 {
		floor = 1
	}

	e := &Engine{
		vehicles:  vehicles,
		motionSrc: newRewindSource(opts.MotionSource),
		noiseSrc:  newRewindSource(opts.NoiseSource),
		trails:    trail.New(opts.Simulation.TrailCapacity),
		asm:       snapshot.NewAssembler(opts.RunID, opts.Overlays, opts.Simulation.EtaSpeedFloorKmh),
		measFloor: floor,
	}
	e.motion = motion.New(e.motionSrc)
	e.noise = noise.NewInjector(e.noiseSrc)
	e.trailCapacity.Store(int64(e.trails.Capacity()))
	tuning := opts.Simulation.Tuning
	e.tuning.Store(&tuning)
	e.measVar = e.measurementVariance(tuning)
	est.MeasurementVariance = e.measVar
	e.bank = estimator.NewBank(est)
	return e, nil
}

// UpdateTuning swaps the speed and noise parameters used from the next tick on.
func (e *Engine) UpdateTuning(t model.Tuning) {
	e.tuning.Store(&t)
}

// Reconfigure applies the reloadable simulation settings: the tuning and the trail
// capacity. Both take effect on the next tick.
func (e *Engine) Reconfigure(sim model.SimulationSettings) {
	e.UpdateTuning(sim.Tuning)
	if sim.TrailCapacity > 0 {
		e.trailCapacity.Store(int64(sim.TrailCapacity))
	}
}

// Tuning returns the parameters the next tick will use.
func (e *Engine) Tuning() model.Tuning { return *e.tuning.Load() }

// Vehicles is the number of simulated vehicles.
func (e *Engine) Vehicles() int { return len(e.vehicles) }

// Tick advances every vehicle by dt and assembles the resulting snapshot. The
// snapshot is returned only when every vehicle was processed; a cancelled ctx
// returns its error and a corrupted belief returns a *model.SchedulerFatalError.
// A tick that returns an error leaves the engine exactly as it was before the call.
func (e *Engine) Tick(ctx context.Context, now time.Time, dt time.Duration) (*snapshot.Snapshot, error) {
	if c := int(e.trailCapacity.Load()); c != e.trails.Capacity() {
		e.trails.Resize(c)
	}
	t := *e.tuning.Load()
	if v := e.measurementVariance(t); v != e.measVar {
		e.measVar = v
		e.bank.SetMeasurementVariance(v)
	}
	bounds := motion.Bounds{MinSpeedKmh: t.MinSpeedKmh, MaxSpeedKmh: t.MaxSpeedKmh, SpeedJitterKmh: t.SpeedJitterKmh}
	profile := noise.Profile{SigmaM: t.NoiseSigmaM, MaxRadiusM: t.NoiseMaxRadiusM, DropoutProbability: t.DropoutProbability}

	states := make([]snapshot.VehicleState, 0, len(e.vehicles))
	pending := make([]staged, 0, len(e.vehicles))
	for _, v := range e.vehicles {
		if err := ctx.Err(); err != nil {
			e.discard()
			return nil, err
		}
		st, next, err := e.step(v, dt, bounds, profile)
		if err != nil {
			e.discard()
			return nil, &model.SchedulerFatalError{Seq: e.asm.Seq() + 1, Err: err}
		}
		states = append(states, st)
		pending = append(pending, next)
	}
	if err := ctx.Err(); err != nil {
		e.discard()
		return nil, err
	}

	e.commit(pending)
	snap := e.asm.Assemble(now, states)
	util.Component("engine").WithField("seq", snap.Seq).WithField("vehicles", len(snap.Vehicles)).Debug("tick assembled")
	return snap, nil
}

func (e *Engine) commit(pending []staged) {
	for _, p := range pending {
		if !p.ok {
			continue
		}
		p.vehicle.Motion = p.motion
		p.vehicle.last = p.last
		e.bank.Commit(p.vehicle.Identity.ID, p.filter)
		if p.trail != nil {
			e.trails.Push(p.vehicle.Identity.ID, *p.trail)
		}
	}
	e.motionSrc.commit()
	e.noiseSrc.commit()
}

func (e *Engine) discard() {
	e.motionSrc.rewind()
	e.noiseSrc.rewind()
}

// step advances one vehicle without touching the engine's state; the returned staged
// outcome is applied by commit. Only a corrupted belief is returned as an error;
// every other failure is recorded on the state and isolated to this vehicle.
func (e *Engine) step(v *Vehicle, dt time.Duration, b motion.Bounds, p noise.Profile) (st snapshot.VehicleState, next staged, fatal error) {
	st = snapshot.VehicleState{Identity: v.Identity, Route: v.Route, Motion: v.Motion, Truth: v.last}
	next = staged{vehicle: v}
	defer func() {
		if r := recover(); r != nil {
			st.Err = &model.VehicleDerivationError{VehicleID: v.Identity.ID, Stage: "tick", Err: fmt.Errorf("panic: %v", r)}
			next = staged{vehicle: v}
		}
	}()

	if v.Route == nil {
		st.Err = &model.VehicleDerivationError{VehicleID: v.Identity.ID, Stage: "route", Err: fmt.Errorf("unknown route %q", v.Identity.RouteID)}
		if belief, ok := e.bank.Belief(v.Identity.ID); ok {
			st.Belief = &belief
		}
		return st, next, nil
	}

	moved, fix := e.motion.Advance(v.Route, v.Motion, dt, b)
	st.Motion = moved
	st.MotionHeading = fix.Heading
	st.Truth = fix.Position

	in := estimator.Input{Dt: dt, HasVelocity: true}
	if moved.Status == model.StatusMoving {
		in.Velocity = estimator.VelocityFromHeading(moved.SpeedKmh, fix.Heading)
	}
	if obs, ok := e.noise.Observe(fix.Position, p); ok {
		in.Observation = &obs
		st.Observation = &obs
	}

	next.motion = moved
	next.last = fix.Position
	next.ok = true

	filter, belief, err := e.bank.Propose(v.Identity.ID, in)
	switch {
	case errors.Is(err, model.ErrSensorGap):
		// no belief yet; the record falls back to the route position
		st.Trail = e.trails.Snapshot(v.Identity.ID)
	case errors.Is(err, estimator.ErrCorruptBelief):
		return st, staged{}, err
	case err != nil:
		st.Err = &model.VehicleDerivationError{VehicleID: v.Identity.ID, Stage: "estimate", Err: err}
		st.Trail = e.trails.Snapshot(v.Identity.ID)
	default:
		st.Belief = &belief
		next.filter = filter
		next.trail = &belief.Position
		st.Trail = e.trails.Preview(v.Identity.ID, belief.Position)
	}
	return st, next, nil
}

func (e *Engine) measurementVariance(t model.Tuning) float64 {
	return math.Max(t.NoiseSigmaM*t.NoiseSigmaM, e.measFloor)
}
