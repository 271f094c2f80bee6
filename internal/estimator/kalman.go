// Package estimator fuses noisy position observations with motion-model velocity into
// a smoothed belief per vehicle.
//
// Each Filter is a constant-velocity Kalman filter over the state
// [east, north, vEast, vNorth] in metres and metres per second, expressed in a local
// tangent plane anchored at the vehicle's first observation. Every tick runs:
//
//  1. velocity fusion: the motion model's implied velocity is folded in as a
//     pseudo-observation of the velocity components;
//  2. predict: the state is propagated over dt and white-noise acceleration
//     inflates the covariance;
//  3. update: the observed position is fused, when present.
//
// Gains are recomputed every step from the current covariances.
package estimator

import (
	"FleetTrack/internal/model"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

const metresPerDegree = 6371008.8 * math.Pi / 180

// ErrCorruptBelief is returned when a filter's state or covariance stops being finite
// or a variance turns negative. The tick that hits it must not be published.
var ErrCorruptBelief = errors.New("corrupt belief state")

// Params tunes a Filter.
type Params struct {
	ProcessNoise        float64 // white-noise acceleration spectral density, m²/s³
	MeasurementVariance float64 // position observation variance, m²
	VelocityVariance    float64 // motion-model velocity variance, (m/s)²
	InitialVelocityVar  float64 // velocity variance at initialization, (m/s)²
}

// DefaultParams suits a few metres of GPS error at city speeds.
func DefaultParams() Params {
	return Params{
		ProcessNoise:        0.05,
		MeasurementVariance: 25,
		VelocityVariance:    1,
		InitialVelocityVar:  25,
	}
}

// Input is everything a filter consumes in one tick.
type Input struct {
	Dt time.Duration
	// motion-model implied velocity over the tick
	Velocity    Velocity
	HasVelocity bool
	// nil on sensor dropout
	Observation *model.LatLng
}

// Velocity is a local east/north velocity in m/s.
type Velocity struct {
	East  float64
	North float64
}

// Belief is a copy of a filter's state, safe to hand to readers.
type Belief struct {
	Position   model.LatLng
	Velocity   Velocity
	Covariance [4][4]float64
	Steps      int
}

// SpeedKmh is the magnitude of the estimated velocity.
func (b Belief) SpeedKmh() float64 {
	return math.Hypot(b.Velocity.East, b.Velocity.North) * 3.6
}

// PositionVariance is the trace of the position block of the covariance.
func (b Belief) PositionVariance() float64 {
	return b.Covariance[0][0] + b.Covariance[1][1]
}

// Filter is one vehicle's persistent Kalman filter.
type Filter struct {
	params Params
	origin model.LatLng
	cosLat float64
	x      *mat.VecDense
	p      *mat.Dense
	steps  int
}

// NewFilter initializes a filter at the first observation.
func NewFilter(params Params, first model.LatLng, v Velocity) *Filter {
	f := &Filter{
		params: params,
		origin: first,
		cosLat: math.Cos(first.Lat * math.Pi / 180),
		x:      mat.NewVecDense(4, []float64{0, 0, v.East, v.North}),
		p: mat.NewDense(4, 4, []float64{
			params.MeasurementVariance, 0, 0, 0,
			0, params.MeasurementVariance, 0, 0,
			0, 0, params.InitialVelocityVar, 0,
			0, 0, 0, params.InitialVelocityVar,
		}),
		steps: 1,
	}
	return f
}

// Step runs one tick. Without an observation only the velocity fusion and predict
// steps run and the position uncertainty grows.
func (f *Filter) Step(in Input) error {
	dt := in.Dt.Seconds()
	if dt <= 0 {
		return fmt.Errorf("non-positive dt %v", in.Dt)
	}
	if in.HasVelocity {
		z := mat.NewVecDense(2, []float64{in.Velocity.East, in.Velocity.North})
		if err := f.update(velocityH, z, f.params.VelocityVariance); err != nil {
			return fmt.Errorf("velocity update: %w", err)
		}
	}
	f.predict(dt)
	if in.Observation != nil {
		e, n := f.project(*in.Observation)
		if err := f.update(positionH, mat.NewVecDense(2, []float64{e, n}), f.params.MeasurementVariance); err != nil {
			return fmt.Errorf("position update: %w", err)
		}
	}
	f.steps++
	return f.check()
}

// Clone returns an independent copy of f. Stepping the copy leaves f untouched.
func (f *Filter) Clone() *Filter {
	c := *f
	c.x = mat.VecDenseCopyOf(f.x)
	c.p = mat.DenseCopyOf(f.p)
	return &c
}

// Belief returns a copy of the current state.
func (f *Filter) Belief() Belief {
	b := Belief{
		Position: f.unproject(f.x.AtVec(0), f.x.AtVec(1)),
		Velocity: Velocity{East: f.x.AtVec(2), North: f.x.AtVec(3)},
		Steps:    f.steps,
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			b.Covariance[i][j] = f.p.At(i, j)
		}
	}
	return b
}

var (
	positionH = mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
	velocityH = mat.NewDense(2, 4, []float64{
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	eye4 = mat.NewDiagDense(4, []float64{1, 1, 1, 1})
)

func (f *Filter) predict(dt float64) {
	F := mat.NewDense(4, 4, []float64{
		1, 0, dt, 0,
		0, 1, 0, dt,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	q := f.params.ProcessNoise
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	Q := mat.NewDense(4, 4, []float64{
		dt4 / 4 * q, 0, dt3 / 2 * q, 0,
		0, dt4 / 4 * q, 0, dt3 / 2 * q,
		dt3 / 2 * q, 0, dt2 * q, 0,
		0, dt3 / 2 * q, 0, dt2 * q,
	})

	var x mat.VecDense
	x.MulVec(F, f.x)
	f.x = &x

	var fp, fpft mat.Dense
	fp.Mul(F, f.p)
	fpft.Mul(&fp, F.T())
	fpft.Add(&fpft, Q)
	f.p = &fpft
}

// update fuses a 2-dimensional measurement z observed through h with isotropic
// variance r, using the Joseph form to keep the covariance symmetric and positive.
// A singular innovation covariance leaves the filter unchanged and reports
// ErrCorruptBelief.
func (f *Filter) update(h *mat.Dense, z *mat.VecDense, r float64) error {
	R := mat.NewDiagDense(2, []float64{r, r})

	var ph, s mat.Dense
	ph.Mul(f.p, h.T())
	s.Mul(h, &ph)
	s.Add(&s, R)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return fmt.Errorf("%w: innovation covariance not invertible: %v", ErrCorruptBelief, err)
	}
	var k mat.Dense
	k.Mul(&ph, &sInv)

	var hx, y mat.VecDense
	hx.MulVec(h, f.x)
	y.SubVec(z, &hx)
	var ky, x mat.VecDense
	ky.MulVec(&k, &y)
	x.AddVec(f.x, &ky)
	f.x = &x

	var kh, ikh mat.Dense
	kh.Mul(&k, h)
	ikh.Sub(eye4, &kh)

	var a, joseph, kr, krkt mat.Dense
	a.Mul(&ikh, f.p)
	joseph.Mul(&a, ikh.T())
	kr.Mul(&k, R)
	krkt.Mul(&kr, k.T())
	joseph.Add(&joseph, &krkt)

	// symmetrize against rounding drift
	var sym mat.Dense
	sym.Add(&joseph, joseph.T())
	sym.Scale(0.5, &sym)
	f.p = &sym
	return nil
}

func (f *Filter) check() error {
	for i := 0; i < 4; i++ {
		if v := f.x.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: state[%d]=%v", ErrCorruptBelief, i, v)
		}
		for j := 0; j < 4; j++ {
			if v := f.p.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: covariance[%d][%d]=%v", ErrCorruptBelief, i, j, v)
			}
		}
		if f.p.At(i, i) < 0 {
			return fmt.Errorf("%w: negative variance at %d", ErrCorruptBelief, i)
		}
	}
	return nil
}

func (f *Filter) project(p model.LatLng) (east, north float64) {
	east = (p.Lng - f.origin.Lng) * metresPerDegree * f.cosLat
	north = (p.Lat - f.origin.Lat) * metresPerDegree
	return east, north
}

func (f *Filter) unproject(east, north float64) model.LatLng {
	return model.LatLng{
		Lat: f.origin.Lat + north/metresPerDegree,
		Lng: f.origin.Lng + east/(metresPerDegree*f.cosLat),
	}
}
