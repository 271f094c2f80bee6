package estimator

import (
	"FleetTrack/internal/model"
	"fmt"
	"math"
	"time"
)

// Bank owns one Filter per vehicle id. Filters are created on the first observation
// and live for the lifetime of the Bank. It is owned by the simulation tick and is
// not safe for concurrent use.
type Bank struct {
	params  Params
	filters map[int]*Filter
}

// NewBank returns an empty Bank whose filters use params.
func NewBank(params Params) *Bank {
	return &Bank{params: params, filters: make(map[int]*Filter)}
}

// Step advances the filter of vehicle id. Before the first observation arrives there
// is no belief and Step returns model.ErrSensorGap.
func (b *Bank) Step(id int, in Input) (Belief, error) {
	f, belief, err := b.Propose(id, in)
	if err != nil {
		return Belief{}, err
	}
	b.Commit(id, f)
	return belief, nil
}

// Propose runs one step on a copy of the filter of vehicle id and returns the copy
// with its belief. The bank is not modified until the copy is passed to Commit.
func (b *Bank) Propose(id int, in Input) (*Filter, Belief, error) {
	f, ok := b.filters[id]
	if !ok {
		if in.Observation == nil {
			return nil, Belief{}, model.ErrSensorGap
		}
		f = NewFilter(b.params, *in.Observation, in.Velocity)
		return f, f.Belief(), nil
	}
	next := f.Clone()
	if err := next.Step(in); err != nil {
		return nil, Belief{}, fmt.Errorf("vehicle %d: %w", id, err)
	}
	return next, next.Belief(), nil
}

// Commit installs a filter returned by Propose as the filter of vehicle id.
func (b *Bank) Commit(id int, f *Filter) {
	if f != nil {
		b.filters[id] = f
	}
}

// Belief returns the current belief of vehicle id.
func (b *Bank) Belief(id int) (Belief, bool) {
	f, ok := b.filters[id]
	if !ok {
		return Belief{}, false
	}
	return f.Belief(), true
}

// Len is the number of live filters.
func (b *Bank) Len() int { return len(b.filters) }

// SetMeasurementVariance changes the observation variance used by every filter from
// the next step on.
func (b *Bank) SetMeasurementVariance(v float64) {
	b.params.MeasurementVariance = v
	for _, f := range b.filters {
		f.params.MeasurementVariance = v
	}
}

// VelocityFromHeading converts a speed along a compass heading into east/north m/s.
func VelocityFromHeading(speedKmh, headingDeg float64) Velocity {
	v := speedKmh / 3.6
	rad := headingDeg * math.Pi / 180
	return Velocity{East: v * math.Sin(rad), North: v * math.Cos(rad)}
}

// VelocityBetween is the average east/north velocity travelling from a to b over dt,
// in the same local projection the filters use.
func VelocityBetween(a, b model.LatLng, dt time.Duration) Velocity {
	sec := dt.Seconds()
	if sec <= 0 {
		return Velocity{}
	}
	cosLat := math.Cos(a.Lat * math.Pi / 180)
	return Velocity{
		East:  (b.Lng - a.Lng) * metresPerDegree * cosLat / sec,
		North: (b.Lat - a.Lat) * metresPerDegree / sec,
	}
}
