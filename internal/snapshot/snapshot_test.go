package snapshot

import (
	"FleetTrack/internal/estimator"
	"FleetTrack/internal/model"
	"FleetTrack/internal/motion"
	"FleetTrack/internal/route"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoute(t *testing.T) *route.Route {
	t.Helper()
	c, err := route.Load([]model.RouteConfig{{
		ID:               "gulshan-motijheel",
		Name:             "Gulshan–Motijheel",
		Color:            "#9333ea",
		Policy:           "stop",
		Waypoints:        []model.LatLng{{Lat: 23.7925, Lng: 90.4140}, {Lat: 23.7600, Lng: 90.4150}, {Lat: 23.7330, Lng: 90.4172}},
		OriginLabel:      "Gulshan 2",
		DestinationLabel: "Motijheel",
	}})
	require.NoError(t, err)
	return c.All()[0]
}

func identity(id int, routeID string) model.VehicleIdentity {
	return model.VehicleIdentity{
		ID:        id,
		Name:      "VT-20" + string(rune('0'+id)),
		FleetArea: "Gulshan–Motijheel",
		RouteID:   routeID,
		Identifiers: model.Identifiers{
			Driver:   "Rahim Khan",
			DeviceID: "VTMS-DHK-20" + string(rune('0'+id)),
		},
	}
}

func movingState(t *testing.T, r *route.Route, id int) VehicleState {
	s := motion.Start(r, 2, 40)
	pos, _ := r.WaypointAt(s.Progress)
	obs := pos
	return VehicleState{
		Identity:      identity(id, r.ID),
		Route:         r,
		Motion:        s,
		MotionHeading: r.HeadingAt(s.Progress),
		Truth:         pos,
		Belief: &estimator.Belief{
			Position: pos,
			Velocity: estimator.Velocity{East: 0, North: -11},
		},
		Observation: &obs,
		Trail:       []model.LatLng{pos},
	}
}

// ---------------------------------------------------------------------------
// Assembler
// ---------------------------------------------------------------------------

func TestAssembleSequenceStrictlyIncreases(t *testing.T) {
	t.Parallel()
	r := testRoute(t)
	a := NewAssembler("run", nil, 5)
	var last uint64
	for i := 0; i < 20; i++ {
		snap := a.Assemble(time.Now(), []VehicleState{movingState(t, r, 1)})
		require.Greater(t, snap.Seq, last)
		last = snap.Seq
	}
	assert.Equal(t, last, a.Seq())
}

func TestAssembleMovingRecord(t *testing.T) {
	t.Parallel()
	r := testRoute(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := NewAssembler("run-1", nil, 5).Assemble(now, []VehicleState{movingState(t, r, 1)})

	require.Len(t, snap.Vehicles, 1)
	rec := snap.Vehicles[0]
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, now, snap.Generated)
	assert.Equal(t, model.StatusMoving, rec.Status)
	assert.Equal(t, "gulshan-motijheel:VTMS-DHK-201", rec.UID)
	require.NotNil(t, rec.EtaMinutes)
	assert.Greater(t, *rec.EtaMinutes, 0.0)
	assert.InDelta(t, 39.6, rec.SpeedKmh, 0.05)
	assert.InDelta(t, 180, rec.Heading, 0.05)
	require.NotNil(t, rec.Route)
	assert.Equal(t, "Motijheel", rec.Route.Destination.Label)
	assert.Equal(t, rec.Location, rec.Upcoming[0])
	assert.Equal(t, r.Waypoints[len(r.Waypoints)-1], rec.Upcoming[len(rec.Upcoming)-1])
	require.Len(t, rec.Path, len(r.Waypoints))
	assert.Equal(t, r.Waypoints[0], rec.Path[0])
	assert.Equal(t, r.Waypoints[len(r.Waypoints)-1], rec.Path[len(rec.Path)-1])
	assert.NotNil(t, rec.RawLocation)
	assert.Len(t, rec.Trail, 1)
}

func TestAssembleStoppedHasNoETA(t *testing.T) {
	t.Parallel()
	r := testRoute(t)
	st := movingState(t, r, 1)
	st.Motion.Progress = r.Length
	st.Motion.Status = model.StatusStopped

	rec := NewAssembler("run", nil, 5).Assemble(time.Now(), []VehicleState{st}).Vehicles[0]
	assert.Equal(t, model.StatusStopped, rec.Status)
	assert.Nil(t, rec.EtaMinutes)
	assert.Empty(t, rec.Upcoming)
}

func TestAssembleMissingRouteIsolated(t *testing.T) {
	t.Parallel()
	r := testRoute(t)
	ghost := VehicleState{
		Identity: identity(2, "no-such-route"),
		Err:      errors.New("unknown route"),
	}
	snap := NewAssembler("run", nil, 5).Assemble(time.Now(), []VehicleState{movingState(t, r, 1), ghost, movingState(t, r, 3)})

	require.Len(t, snap.Vehicles, 3)
	assert.NotNil(t, snap.Vehicles[0].Route)
	assert.Nil(t, snap.Vehicles[1].Route)
	assert.Nil(t, snap.Vehicles[1].EtaMinutes)
	assert.Equal(t, 2, snap.Vehicles[1].ID)
	assert.Equal(t, model.StatusStopped, snap.Vehicles[1].Status)
	assert.NotNil(t, snap.Vehicles[1].Trail)
	assert.Equal(t, []model.LatLng{}, snap.Vehicles[1].Path)
	assert.NotNil(t, snap.Vehicles[2].Route)
}

func TestCheckFleet(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, CheckFleet(0, 0), ErrEmptyFleet)
	assert.NoError(t, CheckFleet(0, 1))
	assert.NoError(t, CheckFleet(3, 0))
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

func TestStorePublish(t *testing.T) {
	t.Parallel()
	var s Store
	assert.Nil(t, s.Load())
	assert.True(t, s.Publish(&Snapshot{Seq: 1}))
	assert.True(t, s.Publish(&Snapshot{Seq: 2}))
	assert.False(t, s.Publish(&Snapshot{Seq: 2}))
	assert.False(t, s.Publish(&Snapshot{Seq: 1}))
	assert.Equal(t, uint64(2), s.Load().Seq)
}

func TestStoreMarkStale(t *testing.T) {
	t.Parallel()
	var s Store
	s.MarkStale()
	assert.Nil(t, s.Load())

	orig := &Snapshot{Seq: 4, Vehicles: []model.VehicleRecord{{ID: 1}}}
	s.Publish(orig)
	s.MarkStale()
	got := s.Load()
	assert.True(t, got.Stale)
	assert.False(t, orig.Stale)
	assert.Equal(t, orig.Vehicles, got.Vehicles)
	assert.Equal(t, uint64(4), got.Seq)
}

func TestStoreConcurrentReaders(t *testing.T) {
	t.Parallel()
	var s Store
	var wg sync.WaitGroup
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for {
				select {
				case <-done:
					return
				default:
				}
				if snap := s.Load(); snap != nil {
					assert.GreaterOrEqual(t, snap.Seq, last)
					assert.Len(t, snap.Vehicles, int(snap.Seq%5))
					last = snap.Seq
				}
			}
		}()
	}
	for seq := uint64(1); seq <= 500; seq++ {
		s.Publish(&Snapshot{Seq: seq, Vehicles: make([]model.VehicleRecord, seq%5)})
	}
	close(done)
	wg.Wait()
}

func TestIsStale(t *testing.T) {
	t.Parallel()
	now := time.Now()
	assert.True(t, IsStale(nil, now, 0))
	assert.True(t, IsStale(&Snapshot{Stale: true, Generated: now}, now, 0))
	assert.False(t, IsStale(&Snapshot{Generated: now.Add(-time.Minute)}, now, 0))
	assert.True(t, IsStale(&Snapshot{Generated: now.Add(-time.Minute)}, now, 30*time.Second))
}
