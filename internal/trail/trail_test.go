package trail

import (
	"FleetTrack/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(i int) model.LatLng { return model.LatLng{Lat: float64(i), Lng: float64(-i)} }

func TestPushEvictsOldest(t *testing.T) {
	t.Parallel()
	for _, k := range []int{0, 1, 7, 50, 123} {
		b := New(DefaultCapacity)
		total := DefaultCapacity + k
		for i := 0; i < total; i++ {
			b.Push(1, pos(i))
			require.LessOrEqual(t, b.Len(1), DefaultCapacity)
		}
		got := b.Snapshot(1)
		require.Len(t, got, DefaultCapacity)
		for i, p := range got {
			assert.Equal(t, pos(total-DefaultCapacity+i), p, "k=%d index %d", k, i)
		}
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	t.Parallel()
	b := New(3)
	b.Push(1, pos(1))
	snap := b.Snapshot(1)
	snap[0] = pos(99)
	assert.Equal(t, pos(1), b.Snapshot(1)[0])
}

func TestVehiclesIndependent(t *testing.T) {
	t.Parallel()
	b := New(2)
	b.Push(1, pos(1))
	b.Push(2, pos(2))
	b.Push(2, pos(3))
	assert.Equal(t, []model.LatLng{pos(1)}, b.Snapshot(1))
	assert.Equal(t, []model.LatLng{pos(2), pos(3)}, b.Snapshot(2))
	assert.Empty(t, b.Snapshot(3))
}

func TestRecent(t *testing.T) {
	t.Parallel()
	b := New(4)
	for i := 0; i < 6; i++ {
		b.Push(1, pos(i))
	}
	assert.Equal(t, []model.LatLng{pos(5), pos(4)}, b.Recent(1, 2))
	assert.Equal(t, []model.LatLng{pos(5), pos(4), pos(3), pos(2)}, b.Recent(1, 10))
	assert.Empty(t, b.Recent(1, 0))
}

func TestResize(t *testing.T) {
	t.Parallel()
	b := New(5)
	for i := 0; i < 5; i++ {
		b.Push(1, pos(i))
	}
	b.Resize(3)
	assert.Equal(t, []model.LatLng{pos(2), pos(3), pos(4)}, b.Snapshot(1))
	b.Push(1, pos(5))
	assert.Equal(t, []model.LatLng{pos(3), pos(4), pos(5)}, b.Snapshot(1))
	assert.Equal(t, 3, b.Capacity())
}

func TestPreviewDoesNotPush(t *testing.T) {
	t.Parallel()
	b := New(3)
	assert.Equal(t, []model.LatLng{pos(0)}, b.Preview(1, pos(0)))
	assert.Zero(t, b.Len(1))

	for i := 0; i < 3; i++ {
		b.Push(1, pos(i))
	}
	assert.Equal(t, []model.LatLng{pos(1), pos(2), pos(3)}, b.Preview(1, pos(3)))
	assert.Equal(t, []model.LatLng{pos(0), pos(1), pos(2)}, b.Snapshot(1))
}
