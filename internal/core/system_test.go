package core

import (
	"FleetTrack/internal/config"
	"FleetTrack/internal/model"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(t *testing.T) model.Settings {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	s := cfg.Settings()
	s.Server.Addr = ""
	s.Server.StreamFormat = "csv"
	s.Simulation.TickInterval = 10 * time.Millisecond
	return s
}

func TestNewSystemFromEmbeddedCatalog(t *testing.T) {
	t.Parallel()
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)

	sys, err := NewSystem(testSettings(t), catalog)
	require.NoError(t, err)
	assert.Equal(t, 10, sys.Engine().Vehicles())
	assert.Equal(t, 3, sys.Routes.Len())
	assert.Len(t, sys.Overlays.Geofences, 2)
	assert.Nil(t, sys.Store.Load())
}

func TestSystemStartStop(t *testing.T) {
	t.Parallel()
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)
	sys, err := NewSystem(testSettings(t), catalog)
	require.NoError(t, err)

	require.NoError(t, sys.StartAll(context.Background()))
	require.NoError(t, sys.StartAll(context.Background()))
	require.Eventually(t, func() bool {
		snap := sys.Store.Load()
		return snap != nil && snap.Seq >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, sys.Scheduler.Running())
	assert.Len(t, sys.Store.Load().Vehicles, 10)

	sys.StopAll()
	sys.StopAll()
	assert.False(t, sys.Scheduler.Running())
	assert.NoError(t, sys.Wait())
}

func TestNewSystemRejects(t *testing.T) {
	t.Parallel()

	t.Run("nil catalog", func(t *testing.T) {
		t.Parallel()
		_, err := NewSystem(testSettings(t), nil)
		var cfgErr *model.ConfigError
		assert.True(t, errors.As(err, &cfgErr), "got %v", err)
	})

	t.Run("bad route", func(t *testing.T) {
		t.Parallel()
		cat := &model.Catalog{Routes: []model.RouteConfig{{ID: "x", Name: "X", Waypoints: []model.LatLng{{Lat: 1, Lng: 1}}}}}
		_, err := NewSystem(testSettings(t), cat)
		var cfgErr *model.ConfigError
		require.True(t, errors.As(err, &cfgErr), "got %v", err)
		assert.Equal(t, "x", cfgErr.Field)
	})

	t.Run("unknown stream format", func(t *testing.T) {
		t.Parallel()
		s := testSettings(t)
		s.Server.StreamFormat = "xml"
		cat := &model.Catalog{Routes: []model.RouteConfig{gulshanMotijheel()}}
		_, err := NewSystem(s, cat)
		var cfgErr *model.ConfigError
		require.True(t, errors.As(err, &cfgErr), "got %v", err)
		assert.Equal(t, "stream_format", cfgErr.Field)
	})
}
