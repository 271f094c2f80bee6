package config

import (
	"FleetTrack/configs"
	"FleetTrack/internal/model"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FLEETTRACK_CONFIG", "")
	c, err := Load("")
	require.NoError(t, err)
	s := c.Settings()

	assert.Equal(t, ":8080", s.Server.Addr)
	assert.Equal(t, time.Second, s.Simulation.TickInterval)
	assert.Equal(t, 50, s.Simulation.TrailCapacity)
	assert.Equal(t, 5.0, s.Simulation.EtaSpeedFloorKmh)
	assert.Equal(t, 60.0, s.Simulation.MaxSpeedKmh)
	assert.Equal(t, 4*time.Second, s.Traffic.Timeout)
	assert.Equal(t, []float64{23.70, 90.35, 23.92, 90.55}, s.Traffic.BBox)
	assert.Empty(t, s.Traffic.Provider)
	assert.Empty(t, c.Path())
}

func TestLoadFileAndEnv(t *testing.T) {
	p := writeFile(t, "config.yml", `
simulation:
  tick_interval: 250ms
  noise_sigma_m: 3
traffic:
  provider: TomTom
  tomtom_api_key: secret
log:
  level: debug
`)
	t.Setenv("FLEETTRACK_SIMULATION_NOISE_SIGMA_M", "12")
	t.Setenv("FLEETTRACK_SERVER_ADDR", ":9999")

	c, err := Load(p)
	require.NoError(t, err)
	s := c.Settings()

	assert.Equal(t, 250*time.Millisecond, s.Simulation.TickInterval)
	assert.Equal(t, 12.0, s.Simulation.NoiseSigmaM, "env wins over file")
	assert.Equal(t, ":9999", s.Server.Addr)
	assert.Equal(t, "tomtom", s.Traffic.Provider)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, 8.0, s.Simulation.MinSpeedKmh, "untouched keys keep defaults")
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		section string
		field   string
	}{
		{"speed bounds inverted", "simulation:\n  min_speed_kmh: 50\n  max_speed_kmh: 10\n", "simulation", "MaxSpeedKmh"},
		{"dropout above one", "simulation:\n  dropout_probability: 1.5\n", "simulation", "DropoutProbability"},
		{"unknown provider", "traffic:\n  provider: here\n", "traffic", "Provider"},
		{"bad stream format", "server:\n  stream_format: xml\n", "server", "StreamFormat"},
		{"zero tick", "simulation:\n  tick_interval: 0s\n", "simulation", "TickInterval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yml", tt.body))
			var cerr *model.ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.section, cerr.Section)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	var cerr *model.ConfigError
	assert.True(t, errors.As(err, &cerr))
}

func TestReloadPushesTuning(t *testing.T) {
	p := writeFile(t, "config.yml", "simulation:\n  noise_sigma_m: 3\n")
	c, err := Load(p)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(p, []byte("simulation:\n  noise_sigma_m: 9\n  dropout_probability: 0.2\n  trail_capacity: 12\n"), 0o644))
	require.NoError(t, c.v.ReadInConfig())

	var got model.SimulationSettings
	c.reload(func(sim model.SimulationSettings) { got = sim })
	assert.Equal(t, 9.0, got.NoiseSigmaM)
	assert.Equal(t, 0.2, got.DropoutProbability)
	assert.Equal(t, 12, got.TrailCapacity)
	assert.Equal(t, 9.0, c.Settings().Simulation.NoiseSigmaM)
}

func TestReloadRejectsInvalid(t *testing.T) {
	p := writeFile(t, "config.yml", "simulation:\n  noise_sigma_m: 3\n")
	c, err := Load(p)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(p, []byte("simulation:\n  dropout_probability: 7\n"), 0o644))
	require.NoError(t, c.v.ReadInConfig())

	called := false
	c.reload(func(model.SimulationSettings) { called = true })
	assert.False(t, called)
	assert.Equal(t, 3.0, c.Settings().Simulation.NoiseSigmaM)
}

func TestLoadCatalogEmbedded(t *testing.T) {
	t.Parallel()
	cat, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, cat.Routes, 3)
	assert.Len(t, cat.Vehicles, 10)
	assert.Len(t, cat.Geofences, 2)
	assert.Len(t, cat.Depots, 2)
	assert.Equal(t, 11, cat.Center.Zoom)
	assert.Equal(t, "VT-201", cat.Vehicles[0].Name)
	assert.NotEmpty(t, cat.Routes[0].Polyline)
}

func TestParseCatalogInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"not yaml", "routes: [\n"},
		{"route without id", "routes:\n  - name: x\n    waypoints: [{lat: 1, lng: 1}, {lat: 2, lng: 2}]\n"},
		{"bad color", "routes:\n  - id: a\n    name: x\n    color: blue\n"},
		{"vehicle without device", "routes: []\nvehicles:\n  - id: 1\n    name: a\n    route_id: r\n"},
		{"geofence with two points", "geofences:\n  - id: g\n    name: g\n    points: [{lat: 1, lng: 1}, {lat: 2, lng: 2}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.body))
			var cerr *model.ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, "catalog", cerr.Section)
		})
	}
}

func TestSampleMatchesDefaults(t *testing.T) {
	t.Setenv("FLEETTRACK_CONFIG", "")
	sample, err := Load(writeFile(t, "config.yml", string(configs.Sample)))
	require.NoError(t, err)
	defaults, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, defaults.Settings(), sample.Settings())
}
