package app

import (
	"FleetTrack/internal/model"
	"FleetTrack/internal/overlay"
	"FleetTrack/internal/parser"
	"FleetTrack/internal/route"
	"FleetTrack/internal/snapshot"
	"FleetTrack/internal/traffic"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

type brokenProvider struct{}

func (brokenProvider) Name() string { return "tomtom" }
func (brokenProvider) Incidents(context.Context) ([]model.TrafficFeature, error) {
	return nil, errors.New("401 unauthorized")
}

type fakeScheduler struct {
	running bool
	err     error
}

func (f fakeScheduler) Running() bool { return f.running }
func (f fakeScheduler) Err() error    { return f.err }

func testApp(t *testing.T, opts Options) *App {
	t.Helper()
	if opts.Store == nil {
		opts.Store = &snapshot.Store{}
	}
	a, err := NewApp(opts)
	require.NoError(t, err)
	return a
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func sampleSnapshot() *snapshot.Snapshot {
	now := time.Now().UTC()
	return &snapshot.Snapshot{
		Seq:       3,
		RunID:     "run-1",
		Generated: now,
		Vehicles: []model.VehicleRecord{
			{ID: 1, Name: "VT-201", Status: model.StatusMoving, FleetArea: "A", Identifiers: model.Identifiers{DeviceID: "VTMS-DHK-201"}, LastUpdate: now, Trail: []model.LatLng{}, Upcoming: []model.LatLng{}},
			{ID: 2, Name: "VT-202", Status: model.StatusIdle, FleetArea: "B", Identifiers: model.Identifiers{DeviceID: "VTMS-DHK-202"}, LastUpdate: now, Trail: []model.LatLng{}, Upcoming: []model.LatLng{}},
		},
	}
}

func TestNewAppRequiresStore(t *testing.T) {
	t.Parallel()
	_, err := NewApp(Options{})
	assert.Error(t, err)
}

func TestVehiclesBeforeFirstSnapshot(t *testing.T) {
	t.Parallel()
	rec := get(t, testApp(t, Options{}).Handler(), "/api/vehicles/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []any{}, body["vehicles"])
	assert.Equal(t, true, body["stale"])
	_, err := time.Parse(time.RFC3339Nano, body["timestamp"].(string))
	assert.NoError(t, err)
}

func TestVehiclesServesLatestSnapshot(t *testing.T) {
	t.Parallel()
	store := &snapshot.Store{}
	snap := sampleSnapshot()
	store.Publish(snap)
	rec := get(t, testApp(t, Options{Store: store}).Handler(), "/api/vehicles/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var body vehiclesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, uint64(3), body.Sequence)
	assert.Equal(t, "run-1", body.RunID)
	assert.False(t, body.Stale)
	assert.Len(t, body.Vehicles, 2)
	assert.True(t, snap.Generated.Equal(body.Timestamp))

	store.MarkStale()
	rec = get(t, testApp(t, Options{Store: store}).Handler(), "/api/vehicles/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Stale)
	assert.Len(t, body.Vehicles, 2)
}

func TestTrafficNeverFails(t *testing.T) {
	t.Parallel()
	adapter := traffic.NewAdapter(traffic.AdapterOptions{Provider: brokenProvider{}})
	adapter.Refresh(context.Background())

	rec := get(t, testApp(t, Options{Traffic: adapter}).Handler(), "/api/traffic/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, traffic.FallbackSource, body["source"])
	assert.NotEmpty(t, body["generated"])
	features := body["features"].([]any)
	require.Len(t, features, 3)
	f := features[0].(map[string]any)
	assert.Equal(t, "LineString", f["type"])
	assert.Contains(t, []any{"LIGHT", "MODERATE", "HEAVY", "UNKNOWN"}, f["severity"])
}

func TestRoutesAndMap(t *testing.T) {
	t.Parallel()
	routes, err := route.Load([]model.RouteConfig{{
		ID:               "r1",
		Name:             "Route One",
		Color:            "#123456",
		Waypoints:        []model.LatLng{{Lat: 23.79, Lng: 90.41}, {Lat: 23.73, Lng: 90.42}},
		OriginLabel:      "North",
		DestinationLabel: "South",
	}})
	require.NoError(t, err)
	overlays, err := overlay.Load([]model.GeofenceConfig{{
		ID: "g1", Name: "Zone", Color: "#f97316",
		Points: []model.LatLng{{Lat: 23.73, Lng: 90.41}, {Lat: 23.73, Lng: 90.43}, {Lat: 23.72, Lng: 90.42}},
	}}, []model.DepotConfig{{ID: "d1", Name: "Yard", Capacity: 38, Location: model.LatLng{Lat: 23.76, Lng: 90.40}}})
	require.NoError(t, err)

	store := &snapshot.Store{}
	store.Publish(sampleSnapshot())
	h := testApp(t, Options{Store: store, Routes: routes, Overlays: overlays, Center: model.MapCenter{Lat: 23.8103, Lng: 90.4125, Zoom: 11}}).Handler()

	rec := get(t, h, "/api/routes/")
	require.Equal(t, http.StatusOK, rec.Code)
	var rs []routeSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rs))
	require.Len(t, rs, 1)
	assert.Equal(t, "r1", rs[0].ID)
	assert.Equal(t, "North", rs[0].Origin.Label)
	assert.GreaterOrEqual(t, rs[0].LoopSeconds, 900)

	rec = get(t, h, "/api/map/")
	require.Equal(t, http.StatusOK, rec.Code)
	var mc mapConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mc))
	assert.Equal(t, 11, mc.Center.Zoom)
	assert.Equal(t, []string{"IDLE", "MOVING"}, mc.StatusFilters)
	assert.Equal(t, []string{"A", "B"}, mc.FleetFilters)
	assert.Len(t, mc.Legend["traffic"], 3)
	assert.Equal(t, "Route One", mc.Legend["routes"][0].Name)
	assert.Equal(t, "Zone", mc.Legend["geofences"][0].Name)

	rec = get(t, h, "/api/overlays/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"FeatureCollection"`)
	assert.Contains(t, rec.Body.String(), `"Polygon"`)
	assert.Contains(t, rec.Body.String(), `"capacity":38`)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	store := &snapshot.Store{}
	store.Publish(sampleSnapshot())
	store.MarkStale()
	h := testApp(t, Options{Store: store, Scheduler: fakeScheduler{err: errors.New("corrupted belief")}}).Handler()

	rec := get(t, h, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "STOPPED", body.Scheduler)
	assert.True(t, body.Stale)
	assert.Equal(t, uint64(3), body.Sequence)
	assert.Equal(t, "corrupted belief", body.Error)
}

func TestGTFSRT(t *testing.T) {
	t.Parallel()
	store := &snapshot.Store{}
	store.Publish(sampleSnapshot())
	rec := get(t, testApp(t, Options{Store: store}).Handler(), "/api/gtfsrt/vehicle-positions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-protobuf", rec.Header().Get("Content-Type"))

	var fm gtfsrtpb.FeedMessage
	require.NoError(t, proto.Unmarshal(rec.Body.Bytes(), &fm))
	assert.Len(t, fm.GetEntity(), 2)
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	testApp(t, Options{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/vehicles/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebsocketBroadcast(t *testing.T) {
	t.Parallel()
	a := testApp(t, Options{Stream: parser.NewCSVParser()})
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.Hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	a.Broadcast(sampleSnapshot())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(first), "VTMS-DHK-201,1,"), string(first))
	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(second), "VTMS-DHK-202,2,"), string(second))

	a.Hub.Close()
	assert.Equal(t, 0, a.Hub.Clients())
}

func TestWebsocketSlowClientDropped(t *testing.T) {
	t.Parallel()
	h := NewHub(parser.NewJSONParser())
	h.queue = 1
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	// never reads, so the server's writes eventually stall
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	snap := sampleSnapshot()
	snap.Vehicles[0].Identifiers.DeviceID = strings.Repeat("x", 1<<20)
	deadline := time.Now().Add(10 * time.Second)
	for h.Clients() > 0 && time.Now().Before(deadline) {
		start := time.Now()
		h.Broadcast(snap)
		require.Less(t, time.Since(start), time.Second, "broadcast blocked on a slow client")
	}
	assert.Equal(t, 0, h.Clients())

	// the hub keeps serving after dropping the slow client
	h.Broadcast(snap)
	h.Close()
}
