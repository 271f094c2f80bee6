package app

import (
	"FleetTrack/internal/model"
	"math"
	"net/http"
	"sort"
)

type routeSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Color       string         `json:"color"`
	Policy      string         `json:"policy"`
	DistanceKm  float64        `json:"distance_km"`
	LoopSeconds int            `json:"loop_seconds"`
	Origin      model.Endpoint `json:"origin"`
	Destination model.Endpoint `json:"destination"`
}

type legendEntry struct {
	Name  string `json:"name,omitempty"`
	Label string `json:"label,omitempty"`
	Color string `json:"color"`
}

type mapConfig struct {
	Center        model.MapCenter          `json:"center"`
	Legend        map[string][]legendEntry `json:"legend"`
	StatusFilters []string                 `json:"status_filters"`
	FleetFilters  []string                 `json:"fleet_filters"`
}

var trafficLegend = []legendEntry{
	{Label: "Heavy", Color: "#ef4444"},
	{Label: "Moderate", Color: "#f59e0b"},
	{Label: "Light", Color: "#22c55e"},
}

// handleRoutes lists the route catalog.
func (a *App) handleRoutes(w http.ResponseWriter, r *http.Request) {
	out := []routeSummary{}
	if a.opts.Routes != nil {
		for _, rt := range a.opts.Routes.All() {
			out = append(out, routeSummary{
				ID:          rt.ID,
				Name:        rt.Name,
				Color:       rt.Color,
				Policy:      string(rt.Policy),
				DistanceKm:  math.Round(rt.Length*100) / 100,
				LoopSeconds: rt.LoopSeconds(),
				Origin:      rt.Origin,
				Destination: rt.Destination,
			})
		}
	}
	writeJSON(w, out)
}

// handleMap serves the dashboard map configuration: viewport, legend and the
// status and fleet filters present in the latest snapshot.
func (a *App) handleMap(w http.ResponseWriter, r *http.Request) {
	cfg := mapConfig{
		Center: a.opts.Center,
		Legend: map[string][]legendEntry{
			"routes":    {},
			"traffic":   trafficLegend,
			"geofences": {},
		},
		StatusFilters: []string{},
		FleetFilters:  []string{},
	}
	if a.opts.Routes != nil {
		for _, rt := range a.opts.Routes.All() {
			cfg.Legend["routes"] = append(cfg.Legend["routes"], legendEntry{Name: rt.Name, Color: rt.Color})
		}
	}
	if a.opts.Overlays != nil {
		for _, g := range a.opts.Overlays.Geofences {
			cfg.Legend["geofences"] = append(cfg.Legend["geofences"], legendEntry{Name: g.Name, Color: g.Color})
		}
	}
	if snap := a.opts.Store.Load(); snap != nil {
		statuses := map[string]bool{}
		fleets := map[string]bool{}
		for _, v := range snap.Vehicles {
			statuses[string(v.Status)] = true
			fleets[v.FleetArea] = true
		}
		cfg.StatusFilters = sortedKeys(statuses)
		cfg.FleetFilters = sortedKeys(fleets)
	}
	writeJSON(w, cfg)
}

// handleOverlays serves geofences and depots as a GeoJSON FeatureCollection.
func (a *App) handleOverlays(w http.ResponseWriter, r *http.Request) {
	fc := a.opts.Overlays.FeatureCollection()
	b, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, "failed to encode overlays", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(b)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
