// Package overlay holds the static map overlays: geofence polygons and depots.
package overlay

import (
	"FleetTrack/internal/model"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Geofence is a closed polygon area.
type Geofence struct {
	ID      string
	Name    string
	Color   string
	Polygon orb.Polygon
}

// Depot is a service location.
type Depot struct {
	ID       string
	Name     string
	Capacity int
	Location orb.Point
}

// Set is the loaded overlay configuration. Immutable after Load.
type Set struct {
	Geofences []Geofence
	Depots    []Depot
}

// Load validates and converts overlay definitions. Failures are *model.ConfigError.
func Load(fences []model.GeofenceConfig, depots []model.DepotConfig) (*Set, error) {
	s := &Set{}
	for i, f := range fences {
		if len(f.Points) < 3 {
			return nil, &model.ConfigError{Section: fmt.Sprintf("geofences[%d]", i), Field: f.ID, Err: errors.New("polygon needs at least 3 points")}
		}
		ring := make(orb.Ring, 0, len(f.Points)+1)
		for _, p := range f.Points {
			if !finite(p) {
				return nil, &model.ConfigError{Section: fmt.Sprintf("geofences[%d]", i), Field: f.ID, Err: fmt.Errorf("invalid point (%v, %v)", p.Lat, p.Lng)}
			}
			ring = append(ring, orb.Point{p.Lng, p.Lat})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		s.Geofences = append(s.Geofences, Geofence{ID: f.ID, Name: f.Name, Color: f.Color, Polygon: orb.Polygon{ring}})
	}
	for i, d := range depots {
		if !finite(d.Location) {
			return nil, &model.ConfigError{Section: fmt.Sprintf("depots[%d]", i), Field: d.ID, Err: errors.New("invalid location")}
		}
		s.Depots = append(s.Depots, Depot{
			ID:       d.ID,
			Name:     d.Name,
			Capacity: d.Capacity,
			Location: orb.Point{d.Location.Lng, d.Location.Lat},
		})
	}
	return s, nil
}

// Containing returns the ids of the geofences that contain p.
func (s *Set) Containing(p model.LatLng) []string {
	if s == nil {
		return nil
	}
	pt := orb.Point{p.Lng, p.Lat}
	var ids []string
	for _, g := range s.Geofences {
		if planar.PolygonContains(g.Polygon, pt) {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

// FeatureCollection renders geofences as Polygons and depots as Points.
func (s *Set) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if s == nil {
		return fc
	}
	for _, g := range s.Geofences {
		f := geojson.NewFeature(g.Polygon)
		f.ID = g.ID
		f.Properties["kind"] = "geofence"
		f.Properties["name"] = g.Name
		f.Properties["color"] = g.Color
		fc.Append(f)
	}
	for _, d := range s.Depots {
		f := geojson.NewFeature(d.Location)
		f.ID = d.ID
		f.Properties["kind"] = "depot"
		f.Properties["name"] = d.Name
		f.Properties["capacity"] = d.Capacity
		fc.Append(f)
	}
	return fc
}

func finite(p model.LatLng) bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) && !math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}
