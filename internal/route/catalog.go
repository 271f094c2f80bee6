package route

import (
	"FleetTrack/internal/model"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/twpayne/go-polyline"
)

var polyline6 = polyline.Codec{Dim: 2, Scale: 1e6}

// Catalog is the set of routes loaded at startup.
type Catalog struct {
	routes []*Route
	byID   map[string]*Route
}

// Load validates the route definitions and precomputes their distance tables.
// It fails with a *model.ConfigError if a route has fewer than 2 waypoints,
// a non-finite or out-of-range coordinate, or a duplicate id.
func Load(defs []model.RouteConfig) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Route, len(defs))}
	for i, def := range defs {
		r, err := build(def)
		if err != nil {
			return nil, &model.ConfigError{Section: fmt.Sprintf("routes[%d]", i), Field: def.ID, Err: err}
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, &model.ConfigError{Section: fmt.Sprintf("routes[%d]", i), Field: def.ID, Err: errors.New("duplicate route id")}
		}
		c.routes = append(c.routes, r)
		c.byID[r.ID] = r
	}
	return c, nil
}

// Get returns the route with the given id.
func (c *Catalog) Get(id string) (*Route, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// All returns the routes in configuration order.
func (c *Catalog) All() []*Route { return c.routes }

// Len is the number of routes.
func (c *Catalog) Len() int { return len(c.routes) }

func build(def model.RouteConfig) (*Route, error) {
	if def.ID == "" {
		return nil, errors.New("missing id")
	}
	pts := def.Waypoints
	if def.Polyline != "" {
		decoded, err := DecodePolyline6(def.Polyline)
		if err != nil {
			return nil, err
		}
		pts = decoded
	}
	if len(pts) < 2 {
		return nil, fmt.Errorf("route needs at least 2 waypoints, got %d", len(pts))
	}
	for i, p := range pts {
		if !validCoord(p) {
			return nil, fmt.Errorf("waypoint %d: invalid coordinate (%v, %v)", i, p.Lat, p.Lng)
		}
	}

	waypoints := make([]model.LatLng, len(pts))
	copy(waypoints, pts)
	cumulative := make([]float64, len(waypoints))
	for i := 1; i < len(waypoints); i++ {
		cumulative[i] = cumulative[i-1] + DistanceKm(waypoints[i-1], waypoints[i])
	}
	length := cumulative[len(cumulative)-1]
	if length <= 0 {
		return nil, errors.New("route has zero length")
	}

	policy := Policy(def.Policy)
	switch policy {
	case "":
		policy = PolicyLoop
	case PolicyLoop, PolicyStop:
	default:
		return nil, fmt.Errorf("unknown policy %q", def.Policy)
	}

	color := def.Color
	if color == "" {
		color = defaultColor
	}
	speed := def.AverageSpeedKmh
	if speed == 0 {
		speed = defaultAverageSpeed
	}
	speed = math.Max(speed, minAverageSpeed)

	originLabel, destLabel := def.OriginLabel, def.DestinationLabel
	if originLabel == "" {
		originLabel = "Origin"
	}
	if destLabel == "" {
		destLabel = "Destination"
	}
	first, last := waypoints[0], waypoints[len(waypoints)-1]

	return &Route{
		ID:              def.ID,
		Name:            def.Name,
		Color:           color,
		Policy:          policy,
		Waypoints:       waypoints,
		Cumulative:      cumulative,
		Length:          length,
		AverageSpeedKmh: speed,
		Origin:          model.Endpoint{Label: originLabel, Lat: first.Lat, Lng: first.Lng},
		Destination:     model.Endpoint{Label: destLabel, Lat: last.Lat, Lng: last.Lng},
		Dwell:           time.Duration(def.DwellSeconds) * time.Second,
	}, nil
}

// DecodePolyline6 decodes a polyline string encoded with 1e6 precision (OSRM polyline6).
func DecodePolyline6(s string) ([]model.LatLng, error) {
	coords, rest, err := polyline6.DecodeCoords([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("decode polyline6: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("decode polyline6: %d trailing bytes", len(rest))
	}
	out := make([]model.LatLng, 0, len(coords))
	for _, c := range coords {
		out = append(out, model.LatLng{Lat: c[0], Lng: c[1]})
	}
	return out, nil
}

func validCoord(p model.LatLng) bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
