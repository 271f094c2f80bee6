package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// TrafficReport is the normalized incident set served at /api/traffic/.
type TrafficReport struct {
	Source    string           `json:"source"`
	Generated time.Time        `json:"generated"`
	Features  []TrafficFeature `json:"features"`
}

// TrafficFeature is one incident: a Point or LineString with a severity.
// It serializes as {type, coordinates, severity, description}.
type TrafficFeature struct {
	Geometry    orb.Geometry
	Severity    Severity
	Description string
}

type trafficFeatureJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
}

// MarshalJSON flattens the GeoJSON geometry next to severity and description.
func (f TrafficFeature) MarshalJSON() ([]byte, error) {
	if f.Geometry == nil {
		return nil, fmt.Errorf("traffic feature without geometry")
	}
	raw, err := geojson.NewGeometry(f.Geometry).MarshalJSON()
	if err != nil {
		return nil, err
	}
	var w trafficFeatureJSON
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	w.Severity = f.Severity
	w.Description = f.Description
	return json.Marshal(w)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (f *TrafficFeature) UnmarshalJSON(data []byte) error {
	var w trafficFeatureJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var g geojson.Geometry
	if err := g.UnmarshalJSON(data); err != nil {
		return err
	}
	f.Geometry = g.Coordinates
	f.Severity = ParseSeverity(string(w.Severity))
	f.Description = w.Description
	return nil
}
