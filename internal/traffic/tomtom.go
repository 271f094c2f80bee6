// Package traffic fetches third-party incident data on its own cadence and
// normalizes it into a TrafficReport. Provider failures never reach callers: the
// adapter logs them and serves a static fallback set instead.
package traffic

import (
	"FleetTrack/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Provider returns the current incidents for a fixed area.
type Provider interface {
	Name() string
	Incidents(ctx context.Context) ([]model.TrafficFeature, error)
}

// ErrNoCredentials is returned by providers configured without an API key.
var ErrNoCredentials = errors.New("no api key configured")

const tomtomFields = "incidents{type,geometry{type,coordinates},properties{iconCategory,magnitudeOfDelay,events{description},startTime,endTime,severity}}"

// TomTom queries the TomTom Traffic incidentDetails v5 API.
type TomTom struct {
	apiKey  string
	baseURL string
	bbox    []float64
	client  *http.Client
}

// NewTomTom builds a TomTom provider from settings. The per-request deadline comes
// from the caller's context.
func NewTomTom(s model.TrafficSettings) *TomTom {
	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = "https://api.tomtom.com"
	}
	return &TomTom{
		apiKey:  s.TomTomAPIKey,
		baseURL: base,
		bbox:    s.BBox,
		client:  &http.Client{},
	}
}

// Name implements Provider.
func (t *TomTom) Name() string { return "tomtom" }

type tomtomPayload struct {
	Incidents []struct {
		Type       string          `json:"type"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties struct {
			Severity         string `json:"severity"`
			MagnitudeOfDelay *int   `json:"magnitudeOfDelay"`
			Events           []struct {
				Description string `json:"description"`
			} `json:"events"`
		} `json:"properties"`
	} `json:"incidents"`
}

// Incidents implements Provider.
func (t *TomTom) Incidents(ctx context.Context) ([]model.TrafficFeature, error) {
	if t.apiKey == "" {
		return nil, &model.ProviderError{Provider: t.Name(), Err: ErrNoCredentials}
	}
	bbox := make([]string, len(t.bbox))
	for i, v := range t.bbox {
		bbox[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	q := url.Values{}
	q.Set("key", t.apiKey)
	q.Set("bbox", strings.Join(bbox, ","))
	q.Set("fields", tomtomFields)
	q.Set("language", "en-US")
	q.Set("timeValidityFilter", "ACTIVE")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/traffic/services/5/incidentDetails?"+q.Encode(), nil)
	if err != nil {
		return nil, &model.ProviderError{Provider: t.Name(), Err: err}
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &model.ProviderError{Provider: t.Name(), Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, &model.ProviderError{Provider: t.Name(), Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var payload tomtomPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &model.ProviderError{Provider: t.Name(), Err: fmt.Errorf("decode payload: %w", err)}
	}

	out := make([]model.TrafficFeature, 0, len(payload.Incidents))
	for _, in := range payload.Incidents {
		if len(in.Geometry) == 0 {
			continue
		}
		var g geojson.Geometry
		if err := g.UnmarshalJSON(in.Geometry); err != nil || g.Coordinates == nil || empty(g.Coordinates) {
			continue
		}
		sev := model.ParseSeverity(strings.ToUpper(in.Properties.Severity))
		if sev == model.SeverityUnknown && in.Properties.MagnitudeOfDelay != nil {
			sev = fromMagnitude(*in.Properties.MagnitudeOfDelay)
		}
		parts := make([]string, 0, len(in.Properties.Events))
		for _, e := range in.Properties.Events {
			if e.Description != "" {
				parts = append(parts, e.Description)
			}
		}
		desc := strings.Join(parts, " | ")
		if desc == "" {
			desc = "Traffic incident"
		}
		out = append(out, model.TrafficFeature{Geometry: g.Coordinates, Severity: sev, Description: desc})
	}
	return out, nil
}

func empty(g orb.Geometry) bool {
	switch v := g.(type) {
	case orb.LineString:
		return len(v) == 0
	case orb.MultiPoint:
		return len(v) == 0
	case orb.MultiLineString:
		return len(v) == 0
	case orb.Polygon:
		return len(v) == 0
	}
	return false
}

// fromMagnitude maps TomTom magnitudeOfDelay (0 unknown .. 4 undefined/closure).
func fromMagnitude(m int) model.Severity {
	switch m {
	case 1:
		return model.SeverityLight
	case 2:
		return model.SeverityModerate
	case 3, 4:
		return model.SeverityHeavy
	}
	return model.SeverityUnknown
}

// requestTimeout bounds one provider call; zero means 4s.
func requestTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 4 * time.Second
	}
	return d
}
