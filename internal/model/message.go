// Package model defines shared message structures for FleetTrack.
package model

import "time"

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Status is the motion status of a simulated vehicle.
type Status string

const (
	StatusMoving  Status = "MOVING"
	StatusIdle    Status = "IDLE"
	StatusStopped Status = "STOPPED"
)

// VehicleIdentity is immutable for the lifetime of a simulated vehicle.
type VehicleIdentity struct {
	ID          int
	Name        string
	FleetArea   string
	RouteID     string
	Identifiers Identifiers
}

// Identifiers is the identifier bundle attached to every vehicle record.
type Identifiers struct {
	Driver        string `json:"driver"`
	DriverPhone   string `json:"driver_phone"`
	DriverLicense string `json:"driver_license"`
	LicensePlate  string `json:"license_plate"`
	DeviceID      string `json:"device_id"`
	VehicleType   string `json:"vehicle_type"`
}

// Endpoint is a labelled route terminal.
type Endpoint struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// RouteRef is the route summary embedded in a vehicle record.
type RouteRef struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Progress    float64  `json:"progress"`
	DistanceKm  float64  `json:"distance_km"`
	Origin      Endpoint `json:"origin"`
	Destination Endpoint `json:"destination"`
}

// VehicleRecord is one fully assembled vehicle entry of a snapshot.
type VehicleRecord struct {
	ID              int         `json:"id"`
	UID             string      `json:"uid"`
	Name            string      `json:"name"`
	Status          Status      `json:"status"`
	Phase           string      `json:"phase"`
	FleetArea       string      `json:"fleet_area"`
	Location        LatLng      `json:"location"`
	RawLocation     *LatLng     `json:"raw_location,omitempty"`
	Heading         float64     `json:"heading"`
	SpeedKmh        float64     `json:"speed_kmh"`
	EtaMinutes      *float64    `json:"eta_minutes,omitempty"`
	Route           *RouteRef   `json:"route,omitempty"`
	Identifiers     Identifiers `json:"identifiers"`
	Path            []LatLng    `json:"path"`
	Trail           []LatLng    `json:"trail"`
	Upcoming        []LatLng    `json:"upcoming"`
	Geofences       []string    `json:"geofences,omitempty"`
	LastUpdate      time.Time   `json:"last_update"`
	LastUpdateEpoch float64     `json:"last_update_epoch"`
}

// Severity classifies a traffic incident.
type Severity string

const (
	SeverityLight    Severity = "LIGHT"
	SeverityModerate Severity = "MODERATE"
	SeverityHeavy    Severity = "HEAVY"
	SeverityUnknown  Severity = "UNKNOWN"
)

// ParseSeverity normalizes a provider severity label.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLight, SeverityModerate, SeverityHeavy:
		return Severity(s)
	}
	return SeverityUnknown
}

// Telemetry is the compact per-vehicle line streamed to clients and written by the
// headless simulator.
type Telemetry struct {
	DeviceID  string    `json:"device_id"`
	VehicleID int       `json:"vehicle_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	SpeedKmh  float64   `json:"speed_kmh"`
	Heading   float64   `json:"heading"`
	Status    Status    `json:"status"`
	Time      time.Time `json:"time"`
}

// TelemetryOf extracts the telemetry line of a vehicle record.
func TelemetryOf(r VehicleRecord) Telemetry {
	return Telemetry{
		DeviceID:  r.Identifiers.DeviceID,
		VehicleID: r.ID,
		Lat:       r.Location.Lat,
		Lng:       r.Location.Lng,
		SpeedKmh:  r.SpeedKmh,
		Heading:   r.Heading,
		Status:    r.Status,
		Time:      r.LastUpdate,
	}
}
