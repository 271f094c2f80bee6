// Package parser converts vehicle telemetry to line-oriented wire formats and back.
//
// CSV telemetry wire format:
//
//	DEVICE_ID,VEHICLE_ID,LAT,LNG,SPEED_KMH,HEADING,STATUS,EPOCH_MS
//
// JSON telemetry is one model.Telemetry object per line. NMEA emits a standard
// $GPRMC sentence per vehicle.
package parser

import (
	"FleetTrack/internal/model"
	"fmt"
)

// Parser encodes and decodes one telemetry line.
type Parser interface {
	Format() string
	EncodeTelemetry(t model.Telemetry) (string, error)
	DecodeTelemetry(line string) (model.Telemetry, error)
}

// New returns the parser registered for format (csv, json or nmea).
func New(format string) (Parser, error) {
	switch format {
	case "csv":
		return NewCSVParser(), nil
	case "json", "":
		return NewJSONParser(), nil
	case "nmea":
		return NewNMEAParser(), nil
	}
	return nil, fmt.Errorf("unknown telemetry format %q", format)
}

// EncodeRecord encodes the telemetry line of a snapshot record.
func EncodeRecord(p Parser, r model.VehicleRecord) (string, error) {
	return p.EncodeTelemetry(model.TelemetryOf(r))
}
