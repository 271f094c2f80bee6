package parser

import (
	"FleetTrack/internal/model"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CSVParser implements Parser using comma-separated values.
// Example: VTMS-DHK-201,1,23.810300,90.412500,38.4,181.0,MOVING,1735787045000
type CSVParser struct{}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser { return &CSVParser{} }

// Format implements Parser.
func (p *CSVParser) Format() string { return "csv" }

// EncodeTelemetry converts Telemetry into a CSV line. Commas in the device id are
// replaced with semicolons.
func (p *CSVParser) EncodeTelemetry(t model.Telemetry) (string, error) {
	return fmt.Sprintf("%s,%d,%.6f,%.6f,%.1f,%.1f,%s,%d",
		strings.ReplaceAll(t.DeviceID, ",", ";"), t.VehicleID, t.Lat, t.Lng,
		t.SpeedKmh, t.Heading, t.Status, t.Time.UnixMilli()), nil
}

// DecodeTelemetry parses a CSV telemetry line.
func (p *CSVParser) DecodeTelemetry(line string) (model.Telemetry, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != 8 {
		return model.Telemetry{}, fmt.Errorf("expected 8 fields, got %d", len(fields))
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return model.Telemetry{}, errors.New("invalid vehicle_id")
	}
	lat, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return model.Telemetry{}, errors.New("invalid lat")
	}
	lng, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return model.Telemetry{}, errors.New("invalid lng")
	}
	speed, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return model.Telemetry{}, errors.New("invalid speed_kmh")
	}
	heading, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return model.Telemetry{}, errors.New("invalid heading")
	}
	ms, err := strconv.ParseInt(fields[7], 10, 64)
	if err != nil {
		return model.Telemetry{}, errors.New("invalid epoch")
	}

	return model.Telemetry{
		DeviceID:  fields[0],
		VehicleID: id,
		Lat:       lat,
		Lng:       lng,
		SpeedKmh:  speed,
		Heading:   heading,
		Status:    model.Status(fields[6]),
		Time:      time.UnixMilli(ms).UTC(),
	}, nil
}
