package parser

import (
	"FleetTrack/internal/model"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const kmhPerKnot = 1.852

// NMEAParser implements Parser with $GPRMC sentences. RMC carries no vehicle
// identity, so decoded telemetry has empty DeviceID and zero VehicleID.
type NMEAParser struct{}

// NewNMEAParser creates a new NMEA parser.
func NewNMEAParser() *NMEAParser { return &NMEAParser{} }

// Format implements Parser.
func (p *NMEAParser) Format() string { return "nmea" }

// EncodeTelemetry renders t as a checksummed RMC sentence. STOPPED vehicles are
// reported with status V.
func (p *NMEAParser) EncodeTelemetry(t model.Telemetry) (string, error) {
	ts := t.Time.UTC()
	lat, ns := ToNMEACoord(t.Lat, true)
	lng, ew := ToNMEACoord(t.Lng, false)
	valid := "A"
	if t.Status == model.StatusStopped {
		valid = "V"
	}
	body := fmt.Sprintf("GPRMC,%02d%02d%02d.%02d,%s,%s,%s,%s,%s,%.2f,%.1f,%02d%02d%02d,,,A",
		ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond()/1e7,
		valid, lat, ns, lng, ew,
		t.SpeedKmh/kmhPerKnot, t.Heading,
		ts.Day(), int(ts.Month()), ts.Year()%100)
	return fmt.Sprintf("$%s*%02X", body, checksum(body)), nil
}

// DecodeTelemetry parses an RMC sentence and verifies its checksum.
func (p *NMEAParser) DecodeTelemetry(line string) (model.Telemetry, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return model.Telemetry{}, errors.New("missing $ prefix")
	}
	star := strings.LastIndexByte(line, '*')
	if star < 0 || star+3 != len(line) {
		return model.Telemetry{}, errors.New("missing checksum")
	}
	body := line[1:star]
	want, err := strconv.ParseUint(line[star+1:], 16, 8)
	if err != nil || byte(want) != checksum(body) {
		return model.Telemetry{}, errors.New("checksum mismatch")
	}

	f := strings.Split(body, ",")
	if len(f) < 10 || !strings.HasSuffix(f[0], "RMC") {
		return model.Telemetry{}, fmt.Errorf("not an RMC sentence: %s", f[0])
	}
	lat, err := ParseNMEACoord(f[3], f[4])
	if err != nil {
		return model.Telemetry{}, fmt.Errorf("invalid lat: %w", err)
	}
	lng, err := ParseNMEACoord(f[5], f[6])
	if err != nil {
		return model.Telemetry{}, fmt.Errorf("invalid lng: %w", err)
	}
	knots, err := strconv.ParseFloat(f[7], 64)
	if err != nil {
		return model.Telemetry{}, errors.New("invalid speed")
	}
	course, err := strconv.ParseFloat(f[8], 64)
	if err != nil {
		return model.Telemetry{}, errors.New("invalid course")
	}
	ts, err := time.Parse("020106150405.00", f[9]+f[1])
	if err != nil {
		return model.Telemetry{}, fmt.Errorf("invalid time: %w", err)
	}

	speed := knots * kmhPerKnot
	status := model.StatusMoving
	switch {
	case f[2] == "V":
		status = model.StatusStopped
	case speed == 0:
		status = model.StatusIdle
	}
	return model.Telemetry{Lat: lat, Lng: lng, SpeedKmh: speed, Heading: course, Status: status, Time: ts}, nil
}

func checksum(body string) byte {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return cs
}

// ParseNMEACoord converts NMEA ddmm.mmmm (lat) or dddmm.mmmm (lon) to decimal degrees.
// For example, 2101.7102,N -> 21.0285033
func ParseNMEACoord(value string, dir string) (float64, error) {
	if len(value) < 4 {
		return 0, fmt.Errorf("invalid nmea coord")
	}
	var degPart, minPart string
	// latitude has 2 digit degrees vs lon 3 digits; detect by dir
	if dir == "N" || dir == "S" {
		degPart = value[:2]
		minPart = value[2:]
	} else {
		degPart = value[:3]
		minPart = value[3:]
	}
	deg, err := strconv.ParseFloat(degPart, 64)
	if err != nil {
		return 0, err
	}
	min, err := strconv.ParseFloat(minPart, 64)
	if err != nil {
		return 0, err
	}
	dec := deg + min/60.0
	if dir == "S" || dir == "W" {
		dec = -dec
	}
	return dec, nil
}

// ToNMEACoord converts decimal degrees to ddmm.mmmm / dddmm.mmmm and a hemisphere.
func ToNMEACoord(dec float64, isLat bool) (string, string) {
	dir := "N"
	if !isLat {
		dir = "E"
	}
	if dec < 0 {
		dec = -dec
		if isLat {
			dir = "S"
		} else {
			dir = "W"
		}
	}
	deg := int(dec)
	min := (dec - float64(deg)) * 60
	if min >= 59.99995 {
		deg++
		min = 0
	}
	if isLat {
		return fmt.Sprintf("%02d%07.4f", deg, min), dir
	}
	return fmt.Sprintf("%03d%07.4f", deg, min), dir
}
