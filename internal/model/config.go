// Package model defines shared configuration structures used to initialize the FleetTrack system.
// It includes the static catalog (routes, vehicles, geofences, depots) and the runtime settings
// that tune the simulation, the traffic adapter and the HTTP server.
package model

import "time"

// Catalog represents the root structure loaded from configs/catalog.yml.
// It contains routes, the vehicles driving them and the map overlays.
type Catalog struct {
	Center    MapCenter        `yaml:"center"`
	Routes    []RouteConfig    `yaml:"routes" validate:"dive"`
	Vehicles  []VehicleConfig  `yaml:"vehicles" validate:"dive"`
	Geofences []GeofenceConfig `yaml:"geofences" validate:"dive"`
	Depots    []DepotConfig    `yaml:"depots" validate:"dive"`
}

// MapCenter is the initial viewport handed to dashboards.
type MapCenter struct {
	Lat  float64 `yaml:"lat" json:"lat"`
	Lng  float64 `yaml:"lng" json:"lng"`
	Zoom int     `yaml:"zoom" json:"zoom"`
}

// RouteConfig defines one named route. Either Polyline (polyline6) or Waypoints must be set.
type RouteConfig struct {
	ID               string   `yaml:"id" validate:"required"`
	Name             string   `yaml:"name" validate:"required"`
	Color            string   `yaml:"color" validate:"omitempty,hexcolor"`
	Policy           string   `yaml:"policy" validate:"omitempty,oneof=loop stop"`
	Polyline         string   `yaml:"polyline"`
	Waypoints        []LatLng `yaml:"waypoints"`
	AverageSpeedKmh  float64  `yaml:"average_speed_kmh" validate:"gte=0"`
	OriginLabel      string   `yaml:"origin_label"`
	DestinationLabel string   `yaml:"destination_label"`
	DwellSeconds     int      `yaml:"dwell_seconds" validate:"gte=0"`
}

// VehicleConfig defines a simulated vehicle and the route it drives.
type VehicleConfig struct {
	ID              int     `yaml:"id" validate:"gt=0"`
	Name            string  `yaml:"name" validate:"required"`
	RouteID         string  `yaml:"route_id" validate:"required"`
	StartProgressKm float64 `yaml:"start_progress_km" validate:"gte=0"`
	Driver          string  `yaml:"driver"`
	DriverPhone     string  `yaml:"driver_phone"`
	DriverLicense   string  `yaml:"driver_license"`
	LicensePlate    string  `yaml:"license_plate"`
	DeviceID        string  `yaml:"device_id" validate:"required"`
	VehicleType     string  `yaml:"vehicle_type"`
	InitialSpeedKmh float64 `yaml:"initial_speed_kmh" validate:"gte=0"`
}

// GeofenceConfig is a named polygon overlay.
type GeofenceConfig struct {
	ID     string   `yaml:"id" validate:"required"`
	Name   string   `yaml:"name" validate:"required"`
	Color  string   `yaml:"color" validate:"omitempty,hexcolor"`
	Points []LatLng `yaml:"points" validate:"min=3"`
}

// DepotConfig is a named service location.
type DepotConfig struct {
	ID       string `yaml:"id" validate:"required"`
	Name     string `yaml:"name" validate:"required"`
	Capacity int    `yaml:"capacity" validate:"gte=0"`
	Location LatLng `yaml:"location"`
}

// Settings is the runtime configuration decoded by the config package.
type Settings struct {
	Server      ServerSettings     `mapstructure:"server"`
	Simulation  SimulationSettings `mapstructure:"simulation"`
	Estimator   EstimatorSettings  `mapstructure:"estimator"`
	Traffic     TrafficSettings    `mapstructure:"traffic"`
	Log         LogSettings        `mapstructure:"log"`
	CatalogPath string             `mapstructure:"catalog_path"`
}

// ServerSettings configures the HTTP serving boundary.
type ServerSettings struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	StreamFormat    string        `mapstructure:"stream_format" validate:"oneof=json csv nmea"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// SimulationSettings configures the tick loop. Tuning fields can be hot reloaded.
type SimulationSettings struct {
	TickInterval     time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	Seed             int64         `mapstructure:"seed"`
	TrailCapacity    int           `mapstructure:"trail_capacity" validate:"gt=0"`
	EtaSpeedFloorKmh float64       `mapstructure:"eta_speed_floor_kmh" validate:"gt=0"`
	StaleAfter       time.Duration `mapstructure:"stale_after" validate:"gte=0"`
	Tuning           `mapstructure:",squash"`
}

// Tuning holds the per-tick parameters that may change while the engine runs.
type Tuning struct {
	MinSpeedKmh        float64 `mapstructure:"min_speed_kmh" validate:"gte=0"`
	MaxSpeedKmh        float64 `mapstructure:"max_speed_kmh" validate:"gtfield=MinSpeedKmh"`
	SpeedJitterKmh     float64 `mapstructure:"speed_jitter_kmh" validate:"gte=0"`
	NoiseSigmaM        float64 `mapstructure:"noise_sigma_m" validate:"gte=0"`
	NoiseMaxRadiusM    float64 `mapstructure:"noise_max_radius_m" validate:"gte=0"`
	DropoutProbability float64 `mapstructure:"dropout_probability" validate:"gte=0,lte=1"`
}

// EstimatorSettings configures the per-vehicle Kalman filters.
type EstimatorSettings struct {
	ProcessNoise       float64 `mapstructure:"process_noise" validate:"gt=0"`
	MeasurementFloorM2 float64 `mapstructure:"measurement_floor_m2" validate:"gt=0"`
	VelocityVariance   float64 `mapstructure:"velocity_variance" validate:"gt=0"`
}

// TrafficSettings configures the traffic adapter and its provider credentials.
type TrafficSettings struct {
	Provider     string        `mapstructure:"provider" validate:"omitempty,oneof=tomtom"`
	TomTomAPIKey string        `mapstructure:"tomtom_api_key"`
	BaseURL      string        `mapstructure:"base_url" validate:"omitempty,url"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	BBox         []float64     `mapstructure:"bbox" validate:"len=4"`
	RedisURL     string        `mapstructure:"redis_url"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// LogSettings configures logrus.
type LogSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}
