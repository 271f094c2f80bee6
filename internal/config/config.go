// Package config loads FleetTrack runtime settings and the static fleet catalog.
//
// Settings come from an optional YAML file, environment variables prefixed with
// FLEETTRACK_ and built-in defaults, in decreasing order of precedence: env, file,
// defaults. The catalog is a separate YAML document; the embedded default is used
// when no catalog path is configured.
package config

import (
	"FleetTrack/configs"
	"FleetTrack/internal/model"
	"FleetTrack/internal/util"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLEETTRACK"

var validate = validator.New()

// Config holds the decoded settings and the viper instance they were read from.
type Config struct {
	v    *viper.Viper
	path string

	mu      sync.RWMutex
	current model.Settings
}

// Load reads settings from path. An empty path falls back to FLEETTRACK_CONFIG and
// then to defaults plus environment only.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, &model.ConfigError{Section: "file", Field: path, Err: err}
		}
	}

	s, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Config{v: v, path: path, current: s}, nil
}

// Settings returns the current settings.
func (c *Config) Settings() model.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Path is the config file in use, empty when running on defaults.
func (c *Config) Path() string { return c.path }

// Watch reloads the config file on change and passes the new simulation settings to
// onChange. Invalid edits are logged and ignored. Without a config file Watch does nothing.
func (c *Config) Watch(onChange func(model.SimulationSettings)) {
	if c.path == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		util.Component("config").WithField("file", e.Name).WithField("op", e.Op.String()).Info("config changed")
		c.reload(onChange)
	})
	c.v.WatchConfig()
}

func (c *Config) reload(onChange func(model.SimulationSettings)) {
	s, err := decode(c.v)
	if err != nil {
		util.Component("config").WithError(err).Warn("reload rejected, keeping previous settings")
		return
	}
	c.mu.Lock()
	prev := c.current
	c.current = s
	c.mu.Unlock()
	if prev.Simulation.TickInterval != s.Simulation.TickInterval || prev.Server.Addr != s.Server.Addr {
		util.Component("config").Warn("tick interval and server address changes need a restart")
	}
	if onChange != nil {
		onChange(s.Simulation)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.stream_format", "json")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("simulation.tick_interval", time.Second)
	v.SetDefault("simulation.seed", 42)
	v.SetDefault("simulation.trail_capacity", 50)
	v.SetDefault("simulation.eta_speed_floor_kmh", 5.0)
	v.SetDefault("simulation.stale_after", 10*time.Second)
	v.SetDefault("simulation.min_speed_kmh", 8.0)
	v.SetDefault("simulation.max_speed_kmh", 60.0)
	v.SetDefault("simulation.speed_jitter_kmh", 2.5)
	v.SetDefault("simulation.noise_sigma_m", 8.0)
	v.SetDefault("simulation.noise_max_radius_m", 30.0)
	v.SetDefault("simulation.dropout_probability", 0.05)

	v.SetDefault("estimator.process_noise", 0.05)
	v.SetDefault("estimator.measurement_floor_m2", 1.0)
	v.SetDefault("estimator.velocity_variance", 1.0)

	v.SetDefault("traffic.provider", "")
	v.SetDefault("traffic.tomtom_api_key", "")
	v.SetDefault("traffic.base_url", "https://api.tomtom.com")
	v.SetDefault("traffic.poll_interval", time.Minute)
	v.SetDefault("traffic.timeout", 4*time.Second)
	v.SetDefault("traffic.bbox", []float64{23.70, 90.35, 23.92, 90.55})
	v.SetDefault("traffic.redis_url", "")
	v.SetDefault("traffic.cache_ttl", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("catalog_path", "")
}

func decode(v *viper.Viper) (model.Settings, error) {
	var s model.Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, &model.ConfigError{Section: "settings", Err: err}
	}
	s.Traffic.Provider = strings.ToLower(strings.TrimSpace(s.Traffic.Provider))
	if err := validate.Struct(s); err != nil {
		return s, asConfigError(err)
	}
	return s, nil
}

// asConfigError maps the first validation failure onto a ConfigError naming the
// section and field.
func asConfigError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &model.ConfigError{Section: "settings", Err: err}
	}
	fe := verrs[0]
	parts := strings.Split(fe.Namespace(), ".")
	section := "settings"
	if len(parts) > 2 {
		section = strings.ToLower(parts[1])
	}
	return &model.ConfigError{
		Section: section,
		Field:   fe.Field(),
		Err:     fmt.Errorf("failed %q validation (value %v)", fe.Tag(), fe.Value()),
	}
}

// LoadCatalog decodes and validates the fleet catalog at path, or the embedded
// default when path is empty.
func LoadCatalog(path string) (*model.Catalog, error) {
	data := configs.Catalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, &model.ConfigError{Section: "catalog", Field: path, Err: err}
		}
		data = b
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(data []byte) (*model.Catalog, error) {
	var cat model.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, &model.ConfigError{Section: "catalog", Err: err}
	}
	if err := validate.Struct(cat); err != nil {
		cerr := asConfigError(err).(*model.ConfigError)
		cerr.Section = "catalog"
		return nil, cerr
	}
	return &cat, nil
}
