package model

import (
	"errors"
	"fmt"
)

// ErrSensorGap marks a tick without an observation for a vehicle.
// The estimator recovers by running the predict step only.
var ErrSensorGap = errors.New("sensor gap")

// ConfigError reports a malformed route, vehicle, geofence or setting. Fatal at startup.
type ConfigError struct {
	Section string
	Field   string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config %s: %v", e.Section, e.Err)
	}
	return fmt.Sprintf("config %s.%s: %v", e.Section, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ProviderError reports a traffic feed failure. It is logged and replaced by fallback data.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("traffic provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// VehicleDerivationError reports a failure computing one vehicle's fields.
type VehicleDerivationError struct {
	VehicleID int
	Stage     string
	Err       error
}

func (e *VehicleDerivationError) Error() string {
	return fmt.Sprintf("vehicle %d %s: %v", e.VehicleID, e.Stage, e.Err)
}

func (e *VehicleDerivationError) Unwrap() error { return e.Err }

// SchedulerFatalError halts the scheduler; readers keep the last good snapshot marked stale.
type SchedulerFatalError struct {
	Seq uint64
	Err error
}

func (e *SchedulerFatalError) Error() string {
	return fmt.Sprintf("scheduler fatal at tick %d: %v", e.Seq, e.Err)
}

func (e *SchedulerFatalError) Unwrap() error { return e.Err }
