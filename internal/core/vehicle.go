package core

import (
	"FleetTrack/internal/model"
	"FleetTrack/internal/motion"
	"FleetTrack/internal/route"
	"fmt"
)

// Vehicle is one simulated vehicle: its immutable identity, the route it drives and
// its motion state. Owned by the engine's tick; never handed to readers.
type Vehicle struct {
	Identity model.VehicleIdentity
	Route    *route.Route // nil when the configured route id is unknown
	Motion   motion.State

	last model.LatLng // last true position
}

// NewVehicle builds a Vehicle from its configuration. An unknown route id is not an
// error here; the vehicle is simulated without a route and reported as such.
func NewVehicle(cfg model.VehicleConfig, catalog *route.Catalog) *Vehicle {
	v := &Vehicle{
		Identity: model.VehicleIdentity{
			ID:      cfg.ID,
			Name:    cfg.Name,
			RouteID: cfg.RouteID,
			Identifiers: model.Identifiers{
				Driver:        cfg.Driver,
				DriverPhone:   cfg.DriverPhone,
				DriverLicense: cfg.DriverLicense,
				LicensePlate:  cfg.LicensePlate,
				DeviceID:      cfg.DeviceID,
				VehicleType:   cfg.VehicleType,
			},
		},
	}
	r, ok := catalog.Get(cfg.RouteID)
	if !ok {
		v.Identity.FleetArea = "Unassigned"
		v.Motion = motion.State{RouteID: cfg.RouteID, Status: model.StatusStopped}
		return v
	}
	v.Route = r
	v.Identity.FleetArea = r.Name
	v.Motion = motion.Start(r, cfg.StartProgressKm, cfg.InitialSpeedKmh)
	v.last, _ = r.WaypointAt(v.Motion.Progress)
	return v
}

// defaultFleet places one vehicle at the start of every route when none are configured.
func defaultFleet(catalog *route.Catalog) []model.VehicleConfig {
	out := make([]model.VehicleConfig, 0, catalog.Len())
	for i, r := range catalog.All() {
		out = append(out, model.VehicleConfig{
			ID:       i + 1,
			Name:     fmt.Sprintf("SIM-%02d", i+1),
			RouteID:  r.ID,
			DeviceID: fmt.Sprintf("SIM-DEV-%02d", i+1),
		})
	}
	return out
}
