package app

import (
	"FleetTrack/internal/gtfsrt"
	"FleetTrack/internal/model"
	"FleetTrack/internal/snapshot"
	"FleetTrack/internal/util"
	"encoding/json"
	"net/http"
	"time"
)

type vehiclesResponse struct {
	Timestamp time.Time             `json:"timestamp"`
	Sequence  uint64                `json:"sequence"`
	RunID     string                `json:"run_id"`
	Stale     bool                  `json:"stale"`
	Vehicles  []model.VehicleRecord `json:"vehicles"`
}

type healthResponse struct {
	Scheduler string    `json:"scheduler"`
	Sequence  uint64    `json:"sequence"`
	Generated time.Time `json:"generated,omitzero"`
	Stale     bool      `json:"stale"`
	Error     string    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.Component("app").WithError(err).Warn("failed to write response")
	}
}

// handleVehicles serves the latest snapshot. Before the first tick the list is
// empty and the response is flagged stale.
func (a *App) handleVehicles(w http.ResponseWriter, r *http.Request) {
	now := a.clock()
	snap := a.opts.Store.Load()
	resp := vehiclesResponse{
		Timestamp: now.UTC(),
		Stale:     snapshot.IsStale(snap, now, a.opts.StaleAfter),
		Vehicles:  []model.VehicleRecord{},
	}
	if snap != nil {
		resp.Timestamp = snap.Generated.UTC()
		resp.Sequence = snap.Seq
		resp.RunID = snap.RunID
		resp.Vehicles = snap.Vehicles
	}
	writeJSON(w, resp)
}

// handleTraffic serves the latest traffic report; provider failures are already
// replaced with the fallback set.
func (a *App) handleTraffic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.opts.Traffic.Report())
}

// handleGTFSRT serves the latest snapshot as a GTFS-Realtime VehiclePositions feed.
func (a *App) handleGTFSRT(w http.ResponseWriter, r *http.Request) {
	b, err := gtfsrt.Marshal(a.opts.Store.Load())
	if err != nil {
		util.Component("app").WithError(err).Error("marshal gtfs-rt feed")
		http.Error(w, "failed to encode feed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	if _, err := w.Write(b); err != nil {
		util.Component("app").WithError(err).Warn("failed to write feed")
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := a.clock()
	snap := a.opts.Store.Load()
	resp := healthResponse{
		Scheduler: "STOPPED",
		Stale:     snapshot.IsStale(snap, now, a.opts.StaleAfter),
	}
	if s := a.opts.Scheduler; s != nil {
		if s.Running() {
			resp.Scheduler = "RUNNING"
		}
		if err := s.Err(); err != nil {
			resp.Error = err.Error()
		}
	}
	if snap != nil {
		resp.Sequence = snap.Seq
		resp.Generated = snap.Generated.UTC()
	}
	writeJSON(w, resp)
}
