// Package app implements the HTTP serving boundary for FleetTrack: the JSON API,
// the GTFS-Realtime export and the websocket live stream.
package app

import (
	"FleetTrack/internal/model"
	"FleetTrack/internal/overlay"
	"FleetTrack/internal/parser"
	"FleetTrack/internal/route"
	"FleetTrack/internal/snapshot"
	"FleetTrack/internal/traffic"
	"FleetTrack/internal/util"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SchedulerInfo is the scheduler state exposed on /api/health.
type SchedulerInfo interface {
	Running() bool
	Err() error
}

// Options wires the App to the running simulation.
type Options struct {
	Store      *snapshot.Store
	Traffic    *traffic.Adapter
	Routes     *route.Catalog
	Overlays   *overlay.Set
	Center     model.MapCenter
	Scheduler  SchedulerInfo
	Stream     parser.Parser
	StaleAfter time.Duration
}

// App serves read-only views of the latest snapshot. Handlers never fail because of
// simulation errors; staleness is reported in the payload.
type App struct {
	opts   Options
	Hub    *Hub
	Mux    *http.ServeMux
	Server *http.Server
	clock  func() time.Time

	mu     sync.Mutex
	closed bool
}

// NewApp initializes the web app and its routes.
func NewApp(opts Options) (*App, error) {
	if opts.Store == nil {
		return nil, errors.New("[app] nil snapshot store")
	}
	if opts.Traffic == nil {
		opts.Traffic = traffic.NewAdapter(traffic.AdapterOptions{})
	}
	if opts.Stream == nil {
		opts.Stream = parser.NewJSONParser()
	}
	a := &App{
		opts:  opts,
		Hub:   NewHub(opts.Stream),
		Mux:   http.NewServeMux(),
		clock: time.Now,
	}
	a.registerRoutes()
	return a, nil
}

// Handler returns the root handler with middleware applied.
func (a *App) Handler() http.Handler {
	return withRecover(withLogging(withCORS(a.Mux)))
}

// Start launches the web server and blocks until Shutdown is called.
func (a *App) Start(addr string) error {
	if addr == "" {
		util.Component("app").Info("app server not started (empty address)")
		return nil
	}
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.Server = srv
	a.mu.Unlock()

	util.Component("app").Infof("web server listening at http://%s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("[app] HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the web server and closes websocket clients.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil {
		return nil
	}
	a.Hub.Close()
	a.mu.Lock()
	a.closed = true
	srv := a.Server
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	util.Component("app").Info("shutting down web server...")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("[app] HTTP server shutdown: %w", err)
	}
	util.Component("app").Info("web server stopped cleanly")
	return nil
}

// Broadcast pushes a published snapshot to websocket clients.
func (a *App) Broadcast(snap *snapshot.Snapshot) { a.Hub.Broadcast(snap) }
