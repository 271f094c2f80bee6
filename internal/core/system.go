package core

import (
	"FleetTrack/internal/app"
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
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// System manages the lifecycle of the main components: the simulation scheduler,
// the traffic adapter and the HTTP server.
type System struct {
	settings model.Settings
	engine   *Engine

	Routes    *route.Catalog
	Overlays  *overlay.Set
	Store     *snapshot.Store
	Scheduler *Scheduler
	Traffic   *traffic.Adapter
	App       *app.App

	cache  *traffic.Cache
	group  *errgroup.Group
	cancel context.CancelFunc

	started   bool
	startLock sync.Mutex
}

// BuildEngine loads the catalog's routes and overlays and constructs an Engine for
// them under a fresh run id.
func BuildEngine(settings model.Settings, catalog *model.Catalog) (*Engine, *route.Catalog, *overlay.Set, error) {
	if catalog == nil {
		return nil, nil, nil, &model.ConfigError{Section: "catalog", Err: errors.New("missing catalog")}
	}
	routes, err := route.Load(catalog.Routes)
	if err != nil {
		return nil, nil, nil, err
	}
	overlays, err := overlay.Load(catalog.Geofences, catalog.Depots)
	if err != nil {
		return nil, nil, nil, err
	}
	engine, err := NewEngine(EngineOptions{
		Catalog:    routes,
		Vehicles:   catalog.Vehicles,
		Overlays:   overlays,
		Simulation: settings.Simulation,
		Estimator:  settings.Estimator,
		RunID:      uuid.NewString(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return engine, routes, overlays, nil
}

// NewSystem wires every component from settings and the catalog. Nothing runs
// until StartAll.
func NewSystem(settings model.Settings, catalog *model.Catalog) (*System, error) {
	engine, routes, overlays, err := BuildEngine(settings, catalog)
	if err != nil {
		return nil, err
	}

	stream, err := parser.New(settings.Server.StreamFormat)
	if err != nil {
		return nil, &model.ConfigError{Section: "server", Field: "stream_format", Err: err}
	}

	s := &System{
		settings: settings,
		engine:   engine,
		Routes:   routes,
		Overlays: overlays,
		Store:    &snapshot.Store{},
	}
	s.Scheduler = NewScheduler(engine, s.Store, settings.Simulation.TickInterval)

	// a missing cache only costs extra provider calls
	cache, err := traffic.NewCache(context.Background(), settings.Traffic.RedisURL, settings.Traffic.CacheTTL)
	if err != nil {
		util.Component("system").WithError(err).Warn("traffic cache unavailable, continuing without it")
		cache = nil
	}
	s.cache = cache
	s.Traffic = traffic.NewAdapter(traffic.AdapterOptions{
		Provider:     traffic.NewProvider(settings.Traffic),
		Cache:        cache,
		PollInterval: settings.Traffic.PollInterval,
		Timeout:      settings.Traffic.Timeout,
	})

	s.App, err = app.NewApp(app.Options{
		Store:      s.Store,
		Traffic:    s.Traffic,
		Routes:     routes,
		Overlays:   overlays,
		Center:     catalog.Center,
		Scheduler:  s.Scheduler,
		Stream:     stream,
		StaleAfter: settings.Simulation.StaleAfter,
	})
	if err != nil {
		return nil, err
	}
	s.Scheduler.OnPublish(s.App.Broadcast)

	util.Component("system").
		WithField("vehicles", engine.Vehicles()).
		WithField("routes", routes.Len()).
		WithField("stream", stream.Format()).
		Info("system constructed")
	return s, nil
}

// Engine exposes the simulation engine, e.g. for hot tuning updates.
func (s *System) Engine() *Engine { return s.engine }

// StartAll starts the scheduler, the traffic poller and the HTTP server. A failure
// of any of them cancels the others; Wait reports it.
func (s *System) StartAll(ctx context.Context) error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	if err := s.Scheduler.Start(gctx); err != nil {
		cancel()
		return fmt.Errorf("start scheduler: %w", err)
	}
	g.Go(func() error { return s.Traffic.Run(gctx) })
	g.Go(func() error { return s.App.Start(s.settings.Server.Addr) })

	s.group = g
	s.cancel = cancel
	s.started = true
	return nil
}

// Wait blocks until every component started by StartAll has returned.
func (s *System) Wait() error {
	s.startLock.Lock()
	g := s.group
	s.startLock.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// StopAll stops all running components gracefully: the scheduler finishes its
// in-flight tick, then the HTTP server drains within the shutdown timeout.
func (s *System) StopAll() {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if !s.started {
		return
	}
	s.Scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), s.settings.Server.ShutdownTimeout)
	defer cancel()
	if err := s.App.Shutdown(ctx); err != nil {
		util.Component("system").WithError(err).Warn("http shutdown")
	}
	s.cancel()
	if err := s.cache.Close(); err != nil {
		util.Component("system").WithError(err).Warn("close traffic cache")
	}
	s.started = false
}
