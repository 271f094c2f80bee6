package traffic

import (
	"FleetTrack/internal/model"
	"FleetTrack/internal/util"
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// AdapterOptions configures NewAdapter.
type AdapterOptions struct {
	Provider     Provider // nil serves the fallback set only
	Cache        *Cache
	PollInterval time.Duration
	Timeout      time.Duration
}

// Adapter polls a Provider on its own cadence and keeps the latest report.
// Report is safe for concurrent use and never fails.
type Adapter struct {
	provider Provider
	cache    *Cache
	interval time.Duration
	timeout  time.Duration
	clock    func() time.Time

	report atomic.Pointer[model.TrafficReport]
}

// NewAdapter returns an Adapter. Until the first Refresh, Report serves the fallback set.
func NewAdapter(opts AdapterOptions) *Adapter {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Adapter{
		provider: opts.Provider,
		cache:    opts.Cache,
		interval: interval,
		timeout:  requestTimeout(opts.Timeout),
		clock:    time.Now,
	}
}

// NewProvider picks the provider named in settings, or nil for fallback only.
func NewProvider(s model.TrafficSettings) Provider {
	switch s.Provider {
	case "tomtom":
		if s.TomTomAPIKey == "" {
			util.Component("traffic").Warn("tomtom selected without api key, serving fallback incidents")
		}
		return NewTomTom(s)
	}
	return nil
}

// Report returns the latest report.
func (a *Adapter) Report() *model.TrafficReport {
	if r := a.report.Load(); r != nil {
		return r
	}
	return a.fallback()
}

func (a *Adapter) fallback() *model.TrafficReport {
	return &model.TrafficReport{Source: FallbackSource, Generated: a.clock().UTC(), Features: Fallback()}
}

// Refresh fetches incidents once and stores the resulting report. Any provider
// failure, and an empty incident list, yield the fallback set.
func (a *Adapter) Refresh(ctx context.Context) *model.TrafficReport {
	r := a.fetch(ctx)
	a.report.Store(r)
	return r
}

func (a *Adapter) fetch(ctx context.Context) *model.TrafficReport {
	log := util.Component("traffic")
	if a.provider == nil {
		return a.fallback()
	}
	name := a.provider.Name()

	if cached, err := a.cache.Get(ctx, name); err != nil {
		log.WithError(err).Warn("traffic cache read failed")
	} else if cached != nil {
		return cached
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	features, err := a.provider.Incidents(callCtx)
	if err != nil {
		var perr *model.ProviderError
		if !errors.As(err, &perr) {
			err = &model.ProviderError{Provider: name, Err: err}
		}
		log.WithError(err).Warn("traffic feed request failed, serving fallback")
		return a.fallback()
	}
	if len(features) == 0 {
		return a.fallback()
	}

	r := &model.TrafficReport{Source: name, Generated: a.clock().UTC(), Features: features}
	if err := a.cache.Set(ctx, r); err != nil {
		log.WithError(err).Warn("traffic cache write failed")
	}
	log.WithField("incidents", len(features)).Debug("traffic refreshed")
	return r
}

// Run refreshes immediately and then every poll interval until ctx is done.
func (a *Adapter) Run(ctx context.Context) error {
	a.Refresh(ctx)
	t := time.NewTicker(a.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.Refresh(ctx)
		}
	}
}
