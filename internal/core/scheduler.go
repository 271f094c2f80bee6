package core

import (
	"FleetTrack/internal/model"
	"FleetTrack/internal/snapshot"
	"FleetTrack/internal/util"
	"context"
	"errors"
	"sync"
	"time"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
)

// Ticker computes one complete snapshot.
type Ticker interface {
	Tick(ctx context.Context, now time.Time, dt time.Duration) (*snapshot.Snapshot, error)
}

// Scheduler drives a Ticker at a fixed interval and publishes every completed
// snapshot to a Store. A tick that fails or is cancelled publishes nothing.
type Scheduler struct {
	engine   Ticker
	store    *snapshot.Store
	interval time.Duration
	clock    func() time.Time
	hooks    []func(*snapshot.Snapshot)

	mu     sync.Mutex
	state  State
	err    error
	stop   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup

	tickMu sync.Mutex
}

// NewScheduler returns a stopped Scheduler. A non-positive interval defaults to one second.
func NewScheduler(engine Ticker, store *snapshot.Store, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		engine:   engine,
		store:    store,
		interval: interval,
		clock:    time.Now,
		state:    StateStopped,
	}
}

// OnPublish registers fn to be called with every published snapshot, on the tick
// goroutine. Register hooks before Start.
func (s *Scheduler) OnPublish(fn func(*snapshot.Snapshot)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Interval is the tick cadence.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether the scheduler is ticking.
func (s *Scheduler) Running() bool { return s.State() == StateRunning }

// Err returns the fatal error that halted the scheduler, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Start begins periodic ticking. Calling Start on a running scheduler is a no-op.
// The loop ends when ctx is done, on Stop or Kill, or on a fatal tick error.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return nil
	}
	tickCtx, cancel := context.WithCancel(ctx)
	s.state = StateRunning
	s.err = nil
	s.stop = make(chan struct{})
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(tickCtx, s.stop)
	util.Component("scheduler").WithField("interval", s.interval).Info("started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.setStopped(nil)
			return
		case <-t.C:
		}
		select {
		case <-stop:
			return
		default:
		}
		if err := s.TickOnce(ctx); err != nil {
			var fatal *model.SchedulerFatalError
			if errors.As(err, &fatal) {
				s.halt(err)
				return
			}
			// cancelled mid-tick; nothing was published
			util.Component("scheduler").WithError(err).Debug("tick discarded")
		}
	}
}

// TickOnce runs a single tick synchronously and publishes the result. It is used by
// the loop and by headless runs; concurrent calls are serialized.
func (s *Scheduler) TickOnce(ctx context.Context) error {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	snap, err := s.engine.Tick(ctx, s.clock(), s.interval)
	if err != nil {
		return err
	}
	if !s.store.Publish(snap) {
		util.Component("scheduler").WithField("seq", snap.Seq).Warn("snapshot out of order, dropped")
		return nil
	}
	s.mu.Lock()
	hooks := s.hooks
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(snap)
	}
	return nil
}

// Stop ends ticking after the in-flight tick, if any, has finished and published.
func (s *Scheduler) Stop() {
	s.shutdown(false)
}

// Kill ends ticking immediately. An in-flight tick is cancelled and discarded.
func (s *Scheduler) Kill() {
	s.shutdown(true)
}

func (s *Scheduler) shutdown(force bool) {
	s.mu.Lock()
	stop, cancel := s.stop, s.cancel
	s.mu.Unlock()
	if stop == nil {
		return
	}
	if force {
		cancel()
	}
	// close stop channel (idempotent)
	select {
	case <-stop:
	default:
		close(stop)
	}
	s.wg.Wait()
	cancel()
	s.setStopped(nil)
}

// halt stops the scheduler after an unrecoverable tick and marks the last good
// snapshot stale so readers keep being served.
func (s *Scheduler) halt(err error) {
	util.Component("scheduler").WithError(err).Error("halting on fatal tick error")
	s.store.MarkStale()
	s.setStopped(err)
}

func (s *Scheduler) setStopped(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.state = StateStopped
	if err != nil {
		s.err = err
	}
	util.Component("scheduler").Info("stopped")
}
