// Package scheduler drives automatic snapshot capture. Two timing sources
// feed it: a recurring interval tick for owners with uncaptured changes, and
// a short per-owner settle timer armed on every mutation, so a burst of
// edits collapses into a single capture shortly after the burst ends.
// A synchronous Flush covers shutdown and visibility changes.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/paristimemachine/galligeo/internal/domain"
)

// Snapshotter is the slice of the snapshot service the scheduler needs.
type Snapshotter interface {
	Create(ctx context.Context, owner, trigger, activeMapID string) (*domain.Snapshot, error)
}

// Options configures a Scheduler.
type Options struct {
	// AutoEnabled is the starting state of recurring interval capture;
	// Enable and Disable toggle it afterwards.
	AutoEnabled bool
	// Interval is the recurring capture period.
	Interval time.Duration
	// Settle is how long an owner must be quiet after a mutation before the
	// debounced capture fires. Zero disables debouncing.
	Settle time.Duration
}

// Scheduler owns the timers behind automatic snapshots. It is safe for
// concurrent use.
type Scheduler struct {
	snaps Snapshotter
	opts  Options

	mu     sync.Mutex
	auto   bool
	dirty  map[string]struct{}
	timers map[string]*time.Timer
	closed bool

	stop chan struct{}
	done chan struct{}
}

// New constructs a Scheduler; Start must be called before it does anything.
func New(snaps Snapshotter, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	return &Scheduler{
		snaps:  snaps,
		opts:   opts,
		auto:   opts.AutoEnabled,
		dirty:  make(map[string]struct{}),
		timers: make(map[string]*time.Timer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Enable turns recurring interval capture on.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	s.auto = true
	s.mu.Unlock()
}

// Disable turns recurring interval capture off. Settle timers and Flush keep
// working; only the interval tick goes quiet.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	s.auto = false
	s.mu.Unlock()
}

func (s *Scheduler) autoEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto
}

// Start launches the interval loop. When auto capture is disabled only the
// per-mutation settle timers run.
func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.autoEnabled() {
				s.captureDirty(domain.TriggerAuto)
			}
		case <-s.stop:
			return
		}
	}
}

// NotifyMutation marks the owner dirty and (re)arms their settle timer. It
// is the MutationSink the sync layer signals after every local write.
func (s *Scheduler) NotifyMutation(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.dirty[owner] = struct{}{}

	if s.opts.Settle <= 0 {
		return
	}
	if t, ok := s.timers[owner]; ok {
		t.Reset(s.opts.Settle)
		return
	}
	s.timers[owner] = time.AfterFunc(s.opts.Settle, func() {
		s.settleFired(owner)
	})
}

func (s *Scheduler) settleFired(owner string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, owner)
	_, wasDirty := s.dirty[owner]
	delete(s.dirty, owner)
	s.mu.Unlock()

	if wasDirty {
		s.capture(owner, domain.TriggerUserAction)
	}
}

// captureDirty snapshots every owner with uncaptured changes and clears the
// dirty set.
func (s *Scheduler) captureDirty(trigger string) {
	s.mu.Lock()
	owners := make([]string, 0, len(s.dirty))
	for owner := range s.dirty {
		owners = append(owners, owner)
	}
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	for _, owner := range owners {
		s.capture(owner, trigger)
	}
}

func (s *Scheduler) capture(owner, trigger string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := s.snaps.Create(ctx, owner, trigger, ""); err != nil {
		log.Warn().Err(err).
			Str("owner", owner).
			Str("trigger", trigger).
			Msg("scheduled snapshot failed")
	}
}

// Flush synchronously snapshots every owner with uncaptured changes under
// the given trigger. Shutdown calls it with the page-unload trigger so
// nothing the timers have not yet reached is lost.
func (s *Scheduler) Flush(ctx context.Context, trigger string) {
	s.mu.Lock()
	owners := make([]string, 0, len(s.dirty))
	for owner := range s.dirty {
		owners = append(owners, owner)
	}
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	for _, owner := range owners {
		if _, err := s.snaps.Create(ctx, owner, trigger, ""); err != nil {
			log.Warn().Err(err).
				Str("owner", owner).
				Str("trigger", trigger).
				Msg("flush snapshot failed")
		}
	}
}

// Stop halts the interval loop and cancels pending settle timers. It does
// not flush; callers wanting a final capture call Flush first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for owner, t := range s.timers {
		t.Stop()
		delete(s.timers, owner)
	}
	s.mu.Unlock()

	close(s.stop)
	<-s.done
}
