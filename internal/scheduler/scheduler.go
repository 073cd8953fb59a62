// Package scheduler drives the sampling pipeline at a fixed period and
// notifies consumers after every tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shini4i/netchoo/internal/counter"
	"github.com/shini4i/netchoo/internal/monitor"
)

// DefaultInterval is the sampling period used when none is configured.
const DefaultInterval = time.Second

var (
	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler already running")
	// ErrInvalidInterval is returned for a non-positive sampling period.
	ErrInvalidInterval = errors.New("sample interval must be positive")
	// ErrWindowTooShort is returned when the history window would be shorter
	// than the sampling period.
	ErrWindowTooShort = errors.New("window must not be shorter than the sample interval")
)

// Options configures a Scheduler.
type Options struct {
	// Interval is the sampling period. Zero means DefaultInterval.
	Interval time.Duration
}

// Notification is delivered to consumers once per tick.
type Notification struct {
	// RunID identifies the process run that produced the notification.
	RunID uuid.UUID
	// Seq numbers ticks from 1, failed ones included.
	Seq  uint64
	Time time.Time
	// Interval is the sampling period in effect for this tick.
	Interval time.Duration
	// Window is the history duration in effect for this tick.
	Window time.Duration

	// View is set on success. It is never shared with another notification.
	View *monitor.View
	// Err is set when the counter source could not be read; no sample was
	// recorded for this tick.
	Err error
	// ConsecutiveFailures counts failed ticks in a row, this one included.
	ConsecutiveFailures int
}

// Failed reports whether the tick was skipped because of a source failure.
func (n Notification) Failed() bool {
	return n.Err != nil
}

// Scheduler owns the Monitor and is its only writer. Every tick runs to
// completion on the scheduler goroutine: read the source, fold the snapshot
// into the monitor, publish.
type Scheduler struct {
	src   counter.Source
	mon   *monitor.Monitor
	runID uuid.UUID
	now   func() time.Time

	mu        sync.RWMutex
	interval  time.Duration
	window    time.Duration
	callbacks []func(Notification)
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}

	trigger     chan struct{}
	newInterval chan time.Duration
	newWindow   chan time.Duration

	// Owned by the loop goroutine.
	seq      uint64
	failures int
}

// New returns a stopped scheduler.
func New(src counter.Source, mon *monitor.Monitor, opts Options) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		src:         src,
		mon:         mon,
		runID:       uuid.New(),
		now:         time.Now,
		interval:    interval,
		window:      mon.Window(),
		trigger:     make(chan struct{}, 1),
		newInterval: make(chan time.Duration, 1),
		newWindow:   make(chan time.Duration, 1),
	}
}

// RunID returns the identifier stamped on every notification.
func (s *Scheduler) RunID() uuid.UUID { return s.runID }

// OnNotify registers a callback invoked after every tick. Callbacks run on
// the scheduler goroutine and must return quickly; register them before Start.
func (s *Scheduler) OnNotify(callback func(Notification)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
}

// Subscribe returns a channel that always holds the most recent notification
// not yet received. Older undelivered notifications are dropped, so a slow
// reader only ever sees fresh state.
func (s *Scheduler) Subscribe() <-chan Notification {
	ch := make(chan Notification, 1)
	s.OnNotify(func(n Notification) {
		replaceLatest(ch, n)
	})
	return ch
}

// replaceLatest puts v into a one-slot channel, evicting whatever is there.
func replaceLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Interval returns the current sampling period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interval
}

// SetInterval changes the sampling period. A running scheduler picks it up
// at its next tick; history already retained is not touched.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}
	s.mu.Lock()
	if d > s.window {
		window := s.window
		s.mu.Unlock()
		return fmt.Errorf("%w: interval %s, window %s", ErrWindowTooShort, d, window)
	}
	s.interval = d
	running := s.running
	s.mu.Unlock()

	if running {
		replaceLatest(s.newInterval, d)
	}
	slog.Info("Sample interval changed", "interval", d)
	return nil
}

// Window returns the retained history duration.
func (s *Scheduler) Window() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// SetWindow changes the retained history duration. A running scheduler hands
// the change to its loop, so the monitor is only ever touched by one
// goroutine; samples beyond the new window are evicted at the next tick.
func (s *Scheduler) SetWindow(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d < s.interval {
		return fmt.Errorf("%w: interval %s, window %s", ErrWindowTooShort, s.interval, d)
	}
	s.window = d
	if s.running {
		replaceLatest(s.newWindow, d)
	} else {
		s.mon.SetWindow(d)
	}
	slog.Info("History window changed", "window", d)
	return nil
}

// TriggerOnce requests an extra tick as soon as possible. Requests made while
// one is already pending are merged. It has no effect on a stopped scheduler.
func (s *Scheduler) TriggerOnce() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Start runs the first tick immediately and then one every interval until
// ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	// Drop anything requested while stopped.
	select {
	case <-s.trigger:
	default:
	}
	select {
	case <-s.newInterval:
	default:
	}
	select {
	case <-s.newWindow:
	default:
	}
	s.mon.SetWindow(s.window)
	s.mon.SetInterval(s.interval)

	go s.loop(loopCtx, s.interval, s.done)

	slog.Info("Scheduler started", "run_id", s.runID, "source", s.src.Name(), "interval", s.interval)
	return nil
}

// Stop cancels the loop and waits for it to exit. A tick in progress either
// completes and is published, or is abandoned before touching any state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	slog.Info("Scheduler stopped", "run_id", s.runID)
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx, interval)

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-s.newInterval:
			interval = d
			ticker.Reset(d)
			s.mon.SetInterval(d)
		case d := <-s.newWindow:
			s.mon.SetWindow(d)
		case <-s.trigger:
			s.tick(ctx, interval)
		case <-ticker.C:
			s.tick(ctx, interval)
		}
	}
}

// tick performs one pass of the pipeline. The source read is bounded by one
// interval so a stuck feed shows up as a failed tick instead of a hang.
func (s *Scheduler) tick(ctx context.Context, interval time.Duration) {
	readCtx, cancel := context.WithTimeout(ctx, interval)
	snap, err := s.src.Snapshot(readCtx)
	cancel()

	if ctx.Err() != nil {
		return
	}

	s.seq++
	n := Notification{
		RunID:    s.runID,
		Seq:      s.seq,
		Time:     s.now(),
		Interval: interval,
		Window:   s.mon.Window(),
	}

	if err != nil {
		s.failures++
		n.Err = err
		n.ConsecutiveFailures = s.failures
		if s.failures == 1 {
			slog.Warn("Counter source failed", "source", s.src.Name(), "error", err)
		} else {
			slog.Debug("Counter source still failing", "source", s.src.Name(),
				"consecutive_failures", s.failures, "error", err)
		}
	} else {
		if s.failures > 0 {
			slog.Info("Counter source recovered", "source", s.src.Name(), "failed_ticks", s.failures)
		}
		s.failures = 0
		view := s.mon.Tick(snap, n.Time)
		n.View = &view
	}

	s.publish(n)
}

func (s *Scheduler) publish(n Notification) {
	s.mu.RLock()
	callbacks := make([]func(Notification), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.RUnlock()

	for _, cb := range callbacks {
		cb(n)
	}
}
