package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/physmem-tools/physmem-go/pkg/log"
)

// ErrCalledFromTick is returned when Stop or Reconfigure is invoked with a
// tick's own context.
var ErrCalledFromTick = errors.New("refresh: called from inside a tick")

// ErrNoTick is returned when a policy is applied before Start provided a
// tick function.
var ErrNoTick = errors.New("refresh: no tick function")

// TickFunc performs one refresh pass. ctx is cancelled when the scheduler
// stops.
type TickFunc func(ctx context.Context)

// State represents the scheduler state.
type State uint8

const (
	// StateStopped indicates no loop is running.
	StateStopped State = iota

	// StateRunning indicates ticks are firing.
	StateRunning
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateRunning:
		return "RUNNING"
	default:
		return "UNKNOWN"
	}
}

// Stats counts scheduler activity since creation.
type Stats struct {
	// Ticks is the number of ticks that ran.
	Ticks uint64

	// Skipped is the number of ticks dropped because the scheduler was
	// suspended or the previous tick overran.
	Skipped uint64

	// Panics is the number of ticks that panicked.
	Panics uint64

	// LastTick is when the most recent tick started.
	LastTick time.Time
}

// Config holds scheduler configuration.
type Config struct {
	// Logger is the operational logger. Nil means slog.Default().
	Logger *slog.Logger

	// Trace receives scheduler state changes. Nil disables tracing.
	Trace log.Logger

	// SessionID tags trace events.
	SessionID string
}

type tickKey struct{}

// loop is one running ticker goroutine.
type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler runs a TickFunc periodically according to a Policy.
type Scheduler struct {
	// ctl serializes Start, Stop and Reconfigure.
	ctl sync.Mutex

	mu sync.RWMutex

	policy    Policy
	tick      TickFunc
	current   *loop
	suspended int
	stats     Stats

	logger    *slog.Logger
	trace     log.Logger
	sessionID string

	onStateChange func(oldState, newState State)
}

// NewScheduler creates a stopped scheduler with DefaultPolicy.
func NewScheduler(cfg Config) *Scheduler {
	s := &Scheduler{
		policy:    DefaultPolicy(),
		logger:    cfg.Logger,
		trace:     cfg.Trace,
		sessionID: cfg.SessionID,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.trace == nil {
		s.trace = log.NoopLogger{}
	}
	return s
}

// OnStateChange sets a callback for state changes.
func (s *Scheduler) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// Policy returns the current policy.
func (s *Scheduler) Policy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Running reports whether the ticker loop is active.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// State returns the current state.
func (s *Scheduler) State() State {
	if s.Running() {
		return StateRunning
	}
	return StateStopped
}

// Stats returns a copy of the activity counters.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Start sets the tick function and applies policy. A disabled policy
// records the settings without starting the loop. Starting a running
// scheduler replaces its loop.
func (s *Scheduler) Start(policy Policy, tick TickFunc) error {
	if tick == nil {
		return ErrNoTick
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	s.tick = tick
	s.mu.Unlock()

	s.apply(policy)
	return nil
}

// Stop cancels the loop and waits for it to exit. The policy is kept.
func (s *Scheduler) Stop() {
	_ = s.StopContext(context.Background())
}

// StopContext is Stop, but fails with ErrCalledFromTick when ctx belongs
// to a tick of this scheduler.
func (s *Scheduler) StopContext(ctx context.Context) error {
	if s.inTick(ctx) {
		return ErrCalledFromTick
	}

	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.halt(true)
	return nil
}

// Reconfigure replaces the policy. The old loop is cancelled before a new
// one starts, so timers never overlap. A disabled policy leaves the
// scheduler stopped.
func (s *Scheduler) Reconfigure(policy Policy) error {
	return s.ReconfigureContext(context.Background(), policy)
}

// ReconfigureContext is Reconfigure, but fails with ErrCalledFromTick when
// ctx belongs to a tick of this scheduler.
func (s *Scheduler) ReconfigureContext(ctx context.Context, policy Policy) error {
	if s.inTick(ctx) {
		return ErrCalledFromTick
	}
	if err := policy.Validate(); err != nil {
		return err
	}

	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.RLock()
	hasTick := s.tick != nil
	s.mu.RUnlock()

	if policy.Enabled && !hasTick {
		return ErrNoTick
	}

	s.apply(policy)
	return nil
}

// Suspend pauses ticks until a matching Resume.
func (s *Scheduler) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended++
}

// Resume undoes one Suspend. Extra calls are ignored.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended > 0 {
		s.suspended--
	}
}

// Suspended reports whether ticks are currently skipped.
func (s *Scheduler) Suspended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suspended > 0
}

// apply stops any running loop and starts a new one if policy is enabled.
// Callers hold ctl.
func (s *Scheduler) apply(policy Policy) {
	wasRunning := s.halt(false)

	s.mu.Lock()
	s.policy = policy
	tick := s.tick
	if !policy.Enabled || tick == nil {
		s.mu.Unlock()
		s.logger.Debug("refresh policy applied", "policy", policy.String())
		if wasRunning {
			s.emitState(StateRunning, StateStopped, "disabled")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctx = context.WithValue(ctx, tickKey{}, s)
	l := &loop{cancel: cancel, done: make(chan struct{})}
	s.current = l
	s.mu.Unlock()

	go s.run(ctx, l, policy.Interval, tick)

	s.logger.Debug("refresh scheduler started", "interval", policy.Interval)
	if !wasRunning {
		s.emitState(StateStopped, StateRunning, fmt.Sprintf("interval %s", policy.Interval))
	}
}

// halt cancels the running loop and waits for it. It reports whether a
// loop was running. Callers hold ctl.
func (s *Scheduler) halt(emit bool) bool {
	s.mu.Lock()
	l := s.current
	s.current = nil
	s.mu.Unlock()

	if l == nil {
		return false
	}

	l.cancel()
	<-l.done

	s.logger.Debug("refresh scheduler stopped")
	if emit {
		s.emitState(StateRunning, StateStopped, "stopped")
	}
	return true
}

func (s *Scheduler) run(ctx context.Context, l *loop, interval time.Duration, tick TickFunc) {
	defer close(l.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// A cancel racing with the ticker must win.
		if ctx.Err() != nil {
			return
		}

		if s.skipIfSuspended() {
			continue
		}

		s.runTick(ctx, tick)

		// Drop a tick that came due while this one ran.
		select {
		case <-ticker.C:
			s.countSkip()
		default:
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context, tick TickFunc) {
	s.mu.Lock()
	s.stats.Ticks++
	s.stats.LastTick = time.Now()
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.stats.Panics++
			s.mu.Unlock()
			s.logger.Error("refresh tick panicked", "panic", r)
		}
	}()

	tick(ctx)
}

func (s *Scheduler) skipIfSuspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended > 0 {
		s.stats.Skipped++
		return true
	}
	return false
}

func (s *Scheduler) countSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Skipped++
}

func (s *Scheduler) inTick(ctx context.Context) bool {
	owner, _ := ctx.Value(tickKey{}).(*Scheduler)
	return owner == s
}

func (s *Scheduler) emitState(oldState, newState State, reason string) {
	s.mu.RLock()
	fn := s.onStateChange
	s.mu.RUnlock()

	s.trace.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.sessionID,
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityScheduler,
			OldState: oldState.String(),
			NewState: newState.String(),
			Reason:   reason,
		},
	})

	if fn != nil {
		fn(oldState, newState)
	}
}
