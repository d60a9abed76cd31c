package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/physmem-tools/physmem-go/pkg/log"
)

// DefaultOpTimeout bounds a single device call.
const DefaultOpTimeout = 250 * time.Millisecond

// State represents the session state.
type State uint8

const (
	// StateClosed indicates no handle is held.
	StateClosed State = iota

	// StateOpen indicates the handle is usable.
	StateOpen

	// StateFailed indicates open failed or a fatal error released the handle.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Config holds session configuration.
type Config struct {
	// OpTimeout bounds each device call. Zero means DefaultOpTimeout.
	OpTimeout time.Duration

	// Name describes the device in logs and traces (e.g. "/dev/mem").
	Name string

	// Trace receives access and state events. Nil disables tracing.
	Trace log.Logger

	// TraceReads adds one event per byte read. Writes are always traced.
	TraceReads bool

	// Logger is the operational logger. Nil means slog.Default().
	Logger *slog.Logger
}

// Session owns the privileged handle to a Device.
type Session struct {
	mu sync.RWMutex

	// lifecycle serializes Open and Close.
	lifecycle sync.Mutex

	// slot holds a token while a device call is in flight.
	slot chan struct{}

	// closePending hands Device.Close to the goroutine holding slot.
	// Guarded by mu.
	closePending bool

	id      string
	dev     Device
	state   State
	lastErr error

	opTimeout  time.Duration
	name       string
	trace      log.Logger
	traceReads bool
	logger     *slog.Logger

	onStateChange func(oldState, newState State)
}

// New creates a closed session for dev.
func New(dev Device, cfg Config) *Session {
	s := &Session{
		slot:       make(chan struct{}, 1),
		id:         uuid.New().String(),
		dev:        dev,
		state:      StateClosed,
		opTimeout:  cfg.OpTimeout,
		name:       cfg.Name,
		trace:      cfg.Trace,
		traceReads: cfg.TraceReads,
		logger:     cfg.Logger,
	}
	if s.opTimeout <= 0 {
		s.opTimeout = DefaultOpTimeout
	}
	if s.trace == nil {
		s.trace = log.NoopLogger{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ID returns the session identifier used in traces.
func (s *Session) ID() string {
	return s.id
}

// Name returns the device description.
func (s *Session) Name() string {
	return s.name
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsOpen returns true if the session can issue reads and writes.
func (s *Session) IsOpen() bool {
	return s.State() == StateOpen
}

// LastError returns the error that moved the session to Failed, if any.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// OpTimeout returns the per-call timeout.
func (s *Session) OpTimeout() time.Duration {
	return s.opTimeout
}

// OnStateChange sets a callback for state changes.
func (s *Session) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// Open acquires the device handle. Calling Open on an open session is a
// no-op. On failure the session moves to Failed and the returned error
// wraps ErrPermissionDenied or ErrDeviceUnavailable.
func (s *Session) Open(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.State() == StateOpen {
		return nil
	}

	err := s.call(ctx, s.dev.Open)
	if err != nil {
		if !IsFatal(err) {
			err = wrapUnavailable(err)
		}
		s.setState(StateFailed, err)
		s.logger.Warn("session open failed", "device", s.name, "err", err)
		return err
	}

	s.setState(StateOpen, nil)
	s.logger.Info("session opened", "device", s.name, "session_id", s.id)
	return nil
}

// Close releases the device handle. It is safe to call multiple times.
// A device call still stuck after a timeout is not interrupted; the handle
// is closed as soon as that call returns.
func (s *Session) Close() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.State() == StateClosed {
		return nil
	}

	// From Failed too: a timed-out Open may have acquired the handle late.
	err := s.closeDevice()

	s.setState(StateClosed, nil)
	return err
}

// closeDevice calls Device.Close once no other device call is in flight.
// It waits up to the op timeout for the slot, then leaves the close to the
// goroutine holding it.
func (s *Session) closeDevice() error {
	timer := time.NewTimer(s.opTimeout)
	defer timer.Stop()

	select {
	case s.slot <- struct{}{}:
		defer func() { <-s.slot }()
		return s.dev.Close()
	case <-timer.C:
	}

	s.mu.Lock()
	s.closePending = true
	s.mu.Unlock()

	// The stuck call may have returned before the flag was set.
	select {
	case s.slot <- struct{}{}:
		defer func() { <-s.slot }()
		if s.takeClosePending() {
			return s.dev.Close()
		}
		return nil
	default:
	}

	s.logger.Warn("device call still in flight, close deferred", "device", s.name)
	return nil
}

func (s *Session) takeClosePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.closePending
	s.closePending = false
	return pending
}

// release returns the slot, first running a close deferred by closeDevice.
func (s *Session) release() {
	if s.takeClosePending() {
		if err := s.dev.Close(); err != nil {
			s.logger.Debug("deferred device close failed", "device", s.name, "err", err)
		}
	}
	<-s.slot
}

// ReadByteAt reads one byte at addr. Errors wrap one of the session
// sentinels; see Kind.
func (s *Session) ReadByteAt(ctx context.Context, addr uint64) (uint8, error) {
	if !s.IsOpen() {
		return 0, ErrNotConnected
	}

	var v uint8
	start := time.Now()
	err := s.call(ctx, func() error {
		var e error
		v, e = s.dev.Peek(addr)
		return e
	})
	elapsed := time.Since(start)

	if s.traceReads || err != nil {
		s.traceAccess(log.OpRead, addr, v, err, elapsed)
	}
	if err != nil {
		s.handleError(err)
		return 0, err
	}
	return v, nil
}

// WriteByteAt writes one byte at addr.
func (s *Session) WriteByteAt(ctx context.Context, addr uint64, value uint8) error {
	if !s.IsOpen() {
		return ErrNotConnected
	}

	start := time.Now()
	err := s.call(ctx, func() error {
		return s.dev.Poke(addr, value)
	})
	s.traceAccess(log.OpWrite, addr, value, err, time.Since(start))

	if err != nil {
		s.handleError(err)
		return err
	}
	return nil
}

// call runs fn on the device under the op timeout. Only one call holds
// the slot at a time; waiting for the slot counts against the same deadline.
func (s *Session) call(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return contextErr(ctx)
	}

	done := make(chan error, 1)
	go func() {
		defer s.release()
		done <- classify(fn())
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return contextErr(ctx)
	}
}

// handleError moves the session to Failed on fatal errors.
func (s *Session) handleError(err error) {
	if !IsFatal(err) {
		return
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.State() != StateOpen {
		return
	}
	if cerr := s.closeDevice(); cerr != nil {
		s.logger.Debug("closing failed device", "device", s.name, "err", cerr)
	}
	s.setState(StateFailed, err)
	s.logger.Error("session failed", "device", s.name, "err", err)
}

func (s *Session) setState(newState State, cause error) {
	s.mu.Lock()
	oldState := s.state
	s.state = newState
	s.lastErr = cause
	fn := s.onStateChange
	s.mu.Unlock()

	if oldState == newState {
		return
	}

	ev := &log.StateChangeEvent{
		Entity:   log.StateEntitySession,
		OldState: oldState.String(),
		NewState: newState.String(),
	}
	if cause != nil {
		ev.Reason = cause.Error()
	}
	s.trace.Log(log.Event{
		Timestamp:   time.Now(),
		SessionID:   s.id,
		Layer:       log.LayerSession,
		Category:    log.CategoryState,
		Device:      s.name,
		StateChange: ev,
	})

	if fn != nil {
		fn(oldState, newState)
	}
}

func (s *Session) traceAccess(op log.Op, addr uint64, v uint8, err error, d time.Duration) {
	ev := &log.AccessEvent{
		Op:       op,
		Address:  addr,
		Width:    1,
		Value:    v,
		Duration: d,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.trace.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.id,
		Layer:     log.LayerDevice,
		Category:  log.CategoryAccess,
		Device:    s.name,
		Access:    ev,
	})
}
