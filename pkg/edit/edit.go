package edit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/physmem-tools/physmem-go/pkg/address"
	"github.com/physmem-tools/physmem-go/pkg/log"
)

// Edit errors.
var (
	ErrEditInProgress  = errors.New("edit in progress")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNoValue         = errors.New("no value entered")
	ErrNotLive         = errors.New("edit request is not live")
	ErrCommitting      = errors.New("commit in progress")
)

// State is the lifecycle state of a Request.
type State uint8

const (
	// StatePending indicates the request is open and not yet committed.
	StatePending State = iota

	// StateCommitted indicates the value was written.
	StateCommitted

	// StateFailed indicates the last commit attempt failed. The request is
	// still live.
	StateFailed

	// StateCancelled indicates the request was discarded.
	StateCancelled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateCommitted:
		return "COMMITTED"
	case StateFailed:
		return "FAILED"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Writer writes one byte of physical memory.
// *session.Session implements it.
type Writer interface {
	WriteByteAt(ctx context.Context, addr uint64, value uint8) error
}

// Suspender pauses periodic refresh while an edit is live.
// *refresh.Scheduler implements it.
type Suspender interface {
	Suspend()
	Resume()
}

// Request is a pending single-byte edit.
type Request struct {
	// ID identifies the request in traces.
	ID string

	// Index is the window offset being edited.
	Index int

	// Address is the physical address (window base + Index).
	Address uint64

	// Current is the cell value when the edit began.
	Current uint8

	// Text is the edit field prefill, Current as two hex digits.
	Text string

	// Value is the validated new value. Only meaningful if HasValue.
	Value uint8

	// HasValue reports whether a value was entered.
	HasValue bool

	// State is the lifecycle state.
	State State

	// Attempts counts commit attempts.
	Attempts int

	// Err is the error of the last failed commit.
	Err error

	// BegunAt is when Begin created the request.
	BegunAt time.Time
}

// Live reports whether the request can still be committed or cancelled.
func (r *Request) Live() bool {
	return r.State == StatePending || r.State == StateFailed
}

// Config holds manager configuration.
type Config struct {
	// Length bounds valid indexes to [0, Length). Zero means 256.
	Length int

	// Suspender is paused while a request is live. Nil means none.
	Suspender Suspender

	// Logger is the operational logger. Nil means slog.Default().
	Logger *slog.Logger

	// Trace receives edit events. Nil disables tracing.
	Trace log.Logger

	// SessionID tags trace events.
	SessionID string
}

// Manager owns the single live edit request.
type Manager struct {
	mu sync.Mutex

	length    int
	suspender Suspender
	current   *Request

	// committing is set while Commit writes without holding mu.
	committing bool

	logger    *slog.Logger
	trace     log.Logger
	sessionID string

	onCommitted func(req Request)
}

// NewManager creates a manager with no live request.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		length:    cfg.Length,
		suspender: cfg.Suspender,
		logger:    cfg.Logger,
		trace:     cfg.Trace,
		sessionID: cfg.SessionID,
	}
	if m.length <= 0 {
		m.length = 256
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.trace == nil {
		m.trace = log.NoopLogger{}
	}
	return m
}

// SetLength changes the index bound for later Begin calls.
func (m *Manager) SetLength(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.length = n
	}
}

// OnCommitted sets a hook run after a successful commit, outside the
// manager's lock. The service uses it for the confirmation read.
func (m *Manager) OnCommitted(fn func(req Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCommitted = fn
}

// Current returns a copy of the live request, or nil.
func (m *Manager) Current() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	c := *m.current
	return &c
}

// Begin opens an edit of the cell at index in a window starting at base.
func (m *Manager) Begin(base uint64, index int, current uint8) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, fmt.Errorf("%w: 0x%X", ErrEditInProgress, m.current.Address)
	}
	if index < 0 || index >= m.length {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, m.length)
	}
	if uint64(index) > ^uint64(0)-base {
		return nil, fmt.Errorf("%w: 0x%X+%d passes the end of the address space", ErrIndexOutOfRange, base, index)
	}

	req := &Request{
		ID:      xid.New().String(),
		Index:   index,
		Address: base + uint64(index),
		Current: current,
		Text:    address.FormatByte(current),
		State:   StatePending,
		BegunAt: time.Now(),
	}
	m.current = req

	if m.suspender != nil {
		m.suspender.Suspend()
	}

	m.logger.Debug("edit begun", "request_id", req.ID, "addr", address.Format(req.Address))
	m.emit(req, log.EditBegun, nil)
	return req, nil
}

// Validate parses a hex byte. It has no side effects.
func (m *Manager) Validate(text string) (uint8, error) {
	return Validate(text)
}

// Validate parses a hex byte with address.ParseByte rules.
func Validate(text string) (uint8, error) {
	return address.ParseByte(text)
}

// SetValue validates text and stores it as the request's new value. On a
// validation error the request is unchanged.
func (m *Manager) SetValue(req *Request, text string) error {
	v, err := Validate(text)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLive(req); err != nil {
		return err
	}
	req.Value = v
	req.HasValue = true
	req.Text = address.FormatByte(v)
	if req.State == StateFailed {
		req.State = StatePending
	}
	return nil
}

// Commit writes the request's value through w. On success the request
// closes, refresh resumes and the OnCommitted hook runs. On failure the
// request stays live in StateFailed with Err set.
//
// The manager's lock is not held during the write, so Current stays
// available to readers. SetValue, Cancel and Commit on the request fail
// with ErrCommitting until the write returns.
func (m *Manager) Commit(ctx context.Context, req *Request, w Writer) error {
	m.mu.Lock()

	if err := m.checkLive(req); err != nil {
		m.mu.Unlock()
		return err
	}
	if !req.HasValue {
		m.mu.Unlock()
		return ErrNoValue
	}

	req.Attempts++
	m.committing = true
	addr, value := req.Address, req.Value
	m.mu.Unlock()

	err := w.WriteByteAt(ctx, addr, value)

	m.mu.Lock()
	m.committing = false
	if err != nil {
		req.State = StateFailed
		req.Err = err
		failed := *req
		m.mu.Unlock()

		m.logger.Warn("edit commit failed", "request_id", failed.ID, "addr", address.Format(failed.Address),
			"attempt", failed.Attempts, "err", err)
		m.emit(&failed, log.EditFailed, err)
		return err
	}

	req.State = StateCommitted
	req.Err = nil
	m.current = nil
	if m.suspender != nil {
		m.suspender.Resume()
	}
	hook := m.onCommitted
	done := *req
	m.mu.Unlock()

	m.logger.Info("edit committed", "request_id", done.ID, "addr", address.Format(done.Address),
		"old", address.FormatByte(done.Current), "new", address.FormatByte(done.Value))
	m.emit(&done, log.EditCommitted, nil)

	if hook != nil {
		hook(done)
	}
	return nil
}

// Cancel discards a live request without writing.
func (m *Manager) Cancel(req *Request) error {
	m.mu.Lock()

	if err := m.checkLive(req); err != nil {
		m.mu.Unlock()
		return err
	}
	req.State = StateCancelled
	m.current = nil
	if m.suspender != nil {
		m.suspender.Resume()
	}
	done := *req
	m.mu.Unlock()

	m.logger.Debug("edit cancelled", "request_id", done.ID)
	m.emit(&done, log.EditCancelled, nil)
	return nil
}

// checkLive requires req to be the live request and no write to be in
// flight. Callers hold mu.
func (m *Manager) checkLive(req *Request) error {
	if req == nil || m.current != req || !req.Live() {
		return ErrNotLive
	}
	if m.committing {
		return ErrCommitting
	}
	return nil
}

func (m *Manager) emit(req *Request, outcome log.EditOutcome, err error) {
	ev := &log.EditEvent{
		RequestID: req.ID,
		Outcome:   outcome,
		Address:   req.Address,
		Old:       req.Current,
		Attempt:   req.Attempts,
	}
	if req.HasValue {
		ev.New = req.Value
	}
	if err != nil {
		ev.Error = err.Error()
	}
	m.trace.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: m.sessionID,
		Layer:     log.LayerService,
		Category:  log.CategoryEdit,
		Edit:      ev,
	})
}
