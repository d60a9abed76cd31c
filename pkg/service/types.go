package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/physmem-tools/physmem-go/pkg/edit"
	"github.com/physmem-tools/physmem-go/pkg/log"
	"github.com/physmem-tools/physmem-go/pkg/refresh"
	"github.com/physmem-tools/physmem-go/pkg/session"
	"github.com/physmem-tools/physmem-go/pkg/window"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrAlreadyStarted = errors.New("service already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// ServiceState represents the service state.
type ServiceState uint8

const (
	// StateIdle - service created but not started.
	StateIdle ServiceState = iota

	// StateStarting - service is starting up.
	StateStarting

	// StateRunning - service is running normally.
	StateRunning

	// StateStopping - service is shutting down.
	StateStopping

	// StateStopped - service has stopped.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Service.
type Config struct {
	// Address is the initial window base.
	Address uint64

	// Length is the window length. Zero means window.DefaultLength.
	Length int

	// Policy is the initial refresh policy.
	Policy refresh.Policy

	// OpTimeout bounds each device call. Zero means session.DefaultOpTimeout.
	OpTimeout time.Duration

	// DeviceName describes the device in logs and traces.
	DeviceName string

	// Trace receives diagnostic events. Nil disables tracing.
	Trace log.Logger

	// TraceReads adds one trace event per byte read.
	TraceReads bool

	// Logger is the operational logger. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the viewer defaults: a 256-byte window at
// FF00D400 with auto-refresh off at one second.
func DefaultConfig() Config {
	return Config{
		Address:   0xFF00D400,
		Length:    window.DefaultLength,
		Policy:    refresh.DefaultPolicy(),
		OpTimeout: session.DefaultOpTimeout,
	}
}

// AppState is the viewer state owned by a Service.
type AppState struct {
	// AddressText is the address as last entered.
	AddressText string

	// Base is the parsed window base.
	Base uint64

	// Length is the window length.
	Length int

	// Policy is the refresh policy.
	Policy refresh.Policy

	// Window is the last completed read. HasWindow is false until the
	// first one.
	Window    window.Window
	HasWindow bool

	// Edit is the live edit request, or nil.
	Edit *edit.Request

	// Unconfirmed maps addresses written by committed edits to the value
	// written, until a read confirms them.
	Unconfirmed map[uint64]uint8
}

// View is a point-in-time copy of the viewer state for display.
type View struct {
	// AddressText is the address as last entered.
	AddressText string

	// Window is the display window. Unconfirmed writes are patched in with
	// Valid set.
	Window window.Window

	// HasWindow is false until the first read.
	HasWindow bool

	// Marks flags the edited cell and unconfirmed cells by offset.
	Marks map[int]window.Mark

	// Edit is a copy of the live edit request, or nil.
	Edit *edit.Request

	// Policy is the refresh policy.
	Policy refresh.Policy

	// Session is the session state.
	Session session.State
}

// EventType identifies the kind of event.
type EventType uint8

const (
	// EventWindowRefreshed - a window pass completed.
	EventWindowRefreshed EventType = iota

	// EventRefreshFailed - a pass could not run or some bytes failed.
	EventRefreshFailed

	// EventSessionStateChanged - the session changed state.
	EventSessionStateChanged

	// EventEditBegun - an edit request opened.
	EventEditBegun

	// EventEditCommitted - an edit value was written.
	EventEditCommitted

	// EventEditFailed - a commit attempt failed; the edit is still live.
	EventEditFailed

	// EventEditCancelled - an edit was discarded.
	EventEditCancelled

	// EventWriteMismatch - a re-read returned a value other than the one
	// written.
	EventWriteMismatch
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventWindowRefreshed:
		return "WINDOW_REFRESHED"
	case EventRefreshFailed:
		return "REFRESH_FAILED"
	case EventSessionStateChanged:
		return "SESSION_STATE_CHANGED"
	case EventEditBegun:
		return "EDIT_BEGUN"
	case EventEditCommitted:
		return "EDIT_COMMITTED"
	case EventEditFailed:
		return "EDIT_FAILED"
	case EventEditCancelled:
		return "EDIT_CANCELLED"
	case EventWriteMismatch:
		return "WRITE_MISMATCH"
	default:
		return "UNKNOWN"
	}
}

// Event represents a service event.
type Event struct {
	// Type is the event type.
	Type EventType

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Trigger says what started a refresh (refresh events).
	Trigger log.RefreshTrigger

	// Window is the window read (EventWindowRefreshed).
	Window *window.Window

	// Address is the byte concerned (edit and mismatch events).
	Address uint64

	// Written is the value committed (EventEditCommitted, EventWriteMismatch).
	Written uint8

	// Observed is the value read back (EventWriteMismatch).
	Observed uint8

	// OldState and NewState are session states (EventSessionStateChanged).
	OldState session.State
	NewState session.State

	// Edit is a copy of the edit request (edit events).
	Edit *edit.Request

	// Error is the failure (EventRefreshFailed, EventEditFailed).
	Error error
}

// EventHandler is a callback for service events.
type EventHandler func(Event)
