package log

import (
	"time"
)

// Event represents a trace event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Device describes the underlying resource (path or "sim").
	Device string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Access      *AccessEvent      `cbor:"10,keyasint,omitempty"` // Device layer
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"` // Session/scheduler state
	Refresh     *RefreshEvent     `cbor:"12,keyasint,omitempty"` // Window pass
	Edit        *EditEvent        `cbor:"13,keyasint,omitempty"` // Edit transaction
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerDevice is the raw device access layer.
	LayerDevice Layer = 0
	// LayerSession is the session lifecycle layer.
	LayerSession Layer = 1
	// LayerService is the viewer/service layer.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerDevice:
		return "DEVICE"
	case LayerSession:
		return "SESSION"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryAccess indicates a single byte read or write.
	CategoryAccess Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryRefresh indicates a completed window pass.
	CategoryRefresh Category = 2
	// CategoryEdit indicates an edit transaction step.
	CategoryEdit Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryAccess:
		return "ACCESS"
	case CategoryState:
		return "STATE"
	case CategoryRefresh:
		return "REFRESH"
	case CategoryEdit:
		return "EDIT"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Op distinguishes reads from writes.
type Op uint8

const (
	// OpRead is a byte read.
	OpRead Op = 0
	// OpWrite is a byte write.
	OpWrite Op = 1
)

// String returns the op name.
func (o Op) String() string {
	switch o {
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// AccessEvent captures one device access.
type AccessEvent struct {
	// Op is the access direction.
	Op Op `cbor:"1,keyasint"`

	// Address is the absolute physical address.
	Address uint64 `cbor:"2,keyasint"`

	// Width is the access width in bytes (always 1).
	Width uint8 `cbor:"3,keyasint"`

	// Value is the byte read or written. Meaningless if Error is set on a read.
	Value uint8 `cbor:"4,keyasint"`

	// Error is the failure message, empty on success.
	Error string `cbor:"5,keyasint,omitempty"`

	// Duration is how long the device call took.
	Duration time.Duration `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures session and scheduler lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySession indicates a session state change.
	StateEntitySession StateEntity = 0
	// StateEntityScheduler indicates a refresh scheduler change.
	StateEntityScheduler StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntityScheduler:
		return "SCHEDULER"
	default:
		return "UNKNOWN"
	}
}

// RefreshTrigger says what started a window pass.
type RefreshTrigger uint8

const (
	// TriggerManual is a user-requested refresh.
	TriggerManual RefreshTrigger = 0
	// TriggerScheduled is a timer tick.
	TriggerScheduled RefreshTrigger = 1
	// TriggerEdit is the confirmation read after a commit.
	TriggerEdit RefreshTrigger = 2
)

// String returns the trigger name.
func (r RefreshTrigger) String() string {
	switch r {
	case TriggerManual:
		return "MANUAL"
	case TriggerScheduled:
		return "SCHEDULED"
	case TriggerEdit:
		return "EDIT"
	default:
		return "UNKNOWN"
	}
}

// RefreshEvent summarizes one window pass.
type RefreshEvent struct {
	Trigger  RefreshTrigger `cbor:"1,keyasint"`
	Base     uint64         `cbor:"2,keyasint"`
	Length   int            `cbor:"3,keyasint"`
	Failures int            `cbor:"4,keyasint,omitempty"`
	Duration time.Duration  `cbor:"5,keyasint,omitempty"`
}

// EditOutcome is the step of an edit transaction.
type EditOutcome uint8

const (
	// EditBegun is recorded when an edit opens.
	EditBegun EditOutcome = 0
	// EditCommitted is recorded after a successful write.
	EditCommitted EditOutcome = 1
	// EditFailed is recorded after a failed write.
	EditFailed EditOutcome = 2
	// EditCancelled is recorded when an edit is discarded.
	EditCancelled EditOutcome = 3
)

// String returns the outcome name.
func (e EditOutcome) String() string {
	switch e {
	case EditBegun:
		return "BEGUN"
	case EditCommitted:
		return "COMMITTED"
	case EditFailed:
		return "FAILED"
	case EditCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// EditEvent captures an edit transaction step.
type EditEvent struct {
	RequestID string      `cbor:"1,keyasint"`
	Outcome   EditOutcome `cbor:"2,keyasint"`
	Address   uint64      `cbor:"3,keyasint"`
	Old       uint8       `cbor:"4,keyasint"`
	New       uint8       `cbor:"5,keyasint,omitempty"`
	Attempt   int         `cbor:"6,keyasint,omitempty"`
	Error     string      `cbor:"7,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
