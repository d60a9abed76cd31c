// Package log provides structured access tracing for physical-memory sessions.
//
// This package defines the Logger interface and Event types for capturing
// what a viewer did against the device: individual byte accesses, session
// state changes, refresh passes and edit transactions. It is separate from
// operational logging (slog) - the trace is a machine-readable record for
// diagnosing misbehaving hardware or drivers.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: trace to console via slog
//	cfg.Trace = log.NewSlogAdapter(slog.Default())
//
//	// For capture: write to binary file
//	cfg.Trace, _ = log.NewFileLogger("/tmp/physmem.ptrace")
//
//	// Both: use MultiLogger
//	cfg.Trace = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at three layers:
//   - Device: raw byte reads and writes (AccessEvent)
//   - Session: open/close/failure transitions (StateChangeEvent)
//   - Service: refresh passes and edit transactions (RefreshEvent, EditEvent)
//
// Per-byte read events are high volume (one per window byte per tick) and
// are only emitted when the session is configured to trace accesses. Writes
// are always traced.
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with the .ptrace
// extension. The physmem-log CLI provides viewing, statistics and export.
package log
