// Package session manages the privileged handle to a physical-memory device.
//
// A Session wraps a platform Device (see package devmem for /dev/mem and
// package simmem for the simulator) and adds:
//   - Connection state tracking (Closed, Open, Failed)
//   - A bounded timeout on every device call
//   - Serialization: at most one device call is in flight
//   - Error classification into a fixed taxonomy
//   - Access tracing through package log
//
// # State Machine
//
//	Closed --Open ok----> Open
//	Closed --Open fail--> Failed
//	Open   --fatal err--> Failed   (PermissionDenied, DeviceUnavailable)
//	any    --Close------> Closed
//
// Open is idempotent. Reads and writes on a Closed or Failed session fail
// with ErrNotConnected without touching the device. A Failed session needs
// an explicit Open; it is never reopened behind the caller's back.
//
// # Timeouts
//
// Each call is bounded by Config.OpTimeout and by the caller's context. A
// call that does not return in time yields ErrTimeout. The stuck call keeps
// the device slot until it returns, so later calls also time out instead of
// piling up on a wedged handle.
package session
