// Package window reads a fixed-length run of bytes starting at a physical
// base address and renders it as a hex and ASCII dump.
//
// A window read never fails as a whole. Each byte carries its own validity
// flag; a failed byte reads as 0 with Valid[i] false, and the first error is
// kept in Window.Err. Bytes before a failure are unaffected. When the error
// means no further read can succeed (the session is closed or failed, or the
// context is done), the remaining bytes are marked invalid without touching
// the device.
package window
