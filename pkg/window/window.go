package window

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/physmem-tools/physmem-go/pkg/session"
)

// DefaultLength is the number of bytes in a window.
const DefaultLength = 256

// ByteReader reads a single byte of physical memory.
// *session.Session implements it.
type ByteReader interface {
	ReadByteAt(ctx context.Context, addr uint64) (uint8, error)
}

// Window is the result of one window read.
type Window struct {
	// Base is the address of Data[0].
	Base uint64

	// Data holds one byte per offset. Invalid bytes are 0.
	Data []byte

	// Valid reports, per offset, whether the byte was read.
	Valid []bool

	// ReadAt is when the read started.
	ReadAt time.Time

	// Err is the first error encountered, or nil.
	Err error

	// Failures counts invalid bytes.
	Failures int
}

// Len returns the number of bytes in the window.
func (w Window) Len() int {
	return len(w.Data)
}

// Address returns the physical address of offset i.
func (w Window) Address(i int) uint64 {
	return w.Base + uint64(i)
}

// IsZero reports whether offset i was read and holds 0.
func (w Window) IsZero(i int) bool {
	return i >= 0 && i < len(w.Data) && w.Valid[i] && w.Data[i] == 0
}

// Complete reports whether every byte was read.
func (w Window) Complete() bool {
	return w.Failures == 0
}

// Equal reports whether both windows cover the same range with the same
// bytes and validity. ReadAt and Err are ignored.
func (w Window) Equal(other Window) bool {
	return w.Base == other.Base &&
		bytes.Equal(w.Data, other.Data) &&
		slices.Equal(w.Valid, other.Valid)
}

// Clone returns a deep copy of w.
func (w Window) Clone() Window {
	c := w
	c.Data = slices.Clone(w.Data)
	c.Valid = slices.Clone(w.Valid)
	return c
}

// ReadWindow reads length bytes starting at base, one ReadByteAt call per
// byte in ascending order.
func ReadWindow(ctx context.Context, src ByteReader, base uint64, length int) Window {
	if length < 0 {
		length = 0
	}

	win := Window{
		Base:   base,
		Data:   make([]byte, length),
		Valid:  make([]bool, length),
		ReadAt: time.Now(),
	}

	for i := 0; i < length; i++ {
		if uint64(i) > ^uint64(0)-base {
			win.fail(i, fmt.Errorf("%w: 0x%X+%d passes the end of the address space",
				session.ErrAddressOutOfRange, base, i))
			continue
		}

		if err := ctx.Err(); err != nil {
			win.failRest(i, err)
			break
		}

		v, err := src.ReadByteAt(ctx, base+uint64(i))
		if err != nil {
			if stopsWindow(err) {
				win.failRest(i, err)
				break
			}
			win.fail(i, err)
			continue
		}
		win.Data[i] = v
		win.Valid[i] = true
	}

	return win
}

func (w *Window) fail(i int, err error) {
	w.Data[i] = 0
	w.Valid[i] = false
	w.Failures++
	if w.Err == nil {
		w.Err = err
	}
}

func (w *Window) failRest(from int, err error) {
	for i := from; i < len(w.Data); i++ {
		w.fail(i, err)
	}
}

// stopsWindow reports whether err means later reads in the same pass
// cannot succeed. A timed-out call may still hold the device, so every
// later read would wait out its own timeout.
func stopsWindow(err error) bool {
	return session.IsFatal(err) ||
		errors.Is(err, session.ErrNotConnected) ||
		errors.Is(err, session.ErrTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
