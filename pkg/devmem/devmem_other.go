//go:build !linux

package devmem

import (
	"fmt"
	"runtime"

	"github.com/physmem-tools/physmem-go/pkg/session"
)

// Open implements session.Device. Only Linux is supported.
func (d *Device) Open() error {
	return fmt.Errorf("%w: %s not supported on %s", session.ErrDeviceUnavailable, d.path, runtime.GOOS)
}

// Close implements session.Device.
func (d *Device) Close() error {
	return nil
}

// Peek implements session.Device.
func (d *Device) Peek(addr uint64) (uint8, error) {
	return 0, fmt.Errorf("%w: %s not open", session.ErrIO, d.path)
}

// Poke implements session.Device.
func (d *Device) Poke(addr uint64, value uint8) error {
	return fmt.Errorf("%w: %s not open", session.ErrIO, d.path)
}
