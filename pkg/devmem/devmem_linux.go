//go:build linux

package devmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/physmem-tools/physmem-go/pkg/session"
)

// Open implements session.Device. Opening an open device is a no-op.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd >= 0 {
		return nil
	}

	writable := !d.readOnly
	flags := unix.O_RDWR | unix.O_SYNC | unix.O_CLOEXEC
	if d.readOnly {
		flags = unix.O_RDONLY | unix.O_SYNC | unix.O_CLOEXEC
	}

	fd, err := unix.Open(d.path, flags, 0)
	if err != nil && writable && deniedWrite(err) {
		writable = false
		fd, err = unix.Open(d.path, unix.O_RDONLY|unix.O_SYNC|unix.O_CLOEXEC, 0)
	}
	if err != nil {
		return openError(d.path, err)
	}

	d.fd = fd
	d.writable = writable
	return nil
}

// Close implements session.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	d.writable = false
	if err != nil {
		return fmt.Errorf("%w: close %s: %w", session.ErrIO, d.path, err)
	}
	return nil
}

// Peek implements session.Device.
func (d *Device) Peek(addr uint64) (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return 0, fmt.Errorf("%w: %s not open", session.ErrIO, d.path)
	}
	if addr > maxOffset {
		return 0, fmt.Errorf("%w: 0x%X", session.ErrAddressOutOfRange, addr)
	}

	var buf [1]byte
	for {
		n, err := unix.Pread(d.fd, buf[:], int64(addr))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, readError(addr, err)
		}
		if n != 1 {
			return 0, fmt.Errorf("%w: 0x%X: short read", session.ErrAddressOutOfRange, addr)
		}
		return buf[0], nil
	}
}

// Poke implements session.Device.
func (d *Device) Poke(addr uint64, value uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return fmt.Errorf("%w: %s not open", session.ErrIO, d.path)
	}
	if !d.writable {
		return fmt.Errorf("%w: %s opened read-only", session.ErrWriteProtected, d.path)
	}
	if addr > maxOffset {
		return fmt.Errorf("%w: 0x%X", session.ErrAddressOutOfRange, addr)
	}

	buf := [1]byte{value}
	for {
		n, err := unix.Pwrite(d.fd, buf[:], int64(addr))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return writeError(addr, err)
		}
		if n != 1 {
			return fmt.Errorf("%w: 0x%X: short write", session.ErrIO, addr)
		}
		return nil
	}
}

func deniedWrite(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EROFS)
}

func openError(path string, err error) error {
	switch {
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: open %s: %w", session.ErrPermissionDenied, path, err)
	default:
		// ENOENT, ENODEV, ENXIO and anything else unexpected.
		return fmt.Errorf("%w: open %s: %w", session.ErrDeviceUnavailable, path, err)
	}
}

func readError(addr uint64, err error) error {
	switch {
	case errors.Is(err, unix.EFAULT), errors.Is(err, unix.EINVAL),
		errors.Is(err, unix.ENXIO), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: 0x%X: %w", session.ErrAddressOutOfRange, addr, err)
	default:
		return fmt.Errorf("%w: read 0x%X: %w", session.ErrIO, addr, err)
	}
}

func writeError(addr uint64, err error) error {
	switch {
	case errors.Is(err, unix.EFAULT), errors.Is(err, unix.EINVAL), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%w: 0x%X: %w", session.ErrAddressOutOfRange, addr, err)
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EROFS), errors.Is(err, unix.EBADF):
		return fmt.Errorf("%w: 0x%X: %w", session.ErrWriteProtected, addr, err)
	default:
		return fmt.Errorf("%w: write 0x%X: %w", session.ErrIO, addr, err)
	}
}
