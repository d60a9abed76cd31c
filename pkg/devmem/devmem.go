package devmem

import (
	"math"
	"sync"

	"github.com/physmem-tools/physmem-go/pkg/session"
)

// DefaultPath is the Linux physical memory device.
const DefaultPath = "/dev/mem"

// maxOffset is the largest file offset pread accepts.
const maxOffset = math.MaxInt64

// Config configures a Device.
type Config struct {
	// Path of the memory device. Empty means DefaultPath.
	Path string

	// ReadOnly opens the device without write access.
	ReadOnly bool
}

// Device is a physical-memory device file.
type Device struct {
	mu sync.Mutex

	path     string
	readOnly bool

	fd       int
	writable bool
}

// New creates a closed device for cfg.
func New(cfg Config) *Device {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	return &Device{
		path:     path,
		readOnly: cfg.ReadOnly,
		fd:       -1,
	}
}

// Path returns the device path.
func (d *Device) Path() string {
	return d.path
}

// Writable reports whether the open handle accepts writes.
func (d *Device) Writable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fd >= 0 && d.writable
}

// IsOpen reports whether the handle is held.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fd >= 0
}

var _ session.Device = (*Device)(nil)
