package simmem

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/physmem-tools/physmem-go/pkg/session"
)

// Pattern selects how untouched bytes of a region read.
type Pattern string

const (
	PatternZero    Pattern = "zero"
	PatternFill    Pattern = "fill"
	PatternAddress Pattern = "addr"
)

// ErrInvalidRegion is returned for empty or overlapping regions.
var ErrInvalidRegion = errors.New("invalid region")

// Region is a contiguous simulated range.
type Region struct {
	Start    uint64
	Size     uint64
	ReadOnly bool
	Pattern  Pattern
	Fill     uint8
}

// contains reports whether addr falls inside the region.
func (r Region) contains(addr uint64) bool {
	return addr >= r.Start && addr-r.Start < r.Size
}

func (r Region) overlaps(o Region) bool {
	return r.Start <= o.Start+o.Size-1 && o.Start <= r.Start+r.Size-1
}

func (r Region) initial(addr uint64) uint8 {
	switch r.Pattern {
	case PatternFill:
		return r.Fill
	case PatternAddress:
		return uint8(addr)
	default:
		return 0
	}
}

// Memory is a simulated device. It is safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	regions []Region
	overlay map[uint64]uint8

	open    bool
	openErr error

	readErrs  map[uint64]error
	writeErrs map[uint64]error
	latency   time.Duration

	reads  int
	writes int
}

// New creates a simulator with the given regions.
func New(regions ...Region) (*Memory, error) {
	for i, r := range regions {
		if r.Size == 0 || r.Start+r.Size-1 < r.Start {
			return nil, fmt.Errorf("%w: region %d at 0x%X", ErrInvalidRegion, i, r.Start)
		}
		switch r.Pattern {
		case "", PatternZero, PatternFill, PatternAddress:
		default:
			return nil, fmt.Errorf("%w: region %d pattern %q", ErrInvalidRegion, i, r.Pattern)
		}
		for j := 0; j < i; j++ {
			if r.overlaps(regions[j]) {
				return nil, fmt.Errorf("%w: region %d overlaps region %d", ErrInvalidRegion, i, j)
			}
		}
	}

	return &Memory{
		regions:   append([]Region(nil), regions...),
		overlay:   make(map[uint64]uint8),
		readErrs:  make(map[uint64]error),
		writeErrs: make(map[uint64]error),
	}, nil
}

// MustNew is New for fixed test layouts. It panics on invalid regions.
func MustNew(regions ...Region) *Memory {
	m, err := New(regions...)
	if err != nil {
		panic(err)
	}
	return m
}

// Regions returns a copy of the region table.
func (m *Memory) Regions() []Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Region(nil), m.regions...)
}

// SetOpenError makes Open fail with err. Nil clears it.
func (m *Memory) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// FailRead makes reads at addr fail with err. Nil clears it.
func (m *Memory) FailRead(addr uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.readErrs, addr)
		return
	}
	m.readErrs[addr] = err
}

// FailWrite makes writes at addr fail with err. Nil clears it.
func (m *Memory) FailWrite(addr uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.writeErrs, addr)
		return
	}
	m.writeErrs[addr] = err
}

// ClearFaults removes all injected errors.
func (m *Memory) ClearFaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = nil
	m.readErrs = make(map[uint64]error)
	m.writeErrs = make(map[uint64]error)
}

// SetLatency delays every Peek and Poke by d.
func (m *Memory) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Load copies data into memory starting at addr, bypassing read-only
// protection. Every byte must fall inside a region.
func (m *Memory) Load(addr uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, b := range data {
		a := addr + uint64(i)
		if _, ok := m.region(a); !ok {
			return fmt.Errorf("%w: 0x%X", session.ErrAddressOutOfRange, a)
		}
		m.overlay[a] = b
	}
	return nil
}

// Stats returns the number of device reads and writes served.
func (m *Memory) Stats() (reads, writes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads, m.writes
}

// IsOpen reports whether the handle is held.
func (m *Memory) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Open implements session.Device.
func (m *Memory) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openErr != nil {
		return m.openErr
	}
	m.open = true
	return nil
}

// Close implements session.Device.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

// Peek implements session.Device.
func (m *Memory) Peek(addr uint64) (uint8, error) {
	m.sleep()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return 0, fmt.Errorf("%w: simulator closed", session.ErrIO)
	}
	if err := m.readErrs[addr]; err != nil {
		return 0, err
	}
	r, ok := m.region(addr)
	if !ok {
		return 0, fmt.Errorf("%w: 0x%X", session.ErrAddressOutOfRange, addr)
	}

	m.reads++
	if v, ok := m.overlay[addr]; ok {
		return v, nil
	}
	return r.initial(addr), nil
}

// Poke implements session.Device.
func (m *Memory) Poke(addr uint64, value uint8) error {
	m.sleep()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return fmt.Errorf("%w: simulator closed", session.ErrIO)
	}
	if err := m.writeErrs[addr]; err != nil {
		return err
	}
	r, ok := m.region(addr)
	if !ok {
		return fmt.Errorf("%w: 0x%X", session.ErrAddressOutOfRange, addr)
	}
	if r.ReadOnly {
		return fmt.Errorf("%w: 0x%X", session.ErrWriteProtected, addr)
	}

	m.writes++
	m.overlay[addr] = value
	return nil
}

func (m *Memory) sleep() {
	m.mu.Lock()
	d := m.latency
	m.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
}

func (m *Memory) region(addr uint64) (Region, bool) {
	for _, r := range m.regions {
		if r.contains(addr) {
			return r, true
		}
	}
	return Region{}, false
}

// Compile-time interface satisfaction check.
var _ session.Device = (*Memory)(nil)
