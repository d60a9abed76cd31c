package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter specifies criteria for filtering trace events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// SessionID filters by exact session ID match.
	SessionID string

	// Layer filters by layer.
	Layer *Layer

	// Category filters by event category.
	Category *Category

	// Op filters access events by direction. Non-access events never match.
	Op *Op

	// AddressMin and AddressMax bound access and edit addresses (inclusive).
	AddressMin *uint64
	AddressMax *uint64

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

// Matches returns true if the event matches all filter criteria.
func (f *Filter) Matches(event Event) bool {
	if f.SessionID != "" && event.SessionID != f.SessionID {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Op != nil && (event.Access == nil || event.Access.Op != *f.Op) {
		return false
	}
	if f.AddressMin != nil || f.AddressMax != nil {
		addr, ok := eventAddress(event)
		if !ok {
			return false
		}
		if f.AddressMin != nil && addr < *f.AddressMin {
			return false
		}
		if f.AddressMax != nil && addr > *f.AddressMax {
			return false
		}
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

func eventAddress(event Event) (uint64, bool) {
	switch {
	case event.Access != nil:
		return event.Access.Address, true
	case event.Edit != nil:
		return event.Edit.Address, true
	default:
		return 0, false
	}
}

// Reader reads trace events from a CBOR-encoded file.
// It provides an iterator interface for streaming large files.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader creates a Reader that reads all events from the specified trace file.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader that reads events matching the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next event that matches the filter.
// Returns io.EOF when no more events are available.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if err == io.EOF {
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

func hexAddr(addr uint64) string {
	return fmt.Sprintf("0x%X", addr)
}
