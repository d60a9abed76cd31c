package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"
)

// recordingLogger records events for testing
type recordingLogger struct {
	events []Event
}

func (m *recordingLogger) Log(event Event) {
	m.events = append(m.events, event)
}

func TestMultiLoggerCallsAll(t *testing.T) {
	l1 := &recordingLogger{}
	l2 := &recordingLogger{}

	multi := NewMultiLogger(l1, nil, l2)
	if multi.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (nil skipped)", multi.Len())
	}

	multi.Log(Event{Timestamp: time.Now(), SessionID: "sess-123"})

	for i, l := range []*recordingLogger{l1, l2} {
		if len(l.events) != 1 {
			t.Errorf("logger %d: got %d events, want 1", i, len(l.events))
			continue
		}
		if l.events[0].SessionID != "sess-123" {
			t.Errorf("logger %d: SessionID = %q", i, l.events[0].SessionID)
		}
	}
}

func TestMultiLoggerEmptyList(t *testing.T) {
	multi := NewMultiLogger()
	multi.Log(Event{Timestamp: time.Now()})
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(Event{})
}

func TestMultiLoggerFlattensAndDropsNoop(t *testing.T) {
	l1 := &recordingLogger{}
	l2 := &recordingLogger{}

	multi := NewMultiLogger(NewMultiLogger(l1, NoopLogger{}), NoopLogger{}, l2)
	if multi.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", multi.Len())
	}

	multi.Log(Event{SessionID: "s"})
	if len(l1.events) != 1 || len(l2.events) != 1 {
		t.Errorf("events = %d, %d; want 1 each", len(l1.events), len(l2.events))
	}
}

func TestMultiLoggerClosesFileSinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.ptrace")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	rec := &recordingLogger{}

	multi := NewMultiLogger(fl, rec)
	multi.Log(Event{Timestamp: time.Now(), SessionID: "closed-by-multi"})

	if err := multi.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := multi.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The file sink is closed: later events are dropped, not written.
	multi.Log(Event{Timestamp: time.Now(), SessionID: "after-close"})
	if len(rec.events) != 2 {
		t.Errorf("recording sink got %d events, want 2", len(rec.events))
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.SessionID != "closed-by-multi" {
		t.Errorf("SessionID = %q", ev.SessionID)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("second Next err = %v, want io.EOF", err)
	}
}
