package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/physmem-tools/physmem-go/pkg/log"
)

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)

func createTestTraceFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ptrace")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

// sampleTrace is a short viewer session: open, one read, a refresh,
// an edit with its write, and a failed read.
func sampleTrace() []log.Event {
	const sess = "5f0c6d1e-7a51-4f7e-9f0e-0d6f1c2b3a4d"
	return []log.Event{
		{
			Timestamp: testTime, SessionID: sess, Layer: log.LayerSession, Category: log.CategoryState, Device: "sim",
			StateChange: &log.StateChangeEvent{Entity: log.StateEntitySession, OldState: "CLOSED", NewState: "OPEN"},
		},
		{
			Timestamp: testTime.Add(time.Millisecond), SessionID: sess, Layer: log.LayerDevice, Category: log.CategoryAccess,
			Access: &log.AccessEvent{Op: log.OpRead, Address: 0xFF00D400, Width: 1, Value: 0x00, Duration: 1500 * time.Nanosecond},
		},
		{
			Timestamp: testTime.Add(2 * time.Millisecond), SessionID: sess, Layer: log.LayerService, Category: log.CategoryRefresh,
			Refresh: &log.RefreshEvent{Trigger: log.TriggerManual, Base: 0xFF00D400, Length: 256, Duration: 3 * time.Millisecond},
		},
		{
			Timestamp: testTime.Add(time.Second), SessionID: sess, Layer: log.LayerService, Category: log.CategoryEdit,
			Edit: &log.EditEvent{RequestID: "cn5f0a1b2c3d4e5f6g7h", Outcome: log.EditCommitted, Address: 0xFF00D405, Old: 0x05, New: 0xAB, Attempt: 1},
		},
		{
			Timestamp: testTime.Add(time.Second), SessionID: sess, Layer: log.LayerDevice, Category: log.CategoryAccess,
			Access: &log.AccessEvent{Op: log.OpWrite, Address: 0xFF00D405, Width: 1, Value: 0xAB},
		},
		{
			Timestamp: testTime.Add(2 * time.Second), SessionID: sess, Layer: log.LayerDevice, Category: log.CategoryAccess,
			Access: &log.AccessEvent{Op: log.OpRead, Address: 0xFF00D500, Width: 1, Error: "address out of range"},
		},
		{
			Timestamp: testTime.Add(2 * time.Second), SessionID: sess, Layer: log.LayerService, Category: log.CategoryError,
			Error: &log.ErrorEventData{Layer: log.LayerService, Message: "address out of range", Context: "refresh"},
		},
	}
}
