package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/physmem-tools/physmem-go/pkg/log"
)

func TestCollectStats(t *testing.T) {
	path := createTestTraceFile(t, sampleTrace())

	stats, err := CollectStats(path)
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}

	if stats.TotalEvents != 7 {
		t.Errorf("TotalEvents = %d, want 7", stats.TotalEvents)
	}
	if stats.Reads != 2 || stats.Writes != 1 {
		t.Errorf("reads/writes = %d/%d, want 2/1", stats.Reads, stats.Writes)
	}
	if stats.FailedAccesses != 1 {
		t.Errorf("FailedAccesses = %d, want 1", stats.FailedAccesses)
	}
	if stats.Refreshes != 1 {
		t.Errorf("Refreshes = %d, want 1", stats.Refreshes)
	}
	if stats.EditsByOutcome[log.EditCommitted] != 1 {
		t.Errorf("committed edits = %d, want 1", stats.EditsByOutcome[log.EditCommitted])
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if len(stats.Sessions) != 1 {
		t.Fatalf("Sessions = %d, want 1", len(stats.Sessions))
	}
	for _, s := range stats.Sessions {
		if s.Device != "sim" || s.LastState != "OPEN" || s.Events != 7 {
			t.Errorf("unexpected session stats: %+v", s)
		}
	}
}

func TestRunStatsOutput(t *testing.T) {
	path := createTestTraceFile(t, sampleTrace())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Total Events: 7",
		"DEVICE:",
		"SESSION:",
		"SERVICE:",
		"ACCESS:",
		"READ:",
		"WRITE:",
		"FAILED:",
		"Refreshes: 1",
		"COMMITTED:",
		"Sessions: 1",
		"[5f0c6d1e] 7 events",
		"Device: sim",
		"Errors: 1",
		"Duration:   2s",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestRunStatsEmptyTrace(t *testing.T) {
	path := createTestTraceFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Total Events: 0") {
		t.Errorf("expected zero events, got: %s", output)
	}
	if strings.Contains(output, "Time Range") {
		t.Errorf("empty trace should not print a time range, got: %s", output)
	}
}
