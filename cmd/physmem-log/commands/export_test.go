package commands

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/physmem-tools/physmem-go/pkg/log"
)

func TestExportToJSONL(t *testing.T) {
	path := createTestTraceFile(t, sampleTrace())

	outPath := filepath.Join(t.TempDir(), "out.jsonl")
	if err := RunExport(path, "jsonl", outPath, log.Filter{}); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}

	var event log.Event
	if err := json.Unmarshal([]byte(lines[3]), &event); err != nil {
		t.Fatalf("line 4 is not valid JSON: %v", err)
	}
	if event.Edit == nil || event.Edit.Address != 0xFF00D405 || event.Edit.New != 0xAB {
		t.Errorf("unexpected edit event: %+v", event.Edit)
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestTraceFile(t, sampleTrace())

	outPath := filepath.Join(t.TempDir(), "out.csv")
	cat := log.CategoryAccess
	if err := RunExport(path, "csv", outPath, log.Filter{Category: &cat}); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}

	// Header plus three accesses.
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("unexpected header: %v", records[0])
	}

	write := records[2]
	if write[4] != "write" || write[5] != "FF00D405" || write[6] != "AB" {
		t.Errorf("unexpected write row: %v", write)
	}

	failed := records[3]
	if failed[6] != "" || failed[7] != "address out of range" {
		t.Errorf("unexpected failed read row: %v", failed)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestTraceFile(t, sampleTrace())

	err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out.xml"), log.Filter{})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("unexpected error: %v", err)
	}
}
