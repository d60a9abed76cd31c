package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/physmem-tools/physmem-go/pkg/address"
	"github.com/physmem-tools/physmem-go/pkg/log"
)

// RunExport exports the trace file to the specified format.
func RunExport(path, format, output string, filter log.Filter) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

var csvHeader = []string{"timestamp", "session_id", "layer", "category", "type", "address", "value", "error"}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(event log.Event) []string {
	var addr, value, errText string
	eventType := "unknown"
	switch {
	case event.Access != nil:
		eventType = strings.ToLower(event.Access.Op.String())
		addr = address.Format(event.Access.Address)
		if event.Access.Error == "" {
			value = address.FormatByte(event.Access.Value)
		}
		errText = event.Access.Error
	case event.StateChange != nil:
		eventType = "state"
		value = event.StateChange.NewState
	case event.Refresh != nil:
		eventType = "refresh"
		addr = address.Format(event.Refresh.Base)
		value = strconv.Itoa(event.Refresh.Failures)
	case event.Edit != nil:
		eventType = "edit_" + strings.ToLower(event.Edit.Outcome.String())
		addr = address.Format(event.Edit.Address)
		value = address.FormatByte(event.Edit.New)
		errText = event.Edit.Error
	case event.Error != nil:
		eventType = "error"
		errText = event.Error.Message
	}

	return []string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.SessionID,
		event.Layer.String(),
		event.Category.String(),
		eventType,
		addr,
		value,
		errText,
	}
}
