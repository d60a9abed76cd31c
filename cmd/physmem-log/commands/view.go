// Package commands implements the physmem-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/physmem-tools/physmem-go/pkg/address"
	"github.com/physmem-tools/physmem-go/pkg/log"
)

// FilterOptions holds the textual filter flags shared by view, filter
// and export.
type FilterOptions struct {
	SessionID string
	Layer     string
	Category  string
	Op        string
	AddrMin   string
	AddrMax   string
	TimeStart string
	TimeEnd   string
}

// Build converts the options into a log.Filter.
func (o FilterOptions) Build() (log.Filter, error) {
	filter := log.Filter{SessionID: o.SessionID}

	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Layer = &l
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	if o.Op != "" {
		op, err := parseOp(o.Op)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Op = &op
	}
	if o.AddrMin != "" {
		a, err := address.Parse(o.AddrMin)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid addr-min: %w", err)
		}
		filter.AddressMin = &a
	}
	if o.AddrMax != "" {
		a, err := address.Parse(o.AddrMax)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid addr-max: %w", err)
		}
		filter.AddressMax = &a
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [sess:id] LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [sess:%s] %s %s\n", ts, shortenID(event.SessionID), event.Layer.String(), typeLabel(event))

	switch {
	case event.Access != nil:
		formatAccessDetails(w, event.Access)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Refresh != nil:
		formatRefreshDetails(w, event.Refresh)
	case event.Edit != nil:
		formatEditDetails(w, event.Edit)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// typeLabel names the payload carried by the event.
func typeLabel(event log.Event) string {
	switch {
	case event.Access != nil:
		return event.Access.Op.String()
	case event.StateChange != nil:
		return "State"
	case event.Refresh != nil:
		return "Refresh"
	case event.Edit != nil:
		return "Edit " + event.Edit.Outcome.String()
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatAccessDetails(w io.Writer, a *log.AccessEvent) {
	fmt.Fprintf(w, "  Address: 0x%X  Width: %d", a.Address, a.Width)
	if a.Error == "" {
		fmt.Fprintf(w, "  Value: %02X", a.Value)
	}
	fmt.Fprintln(w)
	if a.Duration > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(a.Duration))
	}
	if a.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", a.Error)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatRefreshDetails(w io.Writer, r *log.RefreshEvent) {
	fmt.Fprintf(w, "  Trigger: %s  Base: 0x%X  Length: %d\n", r.Trigger.String(), r.Base, r.Length)
	if r.Failures > 0 {
		fmt.Fprintf(w, "  Failures: %d\n", r.Failures)
	}
	if r.Duration > 0 {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(r.Duration))
	}
}

func formatEditDetails(w io.Writer, e *log.EditEvent) {
	fmt.Fprintf(w, "  Request: %s\n", e.RequestID)
	fmt.Fprintf(w, "  Address: 0x%X  %02X -> %02X", e.Address, e.Old, e.New)
	if e.Attempt > 0 {
		fmt.Fprintf(w, "  Attempt: %d", e.Attempt)
	}
	fmt.Fprintln(w)
	if e.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", e.Error)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "device":
		return log.LayerDevice, nil
	case "session":
		return log.LayerSession, nil
	case "service":
		return log.LayerService, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be device, session, or service)", s)
	}
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "access":
		return log.CategoryAccess, nil
	case "state":
		return log.CategoryState, nil
	case "refresh":
		return log.CategoryRefresh, nil
	case "edit":
		return log.CategoryEdit, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be access, state, refresh, edit, or error)", s)
	}
}

// parseOp parses an access op string (case-insensitive).
func parseOp(s string) (log.Op, error) {
	switch strings.ToLower(s) {
	case "read", "r":
		return log.OpRead, nil
	case "write", "w":
		return log.OpWrite, nil
	default:
		return 0, fmt.Errorf("invalid op: %s (must be read or write)", s)
	}
}

// RunView prints the events matching filter to output. A positive limit
// stops after that many events.
func RunView(path string, filter log.Filter, limit int, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	shown := 0
	for limit <= 0 || shown < limit {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
		shown++
	}
	return nil
}
