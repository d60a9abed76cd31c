package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/physmem-tools/physmem-go/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	Reads            int
	Writes           int
	FailedAccesses   int
	Refreshes        int
	EditsByOutcome   map[log.EditOutcome]int
	Sessions         map[string]*SessionStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Device    string
	LastState string
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

// CollectStats reads the whole trace file and aggregates it.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		EditsByOutcome:   make(map[log.EditOutcome]int),
		Sessions:         make(map[string]*SessionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if event.Device != "" && sess.Device == "" {
		sess.Device = event.Device
	}

	switch {
	case event.Access != nil:
		if event.Access.Op == log.OpWrite {
			s.Writes++
		} else {
			s.Reads++
		}
		if event.Access.Error != "" {
			s.FailedAccesses++
		}
	case event.StateChange != nil:
		if event.StateChange.Entity == log.StateEntitySession {
			sess.LastState = event.StateChange.NewState
		}
	case event.Refresh != nil:
		s.Refreshes++
	case event.Edit != nil:
		s.EditsByOutcome[event.Edit.Outcome]++
	case event.Error != nil:
		s.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Physical Memory Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerDevice, log.LayerSession, log.LayerService} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryAccess, log.CategoryState, log.CategoryRefresh, log.CategoryEdit, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if stats.Reads+stats.Writes > 0 {
		fmt.Fprintln(w, "Accesses:")
		fmt.Fprintf(w, "  %-12s %d\n", "READ:", stats.Reads)
		fmt.Fprintf(w, "  %-12s %d\n", "WRITE:", stats.Writes)
		if stats.FailedAccesses > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", "FAILED:", stats.FailedAccesses)
		}
		fmt.Fprintln(w)
	}

	if stats.Refreshes > 0 {
		fmt.Fprintf(w, "Refreshes: %d\n", stats.Refreshes)
		fmt.Fprintln(w)
	}

	if len(stats.EditsByOutcome) > 0 {
		fmt.Fprintln(w, "Edits:")
		for _, o := range []log.EditOutcome{log.EditBegun, log.EditCommitted, log.EditFailed, log.EditCancelled} {
			if count := stats.EditsByOutcome[o]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", o.String()+":", count)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(s.id), s.stats.Events, duration)
			if s.stats.Device != "" {
				fmt.Fprintf(w, "           Device: %s\n", s.stats.Device)
			}
			if s.stats.LastState != "" {
				fmt.Fprintf(w, "           State: %s\n", s.stats.LastState)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
