package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger.
// Useful for development when you want to see accesses in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}

	switch {
	case event.Access != nil:
		attrs = append(attrs,
			slog.String("op", event.Access.Op.String()),
			slog.String("addr", hexAddr(event.Access.Address)),
			slog.Int("value", int(event.Access.Value)),
		)
		if event.Access.Error != "" {
			attrs = append(attrs, slog.String("err", event.Access.Error))
		}
		if event.Access.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", event.Access.Duration))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Refresh != nil:
		attrs = append(attrs,
			slog.String("trigger", event.Refresh.Trigger.String()),
			slog.String("base", hexAddr(event.Refresh.Base)),
			slog.Int("length", event.Refresh.Length),
			slog.Int("failures", event.Refresh.Failures),
			slog.Duration("duration", event.Refresh.Duration),
		)
	case event.Edit != nil:
		attrs = append(attrs,
			slog.String("request_id", event.Edit.RequestID),
			slog.String("outcome", event.Edit.Outcome.String()),
			slog.String("addr", hexAddr(event.Edit.Address)),
			slog.Int("old", int(event.Edit.Old)),
			slog.Int("new", int(event.Edit.New)),
		)
		if event.Edit.Error != "" {
			attrs = append(attrs, slog.String("err", event.Edit.Error))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
