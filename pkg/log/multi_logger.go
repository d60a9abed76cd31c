package log

import (
	"errors"
	"io"
)

// MultiLogger fans trace events out to several sinks, typically a
// FileLogger and a SlogAdapter. Nested MultiLoggers are flattened and
// NoopLoggers dropped, so Len counts the sinks that record.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger over loggers. Nil entries are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		m.add(l)
	}
	return m
}

func (m *MultiLogger) add(l Logger) {
	switch v := l.(type) {
	case nil, NoopLogger, *NoopLogger:
	case *MultiLogger:
		if v != nil {
			m.loggers = append(m.loggers, v.loggers...)
		}
	default:
		m.loggers = append(m.loggers, l)
	}
}

// Log sends the event to every sink in order.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Len returns the number of sinks.
func (m *MultiLogger) Len() int {
	return len(m.loggers)
}

// Flush flushes every sink that buffers, such as FileLogger.
func (m *MultiLogger) Flush() error {
	var errs []error
	for _, l := range m.loggers {
		if f, ok := l.(interface{ Flush() error }); ok {
			errs = append(errs, f.Flush())
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds a resource. All sinks are closed even
// if one fails.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if c, ok := l.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

var (
	_ Logger    = (*MultiLogger)(nil)
	_ io.Closer = (*MultiLogger)(nil)
)
