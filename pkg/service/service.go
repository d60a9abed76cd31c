package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/physmem-tools/physmem-go/pkg/address"
	"github.com/physmem-tools/physmem-go/pkg/edit"
	"github.com/physmem-tools/physmem-go/pkg/log"
	"github.com/physmem-tools/physmem-go/pkg/refresh"
	"github.com/physmem-tools/physmem-go/pkg/session"
	"github.com/physmem-tools/physmem-go/pkg/window"
)

// Service is the viewer backend.
type Service struct {
	mu sync.RWMutex

	// io serializes window passes and commits. Lock order: io, then mu.
	// The edit manager's lock is never acquired while mu is held.
	io sync.Mutex

	state    ServiceState
	app      AppState
	handlers []EventHandler

	session   *session.Session
	scheduler *refresh.Scheduler
	edits     *edit.Manager

	trace  log.Logger
	logger *slog.Logger
}

// New creates a service for dev. The device is not opened until Start.
func New(dev session.Device, cfg Config) (*Service, error) {
	if cfg.Length == 0 {
		cfg.Length = window.DefaultLength
	}
	if cfg.Length < 0 {
		return nil, fmt.Errorf("%w: window length %d", ErrInvalidConfig, cfg.Length)
	}
	if cfg.Policy == (refresh.Policy{}) {
		cfg.Policy = refresh.DefaultPolicy()
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Trace == nil {
		cfg.Trace = log.NoopLogger{}
	}

	sess := session.New(dev, session.Config{
		OpTimeout:  cfg.OpTimeout,
		Name:       cfg.DeviceName,
		Trace:      cfg.Trace,
		TraceReads: cfg.TraceReads,
		Logger:     cfg.Logger,
	})
	sched := refresh.NewScheduler(refresh.Config{
		Logger:    cfg.Logger,
		Trace:     cfg.Trace,
		SessionID: sess.ID(),
	})
	edits := edit.NewManager(edit.Config{
		Length:    cfg.Length,
		Suspender: sched,
		Logger:    cfg.Logger,
		Trace:     cfg.Trace,
		SessionID: sess.ID(),
	})

	s := &Service{
		state: StateIdle,
		app: AppState{
			AddressText: address.Format(cfg.Address),
			Base:        cfg.Address,
			Length:      cfg.Length,
			Policy:      cfg.Policy,
			Unconfirmed: make(map[uint64]uint8),
		},
		session:   sess,
		scheduler: sched,
		edits:     edits,
		trace:     cfg.Trace,
		logger:    cfg.Logger,
	}

	sess.OnStateChange(func(oldState, newState session.State) {
		s.emit(Event{Type: EventSessionStateChanged, OldState: oldState, NewState: newState})
	})
	edits.OnCommitted(s.recordWrite)

	return s, nil
}

// Session returns the underlying session.
func (s *Service) Session() *session.Session {
	return s.session
}

// Scheduler returns the refresh scheduler.
func (s *Service) Scheduler() *refresh.Scheduler {
	return s.scheduler
}

// State returns the service state.
func (s *Service) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnEvent registers a handler for service events.
func (s *Service) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start opens the session, reads the first window and starts the scheduler
// if auto-refresh is enabled. If the device cannot be opened the service
// still starts, so Open can be retried, and the open error is returned.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateStarting
	policy := s.app.Policy
	s.mu.Unlock()

	openErr := s.session.Open(ctx)
	if openErr == nil {
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warn("initial refresh incomplete", "err", err)
		}
	}

	if err := s.scheduler.Start(policy, s.tick); err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		s.session.Close()
		return err
	}

	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	s.logger.Info("service started", "base", address.Format(s.base()), "policy", policy.String())
	return openErr
}

// Stop stops the scheduler, discards a live edit and closes the session.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateStopping
	req := s.app.Edit
	s.mu.Unlock()

	s.scheduler.Stop()

	if req != nil {
		_ = s.CancelEdit()
	}

	err := s.session.Close()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()

	s.logger.Info("service stopped")
	return err
}

// Open reopens the session, typically after a fatal error, and refreshes.
func (s *Service) Open(ctx context.Context) error {
	if err := s.session.Open(ctx); err != nil {
		return err
	}
	if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, edit.ErrEditInProgress) {
		s.logger.Warn("refresh after open incomplete", "err", err)
	}
	return nil
}

// SetAddress parses text as the new window base and refreshes. A parse
// error leaves the state unchanged.
func (s *Service) SetAddress(ctx context.Context, text string) error {
	base, err := address.Parse(text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.app.Edit != nil {
		s.mu.Unlock()
		return edit.ErrEditInProgress
	}
	if base != s.app.Base {
		clear(s.app.Unconfirmed)
	}
	s.app.AddressText = text
	s.app.Base = base
	s.mu.Unlock()

	s.logger.Debug("window address set", "base", address.Format(base))
	_, err = s.Refresh(ctx)
	return err
}

// Refresh reads the window now. It is refused with edit.ErrEditInProgress
// while an edit is live. With the session not open it returns
// session.ErrNotConnected and keeps the previous window. Otherwise the
// returned window is stored and the error is the window's first byte
// error, if any.
func (s *Service) Refresh(ctx context.Context) (window.Window, error) {
	s.io.Lock()
	defer s.io.Unlock()
	return s.refreshLocked(ctx, log.TriggerManual)
}

// tick is the scheduled refresh. Errors are reported, never returned.
func (s *Service) tick(ctx context.Context) {
	s.io.Lock()
	defer s.io.Unlock()

	if _, err := s.refreshLocked(ctx, log.TriggerScheduled); err != nil {
		if errors.Is(err, edit.ErrEditInProgress) || ctx.Err() != nil {
			return
		}
		s.logger.Debug("scheduled refresh incomplete", "err", err)
	}
}

// refreshLocked runs one window pass. Callers hold io.
func (s *Service) refreshLocked(ctx context.Context, trigger log.RefreshTrigger) (window.Window, error) {
	s.mu.RLock()
	editing := s.app.Edit != nil
	base, length := s.app.Base, s.app.Length
	s.mu.RUnlock()

	if editing && trigger != log.TriggerEdit {
		return window.Window{}, edit.ErrEditInProgress
	}

	if !s.session.IsOpen() {
		err := session.ErrNotConnected
		s.reportRefreshError(trigger, err)
		return window.Window{}, err
	}

	start := time.Now()
	win := window.ReadWindow(ctx, s.session, base, length)
	elapsed := time.Since(start)

	// A scheduled pass cut short by Stop is discarded.
	if trigger == log.TriggerScheduled && ctx.Err() != nil {
		return win, ctx.Err()
	}

	mismatches := s.storeWindow(win)

	s.trace.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.session.ID(),
		Layer:     log.LayerService,
		Category:  log.CategoryRefresh,
		Device:    s.session.Name(),
		Refresh: &log.RefreshEvent{
			Trigger:  trigger,
			Base:     base,
			Length:   length,
			Failures: win.Failures,
			Duration: elapsed,
		},
	})

	shown := win.Clone()
	s.emit(Event{Type: EventWindowRefreshed, Trigger: trigger, Window: &shown})
	for _, ev := range mismatches {
		s.emit(ev)
	}

	if win.Err != nil {
		s.logger.Warn("window read incomplete", "trigger", trigger.String(), "base", address.Format(base),
			"failures", win.Failures, "err", win.Err)
		s.reportRefreshError(trigger, win.Err)
	}
	return win, win.Err
}

// storeWindow saves win and reconciles unconfirmed writes. It returns the
// mismatch events to emit.
func (s *Service) storeWindow(win window.Window) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The address may have moved while the pass ran.
	if win.Base != s.app.Base || win.Len() != s.app.Length {
		return nil
	}

	s.app.Window = win
	s.app.HasWindow = true

	var events []Event
	for addr, written := range s.app.Unconfirmed {
		i, ok := offset(win, addr)
		if !ok || !win.Valid[i] {
			continue
		}
		if observed := win.Data[i]; observed != written {
			s.logger.Warn("write not confirmed", "addr", address.Format(addr),
				"written", address.FormatByte(written), "read", address.FormatByte(observed))
			events = append(events, Event{
				Type:     EventWriteMismatch,
				Address:  addr,
				Written:  written,
				Observed: observed,
			})
		}
		delete(s.app.Unconfirmed, addr)
	}
	return events
}

func (s *Service) reportRefreshError(trigger log.RefreshTrigger, err error) {
	s.trace.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.session.ID(),
		Layer:     log.LayerService,
		Category:  log.CategoryError,
		Device:    s.session.Name(),
		Error: &log.ErrorEventData{
			Layer:   log.LayerService,
			Message: err.Error(),
			Context: trigger.String() + " refresh",
		},
	})
	s.emit(Event{Type: EventRefreshFailed, Trigger: trigger, Error: err})
}

// Policy returns the refresh policy.
func (s *Service) Policy() refresh.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app.Policy
}

// SetPolicy validates and applies p. A running scheduler is reconfigured
// at once.
func (s *Service) SetPolicy(p refresh.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.app.Policy = p
	running := s.state == StateRunning || s.state == StateStarting
	s.mu.Unlock()

	if running {
		if err := s.scheduler.Reconfigure(p); err != nil {
			return err
		}
	}
	s.logger.Debug("refresh policy changed", "policy", p.String())
	return nil
}

// SetAutoRefresh turns periodic refresh on or off.
func (s *Service) SetAutoRefresh(enabled bool) error {
	p := s.Policy()
	p.Enabled = enabled
	return s.SetPolicy(p)
}

// SetInterval changes the refresh interval.
func (s *Service) SetInterval(d time.Duration) error {
	p := s.Policy()
	p.Interval = d
	return s.SetPolicy(p)
}

// BeginEdit opens an edit of the cell at index in the current window. The
// prefill is the displayed value, which for an unconfirmed cell is the
// value last written.
func (s *Service) BeginEdit(index int) (*edit.Request, error) {
	view := s.Snapshot()

	var current uint8
	if index >= 0 && index < view.Window.Len() && view.Window.Valid[index] {
		current = view.Window.Data[index]
	}

	s.mu.RLock()
	base := s.app.Base
	s.mu.RUnlock()

	req, err := s.edits.Begin(base, index, current)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.app.Edit = req
	s.mu.Unlock()

	c := s.edits.Current()
	if c == nil {
		return nil, edit.ErrNotLive
	}
	s.emit(Event{Type: EventEditBegun, Address: c.Address, Edit: c})
	return c, nil
}

// SetEditValue validates text and stores it as the live edit's value.
func (s *Service) SetEditValue(text string) error {
	req, err := s.liveEdit()
	if err != nil {
		return err
	}
	return s.edits.SetValue(req, text)
}

// CommitEdit writes the live edit's value, then re-reads the window. A
// failed write keeps the edit live for a retry.
func (s *Service) CommitEdit(ctx context.Context) error {
	s.io.Lock()
	defer s.io.Unlock()

	req, err := s.liveEdit()
	if err != nil {
		return err
	}

	if err := s.edits.Commit(ctx, req, s.session); err != nil {
		if errors.Is(err, edit.ErrNoValue) || errors.Is(err, edit.ErrNotLive) || errors.Is(err, edit.ErrCommitting) {
			return err
		}
		ev := Event{Type: EventEditFailed, Address: req.Address, Error: err}
		if cur := s.edits.Current(); cur != nil {
			ev.Edit = cur
		}
		s.emit(ev)
		return err
	}

	if _, err := s.refreshLocked(ctx, log.TriggerEdit); err != nil {
		s.logger.Warn("confirmation read incomplete", "err", err)
	}
	return nil
}

// recordWrite runs from the edit manager after a successful commit.
func (s *Service) recordWrite(req edit.Request) {
	s.mu.Lock()
	if s.app.Edit != nil && s.app.Edit.ID == req.ID {
		s.app.Edit = nil
	}
	s.app.Unconfirmed[req.Address] = req.Value
	s.mu.Unlock()

	s.emit(Event{Type: EventEditCommitted, Address: req.Address, Written: req.Value, Edit: &req})
}

// CancelEdit discards the live edit.
func (s *Service) CancelEdit() error {
	req, err := s.liveEdit()
	if err != nil {
		return err
	}
	if err := s.edits.Cancel(req); err != nil {
		return err
	}

	s.mu.Lock()
	s.app.Edit = nil
	s.mu.Unlock()

	c := *req
	s.emit(Event{Type: EventEditCancelled, Address: c.Address, Edit: &c})
	return nil
}

func (s *Service) liveEdit() (*edit.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.app.Edit == nil {
		return nil, edit.ErrNotLive
	}
	return s.app.Edit, nil
}

// Snapshot returns a copy of the viewer state for display. It is safe to
// call while a commit or refresh is running.
func (s *Service) Snapshot() View {
	s.mu.RLock()

	v := View{
		AddressText: s.app.AddressText,
		HasWindow:   s.app.HasWindow,
		Policy:      s.app.Policy,
		Session:     s.session.State(),
		Marks:       make(map[int]window.Mark),
	}

	if s.app.HasWindow {
		v.Window = s.app.Window.Clone()
	} else {
		v.Window = window.Window{
			Base:  s.app.Base,
			Data:  make([]byte, s.app.Length),
			Valid: make([]bool, s.app.Length),
		}
	}

	for addr, written := range s.app.Unconfirmed {
		if i, ok := offset(v.Window, addr); ok {
			v.Window.Data[i] = written
			v.Window.Valid[i] = true
			v.Marks[i] = window.MarkUnconfirmed
		}
	}

	editing := s.app.Edit != nil
	s.mu.RUnlock()

	// The manager mutates the live request under its own lock, which is
	// never taken while mu is held.
	if editing {
		if c := s.edits.Current(); c != nil {
			v.Edit = c
			if i, ok := offset(v.Window, c.Address); ok {
				v.Marks[i] = window.MarkPending
			}
		}
	}
	return v
}

// App returns a copy of the application state.
func (s *Service) App() AppState {
	s.mu.RLock()
	a := s.app
	a.Window = s.app.Window.Clone()
	a.Unconfirmed = maps.Clone(s.app.Unconfirmed)
	s.mu.RUnlock()

	if a.Edit != nil {
		a.Edit = s.edits.Current()
	}
	return a
}

func (s *Service) base() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app.Base
}

func (s *Service) emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	s.mu.RLock()
	handlers := append([]EventHandler(nil), s.handlers...)
	s.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// offset returns the window index of addr.
func offset(win window.Window, addr uint64) (int, bool) {
	if addr < win.Base || addr-win.Base >= uint64(win.Len()) {
		return 0, false
	}
	return int(addr - win.Base), true
}
