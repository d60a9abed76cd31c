// Package interactive provides the interactive command-line interface
// for the memory viewer.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/physmem-tools/physmem-go/pkg/address"
	"github.com/physmem-tools/physmem-go/pkg/config"
	"github.com/physmem-tools/physmem-go/pkg/edit"
	"github.com/physmem-tools/physmem-go/pkg/log"
	"github.com/physmem-tools/physmem-go/pkg/refresh"
	"github.com/physmem-tools/physmem-go/pkg/service"
	"github.com/physmem-tools/physmem-go/pkg/window"
)

// Options configures a Viewer.
type Options struct {
	// Config is the configuration the viewer was started with. The save
	// command writes it back with the current address and policy.
	Config *config.Config

	// ConfigPath is the default target of save.
	ConfigPath string

	// DimZeros renders zero bytes as "..".
	DimZeros bool
}

// Viewer handles interactive mode for physmem-view.
type Viewer struct {
	svc       *service.Service
	cfg       *config.Config
	cfgPath   string
	rl        *readline.Instance
	out       io.Writer
	formatter *window.Formatter

	// mu guards formatter and lastShow, which scheduled refreshes use
	// from the scheduler goroutine.
	mu       sync.Mutex
	lastShow window.Window
}

// New creates a viewer with a readline prompt. Call Attach before Run.
func New(opts Options) (*Viewer, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "physmem> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	v := newViewer(rl.Stdout(), opts)
	v.rl = rl
	return v, nil
}

func newViewer(out io.Writer, opts Options) *Viewer {
	f := window.NewFormatter()
	f.DimZeros = opts.DimZeros
	return &Viewer{
		cfg:       opts.Config,
		cfgPath:   opts.ConfigPath,
		out:       out,
		formatter: f,
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("addr"),
		readline.PcItem("refresh"),
		readline.PcItem("dump", readline.PcItem("zeros")),
		readline.PcItem("auto", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("interval"),
		readline.PcItem("edit"),
		readline.PcItem("set"),
		readline.PcItem("commit"),
		readline.PcItem("cancel"),
		readline.PcItem("open"),
		readline.PcItem("status"),
		readline.PcItem("save"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Attach binds the viewer to svc and subscribes to its events.
func (v *Viewer) Attach(svc *service.Service) {
	v.svc = svc
	svc.OnEvent(v.handleEvent)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (v *Viewer) Stdout() io.Writer {
	return v.out
}

// Run starts the interactive command loop.
func (v *Viewer) Run(ctx context.Context, cancel context.CancelFunc) {
	defer v.rl.Close()

	v.printHelp()
	v.printDump()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := v.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(v.out, "Exiting...")
			cancel()
			return
		}

		if v.Exec(ctx, line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns true when the user asked to quit.
func (v *Viewer) Exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		v.printHelp()

	case "addr", "a", "goto":
		v.cmdAddr(ctx, args)

	case "refresh", "r":
		v.cmdRefresh(ctx)

	case "dump", "d":
		v.cmdDump(args)

	case "auto":
		v.cmdAuto(args)

	case "interval":
		v.cmdInterval(args)

	case "edit", "e":
		v.cmdEdit(args)

	case "set":
		v.cmdSet(args)

	case "commit", "c":
		v.cmdCommit(ctx)

	case "cancel":
		v.cmdCancel()

	case "open":
		v.cmdOpen(ctx)

	case "status", "s":
		v.cmdStatus()

	case "save":
		v.cmdSave(args)

	case "quit", "exit", "q":
		fmt.Fprintln(v.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(v.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (v *Viewer) printHelp() {
	fmt.Fprintln(v.out, `
Physical Memory Viewer Commands:
  Window:
    addr <hex>          - Move the window to an address (e.g. FF00D400)
    refresh             - Read the window now
    dump [zeros]        - Print the last window (zeros: toggle dimmed zeros)
    auto [on|off]       - Turn auto-refresh on or off (no argument toggles)
    interval <seconds>  - Set the auto-refresh interval (0.1 - 5.0)

  Editing:
    edit <off> [val]    - Edit the byte at a hex window offset (or @address)
    set <val>           - Enter the new value for the open edit (00 - FF)
    commit              - Write the value and re-read the window
    cancel              - Discard the open edit

  Session:
    open                - Reopen the device after a failure
    status              - Show session, policy and edit state
    save [path]         - Save address and refresh settings to the config file

  General:
    help                - Show this help
    quit                - Exit viewer

  Marks: '*' after a byte flags the cell being edited or a write not yet
  confirmed by a read. '??' is a byte that could not be read.`)
}

func (v *Viewer) cmdAddr(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(v.out, "Usage: addr <hex>")
		return
	}

	err := v.svc.SetAddress(ctx, args[0])
	if v.reportRefresh(err) {
		v.printDump()
	}
}

func (v *Viewer) cmdRefresh(ctx context.Context) {
	_, err := v.svc.Refresh(ctx)
	if v.reportRefresh(err) {
		v.printDump()
	}
}

// reportRefresh prints err and reports whether the window changed and
// should be shown.
func (v *Viewer) reportRefresh(err error) bool {
	var perr *address.ParseError
	switch {
	case err == nil:
		return true
	case errors.As(err, &perr):
		fmt.Fprintf(v.out, "Invalid address: %v\n", err)
		return false
	case errors.Is(err, edit.ErrEditInProgress):
		fmt.Fprintln(v.out, "An edit is open: commit or cancel it first")
		return false
	case v.svc.Session().IsOpen():
		// The pass ran but some bytes failed.
		fmt.Fprintf(v.out, "Warning: window incomplete: %v\n", err)
		return true
	default:
		fmt.Fprintf(v.out, "Error: %v (use 'open' to retry)\n", err)
		return false
	}
}

func (v *Viewer) cmdDump(args []string) {
	if len(args) > 0 && strings.EqualFold(args[0], "zeros") {
		v.mu.Lock()
		v.formatter.DimZeros = !v.formatter.DimZeros
		v.mu.Unlock()
	}
	v.printDump()
}

func (v *Viewer) printDump() {
	view := v.svc.Snapshot()
	if !view.HasWindow {
		fmt.Fprintf(v.out, "No data at %s yet (session %s)\n", view.AddressText, view.Session)
		return
	}
	v.writeDump(view)
}

func (v *Viewer) writeDump(view service.View) {
	fmt.Fprintf(v.out, "%s  [%d bytes, auto %s]\n", view.AddressText, view.Window.Len(), view.Policy)
	v.mu.Lock()
	err := v.formatter.Dump(v.out, view.Window, view.Marks)
	v.mu.Unlock()
	if err != nil {
		fmt.Fprintf(v.out, "Error: %v\n", err)
	}
	if view.Edit != nil {
		fmt.Fprintf(v.out, "Editing %s: %s\n", address.Format(view.Edit.Address), editValue(view.Edit))
	}
}

func (v *Viewer) cmdAuto(args []string) {
	enabled := !v.svc.Policy().Enabled
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "on", "1", "true":
			enabled = true
		case "off", "0", "false":
			enabled = false
		default:
			fmt.Fprintln(v.out, "Usage: auto [on|off]")
			return
		}
	}

	if err := v.svc.SetAutoRefresh(enabled); err != nil {
		fmt.Fprintf(v.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(v.out, "Auto-refresh %s\n", v.svc.Policy())
}

func (v *Viewer) cmdInterval(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(v.out, "Interval: %.1fs\n", v.svc.Policy().Seconds())
		return
	}

	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(v.out, "Invalid interval: %s\n", args[0])
		return
	}
	p, err := refresh.PolicyFromSeconds(v.svc.Policy().Enabled, secs)
	if err != nil {
		fmt.Fprintf(v.out, "Error: %v\n", err)
		return
	}
	if err := v.svc.SetPolicy(p); err != nil {
		fmt.Fprintf(v.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(v.out, "Auto-refresh %s\n", p)
}

func (v *Viewer) cmdEdit(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(v.out, "Usage: edit <hex offset>|@<address> [value]")
		return
	}

	index, err := v.parseIndex(args[0])
	if err != nil {
		fmt.Fprintf(v.out, "Error: %v\n", err)
		return
	}

	req, err := v.svc.BeginEdit(index)
	if err != nil {
		fmt.Fprintf(v.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(v.out, "Editing %s (current %s)\n", address.Format(req.Address), req.Text)

	if len(args) > 1 {
		v.cmdSet(args[1:])
	}
}

// parseIndex resolves a hex window offset, or an absolute address when
// prefixed with '@'.
func (v *Viewer) parseIndex(arg string) (int, error) {
	if abs, ok := strings.CutPrefix(arg, "@"); ok {
		addr, err := address.Parse(abs)
		if err != nil {
			return 0, err
		}
		app := v.svc.App()
		if addr < app.Base || addr-app.Base >= uint64(app.Length) {
			return 0, fmt.Errorf("%w: %s is outside the window", edit.ErrIndexOutOfRange, address.Format(addr))
		}
		return int(addr - app.Base), nil
	}

	off, err := address.Parse(arg)
	if err != nil {
		return 0, err
	}
	if off > uint64(config.MaxLength) {
		return 0, fmt.Errorf("%w: offset %s", edit.ErrIndexOutOfRange, address.Format(off))
	}
	return int(off), nil
}

func (v *Viewer) cmdSet(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(v.out, "Usage: set <00-FF>")
		return
	}
	if err := v.svc.SetEditValue(args[0]); err != nil {
		fmt.Fprintf(v.out, "Invalid value: %v\n", err)
		return
	}
	fmt.Fprintf(v.out, "Value set to %s (type 'commit' to write)\n", strings.ToUpper(args[0]))
}

func (v *Viewer) cmdCommit(ctx context.Context) {
	view := v.svc.Snapshot()
	if view.Edit == nil {
		fmt.Fprintln(v.out, "No edit open")
		return
	}

	if err := v.svc.CommitEdit(ctx); err != nil {
		if errors.Is(err, edit.ErrNoValue) {
			fmt.Fprintln(v.out, "No value entered (use 'set <val>')")
			return
		}
		fmt.Fprintf(v.out, "Write failed: %v (edit still open; retry or cancel)\n", err)
		return
	}
	fmt.Fprintf(v.out, "Wrote %s to %s\n", address.FormatByte(view.Edit.Value), address.Format(view.Edit.Address))
	v.printDump()
}

func (v *Viewer) cmdCancel() {
	if err := v.svc.CancelEdit(); err != nil {
		fmt.Fprintf(v.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(v.out, "Edit cancelled")
}

func (v *Viewer) cmdOpen(ctx context.Context) {
	if err := v.svc.Open(ctx); err != nil {
		fmt.Fprintf(v.out, "Open failed: %v\n", err)
		return
	}
	fmt.Fprintln(v.out, "Session open")
	v.printDump()
}

func (v *Viewer) cmdStatus() {
	view := v.svc.Snapshot()
	app := v.svc.App()
	sess := v.svc.Session()
	stats := v.svc.Scheduler().Stats()

	fmt.Fprintln(v.out, "Viewer Status:")
	fmt.Fprintf(v.out, "  Device:       %s\n", sess.Name())
	fmt.Fprintf(v.out, "  Session:      %s (%s)\n", view.Session, sess.ID())
	if err := sess.LastError(); err != nil {
		fmt.Fprintf(v.out, "  Last error:   %v\n", err)
	}
	fmt.Fprintf(v.out, "  Window:       %s, %d bytes\n", view.AddressText, app.Length)
	if view.HasWindow {
		fmt.Fprintf(v.out, "  Last read:    %s (%d failed)\n", view.Window.ReadAt.Format("15:04:05.000"), view.Window.Failures)
	}
	fmt.Fprintf(v.out, "  Auto-refresh: %s\n", view.Policy)
	fmt.Fprintf(v.out, "  Ticks:        %d (%d skipped)\n", stats.Ticks, stats.Skipped)
	if view.Edit != nil {
		fmt.Fprintf(v.out, "  Edit:         %s %s %s\n", address.Format(view.Edit.Address), view.Edit.State, editValue(view.Edit))
	}
	if n := len(app.Unconfirmed); n > 0 {
		fmt.Fprintf(v.out, "  Unconfirmed:  %d write(s)\n", n)
	}
}

func (v *Viewer) cmdSave(args []string) {
	path := v.cfgPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		fmt.Fprintln(v.out, "Usage: save <path> (no config file given at startup)")
		return
	}

	cfg := config.Default()
	if v.cfg != nil {
		c := *v.cfg
		cfg = &c
	}
	app := v.svc.App()
	cfg.Window.Address = config.Hex(app.Base)
	cfg.Window.Length = app.Length
	cfg.SetRefreshPolicy(app.Policy)

	if err := cfg.Save(path); err != nil {
		fmt.Fprintf(v.out, "Save failed: %v\n", err)
		return
	}
	fmt.Fprintf(v.out, "Saved to %s\n", path)
}

// handleEvent shows what happens outside of a command: scheduled refreshes
// that change the window, session failures and unconfirmed writes.
func (v *Viewer) handleEvent(event service.Event) {
	switch event.Type {
	case service.EventWindowRefreshed:
		if event.Trigger != log.TriggerScheduled || event.Window == nil {
			return
		}
		v.mu.Lock()
		changed := !v.lastShow.Equal(*event.Window)
		v.lastShow = event.Window.Clone()
		v.mu.Unlock()
		if changed {
			v.writeDump(v.svc.Snapshot())
		}

	case service.EventSessionStateChanged:
		fmt.Fprintf(v.out, "[EVENT] Session %s -> %s\n", event.OldState, event.NewState)

	case service.EventWriteMismatch:
		fmt.Fprintf(v.out, "[EVENT] Write to %s not confirmed: wrote %s, read %s\n",
			address.Format(event.Address), address.FormatByte(event.Written), address.FormatByte(event.Observed))
	}
}

func editValue(req *edit.Request) string {
	old := address.FormatByte(req.Current)
	if !req.HasValue {
		return old + " -> (no value)"
	}
	s := old + " -> " + address.FormatByte(req.Value)
	if req.Err != nil {
		s += fmt.Sprintf(" [last attempt failed: %v]", req.Err)
	}
	return s
}
