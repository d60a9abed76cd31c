package interactive

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physmem-tools/physmem-go/pkg/config"
	"github.com/physmem-tools/physmem-go/pkg/log"
	"github.com/physmem-tools/physmem-go/pkg/service"
	"github.com/physmem-tools/physmem-go/pkg/session"
	"github.com/physmem-tools/physmem-go/pkg/simmem"
)

const testBase = 0xFF00D400

type fixture struct {
	v   *Viewer
	svc *service.Service
	mem *simmem.Memory
	out *bytes.Buffer
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	mem := simmem.MustNew(
		simmem.Region{Start: 0xFF00D000, Size: 0x1000, Pattern: simmem.PatternAddress},
		simmem.Region{Start: 0xFF00E000, Size: 0x100, ReadOnly: true, Pattern: simmem.PatternFill, Fill: 0xA5},
	)

	cfg := service.DefaultConfig()
	cfg.Address = testBase
	cfg.Length = 32
	cfg.DeviceName = "sim"
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := service.New(mem, cfg)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop() })

	out := &bytes.Buffer{}
	v := newViewer(out, opts)
	v.Attach(svc)
	return &fixture{v: v, svc: svc, mem: mem, out: out}
}

// run executes line and returns what it printed.
func (f *fixture) run(t *testing.T, line string) string {
	t.Helper()
	f.out.Reset()
	assert.False(t, f.v.Exec(context.Background(), line), "unexpected quit on %q", line)
	return f.out.String()
}

func TestDumpShowsWindow(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "dump")
	assert.Contains(t, out, "FF00D400  [32 bytes, auto off 1s]")
	assert.Contains(t, out, "FF00D400  00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F  |................|")
	assert.Contains(t, out, "FF00D410  10 11 12 13")
}

func TestDumpToggleZeros(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "dump zeros")
	assert.Contains(t, out, "FF00D400  .. 01 02")

	out = f.run(t, "dump zeros")
	assert.Contains(t, out, "FF00D400  00 01 02")
}

func TestAddrMovesWindow(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "addr ff00d440")
	assert.Contains(t, out, "FF00D440  40 41 42 43")
	assert.Equal(t, uint64(0xFF00D440), f.svc.App().Base)
}

func TestAddrInvalid(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "addr 0xFF00")
	assert.Contains(t, out, "Invalid address")
	assert.Equal(t, uint64(testBase), f.svc.App().Base)

	out = f.run(t, "addr")
	assert.Contains(t, out, "Usage: addr")
}

func TestAddrPartlyUnmapped(t *testing.T) {
	f := newFixture(t, Options{})

	// The last 16 bytes fall past the end of the simulated regions.
	out := f.run(t, "addr FF00E0F0")
	assert.Contains(t, out, "Warning: window incomplete")
	assert.Contains(t, out, "FF00E0F0  A5 A5")
	assert.Contains(t, out, "FF00E100  ?? ??")
}

func TestEditCommitScenario(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "edit 5")
	assert.Contains(t, out, "Editing FF00D405 (current 05)")

	out = f.run(t, "dump")
	assert.Contains(t, out, "04 05*06")
	assert.Contains(t, out, "Editing FF00D405: 05 -> (no value)")

	out = f.run(t, "set ab")
	assert.Contains(t, out, "Value set to AB")

	out = f.run(t, "commit")
	assert.Contains(t, out, "Wrote AB to FF00D405")
	assert.Contains(t, out, "04 AB 06")
	assert.Nil(t, f.svc.Snapshot().Edit)

	v, err := f.mem.Peek(0xFF00D405)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), v)
}

func TestEditByAddressWithValue(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "edit @FF00D410 7f")
	assert.Contains(t, out, "Editing FF00D410 (current 10)")
	assert.Contains(t, out, "Value set to 7F")

	out = f.run(t, "edit @FF00D500")
	assert.Contains(t, out, "outside the window")
}

func TestEditErrors(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "edit 20")
	assert.Contains(t, out, "Error:")

	out = f.run(t, "commit")
	assert.Contains(t, out, "No edit open")

	f.run(t, "edit 1")
	out = f.run(t, "set 1FF")
	assert.Contains(t, out, "Invalid value")

	out = f.run(t, "commit")
	assert.Contains(t, out, "No value entered")

	out = f.run(t, "refresh")
	assert.Contains(t, out, "An edit is open")

	out = f.run(t, "cancel")
	assert.Contains(t, out, "Edit cancelled")

	out = f.run(t, "cancel")
	assert.Contains(t, out, "Error:")
}

func TestCommitFailureKeepsEditOpen(t *testing.T) {
	f := newFixture(t, Options{})
	f.mem.FailWrite(0xFF00D403, session.ErrWriteProtected)

	f.run(t, "edit 3 99")
	out := f.run(t, "commit")
	assert.Contains(t, out, "Write failed")
	assert.Contains(t, out, "write protected")

	out = f.run(t, "status")
	assert.Contains(t, out, "FF00D403 FAILED 03 -> 99 [last attempt failed")

	f.mem.FailWrite(0xFF00D403, nil)
	out = f.run(t, "commit")
	assert.Contains(t, out, "Wrote 99 to FF00D403")
}

func TestAutoAndInterval(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "interval 0.5")
	assert.Contains(t, out, "Auto-refresh off 500ms")

	out = f.run(t, "auto on")
	assert.Contains(t, out, "Auto-refresh on 500ms")
	assert.True(t, f.svc.Scheduler().Running())

	out = f.run(t, "auto")
	assert.Contains(t, out, "Auto-refresh off 500ms")
	assert.False(t, f.svc.Scheduler().Running())

	out = f.run(t, "interval 9")
	assert.Contains(t, out, "Error:")

	out = f.run(t, "interval fast")
	assert.Contains(t, out, "Invalid interval")

	out = f.run(t, "auto maybe")
	assert.Contains(t, out, "Usage: auto")
}

func TestOpenAfterFailure(t *testing.T) {
	f := newFixture(t, Options{})

	f.mem.FailRead(testBase, session.ErrDeviceUnavailable)
	out := f.run(t, "refresh")
	assert.Contains(t, out, "use 'open' to retry")
	assert.Contains(t, out, "[EVENT] Session OPEN -> FAILED")

	out = f.run(t, "refresh")
	assert.Contains(t, out, "Error:")

	f.mem.FailRead(testBase, nil)
	out = f.run(t, "open")
	assert.Contains(t, out, "Session open")
	assert.Contains(t, out, "FF00D400  00 01")
}

func TestStatus(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "status")
	assert.Contains(t, out, "Device:       sim")
	assert.Contains(t, out, "Session:      OPEN")
	assert.Contains(t, out, "Window:       FF00D400, 32 bytes")
	assert.Contains(t, out, "Auto-refresh: off 1s")
}

func TestSave(t *testing.T) {
	f := newFixture(t, Options{Config: config.Default()})
	path := filepath.Join(t.TempDir(), "viewer.yaml")

	out := f.run(t, "save")
	assert.Contains(t, out, "Usage: save")

	f.run(t, "addr FF00D480")
	f.run(t, "interval 2.5")
	out = f.run(t, "save "+path)
	assert.Contains(t, out, "Saved to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Hex(0xFF00D480), cfg.Window.Address)
	assert.Equal(t, 32, cfg.Window.Length)
	assert.InDelta(t, 2.5, cfg.Refresh.IntervalSeconds, 1e-9)
}

func TestScheduledRefreshPrintsOnlyChanges(t *testing.T) {
	f := newFixture(t, Options{})
	win := f.svc.Snapshot().Window

	f.out.Reset()
	f.v.handleEvent(service.Event{Type: service.EventWindowRefreshed, Trigger: log.TriggerScheduled, Window: &win})
	assert.Contains(t, f.out.String(), "FF00D400  00 01")

	f.out.Reset()
	f.v.handleEvent(service.Event{Type: service.EventWindowRefreshed, Trigger: log.TriggerScheduled, Window: &win})
	assert.Empty(t, f.out.String())

	f.out.Reset()
	f.v.handleEvent(service.Event{Type: service.EventWindowRefreshed, Trigger: log.TriggerManual, Window: &win})
	assert.Empty(t, f.out.String())
}

func TestMismatchEvent(t *testing.T) {
	f := newFixture(t, Options{})

	f.out.Reset()
	f.v.handleEvent(service.Event{Type: service.EventWriteMismatch, Address: 0xFF00D405, Written: 0xAB, Observed: 0x05})
	assert.Equal(t, "[EVENT] Write to FF00D405 not confirmed: wrote AB, read 05\n", f.out.String())
}

func TestQuitAndUnknown(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "frobnicate")
	assert.Contains(t, out, "Unknown command: frobnicate")

	assert.False(t, f.v.Exec(context.Background(), "   "))
	assert.True(t, f.v.Exec(context.Background(), "quit"))
	assert.True(t, f.v.Exec(context.Background(), "Q"))
}

func TestHelpListsCommands(t *testing.T) {
	f := newFixture(t, Options{})

	out := f.run(t, "help")
	for _, cmd := range []string{"addr", "refresh", "dump", "auto", "interval", "edit", "set", "commit", "cancel", "open", "status", "save", "quit"} {
		assert.True(t, strings.Contains(out, "    "+cmd), "help is missing %s", cmd)
	}
}

func TestParseIndex(t *testing.T) {
	f := newFixture(t, Options{})

	i, err := f.v.parseIndex("1f")
	require.NoError(t, err)
	assert.Equal(t, 31, i)

	i, err = f.v.parseIndex("@FF00D402")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = f.v.parseIndex("@FF00D3FF")
	assert.Error(t, err)

	_, err = f.v.parseIndex("FFFFFFFF")
	assert.Error(t, err)
}
