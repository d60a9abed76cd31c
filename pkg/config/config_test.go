package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physmem-tools/physmem-go/pkg/address"
	"github.com/physmem-tools/physmem-go/pkg/refresh"
	"github.com/physmem-tools/physmem-go/pkg/simmem"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, KindDevMem, cfg.Device.Kind)
	assert.Equal(t, "/dev/mem", cfg.Device.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Device.OpTimeout)
	assert.Equal(t, Hex(0xFF00D400), cfg.Window.Address)
	assert.Equal(t, 256, cfg.Window.Length)

	p, err := cfg.RefreshPolicy()
	require.NoError(t, err)
	assert.Equal(t, refresh.DefaultPolicy(), p)

	// The default simulator covers the default window.
	mem, err := simmem.New(cfg.SimRegions()...)
	require.NoError(t, err)
	require.NoError(t, mem.Open())
	_, err = mem.Peek(uint64(DefaultAddress) + 0xFF)
	assert.NoError(t, err)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
device:
  kind: sim
  op_timeout: 1s
window:
  address: ff00d800
refresh:
  enabled: true
  interval_seconds: 0.5
trace:
  path: /tmp/x.ptrace
  accesses: true
sim:
  latency: 2ms
  regions:
    - {start: 1000, size: 256, pattern: fill, fill: 7}
    - {start: "2000", size: 16, read_only: true}
`))
	require.NoError(t, err)

	assert.Equal(t, KindSim, cfg.Device.Kind)
	assert.Equal(t, "/dev/mem", cfg.Device.Path)
	assert.Equal(t, time.Second, cfg.Device.OpTimeout)
	assert.Equal(t, Hex(0xFF00D800), cfg.Window.Address)
	assert.Equal(t, 256, cfg.Window.Length)
	assert.True(t, cfg.Trace.Accesses)
	assert.Equal(t, 2*time.Millisecond, cfg.Sim.Latency)

	p, err := cfg.RefreshPolicy()
	require.NoError(t, err)
	assert.Equal(t, refresh.Policy{Enabled: true, Interval: 500 * time.Millisecond}, p)

	want := []simmem.Region{
		{Start: 0x1000, Size: 256, Pattern: simmem.PatternFill, Fill: 7},
		{Start: 0x2000, Size: 16, ReadOnly: true},
	}
	if diff := cmp.Diff(want, cfg.SimRegions()); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "device: [unclosed"},
		{"kind", "device: {kind: mmap}"},
		{"address", "window: {address: 0xFF}"},
		{"length", "window: {length: 0}"},
		{"interval", "refresh: {interval_seconds: 9}"},
		{"timeout", "device: {op_timeout: -1s}"},
		{"overlap", "device: {kind: sim}\nsim: {regions: [{start: 0, size: 32}, {start: 10, size: 32}]}"},
		{"empty path", "device: {kind: devmem, path: ''}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var le *LoadError
			assert.True(t, errors.As(err, &le))
		})
	}
}

func TestParseBadAddressReportsFormat(t *testing.T) {
	_, err := Parse([]byte("window: {address: XYZ}"))
	assert.ErrorIs(t, err, address.ErrInvalidFormat)
}

func TestValidateKinds(t *testing.T) {
	cfg := Default()
	cfg.Device.Kind = "bogus"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Device.Kind = KindSim
	assert.NoError(t, cfg.Validate())

	cfg.Sim.Latency = -time.Second
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Load(path)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, path, le.File)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), path)
}

func TestLoadSetsFileOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: {length: -4}"), 0o644))

	_, err := Load(path)
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, path, le.File)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "physmem.yaml")

	cfg := Default()
	cfg.Window.Address = 0x10
	cfg.Trace.Path = "trace.ptrace"
	cfg.SetRefreshPolicy(refresh.Policy{Enabled: true, Interval: 1500 * time.Millisecond})

	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	// Only the config file is left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "physmem.yaml", entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `address: "10"`)
	assert.Contains(t, string(data), "op_timeout: 250ms")
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "physmem.yaml")

	cfg := Default()
	require.NoError(t, cfg.Save(path))

	cfg.Window.Length = 64
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, got.Window.Length)
}

func TestHexString(t *testing.T) {
	assert.Equal(t, "FF00D400", DefaultAddress.String())
}

func TestLoadErrorMessage(t *testing.T) {
	e := &LoadError{File: "a.yaml", Message: "failed", Cause: errors.New("boom")}
	assert.Equal(t, "a.yaml: failed: boom", e.Error())

	e = &LoadError{Message: "failed"}
	assert.Equal(t, "failed", e.Error())
}
