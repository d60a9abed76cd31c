package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/physmem-tools/physmem-go/pkg/address"
	"github.com/physmem-tools/physmem-go/pkg/devmem"
	"github.com/physmem-tools/physmem-go/pkg/refresh"
	"github.com/physmem-tools/physmem-go/pkg/session"
	"github.com/physmem-tools/physmem-go/pkg/simmem"
	"github.com/physmem-tools/physmem-go/pkg/window"
)

// Device kinds.
const (
	KindDevMem = "devmem"
	KindSim    = "sim"
)

// Window length bounds.
const (
	MinLength = 1
	MaxLength = 64 * 1024
)

// DefaultAddress is the initial window base.
const DefaultAddress Hex = 0xFF00D400

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Hex is an address written as bare hex digits in YAML.
type Hex uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *Hex) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	v, err := address.Parse(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*h = Hex(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h Hex) MarshalYAML() (any, error) {
	return address.Format(uint64(h)), nil
}

// String returns the address as upper-case hex.
func (h Hex) String() string {
	return address.Format(uint64(h))
}

// Config is the complete viewer configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Window  WindowConfig  `yaml:"window"`
	Refresh RefreshConfig `yaml:"refresh"`
	Trace   TraceConfig   `yaml:"trace"`
	Sim     SimConfig     `yaml:"sim"`
}

// DeviceConfig selects the memory transport.
type DeviceConfig struct {
	Kind      string        `yaml:"kind"`
	Path      string        `yaml:"path"`
	ReadOnly  bool          `yaml:"read_only"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

// WindowConfig is the initial window.
type WindowConfig struct {
	Address Hex `yaml:"address"`
	Length  int `yaml:"length"`
}

// RefreshConfig is the initial refresh policy.
type RefreshConfig struct {
	Enabled         bool    `yaml:"enabled"`
	IntervalSeconds float64 `yaml:"interval_seconds"`
}

// TraceConfig controls the diagnostic access trace.
type TraceConfig struct {
	Path     string `yaml:"path,omitempty"`
	Accesses bool   `yaml:"accesses"`
	Console  bool   `yaml:"console"`
}

// SimConfig describes the simulated device.
type SimConfig struct {
	Latency time.Duration `yaml:"latency"`
	Regions []SimRegion   `yaml:"regions"`
}

// SimRegion is one simulated memory range.
type SimRegion struct {
	Start    Hex    `yaml:"start"`
	Size     uint64 `yaml:"size"`
	ReadOnly bool   `yaml:"read_only,omitempty"`
	Pattern  string `yaml:"pattern,omitempty"`
	Fill     uint8  `yaml:"fill,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Kind:      KindDevMem,
			Path:      devmem.DefaultPath,
			OpTimeout: session.DefaultOpTimeout,
		},
		Window: WindowConfig{
			Address: DefaultAddress,
			Length:  window.DefaultLength,
		},
		Refresh: RefreshConfig{
			Enabled:         false,
			IntervalSeconds: refresh.DefaultInterval.Seconds(),
		},
		Sim: SimConfig{
			Regions: []SimRegion{
				{Start: 0xFF00D000, Size: 0x1000, Pattern: string(simmem.PatternAddress)},
				{Start: 0xFF00E000, Size: 0x100, ReadOnly: true, Pattern: string(simmem.PatternFill), Fill: 0xA5},
			},
		},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Message: "invalid configuration", Cause: err}
	}
	return cfg, nil
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	switch c.Device.Kind {
	case KindDevMem:
		if c.Device.Path == "" {
			return fmt.Errorf("%w: device.path is required for %s", ErrInvalidConfig, KindDevMem)
		}
	case KindSim:
		if _, err := simmem.New(c.SimRegions()...); err != nil {
			return fmt.Errorf("%w: sim.regions: %w", ErrInvalidConfig, err)
		}
	default:
		return fmt.Errorf("%w: device.kind %q (want %s or %s)", ErrInvalidConfig, c.Device.Kind, KindDevMem, KindSim)
	}

	if c.Device.OpTimeout < 0 {
		return fmt.Errorf("%w: device.op_timeout %s is negative", ErrInvalidConfig, c.Device.OpTimeout)
	}
	if c.Window.Length < MinLength || c.Window.Length > MaxLength {
		return fmt.Errorf("%w: window.length %d not in [%d, %d]", ErrInvalidConfig, c.Window.Length, MinLength, MaxLength)
	}
	if _, err := c.RefreshPolicy(); err != nil {
		return fmt.Errorf("%w: refresh.interval_seconds: %w", ErrInvalidConfig, err)
	}
	if c.Sim.Latency < 0 {
		return fmt.Errorf("%w: sim.latency %s is negative", ErrInvalidConfig, c.Sim.Latency)
	}
	return nil
}

// RefreshPolicy converts the refresh section.
func (c *Config) RefreshPolicy() (refresh.Policy, error) {
	return refresh.PolicyFromSeconds(c.Refresh.Enabled, c.Refresh.IntervalSeconds)
}

// SetRefreshPolicy stores p in the refresh section.
func (c *Config) SetRefreshPolicy(p refresh.Policy) {
	c.Refresh.Enabled = p.Enabled
	c.Refresh.IntervalSeconds = p.Seconds()
}

// SimRegions converts the sim section.
func (c *Config) SimRegions() []simmem.Region {
	regions := make([]simmem.Region, 0, len(c.Sim.Regions))
	for _, r := range c.Sim.Regions {
		regions = append(regions, simmem.Region{
			Start:    uint64(r.Start),
			Size:     r.Size,
			ReadOnly: r.ReadOnly,
			Pattern:  simmem.Pattern(r.Pattern),
			Fill:     r.Fill,
		})
	}
	return regions
}

// Save writes the configuration to path. The file is replaced atomically
// so a crash never leaves a truncated config behind.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
