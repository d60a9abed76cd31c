// Command physmem-view shows and edits a window of physical memory.
//
// It opens /dev/mem (or a simulated device), reads a window of bytes at a
// hex address and prints it as a hex dump. In interactive mode the window
// can be moved, refreshed periodically and edited one byte at a time.
//
// Usage:
//
//	physmem-view [flags]
//
// Flags:
//
//	-config string      Configuration file path
//	-device string      Device kind: devmem, sim
//	-path string        Device path for devmem (default "/dev/mem")
//	-address string     Window base address, hex (default "FF00D400")
//	-length int         Window length in bytes (default 256)
//	-auto               Enable auto-refresh
//	-interval float     Auto-refresh interval in seconds (default 1.0)
//	-timeout duration   Per-access device timeout
//	-trace string       Write a diagnostic access trace to this file
//	-trace-accesses     Trace every byte read, not only writes
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-once               Print one dump and exit
//
// Examples:
//
//	# Browse the simulated device
//	physmem-view -device sim
//
//	# Dump 64 bytes of real memory and exit
//	sudo physmem-view -address FED00000 -length 64 -once
//
//	# Watch a register block with a trace for later analysis
//	sudo physmem-view -address FF00D400 -auto -interval 0.5 -trace view.ptrace
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tebeka/atexit"

	"github.com/physmem-tools/physmem-go/cmd/physmem-view/interactive"
	"github.com/physmem-tools/physmem-go/pkg/address"
	"github.com/physmem-tools/physmem-go/pkg/config"
	"github.com/physmem-tools/physmem-go/pkg/devmem"
	"github.com/physmem-tools/physmem-go/pkg/log"
	"github.com/physmem-tools/physmem-go/pkg/service"
	"github.com/physmem-tools/physmem-go/pkg/session"
	"github.com/physmem-tools/physmem-go/pkg/simmem"
	"github.com/physmem-tools/physmem-go/pkg/window"
)

// Flags holds the command-line settings. Only flags given on the command
// line override the config file.
type Flags struct {
	ConfigFile    string
	Device        string
	Path          string
	Address       string
	Length        int
	Auto          bool
	Interval      float64
	Timeout       time.Duration
	Trace         string
	TraceAccesses bool
	LogLevel      string
	Once          bool
	DimZeros      bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.Device, "device", config.KindDevMem, "Device kind: devmem, sim")
	flag.StringVar(&flags.Path, "path", devmem.DefaultPath, "Device path for devmem")
	flag.StringVar(&flags.Address, "address", config.DefaultAddress.String(), "Window base address, hex")
	flag.IntVar(&flags.Length, "length", window.DefaultLength, "Window length in bytes")
	flag.BoolVar(&flags.Auto, "auto", false, "Enable auto-refresh")
	flag.Float64Var(&flags.Interval, "interval", 1.0, "Auto-refresh interval in seconds (0.1 - 5.0)")
	flag.DurationVar(&flags.Timeout, "timeout", session.DefaultOpTimeout, "Per-access device timeout")
	flag.StringVar(&flags.Trace, "trace", "", "Write a diagnostic access trace to this file")
	flag.BoolVar(&flags.TraceAccesses, "trace-accesses", false, "Trace every byte read, not only writes")
	flag.StringVar(&flags.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&flags.Once, "once", false, "Print one dump and exit")
	flag.BoolVar(&flags.DimZeros, "zeros", false, "Dim zero bytes as '..' in dumps")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	if flags.Once {
		atexit.Exit(runOnce(cfg, os.Stdout))
	}
	runInteractive(cfg)
}

// loadConfig reads the config file, if any, and applies the flags that
// were set explicitly.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if flags.ConfigFile != "" {
		loaded, err := config.Load(flags.ConfigFile)
		var lerr *config.LoadError
		switch {
		case err == nil:
			cfg = loaded
		case errors.As(err, &lerr) && errors.Is(err, os.ErrNotExist):
			// First run: save will create it.
		default:
			return nil, err
		}
	}

	var ferr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Device.Kind = flags.Device
		case "path":
			cfg.Device.Path = flags.Path
		case "timeout":
			cfg.Device.OpTimeout = flags.Timeout
		case "address":
			a, err := address.Parse(flags.Address)
			if err != nil {
				ferr = errors.Join(ferr, fmt.Errorf("-address: %w", err))
				return
			}
			cfg.Window.Address = config.Hex(a)
		case "length":
			cfg.Window.Length = flags.Length
		case "auto":
			cfg.Refresh.Enabled = flags.Auto
		case "interval":
			cfg.Refresh.IntervalSeconds = flags.Interval
		case "trace":
			cfg.Trace.Path = flags.Trace
		case "trace-accesses":
			cfg.Trace.Accesses = flags.TraceAccesses
		}
	})
	if ferr != nil {
		return nil, ferr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging builds the operational logger writing text records to w.
func setupLogging(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// createDevice builds the transport named by the device section.
func createDevice(cfg *config.Config) (session.Device, string, error) {
	switch cfg.Device.Kind {
	case config.KindSim:
		mem, err := simmem.New(cfg.SimRegions()...)
		if err != nil {
			return nil, "", err
		}
		mem.SetLatency(cfg.Sim.Latency)
		return mem, "sim", nil
	case config.KindDevMem:
		dev := devmem.New(devmem.Config{Path: cfg.Device.Path, ReadOnly: cfg.Device.ReadOnly})
		return dev, dev.Path(), nil
	default:
		return nil, "", fmt.Errorf("unknown device kind: %s", cfg.Device.Kind)
	}
}

// createTrace opens the diagnostic trace. The returned closer is nil when
// tracing is off.
func createTrace(cfg *config.Config, logger *slog.Logger) (log.Logger, io.Closer, error) {
	var sinks []log.Logger
	var closer io.Closer

	if cfg.Trace.Path != "" {
		fl, err := log.NewFileLogger(cfg.Trace.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open trace: %w", err)
		}
		sinks = append(sinks, fl)
		closer = fl
	}
	if cfg.Trace.Console {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}

	switch len(sinks) {
	case 0:
		return nil, nil, nil
	case 1:
		return sinks[0], closer, nil
	default:
		multi := log.NewMultiLogger(sinks...)
		return multi, multi, nil
	}
}

// createService wires device, trace and service from cfg and registers
// their cleanup with atexit.
func createService(cfg *config.Config, logger *slog.Logger) (*service.Service, error) {
	dev, name, err := createDevice(cfg)
	if err != nil {
		return nil, err
	}

	policy, err := cfg.RefreshPolicy()
	if err != nil {
		return nil, err
	}

	trace, closer, err := createTrace(cfg, logger)
	if err != nil {
		return nil, err
	}

	svcConfig := service.DefaultConfig()
	svcConfig.Address = uint64(cfg.Window.Address)
	svcConfig.Length = cfg.Window.Length
	svcConfig.Policy = policy
	svcConfig.OpTimeout = cfg.Device.OpTimeout
	svcConfig.DeviceName = name
	svcConfig.Trace = trace
	svcConfig.TraceReads = cfg.Trace.Accesses
	svcConfig.Logger = logger

	svc, err := service.New(dev, svcConfig)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}

	// One handler, so the service stops before the trace closes.
	atexit.Register(func() {
		if err := svc.Stop(); err != nil && !errors.Is(err, service.ErrNotStarted) {
			logger.Warn("service stop failed", "err", err)
		}
		if closer != nil {
			if err := closer.Close(); err != nil {
				logger.Warn("trace close failed", "err", err)
			}
		}
	})
	return svc, nil
}

// runOnce prints a single dump and returns the exit code: 0 for a complete
// window, 3 if some bytes could not be read and 1 on setup failure.
func runOnce(cfg *config.Config, out io.Writer) int {
	// Auto-refresh is meaningless for a single dump.
	cfg.Refresh.Enabled = false

	logger := setupLogging(os.Stderr, flags.LogLevel)
	svc, err := createService(cfg, logger)
	if err != nil {
		logger.Error("setup failed", "err", err)
		return 1
	}

	if err := svc.Start(context.Background()); err != nil {
		logger.Error("cannot open device", "err", err)
		return 1
	}

	view := svc.Snapshot()
	f := window.NewFormatter()
	f.DimZeros = flags.DimZeros
	if err := f.Dump(out, view.Window, view.Marks); err != nil {
		logger.Error("dump failed", "err", err)
		return 1
	}

	if view.Window.Failures > 0 {
		logger.Warn("window incomplete", "failures", view.Window.Failures, "err", view.Window.Err)
		return 3
	}
	return 0
}

func runInteractive(cfg *config.Config) {
	viewer, err := interactive.New(interactive.Options{
		Config:     cfg,
		ConfigPath: flags.ConfigFile,
		DimZeros:   flags.DimZeros,
	})
	if err != nil {
		atexit.Fatalf("Failed to create interactive viewer: %v", err)
	}

	// Log output goes through readline to avoid interfering with input.
	logger := setupLogging(viewer.Stdout(), flags.LogLevel)
	slog.SetDefault(logger)

	svc, err := createService(cfg, logger)
	if err != nil {
		atexit.Fatalf("Failed to create viewer service: %v", err)
	}
	viewer.Attach(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Warn("device not open, use 'open' to retry", "err", err)
	}

	go viewer.Run(ctx, cancel)

	// Wait for shutdown signal or the quit command
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	atexit.Exit(0)
}
