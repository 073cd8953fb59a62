// Package main provides the entry point for netchoo, a live per-interface
// network throughput monitor.
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
	"syscall"
	"time"

	"github.com/shini4i/netchoo/internal/config"
	"github.com/shini4i/netchoo/internal/counter"
	"github.com/shini4i/netchoo/internal/fileutil"
	"github.com/shini4i/netchoo/internal/httpapi"
	"github.com/shini4i/netchoo/internal/logging"
	"github.com/shini4i/netchoo/internal/monitor"
	"github.com/shini4i/netchoo/internal/scheduler"
	"github.com/shini4i/netchoo/internal/ui"
)

var (
	version = "dev"
)

// exitInvalidConfig is the only non-zero exit status.
const exitInvalidConfig = 2

func main() {
	fs := flag.NewFlagSet("netchoo", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	if flags.Version {
		fmt.Printf("netchoo %s\n", version)
		return
	}

	logOpts := logging.Options{}
	if flags.Debug {
		logOpts.Level = logging.LevelDebug
	}
	logging.SetupFromEnv(logOpts)

	cfg, configPath, err := loadConfig(fs, flags)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(exitInvalidConfig)
	}

	if flags.WriteConfig {
		if err := config.Save(configPath, cfg); err != nil {
			slog.Error("Failed to write configuration", "path", configPath, "error", err)
			os.Exit(1)
		}
		fmt.Println(configPath)
		return
	}

	renderer := ui.DetectRenderer(cfg.Renderer, int(os.Stdout.Fd()))
	logOpts.Format = cfg.LogFormat
	if renderer == config.RendererTerm {
		out, closeLog := dashboardLogOutput(cfg)
		defer closeLog()
		logOpts.Output = out
	}
	logging.SetupFromEnv(logOpts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, renderer); err != nil {
		slog.Error("netchoo stopped", "error", err)
	}
}

// loadConfig applies defaults, then the config file, then flags.
func loadConfig(fs *flag.FlagSet, flags *config.Flags) (*config.Config, string, error) {
	path := flags.ConfigPath
	if path == "" {
		paths, err := config.GetPaths()
		if err != nil {
			return nil, "", err
		}
		path = paths.Locate()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	flags.Apply(fs, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// dashboardLogOutput keeps logs off the screen the dashboard draws on.
func dashboardLogOutput(cfg *config.Config) (io.Writer, func()) {
	path := cfg.LogFile
	if path == "" {
		paths, err := config.GetPaths()
		if err != nil {
			return io.Discard, func() {}
		}
		path = paths.LogFile
	}

	f, err := fileutil.OpenAppend(path, 0600)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}

func run(ctx context.Context, cfg *config.Config, renderer string) error {
	src, err := counter.Open(cfg.CounterOptions())
	if err != nil {
		return err
	}
	operState := counter.NewSysfsSource(cfg.SysfsNet).OperState
	filtered := counter.FilteredSource{Source: src, Filter: cfg.Filter(operState)}
	defer func() {
		if err := filtered.Close(); err != nil {
			slog.Warn("Failed to close counter source", "error", err)
		}
	}()

	mon := monitor.New(monitor.Options{Window: cfg.Window(), Scale: cfg.ScaleModel()})
	sched := scheduler.New(filtered, mon, scheduler.Options{Interval: cfg.SampleInterval()})

	slog.Info("Starting netchoo", "version", version, "run_id", sched.RunID(), "source", src.Name(),
		"interval", cfg.SampleInterval(), "window", cfg.Window(), "renderer", renderer)

	if cfg.Listen != "" {
		api := httpapi.New(httpapi.Options{Addr: cfg.Listen})
		sched.OnNotify(api.Publish)
		go func() {
			if err := api.Run(ctx); err != nil {
				slog.Error("HTTP API failed", "error", err)
			}
		}()
	}

	switch renderer {
	case config.RendererTray:
		return runTray(ctx, cfg, sched)
	case config.RendererTerm:
		err := runDashboard(ctx, cfg, sched)
		if err == nil || !errors.Is(err, errTerminalUnavailable) {
			return err
		}
		slog.Warn("Dashboard unavailable, falling back to line log", "error", err)
		return runLineLog(ctx, cfg, sched)
	default:
		return runLineLog(ctx, cfg, sched)
	}
}

var errTerminalUnavailable = errors.New("terminal unavailable")

func runDashboard(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler) error {
	updates := sched.Subscribe()
	dash := ui.NewDashboard(ui.DashboardOptions{
		DockerReverse: cfg.DockerReverse,
		OnRefresh:     sched.TriggerOnce,
		OnZoom: func(in bool) {
			next := nextWindow(sched.Window(), sched.Interval(), in)
			if err := sched.SetWindow(next); err != nil {
				slog.Warn("Failed to change window", "window", next, "error", err)
			}
		},
		OnSpeed: func(faster bool) {
			next := nextInterval(sched.Interval(), sched.Window(), faster)
			if err := sched.SetInterval(next); err != nil {
				slog.Warn("Failed to change sample interval", "interval", next, "error", err)
			}
		},
	})

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if err := dash.Run(ctx, updates); err != nil {
		return fmt.Errorf("%w: %w", errTerminalUnavailable, err)
	}
	return nil
}

// minInteractiveInterval is the fastest sampling the dashboard keys allow.
const minInteractiveInterval = 100 * time.Millisecond

// nextWindow halves or doubles the window, keeping it between one interval
// and config.MaxWindow.
func nextWindow(cur, interval time.Duration, in bool) time.Duration {
	next := cur * 2
	if in {
		next = cur / 2
	}
	return min(max(next, interval), config.MaxWindow)
}

// nextInterval halves or doubles the sample interval, keeping it between
// minInteractiveInterval and the smaller of the window and
// config.MaxSampleInterval.
func nextInterval(cur, window time.Duration, faster bool) time.Duration {
	next := cur * 2
	if faster {
		next = cur / 2
	}
	upper := min(window, config.MaxSampleInterval)
	return max(min(next, upper), min(minInteractiveInterval, upper))
}

func runLineLog(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler) error {
	updates := sched.Subscribe()
	lineLog := &ui.LineLog{
		Out:           os.Stdout,
		BarWidth:      barWidth(ui.TerminalWidth(int(os.Stdout.Fd()), 0)),
		DockerReverse: cfg.DockerReverse,
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	return lineLog.Run(ctx, updates)
}

// barWidth splits the space left after the fixed columns between two bars.
func barWidth(termWidth int) int {
	const fixedColumns = 90
	if termWidth <= fixedColumns {
		return ui.DefaultBarWidth
	}
	return max(ui.DefaultBarWidth, (termWidth-fixedColumns)/2)
}

func runTray(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tray := ui.NewTray(cfg.DockerReverse, 0)
	if err := tray.OnRefresh(sched.TriggerOnce); err != nil {
		return err
	}
	if err := tray.OnQuit(cancel); err != nil {
		return err
	}
	sched.OnNotify(tray.Update)

	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	go func() {
		<-ctx.Done()
		tray.Quit()
	}()

	return tray.Run()
}
