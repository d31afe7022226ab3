package botherd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/botherd/internal/config"
	"github.com/loykin/botherd/internal/ipc"
	"github.com/loykin/botherd/internal/logbuf"
	"github.com/loykin/botherd/internal/metrics"
	"github.com/loykin/botherd/internal/server"
	"github.com/loykin/botherd/internal/sessionlog"
	"github.com/loykin/botherd/internal/store"
	"github.com/loykin/botherd/internal/store/factory"
	"github.com/loykin/botherd/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Spec = supervisor.Spec

type Status = supervisor.Status

type Line = logbuf.Line

type Config = config.Config

// RestartSentinel is the payload a client sends over TCP to request a
// bot restart.
const RestartSentinel = ipc.Sentinel

// App owns one supervised bot process together with its log plumbing and
// the restart listener. Construct with New, then Start the bot and poll
// TakeRestartRequest from the main loop.
type App struct {
	cfg     *config.Config
	log     *slog.Logger
	ring    *logbuf.Buffer
	journal *sessionlog.Writer
	sup     *supervisor.Supervisor
	ipc     *ipc.Server
	hist    store.Store
	http    *http.Server
}

// New wires an App from configuration. The session log file is created
// immediately; the child process and the restart listener are not started
// until Start and ListenRestart are called.
func New(cfg *config.Config) (*App, error) {
	log := cfg.Logger.NewSlogger()
	slog.SetDefault(log)

	journal, err := sessionlog.New(sessionlog.Options{
		Dir:      cfg.Session.Dir,
		MaxFiles: cfg.Session.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	ring := logbuf.New(cfg.Session.RingCapacity)
	sup := supervisor.New(cfg.Bot, ring, journal, log)

	a := &App{
		cfg:     cfg,
		log:     log,
		ring:    ring,
		journal: journal,
		sup:     sup,
		ipc:     ipc.NewServer(cfg.IPC.Addr, log),
	}

	if cfg.Store.DSN != "" {
		hist, err := factory.NewFromDSN(cfg.Store.DSN)
		if err != nil {
			journal.Shutdown()
			return nil, fmt.Errorf("open run history store: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hist.EnsureSchema(ctx); err != nil {
			_ = hist.Close()
			journal.Shutdown()
			return nil, fmt.Errorf("run history schema: %w", err)
		}
		a.hist = hist
		sup.SetRunHooks(supervisor.RunHooks{
			Started: a.recordStart,
			Stopped: a.recordStop,
		})
	}
	return a, nil
}

// Supervisor exposes the underlying supervisor for advanced embedding.
func (a *App) Supervisor() *supervisor.Supervisor { return a.sup }

// Ring returns the shared in-memory log buffer.
func (a *App) Ring() *logbuf.Buffer { return a.ring }

// Notify returns the live line channel for UI consumption. Lines are
// dropped rather than blocking when the consumer falls behind.
func (a *App) Notify() <-chan logbuf.Line { return a.sup.Notify() }

// SessionLogPath reports the file the current session is captured to.
func (a *App) SessionLogPath() string { return a.journal.Path() }

func (a *App) Start() (int, error) { return a.sup.Start() }

func (a *App) Stop() error { return a.sup.Stop() }

func (a *App) Restart(message string) error { return a.sup.Restart(message) }

func (a *App) Status() Status { return a.sup.Status() }

// Snapshot copies the current ring buffer contents.
func (a *App) Snapshot() []Line { return a.ring.Snapshot() }

// SetReloadHook installs fn to run after every restart, typically to
// re-read user settings.
func (a *App) SetReloadHook(fn func() error) { a.sup.SetReloadHook(fn) }

// ListenRestart binds the TCP restart listener. Safe to call once.
func (a *App) ListenRestart() error { return a.ipc.Start() }

// TakeRestartRequest reports whether a restart was requested since the
// last call, consuming the flag.
func (a *App) TakeRestartRequest() bool { return a.ipc.TakeRestartRequest() }

// ServeHTTP starts the optional control API when configured. Returns the
// server, or nil when http.listen is empty.
func (a *App) ServeHTTP() *http.Server {
	if a.cfg.HTTP.Listen == "" {
		return nil
	}
	a.http = server.NewServer(a.cfg.HTTP.Listen, a.cfg.HTTP.BasePath, a.sup, a.ring, a.hist)
	return a.http
}

// Close stops the child process if running and releases the listener, the
// session log, the history store, and the HTTP server.
func (a *App) Close() error {
	stopErr := a.sup.Stop()
	a.sup.Quiesce()
	_ = a.ipc.Close()
	if a.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = a.http.Shutdown(ctx)
		cancel()
	}
	if a.hist != nil {
		_ = a.hist.Close()
	}
	a.journal.Shutdown()
	return stopErr
}

func (a *App) recordStart(pid int, startedAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rec := store.Record{PID: pid, StartedAt: startedAt, Running: true}
	if err := a.hist.RecordStart(ctx, rec); err != nil {
		a.log.Warn("record run start failed", "err", err)
	}
}

func (a *App) recordStop(pid int, startedAt time.Time, exitErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	uniq := store.UniqueKey(pid, startedAt)
	if err := a.hist.RecordStop(ctx, uniq, time.Now(), exitErr); err != nil {
		a.log.Warn("record run stop failed", "err", err)
	}
}

// LoadConfig reads a TOML configuration file. An empty path yields
// defaults.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// RequestRestart asks a running instance at addr to restart its bot.
func RequestRestart(addr string) error { return ipc.Send(addr) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It blocks in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
