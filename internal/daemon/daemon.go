package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"stockmeta/internal/config"
	"stockmeta/internal/logging"
	"stockmeta/internal/preflight"
	"stockmeta/internal/view"
	"stockmeta/internal/workspace"
)

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another stockmeta instance is already running")

const shutdownTimeout = 5 * time.Second

// Runner is a background task bound to the daemon lifetime.
type Runner interface {
	Run(ctx context.Context) error
}

// Daemon owns the instance lock, the HTTP listener and background runners.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	workspace *workspace.Workspace
	handler   http.Handler
	runners   []Runner

	lockPath string
	lock     *flock.Flock

	running  atomic.Bool
	cancel   context.CancelFunc
	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool            `json:"running"`
	Addr         string          `json:"addr"`
	LockFilePath string          `json:"lock_file"`
	Queue        view.Stats      `json:"queue"`
	Workspace    workspace.State `json:"workspace"`
}

// New constructs a daemon. handler serves the control surface; runners are
// started alongside it.
func New(cfg *config.Config, ws *workspace.Workspace, handler http.Handler, logger *slog.Logger, runners ...Runner) (*Daemon, error) {
	if cfg == nil || ws == nil || handler == nil {
		return nil, errors.New("daemon requires config, workspace, and handler")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		workspace: ws,
		handler:   handler,
		runners:   runners,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the lock, binds the listener and launches the runners.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	for _, failed := range preflight.Failed(preflight.CheckDirectories(d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "exports or logs may fail to write"),
		)
	}

	bind := strings.TrimSpace(d.cfg.Server.Bind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("listen %s: %w", bind, err)
	}
	d.listener = listener
	d.server = &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("control server error", logging.Error(err))
		}
	}()
	for _, r := range d.runners {
		d.wg.Add(1)
		go func(r Runner) {
			defer d.wg.Done()
			if err := r.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logging.WarnWithContext(d.logger, "background runner stopped", "runner_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "hot folder ingestion disabled until restart"),
				)
			}
		}(r)
	}

	d.running.Store(true)
	d.logger.Info("stockmeta daemon started",
		logging.String("addr", listener.Addr().String()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop shuts down the listener and runners, ends any active batch and
// releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("control server shutdown", logging.Error(err))
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	if run := d.workspace.CurrentRun(); run != nil {
		run.Stop()
		<-run.Done()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("stockmeta daemon stopped")
}

// Close stops the daemon and releases workspace resources.
func (d *Daemon) Close() error {
	d.Stop()
	d.workspace.Close()
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Addr:         d.Addr(),
		LockFilePath: d.lockPath,
		Queue:        d.workspace.Stats(),
		Workspace:    d.workspace.State(ctx),
	}
}
