package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"hindsight/internal/catalog"
	"hindsight/internal/config"
	"hindsight/internal/controller"
	"hindsight/internal/deps"
	"hindsight/internal/logging"
	"hindsight/internal/preflight"
)

// Daemon owns the background recording services and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	controller *controller.Controller
	catalog    *catalog.Store
	logPath    string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt atomic.Pointer[time.Time]
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	Recorder     controller.Status
	Recordings   int
	DBPath       string
	LockFilePath string
	LogPath      string
	SocketPath   string
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, ctrl *controller.Controller, store *catalog.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || ctrl == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, controller, catalog, and logger")
	}

	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		controller: ctrl,
		catalog:    store,
		logPath:    cfg.DaemonLogPath(),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and runs the preflight checks.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another hindsight daemon instance is already running")
	}

	d.logPreflight()

	now := time.Now().UTC()
	d.startedAt.Store(&now)
	d.running.Store(true)
	d.logger.Info("hindsight daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"))
	return nil
}

// Stop halts any active recording session and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if err := d.controller.StopRecording(context.Background()); err != nil {
		d.logger.Warn("failed to stop recording during shutdown", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.startedAt.Store(nil)
	d.running.Store(false)
	d.logger.Info("hindsight daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.catalog != nil {
		return d.catalog.Close()
	}
	return nil
}

// StartRecording begins the rolling capture session.
func (d *Daemon) StartRecording(ctx context.Context) error {
	if d.controller == nil {
		return errors.New("recording controller unavailable")
	}
	return d.controller.StartRecording(ctx)
}

// StopRecording halts the rolling capture session.
func (d *Daemon) StopRecording(ctx context.Context) error {
	if d.controller == nil {
		return errors.New("recording controller unavailable")
	}
	return d.controller.StopRecording(ctx)
}

// Export merges the buffered chunks covering the requested window into a
// recording. A non-positive window selects the configured default.
func (d *Daemon) Export(ctx context.Context, window time.Duration) (*catalog.Recording, error) {
	if d.controller == nil {
		return nil, errors.New("recording controller unavailable")
	}
	return d.controller.ExportLast(ctx, window)
}

// ListRecordings returns catalogued recordings, newest first.
func (d *Daemon) ListRecordings(ctx context.Context, limit int) ([]catalog.Recording, error) {
	if d.catalog == nil {
		return nil, errors.New("recordings catalog unavailable")
	}
	return d.catalog.List(ctx, limit)
}

// RemoveRecording deletes a recording's catalog row and its artifact file.
// A missing artifact is tolerated so stale rows can always be cleaned up.
func (d *Daemon) RemoveRecording(ctx context.Context, id int64) (*catalog.Recording, error) {
	if d.catalog == nil {
		return nil, errors.New("recordings catalog unavailable")
	}
	rec, err := d.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("recording %d not found", id)
	}
	removed, err := d.catalog.Remove(ctx, id)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, fmt.Errorf("recording %d not found", id)
	}
	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove recording artifact",
			logging.String("path", rec.Path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "recording_remove_failed"),
			logging.String(logging.FieldImpact, "catalog row removed but file remains on disk"))
	}
	d.logger.Info("recording removed",
		logging.Int64("recording_id", id),
		logging.String("path", rec.Path),
		logging.String(logging.FieldEventType, "recording_removed"))
	return rec, nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Recorder:     d.controller.Status(),
		DBPath:       d.cfg.Paths.DatabasePath,
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		SocketPath:   d.cfg.SocketPath(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
	if started := d.startedAt.Load(); started != nil {
		status.StartedAt = *started
	}
	if count, err := d.catalog.Count(ctx); err == nil {
		status.Recordings = count
	}
	return status
}

func (d *Daemon) logPreflight() {
	for _, result := range preflight.RunAll(d.cfg) {
		if result.Passed {
			d.logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported path or binary and restart"),
			logging.String(logging.FieldImpact, "recording or export may fail"))
	}
}
