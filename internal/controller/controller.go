package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hindsight/internal/buffer"
	"hindsight/internal/catalog"
	"hindsight/internal/config"
	"hindsight/internal/export"
	"hindsight/internal/logging"
	"hindsight/internal/notifications"
	"hindsight/internal/recorder"
	"hindsight/internal/services"
	"hindsight/internal/services/ffmpeg"
)

// State describes the controller lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// ErrCaptureUnavailable indicates the encoder binary cannot be executed on
// this host.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// Status is a point-in-time view of the recording session.
type Status struct {
	State               State
	SessionStartedAt    time.Time
	EncoderVersion      string
	ChunkCount          int
	BufferedFrom        time.Time
	BufferedUntil       time.Time
	ConsecutiveFailures int
}

// Controller coordinates session transitions. Start and Stop are serialized;
// Status is cheap and safe to poll from any goroutine.
type Controller struct {
	cfg      *config.Config
	client   ffmpeg.Client
	store    *buffer.Store
	recorder *recorder.Recorder
	exporter *export.Coordinator
	notifier notifications.Service
	logger   *slog.Logger

	transitionMu sync.Mutex

	mu        sync.Mutex
	state     State
	startedAt time.Time
	sessionID string
	version   string
}

// New constructs a controller over pre-wired components.
func New(cfg *config.Config, client ffmpeg.Client, store *buffer.Store, rec *recorder.Recorder, exporter *export.Coordinator, notifier notifications.Service, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		client:   client,
		store:    store,
		recorder: rec,
		exporter: exporter,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "controller"),
		state:    StateIdle,
	}
}

// StartRecording begins a fresh session: it verifies the encoder, discards
// chunks left from earlier sessions, and launches the capture loop. Calling
// it while recording is a no-op.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	if c.currentState() == StateRecording {
		return nil
	}

	version, err := c.client.Version(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	c.store.Clear()
	sweep := buffer.Sweep(c.cfg.Paths.BufferDir, c.logger)
	if len(sweep.Removed) > 0 {
		c.logger.Info("swept stale chunk files", logging.Int("count", len(sweep.Removed)))
	}

	// The loop must outlive this request; its lifetime is bounded by
	// StopRecording, not by the caller's context.
	sessionID := uuid.NewString()
	runCtx := services.WithSessionID(context.Background(), sessionID)
	if err := c.recorder.Start(runCtx); err != nil {
		return err
	}

	c.mu.Lock()
	c.state = StateRecording
	c.startedAt = time.Now().UTC()
	c.sessionID = sessionID
	c.version = version
	c.mu.Unlock()

	logging.WithContext(runCtx, c.logger).Info("recording session started",
		logging.String("encoder", version),
		logging.String(logging.FieldEventType, "recording_started"),
	)
	if c.notifier != nil {
		if err := c.notifier.NotifyRecordingStarted(ctx); err != nil {
			c.logger.Warn("lifecycle notification failed", logging.Error(err))
		}
	}
	return nil
}

// StopRecording halts the capture loop and waits for it to wind down. The
// buffered chunks stay exportable until the next session starts. Calling it
// while idle is a no-op.
func (c *Controller) StopRecording(ctx context.Context) error {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	if c.currentState() == StateIdle {
		return nil
	}

	c.recorder.Stop()

	c.mu.Lock()
	sessionID := c.sessionID
	c.state = StateIdle
	c.startedAt = time.Time{}
	c.sessionID = ""
	c.mu.Unlock()

	logger := c.logger
	if sessionID != "" {
		logger = logger.With(logging.String(logging.FieldSessionID, sessionID))
	}
	logger.Info("recording session stopped",
		logging.String(logging.FieldEventType, "recording_stopped"),
	)
	if c.notifier != nil {
		if err := c.notifier.NotifyRecordingStopped(ctx); err != nil {
			c.logger.Warn("lifecycle notification failed", logging.Error(err))
		}
	}
	return nil
}

// ExportLast merges the trailing window into an artifact. A window <= 0
// falls back to the configured default. Exports work in both states; after
// a stop the remaining buffer stays exportable until the next start.
func (c *Controller) ExportLast(ctx context.Context, window time.Duration) (*catalog.Recording, error) {
	if window <= 0 {
		window = c.cfg.DefaultExportWindow()
	}
	return c.exporter.ExportLast(ctx, window)
}

// Status reports the current session view.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{
		State:            c.state,
		SessionStartedAt: c.startedAt,
		EncoderVersion:   c.version,
	}
	c.mu.Unlock()

	st.ChunkCount = c.store.Len()
	if from, until, ok := c.store.Span(); ok {
		st.BufferedFrom = from
		st.BufferedUntil = until
	}
	st.ConsecutiveFailures = c.recorder.ConsecutiveFailures()
	return st
}

// Close stops any active session. The daemon calls it on shutdown.
func (c *Controller) Close() error {
	return c.StopRecording(context.Background())
}

func (c *Controller) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
