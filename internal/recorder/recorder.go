package recorder

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hindsight/internal/buffer"
	"hindsight/internal/logging"
	"hindsight/internal/services"
	"hindsight/internal/services/ffmpeg"
)

const (
	// backoffThreshold is the failure streak after which the loop starts
	// sleeping between attempts.
	backoffThreshold = 3
	maxBackoff       = 30 * time.Second
)

// Settings carry the loop parameters derived from configuration.
type Settings struct {
	BufferDir     string
	ChunkDuration time.Duration
	Window        time.Duration
	Extension     string
}

// Option configures optional recorder behaviour.
type Option func(*Recorder)

// WithClock overrides the time source (used in tests).
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// Recorder owns the capture loop. A failed iteration never stops the loop;
// persistent failure only shows up as a draining buffer window.
type Recorder struct {
	client   ffmpeg.Client
	store    *buffer.Store
	settings Settings
	logger   *slog.Logger
	clock    func() time.Time

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	failures int
}

// New constructs a recorder over the given encoder client and chunk store.
func New(client ffmpeg.Client, store *buffer.Store, settings Settings, logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		client:   client,
		store:    store,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "recorder"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the capture loop. Calling Start while the loop is already
// running is a no-op.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	if strings.TrimSpace(r.settings.BufferDir) == "" {
		r.mu.Unlock()
		return errors.New("buffer directory required")
	}
	if r.settings.ChunkDuration <= 0 {
		r.mu.Unlock()
		return errors.New("chunk duration must be positive")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.failures = 0
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(runCtx)
	return nil
}

// Stop cancels the loop, terminates any in-flight capture, and waits for the
// loop goroutine to exit. No chunk is registered after Stop returns. Stop is
// idempotent.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

// Running reports whether the capture loop is active.
func (r *Recorder) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// ConsecutiveFailures reports the current streak of failed capture attempts.
func (r *Recorder) ConsecutiveFailures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()
	logger := logging.WithContext(ctx, r.logger)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if evicted := r.store.EvictExpired(r.clock(), r.settings.Window); evicted > 0 {
			logger.Debug("evicted expired chunks", logging.Int("count", evicted))
		}

		if err := r.captureChunk(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures := r.recordFailure()
			logger.Error("chunk capture failed",
				logging.Error(err),
				logging.Int("consecutive_failures", failures),
				logging.String(logging.FieldEventType, "chunk_capture_failed"),
				logging.String(logging.FieldErrorHint, "check capture source and ffmpeg flags"),
				logging.String(logging.FieldImpact, "buffer window is draining"),
			)
			if !r.sleepBeforeRetry(ctx, failures) {
				return
			}
			continue
		}
		r.resetFailures()
	}
}

func (r *Recorder) captureChunk(ctx context.Context) error {
	startedAt := r.clock()
	path := filepath.Join(r.settings.BufferDir, buffer.FileName(startedAt, r.settings.Extension))

	proc, err := r.client.Capture(ctx, ffmpeg.CaptureRequest{
		OutputPath: path,
		Duration:   r.settings.ChunkDuration,
	})
	if err != nil {
		return err
	}

	result, err := proc.Wait()
	if err != nil {
		r.discardPartial(path)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "recorder", "capture",
			strings.TrimSpace(result.Stderr), err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "recorder", "capture",
			"chunk file missing after capture", err)
	}
	if info.Size() == 0 {
		r.discardPartial(path)
		return services.Wrap(services.ErrValidation, "recorder", "capture",
			"chunk file empty after capture", nil)
	}

	chunk := buffer.Chunk{
		ID:        uuid.New(),
		Path:      path,
		StartedAt: startedAt,
		Duration:  r.settings.ChunkDuration,
		Size:      info.Size(),
	}
	if err := r.store.Add(chunk); err != nil {
		r.discardPartial(path)
		return err
	}

	logging.WithContext(ctx, r.logger).Debug("chunk captured",
		logging.String(logging.FieldChunk, chunk.ID.String()),
		logging.String("path", path),
		logging.Int64("bytes", info.Size()),
	)
	return nil
}

func (r *Recorder) discardPartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove partial chunk file",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "chunk_discard_failed"),
			logging.String(logging.FieldErrorHint, "check buffer_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}

func (r *Recorder) recordFailure() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
	return r.failures
}

func (r *Recorder) resetFailures() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = 0
}

// sleepBeforeRetry applies the failure backoff. It returns false when the
// loop context ended during the sleep.
func (r *Recorder) sleepBeforeRetry(ctx context.Context, failures int) bool {
	delay := backoffDelay(failures)
	if delay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// backoffDelay doubles per failure beyond the threshold and caps at
// maxBackoff. Below the threshold the loop retries immediately, since a
// transient hiccup should not widen the gap in the buffer.
func backoffDelay(failures int) time.Duration {
	if failures < backoffThreshold {
		return 0
	}
	shift := failures - backoffThreshold
	if shift > 5 {
		return maxBackoff
	}
	delay := time.Second << shift
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}
