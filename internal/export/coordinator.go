package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"hindsight/internal/buffer"
	"hindsight/internal/catalog"
	"hindsight/internal/logging"
	"hindsight/internal/notifications"
	"hindsight/internal/services/ffmpeg"
)

// ErrNoChunks indicates the requested window contains no buffered chunks.
var ErrNoChunks = errors.New("no chunks in requested window")

const artifactTimeLayout = "2006-01-02T15-04-05.000"

// Settings carry the export parameters derived from configuration.
type Settings struct {
	RecordingsDir string
	Extension     string
}

// Option configures optional coordinator behaviour.
type Option func(*Coordinator)

// WithClock overrides the time source (used in tests).
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// Coordinator assembles replay artifacts from the rolling buffer. Exports
// never mutate the buffer; chunks stay eligible for later exports until the
// window rolls past them.
type Coordinator struct {
	client   ffmpeg.Client
	store    *buffer.Store
	catalog  *catalog.Store
	notifier notifications.Service
	settings Settings
	logger   *slog.Logger
	clock    func() time.Time
}

// New constructs a coordinator over the encoder client, chunk store, and
// recordings catalog.
func New(client ffmpeg.Client, store *buffer.Store, cat *catalog.Store, notifier notifications.Service, settings Settings, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		client:   client,
		store:    store,
		catalog:  cat,
		notifier: notifier,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "export"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExportLast merges every chunk that started inside the trailing window into
// a single artifact in the recordings directory and catalogues the result.
func (c *Coordinator) ExportLast(ctx context.Context, window time.Duration) (*catalog.Recording, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}

	now := c.clock()
	cutoff := now.Add(-window)

	chunks, release := c.store.PinRange(cutoff, now)
	defer release()
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	listPath, err := c.writeConcatList(chunks)
	if err != nil {
		return nil, err
	}
	defer c.removeQuiet(listPath, "concat list")

	filename := artifactFileName(now, c.settings.Extension)
	outputPath := filepath.Join(c.settings.RecordingsDir, filename)

	c.logger.Info("export started",
		logging.Int("chunks", len(chunks)),
		logging.Duration("window", window),
		logging.String("artifact", filename),
		logging.String(logging.FieldEventType, "export_started"),
	)

	if err := c.client.Merge(ctx, ffmpeg.MergeRequest{ListPath: listPath, OutputPath: outputPath}); err != nil {
		c.removeQuiet(outputPath, "partial artifact")
		c.logger.Error("export merge failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "export_failed"),
			logging.String(logging.FieldErrorHint, "inspect the encoder stderr in the error detail"),
		)
		c.notifyFailure(ctx, err)
		return nil, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	var covered time.Duration
	for _, chunk := range chunks {
		covered += chunk.Duration
	}

	rec := catalog.Recording{
		UUID:            uuid.NewString(),
		Filename:        filename,
		Path:            outputPath,
		CreatedAt:       now.UTC(),
		WindowSeconds:   int(window / time.Second),
		ChunkCount:      len(chunks),
		DurationSeconds: covered.Seconds(),
		SizeBytes:       info.Size(),
	}
	stored, err := c.catalog.Add(ctx, rec)
	if err != nil {
		// The artifact is already durable; losing the catalog row must not
		// destroy it.
		c.logger.Error("failed to catalogue export",
			logging.Error(err),
			logging.String("artifact", filename),
			logging.String(logging.FieldEventType, "export_catalog_failed"),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
			logging.String(logging.FieldImpact, "artifact kept but missing from listings"),
		)
		stored = &rec
	}

	c.logger.Info("export completed",
		logging.String("artifact", filename),
		logging.Int("chunks", len(chunks)),
		logging.Int64("bytes", info.Size()),
		logging.String(logging.FieldEventType, "export_completed"),
	)
	c.notifySuccess(ctx, filename, window, info.Size())
	return stored, nil
}

func (c *Coordinator) writeConcatList(chunks []buffer.Chunk) (string, error) {
	file, err := os.CreateTemp("", "hindsight-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}

	var b strings.Builder
	for _, chunk := range chunks {
		abs, err := filepath.Abs(chunk.Path)
		if err != nil {
			file.Close()
			c.removeQuiet(file.Name(), "concat list")
			return "", fmt.Errorf("resolve chunk path: %w", err)
		}
		fmt.Fprintf(&b, "file '%s'\n", abs)
	}
	if _, err := file.WriteString(b.String()); err != nil {
		file.Close()
		c.removeQuiet(file.Name(), "concat list")
		return "", fmt.Errorf("write concat list: %w", err)
	}
	if err := file.Close(); err != nil {
		c.removeQuiet(file.Name(), "concat list")
		return "", fmt.Errorf("close concat list: %w", err)
	}
	return file.Name(), nil
}

func (c *Coordinator) removeQuiet(path, label string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("failed to remove "+label,
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "export_cleanup_failed"),
		)
	}
}

func (c *Coordinator) notifySuccess(ctx context.Context, filename string, window time.Duration, size int64) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.NotifyExportCompleted(ctx, filename, window, size); err != nil {
		c.logger.Warn("export notification failed", logging.Error(err))
	}
}

func (c *Coordinator) notifyFailure(ctx context.Context, exportErr error) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.NotifyExportFailed(ctx, exportErr); err != nil {
		c.logger.Warn("export notification failed", logging.Error(err))
	}
}

func artifactFileName(now time.Time, extension string) string {
	ext := strings.TrimPrefix(strings.TrimSpace(extension), ".")
	return fmt.Sprintf("replay_%s.%s", now.UTC().Format(artifactTimeLayout), ext)
}
