package export_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"hindsight/internal/buffer"
	"hindsight/internal/catalog"
	"hindsight/internal/export"
	"hindsight/internal/logging"
	"hindsight/internal/notifications"
	"hindsight/internal/services/ffmpeg"
	"hindsight/internal/testsupport"
)

type fakeNotifier struct {
	mu              sync.Mutex
	exportCompleted []string
	exportFailed    []error
}

func (f *fakeNotifier) NotifyRecordingStarted(context.Context) error { return nil }
func (f *fakeNotifier) NotifyRecordingStopped(context.Context) error { return nil }
func (f *fakeNotifier) NotifyExportCompleted(_ context.Context, filename string, _ time.Duration, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exportCompleted = append(f.exportCompleted, filename)
	return nil
}
func (f *fakeNotifier) NotifyExportFailed(_ context.Context, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exportFailed = append(f.exportFailed, err)
	return nil
}
func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

var _ notifications.Service = (*fakeNotifier)(nil)

type exportEnv struct {
	store         *buffer.Store
	catalog       *catalog.Store
	coordinator   *export.Coordinator
	notifier      *fakeNotifier
	bufferDir     string
	recordingsDir string
	tmpDir        string
	now           time.Time
}

func newExportEnv(t *testing.T, binary string) *exportEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	tmpDir := t.TempDir()
	t.Setenv("TMPDIR", tmpDir)

	env := &exportEnv{
		store:         buffer.NewStore(logging.NewNop()),
		catalog:       testsupport.MustOpenCatalog(t, cfg),
		notifier:      &fakeNotifier{},
		bufferDir:     cfg.Paths.BufferDir,
		recordingsDir: cfg.Paths.RecordingsDir,
		tmpDir:        tmpDir,
		now:           time.Date(2026, time.August, 25, 10, 30, 0, 0, time.UTC),
	}

	client := ffmpeg.NewCLI(ffmpeg.GrabSettings{}, ffmpeg.WithBinary(binary))
	env.coordinator = export.New(client, env.store, env.catalog, env.notifier,
		export.Settings{RecordingsDir: env.recordingsDir, Extension: "mp4"},
		logging.NewNop(),
		export.WithClock(func() time.Time { return env.now }),
	)
	return env
}

func (e *exportEnv) addChunk(t *testing.T, start time.Time, payload string) buffer.Chunk {
	t.Helper()
	path := filepath.Join(e.bufferDir, buffer.FileName(start, "mp4"))
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write chunk payload: %v", err)
	}
	chunk := buffer.Chunk{
		ID:        uuid.New(),
		Path:      path,
		StartedAt: start,
		Duration:  10 * time.Second,
		Size:      int64(len(payload)),
	}
	if err := e.store.Add(chunk); err != nil {
		t.Fatalf("add chunk: %v", err)
	}
	return chunk
}

func (e *exportEnv) tempFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.tmpDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestExportLastMergesChunksInOrder(t *testing.T) {
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	env := newExportEnv(t, stub)

	env.addChunk(t, env.now.Add(-30*time.Second), "AAA")
	env.addChunk(t, env.now.Add(-20*time.Second), "BBB")
	env.addChunk(t, env.now.Add(-10*time.Second), "CCC")

	rec, err := env.coordinator.ExportLast(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("ExportLast returned error: %v", err)
	}
	if rec == nil || rec.ID == 0 {
		t.Fatalf("expected catalogued recording, got %#v", rec)
	}
	if rec.ChunkCount != 3 {
		t.Fatalf("expected 3 chunks merged, got %d", rec.ChunkCount)
	}

	content, err := os.ReadFile(rec.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(content) != "AAABBBCCC" {
		t.Fatalf("expected chunks concatenated oldest first, got %q", content)
	}
	if filepath.Dir(rec.Path) != env.recordingsDir {
		t.Fatalf("expected artifact in recordings dir, got %s", rec.Path)
	}
}

func TestExportLastScopesToWindow(t *testing.T) {
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	env := newExportEnv(t, stub)

	env.addChunk(t, env.now.Add(-40*time.Second), "OLD")
	env.addChunk(t, env.now.Add(-5*time.Second), "NEW")

	rec, err := env.coordinator.ExportLast(context.Background(), 10*time.Second)
	if err != nil {
		t.Fatalf("ExportLast returned error: %v", err)
	}
	content, err := os.ReadFile(rec.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(content) != "NEW" {
		t.Fatalf("expected only the in-window chunk, got %q", content)
	}
	if rec.ChunkCount != 1 {
		t.Fatalf("expected 1 chunk, got %d", rec.ChunkCount)
	}
}

func TestExportLastEmptyWindowReturnsErrNoChunks(t *testing.T) {
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	env := newExportEnv(t, stub)

	_, err := env.coordinator.ExportLast(context.Background(), time.Minute)
	if !errors.Is(err, export.ErrNoChunks) {
		t.Fatalf("expected ErrNoChunks, got %v", err)
	}

	entries, readErr := os.ReadDir(env.recordingsDir)
	if readErr != nil {
		t.Fatalf("read recordings dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no artifacts, found %d", len(entries))
	}
	count, countErr := env.catalog.Count(context.Background())
	if countErr != nil || count != 0 {
		t.Fatalf("expected empty catalog, count=%d err=%v", count, countErr)
	}
}

func TestExportLastRejectsNonPositiveWindow(t *testing.T) {
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	env := newExportEnv(t, stub)
	if _, err := env.coordinator.ExportLast(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero window")
	}
}

func TestExportFailureCleansUpAndKeepsBuffer(t *testing.T) {
	stub := testsupport.WriteFailingFFmpegStub(t, t.TempDir())
	env := newExportEnv(t, stub)

	env.addChunk(t, env.now.Add(-10*time.Second), "AAA")

	_, err := env.coordinator.ExportLast(context.Background(), time.Minute)
	if !errors.Is(err, ffmpeg.ErrMergeFailed) {
		t.Fatalf("expected merge failure, got %v", err)
	}
	var mergeErr *ffmpeg.MergeError
	if !errors.As(err, &mergeErr) {
		t.Fatalf("expected MergeError, got %T", err)
	}
	if mergeErr.Stderr == "" {
		t.Fatal("expected encoder stderr to be preserved")
	}

	if env.store.Len() != 1 {
		t.Fatalf("expected buffer untouched, got %d chunks", env.store.Len())
	}
	entries, readErr := os.ReadDir(env.recordingsDir)
	if readErr != nil {
		t.Fatalf("read recordings dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no partial artifact, found %d entries", len(entries))
	}
	if files := env.tempFiles(t); len(files) != 0 {
		t.Fatalf("expected concat list to be removed, found %v", files)
	}
	if len(env.notifier.exportFailed) != 1 {
		t.Fatalf("expected failure notification, got %d", len(env.notifier.exportFailed))
	}
}

func TestExportRemovesConcatListOnSuccess(t *testing.T) {
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	env := newExportEnv(t, stub)

	env.addChunk(t, env.now.Add(-10*time.Second), "AAA")

	if _, err := env.coordinator.ExportLast(context.Background(), time.Minute); err != nil {
		t.Fatalf("ExportLast returned error: %v", err)
	}
	if files := env.tempFiles(t); len(files) != 0 {
		t.Fatalf("expected concat list to be removed, found %v", files)
	}
	if len(env.notifier.exportCompleted) != 1 {
		t.Fatalf("expected success notification, got %d", len(env.notifier.exportCompleted))
	}
}

func TestExportKeepsChunksAvailableForLaterExports(t *testing.T) {
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	env := newExportEnv(t, stub)

	env.addChunk(t, env.now.Add(-10*time.Second), "AAA")

	first, err := env.coordinator.ExportLast(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("first ExportLast returned error: %v", err)
	}

	env.now = env.now.Add(time.Second)
	second, err := env.coordinator.ExportLast(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("second ExportLast returned error: %v", err)
	}
	if first.Filename == second.Filename {
		t.Fatal("expected distinct artifact names")
	}
	count, countErr := env.catalog.Count(context.Background())
	if countErr != nil || count != 2 {
		t.Fatalf("expected two catalogued exports, count=%d err=%v", count, countErr)
	}
}
