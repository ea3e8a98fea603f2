package recorder_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hindsight/internal/buffer"
	"hindsight/internal/logging"
	"hindsight/internal/recorder"
	"hindsight/internal/services/ffmpeg"
	"hindsight/internal/testsupport"
)

func waitFor(t *testing.T, timeout time.Duration, message string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", message)
}

func newTestRecorder(t *testing.T, binary string, settings recorder.Settings) (*recorder.Recorder, *buffer.Store) {
	t.Helper()
	store := buffer.NewStore(logging.NewNop())
	client := ffmpeg.NewCLI(
		ffmpeg.GrabSettings{InputFormat: "x11grab", Source: ":0.0"},
		ffmpeg.WithBinary(binary),
	)
	rec := recorder.New(client, store, settings, logging.NewNop())
	t.Cleanup(rec.Stop)
	return rec, store
}

func TestRecorderCapturesChunksIntoStore(t *testing.T) {
	bufferDir := t.TempDir()
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	rec, store := newTestRecorder(t, stub, recorder.Settings{
		BufferDir:     bufferDir,
		ChunkDuration: 100 * time.Millisecond,
		Window:        time.Minute,
		Extension:     "mp4",
	})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 10*time.Second, "two chunks", func() bool { return store.Len() >= 2 })
	rec.Stop()

	if rec.Running() {
		t.Fatal("expected recorder to report stopped")
	}
	snapshot := store.Snapshot()
	for i, chunk := range snapshot {
		if _, err := os.Stat(chunk.Path); err != nil {
			t.Fatalf("chunk file missing: %v", err)
		}
		if i > 0 && snapshot[i].StartedAt.Before(snapshot[i-1].StartedAt) {
			t.Fatal("expected chunks in ascending start order")
		}
		if chunk.Size == 0 {
			t.Fatal("expected non-empty chunk size")
		}
	}
}

func TestRecorderStartIsIdempotent(t *testing.T) {
	bufferDir := t.TempDir()
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	rec, store := newTestRecorder(t, stub, recorder.Settings{
		BufferDir:     bufferDir,
		ChunkDuration: 100 * time.Millisecond,
		Window:        time.Minute,
		Extension:     "mp4",
	})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("first Start returned error: %v", err)
	}
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}
	waitFor(t, 10*time.Second, "a captured chunk", func() bool { return store.Len() >= 1 })

	rec.Stop()
	rec.Stop()
	if rec.Running() {
		t.Fatal("expected recorder to be stopped")
	}
}

func TestRecorderStopCancelsInFlightCapture(t *testing.T) {
	bufferDir := t.TempDir()
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	rec, store := newTestRecorder(t, stub, recorder.Settings{
		BufferDir:     bufferDir,
		ChunkDuration: 10 * time.Second,
		Window:        time.Minute,
		Extension:     "mp4",
	})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	stopped := time.Now()
	rec.Stop()
	if elapsed := time.Since(stopped); elapsed > 5*time.Second {
		t.Fatalf("Stop took too long: %v", elapsed)
	}

	if store.Len() != 0 {
		t.Fatalf("expected no chunk registered after cancelled capture, got %d", store.Len())
	}
	entries, err := os.ReadDir(bufferDir)
	if err != nil {
		t.Fatalf("read buffer dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no partial files left behind, found %d", len(entries))
	}
}

func TestRecorderRecoversAfterFailures(t *testing.T) {
	bufferDir := t.TempDir()
	stubDir := t.TempDir()
	real := testsupport.WriteFFmpegStub(t, filepath.Join(stubDir, "real"))
	marker := filepath.Join(stubDir, "failing")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	script := fmt.Sprintf("#!/bin/sh\nif [ -f '%s' ]; then\n  echo 'Cannot open display' >&2\n  exit 1\nfi\nexec '%s' \"$@\"\n", marker, real)
	wrapper := filepath.Join(stubDir, "ffmpeg")
	if err := os.WriteFile(wrapper, []byte(script), 0o755); err != nil {
		t.Fatalf("write wrapper stub: %v", err)
	}

	rec, store := newTestRecorder(t, wrapper, recorder.Settings{
		BufferDir:     bufferDir,
		ChunkDuration: 100 * time.Millisecond,
		Window:        time.Minute,
		Extension:     "mp4",
	})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 10*time.Second, "failure streak", func() bool { return rec.ConsecutiveFailures() >= 2 })
	if store.Len() != 0 {
		t.Fatalf("expected no chunks while encoder fails, got %d", store.Len())
	}

	if err := os.Remove(marker); err != nil {
		t.Fatalf("remove marker: %v", err)
	}
	waitFor(t, 15*time.Second, "recovery chunk", func() bool { return store.Len() >= 1 })
	waitFor(t, 5*time.Second, "failure reset", func() bool { return rec.ConsecutiveFailures() == 0 })
}

func TestRecorderKeepsDirAndIndexCoherent(t *testing.T) {
	bufferDir := t.TempDir()
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	rec, store := newTestRecorder(t, stub, recorder.Settings{
		BufferDir:     bufferDir,
		ChunkDuration: 100 * time.Millisecond,
		Window:        500 * time.Millisecond,
		Extension:     "mp4",
	})

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 15*time.Second, "enough chunks to trigger eviction", func() bool { return store.Len() >= 3 })
	time.Sleep(time.Second)
	rec.Stop()

	entries, err := os.ReadDir(bufferDir)
	if err != nil {
		t.Fatalf("read buffer dir: %v", err)
	}
	if len(entries) != store.Len() {
		t.Fatalf("buffer dir has %d files but index tracks %d chunks", len(entries), store.Len())
	}
}

func TestRecorderStartValidatesSettings(t *testing.T) {
	stub := testsupport.WriteFFmpegStub(t, t.TempDir())
	rec, _ := newTestRecorder(t, stub, recorder.Settings{
		ChunkDuration: time.Second,
		Window:        time.Minute,
		Extension:     "mp4",
	})
	if err := rec.Start(context.Background()); err == nil {
		t.Fatal("expected error for missing buffer directory")
	}

	rec2, _ := newTestRecorder(t, stub, recorder.Settings{
		BufferDir: t.TempDir(),
		Window:    time.Minute,
		Extension: "mp4",
	})
	if err := rec2.Start(context.Background()); err == nil {
		t.Fatal("expected error for non-positive chunk duration")
	}
}
