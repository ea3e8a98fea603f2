package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckFFmpegExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ffmpeg")
	writeScript(t, path)

	status := CheckFFmpeg(path)
	if !status.Available {
		t.Fatalf("expected explicit path to be available, got detail %q", status.Detail)
	}
	if status.Command != path {
		t.Fatalf("expected command %q, got %q", path, status.Command)
	}
}

func TestCheckFFmpegExplicitPathNotExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	status := CheckFFmpeg(path)
	if status.Available {
		t.Fatal("expected non-executable file to fail the check")
	}
	if status.Detail == "" {
		t.Fatal("expected detail for non-executable file")
	}
}

func TestCheckFFmpegPathLookup(t *testing.T) {
	binDir := t.TempDir()
	path := filepath.Join(binDir, "ffmpeg")
	writeScript(t, path)
	t.Setenv("PATH", binDir)

	status := CheckFFmpeg("ffmpeg")
	if !status.Available {
		t.Fatalf("expected PATH lookup to succeed, got detail %q", status.Detail)
	}
	if status.Command != path {
		t.Fatalf("expected resolved command %q, got %q", path, status.Command)
	}
}

func TestCheckFFmpegNotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	status := CheckFFmpeg("ffmpeg")
	if status.Available {
		t.Fatal("expected resolution to fail with empty PATH")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when ffmpeg is unavailable")
	}
}
