package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hindsight/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantBuffer := filepath.Join(tempHome, ".local", "share", "hindsight", "buffer")
	if cfg.Paths.BufferDir != wantBuffer {
		t.Fatalf("unexpected buffer dir: got %q want %q", cfg.Paths.BufferDir, wantBuffer)
	}
	if cfg.Paths.RecordingsDir != filepath.Join(tempHome, "Videos", "hindsight") {
		t.Fatalf("unexpected recordings dir: %q", cfg.Paths.RecordingsDir)
	}
	if cfg.Buffer.ChunkSeconds != 10 {
		t.Fatalf("unexpected chunk seconds: %d", cfg.Buffer.ChunkSeconds)
	}
	if cfg.Buffer.WindowSeconds != 120 {
		t.Fatalf("unexpected window seconds: %d", cfg.Buffer.WindowSeconds)
	}
	if cfg.Export.DefaultWindowSeconds != 60 {
		t.Fatalf("unexpected export window: %d", cfg.Export.DefaultWindowSeconds)
	}
	if cfg.Capture.FFmpegBinary != "ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.Capture.FFmpegBinary)
	}
	if cfg.Capture.Container != "mp4" {
		t.Fatalf("unexpected container: %q", cfg.Capture.Container)
	}
	if cfg.ChunkDuration() != 10*time.Second {
		t.Fatalf("unexpected chunk duration: %s", cfg.ChunkDuration())
	}
	if cfg.BufferWindow() != 2*time.Minute {
		t.Fatalf("unexpected buffer window: %s", cfg.BufferWindow())
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.BufferDir, cfg.Paths.RecordingsDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "hindsight.toml")

	type payload struct {
		Capture struct {
			FFmpegBinary string `toml:"ffmpeg_binary"`
			FrameRate    int    `toml:"frame_rate"`
			Container    string `toml:"container"`
		} `toml:"capture"`
		Buffer struct {
			ChunkSeconds  int `toml:"chunk_seconds"`
			WindowSeconds int `toml:"window_seconds"`
		} `toml:"buffer"`
	}
	custom := payload{}
	custom.Capture.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	custom.Capture.FrameRate = 60
	custom.Capture.Container = "MKV"
	custom.Buffer.ChunkSeconds = 5
	custom.Buffer.WindowSeconds = 300
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Capture.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected ffmpeg binary from file, got %q", cfg.Capture.FFmpegBinary)
	}
	if cfg.Capture.FrameRate != 60 {
		t.Fatalf("expected frame rate 60, got %d", cfg.Capture.FrameRate)
	}
	if cfg.Capture.Container != "mkv" {
		t.Fatalf("expected container normalized to mkv, got %q", cfg.Capture.Container)
	}
	if cfg.Buffer.ChunkSeconds != 5 || cfg.Buffer.WindowSeconds != 300 {
		t.Fatalf("unexpected buffer settings: %+v", cfg.Buffer)
	}
}

func TestEnvFallbacks(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HINDSIGHT_NTFY_TOPIC", "replay-alerts")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "replay-alerts" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "buffer_dir") {
		t.Fatalf("sample config missing buffer_dir: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.BufferDir, "hindsight") {
		t.Fatalf("expected buffer dir to contain hindsight, got %q", cfg.Paths.BufferDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Buffer.ChunkSeconds = 30
	cfg.Buffer.WindowSeconds = 20
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when window is shorter than chunk")
	}

	cfg = config.Default()
	cfg.Paths.RecordingsDir = cfg.Paths.BufferDir
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for identical buffer and recordings dirs")
	}

	cfg = config.Default()
	cfg.Paths.RecordingsDir = filepath.Join(cfg.Paths.BufferDir, "exports")
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for recordings dir nested inside buffer dir")
	}

	cfg = config.Default()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}
