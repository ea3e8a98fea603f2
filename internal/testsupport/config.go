package testsupport

import (
	"path/filepath"
	"testing"

	"hindsight/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BufferDir = filepath.Join(base, "buffer")
	cfg.Paths.RecordingsDir = filepath.Join(base, "recordings")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DatabasePath = filepath.Join(base, "hindsight.db")
	cfg.Buffer.ChunkSeconds = 1
	cfg.Buffer.WindowSeconds = 10
	cfg.Export.DefaultWindowSeconds = 5
	cfg.Notifications.Exports = false
	cfg.Notifications.Lifecycle = false

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure config directories: %v", err)
	}

	return &cfg
}

// WithNtfyTopic enables notifications against the given topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
		cfg.Notifications.Exports = true
		cfg.Notifications.Lifecycle = true
	}
}

