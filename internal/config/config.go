package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database location configuration.
type Paths struct {
	BufferDir     string `toml:"buffer_dir"`
	RecordingsDir string `toml:"recordings_dir"`
	LogDir        string `toml:"log_dir"`
	DatabasePath  string `toml:"database_path"`
}

// Capture contains configuration for the ffmpeg screen grab invocation.
type Capture struct {
	FFmpegBinary string   `toml:"ffmpeg_binary"`
	InputFormat  string   `toml:"input_format"`
	Source       string   `toml:"source"`
	FrameRate    int      `toml:"frame_rate"`
	VideoSize    string   `toml:"video_size"`
	VideoCodec   string   `toml:"video_codec"`
	Preset       string   `toml:"preset"`
	PixelFormat  string   `toml:"pixel_format"`
	Container    string   `toml:"container"`
	ExtraArgs    []string `toml:"extra_args"`
}

// Buffer contains the rolling buffer window settings.
type Buffer struct {
	ChunkSeconds  int `toml:"chunk_seconds"`
	WindowSeconds int `toml:"window_seconds"`
}

// Export contains settings for replay exports.
type Export struct {
	DefaultWindowSeconds int `toml:"default_window_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	NtfyServer     string `toml:"ntfy_server"`
	RequestTimeout int    `toml:"request_timeout"`
	Exports        bool   `toml:"exports"`
	Lifecycle      bool   `toml:"lifecycle"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hindsight.
//
// Configuration sections by subsystem:
//   - Paths: buffer/recordings/log directories and the catalog database
//   - Capture: ffmpeg screen grab parameters
//   - Buffer: chunk length and rolling window retention
//   - Export: replay export defaults
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Capture       Capture       `toml:"capture"`
	Buffer        Buffer        `toml:"buffer"`
	Export        Export        `toml:"export"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hindsight/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hindsight.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.BufferDir, c.Paths.RecordingsDir, c.Paths.LogDir}
	if dir := filepath.Dir(c.Paths.DatabasePath); dir != "" && dir != "." {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ChunkDuration returns the fixed length of one capture chunk.
func (c *Config) ChunkDuration() time.Duration {
	return time.Duration(c.Buffer.ChunkSeconds) * time.Second
}

// BufferWindow returns the rolling retention window.
func (c *Config) BufferWindow() time.Duration {
	return time.Duration(c.Buffer.WindowSeconds) * time.Second
}

// DefaultExportWindow returns the replay window used when a caller supplies none.
func (c *Config) DefaultExportWindow() time.Duration {
	return time.Duration(c.Export.DefaultWindowSeconds) * time.Second
}

// ChunkExtension returns the container file extension without a leading dot.
func (c *Config) ChunkExtension() string {
	return strings.TrimPrefix(strings.TrimSpace(c.Capture.Container), ".")
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "hindsight.sock")
}

// PIDFilePath returns the daemon pid file location.
func (c *Config) PIDFilePath() string {
	return filepath.Join(c.Paths.LogDir, "hindsight.pid")
}

// LockFilePath returns the single-instance lock file location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.LogDir, "hindsight.lock")
}

// DaemonLogPath returns the daemon log file location.
func (c *Config) DaemonLogPath() string {
	return filepath.Join(c.Paths.LogDir, "hindsight.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
