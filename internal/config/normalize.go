package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCapture()
	c.normalizeBuffer()
	c.normalizeExport()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.BufferDir) == "" {
		c.Paths.BufferDir = defaultBufferDir
	}
	if c.Paths.BufferDir, err = expandPath(c.Paths.BufferDir); err != nil {
		return fmt.Errorf("paths.buffer_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RecordingsDir) == "" {
		c.Paths.RecordingsDir = defaultRecordingsDir
	}
	if c.Paths.RecordingsDir, err = expandPath(c.Paths.RecordingsDir); err != nil {
		return fmt.Errorf("paths.recordings_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCapture() {
	c.Capture.FFmpegBinary = strings.TrimSpace(c.Capture.FFmpegBinary)
	if c.Capture.FFmpegBinary == "" {
		if value, ok := os.LookupEnv("HINDSIGHT_FFMPEG"); ok && strings.TrimSpace(value) != "" {
			c.Capture.FFmpegBinary = strings.TrimSpace(value)
		} else {
			c.Capture.FFmpegBinary = defaultFFmpegBinary
		}
	}
	c.Capture.InputFormat = strings.ToLower(strings.TrimSpace(c.Capture.InputFormat))
	if c.Capture.InputFormat == "" {
		c.Capture.InputFormat = defaultInputFormat()
	}
	c.Capture.Source = strings.TrimSpace(c.Capture.Source)
	if c.Capture.Source == "" {
		c.Capture.Source = defaultCaptureSource()
	}
	if c.Capture.FrameRate <= 0 {
		c.Capture.FrameRate = defaultFrameRate
	}
	c.Capture.VideoSize = strings.TrimSpace(c.Capture.VideoSize)
	c.Capture.VideoCodec = strings.TrimSpace(c.Capture.VideoCodec)
	if c.Capture.VideoCodec == "" {
		c.Capture.VideoCodec = defaultVideoCodec
	}
	c.Capture.Preset = strings.TrimSpace(c.Capture.Preset)
	if c.Capture.Preset == "" {
		c.Capture.Preset = defaultPreset
	}
	c.Capture.PixelFormat = strings.TrimSpace(c.Capture.PixelFormat)
	if c.Capture.PixelFormat == "" {
		c.Capture.PixelFormat = defaultPixelFormat
	}
	c.Capture.Container = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Capture.Container), "."))
	if c.Capture.Container == "" {
		c.Capture.Container = defaultContainer
	}
}

func (c *Config) normalizeBuffer() {
	if c.Buffer.ChunkSeconds <= 0 {
		c.Buffer.ChunkSeconds = defaultChunkSeconds
	}
	if c.Buffer.WindowSeconds <= 0 {
		c.Buffer.WindowSeconds = defaultWindowSeconds
	}
}

func (c *Config) normalizeExport() {
	if c.Export.DefaultWindowSeconds <= 0 {
		c.Export.DefaultWindowSeconds = defaultExportWindowSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("HINDSIGHT_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	c.Notifications.NtfyServer = strings.TrimRight(strings.TrimSpace(c.Notifications.NtfyServer), "/")
	if c.Notifications.NtfyServer == "" {
		c.Notifications.NtfyServer = defaultNtfyServer
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
