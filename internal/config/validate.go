package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateBuffer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BufferDir) == "" {
		return errors.New("paths.buffer_dir must be set")
	}
	if strings.TrimSpace(c.Paths.RecordingsDir) == "" {
		return errors.New("paths.recordings_dir must be set")
	}
	if c.Paths.BufferDir == c.Paths.RecordingsDir {
		return errors.New("paths.buffer_dir and paths.recordings_dir must be distinct directories")
	}
	if isSubPath(c.Paths.BufferDir, c.Paths.RecordingsDir) || isSubPath(c.Paths.RecordingsDir, c.Paths.BufferDir) {
		return errors.New("paths.buffer_dir and paths.recordings_dir must not be nested within each other")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.InputFormat == "" {
		return errors.New("capture.input_format must be set")
	}
	if c.Capture.Source == "" {
		return errors.New("capture.source must be set")
	}
	if c.Capture.FrameRate <= 0 {
		return errors.New("capture.frame_rate must be positive")
	}
	return nil
}

func (c *Config) validateBuffer() error {
	if c.Buffer.ChunkSeconds <= 0 {
		return errors.New("buffer.chunk_seconds must be positive")
	}
	if c.Buffer.WindowSeconds < c.Buffer.ChunkSeconds {
		return fmt.Errorf("buffer.window_seconds (%d) must be at least buffer.chunk_seconds (%d)",
			c.Buffer.WindowSeconds, c.Buffer.ChunkSeconds)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
}

// isSubPath reports whether child lives underneath parent.
func isSubPath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
