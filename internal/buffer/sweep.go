package buffer

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"hindsight/internal/logging"
)

// SweepResult contains the outcome of an orphan sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// Sweep removes leftover chunk files from dir. It runs at session start so
// files orphaned by a previous process cannot leak into the new session or
// hold disk space indefinitely.
func Sweep(dir string, logger *slog.Logger) SweepResult {
	result := SweepResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: dir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsChunkFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove orphaned chunk file",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "buffer_sweep_failed"),
					logging.String(logging.FieldErrorHint, "check buffer_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed orphaned chunk file",
				logging.String("path", path),
				logging.String(logging.FieldEventType, "buffer_sweep"),
			)
		}
	}

	return result
}
