package preflight

import (
	"hindsight/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Buffer directory", cfg.Paths.BufferDir),
		CheckDirectoryAccess("Recordings directory", cfg.Paths.RecordingsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDiskSpace("Buffer disk space", cfg.Paths.BufferDir),
	}

	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Detail
		if detail == "" {
			detail = status.Command
		}
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: detail,
		})
	}

	return results
}
