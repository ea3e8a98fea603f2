package daemonctl

import (
	"fmt"
	"strings"
	"time"

	"hindsight/internal/config"
	"hindsight/internal/ipc"
	"hindsight/internal/preflight"
)

// StatusLine is one rendered row of `hindsight status` output.
type StatusLine struct {
	Label    string
	Severity string
	Detail   string
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int
	Available       int
	MissingRequired int
	MissingOptional int
	Severity        string
	Detail          string
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(cfg *config.Config) []ipc.DependencyStatus {
	if cfg == nil {
		return nil
	}

	checks := preflight.CheckSystemDeps(cfg)
	statuses := make([]ipc.DependencyStatus, 0, len(checks))
	for _, check := range checks {
		status := ipc.DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
		}
		status.Severity = dependencySeverity(status)
		statuses = append(statuses, status)
	}
	return statuses
}

// BuildSystemChecks resolves status lines that combine runtime state and config checks.
func BuildSystemChecks(cfg *config.Config, status *ipc.StatusResponse) []StatusLine {
	lines := make([]StatusLine, 0, 5)
	if status == nil {
		status = &ipc.StatusResponse{}
	}

	if status.Running {
		lines = append(lines, StatusLine{Label: "Daemon", Severity: "ok", Detail: fmt.Sprintf("Running (pid %d)", status.PID)})
	} else {
		lines = append(lines, StatusLine{Label: "Daemon", Severity: "warn", Detail: "Not running (run `hindsight daemon start`)"})
	}

	switch {
	case !status.Running:
		lines = append(lines, StatusLine{Label: "Recorder", Severity: "info", Detail: "Inactive (daemon not running)"})
	case status.RecorderState == "recording" && status.ConsecutiveFailures > 0:
		lines = append(lines, StatusLine{
			Label:    "Recorder",
			Severity: "warn",
			Detail:   fmt.Sprintf("Recording with %d consecutive capture failures", status.ConsecutiveFailures),
		})
	case status.RecorderState == "recording":
		lines = append(lines, StatusLine{Label: "Recorder", Severity: "ok", Detail: recordingDetail(status.SessionStartedAt)})
	default:
		lines = append(lines, StatusLine{Label: "Recorder", Severity: "info", Detail: "Idle (run `hindsight start`)"})
	}

	if status.ChunkCount > 0 {
		lines = append(lines, StatusLine{Label: "Buffer", Severity: "ok", Detail: bufferDetail(cfg, status)})
	} else {
		lines = append(lines, StatusLine{Label: "Buffer", Severity: "info", Detail: "Empty"})
	}

	if cfg != nil {
		disk := preflight.CheckDiskSpace("Disk space", cfg.Paths.BufferDir)
		severity := "warn"
		if disk.Passed {
			severity = "ok"
		}
		lines = append(lines, StatusLine{Label: "Disk space", Severity: severity, Detail: disk.Detail})

		if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
			lines = append(lines, StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
		} else {
			lines = append(lines, StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
		}
	}

	return lines
}

// BuildDirectoryChecks resolves configured directory readiness.
func BuildDirectoryChecks(cfg *config.Config) []StatusLine {
	if cfg == nil {
		return nil
	}
	lines := make([]StatusLine, 0, 3)
	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Buffer", path: cfg.Paths.BufferDir},
		{label: "Recordings", path: cfg.Paths.RecordingsDir},
		{label: "Logs", path: cfg.Paths.LogDir},
	} {
		result := preflight.CheckDirectoryAccess(dir.label, dir.path)
		severity := "error"
		if result.Passed {
			severity = "ok"
		}
		lines = append(lines, StatusLine{
			Label:    dir.label,
			Severity: severity,
			Detail:   result.Detail,
		})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []ipc.DependencyStatus) DependencySummary {
	if len(deps) == 0 {
		return DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(deps) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(deps), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(deps))
	}

	return DependencySummary{
		Total:           len(deps),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}

func dependencySeverity(dep ipc.DependencyStatus) string {
	if dep.Available {
		return "ok"
	}
	if dep.Optional {
		return "warn"
	}
	return "error"
}

func recordingDetail(sessionStartedAt time.Time) string {
	if sessionStartedAt.IsZero() {
		return "Recording"
	}
	return fmt.Sprintf("Recording since %s", sessionStartedAt.Local().Format("15:04:05"))
}

func bufferDetail(cfg *config.Config, status *ipc.StatusResponse) string {
	span := status.BufferedUntil.Sub(status.BufferedFrom)
	if span < 0 {
		span = 0
	}
	detail := fmt.Sprintf("%d chunks buffered (%s", status.ChunkCount, span.Round(time.Second))
	if cfg != nil && cfg.Buffer.WindowSeconds > 0 {
		detail += fmt.Sprintf(" of %ds window", cfg.Buffer.WindowSeconds)
	}
	return detail + ")"
}
