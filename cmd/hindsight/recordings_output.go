package main

import (
	"fmt"
	"time"

	"hindsight/internal/ipc"
)

func buildRecordingRows(recordings []ipc.Recording) [][]string {
	rows := make([][]string, 0, len(recordings))
	for _, rec := range recordings {
		rows = append(rows, []string{
			fmt.Sprintf("%d", rec.ID),
			rec.Filename,
			formatDisplayTime(rec.CreatedAt),
			formatWindow(rec.WindowSeconds),
			formatDuration(rec.DurationSeconds),
			formatSize(rec.SizeBytes),
		})
	}
	return rows
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatWindow(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second))
	return d.Round(100 * time.Millisecond).String()
}

func formatSize(bytes int64) string {
	if bytes < 0 {
		return "-"
	}
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	value := float64(bytes)
	exponent := 0
	for value >= unit && exponent < 5 {
		value /= unit
		exponent++
	}
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPE"[exponent-1])
}
