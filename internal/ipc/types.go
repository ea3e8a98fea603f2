package ipc

import (
	"time"

	"hindsight/internal/catalog"
)

// PingRequest probes daemon liveness.
type PingRequest struct{}

// PingResponse reports the responding daemon process.
type PingResponse struct {
	PID int `json:"pid"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// DependencyStatus describes availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
	Severity    string `json:"severity"`
}

// StatusResponse represents combined daemon and recorder status information.
type StatusResponse struct {
	Running             bool               `json:"running"`
	PID                 int                `json:"pid"`
	StartedAt           time.Time          `json:"started_at"`
	RecorderState       string             `json:"recorder_state"`
	SessionStartedAt    time.Time          `json:"session_started_at"`
	EncoderVersion      string             `json:"encoder_version"`
	ChunkCount          int                `json:"chunk_count"`
	BufferedFrom        time.Time          `json:"buffered_from"`
	BufferedUntil       time.Time          `json:"buffered_until"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	Recordings          int                `json:"recordings"`
	DBPath              string             `json:"db_path"`
	LockPath            string             `json:"lock_path"`
	LogPath             string             `json:"log_path"`
	SocketPath          string             `json:"socket_path"`
	Dependencies        []DependencyStatus `json:"dependencies"`
}

// StartRecordingRequest begins the rolling capture session.
type StartRecordingRequest struct{}

// StartRecordingResponse indicates whether capture was started.
type StartRecordingResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRecordingRequest halts the rolling capture session.
type StopRecordingRequest struct{}

// StopRecordingResponse indicates stop result.
type StopRecordingResponse struct {
	Stopped bool `json:"stopped"`
}

// ExportRequest asks the daemon to merge the last WindowSeconds of buffered
// capture into a recording. Zero selects the configured default window.
type ExportRequest struct {
	WindowSeconds int `json:"window_seconds"`
}

// ExportResponse carries the catalogued recording produced by an export.
type ExportResponse struct {
	Recording Recording `json:"recording"`
}

// RecordingsRequest lists catalogued recordings. Zero limit returns all.
type RecordingsRequest struct {
	Limit int `json:"limit"`
}

// RecordingsResponse contains recordings, newest first.
type RecordingsResponse struct {
	Recordings []Recording `json:"recordings"`
}

// RemoveRecordingRequest deletes a recording row and its artifact file.
type RemoveRecordingRequest struct {
	ID int64 `json:"id"`
}

// RemoveRecordingResponse reports what was removed.
type RemoveRecordingResponse struct {
	Removed Recording `json:"removed"`
}

// TailLogRequest pages through the daemon log file.
type TailLogRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int64 `json:"wait_millis"`
}

// TailLogResponse returns log lines and the offset to resume from.
type TailLogResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// Recording is the wire representation of a catalogued export.
type Recording struct {
	ID              int64     `json:"id"`
	UUID            string    `json:"uuid"`
	Filename        string    `json:"filename"`
	Path            string    `json:"path"`
	CreatedAt       time.Time `json:"created_at"`
	WindowSeconds   int       `json:"window_seconds"`
	ChunkCount      int       `json:"chunk_count"`
	DurationSeconds float64   `json:"duration_seconds"`
	SizeBytes       int64     `json:"size_bytes"`
}

func fromCatalogRecording(rec *catalog.Recording) Recording {
	if rec == nil {
		return Recording{}
	}
	return Recording{
		ID:              rec.ID,
		UUID:            rec.UUID,
		Filename:        rec.Filename,
		Path:            rec.Path,
		CreatedAt:       rec.CreatedAt,
		WindowSeconds:   rec.WindowSeconds,
		ChunkCount:      rec.ChunkCount,
		DurationSeconds: rec.DurationSeconds,
		SizeBytes:       rec.SizeBytes,
	}
}
