package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hindsight/internal/config"
)

const userAgent = "Hindsight/0.1.0"

// Service defines the notification surface exposed to daemon components.
type Service interface {
	NotifyRecordingStarted(ctx context.Context) error
	NotifyRecordingStopped(ctx context.Context) error
	NotifyExportCompleted(ctx context.Context, filename string, window time.Duration, sizeBytes int64) error
	NotifyExportFailed(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	endpoint := topic
	if !strings.Contains(topic, "://") {
		server := strings.TrimRight(strings.TrimSpace(cfg.Notifications.NtfyServer), "/")
		if server == "" {
			server = "https://ntfy.sh"
		}
		endpoint = server + "/" + topic
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		exports:   cfg.Notifications.Exports,
		lifecycle: cfg.Notifications.Lifecycle,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	exports   bool
	lifecycle bool
}

func (n *ntfyService) NotifyRecordingStarted(ctx context.Context) error {
	if !n.lifecycle {
		return nil
	}
	data := payload{
		title:   "Hindsight - Recording",
		message: "🔴 Rolling buffer recording started",
		tags:    []string{"hindsight", "recording", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRecordingStopped(ctx context.Context) error {
	if !n.lifecycle {
		return nil
	}
	data := payload{
		title:   "Hindsight - Recording",
		message: "Rolling buffer recording stopped",
		tags:    []string{"hindsight", "recording", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExportCompleted(ctx context.Context, filename string, window time.Duration, sizeBytes int64) error {
	if !n.exports {
		return nil
	}
	window = window.Round(time.Second)
	data := payload{
		title:   "Hindsight - Export Complete",
		message: fmt.Sprintf("🎬 Exported last %s to %s (%s)", window, filename, humanSize(sizeBytes)),
		tags:    []string{"hindsight", "export", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExportFailed(ctx context.Context, err error) error {
	if !n.exports {
		return nil
	}
	message := "Export failed"
	if err != nil {
		message = fmt.Sprintf("Export failed: %s", strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Hindsight - Export Failed",
		message:  message,
		tags:     []string{"hindsight", "export", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Hindsight - Test",
		message:  "Notification system test",
		tags:     []string{"hindsight", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

type noopService struct{}

func (noopService) NotifyRecordingStarted(context.Context) error  { return nil }
func (noopService) NotifyRecordingStopped(context.Context) error  { return nil }
func (noopService) NotifyExportCompleted(context.Context, string, time.Duration, int64) error {
	return nil
}
func (noopService) NotifyExportFailed(context.Context, error) error { return nil }
func (noopService) TestNotification(context.Context) error          { return nil }
