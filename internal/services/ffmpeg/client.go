package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMergeTimeout = 2 * time.Minute
	versionTimeout      = 10 * time.Second

	// captureGrace pads the per-chunk timeout so a healthy encoder is never
	// killed while finalising the container.
	captureGrace = 15 * time.Second
)

// GrabSettings describe the capture device and encoding parameters for
// screen grabs.
type GrabSettings struct {
	InputFormat string
	Source      string
	FrameRate   int
	VideoSize   string
	VideoCodec  string
	Preset      string
	PixelFormat string
	ExtraArgs   []string
}

// CaptureRequest describes one fixed-duration screen grab.
type CaptureRequest struct {
	OutputPath string
	Duration   time.Duration
}

// MergeRequest describes a lossless concat of chunk files into one artifact.
// ListPath names a concat demuxer list file prepared by the caller.
type MergeRequest struct {
	ListPath   string
	OutputPath string
}

// Client defines the encoder behaviour used by the recorder and exporter.
type Client interface {
	Capture(ctx context.Context, req CaptureRequest) (*Process, error)
	Merge(ctx context.Context, req MergeRequest) error
	Version(ctx context.Context) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if trimmed := strings.TrimSpace(binary); trimmed != "" {
			c.binary = trimmed
		}
	}
}

// WithMergeTimeout bounds how long a concat merge may run.
func WithMergeTimeout(timeout time.Duration) Option {
	return func(c *CLI) {
		if timeout > 0 {
			c.mergeTimeout = timeout
		}
	}
}

// CLI wraps the ffmpeg command-line encoder.
type CLI struct {
	binary       string
	grab         GrabSettings
	mergeTimeout time.Duration
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(grab GrabSettings, opts ...Option) *CLI {
	cli := &CLI{
		binary:       "ffmpeg",
		grab:         grab,
		mergeTimeout: defaultMergeTimeout,
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Capture starts a fixed-duration grab of the configured source and returns
// the running process. The caller owns the handle and must Wait on it.
func (c *CLI) Capture(ctx context.Context, req CaptureRequest) (*Process, error) {
	if strings.TrimSpace(req.OutputPath) == "" {
		return nil, errors.New("output path required")
	}
	if req.Duration <= 0 {
		return nil, errors.New("duration must be positive")
	}
	spec := Spec{
		Binary:  c.binary,
		Args:    c.captureArgs(req),
		Timeout: req.Duration + captureGrace,
	}
	return Start(ctx, spec)
}

func (c *CLI) captureArgs(req CaptureRequest) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", c.grab.InputFormat}
	if c.grab.FrameRate > 0 {
		args = append(args, "-framerate", strconv.Itoa(c.grab.FrameRate))
	}
	if c.grab.VideoSize != "" {
		args = append(args, "-video_size", c.grab.VideoSize)
	}
	args = append(args, "-i", c.grab.Source, "-t", formatSeconds(req.Duration))
	if c.grab.VideoCodec != "" {
		args = append(args, "-c:v", c.grab.VideoCodec)
	}
	if c.grab.Preset != "" {
		args = append(args, "-preset", c.grab.Preset)
	}
	if c.grab.PixelFormat != "" {
		args = append(args, "-pix_fmt", c.grab.PixelFormat)
	}
	args = append(args, c.grab.ExtraArgs...)
	return append(args, "-y", req.OutputPath)
}

// Merge concatenates the chunk files listed in req.ListPath into a single
// artifact without re-encoding. Failures carry the encoder's stderr via
// MergeError.
func (c *CLI) Merge(ctx context.Context, req MergeRequest) error {
	if strings.TrimSpace(req.ListPath) == "" {
		return errors.New("list path required")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return errors.New("output path required")
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", req.ListPath,
		"-c", "copy",
		"-y", req.OutputPath,
	}
	proc, err := Start(ctx, Spec{Binary: c.binary, Args: args, Timeout: c.mergeTimeout})
	if err != nil {
		return err
	}
	result, err := proc.Wait()
	if err != nil {
		return &MergeError{ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return nil
}

// Version reports the first line of `ffmpeg -version` output.
func (c *CLI) Version(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	cmd := commandContext(runCtx, c.binary, "-version") //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrEncoderNotFound, c.binary)
		}
		return "", fmt.Errorf("probe %s: %w", c.binary, err)
	}
	line, _, _ := strings.Cut(string(output), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("probe %s: empty version output", c.binary)
	}
	return line, nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

var _ Client = (*CLI)(nil)
