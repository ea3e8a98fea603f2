package ffmpeg

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEncoderNotFound indicates the configured ffmpeg binary could not be
// resolved on the host.
var ErrEncoderNotFound = errors.New("ffmpeg not found")

// ErrMergeFailed marks a concat merge that did not produce an artifact.
var ErrMergeFailed = errors.New("merge failed")

// MergeError reports a failed concat merge together with the encoder's own
// diagnostic output so callers can surface it unchanged.
type MergeError struct {
	ExitCode int
	Stderr   string
}

func (e *MergeError) Error() string {
	msg := fmt.Sprintf("merge failed with exit code %d", e.ExitCode)
	if tail := strings.TrimSpace(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *MergeError) Unwrap() error {
	return ErrMergeFailed
}
