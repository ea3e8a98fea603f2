package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStartRequiresBinary(t *testing.T) {
	if _, err := Start(context.Background(), Spec{}); err == nil {
		t.Fatal("expected error when binary is empty")
	}
}

func TestStartReportsMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), Spec{Binary: "hindsight-missing-encoder"})
	if !errors.Is(err, ErrEncoderNotFound) {
		t.Fatalf("expected ErrEncoderNotFound, got %v", err)
	}
}

func TestProcessWaitReportsSameOutcomeTwice(t *testing.T) {
	stubCommandContext(t, "fail", nil)

	proc, err := Start(context.Background(), Spec{Binary: "ffmpeg"})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	first, firstErr := proc.Wait()
	second, secondErr := proc.Wait()
	if firstErr == nil || secondErr == nil {
		t.Fatal("expected failure from both Wait calls")
	}
	if first.ExitCode != second.ExitCode {
		t.Fatalf("expected identical exit codes, got %d and %d", first.ExitCode, second.ExitCode)
	}
	if first.Stderr != second.Stderr {
		t.Fatal("expected identical stderr from both Wait calls")
	}
}

func TestProcessCancelStopsCommand(t *testing.T) {
	stubCommandContext(t, "hang", nil)

	proc, err := Start(context.Background(), Spec{Binary: "ffmpeg"})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	proc.Cancel()

	waitDone := make(chan error, 1)
	go func() {
		_, waitErr := proc.Wait()
		waitDone <- waitErr
	}()
	select {
	case waitErr := <-waitDone:
		if waitErr == nil {
			t.Fatal("expected cancelled process to report an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after Cancel")
	}

	// Safe after completion.
	proc.Cancel()
	proc.Cancel()
}

func TestProcessTimeoutKillsCommand(t *testing.T) {
	stubCommandContext(t, "hang", nil)

	proc, err := Start(context.Background(), Spec{Binary: "ffmpeg", Timeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if _, waitErr := proc.Wait(); waitErr == nil {
		t.Fatal("expected timed-out process to report an error")
	}
}

func TestProcessKeepsNewestStderrLines(t *testing.T) {
	stubCommandContext(t, "noisy-fail", nil)

	proc, err := Start(context.Background(), Spec{Binary: "ffmpeg"})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	result, waitErr := proc.Wait()
	if waitErr == nil {
		t.Fatal("expected failure")
	}
	if strings.Contains(result.Stderr, "frame 0 dropped") {
		t.Fatal("expected oldest lines to be evicted from the tail")
	}
	if !strings.Contains(result.Stderr, "frame 99 dropped") {
		t.Fatalf("expected newest line to be retained, got %q", result.Stderr)
	}
}

func TestLineTailKeepsNewestInOrder(t *testing.T) {
	tail := newLineTail(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		tail.add(line)
	}
	if got := tail.String(); got != "c\nd\ne" {
		t.Fatalf("expected newest three lines in order, got %q", got)
	}

	short := newLineTail(3)
	short.add("only")
	if got := short.String(); got != "only" {
		t.Fatalf("expected single line, got %q", got)
	}
}
