package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var commandContext = exec.CommandContext

// stderrTailLines bounds the diagnostic output retained per process.
const stderrTailLines = 40

// Spec describes a single encoder invocation.
type Spec struct {
	Binary  string
	Args    []string
	Timeout time.Duration
}

// Result reports how a finished process exited.
type Result struct {
	ExitCode int
	Stderr   string
}

// Process supervises one running encoder command. The handle stays valid
// after the command exits; Wait and Cancel may be called in any order and
// any number of times.
type Process struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result Result
	err    error
}

// Start launches the command described by spec. The process runs until it
// exits on its own, the context is cancelled, Cancel is called, or the spec
// timeout elapses.
func Start(ctx context.Context, spec Spec) (*Process, error) {
	binary := strings.TrimSpace(spec.Binary)
	if binary == "" {
		return nil, errors.New("binary required")
	}

	var runCtx context.Context
	var cancel context.CancelFunc
	if spec.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	cmd := commandContext(runCtx, binary, spec.Args...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEncoderNotFound, binary)
		}
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	proc := &Process{cancel: cancel, done: make(chan struct{})}
	go proc.supervise(cmd, stderr)
	return proc, nil
}

func (p *Process) supervise(cmd *exec.Cmd, stderr io.Reader) {
	defer close(p.done)
	defer p.cancel()

	tail := newLineTail(stderrTailLines)
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 512*1024)
	for scanner.Scan() {
		tail.add(scanner.Text())
	}

	err := cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.result.Stderr = tail.String()
	if err != nil {
		p.result.ExitCode = exitCode(err)
		p.err = err
	}
}

// Wait blocks until the process has exited and returns its result. Repeated
// calls report the same outcome.
func (p *Process) Wait() (Result, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result, p.err
}

// Cancel terminates the process. It is idempotent and safe to call after
// the process has already exited.
func (p *Process) Cancel() {
	p.cancel()
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// lineTail keeps the newest lines written to it, preserving arrival order.
type lineTail struct {
	lines []string
	next  int
	full  bool
}

func newLineTail(capacity int) *lineTail {
	return &lineTail{lines: make([]string, capacity)}
}

func (t *lineTail) add(line string) {
	if len(t.lines) == 0 {
		return
	}
	t.lines[t.next] = line
	t.next = (t.next + 1) % len(t.lines)
	if t.next == 0 {
		t.full = true
	}
}

func (t *lineTail) String() string {
	if !t.full {
		return strings.Join(t.lines[:t.next], "\n")
	}
	ordered := make([]string, 0, len(t.lines))
	ordered = append(ordered, t.lines[t.next:]...)
	ordered = append(ordered, t.lines[:t.next]...)
	return strings.Join(ordered, "\n")
}
