package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

const (
	// maxLineBytes bounds a single log line; longer lines abort the read.
	maxLineBytes = 1024 * 1024
	// pollInterval paces follow-mode checks for new lines.
	pollInterval = 250 * time.Millisecond
)

// TailOptions selects which part of the log file to read.
type TailOptions struct {
	// Offset is the byte position to resume from. Negative means
	// "last Limit lines of the file".
	Offset int64
	// Limit caps the number of lines returned in last-lines mode.
	Limit int
	// Follow keeps polling for new lines when the read comes back empty.
	Follow bool
	// Wait bounds how long a follow call may block.
	Wait time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads log lines according to opts. A missing file is not an error;
// the caller simply gets an empty result with offset zero and retries later.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		result.Offset = 0
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}

	if opts.Wait < 0 {
		opts.Wait = 0
	}

	var lines []string
	var next int64
	if opts.Offset < 0 {
		lines, next, err = lastLines(path, opts.Limit)
	} else {
		start := opts.Offset
		if start > info.Size() {
			// The file was rotated or truncated underneath us.
			start = info.Size()
		}
		lines, next, err = linesFrom(path, start)
	}
	if err != nil {
		return result, err
	}

	result.Lines = lines
	result.Offset = next
	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return awaitLines(ctx, path, next, opts.Wait)
	}
	return result, nil
}

// lastLines scans the whole file and keeps the newest limit lines.
// It returns the end-of-file offset so the caller can follow from there.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, seekErr := file.Seek(0, io.SeekEnd)
		if seekErr != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", seekErr)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	total := 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		ring[total%limit] = scanner.Text()
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	count := total
	if count > limit {
		count = limit
	}
	lines := make([]string, count)
	for i := 0; i < count; i++ {
		lines[i] = ring[(total-count+i)%limit]
	}
	return lines, end, nil
}

// linesFrom reads every complete line starting at offset and reports the
// position reached, which becomes the next call's offset.
func linesFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	scanner := newLineScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, end, nil
}

// awaitLines polls for new lines until some arrive, the wait budget runs
// out, or the context is cancelled.
func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, next, err := linesFrom(path, offset)
		if err != nil {
			return result, err
		}
		if len(lines) > 0 {
			result.Lines = lines
			result.Offset = next
			return result, nil
		}
		result.Offset = next

		if !time.Now().Before(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
