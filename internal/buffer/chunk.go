package buffer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	chunkPrefix     = "chunk_"
	chunkTimeLayout = "2006-01-02T15-04-05.000"
)

// Chunk is one recorded capture segment tracked by the rolling buffer.
type Chunk struct {
	ID        uuid.UUID
	Path      string
	StartedAt time.Time
	Duration  time.Duration
	Size      int64
}

// End reports the instant the chunk stopped covering.
func (c Chunk) End() time.Time {
	return c.StartedAt.Add(c.Duration)
}

// FileName returns the canonical buffer file name for a chunk starting at
// startedAt, for example chunk_2026-08-25T10-30-00.000.mp4.
func FileName(startedAt time.Time, extension string) string {
	ext := strings.TrimPrefix(strings.TrimSpace(extension), ".")
	return fmt.Sprintf("%s%s.%s", chunkPrefix, startedAt.UTC().Format(chunkTimeLayout), ext)
}

// IsChunkFile reports whether name looks like a buffer chunk file.
func IsChunkFile(name string) bool {
	return strings.HasPrefix(name, chunkPrefix)
}
