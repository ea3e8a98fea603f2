package buffer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hindsight/internal/logging"
)

// Store is the mutex-guarded chunk index for the rolling buffer. Chunks are
// held in ascending start order. Every mutation that drops a chunk also
// deletes its backing file, so the index and the buffer directory never
// drift apart while the store is alive.
type Store struct {
	mu     sync.Mutex
	chunks []Chunk
	pins   map[uuid.UUID]int
	logger *slog.Logger
}

// NewStore returns an empty store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		pins:   make(map[uuid.UUID]int),
		logger: logging.NewComponentLogger(logger, "buffer"),
	}
}

// Add inserts chunk into the index, keeping ascending start order.
func (s *Store) Add(chunk Chunk) error {
	if chunk.ID == uuid.Nil {
		return errors.New("chunk id required")
	}
	if strings.TrimSpace(chunk.Path) == "" {
		return errors.New("chunk path required")
	}
	if chunk.Duration <= 0 {
		return errors.New("chunk duration must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.chunks {
		if existing.ID == chunk.ID {
			return fmt.Errorf("chunk %s already tracked", chunk.ID)
		}
	}
	idx := sort.Search(len(s.chunks), func(i int) bool {
		return s.chunks[i].StartedAt.After(chunk.StartedAt)
	})
	s.chunks = append(s.chunks, Chunk{})
	copy(s.chunks[idx+1:], s.chunks[idx:])
	s.chunks[idx] = chunk
	return nil
}

// Remove deletes the chunk's backing file and drops it from the index. File
// deletion failures are logged and swallowed; the record is always removed.
func (s *Store) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, chunk := range s.chunks {
		if chunk.ID == id {
			s.deleteFileLocked(chunk)
			s.chunks = append(s.chunks[:i], s.chunks[i+1:]...)
			delete(s.pins, id)
			return true
		}
	}
	return false
}

// QueryRange returns the chunks whose start time falls inside [from, to]
// inclusive, oldest first. The returned slice is a copy.
func (s *Store) QueryRange(from, to time.Time) []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectRangeLocked(from, to)
}

// PinRange atomically selects the chunks inside [from, to] and pins them so
// eviction cannot delete their files while an export reads them. The
// returned release is idempotent; expired chunks are reclaimed by the next
// eviction pass after release.
func (s *Store) PinRange(from, to time.Time) ([]Chunk, func()) {
	s.mu.Lock()
	selected := s.selectRangeLocked(from, to)
	ids := make([]uuid.UUID, 0, len(selected))
	for _, chunk := range selected {
		s.pins[chunk.ID]++
		ids = append(ids, chunk.ID)
	}
	s.mu.Unlock()
	return selected, s.releaseFunc(ids)
}

// Pin protects the given chunks from eviction until the returned release is
// called.
func (s *Store) Pin(chunks []Chunk) func() {
	ids := make([]uuid.UUID, 0, len(chunks))
	s.mu.Lock()
	for _, chunk := range chunks {
		s.pins[chunk.ID]++
		ids = append(ids, chunk.ID)
	}
	s.mu.Unlock()
	return s.releaseFunc(ids)
}

// EvictExpired removes every unpinned chunk that started before now minus
// window and deletes its backing file. It reports how many chunks were
// evicted.
func (s *Store) EvictExpired(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chunks[:0]
	evicted := 0
	for _, chunk := range s.chunks {
		if chunk.StartedAt.Before(cutoff) && s.pins[chunk.ID] == 0 {
			s.deleteFileLocked(chunk)
			evicted++
			continue
		}
		kept = append(kept, chunk)
	}
	s.chunks = kept
	return evicted
}

// Clear evicts every unpinned chunk regardless of age. It runs at session
// start so a new recording session never inherits chunks from the previous
// one.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chunks[:0]
	removed := 0
	for _, chunk := range s.chunks {
		if s.pins[chunk.ID] == 0 {
			s.deleteFileLocked(chunk)
			removed++
			continue
		}
		kept = append(kept, chunk)
	}
	s.chunks = kept
	return removed
}

// Len reports the number of tracked chunks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Snapshot returns a copy of the index, oldest first.
func (s *Store) Snapshot() []Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Span reports the extent covered by the buffer, from the oldest chunk's
// start to the newest chunk's end. ok is false when the buffer is empty.
func (s *Store) Span() (oldest, newest time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) == 0 {
		return time.Time{}, time.Time{}, false
	}
	oldest = s.chunks[0].StartedAt
	newest = s.chunks[0].End()
	for _, chunk := range s.chunks[1:] {
		if end := chunk.End(); end.After(newest) {
			newest = end
		}
	}
	return oldest, newest, true
}

func (s *Store) selectRangeLocked(from, to time.Time) []Chunk {
	out := make([]Chunk, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if chunk.StartedAt.Before(from) || chunk.StartedAt.After(to) {
			continue
		}
		out = append(out, chunk)
	}
	return out
}

func (s *Store) releaseFunc(ids []uuid.UUID) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, id := range ids {
				if s.pins[id] <= 1 {
					delete(s.pins, id)
					continue
				}
				s.pins[id]--
			}
		})
	}
}

func (s *Store) deleteFileLocked(chunk Chunk) {
	if err := os.Remove(chunk.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove chunk file",
			logging.String("path", chunk.Path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "buffer_evict_failed"),
			logging.String(logging.FieldErrorHint, "check buffer_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}
}
