package buffer_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"hindsight/internal/buffer"
	"hindsight/internal/logging"
)

func makeChunk(t *testing.T, dir string, start time.Time, duration time.Duration) buffer.Chunk {
	t.Helper()
	path := filepath.Join(dir, buffer.FileName(start, "mp4"))
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write chunk file: %v", err)
	}
	return buffer.Chunk{
		ID:        uuid.New(),
		Path:      path,
		StartedAt: start,
		Duration:  duration,
		Size:      int64(len("payload")),
	}
}

func fileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if os.IsNotExist(err) {
		return false
	}
	t.Fatalf("stat %s: %v", path, err)
	return false
}

func TestStoreAddKeepsAscendingOrder(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())
	base := time.Date(2026, time.August, 25, 10, 30, 0, 0, time.UTC)

	second := makeChunk(t, dir, base.Add(10*time.Second), 10*time.Second)
	first := makeChunk(t, dir, base, 10*time.Second)
	third := makeChunk(t, dir, base.Add(20*time.Second), 10*time.Second)

	for _, chunk := range []buffer.Chunk{second, third, first} {
		if err := store.Add(chunk); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(snapshot))
	}
	for i := 1; i < len(snapshot); i++ {
		if snapshot[i].StartedAt.Before(snapshot[i-1].StartedAt) {
			t.Fatalf("snapshot out of order: %v before %v", snapshot[i].StartedAt, snapshot[i-1].StartedAt)
		}
	}
	if snapshot[0].ID != first.ID {
		t.Fatal("expected earliest chunk first")
	}
}

func TestStoreAddValidatesChunk(t *testing.T) {
	store := buffer.NewStore(logging.NewNop())
	base := time.Now()

	if err := store.Add(buffer.Chunk{Path: "/tmp/x.mp4", StartedAt: base, Duration: time.Second}); err == nil {
		t.Fatal("expected error for missing id")
	}
	if err := store.Add(buffer.Chunk{ID: uuid.New(), StartedAt: base, Duration: time.Second}); err == nil {
		t.Fatal("expected error for missing path")
	}
	if err := store.Add(buffer.Chunk{ID: uuid.New(), Path: "/tmp/x.mp4", StartedAt: base}); err == nil {
		t.Fatal("expected error for non-positive duration")
	}
}

func TestStoreAddRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())
	chunk := makeChunk(t, dir, time.Now().UTC(), 10*time.Second)

	if err := store.Add(chunk); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := store.Add(chunk); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}
}

func TestStoreQueryRangeInclusiveBounds(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())
	base := time.Date(2026, time.August, 25, 10, 30, 0, 0, time.UTC)

	first := makeChunk(t, dir, base, 10*time.Second)
	second := makeChunk(t, dir, base.Add(10*time.Second), 10*time.Second)
	third := makeChunk(t, dir, base.Add(20*time.Second), 10*time.Second)
	for _, chunk := range []buffer.Chunk{first, second, third} {
		if err := store.Add(chunk); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	got := store.QueryRange(base, base.Add(10*time.Second))
	if len(got) != 2 {
		t.Fatalf("expected both boundary chunks, got %d", len(got))
	}
	if got[0].ID != first.ID || got[1].ID != second.ID {
		t.Fatal("expected chunks at both inclusive bounds")
	}
}

func TestStoreEvictExpiredDeletesFilesAndRecords(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())
	base := time.Date(2026, time.August, 25, 10, 30, 0, 0, time.UTC)

	old := makeChunk(t, dir, base, 10*time.Second)
	stale := makeChunk(t, dir, base.Add(30*time.Second), 10*time.Second)
	fresh := makeChunk(t, dir, base.Add(110*time.Second), 10*time.Second)
	for _, chunk := range []buffer.Chunk{old, stale, fresh} {
		if err := store.Add(chunk); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	now := base.Add(120 * time.Second)
	if evicted := store.EvictExpired(now, 60*time.Second); evicted != 2 {
		t.Fatalf("expected 2 evictions, got %d", evicted)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 chunk left, got %d", store.Len())
	}
	if fileExists(t, old.Path) || fileExists(t, stale.Path) {
		t.Fatal("expected expired chunk files to be deleted")
	}
	if !fileExists(t, fresh.Path) {
		t.Fatal("expected fresh chunk file to survive")
	}
}

func TestStoreEvictExpiredSkipsPinnedChunks(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())
	base := time.Date(2026, time.August, 25, 10, 30, 0, 0, time.UTC)

	old := makeChunk(t, dir, base, 10*time.Second)
	if err := store.Add(old); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	pinned, release := store.PinRange(base, base.Add(time.Minute))
	if len(pinned) != 1 {
		t.Fatalf("expected 1 pinned chunk, got %d", len(pinned))
	}

	now := base.Add(10 * time.Minute)
	if evicted := store.EvictExpired(now, time.Minute); evicted != 0 {
		t.Fatalf("expected pinned chunk to survive, evicted %d", evicted)
	}
	if !fileExists(t, old.Path) {
		t.Fatal("expected pinned chunk file to survive eviction")
	}

	release()
	if evicted := store.EvictExpired(now, time.Minute); evicted != 1 {
		t.Fatalf("expected released chunk to be reclaimed, evicted %d", evicted)
	}
	if fileExists(t, old.Path) {
		t.Fatal("expected released chunk file to be deleted")
	}
}

func TestStoreClearKeepsPinnedChunks(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())
	base := time.Date(2026, time.August, 25, 10, 30, 0, 0, time.UTC)

	pinnedChunk := makeChunk(t, dir, base, 10*time.Second)
	looseChunk := makeChunk(t, dir, base.Add(10*time.Second), 10*time.Second)
	for _, chunk := range []buffer.Chunk{pinnedChunk, looseChunk} {
		if err := store.Add(chunk); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	release := store.Pin([]buffer.Chunk{pinnedChunk})
	if removed := store.Clear(); removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if !fileExists(t, pinnedChunk.Path) {
		t.Fatal("expected pinned chunk to survive Clear")
	}

	release()
	if removed := store.Clear(); removed != 1 {
		t.Fatalf("expected released chunk to be cleared, got %d", removed)
	}
}

func TestStoreRemoveDeletesBackingFile(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())
	chunk := makeChunk(t, dir, time.Now().UTC(), 10*time.Second)
	if err := store.Add(chunk); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	if !store.Remove(chunk.ID) {
		t.Fatal("expected Remove to report success")
	}
	if fileExists(t, chunk.Path) {
		t.Fatal("expected backing file to be deleted")
	}
	if store.Remove(chunk.ID) {
		t.Fatal("expected second Remove to report absence")
	}
}

func TestStoreRemoveSurvivesMissingFile(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())
	chunk := makeChunk(t, dir, time.Now().UTC(), 10*time.Second)
	if err := store.Add(chunk); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := os.Remove(chunk.Path); err != nil {
		t.Fatalf("remove backing file: %v", err)
	}

	if !store.Remove(chunk.ID) {
		t.Fatal("expected Remove to drop the record despite missing file")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d chunks", store.Len())
	}
}

func TestStoreReleaseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())
	base := time.Date(2026, time.August, 25, 10, 30, 0, 0, time.UTC)

	chunk := makeChunk(t, dir, base, 10*time.Second)
	if err := store.Add(chunk); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}

	// Two overlapping pins; double-releasing one must not unpin the other.
	_, releaseFirst := store.PinRange(base, base.Add(time.Minute))
	_, releaseSecond := store.PinRange(base, base.Add(time.Minute))
	releaseFirst()
	releaseFirst()

	now := base.Add(10 * time.Minute)
	if evicted := store.EvictExpired(now, time.Minute); evicted != 0 {
		t.Fatalf("expected chunk to stay pinned, evicted %d", evicted)
	}

	releaseSecond()
	if evicted := store.EvictExpired(now, time.Minute); evicted != 1 {
		t.Fatalf("expected chunk to be reclaimed, evicted %d", evicted)
	}
}

func TestStoreSpanReportsBufferExtent(t *testing.T) {
	dir := t.TempDir()
	store := buffer.NewStore(logging.NewNop())

	if _, _, ok := store.Span(); ok {
		t.Fatal("expected empty store to report no span")
	}

	base := time.Date(2026, time.August, 25, 10, 30, 0, 0, time.UTC)
	first := makeChunk(t, dir, base, 10*time.Second)
	last := makeChunk(t, dir, base.Add(20*time.Second), 10*time.Second)
	for _, chunk := range []buffer.Chunk{first, last} {
		if err := store.Add(chunk); err != nil {
			t.Fatalf("Add returned error: %v", err)
		}
	}

	oldest, newest, ok := store.Span()
	if !ok {
		t.Fatal("expected span to be reported")
	}
	if !oldest.Equal(base) {
		t.Fatalf("expected span start %v, got %v", base, oldest)
	}
	if !newest.Equal(base.Add(30 * time.Second)) {
		t.Fatalf("expected span end %v, got %v", base.Add(30*time.Second), newest)
	}
}
