package durablelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/playlog/playlog/internal/eventstore"
)

func event(name, album, playedAt string, artists ...string) eventstore.PlayEvent {
	return eventstore.PlayEvent{
		Name:     name,
		Album:    album,
		Artists:  artists,
		PlayedAt: playedAt,
	}
}

func newTestLog(t *testing.T) *Log {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "spotify_recently_played.csv"))
}

func TestMergeNew_AppendsAllWhenLogIsEmpty(t *testing.T) {
	l := newTestLog(t)
	events := []eventstore.PlayEvent{
		event("Song A", "Album A", "2025-01-15T10:00:00.123Z", "Artist A"),
		event("Song B", "Album B", "2025-01-15T11:00:00.456Z", "Artist B", "Artist C"),
	}

	added, err := l.MergeNew(events)
	if err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}
	if added != 2 {
		t.Errorf("got %d added, want 2", added)
	}

	rows, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].Artist != "Artist B, Artist C" {
		t.Errorf("got artist %q, want joined names", rows[1].Artist)
	}
	if rows[0].Date != "2025-01-15" {
		t.Errorf("got date %q, want 2025-01-15", rows[0].Date)
	}
}

func TestMergeNew_IsIdempotent(t *testing.T) {
	l := newTestLog(t)
	events := []eventstore.PlayEvent{
		event("Song A", "Album A", "2025-01-15T10:00:00.123Z", "Artist A"),
		event("Song B", "Album B", "2025-01-15T11:00:00.456Z", "Artist B"),
	}

	if _, err := l.MergeNew(events); err != nil {
		t.Fatalf("first MergeNew failed: %v", err)
	}
	added, err := l.MergeNew(events)
	if err != nil {
		t.Fatalf("second MergeNew failed: %v", err)
	}
	if added != 0 {
		t.Errorf("second merge added %d rows, want 0", added)
	}

	rows, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows after double merge, want 2", len(rows))
	}
}

func TestMergeNew_AddsOnlyMissingEvents(t *testing.T) {
	l := newTestLog(t)
	first := []eventstore.PlayEvent{
		event("Song A", "Album A", "2025-01-15T10:00:00.123Z", "Artist A"),
	}
	if _, err := l.MergeNew(first); err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}

	// Full cache listing: the old event plus a new one
	both := append(first, event("Song B", "Album B", "2025-01-15T11:00:00.456Z", "Artist B"))
	added, err := l.MergeNew(both)
	if err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}
	if added != 1 {
		t.Errorf("got %d added, want 1", added)
	}
}

func TestMergeNew_PlayedAtStaysUnique(t *testing.T) {
	l := newTestLog(t)
	events := []eventstore.PlayEvent{
		event("Song A", "Album A", "2025-01-15T10:00:00.123Z", "Artist A"),
		event("Song A again", "Album A", "2025-01-15T10:00:00.123Z", "Artist A"),
	}

	added, err := l.MergeNew(events)
	if err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}
	if added != 1 {
		t.Errorf("got %d added, want 1 (duplicate key within batch)", added)
	}

	rows, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	keys := make(map[string]int)
	for _, row := range rows {
		keys[row.PlayedAt]++
	}
	for key, n := range keys {
		if n != 1 {
			t.Errorf("played_at %q appears %d times", key, n)
		}
	}
}

func TestMergeNew_StringEqualityNotTimestampEquality(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.MergeNew([]eventstore.PlayEvent{
		event("Song A", "Album A", "2025-01-15T10:00:00.123Z", "Artist A"),
	}); err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}

	// Same instant with different trailing precision is a distinct key
	added, err := l.MergeNew([]eventstore.PlayEvent{
		event("Song A", "Album A", "2025-01-15T10:00:00.12300Z", "Artist A"),
	})
	if err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}
	if added != 1 {
		t.Errorf("got %d added, want 1 (dedup is string equality)", added)
	}
}

func TestMergeNew_SkipsUnparseableTimestamps(t *testing.T) {
	l := newTestLog(t)
	added, err := l.MergeNew([]eventstore.PlayEvent{
		event("Song A", "Album A", "garbage", "Artist A"),
		event("Song B", "Album B", "2025-01-15T11:00:00.456Z", "Artist B"),
	})
	if err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}
	if added != 1 {
		t.Errorf("got %d added, want 1", added)
	}
}

func TestLog_FileFormat(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.MergeNew([]eventstore.PlayEvent{
		event("Song A", "Album A", "2025-01-15T10:00:00.123Z", "Artist A"),
	}); err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != "name;album;artist;played_at;date" {
		t.Errorf("got header %q", lines[0])
	}
	if lines[1] != "Song A;Album A;Artist A;2025-01-15T10:00:00.123Z;2025-01-15" {
		t.Errorf("got row %q", lines[1])
	}
}

func TestLog_LoadMissingFileIsEmpty(t *testing.T) {
	l := newTestLog(t)
	rows, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows from missing file, want 0", len(rows))
	}
}

func TestLog_LoadRejectsWrongHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	if err := os.WriteFile(path, []byte("a;b;c\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := New(path).Load(); err == nil {
		t.Error("expected error for wrong header")
	}
}

func TestMergeNew_NeverRewritesExistingRows(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.MergeNew([]eventstore.PlayEvent{
		event("Song A", "Album A", "2025-01-15T10:00:00.123Z", "Artist A"),
	}); err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}
	before, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}

	if _, err := l.MergeNew([]eventstore.PlayEvent{
		event("Song A", "Album A", "2025-01-15T10:00:00.123Z", "Artist A"),
		event("Song B", "Album B", "2025-01-15T11:00:00.456Z", "Artist B"),
	}); err != nil {
		t.Fatalf("MergeNew failed: %v", err)
	}
	after, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.HasPrefix(string(after), string(before)) {
		t.Error("existing log content was rewritten")
	}
}
