package eventstore

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store persists raw play events on the local filesystem, keyed by the
// encoded played_at timestamp. Writes are idempotent: putting an event with
// a known key overwrites the existing file with identical content.
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create event store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes the event's raw payload under its encoded key, overwriting any
// existing entry.
func (s *Store) Put(event PlayEvent) error {
	if event.PlayedAt == "" {
		return fmt.Errorf("event has no played_at")
	}
	if len(event.Raw) == 0 {
		return fmt.Errorf("event %s has no raw payload", event.PlayedAt)
	}

	path := filepath.Join(s.dir, EncodeKey(event.PlayedAt)+".json")
	if err := os.WriteFile(path, event.Raw, 0644); err != nil {
		return fmt.Errorf("failed to write event %s: %w", event.PlayedAt, err)
	}
	return nil
}

// ListAll decodes every persisted event file. Order is not guaranteed by
// contract; files are visited in name order. Undecodable files are skipped
// with a log line so one bad file cannot block the merge.
func (s *Store) ListAll() ([]PlayEvent, error) {
	paths, err := s.Files()
	if err != nil {
		return nil, err
	}

	var events []PlayEvent
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read event file %s: %w", path, err)
		}
		event, err := DecodeEvent(raw)
		if err != nil {
			log.Printf("Skipping malformed event file %s: %v", path, err)
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Files returns the paths of all raw event files in the store. Side-car
// files produced by archival normalization do not carry the .json suffix
// and are excluded.
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read event store directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
