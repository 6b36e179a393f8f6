package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileStore is a durable, append-only transcript backed by a single JSON
// file. It is the sole owner of that file: one store instance per path,
// single writer. Every Append rewrites the file atomically (write to a
// temp file, fsync, rename), so a crash between turns can never leave a
// half-written live file behind; anything unparsable at the path is real
// corruption and is reported, never silently discarded.
type FileStore struct {
	path  string
	mu    sync.Mutex
	turns []Turn

	now func() time.Time // test hook
}

// Open loads the transcript persisted at path, or binds a new empty
// transcript to it when no file exists yet. A zero-byte or blank file
// counts as empty; a file that cannot be parsed into an ordered list of
// well-formed turns fails with ErrCorruptState.
func Open(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("transcript: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("transcript: ensure dir: %w", err)
		}
	}
	s := &FileStore{path: path, now: time.Now}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transcript: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		// Touched but never written. Distinct from malformed.
		return s, nil
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, path, err)
	}
	for i, t := range turns {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: turn %d: %v", ErrCorruptState, path, i, err)
		}
	}
	s.turns = turns
	return s, nil
}

// Append validates turn, stamps its timestamp if unset, persists the full
// transcript and only then mutates the in-memory copy. If it returns nil
// the turn is recoverable by a subsequent Open even if the process dies
// right after; if it returns an error the durable state is still the last
// successful write and the snapshot is unchanged.
func (s *FileStore) Append(turn Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now()
	}
	// Timestamps are informational but must never run backwards.
	if n := len(s.turns); n > 0 && turn.Timestamp.Before(s.turns[n-1].Timestamp) {
		turn.Timestamp = s.turns[n-1].Timestamp
	}
	next := make([]Turn, len(s.turns), len(s.turns)+1)
	copy(next, s.turns)
	next = append(next, turn)
	if err := s.persist(next); err != nil {
		return err
	}
	s.turns = next
	return nil
}

// Snapshot returns a copy of all turns in append order.
func (s *FileStore) Snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len reports the number of persisted turns.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Clear resets the transcript to empty, durably.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist([]Turn{}); err != nil {
		return err
	}
	s.turns = nil
	return nil
}

// Close is a no-op: every Append already flushed to disk.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) persist(turns []Turn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("transcript: marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("transcript: open temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("transcript: write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("transcript: sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("transcript: close temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("transcript: replace %s: %w", s.path, err)
	}
	return nil
}
