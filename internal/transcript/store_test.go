package transcript

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "memory.json")
	s, err := Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	turns := []Turn{
		{Role: RoleUser, Content: "hello", Metadata: map[string]string{"id": "t1"}},
		{Role: RoleAssistant, Content: "hi there"},
		{Role: RoleUser, Content: "how are you"},
	}
	for i, tn := range turns {
		if err := s.Append(tn); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	// Reopen from disk and compare observable fields.
	s2, err := Open(p)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := s2.Snapshot()
	if len(got) != len(turns) {
		t.Fatalf("want %d turns, got %d", len(turns), len(got))
	}
	for i := range turns {
		if got[i].Role != turns[i].Role || got[i].Content != turns[i].Content {
			t.Fatalf("turn %d mismatch: %+v", i, got[i])
		}
		if got[i].Timestamp.IsZero() {
			t.Fatalf("turn %d lost its timestamp", i)
		}
	}
	if got[0].Metadata["id"] != "t1" {
		t.Fatalf("metadata not preserved: %+v", got[0].Metadata)
	}
}

func TestStore_AppendOrderWinsOverTimestamps(t *testing.T) {
	p := filepath.Join(t.TempDir(), "memory.json")
	s, err := Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := s.Append(Turn{Role: RoleUser, Content: "first", Timestamp: later}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(Turn{Role: RoleAssistant, Content: "second", Timestamp: earlier}); err != nil {
		t.Fatalf("append: %v", err)
	}
	got := s.Snapshot()
	if got[0].Content != "first" || got[1].Content != "second" {
		t.Fatalf("order not append order: %+v", got)
	}
	if got[1].Timestamp.Before(got[0].Timestamp) {
		t.Fatalf("timestamps ran backwards: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestStore_DurabilityOnReturn(t *testing.T) {
	p := filepath.Join(t.TempDir(), "memory.json")
	s, err := Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Append(Turn{Role: RoleUser, Content: "survive me"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Simulated crash: drop the store without Close and reopen the path.
	s = nil
	s2, err := Open(p)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := s2.Snapshot()
	if len(got) != 1 || got[0].Content != "survive me" {
		t.Fatalf("turn not recovered: %+v", got)
	}
}

func TestStore_RejectsEmptyContent(t *testing.T) {
	p := filepath.Join(t.TempDir(), "memory.json")
	s, err := Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Append(Turn{Role: RoleUser, Content: "kept"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	err = s.Append(Turn{Role: RoleUser, Content: ""})
	if !errors.Is(err, ErrInvalidTurn) {
		t.Fatalf("want ErrInvalidTurn, got %v", err)
	}
	err = s.Append(Turn{Role: "narrator", Content: "x"})
	if !errors.Is(err, ErrInvalidTurn) {
		t.Fatalf("want ErrInvalidTurn for bad role, got %v", err)
	}
	if got := s.Snapshot(); len(got) != 1 || got[0].Content != "kept" {
		t.Fatalf("snapshot changed by rejected append: %+v", got)
	}
}

func TestStore_CorruptionDetected(t *testing.T) {
	cases := map[string]string{
		"not json":         "{{{ definitely not json",
		"truncated":        `[{"role":"user","content":"hel`,
		"wrong type":       `[{"role":"user","content":42}]`,
		"unknown role":     `[{"role":"wizard","content":"hi","timestamp":"2024-01-02T03:04:05Z"}]`,
		"empty content":    `[{"role":"user","content":"","timestamp":"2024-01-02T03:04:05Z"}]`,
		"trailing garbage": `[{"role":"user","content":"hi","timestamp":"2024-01-02T03:04:05Z"}] trailing`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "memory.json")
			if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
				t.Fatalf("seed: %v", err)
			}
			_, err := Open(p)
			if !errors.Is(err, ErrCorruptState) {
				t.Fatalf("want ErrCorruptState, got %v", err)
			}
		})
	}
}

func TestStore_EmptyFileIsEmptyTranscript(t *testing.T) {
	p := filepath.Join(t.TempDir(), "memory.json")
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := Open(p)
	if err != nil {
		t.Fatalf("open zero-byte file: %v", err)
	}
	if n := s.Len(); n != 0 {
		t.Fatalf("want empty transcript, got %d turns", n)
	}
}

func TestStore_AssignsMonotonicTimestamps(t *testing.T) {
	p := filepath.Join(t.TempDir(), "memory.json")
	s, err := Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	clock := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	s.now = func() time.Time { return clock }
	if err := s.Append(Turn{Role: RoleUser, Content: "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	clock = clock.Add(-time.Hour) // clock jumps backwards
	if err := s.Append(Turn{Role: RoleAssistant, Content: "b"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	got := s.Snapshot()
	if got[1].Timestamp.Before(got[0].Timestamp) {
		t.Fatalf("timestamps not monotonic: %v then %v", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestStore_ClearPersists(t *testing.T) {
	p := filepath.Join(t.TempDir(), "memory.json")
	s, err := Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Append(Turn{Role: RoleUser, Content: "gone soon"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	s2, err := Open(p)
	if err != nil {
		t.Fatalf("reopen after clear: %v", err)
	}
	if n := s2.Len(); n != 0 {
		t.Fatalf("clear did not persist, got %d turns", n)
	}
}

func TestStore_HelloScenario(t *testing.T) {
	p := filepath.Join(t.TempDir(), "memory.json")
	s, err := Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Append(Turn{Role: RoleUser, Content: "hello"}); err != nil {
		t.Fatalf("append user: %v", err)
	}
	if err := s.Append(Turn{Role: RoleAssistant, Content: "hi there"}); err != nil {
		t.Fatalf("append assistant: %v", err)
	}
	check := func(turns []Turn) {
		t.Helper()
		if len(turns) != 2 {
			t.Fatalf("want 2 turns, got %d", len(turns))
		}
		if turns[0].Role != RoleUser || turns[0].Content != "hello" {
			t.Fatalf("unexpected [0]: %+v", turns[0])
		}
		if turns[1].Role != RoleAssistant || turns[1].Content != "hi there" {
			t.Fatalf("unexpected [1]: %+v", turns[1])
		}
	}
	check(s.Snapshot())
	s2, err := Open(p)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	check(s2.Snapshot())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	p := filepath.Join(t.TempDir(), "memory.json")
	s, err := Open(p)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Append(Turn{Role: RoleUser, Content: "original"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	snap := s.Snapshot()
	snap[0].Content = "mutated"
	if got := s.Snapshot(); got[0].Content != "original" {
		t.Fatalf("internal state mutated via returned slice")
	}
}
