package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"persistent-chat/internal/llm"
	"persistent-chat/internal/transcript"
)

type scriptedClient struct {
	reply    string
	err      error
	gotCtx   []llm.Message
	numCalls int
}

func (c *scriptedClient) Generate(_ context.Context, messages []llm.Message) (llm.Response, error) {
	c.numCalls++
	c.gotCtx = messages
	if c.err != nil {
		return llm.Response{}, c.err
	}
	return llm.Response{Content: c.reply, Model: "test-model"}, nil
}

func newTestStore(t *testing.T) *transcript.FileStore {
	t.Helper()
	s, err := transcript.Open(filepath.Join(t.TempDir(), "memory.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestService_SendAppendsBothTurns(t *testing.T) {
	store := newTestStore(t)
	client := &scriptedClient{reply: "hi there"}
	svc := NewService(store, client, Options{SystemMessage: "be nice", Model: "grok-beta"})

	reply, err := svc.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply != "hi there" {
		t.Fatalf("unexpected reply %q", reply)
	}

	turns := svc.History()
	if len(turns) != 2 {
		t.Fatalf("want 2 turns, got %d", len(turns))
	}
	if turns[0].Role != transcript.RoleUser || turns[0].Content != "hello" {
		t.Fatalf("unexpected user turn: %+v", turns[0])
	}
	if turns[1].Role != transcript.RoleAssistant || turns[1].Content != "hi there" {
		t.Fatalf("unexpected assistant turn: %+v", turns[1])
	}
	if turns[0].Metadata["id"] == "" || turns[0].Metadata["model"] != "grok-beta" {
		t.Fatalf("missing turn metadata: %+v", turns[0].Metadata)
	}

	// Request context: system message first, then the user turn.
	if len(client.gotCtx) != 2 {
		t.Fatalf("want 2 context messages, got %d", len(client.gotCtx))
	}
	if client.gotCtx[0].Role != "system" || client.gotCtx[0].Content != "be nice" {
		t.Fatalf("system message not first: %+v", client.gotCtx[0])
	}
	if client.gotCtx[1].Role != "user" || client.gotCtx[1].Content != "hello" {
		t.Fatalf("user message missing: %+v", client.gotCtx[1])
	}
}

func TestService_FailedCompletionKeepsUserTurn(t *testing.T) {
	store := newTestStore(t)
	client := &scriptedClient{err: errors.New("remote down")}
	svc := NewService(store, client, Options{})

	if _, err := svc.Send(context.Background(), "hello"); err == nil {
		t.Fatalf("expected completion error")
	}
	turns := svc.History()
	if len(turns) != 1 || turns[0].Role != transcript.RoleUser || turns[0].Content != "hello" {
		t.Fatalf("user turn not preserved: %+v", turns)
	}
}

func TestService_RejectsBlankInput(t *testing.T) {
	store := newTestStore(t)
	client := &scriptedClient{reply: "unused"}
	svc := NewService(store, client, Options{})

	_, err := svc.Send(context.Background(), "   ")
	if !errors.Is(err, transcript.ErrInvalidTurn) {
		t.Fatalf("want ErrInvalidTurn, got %v", err)
	}
	if client.numCalls != 0 {
		t.Fatalf("client called for blank input")
	}
	if len(svc.History()) != 0 {
		t.Fatalf("blank input mutated transcript")
	}
}

func TestService_ContextCapping(t *testing.T) {
	store := newTestStore(t)
	client := &scriptedClient{reply: "ok"}
	svc := NewService(store, client, Options{MaxContextTurns: 2})

	for _, msg := range []string{"one", "two", "three"} {
		if _, err := svc.Send(context.Background(), msg); err != nil {
			t.Fatalf("send %q: %v", msg, err)
		}
	}
	// 3 user + 2 assistant turns persisted; only the last 2 go upstream.
	if len(client.gotCtx) != 2 {
		t.Fatalf("want capped context of 2, got %d: %+v", len(client.gotCtx), client.gotCtx)
	}
	last := client.gotCtx[len(client.gotCtx)-1]
	if last.Role != "user" || last.Content != "three" {
		t.Fatalf("latest user message not last in context: %+v", last)
	}
}

func TestService_StoredSystemTurnsExcludedFromContext(t *testing.T) {
	store := newTestStore(t)
	if err := store.Append(transcript.Turn{Role: transcript.RoleSystem, Content: "stale system"}); err != nil {
		t.Fatalf("seed system turn: %v", err)
	}
	client := &scriptedClient{reply: "ok"}
	svc := NewService(store, client, Options{SystemMessage: "fresh system"})

	if _, err := svc.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, m := range client.gotCtx {
		if m.Content == "stale system" {
			t.Fatalf("stored system turn leaked into context: %+v", client.gotCtx)
		}
	}
}
