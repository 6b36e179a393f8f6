package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"persistent-chat/internal/llm"
	"persistent-chat/internal/transcript"
)

// Service glues the transcript store to a completion client. The user turn
// is persisted before the remote call is made, so a failed completion never
// loses user input.
type Service struct {
	store         *transcript.FileStore
	client        llm.Client
	systemMessage string
	model         string

	// MaxContextTurns caps how many recent turns are sent to the model.
	// Zero means the full transcript.
	maxContextTurns int
}

type Options struct {
	SystemMessage   string
	Model           string
	MaxContextTurns int
}

func NewService(store *transcript.FileStore, client llm.Client, opts Options) *Service {
	return &Service{
		store:           store,
		client:          client,
		systemMessage:   opts.SystemMessage,
		model:           opts.Model,
		maxContextTurns: opts.MaxContextTurns,
	}
}

// Send appends the user message, requests a completion over the
// accumulated context and appends the assistant reply. The returned string
// is the assistant's message.
func (s *Service) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty message", transcript.ErrInvalidTurn)
	}

	userTurn := transcript.Turn{
		Role:     transcript.RoleUser,
		Content:  text,
		Metadata: s.turnMetadata(),
	}
	if err := s.store.Append(userTurn); err != nil {
		return "", fmt.Errorf("persist user turn: %w", err)
	}

	resp, err := s.client.Generate(ctx, s.buildContext())
	if err != nil {
		// The user turn stays persisted; only the completion failed.
		return "", fmt.Errorf("completion: %w", err)
	}

	assistantTurn := transcript.Turn{
		Role:     transcript.RoleAssistant,
		Content:  resp.Content,
		Metadata: s.turnMetadata(),
	}
	if err := s.store.Append(assistantTurn); err != nil {
		return "", fmt.Errorf("persist assistant turn: %w", err)
	}
	return resp.Content, nil
}

// History returns the full persisted transcript in append order.
func (s *Service) History() []transcript.Turn {
	return s.store.Snapshot()
}

// Reset durably clears the transcript.
func (s *Service) Reset() error {
	return s.store.Clear()
}

// buildContext assembles the request messages: the system message first,
// then the persisted turns minus any stored system turns, optionally
// capped to the most recent maxContextTurns.
func (s *Service) buildContext() []llm.Message {
	turns := s.store.Snapshot()
	kept := make([]transcript.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role == transcript.RoleSystem {
			continue
		}
		kept = append(kept, t)
	}
	if s.maxContextTurns > 0 && len(kept) > s.maxContextTurns {
		kept = kept[len(kept)-s.maxContextTurns:]
	}

	msgs := make([]llm.Message, 0, len(kept)+1)
	if s.systemMessage != "" {
		msgs = append(msgs, llm.Message{Role: string(transcript.RoleSystem), Content: s.systemMessage})
	}
	for _, t := range kept {
		msgs = append(msgs, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	return msgs
}

func (s *Service) turnMetadata() map[string]string {
	md := map[string]string{"id": uuid.NewString()}
	if s.model != "" {
		md["model"] = s.model
	}
	return md
}
