package transcript

import (
	"errors"
	"fmt"
	"time"
)

// Role tags who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole validates a role string coming from user code or a persisted file.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleSystem:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidTurn, s)
	}
}

// Turn is one message in a conversation. Metadata is opaque to the store:
// it is persisted and returned but never interpreted.
type Turn struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

var (
	// ErrInvalidTurn marks a structurally invalid turn rejected by Append.
	ErrInvalidTurn = errors.New("invalid turn")
	// ErrCorruptState marks a persisted file that exists but cannot be
	// parsed into a well-formed transcript.
	ErrCorruptState = errors.New("corrupt transcript state")
)

// Validate checks the structural rules for a turn. User and assistant turns
// must carry content; system turns may be empty.
func (t Turn) Validate() error {
	if _, err := ParseRole(string(t.Role)); err != nil {
		return err
	}
	if t.Content == "" && t.Role != RoleSystem {
		return fmt.Errorf("%w: empty content for role %q", ErrInvalidTurn, t.Role)
	}
	return nil
}
