package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultSystemMessage is used when no persona file can be loaded.
const DefaultSystemMessage = "You are Grok, a helpful AI assistant. Be direct, honest, and factual while maintaining a sense of humor."

// Config describes the assistant persona loaded from a JSON file.
type Config struct {
	Name                  string            `json:"name"`
	Age                   int               `json:"age"`
	BaseDescription       string            `json:"base_description"`
	PersonalityTraits     []string          `json:"personality_traits"`
	UserContext           map[string]string `json:"user_context"`
	InteractionGuidelines []string          `json:"interaction_guidelines"`
	Reminder              string            `json:"reminder"`
}

func (c *Config) validate() error {
	if c.Name == "" {
		return fmt.Errorf("persona: name is required")
	}
	if c.BaseDescription == "" {
		return fmt.Errorf("persona: base_description is required")
	}
	if len(c.PersonalityTraits) == 0 {
		return fmt.Errorf("persona: personality_traits must not be empty")
	}
	return nil
}

// Load reads and validates a persona file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: read %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("persona: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SystemMessage formats the persona into the system prompt sent ahead of
// the conversation history.
func (c *Config) SystemMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s\n\n", c.Name, c.BaseDescription)

	b.WriteString("Personality Traits:\n")
	for _, trait := range c.PersonalityTraits {
		fmt.Fprintf(&b, "- %s\n", trait)
	}

	if name := c.UserContext["name"]; name != "" {
		fmt.Fprintf(&b, "\nContext: Chatting with %s", name)
		if loc := c.UserContext["location"]; loc != "" {
			fmt.Fprintf(&b, " (%s)", loc)
		}
		if needs := c.UserContext["needs"]; needs != "" {
			fmt.Fprintf(&b, " who needs %s", needs)
		}
		b.WriteString(".\n")
	}

	if len(c.InteractionGuidelines) > 0 {
		b.WriteString("\nYou should:\n")
		for i, g := range c.InteractionGuidelines {
			fmt.Fprintf(&b, "%d. %s\n", i+1, g)
		}
	}

	if c.Reminder != "" {
		fmt.Fprintf(&b, "\nRemember: %s", c.Reminder)
	}
	return b.String()
}

// LoadSystemMessage is the one-call variant used by hosts: load, validate
// and format. Callers fall back to DefaultSystemMessage on error.
func LoadSystemMessage(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	return cfg.SystemMessage(), nil
}
