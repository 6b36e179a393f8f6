package main

import (
	"errors"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"persistent-chat/internal/backup"
	"persistent-chat/internal/chat"
	"persistent-chat/internal/config"
	"persistent-chat/internal/llm"
	"persistent-chat/internal/persona"
	"persistent-chat/internal/transcript"
	"persistent-chat/internal/tui"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	systemMessage, err := persona.LoadSystemMessage(cfg.PersonaFilePath)
	if err != nil {
		log.Printf("persona unavailable, using default system message: %v", err)
		systemMessage = persona.DefaultSystemMessage
	}

	store, err := transcript.Open(cfg.MemoryFilePath)
	if err != nil {
		if errors.Is(err, transcript.ErrCorruptState) {
			log.Fatalf("transcript at %s is corrupt and was not loaded: %v\n"+
				"Inspect the file or restore a copy from %s before retrying.",
				cfg.MemoryFilePath, err, cfg.BackupDir)
		}
		log.Fatalf("failed to open transcript: %v", err)
	}

	if cfg.BackupDir != "" {
		if keeper, err := backup.NewKeeper(cfg.BackupDir, cfg.BackupKeep); err != nil {
			log.Printf("failed to init backups: %v", err)
		} else if _, err := keeper.Backup(cfg.MemoryFilePath); err != nil {
			log.Printf("startup backup failed: %v", err)
		}
	}

	factory := llm.NewFactory(cfg)
	base, err := factory.CreateClient(string(cfg.LLMProvider), cfg.Model)
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}
	limiter := llm.NewLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	client := llm.NewRetryClient(base, limiter, cfg.RetryAttempts, cfg.RetryDelay)

	svc := chat.NewService(store, client, chat.Options{
		SystemMessage:   systemMessage,
		Model:           cfg.Model,
		MaxContextTurns: cfg.MaxContextTurns,
	})

	p := tea.NewProgram(tui.New(svc, cfg.RequestTimeout), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("tui error: %v", err)
	}
}
