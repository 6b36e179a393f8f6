package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"persistent-chat/internal/backup"
	"persistent-chat/internal/chat"
	"persistent-chat/internal/config"
	"persistent-chat/internal/llm"
	"persistent-chat/internal/persona"
	"persistent-chat/internal/transcript"
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

	var keeper *backup.Keeper
	if cfg.BackupDir != "" {
		keeper, err = backup.NewKeeper(cfg.BackupDir, cfg.BackupKeep)
		if err != nil {
			log.Printf("failed to init backups: %v", err)
		} else if dst, err := keeper.Backup(cfg.MemoryFilePath); err != nil {
			log.Printf("startup backup failed: %v", err)
		} else if dst != "" {
			log.Printf("transcript backed up to %s", dst)
		}
	}
	if keeper != nil && cfg.BackupCron != "" {
		sched := backup.NewScheduler(keeper, cfg.MemoryFilePath)
		if err := sched.Start(cfg.BackupCron); err != nil {
			log.Printf("failed to start backup scheduler: %v", err)
		} else {
			defer sched.Stop()
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

	runLoop(svc, cfg)
}

func runLoop(svc *chat.Service, cfg *config.Config) {
	fmt.Println("Starting XAI Persistent Chat...")
	fmt.Println("Type 'exit' or 'quit' to end the conversation")
	fmt.Println("Type 'history' to view chat history")
	fmt.Println(strings.Repeat("-", 50))

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				log.Printf("input error: %v", err)
			}
			fmt.Println("\nGoodbye!")
			return
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("\nGoodbye!")
			return
		case "history":
			printHistory(svc.History())
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		reply, err := svc.Send(ctx, input)
		cancel()
		if err != nil {
			fmt.Printf("\nError: %v\n", err)
			continue
		}
		fmt.Printf("\nAssistant: %s\n", reply)
	}
}

func printHistory(turns []transcript.Turn) {
	fmt.Println("\nChat History:")
	for _, t := range turns {
		fmt.Printf("%s - %s: %s\n", t.Timestamp.Format("2006-01-02T15:04:05"), t.Role, t.Content)
	}
}
