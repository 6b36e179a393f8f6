package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	XAIAPIKey        string      `env:"XAI_API_KEY"`
	XAIBaseURL       string      `env:"XAI_BASE_URL" envDefault:"https://api.x.ai/v1"`
	Model            string      `env:"CHAT_MODEL" envDefault:"grok-beta"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// Persona / system prompt
	PersonaFilePath string `env:"PERSONA_FILE" envDefault:"ai_persona.json"`

	// Storage
	MemoryFilePath string `env:"MEMORY_FILE" envDefault:"chat_memory.json"`

	// Backups
	BackupDir  string `env:"BACKUP_DIR" envDefault:"backups"`
	BackupKeep int    `env:"BACKUP_KEEP" envDefault:"10"`
	BackupCron string `env:"BACKUP_CRON"`

	// Request shaping
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	MaxContextTurns int           `env:"MAX_CONTEXT_TURNS" envDefault:"0"`

	// Rate limiting and retries
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"50"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	RetryAttempts     int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryDelay        time.Duration `env:"RETRY_DELAY" envDefault:"2s"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
