package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App   AppConfig
	KB    KBConfig
	Ai    AIConfig
	Infra InfraConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type KBConfig struct {
	BaseURL      string
	Name         string
	APIToken     string
	FRBRPlace    string
	Jurisdiction string
}

type AIConfig struct {
	Model           string // "<provider>/<model>", e.g. "anthropic/claude-sonnet-4-5"
	OllamaBaseURL   string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	HuggingFaceKey  string
}

type InfraConfig struct {
	RunStore string // "memory" or "redis"
	RedisURL string
	NatsURL  string // empty disables the NATS publisher
	RunTTL   time.Duration

	OtelEnabled  bool
	OtelEndpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "kb-agent.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		KB: KBConfig{
			BaseURL:      getEnv("LAWSAFRICA_API_URL", "https://api.laws.africa"),
			Name:         getEnv("KB_NAME", "legislation-za-municipal"),
			APIToken:     getEnv("LAWSAFRICA_API_TOKEN", ""),
			FRBRPlace:    getEnv("KB_FRBR_PLACE", "za-cpt"),
			Jurisdiction: getEnv("KB_JURISDICTION", "Cape Town, South Africa"),
		},
		Ai: AIConfig{
			Model:           getEnv("MODEL", "anthropic/claude-sonnet-4-5"),
			OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			HuggingFaceKey:  getEnv("HF_TOKEN", ""),
		},
		Infra: InfraConfig{
			RunStore: getEnv("RUN_STORE", "memory"),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
			NatsURL:  getEnv("NATS_URL", ""),
			RunTTL:   time.Duration(getEnvAsInt("RUN_TTL_HOURS", 24)) * time.Hour,

			OtelEnabled:  getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
