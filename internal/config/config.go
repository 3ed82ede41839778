package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Scenario  ScenarioConfig
	Session   SessionConfig
	Evaluator EvaluatorConfig
	Keys      APIKeys
	STT       STTConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	StaticDir          string
	NatsURL            string
	NatsEnabled        bool
	RedisURL           string
	RedisEnabled       bool
}

type ScenarioConfig struct {
	Key                  string
	TimeLimitSeconds     int
	RecordSecondsDefault int
}

type SessionConfig struct {
	TTL         time.Duration
	MaxSessions int
}

type EvaluatorConfig struct {
	Default       string
	Timeout       time.Duration
	GeminiModel   string
	OpenAIModel   string
	OpenAIBaseURL string
	OllamaEnabled bool
	OllamaBaseURL string
	OllamaModel   string
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
}

type STTConfig struct {
	WhisperModel string
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/standup.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			StaticDir:          getEnv("STATIC_DIR", "./UI"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			NatsEnabled:        getEnvAsBool("NATS_ENABLED", false),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			RedisEnabled:       getEnvAsBool("REDIS_ENABLED", false),
		},
		Scenario: ScenarioConfig{
			Key:                  getEnv("SCENARIO_KEY", "standup"),
			TimeLimitSeconds:     getEnvAsInt("SCENARIO_TIME_LIMIT_SECONDS", 240),
			RecordSecondsDefault: getEnvAsInt("UI_RECORD_SECONDS", 5),
		},
		Session: SessionConfig{
			TTL:         time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
			MaxSessions: getEnvAsInt("SESSION_MAX", 1000),
		},
		Evaluator: EvaluatorConfig{
			Default:       getEnv("EVALUATOR_DEFAULT", "gemini"),
			Timeout:       time.Duration(getEnvAsInt("EVALUATOR_TIMEOUT_SECONDS", 30)) * time.Second,
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4"),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OllamaEnabled: getEnvAsBool("OLLAMA_ENABLED", false),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
		},
		STT: STTConfig{
			WhisperModel: getEnv("WHISPER_MODEL", "whisper-1"),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
