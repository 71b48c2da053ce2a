package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Nats      NatsConfig
	JWT       JWTConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Vector    VectorConfig
	Memory    MemoryConfig
	Pipeline  PipelineConfig
	Knowledge KnowledgeConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	TranscriptTopic    string
}

type DatabaseConfig struct {
	Connection string
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

type NatsConfig struct {
	URL     string
	Enabled bool
}

type JWTConfig struct {
	Secret string
}

// LLMConfig selects the chat completion backend used by every agent stage.
type LLMConfig struct {
	Provider      string // "ollama", "gemini", "openai", "anthropic"
	Model         string
	APIKey        string
	BaseURL       string
	OllamaBaseURL string
	Temperature   float64
	MaxTokens     int
}

type EmbeddingConfig struct {
	Provider      string // "jina", "ollama", "gemini", "openai"
	Model         string
	APIKey        string
	BaseURL       string
	OllamaBaseURL string
	CacheTTL      time.Duration
}

type VectorConfig struct {
	Dimension int
	Lists     int
}

type MemoryConfig struct {
	Provider string // "mem0" or "local"
	Mem0URL  string
	Mem0Key  string
}

type PipelineConfig struct {
	MaxReasoningSteps int
	MaxGraphDepth     int
	RecallLimit       int
	LLMTimeout        time.Duration
	VectorTimeout     time.Duration
	MemoryTimeout     time.Duration
	EmbeddingTimeout  time.Duration
	RecordTimeout     time.Duration
}

type KnowledgeConfig struct {
	IngestMaxBytes   int
	UploadMaxBytes   int
	SimilarLinkLimit int
	TikaURL          string
	FetchTimeout     time.Duration
}

type OTelConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm_pipeline.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			TranscriptTopic:    getEnv("TRANSCRIPT_TOPIC_NAME", "CHAT_TRANSCRIPT"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", 24*time.Hour),
		},
		Nats: NatsConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			Provider:      getEnv("LLM_PROVIDER", "ollama"),
			Model:         getEnv("LLM_MODEL", "llama3"),
			APIKey:        getEnv("LLM_API_KEY", ""),
			BaseURL:       getEnv("LLM_BASE_URL", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Temperature:   getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 2048),
		},
		Embedding: EmbeddingConfig{
			Provider:      getEnv("EMBEDDING_PROVIDER", "jina"),
			Model:         getEnv("EMBEDDING_MODEL", ""),
			APIKey:        getEnv("EMBEDDING_API_KEY", ""),
			BaseURL:       getEnv("EMBEDDING_BASE_URL", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			CacheTTL:      getEnvAsDuration("EMBEDDING_CACHE_TTL", 30*time.Minute),
		},
		Vector: VectorConfig{
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 1024),
			Lists:     getEnvAsInt("VECTOR_INDEX_LISTS", 1024),
		},
		Memory: MemoryConfig{
			Provider: getEnv("MEMORY_PROVIDER", "local"),
			Mem0URL:  getEnv("MEM0_URL", "https://api.mem0.ai"),
			Mem0Key:  getEnv("MEM0_API_KEY", ""),
		},
		Pipeline: PipelineConfig{
			MaxReasoningSteps: getEnvAsInt("MAX_REASONING_STEPS", 3),
			MaxGraphDepth:     getEnvAsInt("MAX_GRAPH_DEPTH", 3),
			RecallLimit:       getEnvAsInt("MEMORY_RECALL_LIMIT", 5),
			LLMTimeout:        getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			VectorTimeout:     getEnvAsDuration("VECTOR_TIMEOUT", 10*time.Second),
			MemoryTimeout:     getEnvAsDuration("MEMORY_TIMEOUT", 10*time.Second),
			EmbeddingTimeout:  getEnvAsDuration("EMBEDDING_TIMEOUT", 5*time.Second),
			RecordTimeout:     getEnvAsDuration("MEMORY_RECORD_TIMEOUT", 30*time.Second),
		},
		Knowledge: KnowledgeConfig{
			IngestMaxBytes:   getEnvAsInt("INGEST_MAX_BYTES", 1<<20),
			UploadMaxBytes:   getEnvAsInt("UPLOAD_MAX_BYTES", 10<<20),
			SimilarLinkLimit: getEnvAsInt("SIMILAR_LINK_LIMIT", 3),
			TikaURL:          getEnv("TIKA_URL", ""),
			FetchTimeout:     getEnvAsDuration("URL_FETCH_TIMEOUT", 15*time.Second),
		},
		OTel: OTelConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "ai-tutor-be"),
		},
	}

	// Recall never returns more than five memories
	if cfg.Pipeline.RecallLimit > 5 {
		cfg.Pipeline.RecallLimit = 5
	}

	return cfg
}

// Validate checks the bounds every pipeline component relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.Vector.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.Vector.Dimension))
	}
	if c.Pipeline.MaxReasoningSteps <= 0 {
		errs = append(errs, fmt.Errorf("MAX_REASONING_STEPS must be positive, got %d", c.Pipeline.MaxReasoningSteps))
	}
	if c.Pipeline.MaxGraphDepth <= 0 {
		errs = append(errs, fmt.Errorf("MAX_GRAPH_DEPTH must be positive, got %d", c.Pipeline.MaxGraphDepth))
	}
	if c.Pipeline.RecallLimit <= 0 {
		errs = append(errs, fmt.Errorf("MEMORY_RECALL_LIMIT must be positive, got %d", c.Pipeline.RecallLimit))
	}
	if c.Knowledge.IngestMaxBytes <= 0 {
		errs = append(errs, errors.New("INGEST_MAX_BYTES must be positive"))
	}
	return errors.Join(errs...)
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
