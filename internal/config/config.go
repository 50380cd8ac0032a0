package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Ai          AIConfig
	VectorIndex VectorIndexConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	NatsURL     string
	IngestTopic string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "http" or "ollama"
	EmbeddingBaseURL  string
	EmbeddingAPIKey   string
	EmbeddingTimeout  time.Duration
	OllamaBaseURL     string
	OllamaModel       string
	ChunkSizeTokens   int
	OverlapTokens     int
}

type VectorIndexConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "app.log"),
			NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
			IngestTopic: getEnv("EMBED_SOURCE_CONTENT_TOPIC_NAME", "EMBED_SOURCE_CONTENT"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "http"),
			EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", ""),
			EmbeddingAPIKey:   getEnv("EMBEDDING_API_KEY", ""),
			EmbeddingTimeout:  getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			ChunkSizeTokens:   getEnvAsInt("CHUNK_SIZE_TOKENS", 600),
			OverlapTokens:     getEnvAsInt("CHUNK_OVERLAP_TOKENS", 75),
		},
		VectorIndex: VectorIndexConfig{
			BaseURL:  getEnv("VECTOR_INDEX_BASE_URL", ""),
			APIToken: getEnv("VECTOR_INDEX_API_TOKEN", ""),
			Timeout:  getEnvAsDuration("VECTOR_INDEX_TIMEOUT", 15*time.Second),
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
