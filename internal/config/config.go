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
	Server   ServerConfig
	Log      LogConfig
	LLM      LLMConfig
	Gemini   GeminiConfig
	Groq     GroqConfig
	Qdrant   QdrantConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	MaxFileSize int64
}

type LogConfig struct {
	JSON      bool
	Debug     bool
	MaxLength int
}

// LLMConfig selects the text-generation backend shared by every pipeline stage.
type LLMConfig struct {
	Provider     string
	Temperature  float32
	MaxRetries   int
	InitialDelay time.Duration
	CallTimeout  time.Duration
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

type GroqConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// Enabled reports whether rubric retrieval should be wired in.
func (q QdrantConfig) Enabled() bool {
	return strings.TrimSpace(q.URL) != ""
}

type PipelineConfig struct {
	MaxBatchSize  int
	RequestBudget time.Duration
	SortByScore   bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3000"),
			Env:         getEnv("ENV", "development"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Log: LogConfig{
			JSON:      getEnvAsBool("LOG_JSON", false),
			Debug:     getEnvAsBool("LOG_DEBUG", false),
			MaxLength: getEnvAsInt("LOG_MAX_LENGTH", 200),
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
			Temperature:  getEnvAsFloat32("LLM_TEMPERATURE", 0.2),
			MaxRetries:   getEnvAsInt("LLM_MAX_RETRIES", 2),
			InitialDelay: getEnvAsDuration("LLM_RETRY_INITIAL_DELAY", "1s"),
			CallTimeout:  getEnvAsDuration("LLM_CALL_TIMEOUT", "30s"),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		Groq: GroqConfig{
			APIKey:  getEnv("GROQ_API_KEY", ""),
			Model:   getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			BaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "hiring_rubric_docs"),
		},
		Pipeline: PipelineConfig{
			MaxBatchSize:  getEnvAsInt("MAX_BATCH_SIZE", 10),
			RequestBudget: getEnvAsDuration("REQUEST_BUDGET", "120s"),
			SortByScore:   getEnvAsBool("SORT_BY_SCORE", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 32); err == nil {
		return float32(value)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
