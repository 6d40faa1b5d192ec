package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageBackendS3    = "s3"
	StorageBackendLocal = "local"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Persistence
	DatabaseURL string
	JWTSecret   string
	TokenTTL    time.Duration

	// LLM
	OpenAIAPIKey string
	GeminiAPIKey string
	AIModel      string
	AIProvider   string // empty means infer from AIModel
	AITimeout    time.Duration

	// Object storage
	StorageBackend  string // "s3" or "local"
	StorageBucket   string
	StorageLocalDir string
	StorageTimeout  time.Duration

	// Observability
	SentryDSN         string
	LangfusePublicKey string
	LangfuseSecretKey string
	LangfuseHost      string
	LangfuseEnabled   bool
	MetricsEnabled    bool // CloudWatch

	CORSOrigins []string
}

func Load() *Config {
	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		TokenTTL:          getDuration("TOKEN_TTL", 24*time.Hour),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		AIModel:           getEnv("AI_MODEL", "gpt-4o-mini"),
		AIProvider:        getEnv("AI_PROVIDER", ""),
		AITimeout:         getDuration("AI_TIMEOUT", 60*time.Second),
		StorageBackend:    strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendLocal)),
		StorageBucket:     getEnv("STORAGE_BUCKET", ""),
		StorageLocalDir:   getEnv("STORAGE_LOCAL_DIR", "./data/midi"),
		StorageTimeout:    getDuration("STORAGE_TIMEOUT", 15*time.Second),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
		MetricsEnabled:    getEnv("CLOUDWATCH_ENABLED", "false") == "true",
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("90s") or a bare number of seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
