package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey    string
	JWTSecret string

	// CORS
	CORSOrigins []string

	// Translation engines
	DefaultEngine   string
	DeepLAPIKey     string
	DeepLAPIURL     string
	AnthropicAPIKey string
	AnthropicModel  string

	// Storage
	GlossaryDBPath   string
	LanguageProfiles string

	// Worker pool
	WorkerCount          int
	MaxQueueSize         int
	MaxConcurrentBatches int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey:    os.Getenv("SUBTRANS_API_KEY"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		CORSOrigins: envList("CORS_ORIGINS", []string{"*"}),

		DefaultEngine:   envOr("DEFAULT_ENGINE", "deepl"),
		DeepLAPIKey:     os.Getenv("DEEPL_API_KEY"),
		DeepLAPIURL:     os.Getenv("DEEPL_API_URL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),

		GlossaryDBPath:   envOr("GLOSSARY_DB_PATH", "subtrans.db"),
		LanguageProfiles: os.Getenv("LANGUAGE_PROFILES"),

		WorkerCount:          envInt("WORKER_COUNT", 2),
		MaxQueueSize:         envInt("MAX_QUEUE_SIZE", 50),
		MaxConcurrentBatches: envInt("MAX_CONCURRENT_BATCHES", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 5242880), // 5MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxConcurrentBatches <= 0 {
		cfg.MaxConcurrentBatches = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5242880
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	cfg.DefaultEngine = strings.ToLower(cfg.DefaultEngine)

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("SUBTRANS_API_KEY is required")
	}
	switch c.DefaultEngine {
	case "deepl":
		if c.DeepLAPIKey == "" {
			return fmt.Errorf("DEEPL_API_KEY is required for the deepl engine")
		}
	case "claude":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the claude engine")
		}
	case "passthrough":
	default:
		return fmt.Errorf("DEFAULT_ENGINE %q is not supported", c.DefaultEngine)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
