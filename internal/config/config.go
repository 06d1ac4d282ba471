package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	RedisURL    string
	CORSOrigins string
	TablePrefix string

	// Session lock
	LockTTL time.Duration

	// Auth
	JWTSecret string
	JWTExpiry time.Duration
	JWKSURL   string // optional; enables external-IdP token verification

	// LLM analysis
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Claude rubric generation
	ClaudeAPIKey    string
	ClaudeModel     string
	ClaudeMaxTokens int
	ClaudeTimeout   time.Duration
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix: getTablePrefix(env),

		LockTTL: getDurationSeconds("WORK_LOCK_TTL_SECONDS", 30),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: getDurationMinutes("JWT_EXPIRE_MINUTES", 60*24),
		JWKSURL:   getEnv("JWKS_URL", ""),

		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMAPIKey:  getEnv("LLM_API_KEY", ""),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout: getDurationSeconds("LLM_TIMEOUT_SECONDS", 60),

		ClaudeAPIKey:    getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
		ClaudeMaxTokens: getInt("CLAUDE_MAX_TOKENS", 4096),
		ClaudeTimeout:   getDurationSeconds("CLAUDE_TIMEOUT_SECONDS", 60),
	}
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getInt(key, defaultSeconds)) * time.Second
}

func getDurationMinutes(key string, defaultMinutes int) time.Duration {
	return time.Duration(getInt(key, defaultMinutes)) * time.Minute
}
