package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/npatel023/tutorgraph/internal/generation"
	"github.com/npatel023/tutorgraph/internal/llm"
	"github.com/npatel023/tutorgraph/internal/novelty"
	"github.com/npatel023/tutorgraph/internal/store"
	"github.com/npatel023/tutorgraph/internal/tutor"
)

// Config is the full application configuration.
type Config struct {
	// Env is "dev" or "prod"; it selects the logging profile and gin mode.
	Env string

	// HTTPAddr is the listen address of the API server.
	HTTPAddr string

	// CORSOrigins is the allowed origin list for the API.
	CORSOrigins []string

	DB         store.Config
	LLM        llm.Config
	Generation generation.Config
	Novelty    novelty.Config
	Tutor      tutor.Config
}

// Load reads configuration from the environment, consulting a .env file
// in the working directory when present. Missing values fall back to
// defaults suitable for local development (sqlite, mock-free LLM config
// left to llm.Config validation).
func Load() Config {
	// Best effort; absence of a .env file is the normal case in prod.
	_ = godotenv.Load()

	cfg := Config{
		Env:         getEnv("TUTORGRAPH_ENV", "dev"),
		HTTPAddr:    getEnv("TUTORGRAPH_HTTP_ADDR", ":8080"),
		CORSOrigins: splitList(getEnv("TUTORGRAPH_CORS_ORIGINS", "*")),
		DB: store.Config{
			Driver: getEnv("TUTORGRAPH_DB_DRIVER", "sqlite"),
			DSN:    getEnv("TUTORGRAPH_DB_DSN", "tutorgraph.db"),
		},
		LLM:        llm.ConfigFromEnv(),
		Generation: generation.DefaultConfig(),
		Novelty:    novelty.DefaultConfig(),
		Tutor:      tutor.DefaultConfig(),
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
