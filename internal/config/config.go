package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	OllamaURL   string
	OllamaModel string

	DisableAI        bool
	DisableReranking bool

	SearchTopK     int
	SearchMinScore float64

	AutoLoadPath string

	// Empty DSN or URL disables the corresponding side channel.
	PostgresDSN string
	NATSURL     string
	NATSSubject string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		OllamaURL:   mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: mustEnv("OLLAMA_MODEL", "llama3.2:3b"),

		DisableAI:        mustEnvBool("DISABLE_AI", false),
		DisableReranking: mustEnvBool("DISABLE_RERANKING", false),

		SearchTopK:     mustEnvInt("SEARCH_TOP_K", 5),
		SearchMinScore: mustEnvFloat("SEARCH_MIN_SCORE", 1.0),

		AutoLoadPath: mustEnv("AUTO_LOAD_STIG_PATH", ""),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),
		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "stig.queries"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
