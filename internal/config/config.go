package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries the runtime configuration of the API server and the worker.
type Config struct {
	AppHost  string
	HTTPPort string
	AppEnv   string
	LogLevel string

	// DatabaseURL — when set, tickets and departures live in Postgres
	// instead of the in-process store.
	DatabaseURL string

	TemporalHost string

	// EmbeddedWorker runs the purchase workflow worker inside the API
	// server process. Useful for the in-memory store, where a separate
	// worker process would not see the server's data.
	EmbeddedWorker bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		AppHost:        getEnv("APP_HOST", "0.0.0.0"),
		HTTPPort:       getEnv("API_PORT", "8080"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		TemporalHost:   getEnv("TEMPORAL_HOST", "localhost:7233"),
		EmbeddedWorker: getBool("EMBEDDED_WORKER", true),
	}
	return cfg, nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.AppHost + ":" + c.HTTPPort
}

// UsePostgres reports whether the Postgres-backed store should be used.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
