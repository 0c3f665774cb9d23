// Package config loads infrastructure settings from the environment.
// A .env file in the working directory is read when present; real
// environment variables win over file values.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds connection and path settings shared by the binaries.
// Analysis parameters are command-line flags, not environment state.
type Config struct {
	PostgresDSN   string
	ClickhouseDSN string
	MetricsAddr   string
	DataDir       string
	OutputDir     string
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	return &Config{
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN: getEnv("CLICKHOUSE_DSN", ""),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),
		DataDir:       getEnv("DATA_DIR", "data"),
		OutputDir:     getEnv("OUTPUT_DIR", "output"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
