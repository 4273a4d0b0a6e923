// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the estimation service.
type Config struct {
	// ServerAddr is the HTTP listen address, e.g. ":8080".
	ServerAddr string

	// DatabaseURL is the postgres connection string for the report ledger.
	// Empty means reports are kept in memory only.
	DatabaseURL string

	// ClipLow / ClipHigh are default propensity clipping bounds. Nil leaves
	// a side open.
	ClipLow  *float64
	ClipHigh *float64

	// Stabilized applies marginal-prevalence stabilization to weights by
	// default.
	Stabilized bool

	// MaxConcurrentEstimations caps in-flight estimation requests.
	MaxConcurrentEstimations int64
}

// Load reads configuration from the environment. A missing .env file is
// fine; a present-but-malformed variable is not.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ServerAddr:               getEnv("SERVER_ADDR", ":8080"),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		Stabilized:               true,
		MaxConcurrentEstimations: 8,
	}

	if v := os.Getenv("WEIGHT_STABILIZED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing WEIGHT_STABILIZED=%q: %w", v, err)
		}
		cfg.Stabilized = b
	}
	if v := os.Getenv("MAX_CONCURRENT_ESTIMATIONS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("parsing MAX_CONCURRENT_ESTIMATIONS=%q: must be a positive integer", v)
		}
		cfg.MaxConcurrentEstimations = n
	}

	var err error
	if cfg.ClipLow, err = parseOptionalFloat("PROPENSITY_CLIP_LOW"); err != nil {
		return Config{}, err
	}
	if cfg.ClipHigh, err = parseOptionalFloat("PROPENSITY_CLIP_HIGH"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseOptionalFloat(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s=%q: %w", key, v, err)
	}
	return &f, nil
}
