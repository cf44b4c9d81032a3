// Package config resolves runtime configuration from environment variables,
// an optional .env file, and compiled defaults. Flags registered in cmd
// override whatever is resolved here.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Default values applied when neither flag nor environment provides one.
const (
	DefaultPort = 8080

	// DefaultScanFloor is the minimum time the app stays in the Analyzing
	// state on the success path, so the scanning view never flashes.
	DefaultScanFloor = 3 * time.Second
)

// Config holds the resolved runtime configuration for the styloglo server.
type Config struct {
	// Port is the local HTTP port to listen on.
	Port int

	// Model is the Gemini model used for face analysis and plan generation.
	Model string

	// ImageModel is the Gemini model used for image-out style edits.
	ImageModel string

	// ScanFloor is the minimum visible duration of the Analyzing state.
	ScanFloor time.Duration
}

// Load resolves configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment variables
// take precedence over .env entries.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{
		Port:       ParseIntEnv("STYLOGLO_PORT", DefaultPort),
		Model:      os.Getenv("STYLOGLO_MODEL"),
		ImageModel: os.Getenv("STYLOGLO_IMAGE_MODEL"),
		ScanFloor:  ParseDurationEnv("STYLOGLO_SCAN_FLOOR", DefaultScanFloor),
	}
	return cfg
}

// ParseIntEnv parses an integer environment variable with a default value.
// Invalid values log a warning and return the default.
func ParseIntEnv(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().Str("key", key).Str("value", val).Int("default", defaultValue).
			Msg("Invalid integer environment value, using default")
		return defaultValue
	}
	return n
}

// ParseDurationEnv parses a duration environment variable (Go duration
// syntax, e.g. "3s" or "1500ms") with a default value.
func ParseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Warn().Str("key", key).Str("value", val).Dur("default", defaultValue).
			Msg("Invalid duration environment value, using default")
		return defaultValue
	}
	return d
}
