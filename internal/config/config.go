// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/gaschecker/internal/types"
)

// Window is the fixed duration of the rate-limit sliding window.
const Window = 60 * time.Second

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string

	// Per-attempt timeout for a single RPC endpoint call
	RPCTimeout time.Duration

	// Sliding-window admission ceiling per caller per Window
	RateLimitPerMinute int

	// Optional process-wide throughput cap; disabled when RPS is zero
	GlobalRPS   float64
	GlobalBurst int

	// Primary endpoint overrides, prepended to a chain's endpoint list
	EndpointOverrides map[types.SupportedChain]string

	// OpenTelemetry endpoint for observability; empty disables tracing
	OtelEndpoint string

	// Whether responses are cryptographically signed
	SigningEnabled bool
}

// Load creates a new Config from environment variables
func Load() Config {
	overrides := make(map[types.SupportedChain]string)
	for _, chain := range types.AllChains {
		key := strings.ToUpper(string(chain)) + "_RPC_ENDPOINT"
		if value, exists := GetEnv(key); exists && value != "" {
			overrides[chain] = value
		}
	}

	return Config{
		Port:               GetEnvOrDefault("PORT", "8080"),
		RPCTimeout:         GetEnvAsDuration("RPC_TIMEOUT", 15*time.Second),
		RateLimitPerMinute: GetEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		GlobalRPS:          GetEnvAsFloat("RATE_LIMIT_RPS", 0),
		GlobalBurst:        GetEnvAsInt("RATE_LIMIT_BURST", 20),
		EndpointOverrides:  overrides,
		OtelEndpoint:       GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		SigningEnabled:     GetEnvAsBool("SIGNING_ENABLED", false),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
