// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Log levels accepted in LOG_LEVEL.
const (
	LogLevelInfo  = "info"
	LogLevelError = "error"
)

// Defaults used when a variable is unset or invalid.
const (
	DefaultPort               = "3000"
	DefaultAllowedOrigins     = "http://localhost:3000,http://localhost:8080"
	DefaultMaxMessageSize     = 4096
	DefaultSendBufferSize     = 256
	DefaultRateLimitPerSecond = 5.0
	DefaultRateLimitBurst     = 10
	DefaultShutdownTimeout    = 30 * time.Second
)

// Config holds every tunable of the chat server.
type Config struct {
	Port               string
	AllowedOrigins     string
	MaxMessageSize     int64
	SendBufferSize     int
	RateLimitPerSecond float64
	RateLimitBurst     int
	ShutdownTimeout    time.Duration
	LogLevel           string

	// Warnings lists every variable that was set but could not be used.
	Warnings []string
}

// Addr returns the listen address for Fiber.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Load reads the configuration from the environment. Invalid values are
// replaced by their defaults and reported in Warnings.
func Load() Config {
	l := &loader{}
	cfg := Config{
		Port:               l.port("PORT", DefaultPort),
		AllowedOrigins:     getEnv("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins),
		MaxMessageSize:     int64(l.positiveInt("MAX_MESSAGE_SIZE", DefaultMaxMessageSize)),
		SendBufferSize:     l.positiveInt("SEND_BUFFER_SIZE", DefaultSendBufferSize),
		RateLimitPerSecond: l.positiveFloat("RATE_LIMIT_PER_SECOND", DefaultRateLimitPerSecond),
		RateLimitBurst:     l.positiveInt("RATE_LIMIT_BURST", DefaultRateLimitBurst),
		ShutdownTimeout:    l.duration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
		LogLevel:           l.logLevel("LOG_LEVEL", LogLevelInfo),
	}
	cfg.Warnings = l.warnings
	return cfg
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

type loader struct {
	warnings []string
}

func (l *loader) warn(key, value string, fallback any) {
	l.warnings = append(l.warnings,
		fmt.Sprintf("invalid %s=%q, using default %v", key, value, fallback))
}

func (l *loader) port(key, fallback string) string {
	value := getEnv(key, fallback)
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 || n > 65535 {
		l.warn(key, value, fallback)
		return fallback
	}
	return value
}

func (l *loader) positiveInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		l.warn(key, value, fallback)
		return fallback
	}
	return n
}

func (l *loader) positiveFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		l.warn(key, value, fallback)
		return fallback
	}
	return f
}

func (l *loader) duration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		l.warn(key, value, fallback)
		return fallback
	}
	return d
}

func (l *loader) logLevel(key, fallback string) string {
	value := strings.ToLower(getEnv(key, fallback))
	switch value {
	case LogLevelInfo, LogLevelError:
		return value
	default:
		l.warn(key, value, fallback)
		return fallback
	}
}
