package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "MAX_MESSAGE_SIZE", "SEND_BUFFER_SIZE",
		"RATE_LIMIT_PER_SECOND", "RATE_LIMIT_BURST", "SHUTDOWN_TIMEOUT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, DefaultPort)
	}
	if cfg.Addr() != ":3000" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), ":3000")
	}
	if cfg.AllowedOrigins != DefaultAllowedOrigins {
		t.Errorf("AllowedOrigins = %q, want %q", cfg.AllowedOrigins, DefaultAllowedOrigins)
	}
	if cfg.MaxMessageSize != DefaultMaxMessageSize {
		t.Errorf("MaxMessageSize = %d, want %d", cfg.MaxMessageSize, DefaultMaxMessageSize)
	}
	if cfg.SendBufferSize != DefaultSendBufferSize {
		t.Errorf("SendBufferSize = %d, want %d", cfg.SendBufferSize, DefaultSendBufferSize)
	}
	if cfg.RateLimitPerSecond != DefaultRateLimitPerSecond {
		t.Errorf("RateLimitPerSecond = %v, want %v", cfg.RateLimitPerSecond, DefaultRateLimitPerSecond)
	}
	if cfg.RateLimitBurst != DefaultRateLimitBurst {
		t.Errorf("RateLimitBurst = %d, want %d", cfg.RateLimitBurst, DefaultRateLimitBurst)
	}
	if cfg.ShutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", cfg.ShutdownTimeout, DefaultShutdownTimeout)
	}
	if cfg.LogLevel != LogLevelInfo {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, LogLevelInfo)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", cfg.Warnings)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://chat.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("SEND_BUFFER_SIZE", "16")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "4")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "ERROR")

	cfg := Load()

	if cfg.Addr() != ":8080" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), ":8080")
	}
	if cfg.AllowedOrigins != "https://chat.example.com" {
		t.Errorf("AllowedOrigins = %q", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("MaxMessageSize = %d, want 1024", cfg.MaxMessageSize)
	}
	if cfg.SendBufferSize != 16 {
		t.Errorf("SendBufferSize = %d, want 16", cfg.SendBufferSize)
	}
	if cfg.RateLimitPerSecond != 2.5 {
		t.Errorf("RateLimitPerSecond = %v, want 2.5", cfg.RateLimitPerSecond)
	}
	if cfg.RateLimitBurst != 4 {
		t.Errorf("RateLimitBurst = %d, want 4", cfg.RateLimitBurst)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}
	if cfg.LogLevel != LogLevelError {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, LogLevelError)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", cfg.Warnings)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		key   string
		value string
		check func(Config) bool
	}{
		{"PORT", "http", func(c Config) bool { return c.Port == DefaultPort }},
		{"PORT", "70000", func(c Config) bool { return c.Port == DefaultPort }},
		{"MAX_MESSAGE_SIZE", "-1", func(c Config) bool { return c.MaxMessageSize == DefaultMaxMessageSize }},
		{"SEND_BUFFER_SIZE", "lots", func(c Config) bool { return c.SendBufferSize == DefaultSendBufferSize }},
		{"RATE_LIMIT_PER_SECOND", "0", func(c Config) bool { return c.RateLimitPerSecond == DefaultRateLimitPerSecond }},
		{"RATE_LIMIT_BURST", "1.5", func(c Config) bool { return c.RateLimitBurst == DefaultRateLimitBurst }},
		{"SHUTDOWN_TIMEOUT", "30", func(c Config) bool { return c.ShutdownTimeout == DefaultShutdownTimeout }},
		{"LOG_LEVEL", "verbose", func(c Config) bool { return c.LogLevel == LogLevelInfo }},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg := Load()

			if !tt.check(cfg) {
				t.Errorf("%s=%q did not fall back to its default: %+v", tt.key, tt.value, cfg)
			}
			if len(cfg.Warnings) != 1 {
				t.Errorf("Warnings = %v, want exactly one", cfg.Warnings)
			}
		})
	}
}
