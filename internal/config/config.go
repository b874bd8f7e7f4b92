// Package config loads run settings from an optional YAML file, then lets
// environment variables override them.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of the console game and the server.
type Config struct {
	Seed     int64  `yaml:"seed"`      // 0 seeds from entropy
	LogLevel string `yaml:"log_level"` // debug, info, warn or error

	ChroniclePath string `yaml:"chronicle_path"` // SQLite file; empty keeps it in memory
	ArchiveDir    string `yaml:"archive_dir"`    // Per-term zstd archives; empty disables

	RandomOrgKey string `yaml:"random_org_key"`
	AnthropicKey string `yaml:"anthropic_key"`

	ShowStatus    bool          `yaml:"show_status"`
	AnswerTimeout time.Duration `yaml:"answer_timeout"` // 0 waits forever

	Port            int      `yaml:"port"`
	SessionsPerHour int      `yaml:"sessions_per_hour"` // Per client IP
	TrustedProxies  []string `yaml:"trusted_proxies"`   // Reverse proxies allowed to set X-Forwarded-For
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LogLevel:        "info",
		ShowStatus:      true,
		Port:            8080,
		SessionsPerHour: 30,
	}
}

// Load reads path (if not empty) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Seed = int64(envIntOrDefault("HAMURABI_SEED", int(c.Seed)))
	c.LogLevel = envOrDefault("HAMURABI_LOG_LEVEL", c.LogLevel)
	c.ChroniclePath = envOrDefault("HAMURABI_CHRONICLE", c.ChroniclePath)
	c.ArchiveDir = envOrDefault("HAMURABI_ARCHIVE_DIR", c.ArchiveDir)
	c.RandomOrgKey = envOrDefault("RANDOM_ORG_API_KEY", c.RandomOrgKey)
	c.AnthropicKey = envOrDefault("ANTHROPIC_API_KEY", c.AnthropicKey)
	c.Port = envIntOrDefault("HAMURABI_PORT", c.Port)
	c.SessionsPerHour = envIntOrDefault("HAMURABI_SESSIONS_PER_HOUR", c.SessionsPerHour)
	if v := os.Getenv("HAMURABI_TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = strings.Split(v, ",")
	}
	if v := os.Getenv("HAMURABI_ANSWER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AnswerTimeout = d
		}
	}
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.SessionsPerHour <= 0 {
		return fmt.Errorf("sessions_per_hour must be positive, got %d", c.SessionsPerHour)
	}
	if c.AnswerTimeout < 0 {
		return fmt.Errorf("answer_timeout must not be negative, got %s", c.AnswerTimeout)
	}
	return nil
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Level returns the configured slog level.
func (c Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
