package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hamurabi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"HAMURABI_SEED", "HAMURABI_LOG_LEVEL", "HAMURABI_CHRONICLE", "HAMURABI_ARCHIVE_DIR",
		"RANDOM_ORG_API_KEY", "ANTHROPIC_API_KEY", "HAMURABI_PORT",
		"HAMURABI_SESSIONS_PER_HOUR", "HAMURABI_ANSWER_TIMEOUT", "HAMURABI_TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
seed: 1234
log_level: debug
chronicle_path: data/chronicle.db
show_status: false
answer_timeout: 90s
port: 9000
trusted_proxies: [127.0.0.1]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), cfg.Seed)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "data/chronicle.db", cfg.ChroniclePath)
	assert.False(t, cfg.ShowStatus)
	assert.Equal(t, 90*time.Second, cfg.AnswerTimeout)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 30, cfg.SessionsPerHour)
	assert.Equal(t, []string{"127.0.0.1"}, cfg.TrustedProxies)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "seed: 1\nport: 9000\n")
	t.Setenv("HAMURABI_SEED", "77")
	t.Setenv("HAMURABI_PORT", "not-a-port")
	t.Setenv("HAMURABI_ANSWER_TIMEOUT", "2m")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("HAMURABI_TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.TrustedProxies)
	assert.Equal(t, int64(77), cfg.Seed)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.AnswerTimeout)
	assert.Equal(t, "sk-test", cfg.AnthropicKey)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, "log_level: loud\n"))
	assert.ErrorContains(t, err, "unknown log level")

	_, err = Load(writeFile(t, "sessions_per_hour: 0\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "port: [1"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
