package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MEET_ENV", "MEET_HTTP_ADDR", "MEET_STORE_DRIVER", "MEET_BOLT_PATH", "MEET_POSTGRES_DSN",
		"MEET_JWT_SECRET", "MEET_TOKEN_TTL", "MEET_PASSWORD_MODE", "MEET_CORS_ORIGINS", "MEET_TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, DriverBolt, cfg.StoreDriver)
	assert.Equal(t, "data/meet.db", cfg.BoltPath)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "plain", cfg.PasswordMode)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestLoadCollectsAllProblems(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEET_ENV", "production")
	t.Setenv("MEET_STORE_DRIVER", "postgres")
	t.Setenv("MEET_PASSWORD_MODE", "md5")
	t.Setenv("MEET_TOKEN_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "MEET_POSTGRES_DSN")
	assert.Contains(t, msg, "MEET_PASSWORD_MODE")
	assert.Contains(t, msg, "MEET_JWT_SECRET")
	assert.Contains(t, msg, "MEET_TOKEN_TTL")
}

func TestLoadParsesLists(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEET_CORS_ORIGINS", "http://localhost:3000, https://meet.example.org ,")
	t.Setenv("MEET_STORE_DRIVER", "MEMORY")
	t.Setenv("MEET_TIMEZONE", "UTC")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "https://meet.example.org"}, cfg.CORSOrigins)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, time.UTC, cfg.Timezone)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MEET_HTTP_ADDR=:9090\nMEET_BACKUP_KEEP=3\n"), 0o644))
	t.Setenv("MEET_BACKUP_KEEP", "")
	os.Unsetenv("MEET_HTTP_ADDR")
	os.Unsetenv("MEET_BACKUP_KEEP")

	LoadDotEnv(path)
	t.Cleanup(func() { os.Unsetenv("MEET_BACKUP_KEEP") })
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 3, Int("MEET_BACKUP_KEEP", 7))
}

func TestHelpers(t *testing.T) {
	t.Setenv("MEET_FLAG", "1")
	assert.True(t, Bool("MEET_FLAG"))
	t.Setenv("MEET_FLAG", "yes")
	assert.False(t, Bool("MEET_FLAG"))
	t.Setenv("MEET_N", "x")
	assert.Equal(t, 5, Int("MEET_N", 5))
	assert.Equal(t, "b", FirstNonEmpty("", "b", "c"))
}
