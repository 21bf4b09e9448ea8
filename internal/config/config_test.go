package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:shelfpos.db", cfg.Database.URL)
	assert.Equal(t, 5*time.Second, cfg.Database.CommitTimeout)
	assert.Equal(t, "cash", cfg.Store.DefaultPaymentMethod)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelfpos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: "9090"
database:
  driver: postgres
  url: postgres://file@db/shelfpos
  commit_timeout: 2s
store:
  timezone: Africa/Algiers
`), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("DIRECTORY_RATE_PER_MINUTE", "30")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTP.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://file@db/shelfpos", cfg.Database.URL)
	assert.Equal(t, 2*time.Second, cfg.Database.CommitTimeout)
	assert.Equal(t, 30, cfg.Directory.RatePerMinute)
	assert.Equal(t, "Africa/Algiers", cfg.Store.Timezone)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "DATABASE_DRIVER", "oracle"},
		{"bad timezone", "STORE_TIMEZONE", "Mars/Olympus"},
		{"zero timeout", "COMMIT_TIMEOUT", "0s"},
		{"unparsable timeout", "COMMIT_TIMEOUT", "soon"},
		{"bad sample rate", "OTEL_SAMPLE_RATE", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}
