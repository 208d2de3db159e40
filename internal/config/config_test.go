package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  user: jobscout
  dbname: jobscout
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, defaultServerPort, cfg.Server.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, defaultQueueStream, cfg.Redis.Stream)
	assert.Equal(t, time.Second, cfg.Oracles.Anthropic.MinInterval)
	assert.Equal(t, defaultExpandBelow, cfg.Search.ExpandBelow)
	assert.Equal(t, defaultCompanyDelay, cfg.Search.CompanyDelay)
	assert.Equal(t, defaultDispatchAttempts, cfg.Dispatch.MaxAttempts)
	assert.InDelta(t, 2.0, cfg.Dispatch.Multiplier, 0.001)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
database:
  host: filehost
  user: jobscout
  dbname: jobscout
`)

	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("DB_HOST", "envhost")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("APOLLO_API_KEY", "apollo-test")
	t.Setenv("HUNTER_API_KEY", "hunter-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "envhost", cfg.Database.Host)
	assert.Equal(t, "sk-test", cfg.Oracles.Anthropic.APIKey)
	assert.Equal(t, "apollo-test", cfg.Oracles.Apollo.APIKey)
	assert.Equal(t, "hunter-test", cfg.Oracles.Hunter.APIKey)
}

func TestLoad_MissingFileUsesDefaultsAndEnv(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "jobscout")
	t.Setenv("DB_NAME", "jobscout")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.user")
}
