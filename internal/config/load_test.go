package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the minimum environment needed for Load to pass
// validation. t.Setenv restores prior values on cleanup.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GENBRIDGE_SERVER_API_KEY", "test-internal-key")
	t.Setenv("GENBRIDGE_DATABASE_URL", "postgres://localhost:5432/genbridge_test")
	t.Setenv("GENBRIDGE_PROVIDER_TOKEN", "test-provider-token")
	t.Setenv("GENBRIDGE_STORAGE_PUBLIC_BASE_URL", "http://localhost:8080")
}

func TestLoadFromEnvironment(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-provider-token", cfg.Provider.Token)
	assert.Equal(t, "postgres://localhost:5432/genbridge_test", cfg.Database.URL)
	assert.Equal(t, "test-internal-key", cfg.Server.APIKey)
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 180*time.Second, cfg.Provider.SubmitTimeout)
	assert.Equal(t, 600*time.Second, cfg.Provider.PollDeadline)
	assert.Equal(t, 6, cfg.Provider.MaxSubmitRetries)
	assert.Equal(t, time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 2, cfg.Limits.MaxInputFiles)
	assert.Equal(t, 10, cfg.Limits.MaxInputFileSizeMiB)
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GENBRIDGE_SERVER_PORT", "9999")
	t.Setenv("GENBRIDGE_WORKER_POLL_INTERVAL", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.PollInterval)
}

func TestLoadFailsWithoutRequiredValues(t *testing.T) {
	// No database URL, token or API key configured.
	t.Setenv("GENBRIDGE_DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}
