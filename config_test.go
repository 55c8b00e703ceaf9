package securecore

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SC_ACCESS_TOKEN_SECRET", "env-access-secret")
	t.Setenv("SC_REFRESH_TOKEN_SECRET", "env-refresh-secret")
	t.Setenv("SC_FIELD_ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
}

func TestConfigFromEnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LockoutDuration)
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 100, cfg.UnauthenticatedRateLimit)
	assert.Equal(t, 600, cfg.AuthenticatedRateLimit)
	assert.Equal(t, 10, cfg.BulkRateLimit)
	assert.True(t, cfg.AuditDropIfFull)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SC_MAX_FAILED_ATTEMPTS", "3")
	t.Setenv("SC_LOCKOUT_DURATION", "1h")
	t.Setenv("SC_RATE_LIMIT_BULK", "25")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxFailedAttempts)
	assert.Equal(t, time.Hour, cfg.LockoutDuration)
	assert.Equal(t, 25, cfg.BulkRateLimit)
}

func TestConfigFromEnvMissingSecrets(t *testing.T) {
	t.Setenv("SC_ACCESS_TOKEN_SECRET", "")
	t.Setenv("SC_REFRESH_TOKEN_SECRET", "")
	t.Setenv("SC_FIELD_ENCRYPTION_KEY", "")

	_, err := ConfigFromEnv()
	require.Error(t, err)
}

func TestValidateFieldKeyLength(t *testing.T) {
	cfg := testConfig()

	cfg.FieldEncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 31))
	assert.Error(t, cfg.Validate())

	cfg.FieldEncryptionKey = "not base64!!"
	assert.Error(t, cfg.Validate())

	cfg.FieldEncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveKnobs(t *testing.T) {
	mutations := []func(*Config){
		func(c *Config) { c.MaxFailedAttempts = 0 },
		func(c *Config) { c.LockoutDuration = 0 },
		func(c *Config) { c.IdleTimeout = -time.Minute },
		func(c *Config) { c.AccessTokenTTL = 0 },
		func(c *Config) { c.UnauthenticatedRateLimit = 0 },
		func(c *Config) { c.BackupCodeCount = 0 },
	}
	for i, mutate := range mutations {
		cfg := testConfig()
		mutate(&cfg)
		assert.Errorf(t, cfg.Validate(), "mutation %d should fail validation", i)
	}
}
