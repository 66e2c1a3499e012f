package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localEnv(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("LOCAL_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("LOCAL_ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	t.Setenv("LOCAL_TOKEN_SECRET", strings.Repeat("k", 32))
}

func TestLoad_Defaults(t *testing.T) {
	localEnv(t)
	cfg := Load()

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.IdleTimeout)
	assert.Equal(t, uint64(3), cfg.SettingsRetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.SettingsRetryDelay)
	assert.True(t, cfg.RLSEnabled)
	assert.False(t, cfg.UsesFirebase())
	assert.Equal(t, 30*24*time.Hour, cfg.LogRetention)
	assert.Equal(t, 24*time.Hour, cfg.LogCleanupInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	localEnv(t)
	t.Setenv("IDLE_TIMEOUT", "15m")
	t.Setenv("SETTINGS_RETRY_ATTEMPTS", "5")
	t.Setenv("SETTINGS_RETRY_DELAY", "bogus")
	t.Setenv("RLS_ENABLED", "false")
	t.Setenv("LOG_RETENTION", "168h")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, uint64(5), cfg.SettingsRetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.SettingsRetryDelay)
	assert.False(t, cfg.RLSEnabled)
	assert.Equal(t, 7*24*time.Hour, cfg.LogRetention)
}

func TestValidate_NegativeLogRetention(t *testing.T) {
	localEnv(t)
	t.Setenv("LOG_RETENTION", "-1h")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_RETENTION")
}

func TestValidate_FirebaseNeedsProjectID(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("FIREBASE_API_KEY", "key")

	cfg := Load()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FirebaseProjectID")

	cfg.FirebaseProjectID = "wedding"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_LocalProviderNeedsCredentials(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	cfg := Load()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LocalAdmin")
}

func TestValidate_ShortLocalSecret(t *testing.T) {
	localEnv(t)
	t.Setenv("LOCAL_TOKEN_SECRET", "short")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCAL_TOKEN_SECRET")
}

func TestValidate_MissingDBPassword(t *testing.T) {
	localEnv(t)
	t.Setenv("DB_PASSWORD", "")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DBPassword")
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5433", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5433 sslmode=disable TimeZone=UTC", cfg.DSN())
}

func TestAdminAllowed(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.AdminAllowed("anyone@example.com"))

	cfg.AdminEmails = " admin@example.com, ,Bride@Example.com "
	assert.True(t, cfg.AdminAllowed("admin@example.com"))
	assert.True(t, cfg.AdminAllowed("bride@example.com"))
	assert.False(t, cfg.AdminAllowed("guest@example.com"))
	assert.False(t, cfg.AdminAllowed(""))
}
