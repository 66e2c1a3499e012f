package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string `validate:"required"`
	DBPort     string `validate:"required,numeric"`
	DBUser     string `validate:"required"`
	DBPassword string `validate:"required"`
	DBName     string `validate:"required"`
	DBSSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	RLSEnabled bool

	// Identity provider. Firebase when FIREBASE_API_KEY is set, otherwise
	// the local single-admin provider.
	FirebaseAPIKey      string
	FirebaseProjectID   string `validate:"required_with=FirebaseAPIKey"`
	IdentitySessionPath string `validate:"required"`

	LocalAdminEmail        string `validate:"required_without=FirebaseAPIKey"`
	LocalAdminPasswordHash string `validate:"required_without=FirebaseAPIKey"`
	LocalTokenSecret       string `validate:"required_without=FirebaseAPIKey"`

	// Admin
	AdminEmails string
	IdleTimeout time.Duration

	// Settings
	SettingsRetryAttempts uint64        `validate:"min=1"`
	SettingsRetryDelay    time.Duration
	SettingsDefaultsPath  string

	// Server
	Port        string `validate:"required"`
	CORSOrigins string

	// Observability
	LogFile            string
	LogRetention       time.Duration
	LogCleanupInterval time.Duration
	SentryDSN          string
	AppEnv             string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "wedding_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		RLSEnabled: parseBool(getEnv("RLS_ENABLED", "true")),

		FirebaseAPIKey:      getEnv("FIREBASE_API_KEY", ""),
		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		IdentitySessionPath: getEnv("IDENTITY_SESSION_PATH", ".session/identity.json"),

		LocalAdminEmail:        getEnv("LOCAL_ADMIN_EMAIL", ""),
		LocalAdminPasswordHash: getEnv("LOCAL_ADMIN_PASSWORD_HASH", ""),
		LocalTokenSecret:       getEnv("LOCAL_TOKEN_SECRET", ""),

		AdminEmails: getEnv("ADMIN_EMAILS", ""),
		IdleTimeout: parseDuration(getEnv("IDLE_TIMEOUT", "1h"), time.Hour),

		SettingsRetryAttempts: parseUint(getEnv("SETTINGS_RETRY_ATTEMPTS", "3"), 3),
		SettingsRetryDelay:    parseDuration(getEnv("SETTINGS_RETRY_DELAY", "2s"), 2*time.Second),
		SettingsDefaultsPath:  getEnv("SETTINGS_DEFAULTS_PATH", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		LogFile:            getEnv("LOG_FILE", ""),
		LogRetention:       parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),
		LogCleanupInterval: parseDuration(getEnv("LOG_CLEANUP_INTERVAL", "24h"), 24*time.Hour),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		AppEnv:             getEnv("APP_ENV", "development"),
	}
}

var validate = validator.New()

// Validate checks required keys and the provider-specific combinations.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !c.UsesFirebase() && len(c.LocalTokenSecret) < 32 {
		return errors.New("invalid configuration: LOCAL_TOKEN_SECRET must be at least 32 bytes")
	}
	if c.LogRetention < 0 || c.LogCleanupInterval < 0 {
		return errors.New("invalid configuration: LOG_RETENTION and LOG_CLEANUP_INTERVAL must not be negative")
	}
	return nil
}

// UsesFirebase reports whether the Firebase identity provider is configured.
func (c *Config) UsesFirebase() bool {
	return c.FirebaseAPIKey != ""
}

// AdminAllowed reports whether email may use the admin panel. An empty
// ADMIN_EMAILS allows any identity the provider accepts.
func (c *Config) AdminAllowed(email string) bool {
	list := parseCSV(c.AdminEmails)
	if len(list) == 0 {
		return true
	}
	for _, item := range list {
		if strings.EqualFold(item, email) {
			return true
		}
	}
	return false
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseUint(s string, fallback uint64) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
