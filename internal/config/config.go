// Package config loads runner settings from environment variables.
//
// The database connection keys (DB_USERNAME, DB_ADDRESS, DB_PORT, DB_NAME,
// DB_SECRET_ARN) are not part of Config: they are required per invocation and
// read by application.ConfigResolver so their absence is reported as a
// migration failure rather than a startup error.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
)

// Config holds the optional runner settings loaded from environment variables.
type Config struct {
	CredentialSource model.CredentialSource
	SSLMode          string
	ConnectTimeout   time.Duration
	LockTimeout      time.Duration
	DeadlineMargin   time.Duration
	MigrationsTable  string
	SourceURL        string
	LogLevel         slog.Level
}

// EventCredentialsEnabled reports whether direct credentials in the
// invocation event are accepted.
func (c *Config) EventCredentialsEnabled() bool {
	return c.CredentialSource == model.CredentialSourceEvent
}

// RedactedSourceURL returns SourceURL with the userinfo password and every
// query value masked, for logging.
func (c *Config) RedactedSourceURL() string {
	if c.SourceURL == "" {
		return ""
	}
	u, err := url.Parse(c.SourceURL)
	if err != nil {
		return "[invalid]"
	}
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			q.Set(key, "xxxxx")
		}
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional:
// MIGRATOR_CREDENTIAL_SOURCE (environment), MIGRATOR_SSL_MODE (disable),
// MIGRATOR_CONNECT_TIMEOUT (10s), MIGRATOR_LOCK_TIMEOUT (15s),
// MIGRATOR_DEADLINE_MARGIN (2s), MIGRATOR_MIGRATIONS_TABLE (schema_migrations),
// MIGRATOR_SOURCE_URL (embedded changelog), MIGRATOR_LOG_LEVEL (info).
func Load() (*Config, error) {
	source := model.CredentialSourceEnvironment
	if v, ok := os.LookupEnv("MIGRATOR_CREDENTIAL_SOURCE"); ok && v != "" {
		switch model.CredentialSource(strings.ToLower(v)) {
		case model.CredentialSourceEnvironment:
		case model.CredentialSourceEvent:
			source = model.CredentialSourceEvent
		default:
			return nil, fmt.Errorf("MIGRATOR_CREDENTIAL_SOURCE has invalid value %q: must be environment or event", v)
		}
	}

	sslMode := "disable"
	if v, ok := os.LookupEnv("MIGRATOR_SSL_MODE"); ok && v != "" {
		if !model.ValidSSLMode(v) {
			return nil, fmt.Errorf("MIGRATOR_SSL_MODE has invalid value %q", v)
		}
		sslMode = v
	}

	connectTimeout, err := durationEnv("MIGRATOR_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	lockTimeout, err := durationEnv("MIGRATOR_LOCK_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	deadlineMargin, err := durationEnv("MIGRATOR_DEADLINE_MARGIN", 2*time.Second)
	if err != nil {
		return nil, err
	}

	migrationsTable := "schema_migrations"
	if v, ok := os.LookupEnv("MIGRATOR_MIGRATIONS_TABLE"); ok && v != "" {
		migrationsTable = v
	}

	sourceURL := os.Getenv("MIGRATOR_SOURCE_URL")
	if sourceURL != "" {
		// The value may carry credentials, so it is not echoed.
		if _, err := url.Parse(sourceURL); err != nil {
			return nil, errors.New("MIGRATOR_SOURCE_URL is not a valid URL")
		}
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("MIGRATOR_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("MIGRATOR_LOG_LEVEL has invalid value %q: %w", v, err)
		}
	}

	return &Config{
		CredentialSource: source,
		SSLMode:          sslMode,
		ConnectTimeout:   connectTimeout,
		LockTimeout:      lockTimeout,
		DeadlineMargin:   deadlineMargin,
		MigrationsTable:  migrationsTable,
		SourceURL:        sourceURL,
		LogLevel:         logLevel,
	}, nil
}

// durationEnv parses key as a non-negative duration, returning def when unset.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, v)
	}
	return parsed, nil
}
