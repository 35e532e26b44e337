package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

// Environment variables read by ConfigResolver. All are required.
const (
	EnvDBUsername  = "DB_USERNAME"
	EnvDBAddress   = "DB_ADDRESS"
	EnvDBPort      = "DB_PORT"
	EnvDBName      = "DB_NAME"
	EnvDBSecretARN = "DB_SECRET_ARN"
)

var requiredEnv = []string{EnvDBUsername, EnvDBAddress, EnvDBPort, EnvDBName, EnvDBSecretARN}

// LookupFunc reads one key from a read-only environment. os.LookupEnv
// satisfies it.
type LookupFunc func(key string) (string, bool)

// MapLookup adapts a plain map to LookupFunc.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// ConfigResolver builds a ConnectionDescriptor from the environment and the
// secrets store.
type ConfigResolver struct {
	logger *slog.Logger
}

// NewConfigResolver creates a ConfigResolver.
func NewConfigResolver(logger *slog.Logger) *ConfigResolver {
	return &ConfigResolver{logger: logger}
}

// Resolve validates the required environment keys, fetches the database
// secret once and returns the descriptor. The fetcher is not called when any
// key is missing or invalid.
func (r *ConfigResolver) Resolve(ctx context.Context, lookup LookupFunc, fetcher driven.SecretFetcher) (model.ConnectionDescriptor, error) {
	values := make(map[string]string, len(requiredEnv))
	var missing []string
	for _, key := range requiredEnv {
		v, ok := lookup(key)
		if !ok || v == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = v
	}
	if len(missing) > 0 {
		r.logger.Error("missing required environment variables", "keys", missing)
		return model.ConnectionDescriptor{}, model.NewError(model.KindMissingConfiguration,
			"missing required environment variables: "+strings.Join(missing, ", "), nil)
	}

	port, err := parsePort(values[EnvDBPort])
	if err != nil {
		return model.ConnectionDescriptor{}, model.NewError(model.KindInvalidConfiguration,
			fmt.Sprintf("%s has invalid value %q", EnvDBPort, values[EnvDBPort]), err)
	}

	secretRef := values[EnvDBSecretARN]
	r.logger.Info("fetching database password from secrets store", "secret_ref", secretRef)

	raw, err := fetcher.FetchSecret(ctx, secretRef)
	if err != nil {
		if errors.Is(err, driven.ErrSecretNotText) {
			return model.ConnectionDescriptor{}, model.NewError(model.KindMalformedSecret, "", err)
		}
		return model.ConnectionDescriptor{}, model.NewError(model.KindSecretFetch, "failed to get secret value", err)
	}

	payload, err := model.ParseSecretPayload(raw)
	if err != nil {
		r.logger.Error("secret payload rejected", "secret_ref", secretRef, "error", err)
		return model.ConnectionDescriptor{}, err
	}

	descriptor, err := model.NewConnectionDescriptor(
		values[EnvDBAddress],
		port,
		values[EnvDBName],
		values[EnvDBUsername],
		payload.Password,
	)
	if err != nil {
		return model.ConnectionDescriptor{}, err
	}

	r.logger.Info("connection descriptor resolved", "db", descriptor)
	return descriptor, nil
}

// parsePort accepts a decimal TCP port.
func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}
