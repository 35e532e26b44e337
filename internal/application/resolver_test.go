package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/schemamigrator/internal/application"
	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

func TestResolve_Success(t *testing.T) {
	fetcher := staticSecret(`{"password":"s3cr3t"}`)
	resolver := application.NewConfigResolver(discardLogger())

	d, err := resolver.Resolve(context.Background(), application.MapLookup(fullEnv()), fetcher)

	require.NoError(t, err)
	assert.Equal(t, "db.local", d.Host())
	assert.Equal(t, 5432, d.Port())
	assert.Equal(t, "appdb", d.Database())
	assert.Equal(t, "app", d.Username())
	assert.Equal(t, "s3cr3t", d.Password())
	assert.Equal(t, []string{"arn:secret:1"}, fetcher.calls)
}

func TestResolve_MissingEachKeyNeverFetches(t *testing.T) {
	keys := []string{"DB_USERNAME", "DB_ADDRESS", "DB_PORT", "DB_NAME", "DB_SECRET_ARN"}

	for _, key := range keys {
		for _, mode := range []string{"unset", "empty"} {
			t.Run(key+"/"+mode, func(t *testing.T) {
				env := fullEnv()
				if mode == "unset" {
					delete(env, key)
				} else {
					env[key] = ""
				}
				fetcher := staticSecret(`{"password":"s3cr3t"}`)
				resolver := application.NewConfigResolver(discardLogger())

				_, err := resolver.Resolve(context.Background(), application.MapLookup(env), fetcher)

				require.Error(t, err)
				assert.True(t, errors.Is(err, model.ErrMissingConfiguration))
				assert.Contains(t, err.Error(), key)
				assert.Empty(t, fetcher.calls, "secret fetcher must not be called")
			})
		}
	}
}

func TestResolve_NamesAllMissingKeys(t *testing.T) {
	fetcher := staticSecret(`{"password":"s3cr3t"}`)
	resolver := application.NewConfigResolver(discardLogger())

	_, err := resolver.Resolve(context.Background(), application.MapLookup(map[string]string{"DB_NAME": "appdb"}), fetcher)

	require.Error(t, err)
	assert.Equal(t,
		"missing required environment variables: DB_USERNAME, DB_ADDRESS, DB_PORT, DB_SECRET_ARN",
		err.Error())
	assert.Empty(t, fetcher.calls)
}

func TestResolve_InvalidPort(t *testing.T) {
	for _, port := range []string{"abc", "0", "70000", "-1"} {
		t.Run(port, func(t *testing.T) {
			env := fullEnv()
			env["DB_PORT"] = port
			fetcher := staticSecret(`{"password":"s3cr3t"}`)
			resolver := application.NewConfigResolver(discardLogger())

			_, err := resolver.Resolve(context.Background(), application.MapLookup(env), fetcher)

			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
			assert.Contains(t, err.Error(), "DB_PORT")
			assert.Empty(t, fetcher.calls)
		})
	}
}

func TestResolve_FetchFailure(t *testing.T) {
	fetcher := &mockSecretFetcher{
		fetch: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("ResourceNotFoundException: secret not found")
		},
	}
	resolver := application.NewConfigResolver(discardLogger())

	_, err := resolver.Resolve(context.Background(), application.MapLookup(fullEnv()), fetcher)

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrSecretFetch))
	assert.Contains(t, err.Error(), "ResourceNotFoundException")
	assert.Len(t, fetcher.calls, 1, "no retries")
}

func TestResolve_BinarySecret(t *testing.T) {
	fetcher := &mockSecretFetcher{
		fetch: func(_ context.Context, _ string) (string, error) {
			return "", driven.ErrSecretNotText
		},
	}
	resolver := application.NewConfigResolver(discardLogger())

	_, err := resolver.Resolve(context.Background(), application.MapLookup(fullEnv()), fetcher)

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMalformedSecret))
	assert.Equal(t, "secret value is binary, not supported", err.Error())
}

func TestResolve_PayloadWithoutPassword(t *testing.T) {
	payloads := []string{`{}`, `{"username":"app"}`, `{"Password":"wrong-case"}`}

	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			resolver := application.NewConfigResolver(discardLogger())

			_, err := resolver.Resolve(context.Background(), application.MapLookup(fullEnv()), staticSecret(payload))

			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrMalformedSecret))
			assert.Equal(t, "password field not found in secret", err.Error())
		})
	}
}

func TestResolve_PasswordKeptExactly(t *testing.T) {
	passwords := []string{"s3cr3t", "", " padded ", "p@ss:w/rd?&=#", "ünïcødé", `quote"and\backslash`}

	for _, pw := range passwords {
		t.Run(pw, func(t *testing.T) {
			payload, err := jsonObject("password", pw)
			require.NoError(t, err)
			resolver := application.NewConfigResolver(discardLogger())

			d, err := resolver.Resolve(context.Background(), application.MapLookup(fullEnv()), staticSecret(payload))

			require.NoError(t, err)
			assert.Equal(t, pw, d.Password())
		})
	}
}

func TestResolve_NeverLogsPassword(t *testing.T) {
	logger, buf := bufferLogger()
	resolver := application.NewConfigResolver(logger)

	_, err := resolver.Resolve(context.Background(), application.MapLookup(fullEnv()),
		staticSecret(`{"password":"hunter2-very-secret","username":"app"}`))

	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
	assert.NotContains(t, buf.String(), "hunter2-very-secret")
}
