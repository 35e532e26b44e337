package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/schemamigrator/internal/application"
	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
)

type serviceFixture struct {
	fetcher   *mockSecretFetcher
	connector *mockConnector
	engine    *mockEngine
	service   *application.MigrationService
}

func newServiceFixture(t *testing.T, source model.CredentialSource, env map[string]string, secret string) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		fetcher:   staticSecret(secret),
		connector: sqliteConnector(t),
		engine:    pendingChangesEngine(1),
	}
	logger := discardLogger()
	f.service = application.NewMigrationService(
		source,
		application.MapLookup(env),
		f.fetcher,
		application.NewConfigResolver(logger),
		application.NewMigrationInvoker(f.connector, f.engine, logger),
		logger,
	)
	return f
}

func TestMigrationService_EndToEndSuccess(t *testing.T) {
	f := newServiceFixture(t, model.CredentialSourceEnvironment, fullEnv(), `{"password":"s3cr3t"}`)

	result := f.service.Run(context.Background(), model.InvocationEvent{})

	assert.Equal(t, "Migration successful", result.String())
	assert.Equal(t, []string{"arn:secret:1"}, f.fetcher.calls)
	require.Len(t, f.connector.seen, 1)
	d := f.connector.seen[0]
	assert.Equal(t, "db.local", d.Host())
	assert.Equal(t, 5432, d.Port())
	assert.Equal(t, "appdb", d.Database())
	assert.Equal(t, "app", d.Username())
	assert.Equal(t, "s3cr3t", d.Password())
	assert.Equal(t, 1, f.engine.calls)
	require.NotNil(t, result.Report)
	assert.Equal(t, uint(1), result.Report.ToVersion)
}

func TestMigrationService_EndToEndMissingPassword(t *testing.T) {
	f := newServiceFixture(t, model.CredentialSourceEnvironment, fullEnv(), `{}`)

	result := f.service.Run(context.Background(), model.InvocationEvent{})

	assert.Equal(t, "Migration failed: password field not found in secret", result.String())
	assert.Equal(t, model.StageResolvingConfig, result.Stage)
	assert.Equal(t, model.KindMalformedSecret, result.Kind())
	assert.Empty(t, f.connector.seen, "no connection attempt")
	assert.Equal(t, 0, f.engine.calls)
}

func TestMigrationService_MissingConfiguration(t *testing.T) {
	env := fullEnv()
	delete(env, "DB_SECRET_ARN")
	f := newServiceFixture(t, model.CredentialSourceEnvironment, env, `{"password":"s3cr3t"}`)

	result := f.service.Run(context.Background(), model.InvocationEvent{})

	assert.Equal(t, "Migration failed: missing required environment variables: DB_SECRET_ARN", result.String())
	assert.Empty(t, f.fetcher.calls)
	assert.Empty(t, f.connector.seen)
}

func TestMigrationService_SecretFetchFailure(t *testing.T) {
	f := newServiceFixture(t, model.CredentialSourceEnvironment, fullEnv(), "")
	f.fetcher.fetch = func(_ context.Context, _ string) (string, error) {
		return "", errors.New("AccessDeniedException: not authorized")
	}

	result := f.service.Run(context.Background(), model.InvocationEvent{})

	assert.Equal(t, "Migration failed: failed to get secret value: AccessDeniedException: not authorized", result.String())
	assert.Equal(t, model.KindSecretFetch, result.Kind())
	assert.Empty(t, f.connector.seen)
}

func TestMigrationService_RunTwiceIsIdempotent(t *testing.T) {
	f := newServiceFixture(t, model.CredentialSourceEnvironment, fullEnv(), `{"password":"s3cr3t"}`)

	first := f.service.Run(context.Background(), model.InvocationEvent{})
	second := f.service.Run(context.Background(), model.InvocationEvent{})

	assert.Equal(t, "Migration successful", first.String())
	assert.Equal(t, "Migration successful", second.String())
	assert.True(t, first.Report.Changed)
	assert.False(t, second.Report.Changed)
}

func TestMigrationService_EventSourceIgnoresEnvironment(t *testing.T) {
	f := newServiceFixture(t, model.CredentialSourceEvent, map[string]string{}, "")
	event := model.InvocationEvent{
		JDBCURL:  "jdbc:postgresql://db.event:5432/eventdb",
		Username: "evt",
		Password: "evtpass",
	}

	result := f.service.Run(context.Background(), event)

	assert.Equal(t, "Migration successful", result.String())
	assert.Empty(t, f.fetcher.calls, "event source never reads the secrets store")
	require.Len(t, f.connector.seen, 1)
	assert.Equal(t, "db.event", f.connector.seen[0].Host())
	assert.Equal(t, "evtpass", f.connector.seen[0].Password())
}

func TestMigrationService_EnvironmentSourceIgnoresEvent(t *testing.T) {
	f := newServiceFixture(t, model.CredentialSourceEnvironment, fullEnv(), `{"password":"s3cr3t"}`)
	event := model.InvocationEvent{JDBCURL: "jdbc:postgresql://attacker:5432/x", Username: "u", Password: "p"}

	result := f.service.Run(context.Background(), event)

	require.True(t, result.OK())
	assert.Equal(t, "db.local", f.connector.seen[0].Host())
}

func TestMigrationService_Fail(t *testing.T) {
	f := newServiceFixture(t, model.CredentialSourceEvent, nil, "")

	result := f.service.Fail(model.StageIdle, model.NewError(model.KindInvalidConfiguration, "invocation event is not valid JSON", nil))

	assert.Equal(t, "Migration failed: invocation event is not valid JSON", result.String())
	assert.Equal(t, model.KindInvalidConfiguration, result.Kind())
}
