package application_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
)

// --- Mock implementations ---

type mockSecretFetcher struct {
	fetch func(ctx context.Context, ref string) (string, error)
	calls []string
}

func (m *mockSecretFetcher) FetchSecret(ctx context.Context, ref string) (string, error) {
	m.calls = append(m.calls, ref)
	return m.fetch(ctx, ref)
}

func staticSecret(payload string) *mockSecretFetcher {
	return &mockSecretFetcher{
		fetch: func(_ context.Context, _ string) (string, error) { return payload, nil },
	}
}

type mockConnector struct {
	open   func(ctx context.Context, d model.ConnectionDescriptor) (*sql.DB, error)
	opened []*sql.DB
	seen   []model.ConnectionDescriptor
}

func (m *mockConnector) Open(ctx context.Context, d model.ConnectionDescriptor) (*sql.DB, error) {
	m.seen = append(m.seen, d)
	db, err := m.open(ctx, d)
	if db != nil {
		m.opened = append(m.opened, db)
	}
	return db, err
}

// sqliteConnector hands out an in-memory SQLite handle regardless of the descriptor.
func sqliteConnector(t *testing.T) *mockConnector {
	t.Helper()
	return &mockConnector{
		open: func(_ context.Context, _ model.ConnectionDescriptor) (*sql.DB, error) {
			db, err := sql.Open("sqlite", ":memory:")
			require.NoError(t, err)
			return db, nil
		},
	}
}

type mockEngine struct {
	migrate func(ctx context.Context, db *sql.DB) (model.MigrationReport, error)
	calls   int
}

func (m *mockEngine) Migrate(ctx context.Context, db *sql.DB) (model.MigrationReport, error) {
	m.calls++
	return m.migrate(ctx, db)
}

// pendingChangesEngine simulates a changelog with `pending` unapplied changes
// that are all applied on the first call and absent afterwards.
func pendingChangesEngine(pending uint) *mockEngine {
	var version uint
	return &mockEngine{
		migrate: func(_ context.Context, _ *sql.DB) (model.MigrationReport, error) {
			report := model.MigrationReport{FromVersion: version, HadVersion: version > 0}
			version += pending
			pending = 0
			report.ToVersion = version
			report.Changed = report.ToVersion != report.FromVersion
			return report, nil
		},
	}
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func isClosed(db *sql.DB) bool {
	return db.PingContext(context.Background()) != nil
}

func fullEnv() map[string]string {
	return map[string]string{
		"DB_USERNAME":   "app",
		"DB_ADDRESS":    "db.local",
		"DB_PORT":       "5432",
		"DB_NAME":       "appdb",
		"DB_SECRET_ARN": "arn:secret:1",
	}
}

func jsonObject(key, value string) (string, error) {
	b, err := json.Marshal(map[string]string{key: value})
	return string(b), err
}
