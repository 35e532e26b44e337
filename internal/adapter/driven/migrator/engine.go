// Package migrator applies the schema changelog with golang-migrate.
package migrator

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// changelog override
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

// ChangelogDir is the directory of the changelog embedded in the binary.
// Files follow golang-migrate naming: NNNNNN_description.up.sql / .down.sql.
const ChangelogDir = "changelog"

//go:embed changelog/*.sql
var changelogFS embed.FS

// Dialect selects the golang-migrate database driver.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Engine implements driven.MigrationEngine. Each Migrate call builds a fresh
// golang-migrate instance and always migrates to the latest version.
type Engine struct {
	dialect         Dialect
	sourceFS        fs.FS
	sourceDir       string
	sourceURL       string
	migrationsTable string
	lockTimeout     time.Duration
	logger          *slog.Logger
}

// Compile-time interface check.
var _ driven.MigrationEngine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithSourceFS reads the changelog from dir inside fsys instead of the
// embedded changelog.
func WithSourceFS(fsys fs.FS, dir string) Option {
	return func(e *Engine) {
		e.sourceFS = fsys
		e.sourceDir = dir
	}
}

// WithSourceURL reads the changelog from a golang-migrate source URL such as
// file:///var/task/changelog. An empty url keeps the current source.
func WithSourceURL(url string) Option {
	return func(e *Engine) {
		if url != "" {
			e.sourceURL = url
		}
	}
}

// WithMigrationsTable sets the table that records the applied version.
func WithMigrationsTable(table string) Option {
	return func(e *Engine) {
		if table != "" {
			e.migrationsTable = table
		}
	}
}

// WithLockTimeout bounds how long Migrate waits for the migration lock.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lockTimeout = d
		}
	}
}

// WithLogger routes golang-migrate's log output to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine for dialect using the embedded changelog.
func New(dialect Dialect, opts ...Option) *Engine {
	e := &Engine{
		dialect:         dialect,
		sourceFS:        changelogFS,
		sourceDir:       ChangelogDir,
		migrationsTable: "schema_migrations",
		lockTimeout:     migrate.DefaultLockTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Migrate applies all pending changelog entries to db. golang-migrate closes
// db when the instance is closed, so db is unusable after Migrate returns.
// A dirty version left by an earlier partial apply is reported as an error
// without running anything.
func (e *Engine) Migrate(ctx context.Context, db *sql.DB) (model.MigrationReport, error) {
	var report model.MigrationReport

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("migration not started: %w", err)
	}

	dbDriver, err := e.databaseDriver(db)
	if err != nil {
		return report, fmt.Errorf("create migration db driver: %w", err)
	}

	sourceDriver, err := e.sourceDriver()
	if err != nil {
		_ = dbDriver.Close()
		return report, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("changelog", sourceDriver, string(e.dialect), dbDriver)
	if err != nil {
		_ = sourceDriver.Close()
		_ = dbDriver.Close()
		return report, fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			e.logger.Warn("error closing migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()
	m.Log = &migrateLogger{logger: e.logger}
	m.LockTimeout = e.lockTimeout

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return report, fmt.Errorf("read current version: %w", err)
	case dirty:
		return report, fmt.Errorf("database version %d is dirty: a previous migration was partially applied and must be fixed manually", from)
	default:
		report.FromVersion = from
		report.HadVersion = true
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			select {
			case m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return report, fmt.Errorf("run migrations: %w", err)
	}

	to, _, err := m.Version()
	hasVersion := true
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		hasVersion = false
	case err != nil:
		return report, fmt.Errorf("read applied version: %w", err)
	default:
		report.ToVersion = to
		report.Changed = !report.HadVersion || to != report.FromVersion
	}

	// A graceful stop lets the running entry finish, so a cancelled context
	// only means failure when entries are still pending.
	if ctxErr := ctx.Err(); ctxErr != nil {
		pending, err := hasPending(sourceDriver, to, hasVersion)
		if err != nil {
			return report, fmt.Errorf("check pending migrations: %w", err)
		}
		if pending {
			return report, fmt.Errorf("migration stopped before completion: %w", ctxErr)
		}
		e.logger.Warn("context ended after the last migration was applied", "to_version", to, "error", ctxErr)
	}

	return report, nil
}

// hasPending reports whether src has an entry after version, or any entry
// when nothing has been applied.
func hasPending(src source.Driver, version uint, hasVersion bool) (bool, error) {
	var err error
	if hasVersion {
		_, err = src.Next(version)
	} else {
		_, err = src.First()
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

func (e *Engine) databaseDriver(db *sql.DB) (database.Driver, error) {
	switch e.dialect {
	case DialectPostgres:
		return migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: e.migrationsTable})
	case DialectSQLite:
		return migratesqlite.WithInstance(db, &migratesqlite.Config{MigrationsTable: e.migrationsTable})
	default:
		return nil, fmt.Errorf("unsupported dialect %q", e.dialect)
	}
}

func (e *Engine) sourceDriver() (source.Driver, error) {
	if e.sourceURL != "" {
		return source.Open(e.sourceURL)
	}
	return iofs.New(e.sourceFS, e.sourceDir)
}

// migrateLogger adapts slog to migrate.Logger.
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "golang-migrate")
}

func (l *migrateLogger) Verbose() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}
