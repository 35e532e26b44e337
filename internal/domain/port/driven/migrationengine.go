package driven

import (
	"context"
	"database/sql"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
)

// MigrationEngine defines the driven port for the changelog migration engine.
type MigrationEngine interface {
	// Migrate applies every pending changelog entry to db. Having nothing to
	// apply is not an error. Migrate may close db when it finishes.
	Migrate(ctx context.Context, db *sql.DB) (model.MigrationReport, error)
}
