package driven

import (
	"context"
	"database/sql"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
)

// Connector defines the driven port for opening a database connection from a
// resolved descriptor.
type Connector interface {
	// Open returns a verified (pinged) handle. On error nothing is left open.
	// The caller owns the returned handle and must Close it.
	Open(ctx context.Context, descriptor model.ConnectionDescriptor) (*sql.DB, error)
}
