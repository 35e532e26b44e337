package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

// MigrationInvoker opens a connection for a descriptor and hands it to the
// migration engine. It depends only on port interfaces.
type MigrationInvoker struct {
	connector driven.Connector
	engine    driven.MigrationEngine
	logger    *slog.Logger
}

// NewMigrationInvoker creates a new MigrationInvoker with the required dependencies.
func NewMigrationInvoker(connector driven.Connector, engine driven.MigrationEngine, logger *slog.Logger) *MigrationInvoker {
	return &MigrationInvoker{
		connector: connector,
		engine:    engine,
		logger:    logger,
	}
}

// Run connects, migrates to the latest changelog version and maps the outcome
// to a result. Errors never escape: they become a Failed result. The
// connection is closed on every path once opened.
func (i *MigrationInvoker) Run(ctx context.Context, descriptor model.ConnectionDescriptor) model.MigrationResult {
	i.logger.Info("connecting to database", "stage", model.StageConnecting, "db", descriptor)

	db, err := i.connector.Open(ctx, descriptor)
	if err != nil {
		cause := model.NewError(model.KindConnection, "failed to connect to database", err)
		i.logger.Error("database connection failed", "stage", model.StageConnecting, "db", descriptor, "error", err)
		return model.Failed(model.StageConnecting, cause)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			i.logger.Error("error closing database", "error", closeErr)
		}
	}()

	i.logger.Info("running migrations", "stage", model.StageMigrating)
	start := time.Now()

	report, err := i.engine.Migrate(ctx, db)
	if err != nil {
		cause := model.NewError(model.KindMigrationEngine, "", err)
		i.logger.Error("migration failed", "stage", model.StageMigrating, "error", err,
			"duration", time.Since(start).Round(time.Millisecond))
		return model.Failed(model.StageMigrating, cause)
	}

	i.logger.Info("migration successful",
		"from_version", report.FromVersion,
		"to_version", report.ToVersion,
		"changed", report.Changed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return model.Succeeded(report)
}
