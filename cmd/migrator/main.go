package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for the provided.al2023 runtime

	"github.com/ericfisherdev/schemamigrator/internal/adapter/driven/awssecrets"
	"github.com/ericfisherdev/schemamigrator/internal/adapter/driven/migrator"
	"github.com/ericfisherdev/schemamigrator/internal/adapter/driven/postgres"
	lambdahandler "github.com/ericfisherdev/schemamigrator/internal/adapter/driving/lambda"
	"github.com/ericfisherdev/schemamigrator/internal/application"
	"github.com/ericfisherdev/schemamigrator/internal/config"
	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration. Connection keys are resolved per invocation.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("config loaded",
		"credential_source", cfg.CredentialSource,
		"ssl_mode", cfg.SSLMode,
		"connect_timeout", cfg.ConnectTimeout,
		"lock_timeout", cfg.LockTimeout,
		"migrations_table", cfg.MigrationsTable,
		"source_url", cfg.RedactedSourceURL(),
	)

	// 2. Secrets Manager client, created once per execution environment.
	var fetcher driven.SecretFetcher
	if !cfg.EventCredentialsEnabled() {
		f, err := awssecrets.NewFetcherFromEnv(context.Background(), logger)
		if err != nil {
			return err
		}
		fetcher = f
	}

	// 3. Wire adapters.
	connector := postgres.NewConnector(cfg.SSLMode, cfg.ConnectTimeout)
	engine := migrator.New(migrator.DialectPostgres,
		migrator.WithSourceURL(cfg.SourceURL),
		migrator.WithMigrationsTable(cfg.MigrationsTable),
		migrator.WithLockTimeout(cfg.LockTimeout),
		migrator.WithLogger(logger),
	)

	// 4. Application services.
	resolver := application.NewConfigResolver(logger)
	invoker := application.NewMigrationInvoker(connector, engine, logger)
	svc := application.NewMigrationService(cfg.CredentialSource, os.LookupEnv, fetcher, resolver, invoker, logger)

	// 5. Hand control to the Lambda runtime.
	handler := lambdahandler.NewHandler(svc, cfg.EventCredentialsEnabled(), cfg.DeadlineMargin, logger)
	logger.Info("migrator started")
	lambda.Start(handler.Handle)
	return nil
}
