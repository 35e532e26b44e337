package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/schemamigrator/internal/adapter/driven/awssecrets"
	"github.com/ericfisherdev/schemamigrator/internal/adapter/driven/localsecret"
	"github.com/ericfisherdev/schemamigrator/internal/adapter/driven/migrator"
	"github.com/ericfisherdev/schemamigrator/internal/adapter/driven/postgres"
	sqliteadapter "github.com/ericfisherdev/schemamigrator/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/schemamigrator/internal/application"
	"github.com/ericfisherdev/schemamigrator/internal/config"
	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

var version = "dev"

var (
	eventFile  string
	secretFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "migratectl",
	Short: "Run the schema migrator outside Lambda",
	Long: `migratectl runs the same migration procedure as the Lambda function from a
workstation or CI job.

Connection settings are read from DB_USERNAME, DB_ADDRESS, DB_PORT, DB_NAME
and DB_SECRET_ARN unless --event is given. MIGRATOR_* variables apply as in
the Lambda function.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Long: `Up resolves the connection, applies every pending changelog entry and prints
the result line returned by the Lambda function.

Example:
  migratectl up
  migratectl up --secret-file ./secret.json
  migratectl up --event ./event.json`,
	Args: cobra.NoArgs,
	RunE: runUp,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve and print the connection without migrating",
	Args:  cobra.NoArgs,
	RunE:  runResolve,
}

var localCmd = &cobra.Command{
	Use:   "local <sqlite-path>",
	Short: "Apply the embedded changelog to a local SQLite file",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocal,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("migratectl version %s\n", rootCmd.Version)
	},
}

// errFailed signals a failed run whose message has already been printed.
var errFailed = errors.New("migration failed")

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	for _, cmd := range []*cobra.Command{upCmd, resolveCmd} {
		cmd.Flags().StringVar(&eventFile, "event", "", "JSON invocation event with jdbc_url, username and password")
		cmd.Flags().StringVar(&secretFile, "secret-file", "", "Read the secret document from a file instead of Secrets Manager")
		cmd.MarkFlagsMutuallyExclusive("event", "secret-file")
	}

	rootCmd.AddCommand(upCmd, resolveCmd, localCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runUp(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	svc, event, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result := svc.Run(ctx, event)
	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	if !result.OK() {
		return errFailed
	}
	return nil
}

func runResolve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	svc, event, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}

	descriptor, err := svc.Resolve(ctx, event)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), svc.Fail(model.StageResolvingConfig, err).Message)
		return errFailed
	}
	fmt.Fprintln(cmd.OutOrStdout(), descriptor.String())
	return nil
}

func runLocal(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := sqliteadapter.Open(ctx, args[0])
	if err != nil {
		return err
	}
	defer db.Close()

	engine := migrator.New(migrator.DialectSQLite,
		migrator.WithSourceURL(cfg.SourceURL),
		migrator.WithMigrationsTable(cfg.MigrationsTable),
		migrator.WithLockTimeout(cfg.LockTimeout),
		migrator.WithLogger(logger),
	)

	report, err := engine.Migrate(ctx, db)
	if err != nil {
		result := model.Failed(model.StageMigrating, model.NewError(model.KindMigrationEngine, "", err))
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return errFailed
	}

	logger.Info("local migration finished", "from_version", report.FromVersion, "to_version", report.ToVersion, "changed", report.Changed)
	fmt.Fprintln(cmd.OutOrStdout(), model.Succeeded(report).Message)
	return nil
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

// newService wires the same pipeline as the Lambda function. --event forces
// the event credential source; --secret-file replaces Secrets Manager.
func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application.MigrationService, model.InvocationEvent, error) {
	var event model.InvocationEvent
	source := cfg.CredentialSource
	if eventFile != "" {
		data, err := os.ReadFile(eventFile)
		if err != nil {
			return nil, event, fmt.Errorf("read event file: %w", err)
		}
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, event, fmt.Errorf("decode event file %s: %w", eventFile, err)
		}
		source = model.CredentialSourceEvent
	}

	var fetcher driven.SecretFetcher
	switch {
	case source == model.CredentialSourceEvent:
	case secretFile != "":
		fetcher = localsecret.NewFileFetcher(secretFile, logger)
	default:
		f, err := awssecrets.NewFetcherFromEnv(ctx, logger)
		if err != nil {
			return nil, event, err
		}
		fetcher = f
	}

	connector := postgres.NewConnector(cfg.SSLMode, cfg.ConnectTimeout)
	engine := migrator.New(migrator.DialectPostgres,
		migrator.WithSourceURL(cfg.SourceURL),
		migrator.WithMigrationsTable(cfg.MigrationsTable),
		migrator.WithLockTimeout(cfg.LockTimeout),
		migrator.WithLogger(logger),
	)

	resolver := application.NewConfigResolver(logger)
	invoker := application.NewMigrationInvoker(connector, engine, logger)
	svc := application.NewMigrationService(source, os.LookupEnv, fetcher, resolver, invoker, logger)
	return svc, event, nil
}
