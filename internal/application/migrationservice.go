package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

// MigrationService runs one invocation end to end:
// Idle -> ResolvingConfig -> Connecting -> Migrating -> Succeeded | Failed.
// Any failure short-circuits to Failed with the originating cause.
type MigrationService struct {
	source   model.CredentialSource
	lookup   LookupFunc
	fetcher  driven.SecretFetcher
	resolver *ConfigResolver
	invoker  *MigrationInvoker
	logger   *slog.Logger
}

// NewMigrationService creates a MigrationService. fetcher may be nil when
// source is model.CredentialSourceEvent.
func NewMigrationService(
	source model.CredentialSource,
	lookup LookupFunc,
	fetcher driven.SecretFetcher,
	resolver *ConfigResolver,
	invoker *MigrationInvoker,
	logger *slog.Logger,
) *MigrationService {
	return &MigrationService{
		source:   source,
		lookup:   lookup,
		fetcher:  fetcher,
		resolver: resolver,
		invoker:  invoker,
		logger:   logger,
	}
}

// Run executes the migration procedure. event is only read when the service
// was built for the event credential source.
func (s *MigrationService) Run(ctx context.Context, event model.InvocationEvent) model.MigrationResult {
	s.logger.Info("migration invocation started", "stage", model.StageIdle, "credential_source", s.source)

	descriptor, err := s.Resolve(ctx, event)
	if err != nil {
		return s.Fail(model.StageResolvingConfig, err)
	}

	result := s.invoker.Run(ctx, descriptor)
	if !result.OK() {
		s.logger.Error("migration invocation failed", "stage", result.Stage, "kind", result.Kind())
		return result
	}

	s.logger.Info("migration invocation finished", "stage", model.StageSucceeded)
	return result
}

// Resolve performs only the ResolvingConfig stage.
func (s *MigrationService) Resolve(ctx context.Context, event model.InvocationEvent) (model.ConnectionDescriptor, error) {
	s.logger.Info("resolving connection configuration", "stage", model.StageResolvingConfig)

	if s.source == model.CredentialSourceEvent {
		s.logger.Warn("using direct credentials from invocation event")
		return DescriptorFromEvent(event)
	}
	return s.resolver.Resolve(ctx, s.lookup, s.fetcher)
}

// Fail builds and logs a Failed result. Driving adapters use it for causes
// raised outside the pipeline, such as an undecodable event.
func (s *MigrationService) Fail(stage model.Stage, err error) model.MigrationResult {
	result := model.Failed(stage, err)
	s.logger.Error("migration invocation failed", "stage", stage, "kind", result.Kind(), "error", err)
	return result
}
