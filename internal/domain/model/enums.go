package model

// Stage identifies where an invocation is in the migration pipeline.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageResolvingConfig Stage = "resolving_config"
	StageConnecting      Stage = "connecting"
	StageMigrating       Stage = "migrating"
	StageSucceeded       Stage = "succeeded"
	StageFailed          Stage = "failed"
)

// Outcome is the tag of a MigrationResult.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// ErrorKind classifies failures surfaced in a Failed result.
type ErrorKind string

const (
	KindMissingConfiguration ErrorKind = "missing_configuration"
	KindInvalidConfiguration ErrorKind = "invalid_configuration"
	KindSecretFetch          ErrorKind = "secret_fetch_error"
	KindMalformedSecret      ErrorKind = "malformed_secret"
	KindConnection           ErrorKind = "connection_error"
	KindMigrationEngine      ErrorKind = "migration_engine_error"
	KindInternal             ErrorKind = "internal_error"
)

// CredentialSource selects where connection credentials come from.
type CredentialSource string

const (
	CredentialSourceEnvironment CredentialSource = "environment" // Env vars + secrets store.
	CredentialSourceEvent       CredentialSource = "event"       // jdbc_url/username/password in the event.
)
