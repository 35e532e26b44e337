package model

// SuccessMessage is the text returned for a successful invocation.
const SuccessMessage = "Migration successful"

// FailurePrefix precedes the cause in the text returned for a failed invocation.
const FailurePrefix = "Migration failed: "

// MigrationReport describes what the migration engine did.
// HadVersion is false when the target had no migration history before the run.
type MigrationReport struct {
	FromVersion uint
	ToVersion   uint
	HadVersion  bool
	Changed     bool
}

// MigrationResult is the outcome of one invocation.
type MigrationResult struct {
	Outcome Outcome
	Stage   Stage
	Message string
	Err     error
	Report  *MigrationReport
}

// Succeeded returns a successful result carrying the engine report.
func Succeeded(report MigrationReport) MigrationResult {
	return MigrationResult{
		Outcome: OutcomeSucceeded,
		Stage:   StageSucceeded,
		Message: SuccessMessage,
		Report:  &report,
	}
}

// Failed returns a failed result for err, remembering the stage it happened in.
func Failed(stage Stage, err error) MigrationResult {
	return MigrationResult{
		Outcome: OutcomeFailed,
		Stage:   stage,
		Message: FailurePrefix + err.Error(),
		Err:     err,
	}
}

// OK reports whether the invocation succeeded.
func (r MigrationResult) OK() bool {
	return r.Outcome == OutcomeSucceeded
}

// Kind returns the failure kind, or "" for a successful result.
func (r MigrationResult) Kind() ErrorKind {
	if r.OK() {
		return ""
	}
	return KindOf(r.Err)
}

// String returns the caller-facing text.
func (r MigrationResult) String() string {
	return r.Message
}
