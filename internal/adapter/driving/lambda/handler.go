// Package lambdahandler is the AWS Lambda driving adapter for the migration runner.
package lambdahandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
)

// MigrationRunner is the application service the handler drives.
// *application.MigrationService satisfies it.
type MigrationRunner interface {
	Run(ctx context.Context, event model.InvocationEvent) model.MigrationResult
	Fail(stage model.Stage, err error) model.MigrationResult
}

// Handler turns a Lambda invocation into a migration run and returns the
// result text. It never returns a Go error: failures are reported in the
// text so the caller always receives a "Migration ..." message.
type Handler struct {
	runner         MigrationRunner
	decodeEvent    bool
	deadlineMargin time.Duration
	logger         *slog.Logger
}

// NewHandler creates a Handler. When decodeEvent is false the invocation
// payload is ignored entirely. deadlineMargin is reserved from the Lambda
// deadline so a stopped migration can still report before the runtime is
// frozen.
func NewHandler(runner MigrationRunner, decodeEvent bool, deadlineMargin time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		runner:         runner,
		decodeEvent:    decodeEvent,
		deadlineMargin: deadlineMargin,
		logger:         logger,
	}
}

// Handle is the function passed to lambda.Start.
func (h *Handler) Handle(ctx context.Context, payload json.RawMessage) (resp string, err error) {
	start := time.Now()
	logger := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With("request_id", lc.AwsRequestID)
	}

	defer func() {
		if v := recover(); v != nil {
			logger.Error("panic recovered", "panic", v)
			cause := model.NewError(model.KindInternal, fmt.Sprintf("internal error: %v", v), nil)
			resp, err = h.runner.Fail(model.StageFailed, cause).Message, nil
		}
	}()

	if deadline, ok := ctx.Deadline(); ok && h.deadlineMargin > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline.Add(-h.deadlineMargin))
		defer cancel()
	}

	var event model.InvocationEvent
	if h.decodeEvent {
		if decodeErr := decodeInvocationEvent(payload, &event); decodeErr != nil {
			cause := model.NewError(model.KindInvalidConfiguration, "invocation event is not a valid JSON object", decodeErr)
			return h.runner.Fail(model.StageResolvingConfig, cause).Message, nil
		}
	}

	result := h.runner.Run(ctx, event)

	logger.Info("lambda invocation complete",
		"outcome", result.Outcome,
		"stage", result.Stage,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return result.Message, nil
}

// decodeInvocationEvent accepts an empty or null payload as an empty event.
func decodeInvocationEvent(payload json.RawMessage, event *model.InvocationEvent) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.Unmarshal(trimmed, event)
}
