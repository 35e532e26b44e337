// Package awssecrets implements driven.SecretFetcher on AWS Secrets Manager.
package awssecrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

// GetSecretValueAPI is the subset of *secretsmanager.Client the fetcher uses.
type GetSecretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Fetcher reads secret documents from Secrets Manager. It performs a single
// GetSecretValue call per FetchSecret and keeps no cache between calls.
type Fetcher struct {
	api    GetSecretValueAPI
	logger *slog.Logger
}

// Compile-time interface check.
var _ driven.SecretFetcher = (*Fetcher)(nil)

// NewFetcher creates a Fetcher over an existing API client.
func NewFetcher(api GetSecretValueAPI, logger *slog.Logger) *Fetcher {
	return &Fetcher{api: api, logger: logger}
}

// NewFetcherFromEnv loads the default AWS configuration (Lambda execution
// role, env credentials or shared profile) and creates a Fetcher.
// Retries are disabled: one failed read is terminal for the invocation.
func NewFetcherFromEnv(ctx context.Context, logger *slog.Logger) (*Fetcher, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(1))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewFetcher(secretsmanager.NewFromConfig(cfg), logger), nil
}

// FetchSecret returns the SecretString of ref. A secret stored as
// SecretBinary yields driven.ErrSecretNotText.
func (f *Fetcher) FetchSecret(ctx context.Context, ref string) (string, error) {
	out, err := f.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) {
			f.logger.Error("secrets manager request failed",
				"secret_ref", ref,
				"error_code", ae.ErrorCode(),
				"fault", ae.ErrorFault().String(),
			)
			return "", fmt.Errorf("get secret value %s (%s): %w", ref, ae.ErrorCode(), err)
		}
		return "", fmt.Errorf("get secret value %s: %w", ref, err)
	}

	if out.SecretString == nil {
		if len(out.SecretBinary) > 0 {
			return "", driven.ErrSecretNotText
		}
		return "", errors.New("secret has no value")
	}

	f.logger.Debug("secret fetched", "secret_ref", ref, "version_id", aws.ToString(out.VersionId))
	return *out.SecretString, nil
}
