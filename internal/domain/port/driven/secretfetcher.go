package driven

import (
	"context"
	"errors"
)

// ErrSecretNotText is returned by SecretFetcher implementations when the
// secret exists but holds a binary value instead of a text document.
var ErrSecretNotText = errors.New("secret value is binary, not supported")

// SecretFetcher defines the driven port for reading a secret document from a
// secrets store. Implementations make exactly one read per call and do not retry.
type SecretFetcher interface {
	// FetchSecret returns the raw text payload of the secret identified by ref.
	// Returns ErrSecretNotText if the secret has no text value.
	FetchSecret(ctx context.Context, ref string) (string, error)
}
