// Package localsecret implements driven.SecretFetcher on a local file, for
// running migrations from a workstation without Secrets Manager access.
package localsecret

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"

	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

// FileFetcher returns the contents of one file for every secret reference.
type FileFetcher struct {
	path   string
	logger *slog.Logger
}

// Compile-time interface check.
var _ driven.SecretFetcher = (*FileFetcher)(nil)

// NewFileFetcher creates a FileFetcher reading path.
func NewFileFetcher(path string, logger *slog.Logger) *FileFetcher {
	return &FileFetcher{path: path, logger: logger}
}

// FetchSecret reads the file. ref is only logged. Content that is not valid
// UTF-8 yields driven.ErrSecretNotText.
func (f *FileFetcher) FetchSecret(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("read secret file %s: %w", f.path, err)
	}
	if !utf8.Valid(data) {
		return "", driven.ErrSecretNotText
	}

	f.logger.Debug("secret read from file", "secret_ref", ref, "path", f.path)
	return string(data), nil
}
