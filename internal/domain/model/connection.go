package model

import (
	"fmt"
	"log/slog"
	"slices"
)

const redacted = "[REDACTED]"

// ConnectionDescriptor holds the fully resolved parameters needed to open a
// database connection. Fields are unexported so a descriptor cannot change
// after NewConnectionDescriptor validates it.
//
// The password never appears in String, GoString or slog output.
type ConnectionDescriptor struct {
	host     string
	port     int
	database string
	username string
	password string
	sslMode  string
}

// SSLModes lists the libpq sslmode values a descriptor or the runner
// configuration may carry.
var SSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// ValidSSLMode reports whether mode is one of SSLModes.
func ValidSSLMode(mode string) bool {
	return slices.Contains(SSLModes, mode)
}

// NewConnectionDescriptor validates its inputs and returns a descriptor.
// Host, database and username must be non-empty and port must be a valid TCP
// port. The password is stored exactly as given.
func NewConnectionDescriptor(host string, port int, database, username, password string) (ConnectionDescriptor, error) {
	switch {
	case host == "":
		return ConnectionDescriptor{}, NewError(KindInvalidConfiguration, "database host is empty", nil)
	case port < 1 || port > 65535:
		return ConnectionDescriptor{}, NewError(KindInvalidConfiguration, fmt.Sprintf("database port %d is out of range", port), nil)
	case database == "":
		return ConnectionDescriptor{}, NewError(KindInvalidConfiguration, "database name is empty", nil)
	case username == "":
		return ConnectionDescriptor{}, NewError(KindInvalidConfiguration, "database username is empty", nil)
	}

	return ConnectionDescriptor{
		host:     host,
		port:     port,
		database: database,
		username: username,
		password: password,
	}, nil
}

func (d ConnectionDescriptor) Host() string     { return d.host }
func (d ConnectionDescriptor) Port() int        { return d.port }
func (d ConnectionDescriptor) Database() string { return d.database }
func (d ConnectionDescriptor) Username() string { return d.username }

// Password returns the plaintext password. Only connectors should call it.
func (d ConnectionDescriptor) Password() string { return d.password }

// SSLMode returns the sslmode requested for this connection, or "" when the
// connector default applies.
func (d ConnectionDescriptor) SSLMode() string { return d.sslMode }

// WithSSLMode returns a copy of d that requests mode for its connection.
func (d ConnectionDescriptor) WithSSLMode(mode string) (ConnectionDescriptor, error) {
	if !ValidSSLMode(mode) {
		return ConnectionDescriptor{}, NewError(KindInvalidConfiguration, fmt.Sprintf("sslmode %q is not supported", mode), nil)
	}
	d.sslMode = mode
	return d, nil
}

// String renders the descriptor as a postgres URL with the password redacted.
func (d ConnectionDescriptor) String() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.username, redacted, d.host, d.port, d.database)
}

// GoString covers %#v, which would otherwise print every field.
func (d ConnectionDescriptor) GoString() string {
	return fmt.Sprintf("model.ConnectionDescriptor{host:%q, port:%d, database:%q, username:%q, password:%q, sslMode:%q}",
		d.host, d.port, d.database, d.username, redacted, d.sslMode)
}

// LogValue implements slog.LogValuer.
func (d ConnectionDescriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", d.host),
		slog.Int("port", d.port),
		slog.String("database", d.database),
		slog.String("username", d.username),
		slog.String("ssl_mode", d.sslMode),
	)
}
