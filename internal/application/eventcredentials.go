package application

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
)

const defaultPostgresPort = 5432

// DescriptorFromEvent builds a ConnectionDescriptor from direct credentials in
// the invocation event. jdbc_url may be a JDBC postgres URL
// (jdbc:postgresql://host[:port]/db[?user=..&password=..]) or a plain
// postgres:// URL. Credentials embedded in the URL are used only when the
// matching event field is empty. sslmode or ssl in the query overrides the
// connector's sslmode for this connection. Only a single host is accepted.
func DescriptorFromEvent(event model.InvocationEvent) (model.ConnectionDescriptor, error) {
	if event.JDBCURL == "" {
		return model.ConnectionDescriptor{}, model.NewError(model.KindMissingConfiguration,
			"missing required event fields: jdbc_url", nil)
	}

	u, err := parseDatabaseURL(event.JDBCURL)
	if err != nil {
		// The URL may carry a password, so the parse error is not wrapped.
		return model.ConnectionDescriptor{}, model.NewError(model.KindInvalidConfiguration,
			"jdbc_url is not a valid postgres URL", nil)
	}

	username := event.Username
	password := event.Password
	passwordSet := password != ""
	if username == "" {
		username = u.Query().Get("user")
	}
	if username == "" && u.User != nil {
		username = u.User.Username()
	}
	if !passwordSet {
		if q := u.Query(); q.Has("password") {
			password, passwordSet = q.Get("password"), true
		} else if u.User != nil {
			password, passwordSet = u.User.Password()
		}
	}

	var missing []string
	if username == "" {
		missing = append(missing, "username")
	}
	if !passwordSet {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return model.ConnectionDescriptor{}, model.NewError(model.KindMissingConfiguration,
			"missing required event fields: "+strings.Join(missing, ", "), nil)
	}

	port := defaultPostgresPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return model.ConnectionDescriptor{}, model.NewError(model.KindInvalidConfiguration,
				fmt.Sprintf("jdbc_url has invalid port %q", p), nil)
		}
	}

	sslMode, err := sslModeFromQuery(u.Query())
	if err != nil {
		return model.ConnectionDescriptor{}, err
	}

	descriptor, err := model.NewConnectionDescriptor(
		u.Hostname(),
		port,
		strings.TrimPrefix(u.Path, "/"),
		username,
		password,
	)
	if err != nil || sslMode == "" {
		return descriptor, err
	}
	return descriptor.WithSSLMode(sslMode)
}

// sslModeFromQuery maps the TLS parameters of a JDBC or libpq URL to an
// sslmode. sslmode wins over PgJDBC's ssl flag, and ssl=true means
// verify-full as in PgJDBC. Other ssl* parameters cannot be honoured and are
// rejected. An empty result leaves the connector default in place.
func sslModeFromQuery(q url.Values) (string, error) {
	for key := range q {
		if strings.HasPrefix(key, "ssl") && key != "sslmode" && key != "ssl" {
			return "", model.NewError(model.KindInvalidConfiguration,
				fmt.Sprintf("jdbc_url parameter %q is not supported", key), nil)
		}
	}

	if q.Has("sslmode") {
		mode := q.Get("sslmode")
		if !model.ValidSSLMode(mode) {
			return "", model.NewError(model.KindInvalidConfiguration,
				fmt.Sprintf("jdbc_url has invalid sslmode %q", mode), nil)
		}
		return mode, nil
	}

	if q.Has("ssl") {
		switch strings.ToLower(q.Get("ssl")) {
		case "true", "":
			return "verify-full", nil
		case "false":
			return "disable", nil
		default:
			return "", model.NewError(model.KindInvalidConfiguration,
				fmt.Sprintf("jdbc_url has invalid ssl value %q", q.Get("ssl")), nil)
		}
	}

	return "", nil
}

func parseDatabaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimPrefix(raw, "jdbc:")
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "postgresql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	if strings.Contains(u.Host, ",") {
		return nil, fmt.Errorf("multiple hosts are not supported")
	}
	return u, nil
}
