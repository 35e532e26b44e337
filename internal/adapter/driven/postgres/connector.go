// Package postgres opens PostgreSQL connections through pgx's database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/ericfisherdev/schemamigrator/internal/domain/model"
	"github.com/ericfisherdev/schemamigrator/internal/domain/port/driven"
)

// Connector opens a verified *sql.DB for a ConnectionDescriptor.
type Connector struct {
	sslMode        string
	connectTimeout time.Duration
	openDB         func(pgx.ConnConfig, ...stdlib.OptionOpenDB) *sql.DB
}

// Compile-time interface check.
var _ driven.Connector = (*Connector)(nil)

// NewConnector creates a Connector. sslMode is the libpq sslmode used when
// a descriptor does not request one.
func NewConnector(sslMode string, connectTimeout time.Duration) *Connector {
	return &Connector{sslMode: sslMode, connectTimeout: connectTimeout, openDB: stdlib.OpenDB}
}

// Open parses the descriptor into a pgx config, opens a single-connection
// pool and pings it. The handle is closed before returning on any error.
func (c *Connector) Open(ctx context.Context, d model.ConnectionDescriptor) (*sql.DB, error) {
	connConfig, err := c.ConnConfig(d)
	if err != nil {
		return nil, err
	}

	db := c.openDB(*connConfig)
	// Migrations hold one session for the advisory lock and DDL.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	pingCtx := ctx
	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s:%d: %w", d.Host(), d.Port(), err)
	}

	return db, nil
}

// ConnConfig builds the pgx connection config. The password is set on the
// parsed config rather than embedded in the URL, so it never appears in a DSN.
// The descriptor's sslmode, when set, takes precedence over the connector's.
func (c *Connector) ConnConfig(d model.ConnectionDescriptor) (*pgx.ConnConfig, error) {
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(d.Username()),
		Host:   net.JoinHostPort(d.Host(), strconv.Itoa(d.Port())),
		Path:   "/" + d.Database(),
	}
	sslMode := c.sslMode
	if d.SSLMode() != "" {
		sslMode = d.SSLMode()
	}
	q := url.Values{}
	if sslMode != "" {
		q.Set("sslmode", sslMode)
	}
	q.Set("application_name", "schemamigrator")
	u.RawQuery = q.Encode()

	connConfig, err := pgx.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse connection config for %s: %w", d, err)
	}
	connConfig.Password = d.Password()
	if c.connectTimeout > 0 {
		connConfig.ConnectTimeout = c.connectTimeout
	}

	return connConfig, nil
}
