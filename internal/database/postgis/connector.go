// Package postgis implements database.Connector for PostgreSQL servers, with
// extra catalog support when the PostGIS extension is installed.
package postgis

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"github.com/joacominatel/minagis/internal/database"
	"github.com/joacominatel/minagis/internal/logger"
)

// Supported database/sql driver names.
const (
	DriverPgx = "pgx"
	DriverPQ  = "postgres"
)

// Options tune how a Connector is opened. The zero value is usable.
type Options struct {
	// Driver is DriverPgx (default) or DriverPQ.
	Driver string
	Logger *logger.Logger
}

// Connector is a single PostgreSQL session with an implicit transaction.
type Connector struct {
	sess      *session
	desc      database.Descriptor
	caps      database.Capabilities
	sessionID string
	log       *logger.Logger
	closed    bool
}

var _ database.Connector = (*Connector)(nil)

// Opener adapts Open to database.Opener.
func Opener(opts Options) database.Opener {
	return func(ctx context.Context, desc database.Descriptor) (database.Connector, error) {
		return Open(ctx, desc, opts)
	}
}

// Open connects to the database described by desc and detects its
// capabilities. Any failure is returned as *database.ConnectionError or
// *database.DBError and leaves nothing open.
func Open(ctx context.Context, desc database.Descriptor, opts Options) (*Connector, error) {
	desc = desc.Resolved()

	driver := opts.Driver
	if driver == "" {
		driver = DriverPgx
	}
	if driver != DriverPgx && driver != DriverPQ {
		return nil, &database.ConnectionError{Cause: fmt.Errorf("unsupported driver %q", driver)}
	}

	db, err := sql.Open(driver, desc.ConnString())
	if err != nil {
		return nil, &database.ConnectionError{Cause: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &database.ConnectionError{Cause: err}
	}

	return newConnector(ctx, db, desc, opts)
}

// newConnector pins one connection from db and runs capability detection.
// db is closed on failure.
func newConnector(ctx context.Context, db *sql.DB, desc database.Descriptor, opts Options) (*Connector, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, &database.ConnectionError{Cause: err}
	}

	id := uuid.NewString()
	log = log.With().Str("session", id).Str("database", desc.Database).Logger()

	c := &Connector{
		sess:      &session{db: db, conn: conn, log: log, describe: describePgx},
		desc:      desc,
		sessionID: id,
		log:       log,
	}

	caps, err := c.detectCapabilities(ctx)
	if err != nil {
		_ = c.sess.close()
		return nil, err
	}
	c.caps = caps

	log.Info().
		Str("target", desc.String()).
		Bool("spatial", caps.HasSpatialExtension).
		Bool("geometry_columns", caps.HasMetadataTable).
		Bool("geometry_columns_access", caps.HasMetadataTableAccess).
		Msg("connected")
	return c, nil
}

// Close rolls back any pending work and releases the session.
func (c *Connector) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.log.Info().Msg("disconnected")
	return c.sess.close()
}

// DatabaseName returns the resolved database name.
func (c *Connector) DatabaseName() string {
	return c.desc.Database
}

// SessionID identifies this connection in logs.
func (c *Connector) SessionID() string {
	return c.sessionID
}

// Capabilities returns the flags detected at open.
func (c *Connector) Capabilities() database.Capabilities {
	return c.caps
}

// Commit commits the implicit transaction, if any.
func (c *Connector) Commit(_ context.Context) error {
	return c.sess.commit()
}

// Rollback discards the implicit transaction, if any.
func (c *Connector) Rollback(_ context.Context) error {
	return c.sess.rollback()
}

// ServerInfo returns the output of version().
func (c *Connector) ServerInfo(ctx context.Context) (string, error) {
	var version string
	if _, err := c.sess.row(ctx, queryServerVersion, nil, &version); err != nil {
		return "", err
	}
	return version, nil
}

// SpatialInfo returns the PostGIS component versions, or nil when the
// extension is not installed.
func (c *Connector) SpatialInfo(ctx context.Context) (*database.SpatialInfo, error) {
	if !c.caps.HasSpatialExtension {
		return nil, nil
	}
	var info database.SpatialInfo
	var geos, proj sql.NullString
	if _, err := c.sess.row(ctx, querySpatialVersions, nil,
		&info.LibVersion, &info.ScriptsInstalled, &info.ScriptsReleased, &geos, &proj); err != nil {
		return nil, err
	}
	info.GEOSVersion = orUnknown(geos)
	info.PROJVersion = orUnknown(proj)
	return &info, nil
}

func orUnknown(s sql.NullString) string {
	if !s.Valid || s.String == "" {
		return database.Unknown
	}
	return s.String
}
