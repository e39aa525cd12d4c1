package database

import "context"

// Opener establishes a connection described by desc and returns a ready Connector.
// Capability detection has already run when it returns.
type Opener func(ctx context.Context, desc Descriptor) (Connector, error)

// Connector defines the operations the presentation layer may perform against an
// open database. Implementations own a single backend session and are not safe
// for overlapping use; callers serialize access.
//
// An empty schema argument means "any user schema": system schemas are excluded.
type Connector interface {
	// Close releases the session. Calling it more than once is harmless.
	Close() error

	// DatabaseName returns the resolved name of the connected database.
	DatabaseName() string

	// Capabilities returns the flags detected when the connection was opened.
	Capabilities() Capabilities

	// ServerInfo returns the backend version string.
	ServerInfo(ctx context.Context) (string, error)

	// SpatialInfo returns PostGIS component versions, or nil without PostGIS.
	SpatialInfo(ctx context.Context) (*SpatialInfo, error)

	ListSchemas(ctx context.Context) ([]Schema, error)
	ListTables(ctx context.Context, schema string) ([]Table, error)

	TableRowCount(ctx context.Context, table, schema string) (int64, error)
	TableFields(ctx context.Context, table, schema string) ([]Column, error)
	TableIndexes(ctx context.Context, table, schema string) ([]Index, error)
	TableConstraints(ctx context.Context, table, schema string) ([]Constraint, error)
	TableTriggers(ctx context.Context, table, schema string) ([]Trigger, error)
	TableRules(ctx context.Context, table, schema string) ([]Rule, error)

	// TableEstimatedExtent never fails; nil means the extent is unknown.
	TableEstimatedExtent(ctx context.Context, geomColumn, table, schema string) *Extent

	ViewDefinition(ctx context.Context, view, schema string) (string, error)

	// SpatialRefInfo returns the short name of a spatial reference, or Unknown.
	SpatialRefInfo(ctx context.Context, srid int) string

	DatabasePrivileges(ctx context.Context) (DatabasePrivileges, error)
	SchemaPrivileges(ctx context.Context, schema string) (SchemaPrivileges, error)
	TablePrivileges(ctx context.Context, table, schema string) (TablePrivileges, error)

	// RunQuery executes arbitrary SQL, fetches everything it returns and commits.
	RunQuery(ctx context.Context, query string) (*ResultModel, error)

	ExecuteAndCommit(ctx context.Context, query string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	FieldTypes() []string
	CreateTable(ctx context.Context, table, schema string, fields []NewField) error
	AddGeometryColumn(ctx context.Context, table, schema string, geom GeometrySpec) error
	CreateSpatialIndex(ctx context.Context, table, schema, column string) error
}
