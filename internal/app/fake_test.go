package app

import (
	"context"

	"github.com/joacominatel/minagis/internal/database"
)

// fakeConnector is an in-memory database.Connector that records mutating calls.
type fakeConnector struct {
	name    string
	caps    database.Capabilities
	schemas []database.Schema
	tables  []database.Table
	fields  map[string][]database.Column

	indexes     []database.Index
	constraints []database.Constraint
	triggers    []database.Trigger
	rules       []database.Rule
	extent      *database.Extent
	viewDef     string
	privileges  database.TablePrivileges
	dbPrivs     database.DatabasePrivileges
	schemaPrivs database.SchemaPrivileges

	result   *database.ResultModel
	queryErr error
	geomErr  error

	calls  []string
	closed bool
}

var _ database.Connector = (*fakeConnector)(nil)

func (f *fakeConnector) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeConnector) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConnector) DatabaseName() string                { return f.name }
func (f *fakeConnector) Capabilities() database.Capabilities { return f.caps }

func (f *fakeConnector) ServerInfo(context.Context) (string, error) {
	return "PostgreSQL 16.2", nil
}

func (f *fakeConnector) SpatialInfo(context.Context) (*database.SpatialInfo, error) {
	if !f.caps.HasSpatialExtension {
		return nil, nil
	}
	return &database.SpatialInfo{LibVersion: "3.4.2"}, nil
}

func (f *fakeConnector) ListSchemas(context.Context) ([]database.Schema, error) {
	return f.schemas, nil
}

func (f *fakeConnector) ListTables(_ context.Context, schema string) ([]database.Table, error) {
	return f.tables, nil
}

func (f *fakeConnector) TableRowCount(context.Context, string, string) (int64, error) {
	return 42, nil
}

func (f *fakeConnector) TableFields(_ context.Context, table, _ string) ([]database.Column, error) {
	return f.fields[table], nil
}

func (f *fakeConnector) TableIndexes(context.Context, string, string) ([]database.Index, error) {
	return f.indexes, nil
}

func (f *fakeConnector) TableConstraints(context.Context, string, string) ([]database.Constraint, error) {
	return f.constraints, nil
}

func (f *fakeConnector) TableTriggers(context.Context, string, string) ([]database.Trigger, error) {
	return f.triggers, nil
}

func (f *fakeConnector) TableRules(context.Context, string, string) ([]database.Rule, error) {
	return f.rules, nil
}

func (f *fakeConnector) TableEstimatedExtent(context.Context, string, string, string) *database.Extent {
	return f.extent
}

func (f *fakeConnector) ViewDefinition(context.Context, string, string) (string, error) {
	return f.viewDef, nil
}

func (f *fakeConnector) SpatialRefInfo(_ context.Context, srid int) string {
	if srid == 4326 {
		return "WGS 84"
	}
	return database.Unknown
}

func (f *fakeConnector) DatabasePrivileges(context.Context) (database.DatabasePrivileges, error) {
	return f.dbPrivs, nil
}

func (f *fakeConnector) SchemaPrivileges(context.Context, string) (database.SchemaPrivileges, error) {
	return f.schemaPrivs, nil
}

func (f *fakeConnector) TablePrivileges(context.Context, string, string) (database.TablePrivileges, error) {
	return f.privileges, nil
}

func (f *fakeConnector) RunQuery(_ context.Context, query string) (*database.ResultModel, error) {
	f.record("run " + query)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.result, nil
}

func (f *fakeConnector) ExecuteAndCommit(_ context.Context, query string) error {
	f.record("exec " + query)
	return nil
}

func (f *fakeConnector) Commit(context.Context) error {
	f.record("commit")
	return nil
}

func (f *fakeConnector) Rollback(context.Context) error {
	f.record("rollback")
	return nil
}

func (f *fakeConnector) FieldTypes() []string { return []string{"integer", "text"} }

func (f *fakeConnector) CreateTable(_ context.Context, table, schema string, _ []database.NewField) error {
	f.record("create " + schema + "." + table)
	return nil
}

func (f *fakeConnector) AddGeometryColumn(_ context.Context, table, _ string, geom database.GeometrySpec) error {
	f.record("geometry " + table + "." + geom.Column)
	return f.geomErr
}

func (f *fakeConnector) CreateSpatialIndex(_ context.Context, table, _, column string) error {
	f.record("index " + table + "." + column)
	return nil
}

func openerFor(conns ...*fakeConnector) database.Opener {
	i := 0
	return func(context.Context, database.Descriptor) (database.Connector, error) {
		c := conns[i]
		i++
		return c, nil
	}
}
