package postgis

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/joacominatel/minagis/internal/database"
)

// fieldTypes are the column types offered when creating a table.
var fieldTypes = []string{
	"integer",
	"bigint",
	"smallint",
	"serial",
	"bigserial",
	"numeric",
	"real",
	"double precision",
	"varchar",
	"char",
	"text",
	"boolean",
	"date",
	"time",
	"timestamp",
	"timestamptz",
	"interval",
	"uuid",
	"json",
	"jsonb",
	"bytea",
}

// GeometryTypes are the values accepted for GeometrySpec.Type.
var GeometryTypes = []string{
	"GEOMETRY",
	"POINT",
	"LINESTRING",
	"POLYGON",
	"MULTIPOINT",
	"MULTILINESTRING",
	"MULTIPOLYGON",
	"GEOMETRYCOLLECTION",
}

// FieldTypes returns the column types offered when creating a table.
func (c *Connector) FieldTypes() []string {
	return append([]string(nil), fieldTypes...)
}

// ExecuteAndCommit runs a statement in the implicit transaction and commits.
func (c *Connector) ExecuteAndCommit(ctx context.Context, query string) error {
	if err := c.sess.exec(ctx, query); err != nil {
		return err
	}
	return c.sess.commit()
}

// CreateTable issues CREATE TABLE without committing, so a geometry column can
// be added in the same transaction.
func (c *Connector) CreateTable(ctx context.Context, table, schema string, fields []database.NewField) error {
	if table == "" {
		return invalidInput("table name is required")
	}
	if len(fields) == 0 {
		return invalidInput("a table needs at least one field")
	}

	defs := make([]string, 0, len(fields)+1)
	var keys []string
	for _, f := range fields {
		if f.Name == "" || f.DataType == "" {
			return invalidInput("every field needs a name and a type")
		}
		def := quoteID(f.Name) + " " + f.DataType
		if f.NotNull {
			def += " NOT NULL"
		}
		defs = append(defs, def)
		if f.PrimaryKey {
			keys = append(keys, quoteID(f.Name))
		}
	}
	if len(keys) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}

	q := fmt.Sprintf("CREATE TABLE %s (%s)", quoteID(schema, table), strings.Join(defs, ", "))
	return c.sess.exec(ctx, q)
}

// AddGeometryColumn registers a geometry column through PostGIS without
// committing.
func (c *Connector) AddGeometryColumn(ctx context.Context, table, schema string, geom database.GeometrySpec) error {
	if !c.caps.HasSpatialExtension {
		return invalidInput("PostGIS is not installed in this database")
	}
	if geom.Column == "" {
		return invalidInput("geometry column name is required")
	}

	typ := strings.ToUpper(geom.Type)
	if typ == "" {
		typ = "GEOMETRY"
	}
	if !slices.Contains(GeometryTypes, typ) {
		return invalidInput(fmt.Sprintf("unsupported geometry type %q", geom.Type))
	}
	dim := geom.Dimension
	if dim == 0 {
		dim = 2
	}

	if schema == "" {
		return c.sess.exec(ctx, queryAddGeometryColumnNoSchema, table, geom.Column, geom.SRID, typ, dim)
	}
	return c.sess.exec(ctx, queryAddGeometryColumn, schema, table, geom.Column, geom.SRID, typ, dim)
}

// CreateSpatialIndex builds a GiST index named sidx_<table>_<column> and
// commits.
func (c *Connector) CreateSpatialIndex(ctx context.Context, table, schema, column string) error {
	name := quoteID("sidx_" + table + "_" + column)
	q := fmt.Sprintf("CREATE INDEX %s ON %s USING GIST (%s)", name, quoteID(schema, table), quoteID(column))
	return c.ExecuteAndCommit(ctx, q)
}
