package postgis

import (
	sq "github.com/Masterminds/squirrel"
)

// psq builds PostgreSQL statements with $n placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// relationKinds are the pg_class.relkind values listed as tables.
var relationKinds = []string{"r", "v"}

const (
	queryServerVersion = `SELECT version()`

	querySpatialVersions = `
		SELECT postgis_lib_version(),
		       postgis_scripts_installed(),
		       postgis_scripts_released(),
		       postgis_geos_version(),
		       postgis_proj_version()`

	queryHasSpatialExtension = `SELECT COUNT(*) FROM pg_proc WHERE proname = 'postgis_version'`

	queryHasMetadataTable = `
		SELECT relname
		FROM pg_class
		WHERE relname = 'geometry_columns'
		  AND relkind IN ('v', 'r')`

	queryListSchemas = `
		SELECT oid::bigint,
		       nspname,
		       pg_get_userbyid(nspowner),
		       COALESCE(nspacl::text, '')
		FROM pg_namespace
		WHERE nspname !~ '^pg_'
		  AND nspname <> 'information_schema'
		ORDER BY nspname`

	queryDatabasePrivileges = `
		SELECT has_database_privilege(current_database(), 'CREATE'),
		       has_database_privilege(current_database(), 'TEMP')`

	querySchemaPrivileges = `
		SELECT has_schema_privilege($1::text, 'CREATE'),
		       has_schema_privilege($1::text, 'USAGE')`

	queryTablePrivileges = `
		SELECT has_table_privilege($1::text, 'SELECT'),
		       has_table_privilege($1::text, 'INSERT'),
		       has_table_privilege($1::text, 'UPDATE'),
		       has_table_privilege($1::text, 'DELETE')`

	querySpatialRef = `SELECT srtext FROM spatial_ref_sys WHERE srid = $1`

	queryEstimatedExtent = `
		SELECT ST_XMin(e.ext), ST_YMin(e.ext), ST_XMax(e.ext), ST_YMax(e.ext)
		FROM (SELECT ST_EstimatedExtent($1::text, $2::text, $3::text) AS ext) AS e`

	queryEstimatedExtentNoSchema = `
		SELECT ST_XMin(e.ext), ST_YMin(e.ext), ST_XMax(e.ext), ST_YMax(e.ext)
		FROM (SELECT ST_EstimatedExtent($1::text, $2::text) AS ext) AS e`

	queryAddGeometryColumn = `
		SELECT AddGeometryColumn($1::varchar, $2::varchar, $3::varchar, $4::integer, $5::varchar, $6::integer)`

	queryAddGeometryColumnNoSchema = `
		SELECT AddGeometryColumn($1::varchar, $2::varchar, $3::integer, $4::varchar, $5::integer)`
)

// schemaFilter restricts column to schema, or to user schemas when schema is empty.
func schemaFilter(column, schema string) sq.Sqlizer {
	if schema != "" {
		return sq.Eq{column: schema}
	}
	return sq.And{
		sq.NotEq{column: "information_schema"},
		sq.Expr(column + " !~ '^pg_'"),
	}
}

// tableColumns is the common projection of both table listing phases.
var tableColumns = []string{
	"pg_class.relname",
	"pg_namespace.nspname",
	"pg_class.relkind = 'v'",
	"pg_get_userbyid(pg_class.relowner)",
	"pg_class.reltuples::bigint",
	"pg_class.relpages::bigint",
}

// geometryAttributeJoin matches columns typed geometry or a domain over it.
const geometryAttributeJoin = `pg_attribute ON pg_attribute.attrelid = pg_class.oid
	AND NOT pg_attribute.attisdropped
	AND (pg_attribute.atttypid = 'geometry'::regtype
	     OR pg_attribute.atttypid IN (SELECT oid FROM pg_type WHERE typbasetype = 'geometry'::regtype))`

// listTablesQuery lists tables and views with one row per geometry column.
// Without PostGIS the geometry columns are NULL.
func listTablesQuery(schema string, spatial bool) (string, []any, error) {
	geom := []string{"NULL::text", "NULL::text", "NULL::integer", "NULL::integer"}
	order := "pg_namespace.nspname, pg_class.relname"
	if spatial {
		geom = []string{"pg_attribute.attname::text", "pg_attribute.atttypid::regtype::text", "NULL::integer", "NULL::integer"}
		order += ", pg_attribute.attname"
	}

	qb := psq.Select(append(append([]string{}, tableColumns...), geom...)...).
		From("pg_class").
		Join("pg_namespace ON pg_namespace.oid = pg_class.relnamespace")
	if spatial {
		qb = qb.LeftJoin(geometryAttributeJoin)
	}
	return qb.
		Where(sq.Eq{"pg_class.relkind": relationKinds}).
		Where(schemaFilter("pg_namespace.nspname", schema)).
		OrderBy(order).
		ToSql()
}

// registeredGeometryQuery lists tables and views joined with geometry_columns.
func registeredGeometryQuery(schema string) (string, []any, error) {
	cols := append(append([]string{}, tableColumns...),
		"geometry_columns.f_geometry_column::text",
		"geometry_columns.type::text",
		"geometry_columns.coord_dimension",
		"geometry_columns.srid",
	)
	return psq.Select(cols...).
		From("pg_class").
		Join("pg_namespace ON pg_namespace.oid = pg_class.relnamespace").
		Join("geometry_columns ON pg_class.relname = geometry_columns.f_table_name " +
			"AND pg_namespace.nspname = geometry_columns.f_table_schema").
		Where(sq.Eq{"pg_class.relkind": relationKinds}).
		Where(schemaFilter("pg_namespace.nspname", schema)).
		OrderBy("pg_namespace.nspname, pg_class.relname, geometry_columns.f_geometry_column").
		ToSql()
}

func tableFieldsQuery(table, schema string) (string, []any, error) {
	return psq.Select(
		"a.attnum",
		"a.attname",
		"t.typname",
		"a.attlen",
		"a.atttypmod",
		"a.attnotnull",
		"a.atthasdef",
		"pg_get_expr(adef.adbin, adef.adrelid)",
	).
		From("pg_class c").
		Join("pg_namespace nsp ON nsp.oid = c.relnamespace").
		Join("pg_attribute a ON a.attrelid = c.oid").
		Join("pg_type t ON t.oid = a.atttypid").
		LeftJoin("pg_attrdef adef ON adef.adrelid = a.attrelid AND adef.adnum = a.attnum").
		Where("a.attnum > 0").
		Where("NOT a.attisdropped").
		Where(sq.Eq{"c.relname": table}).
		Where(schemaFilter("nsp.nspname", schema)).
		OrderBy("a.attnum").
		ToSql()
}

func tableIndexesQuery(table, schema string) (string, []any, error) {
	return psq.Select(
		"idx.relname",
		"array_to_string(i.indkey::int2[], ' ')",
		"i.indisunique",
	).
		From("pg_index i").
		Join("pg_class c ON c.oid = i.indrelid").
		Join("pg_class idx ON idx.oid = i.indexrelid").
		Join("pg_namespace nsp ON nsp.oid = c.relnamespace").
		Where("NOT i.indisprimary").
		Where(sq.Eq{"c.relname": table}).
		Where(schemaFilter("nsp.nspname", schema)).
		OrderBy("idx.relname").
		ToSql()
}

func tableConstraintsQuery(table, schema string) (string, []any, error) {
	return psq.Select(
		"con.conname",
		"con.contype::text",
		"con.condeferrable",
		"con.condeferred",
		"array_to_string(con.conkey, ' ')",
		"CASE WHEN con.contype = 'c' THEN pg_get_constraintdef(con.oid) END",
		"ft.relname",
		"con.confupdtype::text",
		"con.confdeltype::text",
		"con.confmatchtype::text",
		"array_to_string(con.confkey, ' ')",
	).
		From("pg_constraint con").
		Join("pg_class c ON c.oid = con.conrelid").
		Join("pg_namespace nsp ON nsp.oid = c.relnamespace").
		LeftJoin("pg_class ft ON ft.oid = con.confrelid").
		Where(sq.Eq{"c.relname": table}).
		Where(schemaFilter("nsp.nspname", schema)).
		OrderBy("con.conname").
		ToSql()
}

func tableTriggersQuery(table, schema string) (string, []any, error) {
	return psq.Select(
		"trig.tgname",
		"p.proname",
		"trig.tgtype::integer",
		"trig.tgenabled::text",
	).
		From("pg_trigger trig").
		Join("pg_class c ON c.oid = trig.tgrelid").
		Join("pg_namespace nsp ON nsp.oid = c.relnamespace").
		LeftJoin("pg_proc p ON p.oid = trig.tgfoid").
		Where("NOT trig.tgisinternal").
		Where(sq.Eq{"c.relname": table}).
		Where(schemaFilter("nsp.nspname", schema)).
		OrderBy("trig.tgname").
		ToSql()
}

func tableRulesQuery(table, schema string) (string, []any, error) {
	return psq.Select("rulename", "definition").
		From("pg_rules").
		Where(sq.Eq{"tablename": table}).
		Where(schemaFilter("schemaname", schema)).
		OrderBy("rulename").
		ToSql()
}

func viewDefinitionQuery(view, schema string) (string, []any, error) {
	return psq.Select("pg_get_viewdef(c.oid, true)").
		From("pg_class c").
		Join("pg_namespace nsp ON nsp.oid = c.relnamespace").
		Where(sq.Eq{"c.relkind": "v"}).
		Where(sq.Eq{"c.relname": view}).
		Where(schemaFilter("nsp.nspname", schema)).
		ToSql()
}
