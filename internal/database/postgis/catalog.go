package postgis

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/joacominatel/minagis/internal/database"
)

// srsNamePattern extracts the first quoted token of a WKT definition.
var srsNamePattern = regexp.MustCompile(`"([^"]+)"`)

// ListSchemas returns all non-system schemas ordered by name.
func (c *Connector) ListSchemas(ctx context.Context) ([]database.Schema, error) {
	var schemas []database.Schema
	err := c.sess.each(ctx, queryListSchemas, nil, func(rows *sql.Rows) error {
		var s database.Schema
		if err := rows.Scan(&s.OID, &s.Name, &s.Owner, &s.ACL); err != nil {
			return err
		}
		schemas = append(schemas, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schemas, nil
}

// ListTables returns tables and views with one entry per geometry column,
// ordered by schema, table and geometry column. When geometry_columns is
// usable its registered type, dimension and SRID replace the catalog guess.
func (c *Connector) ListTables(ctx context.Context, schema string) ([]database.Table, error) {
	q, args, err := listTablesQuery(schema, c.caps.HasSpatialExtension)
	if err != nil {
		return nil, invalidInput(err.Error())
	}
	tables, err := c.scanTables(ctx, q, args, false)
	if err != nil {
		return nil, err
	}

	if !c.caps.UseMetadataTable() {
		return tables, nil
	}

	q, args, err = registeredGeometryQuery(schema)
	if err != nil {
		return nil, invalidInput(err.Error())
	}
	registered, err := c.scanTables(ctx, q, args, true)
	if err != nil {
		return nil, err
	}
	return mergeRegistered(tables, registered), nil
}

func (c *Connector) scanTables(ctx context.Context, q string, args []any, registered bool) ([]database.Table, error) {
	var tables []database.Table
	err := c.sess.each(ctx, q, args, func(rows *sql.Rows) error {
		var (
			t                  database.Table
			geomName, geomType sql.NullString
			dim, srid          sql.NullInt64
		)
		if err := rows.Scan(&t.Name, &t.Schema, &t.IsView, &t.Owner, &t.RowEstimate, &t.Pages,
			&geomName, &geomType, &dim, &srid); err != nil {
			return err
		}
		// reltuples is -1 for relations never analyzed.
		t.RowEstimate = max(t.RowEstimate, 0)
		if geomName.Valid {
			t.Geometry = &database.GeometryColumn{
				Name:       geomName.String,
				Type:       strings.ToUpper(geomType.String),
				Dimension:  int(dim.Int64),
				SRID:       int(srid.Int64),
				Registered: registered,
			}
		}
		tables = append(tables, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

type tableKey struct {
	schema, table, geom string
}

func keyOf(t database.Table) tableKey {
	k := tableKey{schema: t.Schema, table: t.Name}
	if t.Geometry != nil {
		k.geom = t.Geometry.Name
	}
	return k
}

// mergeRegistered folds geometry_columns rows into the catalog listing by
// (schema, table, geometry column). A registered row for a table that the
// catalog listed without geometry replaces that entry; anything else
// unmatched is appended and the result re-sorted.
func mergeRegistered(tables, registered []database.Table) []database.Table {
	pos := make(map[tableKey]int, len(tables))
	for i, t := range tables {
		pos[keyOf(t)] = i
	}

	appended := false
	for _, r := range registered {
		if i, ok := pos[keyOf(r)]; ok {
			tables[i] = r
			continue
		}
		bare := tableKey{schema: r.Schema, table: r.Name}
		if i, ok := pos[bare]; ok {
			tables[i] = r
			delete(pos, bare)
			pos[keyOf(r)] = i
			continue
		}
		pos[keyOf(r)] = len(tables)
		tables = append(tables, r)
		appended = true
	}

	if appended {
		slices.SortStableFunc(tables, func(a, b database.Table) int {
			ka, kb := keyOf(a), keyOf(b)
			return cmp.Or(
				cmp.Compare(ka.schema, kb.schema),
				cmp.Compare(ka.table, kb.table),
				cmp.Compare(ka.geom, kb.geom),
			)
		})
	}
	return tables
}

// TableRowCount counts rows exactly with COUNT(*).
func (c *Connector) TableRowCount(ctx context.Context, table, schema string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + quoteID(schema, table)
	if _, err := c.sess.row(ctx, q, nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// TableFields returns the live columns of a table ordered by position.
func (c *Connector) TableFields(ctx context.Context, table, schema string) ([]database.Column, error) {
	q, args, err := tableFieldsQuery(table, schema)
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	var cols []database.Column
	err = c.sess.each(ctx, q, args, func(rows *sql.Rows) error {
		var (
			col  database.Column
			expr sql.NullString
		)
		if err := rows.Scan(&col.Ordinal, &col.Name, &col.TypeName, &col.Length, &col.TypeModifier,
			&col.NotNull, &col.HasDefault, &expr); err != nil {
			return err
		}
		col.Default = expr.String
		cols = append(cols, col)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cols, nil
}

// TableIndexes returns the non primary key indexes of a table.
func (c *Connector) TableIndexes(ctx context.Context, table, schema string) ([]database.Index, error) {
	q, args, err := tableIndexesQuery(table, schema)
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	var indexes []database.Index
	err = c.sess.each(ctx, q, args, func(rows *sql.Rows) error {
		var (
			idx  database.Index
			keys string
		)
		if err := rows.Scan(&idx.Name, &keys, &idx.Unique); err != nil {
			return err
		}
		cols, err := parsePositions(keys)
		if err != nil {
			return err
		}
		idx.Columns = cols
		indexes = append(indexes, idx)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return indexes, nil
}

// TableConstraints returns every constraint of a table.
func (c *Connector) TableConstraints(ctx context.Context, table, schema string) ([]database.Constraint, error) {
	q, args, err := tableConstraintsQuery(table, schema)
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	var constraints []database.Constraint
	err = c.sess.each(ctx, q, args, func(rows *sql.Rows) error {
		var (
			con                          database.Constraint
			kind                         string
			keys, check, foreign         sql.NullString
			onUpdate, onDelete, matching string
			foreignKeys                  sql.NullString
		)
		if err := rows.Scan(&con.Name, &kind, &con.Deferrable, &con.Deferred, &keys, &check,
			&foreign, &onUpdate, &onDelete, &matching, &foreignKeys); err != nil {
			return err
		}
		con.Kind = database.ConstraintKind(kind)
		con.Check = check.String
		con.ForeignTable = foreign.String

		var err error
		if con.Columns, err = parsePositions(keys.String); err != nil {
			return err
		}
		if con.Kind == database.ConstraintForeignKey {
			con.OnUpdate = database.ReferentialAction(strings.TrimSpace(onUpdate))
			con.OnDelete = database.ReferentialAction(strings.TrimSpace(onDelete))
			con.Match = database.MatchType(strings.TrimSpace(matching))
			if con.ForeignColumns, err = parsePositions(foreignKeys.String); err != nil {
				return err
			}
		}
		constraints = append(constraints, con)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return constraints, nil
}

// TableTriggers returns the user-defined triggers of a table.
func (c *Connector) TableTriggers(ctx context.Context, table, schema string) ([]database.Trigger, error) {
	q, args, err := tableTriggersQuery(table, schema)
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	var triggers []database.Trigger
	err = c.sess.each(ctx, q, args, func(rows *sql.Rows) error {
		var (
			trig    database.Trigger
			fn      sql.NullString
			tgtype  int
			enabled string
		)
		if err := rows.Scan(&trig.Name, &fn, &tgtype, &enabled); err != nil {
			return err
		}
		trig.Function = fn.String
		trig.Type = database.TriggerType(tgtype)
		trig.Enabled = enabled != "D"
		triggers = append(triggers, trig)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return triggers, nil
}

// TableRules returns the rewrite rules of a table or view.
func (c *Connector) TableRules(ctx context.Context, table, schema string) ([]database.Rule, error) {
	q, args, err := tableRulesQuery(table, schema)
	if err != nil {
		return nil, invalidInput(err.Error())
	}

	var rules []database.Rule
	err = c.sess.each(ctx, q, args, func(rows *sql.Rows) error {
		var r database.Rule
		if err := rows.Scan(&r.Name, &r.Definition); err != nil {
			return err
		}
		rules = append(rules, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// TableEstimatedExtent asks PostGIS for the extent recorded in planner
// statistics. It returns nil when the extension is missing, statistics have
// not been gathered, or the lookup fails.
func (c *Connector) TableEstimatedExtent(ctx context.Context, geomColumn, table, schema string) *database.Extent {
	if !c.caps.HasSpatialExtension {
		return nil
	}

	q, args := queryEstimatedExtent, []any{schema, table, geomColumn}
	if schema == "" {
		q, args = queryEstimatedExtentNoSchema, []any{table, geomColumn}
	}

	var xmin, ymin, xmax, ymax sql.NullFloat64
	found, err := c.sess.row(ctx, q, args, &xmin, &ymin, &xmax, &ymax)
	if err != nil {
		c.log.Debug().Err(err).Str("table", table).Msg("estimated extent unavailable")
		return nil
	}
	if !found || !xmin.Valid || !ymin.Valid || !xmax.Valid || !ymax.Valid {
		return nil
	}
	return &database.Extent{XMin: xmin.Float64, YMin: ymin.Float64, XMax: xmax.Float64, YMax: ymax.Float64}
}

// ViewDefinition returns the SELECT behind a view.
func (c *Connector) ViewDefinition(ctx context.Context, view, schema string) (string, error) {
	q, args, err := viewDefinitionQuery(view, schema)
	if err != nil {
		return "", invalidInput(err.Error())
	}

	var def sql.NullString
	found, err := c.sess.row(ctx, q, args, &def)
	if err != nil {
		return "", err
	}
	if !found {
		return "", &database.DBError{
			Kind:    database.ErrKindNotFound,
			Message: fmt.Sprintf("view %s not found", quoteID(schema, view)),
			Query:   q,
		}
	}
	return def.String, nil
}

// SpatialRefInfo returns the name quoted first in the WKT of srid, e.g.
// "WGS 84" for 4326. A WKT without a quoted name is returned whole; a missing
// row, a failed lookup or a database without PostGIS yields database.Unknown.
func (c *Connector) SpatialRefInfo(ctx context.Context, srid int) string {
	if !c.caps.HasSpatialExtension {
		return database.Unknown
	}

	var srtext sql.NullString
	found, err := c.sess.row(ctx, querySpatialRef, []any{srid}, &srtext)
	if err != nil {
		c.log.Debug().Err(err).Int("srid", srid).Msg("spatial reference lookup failed")
		return database.Unknown
	}
	if !found || !srtext.Valid {
		return database.Unknown
	}
	m := srsNamePattern.FindStringSubmatch(srtext.String)
	if m == nil {
		return srtext.String
	}
	return m[1]
}

// parsePositions reads a space separated list of column numbers.
func parsePositions(s string) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("column position %q: %w", f, err)
		}
		out = append(out, n)
	}
	return out, nil
}
