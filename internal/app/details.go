package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joacominatel/minagis/internal/database"
)

// TableDetails collects everything known about a table or view into a
// two-column property/value result, ready for the results pane.
func (s *Service) TableDetails(ctx context.Context, table database.Table) (*database.ResultModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	d := &detailBuilder{}
	kind := "table"
	if table.IsView {
		kind = "view"
	}
	d.add("name", table.QualifiedName())
	d.add("type", kind)
	d.add("owner", table.Owner)
	d.add("rows (estimate)", strconv.FormatInt(table.RowEstimate, 10))
	d.add("pages", strconv.FormatInt(table.Pages, 10))

	count, err := s.conn.TableRowCount(ctx, table.Name, table.Schema)
	if err != nil {
		return nil, err
	}
	d.add("rows", strconv.FormatInt(count, 10))

	privs, err := s.conn.TablePrivileges(ctx, table.Name, table.Schema)
	if err != nil {
		return nil, err
	}
	d.add("privileges", formatTablePrivileges(privs))

	if g := table.Geometry; g != nil {
		d.add("geometry column", g.Name)
		d.add("geometry type", g.Type)
		if g.Registered {
			d.add("dimension", strconv.Itoa(g.Dimension))
			d.add("srid", fmt.Sprintf("%d (%s)", g.SRID, s.conn.SpatialRefInfo(ctx, g.SRID)))
		}
		extent := database.Unknown
		if e := s.conn.TableEstimatedExtent(ctx, g.Name, table.Name, table.Schema); e != nil {
			extent = e.String()
		}
		d.add("extent (estimate)", extent)
	}

	fields, err := s.conn.TableFields(ctx, table.Name, table.Schema)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(fields))
	for _, f := range fields {
		names[f.Ordinal] = f.Name
		desc := f.DisplayType()
		if f.NotNull {
			desc += " NOT NULL"
		}
		if f.HasDefault {
			desc += " DEFAULT " + f.Default
		}
		d.add("field "+strconv.Itoa(f.Ordinal), f.Name+" "+desc)
	}

	if table.IsView {
		def, err := s.conn.ViewDefinition(ctx, table.Name, table.Schema)
		if err != nil && !database.IsNotFound(err) {
			return nil, err
		}
		d.add("definition", strings.TrimSpace(def))
	} else {
		if err := s.addTableObjects(ctx, d, table, names); err != nil {
			return nil, err
		}
	}

	rules, err := s.conn.TableRules(ctx, table.Name, table.Schema)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		d.add("rule "+r.Name, r.Definition)
	}

	return d.result(), nil
}

// DatabaseDetails describes the connected database: versions and what the
// current user may create in it.
func (s *Service) DatabaseDetails(ctx context.Context) (*database.ResultModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	d := &detailBuilder{}
	d.add("name", s.conn.DatabaseName())

	version, err := s.conn.ServerInfo(ctx)
	if err != nil {
		return nil, err
	}
	d.add("server", version)

	spatial, err := s.conn.SpatialInfo(ctx)
	if err != nil {
		return nil, err
	}
	if spatial == nil {
		d.add("postgis", "not installed")
	} else {
		d.add("postgis", spatial.LibVersion)
	}
	caps := s.conn.Capabilities()
	d.add("geometry_columns", strconv.FormatBool(caps.UseMetadataTable()))

	privs, err := s.conn.DatabasePrivileges(ctx)
	if err != nil {
		return nil, err
	}
	d.add("privileges", grantList(grant{privs.Create, "CREATE"}, grant{privs.Temp, "TEMP"}))
	return d.result(), nil
}

// SchemaDetails describes a schema and the privileges of the current user on it.
func (s *Service) SchemaDetails(ctx context.Context, schema database.Schema) (*database.ResultModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	d := &detailBuilder{}
	d.add("name", schema.Name)
	d.add("owner", schema.Owner)
	acl := schema.ACL
	if acl == "" {
		acl = "default"
	}
	d.add("acl", acl)

	privs, err := s.conn.SchemaPrivileges(ctx, schema.Name)
	if err != nil {
		return nil, err
	}
	d.add("privileges", grantList(grant{privs.Create, "CREATE"}, grant{privs.Usage, "USAGE"}))
	return d.result(), nil
}

func (s *Service) addTableObjects(ctx context.Context, d *detailBuilder, table database.Table, names map[int]string) error {
	indexes, err := s.conn.TableIndexes(ctx, table.Name, table.Schema)
	if err != nil {
		return err
	}
	for _, idx := range indexes {
		v := columnList(idx.Columns, names)
		if idx.Unique {
			v += " UNIQUE"
		}
		d.add("index "+idx.Name, v)
	}

	constraints, err := s.conn.TableConstraints(ctx, table.Name, table.Schema)
	if err != nil {
		return err
	}
	for _, c := range constraints {
		d.add("constraint "+c.Name, formatConstraint(c, names))
	}

	triggers, err := s.conn.TableTriggers(ctx, table.Name, table.Schema)
	if err != nil {
		return err
	}
	for _, t := range triggers {
		v := t.Type.String() + " EXECUTE " + t.Function
		if !t.Enabled {
			v += " (disabled)"
		}
		d.add("trigger "+t.Name, v)
	}
	return nil
}

type detailBuilder struct {
	rows [][]any
}

func (d *detailBuilder) add(property, value string) {
	d.rows = append(d.rows, []any{property, value})
}

func (d *detailBuilder) result() *database.ResultModel {
	return &database.ResultModel{
		Columns:  []string{"property", "value"},
		Rows:     d.rows,
		RowCount: int64(len(d.rows)),
	}
}

func formatTablePrivileges(p database.TablePrivileges) string {
	return grantList(
		grant{p.Select, "SELECT"},
		grant{p.Insert, "INSERT"},
		grant{p.Update, "UPDATE"},
		grant{p.Delete, "DELETE"},
	)
}

type grant struct {
	held bool
	name string
}

// grantList joins the names of the held privileges.
func grantList(grants ...grant) string {
	var granted []string
	for _, g := range grants {
		if g.held {
			granted = append(granted, g.name)
		}
	}
	if len(granted) == 0 {
		return "none"
	}
	return strings.Join(granted, ", ")
}

func formatConstraint(c database.Constraint, names map[int]string) string {
	switch c.Kind {
	case database.ConstraintCheck:
		return c.Check
	case database.ConstraintForeignKey:
		v := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s", columnList(c.Columns, names), c.ForeignTable)
		if len(c.ForeignColumns) > 0 {
			v += fmt.Sprintf(" (%s)", positions(c.ForeignColumns))
		}
		if m := c.Match.String(); m != "" {
			v += " MATCH " + m
		}
		if a := c.OnUpdate.String(); a != "" {
			v += " ON UPDATE " + a
		}
		if a := c.OnDelete.String(); a != "" {
			v += " ON DELETE " + a
		}
		return v
	default:
		return strings.ToUpper(c.Kind.String()) + " (" + columnList(c.Columns, names) + ")"
	}
}

// columnList names the given column positions, falling back to the number.
func columnList(cols []int, names map[int]string) string {
	parts := make([]string, len(cols))
	for i, n := range cols {
		if name, ok := names[n]; ok {
			parts[i] = name
		} else {
			parts[i] = strconv.Itoa(n)
		}
	}
	return strings.Join(parts, ", ")
}

func positions(cols []int) string {
	return columnList(cols, nil)
}
