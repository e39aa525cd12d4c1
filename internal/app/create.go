package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/joacominatel/minagis/internal/database"
)

// CreateTableRequest describes a new table and its optional geometry column.
type CreateTableRequest struct {
	Schema       string
	Table        string
	Fields       []database.NewField
	Geometry     *database.GeometrySpec
	SpatialIndex bool
}

// CreateTable creates the table and its geometry column in one transaction,
// commits, then builds the spatial index when asked. A failure at any step
// leaves nothing behind except an already committed table when only the
// index fails.
func (s *Service) CreateTable(ctx context.Context, req CreateTableRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}

	if err := s.conn.CreateTable(ctx, req.Table, req.Schema, req.Fields); err != nil {
		return err
	}
	if req.Geometry != nil {
		if err := s.conn.AddGeometryColumn(ctx, req.Table, req.Schema, *req.Geometry); err != nil {
			// Rejected input never reached the server, so CREATE TABLE is still pending.
			if rbErr := s.conn.Rollback(ctx); rbErr != nil {
				s.log.Warn().Err(rbErr).Msg("rollback after failed geometry column")
			}
			return err
		}
	}
	if err := s.conn.Commit(ctx); err != nil {
		return err
	}

	if req.Geometry != nil && req.SpatialIndex {
		if err := s.conn.CreateSpatialIndex(ctx, req.Table, req.Schema, req.Geometry.Column); err != nil {
			return err
		}
	}

	s.log.Info().
		Str("schema", req.Schema).
		Str("table", req.Table).
		Bool("geometry", req.Geometry != nil).
		Msg("table created")
	return nil
}

// ParseFields reads a column list such as
//
//	id integer pk, name varchar(40) not null, price numeric(10,2)
//
// Commas inside parentheses belong to the type. A type whose base name is not
// in types is rejected; an empty types list accepts anything.
func ParseFields(spec string, types []string) ([]database.NewField, error) {
	var fields []database.NewField
	for _, part := range splitTopLevel(spec) {
		tokens := strings.Fields(part)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) < 2 {
			return nil, fmt.Errorf("column %q needs a type", tokens[0])
		}

		f := database.NewField{Name: tokens[0]}
		rest := tokens[1:]
	trim:
		for len(rest) > 1 {
			switch {
			case hasSuffixFold(rest, "not", "null"):
				f.NotNull = true
				rest = rest[:len(rest)-2]
			case hasSuffixFold(rest, "primary", "key"):
				f.PrimaryKey = true
				rest = rest[:len(rest)-2]
			case hasSuffixFold(rest, "pk"):
				f.PrimaryKey = true
				rest = rest[:len(rest)-1]
			default:
				break trim
			}
		}
		f.DataType = strings.Join(rest, " ")

		base, _, _ := strings.Cut(strings.ToLower(f.DataType), "(")
		if len(types) > 0 && !slices.Contains(types, strings.TrimSpace(base)) {
			return nil, fmt.Errorf("column %q: unknown type %q", f.Name, f.DataType)
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, errors.New("at least one column is required")
	}
	return fields, nil
}

// ParseGeometry reads "<column> [type] [srid] [dimension]", e.g.
// "geom POINT 4326". An empty spec means no geometry column.
func ParseGeometry(spec string) (*database.GeometrySpec, error) {
	tokens := strings.Fields(spec)
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > 4 {
		return nil, fmt.Errorf("geometry %q: expected column, type, srid and dimension", spec)
	}

	g := &database.GeometrySpec{Column: tokens[0], Type: "GEOMETRY", Dimension: 2}
	if len(tokens) > 1 {
		g.Type = strings.ToUpper(tokens[1])
	}
	if len(tokens) > 2 {
		srid, err := strconv.Atoi(tokens[2])
		if err != nil {
			return nil, fmt.Errorf("geometry srid %q is not a number", tokens[2])
		}
		g.SRID = srid
	}
	if len(tokens) > 3 {
		dim, err := strconv.Atoi(tokens[3])
		if err != nil || dim < 2 || dim > 4 {
			return nil, fmt.Errorf("geometry dimension %q must be 2, 3 or 4", tokens[3])
		}
		g.Dimension = dim
	}
	return g, nil
}

// splitTopLevel splits s on commas that are not inside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func hasSuffixFold(tokens []string, suffix ...string) bool {
	if len(tokens) < len(suffix) {
		return false
	}
	tail := tokens[len(tokens)-len(suffix):]
	for i := range suffix {
		if !strings.EqualFold(tail[i], suffix[i]) {
			return false
		}
	}
	return true
}
