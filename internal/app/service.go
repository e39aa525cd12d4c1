package app

import (
	"context"
	"sort"
	"sync"

	"github.com/joacominatel/minagis/internal/database"
	"github.com/joacominatel/minagis/internal/logger"
)

// SchemaTree represents the loaded schema hierarchy for the explorer.
type SchemaTree struct {
	Database     string
	Capabilities database.Capabilities
	Schemas      []SchemaNode
}

// SchemaNode holds a schema and its tables, one entry per geometry column.
type SchemaNode struct {
	Schema database.Schema
	Tables []database.Table
}

// TableNames returns the distinct table names of the tree, sorted, for
// editor completion.
func (t *SchemaTree) TableNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range t.Schemas {
		for _, tbl := range s.Tables {
			if _, ok := seen[tbl.Name]; ok {
				continue
			}
			seen[tbl.Name] = struct{}{}
			names = append(names, tbl.Name)
		}
	}
	sort.Strings(names)
	return names
}

// ServerSummary describes the connected backend.
type ServerSummary struct {
	Version string
	Spatial *database.SpatialInfo
}

// Service coordinates application-level operations between the TUI and the
// database. A connector is not safe for overlapping use, so every call holds
// the service lock.
type Service struct {
	mu   sync.Mutex
	open database.Opener
	conn database.Connector
	log  *logger.Logger
}

// NewService creates a new application service.
func NewService(open database.Opener, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{open: open, log: log}
}

// Connect opens a new connection, closing any previous one first.
func (s *Service) Connect(ctx context.Context, desc database.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing previous connection")
		}
		s.conn = nil
	}

	conn, err := s.open(ctx, desc)
	if err != nil {
		s.log.Error().Err(err).Str("target", desc.String()).Msg("connect failed")
		return err
	}
	s.conn = conn
	return nil
}

// Disconnect closes the database connection.
func (s *Service) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Connected reports whether a connection is open.
func (s *Service) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// DatabaseName returns the current database name.
func (s *Service) DatabaseName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.DatabaseName()
}

// Capabilities returns the spatial capabilities of the current connection.
func (s *Service) Capabilities() database.Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return database.Capabilities{}
	}
	return s.conn.Capabilities()
}

// FieldTypes lists the column types offered when creating a table.
func (s *Service) FieldTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.FieldTypes()
}

// ServerInfo returns the backend and PostGIS versions.
func (s *Service) ServerInfo(ctx context.Context) (*ServerSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	version, err := s.conn.ServerInfo(ctx)
	if err != nil {
		return nil, err
	}
	spatial, err := s.conn.SpatialInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &ServerSummary{Version: version, Spatial: spatial}, nil
}

// LoadSchemaTree fetches schemas and their tables for the connected database.
// Schemas without tables are kept.
func (s *Service) LoadSchemaTree(ctx context.Context) (*SchemaTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	schemas, err := s.conn.ListSchemas(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := s.conn.ListTables(ctx, "")
	if err != nil {
		return nil, err
	}

	bySchema := make(map[string][]database.Table, len(schemas))
	for _, t := range tables {
		bySchema[t.Schema] = append(bySchema[t.Schema], t)
	}

	tree := &SchemaTree{
		Database:     s.conn.DatabaseName(),
		Capabilities: s.conn.Capabilities(),
	}
	for _, schema := range schemas {
		tree.Schemas = append(tree.Schemas, SchemaNode{
			Schema: schema,
			Tables: bySchema[schema.Name],
		})
	}

	s.log.Debug().
		Int("schemas", len(schemas)).
		Int("tables", len(tables)).
		Msg("schema tree loaded")
	return tree, nil
}

// LoadColumns fetches column metadata for a specific table.
func (s *Service) LoadColumns(ctx context.Context, schema, table string) ([]database.Column, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn.TableFields(ctx, table, schema)
}

// TableRowCount returns the exact row count for a table.
func (s *Service) TableRowCount(ctx context.Context, schema, table string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return 0, ErrNotConnected
	}
	return s.conn.TableRowCount(ctx, table, schema)
}

// ExecuteQuery runs a SQL statement and returns its results.
func (s *Service) ExecuteQuery(ctx context.Context, query string) (*database.ResultModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	result, err := s.conn.RunQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("rows", result.RowCount).
		Dur("elapsed", result.Elapsed).
		Msg("query executed")
	return result, nil
}
