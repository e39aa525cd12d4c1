package postgis

import (
	"context"

	"github.com/joacominatel/minagis/internal/database"
)

// DatabasePrivileges reports whether the current user may create schemas and
// temporary tables in the connected database.
func (c *Connector) DatabasePrivileges(ctx context.Context) (database.DatabasePrivileges, error) {
	var p database.DatabasePrivileges
	if _, err := c.sess.row(ctx, queryDatabasePrivileges, nil, &p.Create, &p.Temp); err != nil {
		return database.DatabasePrivileges{}, err
	}
	return p, nil
}

// SchemaPrivileges reports whether the current user may create and access
// objects in schema.
func (c *Connector) SchemaPrivileges(ctx context.Context, schema string) (database.SchemaPrivileges, error) {
	var p database.SchemaPrivileges
	if _, err := c.sess.row(ctx, querySchemaPrivileges, []any{schema}, &p.Create, &p.Usage); err != nil {
		return database.SchemaPrivileges{}, err
	}
	return p, nil
}

// TablePrivileges reports the DML privileges of the current user on a table.
// An empty schema resolves the table through the search path.
func (c *Connector) TablePrivileges(ctx context.Context, table, schema string) (database.TablePrivileges, error) {
	var p database.TablePrivileges
	args := []any{quoteID(schema, table)}
	if _, err := c.sess.row(ctx, queryTablePrivileges, args, &p.Select, &p.Insert, &p.Update, &p.Delete); err != nil {
		return database.TablePrivileges{}, err
	}
	return p, nil
}
