package postgis

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/minagis/internal/database"
)

func TestDatabasePrivileges(t *testing.T) {
	c, mock := openMock(t, plainCaps)

	mock.ExpectQuery(regexp.QuoteMeta("has_database_privilege(current_database(), 'CREATE')")).
		WillReturnRows(sqlmock.NewRows([]string{"create", "temp"}).AddRow(false, true))

	p, err := c.DatabasePrivileges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, database.DatabasePrivileges{Create: false, Temp: true}, p)
	closeMock(t, c, mock)
}

func TestSchemaPrivileges(t *testing.T) {
	c, mock := openMock(t, plainCaps)

	mock.ExpectQuery(regexp.QuoteMeta("has_schema_privilege($1::text, 'CREATE')")).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"create", "usage"}).AddRow(true, true))

	p, err := c.SchemaPrivileges(context.Background(), "public")
	require.NoError(t, err)
	assert.Equal(t, database.SchemaPrivileges{Create: true, Usage: true}, p)
	closeMock(t, c, mock)
}

func TestTablePrivileges(t *testing.T) {
	c, mock := openMock(t, plainCaps)

	mock.ExpectQuery(regexp.QuoteMeta("has_table_privilege($1::text, 'SELECT')")).
		WithArgs(`"public"."Roads"`).
		WillReturnRows(privilegeRows(true, false, true, false))

	p, err := c.TablePrivileges(context.Background(), "Roads", "public")
	require.NoError(t, err)
	assert.Equal(t, database.TablePrivileges{Select: true, Update: true}, p)
	closeMock(t, c, mock)
}

func TestTablePrivileges_FailureIsDBError(t *testing.T) {
	c, mock := openMock(t, plainCaps)

	mock.ExpectQuery(regexp.QuoteMeta("has_table_privilege")).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "public.missing" does not exist`})

	_, err := c.TablePrivileges(context.Background(), "missing", "public")
	require.Error(t, err)
	assert.True(t, database.IsNotFound(err))
	closeMock(t, c, mock)
}
