package postgis

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/minagis/internal/database"
)

var (
	plainCaps   = database.Capabilities{}
	spatialCaps = database.Capabilities{HasSpatialExtension: true, HasMetadataTable: true, HasMetadataTableAccess: true}
)

func privilegeRows(sel, ins, upd, del bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"select", "insert", "update", "delete"}).AddRow(sel, ins, upd, del)
}

func expectDetection(mock sqlmock.Sqlmock, caps database.Capabilities) {
	n := int64(0)
	if caps.HasSpatialExtension {
		n = 1
	}
	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_proc WHERE proname = 'postgis_version'")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))

	rel := sqlmock.NewRows([]string{"relname"})
	if caps.HasMetadataTable {
		rel.AddRow("geometry_columns")
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE relname = 'geometry_columns'")).WillReturnRows(rel)

	if caps.HasMetadataTable {
		mock.ExpectQuery(regexp.QuoteMeta("has_table_privilege")).
			WithArgs(`"geometry_columns"`).
			WillReturnRows(privilegeRows(caps.HasMetadataTableAccess, false, false, false))
	}
}

// openMock returns a connector over sqlmock with detection already satisfied.
func openMock(t *testing.T, caps database.Capabilities) (*Connector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	expectDetection(mock, caps)
	c, err := newConnector(context.Background(), db, database.Descriptor{User: "alice", Database: "gis"}, Options{})
	require.NoError(t, err)
	require.Equal(t, caps, c.Capabilities())
	return c, mock
}

func closeMock(t *testing.T, c *Connector, mock sqlmock.Sqlmock) {
	t.Helper()
	mock.ExpectClose()
	require.NoError(t, c.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewConnector_DetectsCapabilities(t *testing.T) {
	tests := []struct {
		name string
		caps database.Capabilities
	}{
		{"plain postgres", plainCaps},
		{"postgis with metadata access", spatialCaps},
		{"postgis without metadata access", database.Capabilities{HasSpatialExtension: true, HasMetadataTable: true}},
		{"postgis without metadata table", database.Capabilities{HasSpatialExtension: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := openMock(t, tt.caps)
			assert.Equal(t, "gis", c.DatabaseName())
			assert.NotEmpty(t, c.SessionID())
			closeMock(t, c, mock)
		})
	}
}

func TestNewConnector_DetectionFailureClosesConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_proc")).
		WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied for table pg_proc"})
	mock.ExpectClose()

	c, err := newConnector(context.Background(), db, database.Descriptor{User: "alice"}, Options{})
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, database.IsPermissionDenied(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), database.Descriptor{User: "alice"}, Options{Driver: "mysql"})
	require.Error(t, err)
	assert.True(t, database.IsConnectionError(err))
	assert.Contains(t, err.Error(), `unsupported driver "mysql"`)
}

func TestConnector_CloseIsIdempotent(t *testing.T) {
	c, mock := openMock(t, plainCaps)
	closeMock(t, c, mock)
	assert.NoError(t, c.Close())
}

func TestConnector_UseAfterClose(t *testing.T) {
	c, mock := openMock(t, plainCaps)
	closeMock(t, c, mock)
	ctx := context.Background()

	_, err := c.ListSchemas(ctx)
	require.Error(t, err)
	assert.True(t, database.IsConnectionFailed(err))
	assert.Equal(t, "connection closed", err.Error())

	_, err = c.RunQuery(ctx, "SELECT 1")
	assert.True(t, database.IsConnectionFailed(err))

	err = c.ExecuteAndCommit(ctx, "DELETE FROM roads")
	assert.True(t, database.IsConnectionFailed(err))

	_, err = c.ServerInfo(ctx)
	assert.True(t, database.IsConnectionFailed(err))
	assert.NoError(t, c.Commit(ctx))
}

func TestConnector_CloseRollsBackPendingWork(t *testing.T) {
	c, mock := openMock(t, plainCaps)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "t" ("id" integer)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, c.CreateTable(ctx, "t", "", []database.NewField{{Name: "id", DataType: "integer"}}))

	mock.ExpectRollback()
	closeMock(t, c, mock)
}

func TestConnector_ServerInfo(t *testing.T) {
	c, mock := openMock(t, plainCaps)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT version()")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("PostgreSQL 16.2 on x86_64-pc-linux-gnu"))

	v, err := c.ServerInfo(context.Background())
	require.NoError(t, err)
	assert.Contains(t, v, "PostgreSQL 16.2")
	closeMock(t, c, mock)
}

func TestConnector_SpatialInfo(t *testing.T) {
	t.Run("without postgis", func(t *testing.T) {
		c, mock := openMock(t, plainCaps)
		info, err := c.SpatialInfo(context.Background())
		require.NoError(t, err)
		assert.Nil(t, info)
		closeMock(t, c, mock)
	})

	t.Run("with postgis", func(t *testing.T) {
		c, mock := openMock(t, spatialCaps)
		mock.ExpectQuery(regexp.QuoteMeta("postgis_lib_version()")).
			WillReturnRows(sqlmock.NewRows([]string{"lib", "installed", "released", "geos", "proj"}).
				AddRow("3.4.2", "3.4.2", "3.4.2", "3.12.1-CAPI-1.18.1", nil))

		info, err := c.SpatialInfo(context.Background())
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, "3.4.2", info.LibVersion)
		assert.Equal(t, "3.12.1-CAPI-1.18.1", info.GEOSVersion)
		assert.Equal(t, database.Unknown, info.PROJVersion)
		closeMock(t, c, mock)
	})
}

func TestConnector_CommitAndRollbackWithoutTransaction(t *testing.T) {
	c, mock := openMock(t, plainCaps)
	ctx := context.Background()

	assert.NoError(t, c.Commit(ctx))
	assert.NoError(t, c.Rollback(ctx))
	closeMock(t, c, mock)
}

func TestConnector_ReadFailureInsideTransactionRollsBack(t *testing.T) {
	c, mock := openMock(t, plainCaps)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "t"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, c.CreateTable(ctx, "t", "", []database.NewField{{Name: "id", DataType: "integer"}}))

	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_namespace")).WillReturnError(errors.New("server closed the connection"))
	mock.ExpectRollback()

	_, err := c.ListSchemas(ctx)
	require.Error(t, err)
	assert.True(t, database.IsDBError(err))

	// Nothing left to commit.
	assert.NoError(t, c.Commit(ctx))
	closeMock(t, c, mock)
}
