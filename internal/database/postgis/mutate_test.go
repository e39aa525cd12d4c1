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

func TestCreateTableWithGeometry(t *testing.T) {
	c, mock := openMock(t, spatialCaps)
	ctx := context.Background()

	fields := []database.NewField{
		{Name: "id", DataType: "integer", NotNull: true, PrimaryKey: true},
		{Name: "name", DataType: "text"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "public"."roads" ("id" integer NOT NULL, "name" text, PRIMARY KEY ("id"))`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT AddGeometryColumn($1::varchar, $2::varchar, $3::varchar, $4::integer")).
		WithArgs("public", "roads", "geom", int64(4326), "LINESTRING", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX "sidx_roads_geom" ON "public"."roads" USING GIST ("geom")`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, c.CreateTable(ctx, "roads", "public", fields))
	require.NoError(t, c.AddGeometryColumn(ctx, "roads", "public",
		database.GeometrySpec{Column: "geom", Type: "linestring", SRID: 4326}))
	require.NoError(t, c.Commit(ctx))
	require.NoError(t, c.CreateSpatialIndex(ctx, "roads", "public", "geom"))
	closeMock(t, c, mock)
}

func TestAddGeometryColumn_WithoutSchema(t *testing.T) {
	c, mock := openMock(t, spatialCaps)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT AddGeometryColumn($1::varchar, $2::varchar, $3::integer")).
		WithArgs("pois", "geom", int64(0), "GEOMETRY", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, c.AddGeometryColumn(context.Background(), "pois", "",
		database.GeometrySpec{Column: "geom", Dimension: 3}))

	mock.ExpectRollback()
	require.NoError(t, c.Rollback(context.Background()))
	closeMock(t, c, mock)
}

func TestAddGeometryColumn_RequiresPostGIS(t *testing.T) {
	c, mock := openMock(t, plainCaps)

	err := c.AddGeometryColumn(context.Background(), "roads", "public", database.GeometrySpec{Column: "geom"})
	require.Error(t, err)

	var dbErr *database.DBError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, database.ErrKindInvalidInput, dbErr.Kind)
	closeMock(t, c, mock)
}

func TestCreateTable_FailureLeavesNothingPending(t *testing.T) {
	c, mock := openMock(t, spatialCaps)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "roads"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("AddGeometryColumn")).
		WillReturnError(&pgconn.PgError{Code: "P0001", Message: "AddGeometryColumn() - invalid SRID"})
	mock.ExpectRollback()

	require.NoError(t, c.CreateTable(ctx, "roads", "", []database.NewField{{Name: "id", DataType: "integer"}}))
	err := c.AddGeometryColumn(ctx, "roads", "", database.GeometrySpec{Column: "geom", Type: "point", SRID: 999999})
	require.Error(t, err)
	assert.Equal(t, "AddGeometryColumn() - invalid SRID", err.Error())

	// The rollback already happened, so commit has nothing to do.
	require.NoError(t, c.Commit(ctx))
	closeMock(t, c, mock)
}

func TestAddGeometryColumn_RejectsUnknownType(t *testing.T) {
	c, mock := openMock(t, spatialCaps)

	err := c.AddGeometryColumn(context.Background(), "roads", "public",
		database.GeometrySpec{Column: "geom", Type: "blob"})
	require.Error(t, err)

	var dbErr *database.DBError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, database.ErrKindInvalidInput, dbErr.Kind)
	assert.Contains(t, dbErr.Message, `"blob"`)
	closeMock(t, c, mock)
}

func TestCreateTable_InvalidInput(t *testing.T) {
	c, mock := openMock(t, plainCaps)
	ctx := context.Background()

	tests := []struct {
		name   string
		table  string
		fields []database.NewField
	}{
		{"no table name", "", []database.NewField{{Name: "id", DataType: "integer"}}},
		{"no fields", "t", nil},
		{"field without type", "t", []database.NewField{{Name: "id"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.CreateTable(ctx, tt.table, "", tt.fields)
			require.Error(t, err)
			var dbErr *database.DBError
			require.ErrorAs(t, err, &dbErr)
			assert.Equal(t, database.ErrKindInvalidInput, dbErr.Kind)
		})
	}
	closeMock(t, c, mock)
}

func TestFieldTypes_ReturnsCopy(t *testing.T) {
	c := &Connector{}
	types := c.FieldTypes()
	require.NotEmpty(t, types)
	assert.Contains(t, types, "integer")

	types[0] = "changed"
	assert.NotEqual(t, "changed", c.FieldTypes()[0])
}
