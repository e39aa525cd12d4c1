package postgis

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/joacominatel/minagis/internal/database"
)

// SQLSTATE codes with a dedicated error kind.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	sqlstateInsufficientPrivilege = "42501"
	sqlstateUndefinedTable        = "42P01"
	sqlstateUndefinedFunction     = "42883"
	sqlstateUndefinedObject       = "42704"
	sqlstateQueryCanceled         = "57014"
)

// newDBError translates a pgx or lib/pq error into *database.DBError, keeping
// the backend diagnostic as the message.
func newDBError(query string, err error) *database.DBError {
	de := &database.DBError{
		Kind:    database.ErrKindQueryFailed,
		Message: err.Error(),
		Query:   query,
		Cause:   err,
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		de.Kind = database.ErrKindTimeout
		return de
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		de.Message = pgErr.Message
		de.Kind = kindFromSQLState(pgErr.Code)
		return de
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		de.Message = pqErr.Message
		de.Kind = kindFromSQLState(string(pqErr.Code))
		return de
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		de.Kind = database.ErrKindConnectionFailed
	}
	return de
}

func kindFromSQLState(code string) database.ErrKind {
	switch {
	case code == sqlstateInsufficientPrivilege:
		return database.ErrKindPermissionDenied
	case code == sqlstateUndefinedTable, code == sqlstateUndefinedFunction, code == sqlstateUndefinedObject:
		return database.ErrKindNotFound
	case code == sqlstateQueryCanceled:
		return database.ErrKindTimeout
	case strings.HasPrefix(code, "08"):
		return database.ErrKindConnectionFailed
	default:
		return database.ErrKindQueryFailed
	}
}

func invalidInput(msg string) *database.DBError {
	return &database.DBError{Kind: database.ErrKindInvalidInput, Message: msg}
}
