package postgis

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/joacominatel/minagis/internal/database"
	"github.com/joacominatel/minagis/internal/logger"
)

// cursorSeq numbers every statement cursor opened by the process.
var cursorSeq atomic.Uint64

// queryer is satisfied by both *sql.Conn and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// cursor is a single statement's open result set.
type cursor struct {
	id    uint64
	query string
	rows  *sql.Rows
}

func (c *cursor) close() {
	_ = c.rows.Close()
}

// session owns one pinned connection and its implicit transaction. Reads run
// inside the transaction if one is open; mutations open it lazily. Any failure
// rolls the transaction back before the error reaches the caller, so the
// session stays usable.
type session struct {
	db   *sql.DB
	conn *sql.Conn
	tx   *sql.Tx
	log  *logger.Logger

	// describe reports whether a statement returns rows without running it.
	describe describeFunc
}

// describeFunc inspects q on the driver connection. ok is false when the
// driver cannot tell.
type describeFunc func(ctx context.Context, driverConn any, q string) (hasRows, ok bool, err error)

// describePgx asks the server for the statement description through pgx.
// An unnamed statement is prepared, so nothing is executed.
func describePgx(ctx context.Context, driverConn any, q string) (bool, bool, error) {
	c, ok := driverConn.(*stdlib.Conn)
	if !ok {
		return false, false, nil
	}
	sd, err := c.Conn().PgConn().Prepare(ctx, "", q, nil)
	if err != nil {
		return false, false, err
	}
	return len(sd.Fields) > 0, true, nil
}

// errSessionClosed is returned by every statement issued after Close.
func errSessionClosed(q string) *database.DBError {
	return &database.DBError{
		Kind:    database.ErrKindConnectionFailed,
		Message: "connection closed",
		Query:   q,
	}
}

func (s *session) target() queryer {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// begin opens the implicit transaction if none is active.
func (s *session) begin(ctx context.Context) error {
	if s.conn == nil {
		return errSessionClosed("BEGIN")
	}
	if s.tx != nil {
		return nil
	}
	// database/sql rolls a transaction back when its context ends; the
	// transaction has to outlive the call that opened it.
	tx, err := s.conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return newDBError("BEGIN", err)
	}
	s.tx = tx
	return nil
}

// query opens a cursor for a read.
func (s *session) query(ctx context.Context, q string, args ...any) (*cursor, error) {
	if s.conn == nil {
		return nil, errSessionClosed(q)
	}
	id := cursorSeq.Add(1)
	start := time.Now()

	rows, err := s.target().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.fail(id, q, err)
	}

	s.log.Debug().
		Uint64("cursor", id).
		Bool("in_tx", s.tx != nil).
		Dur("elapsed", time.Since(start)).
		Str("sql", q).
		Msg("statement executed")
	return &cursor{id: id, query: q, rows: rows}, nil
}

// exec runs a mutation inside the implicit transaction without committing.
func (s *session) exec(ctx context.Context, q string, args ...any) error {
	_, err := s.execAffected(ctx, q, args...)
	return err
}

// execAffected is exec returning the number of rows the statement touched,
// or -1 when the driver does not report it.
func (s *session) execAffected(ctx context.Context, q string, args ...any) (int64, error) {
	if err := s.begin(ctx); err != nil {
		return 0, err
	}

	id := cursorSeq.Add(1)
	start := time.Now()
	res, err := s.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, s.fail(id, q, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = -1
	}

	s.log.Debug().
		Uint64("cursor", id).
		Int64("affected", n).
		Dur("elapsed", time.Since(start)).
		Str("sql", q).
		Msg("statement executed")
	return n, nil
}

// hasRows reports whether q returns a result set. ok is false when the
// driver cannot describe statements, when work is pending in the implicit
// transaction or when the server rejects the description (several commands
// in one string, syntax errors); the caller then runs q through a cursor.
func (s *session) hasRows(ctx context.Context, q string) (hasRows, ok bool) {
	if s.conn == nil || s.tx != nil || s.describe == nil {
		return false, false
	}
	err := s.conn.Raw(func(dc any) error {
		var err error
		hasRows, ok, err = s.describe(ctx, dc, q)
		return err
	})
	if err != nil {
		s.log.Debug().Err(err).Str("sql", q).Msg("describe failed")
		return false, false
	}
	return hasRows, ok
}

// each runs a read and calls fn for every row. The cursor is always closed.
func (s *session) each(ctx context.Context, q string, args []any, fn func(*sql.Rows) error) error {
	cur, err := s.query(ctx, q, args...)
	if err != nil {
		return err
	}
	defer cur.close()

	for cur.rows.Next() {
		if err := fn(cur.rows); err != nil {
			cur.close()
			return s.fail(cur.id, q, err)
		}
	}
	if err := cur.rows.Err(); err != nil {
		cur.close()
		return s.fail(cur.id, q, err)
	}
	return nil
}

// row scans the first row of a read into dest. found is false when the
// statement returned no rows.
func (s *session) row(ctx context.Context, q string, args []any, dest ...any) (found bool, err error) {
	err = s.each(ctx, q, args, func(rows *sql.Rows) error {
		if found {
			return nil
		}
		found = true
		return rows.Scan(dest...)
	})
	return found, err
}

// fail rolls back and converts err. The caller must have closed any cursor
// it still holds.
func (s *session) fail(id uint64, q string, err error) error {
	dbErr := newDBError(q, err)
	if rbErr := s.rollback(); rbErr != nil {
		s.log.Error().Err(rbErr).Uint64("cursor", id).Msg("rollback after failure")
	}
	s.log.Warn().
		Uint64("cursor", id).
		Str("kind", dbErr.Kind.String()).
		Str("sql", q).
		Err(err).
		Msg("statement failed")
	return dbErr
}

func (s *session) commit() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return newDBError("COMMIT", err)
	}
	s.log.Debug().Msg("transaction committed")
	return nil
}

func (s *session) rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return newDBError("ROLLBACK", err)
	}
	s.log.Debug().Msg("transaction rolled back")
	return nil
}

// close discards any open transaction and releases the connection.
func (s *session) close() error {
	rbErr := s.rollback()

	var connErr error
	if s.conn != nil {
		connErr = s.conn.Close()
		s.conn = nil
	}
	dbErr := s.db.Close()

	return errors.Join(rbErr, connErr, dbErr)
}
