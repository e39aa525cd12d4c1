package postgis

import (
	"context"
	"time"

	"github.com/joacominatel/minagis/internal/database"
)

// RunQuery executes arbitrary SQL inside the implicit transaction, fetches
// every row it returns and commits. On failure the transaction is rolled back
// and a *database.DBError is returned; a partial result is never returned.
//
// Statements without a result set report the number of rows they affected
// when the driver can describe them (pgx); otherwise RowCount is -1.
// Elapsed covers execution only, not fetching.
func (c *Connector) RunQuery(ctx context.Context, query string) (*database.ResultModel, error) {
	hasRows, described := c.sess.hasRows(ctx, query)
	if err := c.sess.begin(ctx); err != nil {
		return nil, err
	}
	if described && !hasRows {
		return c.runStatement(ctx, query)
	}

	start := time.Now()
	cur, err := c.sess.query(ctx, query)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	result, err := fetchAll(cur)
	// The cursor must be closed before the transaction can finish.
	cur.close()
	if err != nil {
		return nil, c.sess.fail(cur.id, query, err)
	}
	result.Elapsed = elapsed

	if err := c.sess.commit(); err != nil {
		return nil, err
	}

	c.log.Debug().
		Uint64("cursor", cur.id).
		Int64("rows", result.RowCount).
		Dur("elapsed", elapsed).
		Msg("query completed")
	return result, nil
}

// runStatement executes a statement known to return no rows and reports the
// affected row count.
func (c *Connector) runStatement(ctx context.Context, query string) (*database.ResultModel, error) {
	start := time.Now()
	n, err := c.sess.execAffected(ctx, query)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if err := c.sess.commit(); err != nil {
		return nil, err
	}
	return &database.ResultModel{RowCount: n, Elapsed: elapsed}, nil
}

// fetchAll drains the cursor into a ResultModel. A statement without a result
// set yields no columns and RowCount -1, as the row count is not available
// through a cursor.
func fetchAll(cur *cursor) (*database.ResultModel, error) {
	cols, err := cur.rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		// Drain so that errors reported after the command are not lost.
		for cur.rows.Next() {
		}
		if err := cur.rows.Err(); err != nil {
			return nil, err
		}
		return &database.ResultModel{RowCount: -1}, nil
	}

	result := &database.ResultModel{Columns: cols, Rows: [][]any{}}
	for cur.rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := cur.rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := cur.rows.Err(); err != nil {
		return nil, err
	}
	result.RowCount = int64(len(result.Rows))
	return result, nil
}
