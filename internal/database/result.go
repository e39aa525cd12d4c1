package database

import (
	"encoding/hex"
	"fmt"
	"time"
	"unicode/utf8"
)

// ResultModel holds the outcome of an arbitrary SQL statement, independent of
// any widget that may display it.
type ResultModel struct {
	// Columns follow the projection order of the statement.
	Columns []string
	Rows    [][]any

	// RowCount is the number of rows returned. For statements without a
	// result set it is the number of rows affected, or -1 when the driver
	// does not report it.
	RowCount int64
	Elapsed  time.Duration
}

// ElapsedSeconds returns the execution time in seconds.
func (r *ResultModel) ElapsedSeconds() float64 {
	return r.Elapsed.Seconds()
}

// HasResultSet reports whether the statement described any output columns.
func (r *ResultModel) HasResultSet() bool {
	return len(r.Columns) > 0
}

// Value returns the cell at row, col or nil when out of range.
func (r *ResultModel) Value(row, col int) any {
	if row < 0 || row >= len(r.Rows) {
		return nil
	}
	if col < 0 || col >= len(r.Rows[row]) {
		return nil
	}
	return r.Rows[row][col]
}

// Text returns the display form of the cell at row, col.
func (r *ResultModel) Text(row, col int) string {
	return FormatValue(r.Value(row, col))
}

// FormatValue renders a driver value for display.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		// Some drivers hand back text of unregistered types as bytes.
		if utf8.Valid(val) {
			return string(val)
		}
		return `\x` + hex.EncodeToString(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case bool:
		if val {
			return "t"
		}
		return "f"
	default:
		return fmt.Sprintf("%v", val)
	}
}
