package results

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/joacominatel/minagis/internal/database"
)

func TestSummary(t *testing.T) {
	m := New()
	assert.Empty(t, m.Summary())

	m.SetResult("Results", &database.ResultModel{
		Columns:  []string{"id"},
		Rows:     [][]any{{int64(1)}, {int64(2)}},
		RowCount: 2,
		Elapsed:  1500 * time.Millisecond,
	})
	assert.Equal(t, "2 row(s) | 1.500s", m.Summary())

	m.SetResult("Results", &database.ResultModel{RowCount: -1})
	assert.Equal(t, "statement executed | 0.000s", m.Summary())
	assert.Contains(t, m.View(), "Statement executed successfully")

	m.SetResult("Results", &database.ResultModel{RowCount: 3})
	assert.Equal(t, "3 row(s) affected | 0.000s", m.Summary())
}

func TestViewRendersCells(t *testing.T) {
	m := New()
	m.SetSize(80, 10)
	m.SetResult("Details: public.roads", &database.ResultModel{
		Columns:  []string{"property", "value"},
		Rows:     [][]any{{"name", "roads"}, {"definition", "SELECT 1\nFROM t"}, {"owner", nil}},
		RowCount: 3,
	})

	view := m.View()
	assert.Contains(t, view, "Details: public.roads")
	assert.Contains(t, view, "SELECT 1 FROM t")
	assert.Contains(t, view, "NULL")
}

func TestHorizontalScroll(t *testing.T) {
	m := New()
	m.SetSize(80, 10)
	m.SetFocused(true)
	m.SetResult("Results", &database.ResultModel{
		Columns:  []string{"first_col", "second_col"},
		Rows:     [][]any{{"a", "b"}},
		RowCount: 1,
	})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	view := m.View()
	assert.NotContains(t, view, "first_col")
	assert.Contains(t, view, "second_col")

	// The offset stops at the last column.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Contains(t, m.View(), "second_col")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Contains(t, m.View(), "first_col")
}

func TestSetErrorShowsMessage(t *testing.T) {
	m := New()
	m.SetLoading(true)
	m.SetError(errors.New(`relation "nope" does not exist`))
	assert.Contains(t, m.View(), `relation "nope" does not exist`)
	assert.Empty(t, m.Summary())
}

func TestCellWidth(t *testing.T) {
	assert.Equal(t, "ab  ", cell("ab", 4))
	assert.Equal(t, "abc…", cell("abcdefgh", 4))
}
