package results

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/joacominatel/minagis/internal/database"
	"github.com/joacominatel/minagis/internal/tui/theme"
)

const maxColumnWidth = 40

// Model is the query results component.
type Model struct {
	title     string
	result    *database.ResultModel
	cells     [][]string
	err       error
	width     int
	height    int
	focused   bool
	scrollY   int
	colOffset int
	loading   bool
	colWidths []int
}

// New creates a new results model.
func New() Model {
	return Model{title: "Results"}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetResult shows the outcome of a statement under title.
func (m *Model) SetResult(title string, r *database.ResultModel) {
	m.title = title
	m.result = r
	m.err = nil
	m.scrollY = 0
	m.colOffset = 0
	m.loading = false
	m.formatCells()
}

// SetError shows a failed statement. The message is the backend diagnostic.
func (m *Model) SetError(err error) {
	m.title = "Results"
	m.err = err
	m.result = nil
	m.cells = nil
	m.scrollY = 0
	m.loading = false
}

// formatCells renders every value once and sizes the columns to fit.
func (m *Model) formatCells() {
	m.cells = nil
	m.colWidths = nil
	if m.result == nil || !m.result.HasResultSet() {
		return
	}

	m.colWidths = make([]int, len(m.result.Columns))
	for i, col := range m.result.Columns {
		m.colWidths[i] = lipgloss.Width(col)
	}

	m.cells = make([][]string, len(m.result.Rows))
	for r := range m.result.Rows {
		row := make([]string, len(m.result.Columns))
		for c := range row {
			// Multi-line values (view definitions, WKT) are shown on one line.
			row[c] = strings.ReplaceAll(m.result.Text(r, c), "\n", " ")
			m.colWidths[c] = max(m.colWidths[c], lipgloss.Width(row[c]))
		}
		m.cells[r] = row
	}

	for i := range m.colWidths {
		m.colWidths[i] = min(max(m.colWidths[i], 1), maxColumnWidth)
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the results pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	lastRow := max(len(m.cells)-1, 0)
	switch key.String() {
	case "up", "k":
		m.scrollY = max(m.scrollY-1, 0)
	case "down", "j":
		m.scrollY = min(m.scrollY+1, lastRow)
	case "pgup":
		m.scrollY = max(m.scrollY-m.height/2, 0)
	case "pgdown":
		m.scrollY = min(m.scrollY+m.height/2, lastRow)
	case "left", "h":
		m.colOffset = max(m.colOffset-1, 0)
	case "right", "l":
		m.colOffset = min(m.colOffset+1, max(len(m.colWidths)-1, 0))
	case "home", "g":
		m.scrollY = 0
	case "end", "G":
		m.scrollY = lastRow
	}

	return m, nil
}

// Summary describes the current result in one line, e.g. "2 row(s) | 0.004s".
func (m Model) Summary() string {
	if m.result == nil {
		return ""
	}
	if !m.result.HasResultSet() {
		if m.result.RowCount < 0 {
			return fmt.Sprintf("statement executed | %.3fs", m.result.ElapsedSeconds())
		}
		return fmt.Sprintf("%d row(s) affected | %.3fs", m.result.RowCount, m.result.ElapsedSeconds())
	}
	return fmt.Sprintf("%d row(s) | %.3fs", m.result.RowCount, m.result.ElapsedSeconds())
}

// View renders the results pane.
func (m Model) View() string {
	title := theme.StyleTitle.Render(m.title)

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Executing...")
	}

	if m.err != nil {
		return title + "\n" + theme.StyleError.Render("  Error: "+m.err.Error())
	}

	if m.result == nil {
		return title + "\n" + theme.StyleMuted.Render("  Execute a query to see results")
	}

	header := title + "  " + theme.StyleMuted.Render(m.Summary())
	if !m.result.HasResultSet() {
		return header + "\n" + theme.StyleSuccess.Render("  Statement executed successfully")
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(m.renderRow(m.result.Columns, true))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())

	visibleRows := max(m.height-4, 1)
	end := min(len(m.cells), m.scrollY+visibleRows)
	for i := m.scrollY; i < end; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderRow(m.cells[i], false))
	}

	return b.String()
}

func (m Model) renderRow(cells []string, isHeader bool) string {
	var parts []string
	for i := m.colOffset; i < len(cells) && i < len(m.colWidths); i++ {
		width := m.colWidths[i]
		display := cell(cells[i], width)
		if isHeader {
			display = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorPrimary).
				Render(display)
		}
		parts = append(parts, display)
	}
	line := "  " + strings.Join(parts, " │ ")
	if m.width > 0 {
		line = ansi.Truncate(line, m.width, "…")
	}
	return line
}

// cell fits s into exactly width display cells.
func cell(s string, width int) string {
	if lipgloss.Width(s) > width {
		s = ansi.Truncate(s, width, "…")
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func (m Model) renderSeparator() string {
	var parts []string
	for _, w := range m.colWidths[m.colOffset:] {
		parts = append(parts, strings.Repeat("─", w))
	}
	line := "  " + strings.Join(parts, "─┼─")
	if m.width > 0 {
		line = ansi.Truncate(line, m.width, "")
	}
	return lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(line)
}
