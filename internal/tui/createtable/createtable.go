package createtable

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/joacominatel/minagis/internal/tui/theme"
)

// SubmitMsg carries the raw form values. Columns and Geometry are parsed by
// the receiver.
type SubmitMsg struct {
	Schema       string
	Table        string
	Columns      string
	Geometry     string
	SpatialIndex bool
}

// CancelMsg is sent when the form is dismissed.
type CancelMsg struct{}

const (
	fieldSchema = iota
	fieldTable
	fieldColumns
	fieldGeometry
	fieldIndex
)

var labels = [...]string{"Schema", "Table", "Columns", "Geometry"}

// Model is the create-table form.
type Model struct {
	inputs     [4]textinput.Model
	index      bool
	focus      int
	spatial    bool
	fieldTypes []string
	err        string
	width      int
}

// New creates a form for a table in schema. Geometry and index fields are
// only offered when spatial is true.
func New(schema string, fieldTypes []string, spatial bool) Model {
	m := Model{spatial: spatial, fieldTypes: fieldTypes, focus: fieldTable}

	for i := range m.inputs {
		ti := textinput.New()
		ti.CharLimit = 500
		ti.Width = 60
		m.inputs[i] = ti
	}
	m.inputs[fieldSchema].SetValue(schema)
	m.inputs[fieldTable].Placeholder = "roads"
	m.inputs[fieldColumns].Placeholder = "id integer pk, name varchar(40) not null"
	m.inputs[fieldGeometry].Placeholder = "geom LINESTRING 4326"
	m.inputs[fieldTable].Focus()
	return m
}

// SetWidth limits the rendered width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetError shows err under the form; nil clears it.
func (m *Model) SetError(err error) {
	m.err = ""
	if err != nil {
		m.err = err.Error()
	}
}

func (m Model) lastField() int {
	if m.spatial {
		return fieldIndex
	}
	return fieldColumns
}

func (m *Model) setFocus(f int) {
	m.focus = f
	for i := range m.inputs {
		if i == f {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

// Update handles key input for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.focus < len(m.inputs) {
			var cmd tea.Cmd
			m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch key.String() {
	case "esc":
		return m, emit(CancelMsg{})
	case "tab", "down":
		m.setFocus((m.focus + 1) % (m.lastField() + 1))
		return m, nil
	case "shift+tab", "up":
		m.setFocus((m.focus + m.lastField()) % (m.lastField() + 1))
		return m, nil
	case "enter":
		return m, emit(m.submit())
	case " ":
		if m.focus == fieldIndex {
			m.index = !m.index
			return m, nil
		}
	}

	if m.focus >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submit() SubmitMsg {
	s := SubmitMsg{
		Schema:  strings.TrimSpace(m.inputs[fieldSchema].Value()),
		Table:   strings.TrimSpace(m.inputs[fieldTable].Value()),
		Columns: m.inputs[fieldColumns].Value(),
	}
	if m.spatial {
		s.Geometry = m.inputs[fieldGeometry].Value()
		s.SpatialIndex = m.index
	}
	return s
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the form.
func (m Model) View() string {
	labelStyle := lipgloss.NewStyle().Width(10).Foreground(theme.ColorPrimary)

	lines := []string{theme.StyleTitle.Render("Create table"), ""}
	for i, label := range labels {
		if i == fieldGeometry && !m.spatial {
			continue
		}
		l := labelStyle.Render(label)
		if i == m.focus {
			l = labelStyle.Foreground(theme.ColorHighlight).Render(label)
		}
		lines = append(lines, l+m.inputs[i].View())
	}

	if m.spatial {
		box := "[ ]"
		if m.index {
			box = "[x]"
		}
		line := labelStyle.Render("") + box + " spatial index"
		if m.focus == fieldIndex {
			line = theme.StyleSelected.Render(line)
		}
		lines = append(lines, line)
	} else {
		lines = append(lines, theme.StyleMuted.Render("PostGIS is not installed: no geometry column"))
	}

	types := "Types: " + strings.Join(m.fieldTypes, ", ")
	if m.width > 4 {
		types = ansi.Wrap(types, m.width-4, "")
	}
	lines = append(lines, "", theme.StyleMuted.Render(types))
	if m.spatial {
		lines = append(lines, theme.StyleMuted.Render("Geometry: <column> [type] [srid] [dimension]"))
	}

	if m.err != "" {
		lines = append(lines, "", theme.StyleError.Render("Error: "+m.err))
	}
	lines = append(lines, "", theme.StyleMuted.Render("Tab: Next field │ Space: Toggle │ Enter: Create │ Esc: Cancel"))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
