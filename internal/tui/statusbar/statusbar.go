package statusbar

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/minagis/internal/database"
	"github.com/joacominatel/minagis/internal/tui/theme"
)

// Model is the status bar component.
type Model struct {
	width      int
	connected  bool
	connName   string
	caps       database.Capabilities
	postgis    string
	activePane string
	message    string
}

// New creates a new status bar model.
func New() Model {
	return Model{
		activePane: "explorer",
	}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetConnected shows the database name and the spatial capabilities detected
// for it.
func (m *Model) SetConnected(name string, caps database.Capabilities) {
	m.connected = true
	m.connName = name
	m.caps = caps
}

// SetDisconnected clears the connection indicator.
func (m *Model) SetDisconnected() {
	m.connected = false
	m.connName = ""
	m.caps = database.Capabilities{}
	m.postgis = ""
}

// SetSpatialVersion records the PostGIS library version for the badge.
func (m *Model) SetSpatialVersion(v string) {
	m.postgis = v
}

// SetActivePane updates the displayed active pane name.
func (m *Model) SetActivePane(pane string) {
	m.activePane = pane
}

// SetMessage sets a temporary status message.
func (m *Model) SetMessage(msg string) {
	m.message = msg
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages (status bar has no interactive behavior).
func (m Model) Update(_ tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// Badges returns the plain labels of the capability badges in display order.
func (m Model) Badges() []string {
	if !m.connected {
		return nil
	}
	if !m.caps.HasSpatialExtension {
		return []string{"no postgis"}
	}

	postgis := "postgis"
	if m.postgis != "" {
		postgis += " " + m.postgis
	}
	badges := []string{postgis}
	switch {
	case m.caps.UseMetadataTable():
		badges = append(badges, "geometry_columns")
	case m.caps.HasMetadataTable:
		badges = append(badges, "geometry_columns denied")
	}
	return badges
}

// View renders the status bar.
func (m Model) View() string {
	style := theme.StyleStatusBar.Width(m.width)

	var left string
	if m.connected {
		left = lipgloss.NewStyle().
			Foreground(theme.ColorSuccess).
			Render("●") + " " + m.connName
		for _, b := range m.Badges() {
			color := theme.ColorSpatial
			if !m.caps.UseMetadataTable() {
				color = theme.ColorWarning
			}
			left += " " + theme.Badge(b, color)
		}
	} else {
		left = lipgloss.NewStyle().
			Foreground(theme.ColorError).
			Render("●") + " disconnected"
	}

	right := m.message
	if right == "" {
		right = "[" + m.activePane + "]  Ctrl+E: Run │ Tab: Pane │ ?: Help │ q: Quit"
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if padding < 1 {
		padding = 1
	}

	return style.Render(left + strings.Repeat(" ", padding) + right)
}
