package explorer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/lib/pq"

	"github.com/joacominatel/minagis/internal/app"
	"github.com/joacominatel/minagis/internal/database"
	"github.com/joacominatel/minagis/internal/tui/theme"
)

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	NodeDatabase NodeKind = iota
	NodeSchema
	NodeTable
	NodeColumn
)

// TreeNode represents a single node in the schema tree.
type TreeNode struct {
	Kind     NodeKind
	Name     string
	Children []*TreeNode
	Expanded bool
	Loaded   bool // whether children have been fetched

	// Table is the first listing entry of a table node; Geometries holds every
	// geometry column found for it.
	Table      database.Table
	Geometries []database.GeometryColumn

	Column database.Column
	Schema database.Schema
}

// flatItem is a visible item in the flattened tree view.
type flatItem struct {
	node  *TreeNode
	depth int
}

// RequestColumnsMsg is sent when a table is expanded and needs column data.
type RequestColumnsMsg struct {
	Schema string
	Table  string
}

// QuickQueryMsg asks the app to run a generated statement.
type QuickQueryMsg struct {
	Query string
}

// RequestDetailsMsg asks the app to show everything known about a table.
type RequestDetailsMsg struct {
	Table database.Table
}

// RequestDatabaseDetailsMsg asks the app to describe the connected database.
type RequestDatabaseDetailsMsg struct{}

// RequestSchemaDetailsMsg asks the app to describe a schema.
type RequestSchemaDetailsMsg struct {
	Schema database.Schema
}

// RequestCreateTableMsg asks the app to open the create-table form for a schema.
type RequestCreateTableMsg struct {
	Schema string
}

// Model is the explorer (schema tree) component.
type Model struct {
	tree    *TreeNode
	items   []flatItem
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
}

// New creates a new explorer model.
func New() Model {
	return Model{}
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

// SetTree populates the explorer from a schema tree. Listing entries of the
// same table collapse into one node.
func (m *Model) SetTree(tree *app.SchemaTree) {
	root := &TreeNode{
		Kind:     NodeDatabase,
		Name:     tree.Database,
		Expanded: true,
		Loaded:   true,
	}

	for _, s := range tree.Schemas {
		schemaNode := &TreeNode{
			Kind:   NodeSchema,
			Name:   s.Schema.Name,
			Schema: s.Schema,
			Loaded: true,
		}
		byName := make(map[string]*TreeNode)
		for _, t := range s.Tables {
			node, ok := byName[t.Name]
			if !ok {
				node = &TreeNode{Kind: NodeTable, Name: t.Name, Table: t}
				byName[t.Name] = node
				schemaNode.Children = append(schemaNode.Children, node)
			}
			if t.Geometry != nil {
				node.Geometries = append(node.Geometries, *t.Geometry)
			}
		}
		root.Children = append(root.Children, schemaNode)
	}

	m.tree = root
	m.flatten()
	m.loading = false
}

// SetColumns adds column nodes to a table node.
func (m *Model) SetColumns(schema, table string, columns []database.Column) {
	node := m.findTable(schema, table)
	if node == nil {
		return
	}
	node.Children = nil
	for _, col := range columns {
		node.Children = append(node.Children, &TreeNode{
			Kind:   NodeColumn,
			Name:   col.Name,
			Table:  node.Table,
			Column: col,
			Loaded: true,
		})
	}
	node.Loaded = true
	m.flatten()
}

func (m *Model) findTable(schema, table string) *TreeNode {
	if m.tree == nil {
		return nil
	}
	for _, s := range m.tree.Children {
		if s.Name != schema {
			continue
		}
		for _, t := range s.Children {
			if t.Name == table {
				return t
			}
		}
	}
	return nil
}

// Selected returns the node under the cursor.
func (m Model) Selected() *TreeNode {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	return m.items[m.cursor].node
}

// SelectedTable returns the table of the selected table or column node.
func (m Model) SelectedTable() (database.Table, bool) {
	node := m.Selected()
	if node == nil || (node.Kind != NodeTable && node.Kind != NodeColumn) {
		return database.Table{}, false
	}
	return node.Table, true
}

// SelectedSchema returns the schema the selected node lives in. The database
// node maps to "public".
func (m Model) SelectedSchema() (string, bool) {
	node := m.Selected()
	if node == nil {
		return "", false
	}
	switch node.Kind {
	case NodeDatabase:
		return "public", true
	case NodeSchema:
		return node.Name, true
	default:
		return node.Table.Schema, true
	}
}

// flatten rebuilds the flat item list from the tree.
func (m *Model) flatten() {
	m.items = nil
	if m.tree != nil {
		m.flattenNode(m.tree, 0)
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

func (m *Model) flattenNode(node *TreeNode, depth int) {
	m.items = append(m.items, flatItem{node: node, depth: depth})
	if node.Expanded {
		for _, child := range node.Children {
			m.flattenNode(child, depth+1)
		}
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the explorer.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", "right", "l":
		return m, m.toggleExpand()
	case "left", "h":
		m.collapse()
	case "s":
		if t, ok := m.SelectedTable(); ok {
			return m, emit(QuickQueryMsg{Query: fmt.Sprintf("SELECT * FROM %s LIMIT 100", quotedName(t))})
		}
	case "d":
		if t, ok := m.SelectedTable(); ok {
			return m, emit(QuickQueryMsg{Query: "SELECT COUNT(*) FROM " + quotedName(t)})
		}
	case "i":
		return m, m.details()
	case "c":
		if schema, ok := m.SelectedSchema(); ok {
			return m, emit(RequestCreateTableMsg{Schema: schema})
		}
	}

	return m, nil
}

func (m Model) details() tea.Cmd {
	node := m.Selected()
	if node == nil {
		return nil
	}
	switch node.Kind {
	case NodeDatabase:
		return emit(RequestDatabaseDetailsMsg{})
	case NodeSchema:
		return emit(RequestSchemaDetailsMsg{Schema: node.Schema})
	default:
		return emit(RequestDetailsMsg{Table: node.Table})
	}
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func quotedName(t database.Table) string {
	if t.Schema == "" {
		return pq.QuoteIdentifier(t.Name)
	}
	return pq.QuoteIdentifier(t.Schema) + "." + pq.QuoteIdentifier(t.Name)
}

func (m *Model) toggleExpand() tea.Cmd {
	node := m.Selected()
	if node == nil || node.Kind == NodeColumn {
		return nil
	}

	node.Expanded = !node.Expanded
	m.flatten()

	if node.Expanded && node.Kind == NodeTable && !node.Loaded {
		return emit(RequestColumnsMsg{Schema: node.Table.Schema, Table: node.Name})
	}
	return nil
}

func (m *Model) collapse() {
	node := m.Selected()
	if node != nil && node.Expanded {
		node.Expanded = false
		m.flatten()
	}
}

// View renders the explorer.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Explorer")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	}

	if m.tree == nil {
		return title + "\n" + theme.StyleMuted.Render("  No connection")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")

	visibleHeight := max(m.height-2, 1)

	// Scroll offset to keep cursor visible
	scrollOffset := 0
	if m.cursor >= visibleHeight {
		scrollOffset = m.cursor - visibleHeight + 1
	}

	end := min(len(m.items), scrollOffset+visibleHeight)
	for i := scrollOffset; i < end; i++ {
		b.WriteString(m.renderNode(m.items[i], i == m.cursor))
		if i < end-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) renderNode(item flatItem, selected bool) string {
	node := item.node
	indent := strings.Repeat("  ", item.depth)

	icon := "▶ "
	switch {
	case node.Kind == NodeColumn:
		icon = "  "
	case node.Expanded:
		icon = "▼ "
	}

	name := node.Name
	var suffix string
	switch node.Kind {
	case NodeTable:
		if node.Table.IsView {
			name += " (view)"
		}
		if len(node.Geometries) > 0 {
			suffix = " " + theme.StyleSpatial.Render("◆ "+geometrySummary(node.Geometries))
		}
	case NodeColumn:
		suffix = " " + theme.StyleMuted.Render(node.Column.DisplayType())
	}

	line := indent + icon + name
	if selected {
		line = theme.StyleSelected.Render(line)
	}
	line += suffix

	if m.width > 4 && lipgloss.Width(line) > m.width-2 {
		line = ansi.Truncate(line, m.width-2, "…")
	}
	return line
}

func geometrySummary(geoms []database.GeometryColumn) string {
	parts := make([]string, len(geoms))
	for i, g := range geoms {
		parts[i] = strings.ToLower(g.Type)
		if g.Registered && g.SRID > 0 {
			parts[i] += fmt.Sprintf(":%d", g.SRID)
		}
	}
	return strings.Join(parts, ",")
}
