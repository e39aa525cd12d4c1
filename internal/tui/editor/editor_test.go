package editor

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	tables := []string{"parcels", "pois", "roads"}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"table after FROM", "SELECT * FROM p", []string{"parcels", "pois"}},
		{"table after JOIN", "SELECT * FROM roads r JOIN ro", []string{"roads"}},
		{"table in FROM list", "SELECT * FROM roads, po", []string{"pois"}},
		{"no table context", "SELECT p", nil},
		{"spatial function anywhere", "SELECT ST_AsT", []string{"ST_AsText"}},
		{"spatial function case-insensitive", "select st_tr", []string{"ST_Transform"}},
		{"empty", "", nil},
		{"trailing space", "SELECT * FROM ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.text, tables))
		})
	}
}

func TestTabCyclesCompletions(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetTableNames([]string{"parcels", "pois"})
	m.SetQuery("SELECT * FROM p")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, m.CompletionActive())
	assert.Equal(t, "SELECT * FROM parcels", m.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "SELECT * FROM pois", m.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.CompletionActive())
}

func TestFormatKeywords(t *testing.T) {
	m := New()
	m.SetQuery(`select st_astext(geom) from "select" where name = 'from here'`)
	m.formatKeywords()
	assert.Equal(t, `SELECT st_astext(geom) FROM "select" WHERE name = 'from here'`, m.Value())
}

func TestExecuteEmitsQuery(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetQuery("  SELECT 1  ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	assert.Equal(t, ExecuteQueryMsg{Query: "SELECT 1"}, cmd())
}
