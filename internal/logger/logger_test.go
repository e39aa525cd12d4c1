package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilConfigDiscards(t *testing.T) {
	l := New(nil)
	require.NotNil(t, l)
	l.Info().Msg("nowhere") // must not panic

	l = New(&Config{Level: "debug"})
	require.NotNil(t, l)
	l.Debug().Msg("nowhere")
}

func TestLogger_JSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "info", Format: "json", Output: buf})

	l.Info().Str("db", "gis").Msg("connected")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "connected", entry["message"])
	assert.Equal(t, "gis", entry["db"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_WithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "debug", Output: buf})

	child := l.With().Str("session", "abc").Str("database", "gis").Logger()
	child.Warn().Err(errors.New("boom")).Msg("statement failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, "gis", entry["database"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		log      func(*Logger)
		expected bool
	}{
		{"debug level logs debug", "debug", func(l *Logger) { l.Debug().Msg("x") }, true},
		{"info level skips debug", "info", func(l *Logger) { l.Debug().Msg("x") }, false},
		{"unknown level means info", "chatty", func(l *Logger) { l.Info().Msg("x") }, true},
		{"error level skips warn", "error", func(l *Logger) { l.Warn().Msg("x") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.log(New(&Config{Level: tt.level, Output: buf}))
			if tt.expected {
				assert.NotEmpty(t, buf.String())
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "minagis.log")
	f, err := OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	l := New(&Config{Output: f})
	l.Info().Msg("to file")
	assert.FileExists(t, path)
}
