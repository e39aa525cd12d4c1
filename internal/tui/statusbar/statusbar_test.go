package statusbar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joacominatel/minagis/internal/database"
)

func TestBadges(t *testing.T) {
	tests := []struct {
		name    string
		caps    database.Capabilities
		version string
		want    []string
	}{
		{"plain postgres", database.Capabilities{}, "", []string{"no postgis"}},
		{
			"full access",
			database.Capabilities{HasSpatialExtension: true, HasMetadataTable: true, HasMetadataTableAccess: true},
			"3.4",
			[]string{"postgis 3.4", "geometry_columns"},
		},
		{
			"metadata table not readable",
			database.Capabilities{HasSpatialExtension: true, HasMetadataTable: true},
			"",
			[]string{"postgis", "geometry_columns denied"},
		},
		{
			"no metadata table",
			database.Capabilities{HasSpatialExtension: true},
			"3.4",
			[]string{"postgis 3.4"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.SetConnected("gis", tt.caps)
			m.SetSpatialVersion(tt.version)
			assert.Equal(t, tt.want, m.Badges())
		})
	}
}

func TestBadges_Disconnected(t *testing.T) {
	m := New()
	m.SetConnected("gis", database.Capabilities{HasSpatialExtension: true})
	m.SetDisconnected()
	assert.Nil(t, m.Badges())
	assert.Contains(t, m.View(), "disconnected")
}
