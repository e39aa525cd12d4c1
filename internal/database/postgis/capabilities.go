package postgis

import (
	"context"

	"github.com/joacominatel/minagis/internal/database"
)

// detectCapabilities checks the catalog once. A failure here is fatal to the
// connection being opened.
func (c *Connector) detectCapabilities(ctx context.Context) (database.Capabilities, error) {
	var caps database.Capabilities

	var n int64
	if _, err := c.sess.row(ctx, queryHasSpatialExtension, nil, &n); err != nil {
		return caps, err
	}
	caps.HasSpatialExtension = n > 0

	var relname string
	found, err := c.sess.row(ctx, queryHasMetadataTable, nil, &relname)
	if err != nil {
		return caps, err
	}
	caps.HasMetadataTable = found

	if caps.HasMetadataTable {
		privs, err := c.TablePrivileges(ctx, "geometry_columns", "")
		if err != nil {
			return caps, err
		}
		caps.HasMetadataTableAccess = privs.Select
	}
	return caps, nil
}
