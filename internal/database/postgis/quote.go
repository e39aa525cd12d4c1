package postgis

import (
	"strings"

	"github.com/lib/pq"
)

// quoteID quotes each non-empty identifier part and joins them with dots, so
// quoteID("", "t") is "t" and quoteID("s", "t") is "s"."t".
//
// Values never go through here: they are always bound as query parameters.
func quoteID(parts ...string) string {
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		quoted = append(quoted, pq.QuoteIdentifier(p))
	}
	return strings.Join(quoted, ".")
}
