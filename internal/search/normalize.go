package search

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeQuery canonicalizes a query for cache keying: NFC-composed,
// lowercased, inner whitespace collapsed. "Ubuntu  24.04" and
// "ubuntu 24.04" share a cache entry; the query sent to sources is left
// exactly as the user typed it.
func normalizeQuery(raw string) string {
	composed := norm.NFC.String(strings.TrimSpace(raw))
	fields := strings.Fields(strings.ToLower(composed))
	return strings.Join(fields, " ")
}
