package domain

import "time"

// SearchResult is an ephemeral row returned by a search source. Identity
// is carried entirely by Link: two results with the same canonical link
// are the same torrent regardless of the other fields.
type SearchResult struct {
	Link      TorrentLink `json:"-"`
	Magnet    string      `json:"magnet"`
	Title     string      `json:"title"`
	SizeBytes int64       `json:"sizeBytes,omitempty"`
	Seeders   int         `json:"seeders"`
	Leechers  int         `json:"leechers"`
	Source    string      `json:"source"`
	DateFound time.Time   `json:"dateFound"`
}

// FailedSource records one source that could not be searched. Message is
// prefixed "timed out: " or "failed: " depending on the failure kind.
type FailedSource struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// SearchOutput is the aggregated, deduplicated, seeder-ranked result set
// plus the sources that failed along the way.
type SearchOutput struct {
	Query         string         `json:"query"`
	Results       []SearchResult `json:"results"`
	FailedSources []FailedSource `json:"failedSources"`
	ElapsedMS     int64          `json:"elapsedMs"`
}

// SourceInfo describes a registered search source.
type SourceInfo struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
}

// SourceDiagnostics is per-source health exposed for operators.
type SourceDiagnostics struct {
	Name                string     `json:"name"`
	Label               string     `json:"label"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	BlockedUntil        *time.Time `json:"blockedUntil,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	LastTimeout         bool       `json:"lastTimeout,omitempty"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
	TimeoutCount        int64      `json:"timeoutCount,omitempty"`
}
