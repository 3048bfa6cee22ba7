package ports

import (
	"context"

	"torrenthub/internal/domain"
)

// Source is one external torrent search backend. Search returns a
// *domain.SourceError (timeout or generic) for the two failure kinds the
// aggregation engine is allowed to absorb; any other error aborts the
// whole search.
type Source interface {
	Name() string
	Info() domain.SourceInfo
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}
