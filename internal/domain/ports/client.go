package ports

import (
	"context"

	"torrenthub/internal/domain"
)

// TorrentClient is the external download client. The external id returned
// by Add is what GetStatus/Pause/Resume/Remove key on (for BitTorrent
// clients this is the info hash). Communication failures are wrapped in
// domain.ErrClient; GetStatus returns (nil, nil) when the client does not
// know the torrent, which is distinct from an error. Remove reports whether
// the client actually knew and removed the torrent so callers can decide
// whether on-disk files still need manual cleanup.
type TorrentClient interface {
	Add(ctx context.Context, link domain.TorrentLink, saveDir string, startPaused bool) (string, error)
	GetStatus(ctx context.Context, externalID string) (*domain.ClientStatus, error)
	Pause(ctx context.Context, externalID string) error
	Resume(ctx context.Context, externalID string) error
	Remove(ctx context.Context, externalID string, deleteFiles bool) (bool, error)
}
