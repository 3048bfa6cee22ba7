package usecase

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"torrenthub/internal/domain"
)

func wrapClient(err error) error {
	if err == nil || errors.Is(err, domain.ErrClient) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrClient, err)
}

// parseID validates the external string form of a download id.
func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid download id %q", domain.ErrValidation, raw)
	}
	return id, nil
}

// externalID is the key the torrent client tracks a download under. For
// magnet links this is the info hash; for .torrent URLs, where the hash is
// only known after the client fetched the metadata, we fall back to the
// URI and rely on the client adapter to resolve it.
func externalID(d domain.Download) string {
	if hash := d.Link.InfoHash(); hash != "" {
		return hash
	}
	return d.Link.String()
}
