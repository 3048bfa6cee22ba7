package ports

import (
	"context"

	"github.com/google/uuid"

	"torrenthub/internal/domain"
)

// DownloadStore persists Download records. Save is an atomic upsert keyed
// by id; FindByID and FindByLink return domain.ErrNotFound when absent.
type DownloadStore interface {
	Save(ctx context.Context, d domain.Download) error
	FindByID(ctx context.Context, id uuid.UUID) (domain.Download, error)
	FindByLink(ctx context.Context, link domain.TorrentLink) (domain.Download, error)
	FindAll(ctx context.Context, status *domain.DownloadState) ([]domain.Download, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByLink(ctx context.Context, link domain.TorrentLink) (bool, error)
}

// PreferencesStore persists the singleton UserPreferences record. Get
// creates and persists defaults when no record exists yet.
type PreferencesStore interface {
	Get(ctx context.Context) (domain.UserPreferences, error)
	Save(ctx context.Context, prefs domain.UserPreferences) error
}
