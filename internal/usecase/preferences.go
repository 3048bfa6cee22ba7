package usecase

import (
	"context"
	"time"

	"torrenthub/internal/domain"
	"torrenthub/internal/domain/ports"
)

// GetPreferences returns the singleton preferences record, creating the
// defaults on first access (the store owns that behavior).
type GetPreferences struct {
	Store ports.PreferencesStore
}

func (uc GetPreferences) Execute(ctx context.Context) (domain.UserPreferences, error) {
	return uc.Store.Get(ctx)
}

// UpdatePreferences applies a partial update; nil fields are left alone.
// The record is saved only when something actually changed.
type UpdatePreferences struct {
	Store ports.PreferencesStore
	Now   func() time.Time
}

type UpdatePreferencesInput struct {
	DefaultDownloadPath    *string
	MaxConcurrentDownloads *int
	AutoStartDownloads     *bool
}

func (uc UpdatePreferences) Execute(ctx context.Context, input UpdatePreferencesInput) (domain.UserPreferences, error) {
	return mutatePreferences(ctx, uc.Store, uc.Now, func(p *domain.UserPreferences, now time.Time) (bool, error) {
		changed := false
		if input.DefaultDownloadPath != nil {
			changed = p.SetDefaultDownloadPath(*input.DefaultDownloadPath, now) || changed
		}
		if input.MaxConcurrentDownloads != nil {
			limitChanged, err := p.SetMaxConcurrentDownloads(*input.MaxConcurrentDownloads, now)
			if err != nil {
				return false, err
			}
			changed = limitChanged || changed
		}
		if input.AutoStartDownloads != nil {
			changed = p.SetAutoStartDownloads(*input.AutoStartDownloads, now) || changed
		}
		return changed, nil
	})
}

// EditFavoritePath adds or removes one favorite download path.
type EditFavoritePath struct {
	Store ports.PreferencesStore
	Now   func() time.Time
}

func (uc EditFavoritePath) Add(ctx context.Context, path string) (domain.UserPreferences, error) {
	return mutatePreferences(ctx, uc.Store, uc.Now, func(p *domain.UserPreferences, now time.Time) (bool, error) {
		return p.AddFavoritePath(path, now), nil
	})
}

func (uc EditFavoritePath) Remove(ctx context.Context, path string) (domain.UserPreferences, error) {
	return mutatePreferences(ctx, uc.Store, uc.Now, func(p *domain.UserPreferences, now time.Time) (bool, error) {
		return p.RemoveFavoritePath(path, now), nil
	})
}

// EditFavoriteSource adds or removes one favorite search source. Names are
// matched case-insensitively by the domain record.
type EditFavoriteSource struct {
	Store ports.PreferencesStore
	Now   func() time.Time
}

func (uc EditFavoriteSource) Add(ctx context.Context, name string) (domain.UserPreferences, error) {
	return mutatePreferences(ctx, uc.Store, uc.Now, func(p *domain.UserPreferences, now time.Time) (bool, error) {
		return p.AddFavoriteSource(name, now), nil
	})
}

func (uc EditFavoriteSource) Remove(ctx context.Context, name string) (domain.UserPreferences, error) {
	return mutatePreferences(ctx, uc.Store, uc.Now, func(p *domain.UserPreferences, now time.Time) (bool, error) {
		return p.RemoveFavoriteSource(name, now), nil
	})
}

func mutatePreferences(
	ctx context.Context,
	store ports.PreferencesStore,
	nowFn func() time.Time,
	mutate func(p *domain.UserPreferences, now time.Time) (bool, error),
) (domain.UserPreferences, error) {
	now := time.Now
	if nowFn != nil {
		now = nowFn
	}

	prefs, err := store.Get(ctx)
	if err != nil {
		return domain.UserPreferences{}, err
	}

	changed, err := mutate(&prefs, now())
	if err != nil {
		return domain.UserPreferences{}, err
	}
	if !changed {
		return prefs, nil
	}

	if err := store.Save(ctx, prefs); err != nil {
		return domain.UserPreferences{}, err
	}
	return prefs, nil
}
