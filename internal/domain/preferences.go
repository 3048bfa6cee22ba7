package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PreferencesID is the fixed identity of the single preferences record.
var PreferencesID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

const (
	minConcurrentDownloads = 1
	maxConcurrentDownloads = 10
)

// UserPreferences is a singleton configuration record. Mutating methods
// report whether they changed anything and touch DateModified only when
// they did.
type UserPreferences struct {
	ID                     uuid.UUID
	DefaultDownloadPath    string
	FavoritePaths          []string
	FavoriteSources        []string
	MaxConcurrentDownloads int
	AutoStartDownloads     bool
	DateCreated            time.Time
	DateModified           time.Time
}

// DefaultPreferences builds the record created on first access.
func DefaultPreferences(downloadPath string, now time.Time) UserPreferences {
	now = now.UTC()
	return UserPreferences{
		ID:                     PreferencesID,
		DefaultDownloadPath:    downloadPath,
		MaxConcurrentDownloads: 3,
		AutoStartDownloads:     true,
		DateCreated:            now,
		DateModified:           now,
	}
}

// Validate enforces construction-time invariants.
func (p UserPreferences) Validate() error {
	if p.MaxConcurrentDownloads < minConcurrentDownloads || p.MaxConcurrentDownloads > maxConcurrentDownloads {
		return fmt.Errorf("%w: maxConcurrentDownloads must be between %d and %d",
			ErrValidation, minConcurrentDownloads, maxConcurrentDownloads)
	}
	return nil
}

// AddFavoritePath appends a path unless already present.
func (p *UserPreferences) AddFavoritePath(path string, now time.Time) bool {
	for _, existing := range p.FavoritePaths {
		if existing == path {
			return false
		}
	}
	p.FavoritePaths = append(p.FavoritePaths, path)
	p.touch(now)
	return true
}

// RemoveFavoritePath removes a path; absent paths are a no-op.
func (p *UserPreferences) RemoveFavoritePath(path string, now time.Time) bool {
	for i, existing := range p.FavoritePaths {
		if existing == path {
			p.FavoritePaths = append(p.FavoritePaths[:i], p.FavoritePaths[i+1:]...)
			p.touch(now)
			return true
		}
	}
	return false
}

// AddFavoriteSource appends a source name. Names compare case-insensitively
// but the stored spelling is the caller's.
func (p *UserPreferences) AddFavoriteSource(name string, now time.Time) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, existing := range p.FavoriteSources {
		if strings.EqualFold(existing, name) {
			return false
		}
	}
	p.FavoriteSources = append(p.FavoriteSources, name)
	p.touch(now)
	return true
}

// RemoveFavoriteSource removes a source name, case-insensitively.
func (p *UserPreferences) RemoveFavoriteSource(name string, now time.Time) bool {
	for i, existing := range p.FavoriteSources {
		if strings.EqualFold(existing, name) {
			p.FavoriteSources = append(p.FavoriteSources[:i], p.FavoriteSources[i+1:]...)
			p.touch(now)
			return true
		}
	}
	return false
}

// SetDefaultDownloadPath changes the default save location.
func (p *UserPreferences) SetDefaultDownloadPath(path string, now time.Time) bool {
	if p.DefaultDownloadPath == path {
		return false
	}
	p.DefaultDownloadPath = path
	p.touch(now)
	return true
}

// SetMaxConcurrentDownloads updates the concurrency cap, enforcing [1,10].
func (p *UserPreferences) SetMaxConcurrentDownloads(limit int, now time.Time) (bool, error) {
	if limit < minConcurrentDownloads || limit > maxConcurrentDownloads {
		return false, fmt.Errorf("%w: maxConcurrentDownloads must be between %d and %d",
			ErrValidation, minConcurrentDownloads, maxConcurrentDownloads)
	}
	if p.MaxConcurrentDownloads == limit {
		return false, nil
	}
	p.MaxConcurrentDownloads = limit
	p.touch(now)
	return true, nil
}

// SetAutoStartDownloads toggles automatic starting of added downloads.
func (p *UserPreferences) SetAutoStartDownloads(enabled bool, now time.Time) bool {
	if p.AutoStartDownloads == enabled {
		return false
	}
	p.AutoStartDownloads = enabled
	p.touch(now)
	return true
}

func (p *UserPreferences) touch(now time.Time) {
	p.DateModified = now.UTC()
}
