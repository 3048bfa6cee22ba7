package usecase

import (
	"context"
	"fmt"

	"torrenthub/internal/domain"
	"torrenthub/internal/domain/ports"
)

// PauseDownload pauses an actively downloading torrent. The transition is
// validated before the client call, and persisted only after the client
// accepted it.
type PauseDownload struct {
	Store  ports.DownloadStore
	Client ports.TorrentClient
}

func (uc PauseDownload) Execute(ctx context.Context, rawID string) (domain.Download, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Download{}, err
	}

	download, err := uc.Store.FindByID(ctx, id)
	if err != nil {
		return domain.Download{}, err
	}

	if err := download.Pause(); err != nil {
		return domain.Download{}, err
	}
	if err := uc.Client.Pause(ctx, externalID(download)); err != nil {
		return domain.Download{}, fmt.Errorf("pause download in torrent client: %w", wrapClient(err))
	}
	if err := uc.Store.Save(ctx, download); err != nil {
		return domain.Download{}, err
	}
	return download, nil
}

// ResumeDownload is the mirror of PauseDownload.
type ResumeDownload struct {
	Store  ports.DownloadStore
	Client ports.TorrentClient
}

func (uc ResumeDownload) Execute(ctx context.Context, rawID string) (domain.Download, error) {
	id, err := parseID(rawID)
	if err != nil {
		return domain.Download{}, err
	}

	download, err := uc.Store.FindByID(ctx, id)
	if err != nil {
		return domain.Download{}, err
	}

	if err := download.Resume(); err != nil {
		return domain.Download{}, err
	}
	if err := uc.Client.Resume(ctx, externalID(download)); err != nil {
		return domain.Download{}, fmt.Errorf("resume download in torrent client: %w", wrapClient(err))
	}
	if err := uc.Store.Save(ctx, download); err != nil {
		return domain.Download{}, err
	}
	return download, nil
}

// RemoveDownload removes a download from the client and the store, and
// optionally deletes the data on disk. When the client never knew the
// torrent (or already forgot it) the files are removed through the file
// system port instead.
type RemoveDownload struct {
	Store  ports.DownloadStore
	Client ports.TorrentClient
	FS     ports.FileSystem
}

type RemoveDownloadInput struct {
	ID          string
	DeleteFiles bool
}

type RemoveDownloadOutput struct {
	Download domain.Download
	Removed  bool
}

func (uc RemoveDownload) Execute(ctx context.Context, input RemoveDownloadInput) (RemoveDownloadOutput, error) {
	id, err := parseID(input.ID)
	if err != nil {
		return RemoveDownloadOutput{}, err
	}

	download, err := uc.Store.FindByID(ctx, id)
	if err != nil {
		return RemoveDownloadOutput{}, err
	}

	clientRemoved, err := uc.Client.Remove(ctx, externalID(download), input.DeleteFiles)
	if err != nil {
		return RemoveDownloadOutput{}, fmt.Errorf("remove download from torrent client: %w", wrapClient(err))
	}

	if input.DeleteFiles && !clientRemoved {
		if err := uc.FS.DeletePath(download.SavePath); err != nil {
			return RemoveDownloadOutput{}, err
		}
	}

	removed, err := uc.Store.Delete(ctx, id)
	if err != nil {
		return RemoveDownloadOutput{}, err
	}
	return RemoveDownloadOutput{Download: download, Removed: removed}, nil
}

// ListDownloads returns downloads, optionally filtered by lifecycle state.
type ListDownloads struct {
	Store ports.DownloadStore
}

type ListDownloadsInput struct {
	Status string // empty means all
}

func (uc ListDownloads) Execute(ctx context.Context, input ListDownloadsInput) ([]domain.Download, error) {
	var filter *domain.DownloadState
	if input.Status != "" {
		state, ok := domain.ParseDownloadState(input.Status)
		if !ok {
			return nil, fmt.Errorf("%w: unknown download status %q", domain.ErrValidation, input.Status)
		}
		filter = &state
	}
	return uc.Store.FindAll(ctx, filter)
}
