package usecase

import (
	"context"
	"fmt"
	"time"

	"torrenthub/internal/domain"
	"torrenthub/internal/domain/ports"
)

// AddDownload registers a torrent, persists it and hands it to the torrent
// client. The record is saved before the client call so that a client
// failure still leaves a FAILED record behind for inspection.
type AddDownload struct {
	Store  ports.DownloadStore
	Client ports.TorrentClient
	Prefs  ports.PreferencesStore
	Now    func() time.Time
}

type AddDownloadInput struct {
	Link     string
	Title    string
	Source   string
	Size     string // human-readable, e.g. "1.5 GB"
	SavePath string // empty means the preferred default path
}

func (uc AddDownload) Execute(ctx context.Context, input AddDownloadInput) (domain.Download, error) {
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	link, err := domain.ParseLink(input.Link)
	if err != nil {
		return domain.Download{}, err
	}
	size, err := domain.ParseSize(input.Size)
	if err != nil {
		return domain.Download{}, err
	}

	prefs, err := uc.Prefs.Get(ctx)
	if err != nil {
		return domain.Download{}, err
	}
	savePath := input.SavePath
	if savePath == "" {
		savePath = prefs.DefaultDownloadPath
	}

	exists, err := uc.Store.ExistsByLink(ctx, link)
	if err != nil {
		return domain.Download{}, err
	}
	if exists {
		return domain.Download{}, fmt.Errorf("%w: download with link %s", domain.ErrDuplicate, link)
	}

	download, err := domain.NewDownload(link, input.Title, savePath, input.Source, size, now())
	if err != nil {
		return domain.Download{}, err
	}

	if err := uc.Store.Save(ctx, download); err != nil {
		return domain.Download{}, err
	}

	if _, err := uc.Client.Add(ctx, link, savePath, !prefs.AutoStartDownloads); err != nil {
		download.MarkFailed()
		// Keep the failed record even when the second save fails too; the
		// client error is the one the caller needs.
		_ = uc.Store.Save(ctx, download)
		return domain.Download{}, fmt.Errorf("start download in torrent client: %w", wrapClient(err))
	}

	return download, nil
}
