package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"torrenthub/internal/domain"
	"torrenthub/internal/domain/ports"
)

// StatusNotifier receives downloads whose lifecycle state just changed.
// The websocket hub implements it; a nil notifier disables broadcasting.
type StatusNotifier interface {
	NotifyDownloadChanged(d domain.Download)
}

// GetDownloadStatus returns one download together with live progress from
// the torrent client, reconciling the persisted state on the way.
type GetDownloadStatus struct {
	Store  ports.DownloadStore
	Client ports.TorrentClient
	Now    func() time.Time
}

type DownloadStatusOutput struct {
	Download domain.Download
	Progress float64
	// Formatted rates and ETA; empty when the client does not know the
	// torrent or the value is out of the readable range.
	DownloadRate string
	UploadRate   string
	ETA          string
}

func (uc GetDownloadStatus) Execute(ctx context.Context, rawID string) (DownloadStatusOutput, error) {
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	id, err := parseID(rawID)
	if err != nil {
		return DownloadStatusOutput{}, err
	}

	download, err := uc.Store.FindByID(ctx, id)
	if err != nil {
		return DownloadStatusOutput{}, err
	}

	status, err := uc.Client.GetStatus(ctx, externalID(download))
	if err != nil {
		return DownloadStatusOutput{}, fmt.Errorf("get status from torrent client: %w", wrapClient(err))
	}
	if status == nil {
		// The client forgot the torrent. Report the persisted record with
		// zero progress and unknown rates; nothing to persist.
		return DownloadStatusOutput{Download: download}, nil
	}

	if download.Reconcile(*status, now()) {
		if err := uc.Store.Save(ctx, download); err != nil {
			return DownloadStatusOutput{}, err
		}
	}

	out := DownloadStatusOutput{
		Download: download,
		Progress: status.Progress,
	}
	if rate, ok := domain.FormatRate(status.DownloadRate); ok {
		out.DownloadRate = rate
	}
	if rate, ok := domain.FormatRate(status.UploadRate); ok {
		out.UploadRate = rate
	}
	if status.ETASeconds != nil {
		if eta, ok := domain.FormatDuration(*status.ETASeconds); ok {
			out.ETA = eta
		}
	}
	return out, nil
}

// RefreshDownloads walks every active download, reconciles it against the
// torrent client and persists the changes. A failure on one item is
// recorded and never aborts the batch.
type RefreshDownloads struct {
	Store    ports.DownloadStore
	Client   ports.TorrentClient
	Notifier StatusNotifier
	Logger   *slog.Logger
	Now      func() time.Time
}

type RefreshOutput struct {
	UpdatedCount int
	ErrorCount   int
	Errors       []string
}

func (uc RefreshDownloads) Execute(ctx context.Context) (RefreshOutput, error) {
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	active, err := uc.activeDownloads(ctx)
	if err != nil {
		return RefreshOutput{}, err
	}

	var out RefreshOutput
	for _, download := range active {
		changed, err := uc.refreshOne(ctx, &download, now())
		if err != nil {
			out.ErrorCount++
			out.Errors = append(out.Errors, fmt.Sprintf("refresh download %s: %v", download.ID, err))
			if uc.Logger != nil {
				uc.Logger.Warn("download refresh failed",
					slog.String("id", download.ID.String()),
					slog.String("error", err.Error()))
			}
			continue
		}
		if changed {
			out.UpdatedCount++
			if uc.Notifier != nil {
				uc.Notifier.NotifyDownloadChanged(download)
			}
		}
	}
	return out, nil
}

func (uc RefreshDownloads) activeDownloads(ctx context.Context) ([]domain.Download, error) {
	downloading := domain.StateDownloading
	paused := domain.StatePaused

	active, err := uc.Store.FindAll(ctx, &downloading)
	if err != nil {
		return nil, err
	}
	alsoPaused, err := uc.Store.FindAll(ctx, &paused)
	if err != nil {
		return nil, err
	}
	return append(active, alsoPaused...), nil
}

func (uc RefreshDownloads) refreshOne(ctx context.Context, d *domain.Download, now time.Time) (bool, error) {
	status, err := uc.Client.GetStatus(ctx, externalID(*d))
	if err != nil {
		return false, wrapClient(err)
	}
	if status == nil {
		return false, nil
	}
	if !d.Reconcile(*status, now) {
		return false, nil
	}
	if err := uc.Store.Save(ctx, *d); err != nil {
		return false, err
	}
	return true, nil
}
