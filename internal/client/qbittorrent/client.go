// Package qbittorrent adapts the qBittorrent Web API to the torrent
// client port.
package qbittorrent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"

	"torrenthub/internal/domain"
	"torrenthub/internal/metrics"
)

// infinityETA is the sentinel qBittorrent reports for stalled torrents.
const infinityETA int64 = 8640000

type Config struct {
	Host     string
	Username string
	Password string
	Timeout  time.Duration
}

type Client struct {
	api    *qbt.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	api := qbt.NewClient(qbt.Config{
		Host:     cfg.Host,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  int(timeout.Seconds()),
	})
	return &Client{api: api, logger: logger}
}

// Login authenticates the session; the underlying client re-logins on
// expiry by itself afterwards.
func (c *Client) Login(ctx context.Context) error {
	if err := c.api.LoginCtx(ctx); err != nil {
		return wrap(err)
	}
	return nil
}

func (c *Client) Add(ctx context.Context, link domain.TorrentLink, saveDir string, startPaused bool) (string, error) {
	defer observe("add")()

	options := map[string]string{}
	if saveDir != "" {
		options["savepath"] = saveDir
	}
	if startPaused {
		// qBittorrent 5 renamed "paused" to "stopped"; send both.
		options["paused"] = "true"
		options["stopped"] = "true"
	}

	if err := c.api.AddTorrentFromUrlCtx(ctx, link.String(), options); err != nil {
		return "", wrap(err)
	}
	return link.InfoHash(), nil
}

func (c *Client) GetStatus(ctx context.Context, externalID string) (*domain.ClientStatus, error) {
	defer observe("get_status")()

	torrent, ok, err := c.findTorrent(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	status := statusFromTorrent(torrent)
	return &status, nil
}

func (c *Client) Pause(ctx context.Context, externalID string) error {
	defer observe("pause")()

	if err := c.api.PauseCtx(ctx, []string{externalID}); err != nil {
		return wrap(err)
	}
	return nil
}

func (c *Client) Resume(ctx context.Context, externalID string) error {
	defer observe("resume")()

	if err := c.api.ResumeCtx(ctx, []string{externalID}); err != nil {
		return wrap(err)
	}
	return nil
}

func (c *Client) Remove(ctx context.Context, externalID string, deleteFiles bool) (bool, error) {
	defer observe("remove")()

	_, ok, err := c.findTorrent(ctx, externalID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := c.api.DeleteTorrentsCtx(ctx, []string{externalID}, deleteFiles); err != nil {
		return false, wrap(err)
	}
	return true, nil
}

func (c *Client) findTorrent(ctx context.Context, hash string) (qbt.Torrent, bool, error) {
	torrents, err := c.api.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Hashes: []string{hash}})
	if err != nil {
		return qbt.Torrent{}, false, wrap(err)
	}
	if len(torrents) == 0 {
		return qbt.Torrent{}, false, nil
	}
	return torrents[0], true, nil
}

// statusFromTorrent maps a qBittorrent torrent row onto the neutral
// snapshot the domain reconciles against.
func statusFromTorrent(t qbt.Torrent) domain.ClientStatus {
	status := domain.ClientStatus{
		Progress:     t.Progress * 100,
		DownloadRate: t.DlSpeed,
		UploadRate:   t.UpSpeed,
		IsComplete:   t.Progress >= 1.0,
		IsPaused:     isPausedState(t.State),
	}

	switch t.State {
	case qbt.TorrentStateUploading, qbt.TorrentStateStalledUp, qbt.TorrentStateQueuedUp,
		qbt.TorrentStateForcedUp, qbt.TorrentStatePausedUp, qbt.TorrentStateStoppedUp,
		qbt.TorrentStateCheckingUp:
		// Seeding-side states imply the payload is complete even when the
		// reported progress has not caught up yet.
		status.IsComplete = true
	}

	if t.ETA > 0 && t.ETA != infinityETA {
		eta := t.ETA
		status.ETASeconds = &eta
	}
	return status
}

func isPausedState(state qbt.TorrentState) bool {
	switch state {
	case qbt.TorrentStatePausedDl, qbt.TorrentStateStoppedDl:
		return true
	default:
		return false
	}
}

func wrap(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrClient, err)
}

func observe(operation string) func() {
	startedAt := time.Now()
	return func() {
		metrics.TorrentClientRequestDuration.WithLabelValues(operation).Observe(time.Since(startedAt).Seconds())
	}
}
