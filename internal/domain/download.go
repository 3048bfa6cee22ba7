package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Download is the persisted record of one tracked transfer. Status and
// DateCompleted are the only fields mutated after creation.
type Download struct {
	ID            uuid.UUID
	Link          TorrentLink
	Title         string
	SavePath      string
	Source        string
	Size          ByteSize
	Status        DownloadState
	DateAdded     time.Time
	DateCompleted *time.Time
}

// NewDownload creates a download in the DOWNLOADING state.
func NewDownload(link TorrentLink, title, savePath, source string, size ByteSize, now time.Time) (Download, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Download{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(savePath) == "" {
		return Download{}, fmt.Errorf("%w: save path is required", ErrValidation)
	}
	if strings.TrimSpace(source) == "" {
		return Download{}, fmt.Errorf("%w: source name is required", ErrValidation)
	}
	if link.IsZero() {
		return Download{}, fmt.Errorf("%w: link is required", ErrValidation)
	}

	return Download{
		ID:        uuid.New(),
		Link:      link,
		Title:     title,
		SavePath:  savePath,
		Source:    source,
		Size:      size,
		Status:    StateDownloading,
		DateAdded: now.UTC(),
	}, nil
}

// Pause is the user-intent transition; it is only legal while downloading.
func (d *Download) Pause() error {
	if d.Status != StateDownloading {
		return fmt.Errorf("%w: cannot pause a %s download", ErrInvalidTransition, d.Status)
	}
	d.Status = StatePaused
	return nil
}

// Resume is the user-intent counterpart of Pause.
func (d *Download) Resume() error {
	if d.Status != StatePaused {
		return fmt.Errorf("%w: cannot resume a %s download", ErrInvalidTransition, d.Status)
	}
	d.Status = StateDownloading
	return nil
}

// MarkFailed records that the initiating client operation failed. It is a
// forced transition and always succeeds.
func (d *Download) MarkFailed() {
	d.Status = StateFailed
}

// Reconcile applies a client snapshot. Unlike Pause/Resume it may move
// between downloading, paused and completed freely because the snapshot is
// ground truth. It reports whether anything changed. DateCompleted is set
// on the first entry into COMPLETED and never overwritten.
func (d *Download) Reconcile(status ClientStatus, now time.Time) bool {
	next := StateForClientStatus(status)
	if d.Status == next {
		return false
	}

	d.Status = next
	if next == StateCompleted && d.DateCompleted == nil {
		completed := now.UTC()
		d.DateCompleted = &completed
	}
	return true
}

// Validate checks record invariants before persisting.
func (d Download) Validate() error {
	if d.ID == uuid.Nil {
		return errors.New("download id is required")
	}
	if d.Link.IsZero() {
		return errors.New("link is required")
	}
	if d.Title == "" {
		return errors.New("title is required")
	}
	if _, ok := ParseDownloadState(string(d.Status)); !ok {
		return errors.New("invalid status: " + string(d.Status))
	}
	return nil
}
