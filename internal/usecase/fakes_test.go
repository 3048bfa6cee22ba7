package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"torrenthub/internal/domain"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const testHash = "cccccccccccccccccccccccccccccccccccccccc"

func testMagnet(hash string) string {
	return "magnet:?xt=urn:btih:" + hash + "&dn=test"
}

func testLink(t *testing.T, hash string) domain.TorrentLink {
	t.Helper()
	link, err := domain.ParseLink(testMagnet(hash))
	if err != nil {
		t.Fatalf("ParseLink failed: %v", err)
	}
	return link
}

// fakeStore is an in-memory DownloadStore preserving insertion order so
// batch tests see a deterministic walk.
type fakeStore struct {
	downloads []domain.Download
	saveErr   error
	findErr   error
	saves     int
}

func (s *fakeStore) Save(_ context.Context, d domain.Download) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	for i := range s.downloads {
		if s.downloads[i].ID == d.ID {
			s.downloads[i] = d
			return nil
		}
	}
	s.downloads = append(s.downloads, d)
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id uuid.UUID) (domain.Download, error) {
	if s.findErr != nil {
		return domain.Download{}, s.findErr
	}
	for _, d := range s.downloads {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Download{}, fmt.Errorf("%w: download %s", domain.ErrNotFound, id)
}

func (s *fakeStore) FindByLink(_ context.Context, link domain.TorrentLink) (domain.Download, error) {
	for _, d := range s.downloads {
		if d.Link.Equal(link) {
			return d, nil
		}
	}
	return domain.Download{}, fmt.Errorf("%w: download for link %s", domain.ErrNotFound, link)
}

func (s *fakeStore) FindAll(_ context.Context, status *domain.DownloadState) ([]domain.Download, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []domain.Download
	for _, d := range s.downloads {
		if status == nil || d.Status == *status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	for i, d := range s.downloads {
		if d.ID == id {
			s.downloads = append(s.downloads[:i], s.downloads[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) ExistsByLink(ctx context.Context, link domain.TorrentLink) (bool, error) {
	_, err := s.FindByLink(ctx, link)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (s *fakeStore) get(t *testing.T, id uuid.UUID) domain.Download {
	t.Helper()
	d, err := s.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("download %s not in store: %v", id, err)
	}
	return d
}

type addCall struct {
	link     domain.TorrentLink
	saveDir  string
	startPaused bool
}

type removeCall struct {
	externalID  string
	deleteFiles bool
}

// fakeClient scripts torrent client responses per external id.
type fakeClient struct {
	statuses map[string]*domain.ClientStatus
	statusErr map[string]error

	addErr    error
	pauseErr  error
	resumeErr error
	removeErr error
	knows     bool // what Remove reports

	addCalls []addCall
	paused   []string
	resumed  []string
	removed  []removeCall
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		statuses:  map[string]*domain.ClientStatus{},
		statusErr: map[string]error{},
		knows:     true,
	}
}

func (c *fakeClient) Add(_ context.Context, link domain.TorrentLink, saveDir string, startPaused bool) (string, error) {
	c.addCalls = append(c.addCalls, addCall{link: link, saveDir: saveDir, startPaused: startPaused})
	if c.addErr != nil {
		return "", c.addErr
	}
	return link.InfoHash(), nil
}

func (c *fakeClient) GetStatus(_ context.Context, externalID string) (*domain.ClientStatus, error) {
	if err := c.statusErr[externalID]; err != nil {
		return nil, err
	}
	return c.statuses[externalID], nil
}

func (c *fakeClient) Pause(_ context.Context, externalID string) error {
	if c.pauseErr != nil {
		return c.pauseErr
	}
	c.paused = append(c.paused, externalID)
	return nil
}

func (c *fakeClient) Resume(_ context.Context, externalID string) error {
	if c.resumeErr != nil {
		return c.resumeErr
	}
	c.resumed = append(c.resumed, externalID)
	return nil
}

func (c *fakeClient) Remove(_ context.Context, externalID string, deleteFiles bool) (bool, error) {
	if c.removeErr != nil {
		return false, c.removeErr
	}
	c.removed = append(c.removed, removeCall{externalID: externalID, deleteFiles: deleteFiles})
	return c.knows, nil
}

// fakePrefsStore holds a single preferences record.
type fakePrefsStore struct {
	prefs   domain.UserPreferences
	saveErr error
	saves   int
}

func newFakePrefsStore() *fakePrefsStore {
	return &fakePrefsStore{prefs: domain.DefaultPreferences("/downloads", time.Now())}
}

func (s *fakePrefsStore) Get(context.Context) (domain.UserPreferences, error) {
	return s.prefs, nil
}

func (s *fakePrefsStore) Save(_ context.Context, prefs domain.UserPreferences) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.prefs = prefs
	return nil
}

type fakeFS struct {
	deleted []string
	err     error
}

func (f *fakeFS) DeletePath(path string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, path)
	return nil
}

type fakeNotifier struct {
	events []domain.Download
}

func (n *fakeNotifier) NotifyDownloadChanged(d domain.Download) {
	n.events = append(n.events, d)
}

// storedDownload creates a download with the given hash directly in the
// store, bypassing the torrent client.
func storedDownload(t *testing.T, store *fakeStore, hash string) domain.Download {
	t.Helper()
	d, err := domain.NewDownload(testLink(t, hash), "Test "+hash[:6], "/downloads", "piratebay", 0, time.Now())
	if err != nil {
		t.Fatalf("NewDownload failed: %v", err)
	}
	if err := store.Save(context.Background(), d); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	store.saves-- // seeding does not count
	return d
}
