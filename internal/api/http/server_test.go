package apihttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"torrenthub/internal/domain"
	"torrenthub/internal/search"
	"torrenthub/internal/usecase"
)

const testHash = "cccccccccccccccccccccccccccccccccccccccc"

func testMagnet() string {
	return "magnet:?xt=urn:btih:" + testHash + "&dn=Ubuntu"
}

// --- fakes ---

type fakeSearchService struct {
	lastInput search.Input
	err       error
	calls     int
}

func (f *fakeSearchService) Search(_ context.Context, input search.Input) (domain.SearchOutput, error) {
	f.calls++
	f.lastInput = input
	if f.err != nil {
		return domain.SearchOutput{}, f.err
	}
	return domain.SearchOutput{
		Query: input.Query,
		Results: []domain.SearchResult{
			{Title: input.Query + "-result", Source: "piratebay", Seeders: 10},
		},
		FailedSources: []domain.FailedSource{},
		ElapsedMS:     3,
	}, nil
}

func (f *fakeSearchService) Sources() []domain.SourceInfo {
	return []domain.SourceInfo{
		{Name: "piratebay", Label: "The Pirate Bay", Kind: "api", Enabled: true},
		{Name: "jackett", Label: "Jackett", Kind: "torznab", Enabled: true},
	}
}

func (f *fakeSearchService) Diagnostics() []domain.SourceDiagnostics {
	return []domain.SourceDiagnostics{
		{Name: "piratebay", Label: "The Pirate Bay", LastLatencyMS: 120},
	}
}

type memStore struct {
	items map[uuid.UUID]domain.Download
	order []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{items: map[uuid.UUID]domain.Download{}}
}

func (s *memStore) Save(_ context.Context, d domain.Download) error {
	if _, ok := s.items[d.ID]; !ok {
		s.order = append(s.order, d.ID)
	}
	s.items[d.ID] = d
	return nil
}

func (s *memStore) FindByID(_ context.Context, id uuid.UUID) (domain.Download, error) {
	d, ok := s.items[id]
	if !ok {
		return domain.Download{}, fmt.Errorf("%w: download %s", domain.ErrNotFound, id)
	}
	return d, nil
}

func (s *memStore) FindByLink(_ context.Context, link domain.TorrentLink) (domain.Download, error) {
	for _, id := range s.order {
		if s.items[id].Link.Equal(link) {
			return s.items[id], nil
		}
	}
	return domain.Download{}, domain.ErrNotFound
}

func (s *memStore) FindAll(_ context.Context, status *domain.DownloadState) ([]domain.Download, error) {
	var out []domain.Download
	for _, id := range s.order {
		d := s.items[id]
		if status == nil || d.Status == *status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

func (s *memStore) ExistsByLink(ctx context.Context, link domain.TorrentLink) (bool, error) {
	_, err := s.FindByLink(ctx, link)
	if err == nil {
		return true, nil
	}
	return false, nil
}

type fakeClient struct {
	statuses map[string]*domain.ClientStatus
	addErr   error
	paused   []string
	resumed  []string
	removed  []string
	knows    bool
}

func (c *fakeClient) Add(_ context.Context, link domain.TorrentLink, _ string, _ bool) (string, error) {
	if c.addErr != nil {
		return "", c.addErr
	}
	return link.InfoHash(), nil
}

func (c *fakeClient) GetStatus(_ context.Context, externalID string) (*domain.ClientStatus, error) {
	return c.statuses[externalID], nil
}

func (c *fakeClient) Pause(_ context.Context, externalID string) error {
	c.paused = append(c.paused, externalID)
	return nil
}

func (c *fakeClient) Resume(_ context.Context, externalID string) error {
	c.resumed = append(c.resumed, externalID)
	return nil
}

func (c *fakeClient) Remove(_ context.Context, externalID string, _ bool) (bool, error) {
	c.removed = append(c.removed, externalID)
	return c.knows, nil
}

type fakePrefsStore struct {
	prefs domain.UserPreferences
	saves int
}

func (s *fakePrefsStore) Get(context.Context) (domain.UserPreferences, error) {
	return s.prefs, nil
}

func (s *fakePrefsStore) Save(_ context.Context, prefs domain.UserPreferences) error {
	s.prefs = prefs
	s.saves++
	return nil
}

type fakeFS struct {
	deleted []string
}

func (f *fakeFS) DeletePath(path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

// --- harness ---

type harness struct {
	search *fakeSearchService
	store  *memStore
	client *fakeClient
	prefs  *fakePrefsStore
	fs     *fakeFS
	server *Server
	http   *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		search: &fakeSearchService{},
		store:  newMemStore(),
		client: &fakeClient{statuses: map[string]*domain.ClientStatus{}, knows: true},
		fs:     &fakeFS{},
	}
	h.prefs = &fakePrefsStore{
		prefs: domain.DefaultPreferences("/downloads", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),
	}

	downloads := Downloads{
		Add:    usecase.AddDownload{Store: h.store, Client: h.client, Prefs: h.prefs},
		Status: usecase.GetDownloadStatus{Store: h.store, Client: h.client},
		Pause:  usecase.PauseDownload{Store: h.store, Client: h.client},
		Resume: usecase.ResumeDownload{Store: h.store, Client: h.client},
		Remove: usecase.RemoveDownload{Store: h.store, Client: h.client, FS: h.fs},
		List:   usecase.ListDownloads{Store: h.store},
	}
	prefs := Preferences{
		Get:            usecase.GetPreferences{Store: h.prefs},
		Update:         usecase.UpdatePreferences{Store: h.prefs},
		FavoritePath:   usecase.EditFavoritePath{Store: h.prefs},
		FavoriteSource: usecase.EditFavoriteSource{Store: h.prefs},
	}

	logger := slog.New(slog.DiscardHandler)
	h.server = NewServer(h.search, downloads, prefs, WithLogger(logger))
	h.http = httptest.NewServer(h.server.Handler())
	t.Cleanup(func() {
		h.http.Close()
		h.server.Close()
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.http.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		payload = nil
	}
	return resp, payload
}

func (h *harness) seedDownload(t *testing.T) domain.Download {
	t.Helper()
	link, err := domain.ParseLink(testMagnet())
	if err != nil {
		t.Fatalf("ParseLink failed: %v", err)
	}
	d, err := domain.NewDownload(link, "Ubuntu ISO", "/downloads/iso", "piratebay", 1<<30, time.Now())
	if err != nil {
		t.Fatalf("NewDownload failed: %v", err)
	}
	if err := h.store.Save(context.Background(), d); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	return d
}

// --- tests ---

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, payload := h.do(t, http.MethodGet, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if payload["status"] != "ok" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestSearchEndpoint(t *testing.T) {
	h := newHarness(t)
	resp, payload := h.do(t, http.MethodGet, "/search?q=ubuntu&limit=5&sources=piratebay,jackett", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if h.search.lastInput.Query != "ubuntu" || h.search.lastInput.Limit != 5 {
		t.Fatalf("input = %+v", h.search.lastInput)
	}
	if len(h.search.lastInput.Sources) != 2 {
		t.Fatalf("sources = %v", h.search.lastInput.Sources)
	}
	results, ok := payload["results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("results = %v", payload["results"])
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.do(t, http.MethodGet, "/search", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if h.search.calls != 0 {
		t.Fatal("engine must not be reached without a query")
	}
}

func TestSearchErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "unknown source", err: fmt.Errorf("%w: bad", domain.ErrUnknownSource), status: http.StatusBadRequest},
		{name: "no sources", err: domain.ErrNoSources, status: http.StatusServiceUnavailable},
		{name: "all failed", err: fmt.Errorf("%w: query \"x\"", domain.ErrAllSourcesFailed), status: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.search.err = tc.err
			resp, _ := h.do(t, http.MethodGet, "/search?q=x", "")
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}
}

func TestSourcesEndpoints(t *testing.T) {
	h := newHarness(t)
	resp, payload := h.do(t, http.MethodGet, "/search/sources", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	items, ok := payload["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("items = %v", payload["items"])
	}

	resp, payload = h.do(t, http.MethodGet, "/search/sources/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if _, ok := payload["checkedAt"]; !ok {
		t.Fatalf("payload = %v", payload)
	}
}

func TestAddDownload(t *testing.T) {
	h := newHarness(t)
	body := fmt.Sprintf(`{"link":%q,"title":"Ubuntu ISO","source":"piratebay","size":"1.5 GB"}`, testMagnet())
	resp, payload := h.do(t, http.MethodPost, "/downloads", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, payload = %v", resp.StatusCode, payload)
	}
	if payload["status"] != string(domain.StateDownloading) {
		t.Fatalf("status field = %v", payload["status"])
	}
	// Empty savePath falls back to the preferred default.
	if payload["savePath"] != "/downloads" {
		t.Fatalf("savePath = %v", payload["savePath"])
	}

	// The same link again is a conflict.
	resp, _ = h.do(t, http.MethodPost, "/downloads", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status = %d", resp.StatusCode)
	}
}

func TestAddDownloadValidation(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.do(t, http.MethodPost, "/downloads", `{"link":"ftp://nope","title":"x","source":"s","size":"1 GB"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestListDownloads(t *testing.T) {
	h := newHarness(t)
	h.seedDownload(t)

	resp, payload := h.do(t, http.MethodGet, "/downloads", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	items, ok := payload["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("items = %v", payload["items"])
	}

	resp, _ = h.do(t, http.MethodGet, "/downloads?status=bogus", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad filter status = %d", resp.StatusCode)
	}
}

func TestDownloadStatus(t *testing.T) {
	h := newHarness(t)
	d := h.seedDownload(t)
	h.client.statuses[testHash] = &domain.ClientStatus{
		Progress:     42.5,
		DownloadRate: 1536 * 1024,
	}

	resp, payload := h.do(t, http.MethodGet, "/downloads/"+d.ID.String(), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if payload["progress"] != 42.5 {
		t.Fatalf("progress = %v", payload["progress"])
	}
	if payload["downloadRate"] != "1.50 MB/s" {
		t.Fatalf("downloadRate = %v", payload["downloadRate"])
	}

	resp, _ = h.do(t, http.MethodGet, "/downloads/"+uuid.NewString(), "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing download status = %d", resp.StatusCode)
	}

	resp, _ = h.do(t, http.MethodGet, "/downloads/not-a-uuid", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", resp.StatusCode)
	}
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t)
	d := h.seedDownload(t)

	resp, payload := h.do(t, http.MethodPost, "/downloads/"+d.ID.String()+"/pause", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pause status = %d, payload = %v", resp.StatusCode, payload)
	}
	if payload["status"] != string(domain.StatePaused) {
		t.Fatalf("status field = %v", payload["status"])
	}
	if len(h.client.paused) != 1 || h.client.paused[0] != testHash {
		t.Fatalf("client.paused = %v", h.client.paused)
	}

	// Pausing again is an invalid transition.
	resp, _ = h.do(t, http.MethodPost, "/downloads/"+d.ID.String()+"/pause", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second pause status = %d", resp.StatusCode)
	}

	resp, payload = h.do(t, http.MethodPost, "/downloads/"+d.ID.String()+"/resume", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resume status = %d", resp.StatusCode)
	}
	if payload["status"] != string(domain.StateDownloading) {
		t.Fatalf("status field = %v", payload["status"])
	}
}

func TestRemoveDownload(t *testing.T) {
	h := newHarness(t)
	d := h.seedDownload(t)
	h.client.knows = false // client already forgot the torrent

	resp, payload := h.do(t, http.MethodDelete, "/downloads/"+d.ID.String()+"?deleteFiles=true", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if payload["removed"] != true {
		t.Fatalf("removed = %v", payload["removed"])
	}
	// The client did not delete the payload, so the server did.
	if len(h.fs.deleted) != 1 || h.fs.deleted[0] != "/downloads/iso" {
		t.Fatalf("fs.deleted = %v", h.fs.deleted)
	}
	if len(h.store.items) != 0 {
		t.Fatal("record must be gone from the store")
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	h := newHarness(t)

	resp, payload := h.do(t, http.MethodGet, "/preferences", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if payload["defaultDownloadPath"] != "/downloads" {
		t.Fatalf("payload = %v", payload)
	}

	resp, payload = h.do(t, http.MethodPatch, "/preferences", `{"maxConcurrentDownloads":5,"autoStartDownloads":false}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, payload = %v", resp.StatusCode, payload)
	}
	if payload["maxConcurrentDownloads"] != float64(5) || payload["autoStartDownloads"] != false {
		t.Fatalf("payload = %v", payload)
	}

	resp, _ = h.do(t, http.MethodPatch, "/preferences", `{"maxConcurrentDownloads":99}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range status = %d", resp.StatusCode)
	}
}

func TestFavoriteEndpoints(t *testing.T) {
	h := newHarness(t)

	resp, payload := h.do(t, http.MethodPost, "/preferences/favorites/sources", `{"name":"piratebay"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	sources, ok := payload["favoriteSources"].([]any)
	if !ok || len(sources) != 1 || sources[0] != "piratebay" {
		t.Fatalf("favoriteSources = %v", payload["favoriteSources"])
	}

	resp, payload = h.do(t, http.MethodDelete, "/preferences/favorites/sources", `{"name":"PIRATEBAY"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if sources, _ := payload["favoriteSources"].([]any); len(sources) != 0 {
		t.Fatalf("favoriteSources = %v", payload["favoriteSources"])
	}

	resp, payload = h.do(t, http.MethodPost, "/preferences/favorites/paths", `{"path":"/downloads/tv"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if paths, _ := payload["favoritePaths"].([]any); len(paths) != 1 {
		t.Fatalf("favoritePaths = %v", payload["favoritePaths"])
	}

	resp, _ = h.do(t, http.MethodPost, "/preferences/favorites/paths", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty path status = %d", resp.StatusCode)
	}
}
