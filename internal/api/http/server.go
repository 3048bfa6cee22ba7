// Package apihttp exposes the REST and websocket surface of the service.
package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"torrenthub/internal/domain"
	"torrenthub/internal/search"
	"torrenthub/internal/usecase"
)

const maxQueryLength = 500

// SearchService is the aggregation engine surface the server needs.
type SearchService interface {
	Search(ctx context.Context, input search.Input) (domain.SearchOutput, error)
	Sources() []domain.SourceInfo
	Diagnostics() []domain.SourceDiagnostics
}

// Downloads bundles the download lifecycle operations.
type Downloads struct {
	Add    usecase.AddDownload
	Status usecase.GetDownloadStatus
	Pause  usecase.PauseDownload
	Resume usecase.ResumeDownload
	Remove usecase.RemoveDownload
	List   usecase.ListDownloads
}

// Preferences bundles the settings operations.
type Preferences struct {
	Get            usecase.GetPreferences
	Update         usecase.UpdatePreferences
	FavoritePath   usecase.EditFavoritePath
	FavoriteSource usecase.EditFavoriteSource
}

type Server struct {
	search    SearchService
	downloads Downloads
	prefs     Preferences
	hub       *wsHub
	logger    *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(searchService SearchService, downloads Downloads, prefs Preferences, options ...ServerOption) *Server {
	server := &Server{
		search:    searchService,
		downloads: downloads,
		prefs:     prefs,
		logger:    slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	server.hub = newWSHub(server.logger)
	go server.hub.run()
	return server
}

// Notifier returns the websocket hub as a status notifier for the
// refresh loop.
func (s *Server) Notifier() usecase.StatusNotifier { return s.hub }

// Close disconnects all websocket clients.
func (s *Server) Close() { s.hub.Close() }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /search/sources", s.handleSources)
	mux.HandleFunc("GET /search/sources/health", s.handleSourcesHealth)

	mux.HandleFunc("GET /downloads", s.handleListDownloads)
	mux.HandleFunc("POST /downloads", s.handleAddDownload)
	mux.HandleFunc("GET /downloads/{id}", s.handleDownloadStatus)
	mux.HandleFunc("DELETE /downloads/{id}", s.handleRemoveDownload)
	mux.HandleFunc("POST /downloads/{id}/pause", s.handlePauseDownload)
	mux.HandleFunc("POST /downloads/{id}/resume", s.handleResumeDownload)

	mux.HandleFunc("GET /preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /preferences", s.handleUpdatePreferences)
	mux.HandleFunc("PATCH /preferences", s.handleUpdatePreferences)
	mux.HandleFunc("POST /preferences/favorites/paths", s.handleFavoritePath(true))
	mux.HandleFunc("DELETE /preferences/favorites/paths", s.handleFavoritePath(false))
	mux.HandleFunc("POST /preferences/favorites/sources", s.handleFavoriteSource(true))
	mux.HandleFunc("DELETE /preferences/favorites/sources", s.handleFavoriteSource(false))

	mux.HandleFunc("GET /ws", s.hub.serveWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "torrenthub",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health" && p != "/ws"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// --- search ---

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	limit, err := parsePositiveInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	sources := parseCSV(r.URL.Query().Get("sources"))

	output, err := s.search.Search(r.Context(), search.Input{
		Query:   query,
		Limit:   limit,
		Sources: sources,
	})
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("query", truncate(query, 80)),
			slog.Any("sources", sources),
			slog.String("error", err.Error()),
		)
		s.writeDomainError(w, err)
		return
	}

	s.logger.Info("search completed",
		slog.String("query", truncate(query, 80)),
		slog.Int("results", len(output.Results)),
		slog.Int("failedSources", len(output.FailedSources)),
		slog.Int64("elapsedMs", output.ElapsedMS),
	)
	writeJSON(w, http.StatusOK, output)
}

func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.Sources(),
	})
}

func (s *Server) handleSourcesHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.search.Diagnostics(),
	})
}

// --- downloads ---

type downloadPayload struct {
	ID            string     `json:"id"`
	Link          string     `json:"link"`
	Title         string     `json:"title"`
	SavePath      string     `json:"savePath"`
	Source        string     `json:"source"`
	Size          string     `json:"size"`
	SizeBytes     int64      `json:"sizeBytes"`
	Status        string     `json:"status"`
	DateAdded     time.Time  `json:"dateAdded"`
	DateCompleted *time.Time `json:"dateCompleted,omitempty"`
}

func downloadJSON(d domain.Download) downloadPayload {
	return downloadPayload{
		ID:            d.ID.String(),
		Link:          d.Link.String(),
		Title:         d.Title,
		SavePath:      d.SavePath,
		Source:        d.Source,
		Size:          d.Size.String(),
		SizeBytes:     int64(d.Size),
		Status:        string(d.Status),
		DateAdded:     d.DateAdded,
		DateCompleted: d.DateCompleted,
	}
}

func (s *Server) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	downloads, err := s.downloads.List.Execute(r.Context(), usecase.ListDownloadsInput{
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	items := make([]downloadPayload, 0, len(downloads))
	for _, d := range downloads {
		items = append(items, downloadJSON(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleAddDownload(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Link     string `json:"link"`
		Title    string `json:"title"`
		Source   string `json:"source"`
		Size     string `json:"size"`
		SavePath string `json:"savePath"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	download, err := s.downloads.Add.Execute(r.Context(), usecase.AddDownloadInput{
		Link:     payload.Link,
		Title:    payload.Title,
		Source:   payload.Source,
		Size:     payload.Size,
		SavePath: payload.SavePath,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.logger.Info("download added",
		slog.String("id", download.ID.String()),
		slog.String("title", truncate(download.Title, 80)),
		slog.String("source", download.Source),
	)
	writeJSON(w, http.StatusCreated, downloadJSON(download))
}

func (s *Server) handleDownloadStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.downloads.Status.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	payload := struct {
		downloadPayload
		Progress     float64 `json:"progress"`
		DownloadRate string  `json:"downloadRate,omitempty"`
		UploadRate   string  `json:"uploadRate,omitempty"`
		ETA          string  `json:"eta,omitempty"`
	}{
		downloadPayload: downloadJSON(status.Download),
		Progress:        status.Progress,
		DownloadRate:    status.DownloadRate,
		UploadRate:      status.UploadRate,
		ETA:             status.ETA,
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRemoveDownload(w http.ResponseWriter, r *http.Request) {
	deleteFiles := parseOptionalBool(r.URL.Query().Get("deleteFiles"))
	output, err := s.downloads.Remove.Execute(r.Context(), usecase.RemoveDownloadInput{
		ID:          r.PathValue("id"),
		DeleteFiles: deleteFiles,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.logger.Info("download removed",
		slog.String("id", output.Download.ID.String()),
		slog.Bool("deleteFiles", deleteFiles),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"removed":  output.Removed,
		"download": downloadJSON(output.Download),
	})
}

func (s *Server) handlePauseDownload(w http.ResponseWriter, r *http.Request) {
	download, err := s.downloads.Pause.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, downloadJSON(download))
}

func (s *Server) handleResumeDownload(w http.ResponseWriter, r *http.Request) {
	download, err := s.downloads.Resume.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, downloadJSON(download))
}

// --- preferences ---

type preferencesPayload struct {
	DefaultDownloadPath    string    `json:"defaultDownloadPath"`
	FavoritePaths          []string  `json:"favoritePaths"`
	FavoriteSources        []string  `json:"favoriteSources"`
	MaxConcurrentDownloads int       `json:"maxConcurrentDownloads"`
	AutoStartDownloads     bool      `json:"autoStartDownloads"`
	DateModified           time.Time `json:"dateModified"`
}

func preferencesJSON(p domain.UserPreferences) preferencesPayload {
	paths := p.FavoritePaths
	if paths == nil {
		paths = []string{}
	}
	sources := p.FavoriteSources
	if sources == nil {
		sources = []string{}
	}
	return preferencesPayload{
		DefaultDownloadPath:    p.DefaultDownloadPath,
		FavoritePaths:          paths,
		FavoriteSources:        sources,
		MaxConcurrentDownloads: p.MaxConcurrentDownloads,
		AutoStartDownloads:     p.AutoStartDownloads,
		DateModified:           p.DateModified,
	}
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.prefs.Get.Execute(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesJSON(prefs))
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DefaultDownloadPath    *string `json:"defaultDownloadPath"`
		MaxConcurrentDownloads *int    `json:"maxConcurrentDownloads"`
		AutoStartDownloads     *bool   `json:"autoStartDownloads"`
	}
	if err := decodeJSONBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	prefs, err := s.prefs.Update.Execute(r.Context(), usecase.UpdatePreferencesInput{
		DefaultDownloadPath:    payload.DefaultDownloadPath,
		MaxConcurrentDownloads: payload.MaxConcurrentDownloads,
		AutoStartDownloads:     payload.AutoStartDownloads,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preferencesJSON(prefs))
}

func (s *Server) handleFavoritePath(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Path string `json:"path"`
		}
		if err := decodeJSONBody(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if strings.TrimSpace(payload.Path) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "path is required")
			return
		}

		var (
			prefs domain.UserPreferences
			err   error
		)
		if add {
			prefs, err = s.prefs.FavoritePath.Add(r.Context(), payload.Path)
		} else {
			prefs, err = s.prefs.FavoritePath.Remove(r.Context(), payload.Path)
		}
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, preferencesJSON(prefs))
	}
}

func (s *Server) handleFavoriteSource(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Name string `json:"name"`
		}
		if err := decodeJSONBody(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if strings.TrimSpace(payload.Name) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}

		var (
			prefs domain.UserPreferences
			err   error
		)
		if add {
			prefs, err = s.prefs.FavoriteSource.Add(r.Context(), payload.Name)
		} else {
			prefs, err = s.prefs.FavoriteSource.Remove(r.Context(), payload.Name)
		}
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, preferencesJSON(prefs))
	}
}

// --- helpers ---

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrUnknownSource):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrNoSources):
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, domain.ErrAllSourcesFailed):
		writeError(w, http.StatusBadGateway, "upstream_failed", err.Error())
	case errors.Is(err, domain.ErrClient):
		writeError(w, http.StatusBadGateway, "client_error", err.Error())
	case errors.Is(err, domain.ErrFileSystem):
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	default:
		s.logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.ToLower(strings.TrimSpace(part))
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
