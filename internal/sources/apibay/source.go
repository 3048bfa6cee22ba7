// Package apibay searches The Pirate Bay through the apibay.org JSON API.
package apibay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"torrenthub/internal/domain"
	"torrenthub/internal/sources/common"
)

const (
	sourceName = "piratebay"

	defaultEndpoint  = "https://apibay.org/q.php"
	defaultUserAgent = "torrenthub/1.0"
)

var defaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
}

type Config struct {
	Endpoint  string
	UserAgent string
	Trackers  []string
	Client    *http.Client
}

type Source struct {
	client    *http.Client
	endpoint  string
	userAgent string
	trackers  []string
}

type apiItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Size     string `json:"size"`
	Seeders  string `json:"seeders"`
	Leechers string `json:"leechers"`
}

func New(cfg Config) *Source {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	trackers := cfg.Trackers
	if len(trackers) == 0 {
		trackers = append([]string(nil), defaultTrackers...)
	}
	return &Source{
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
		trackers:  trackers,
	}
}

func (s *Source) Name() string { return sourceName }

func (s *Source) Info() domain.SourceInfo {
	return domain.SourceInfo{
		Name:    sourceName,
		Label:   "The Pirate Bay",
		Kind:    "index",
		Enabled: true,
	}
}

func (s *Source) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	uri, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, common.WrapError(sourceName, fmt.Errorf("invalid endpoint: %w", err))
	}
	values := uri.Query()
	values.Set("q", strings.TrimSpace(query))
	uri.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, common.WrapError(sourceName, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, common.WrapError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, common.WrapError(sourceName,
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, common.WrapError(sourceName, err)
	}

	items, err := parseAPIItems(payload)
	if err != nil {
		return nil, common.WrapError(sourceName, err)
	}

	if limit <= 0 {
		limit = 10
	}
	now := time.Now().UTC()
	results := make([]domain.SearchResult, 0, limit)
	for _, item := range items {
		result, ok := toResult(item, s.trackers, now)
		if !ok {
			continue
		}
		results = append(results, result)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func parseAPIItems(payload []byte) ([]apiItem, error) {
	var items []apiItem
	if err := json.Unmarshal(payload, &items); err == nil {
		return items, nil
	}
	// The API answers a bare object for some error conditions.
	var single map[string]string
	if err := json.Unmarshal(payload, &single); err == nil {
		return []apiItem{}, nil
	}
	return nil, fmt.Errorf("unexpected payload")
}

func toResult(item apiItem, trackers []string, now time.Time) (domain.SearchResult, bool) {
	name := strings.TrimSpace(item.Name)
	infoHash := common.NormalizeInfoHash(item.InfoHash)
	if infoHash == "" || name == "" {
		return domain.SearchResult{}, false
	}
	// apibay signals an empty result set with a sentinel row.
	if strings.Contains(strings.ToLower(name), "no results returned") {
		return domain.SearchResult{}, false
	}

	magnet := common.BuildMagnet(infoHash, name, trackers)
	link, err := domain.ParseLink(magnet)
	if err != nil {
		return domain.SearchResult{}, false
	}

	return domain.SearchResult{
		Link:      link,
		Magnet:    magnet,
		Title:     name,
		SizeBytes: atoi64(item.Size),
		Seeders:   atoi(item.Seeders),
		Leechers:  atoi(item.Leechers),
		Source:    sourceName,
		DateFound: now,
	}, true
}

func atoi(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}

func atoi64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return value
}
