// Package torznab searches any Torznab-compatible indexer proxy
// (Jackett, Prowlarr, NZBHydra) through the shared RSS search API.
package torznab

import (
	"context"
	"encoding/xml"
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

const defaultUserAgent = "torrenthub/1.0"

var defaultTrackers = []string{
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
}

type Config struct {
	Name      string // registry name, e.g. "jackett"
	Label     string
	Endpoint  string // full torznab api endpoint
	APIKey    string
	UserAgent string
	Trackers  []string
	Client    *http.Client
}

type Source struct {
	name      string
	label     string
	endpoint  string
	apiKey    string
	userAgent string
	trackers  []string
	client    *http.Client
}

func New(cfg Config) *Source {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		name = "torznab"
	}
	label := strings.TrimSpace(cfg.Label)
	if label == "" {
		label = "Torznab"
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
		name:      name,
		label:     label,
		endpoint:  strings.TrimSpace(cfg.Endpoint),
		apiKey:    strings.TrimSpace(cfg.APIKey),
		userAgent: userAgent,
		trackers:  trackers,
		client:    client,
	}
}

func (s *Source) Name() string { return s.name }

func (s *Source) Info() domain.SourceInfo {
	return domain.SourceInfo{
		Name:    s.name,
		Label:   s.label,
		Kind:    "torznab",
		Enabled: s.endpoint != "",
	}
}

func (s *Source) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if s.endpoint == "" {
		return nil, common.WrapError(s.name, fmt.Errorf("source is not configured"))
	}

	uri, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, common.WrapError(s.name, fmt.Errorf("invalid endpoint: %w", err))
	}
	values := uri.Query()
	values.Set("t", "search")
	values.Set("q", strings.TrimSpace(query))
	// Jackett only includes infohash/seeders attrs with extended output.
	if values.Get("extended") == "" {
		values.Set("extended", "1")
	}
	if s.apiKey != "" && values.Get("apikey") == "" {
		values.Set("apikey", s.apiKey)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	uri.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, common.WrapError(s.name, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/xml,text/xml,application/rss+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, common.WrapError(s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, common.WrapError(s.name,
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return nil, common.WrapError(s.name, err)
	}

	items, err := parseFeed(payload)
	if err != nil {
		return nil, common.WrapError(s.name, err)
	}

	if limit <= 0 {
		limit = 10
	}
	now := time.Now().UTC()
	results := make([]domain.SearchResult, 0, limit)
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		result, ok := s.itemToResult(item, now)
		if !ok {
			continue
		}
		key := result.Link.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, result)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (s *Source) itemToResult(item feedItem, now time.Time) (domain.SearchResult, bool) {
	title := common.CleanHTMLText(item.Title)
	if title == "" {
		return domain.SearchResult{}, false
	}

	attrs := make(map[string]string, len(item.Attrs))
	for _, attr := range item.Attrs {
		key := strings.ToLower(strings.TrimSpace(attr.Name))
		if key == "" {
			continue
		}
		if _, exists := attrs[key]; !exists {
			attrs[key] = strings.TrimSpace(attr.Value)
		}
	}

	magnet := firstMagnet(attrs["magneturl"], item.Guid, item.Link, item.Enclosure.URL)
	infoHash := common.NormalizeInfoHash(attrs["infohash"])
	if infoHash == "" && magnet != "" {
		infoHash = common.ExtractInfoHashFromMagnet(magnet)
	}
	if magnet == "" && infoHash != "" {
		magnet = common.BuildMagnet(infoHash, title, s.trackers)
	}
	if magnet == "" {
		return domain.SearchResult{}, false
	}
	link, err := domain.ParseLink(magnet)
	if err != nil {
		return domain.SearchResult{}, false
	}

	sizeBytes := parseI64(attrs["size"])
	if sizeBytes <= 0 && item.Enclosure.Length > 0 {
		sizeBytes = item.Enclosure.Length
	}

	seeders := parseInt(attrs["seeders"])
	leechers := parseInt(attrs["leechers"])
	if leechers == 0 {
		if peers := parseInt(attrs["peers"]); peers > seeders {
			leechers = peers - seeders
		}
	}

	return domain.SearchResult{
		Link:      link,
		Magnet:    magnet,
		Title:     title,
		SizeBytes: sizeBytes,
		Seeders:   seeders,
		Leechers:  leechers,
		Source:    s.name,
		DateFound: now,
	}, true
}

type feed struct {
	Channel feedChannel `xml:"channel"`
}

type feedChannel struct {
	Items []feedItem `xml:"item"`
}

type feedItem struct {
	Title     string        `xml:"title"`
	Guid      string        `xml:"guid"`
	Link      string        `xml:"link"`
	Enclosure feedEnclosure `xml:"enclosure"`
	Attrs     []feedAttr    `xml:"attr"`
}

type feedEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

type feedAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func parseFeed(payload []byte) ([]feedItem, error) {
	var parsed feed
	if err := xml.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("malformed feed: %w", err)
	}
	return parsed.Channel.Items, nil
}

func firstMagnet(candidates ...string) string {
	for _, candidate := range candidates {
		value := strings.TrimSpace(candidate)
		if strings.HasPrefix(strings.ToLower(value), "magnet:") {
			return value
		}
	}
	return ""
}

func parseInt(raw string) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return value
}

func parseI64(raw string) int64 {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return value
}
