package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"torrenthub/internal/domain"
	"torrenthub/internal/metrics"
)

const (
	defaultCacheTTL        = 10 * time.Minute
	defaultCacheMaxEntries = 400
)

// CacheBackend stores serialized search responses. Implementations must be
// safe for concurrent use.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// ResponseCache serializes search outputs into a backend with a TTL.
// Backend failures degrade to cache misses; searching must keep working
// when Redis is down.
type ResponseCache struct {
	backend CacheBackend
	ttl     time.Duration
	logger  *slog.Logger
}

func NewResponseCache(backend CacheBackend, ttl time.Duration, logger *slog.Logger) *ResponseCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResponseCache{backend: backend, ttl: ttl, logger: logger}
}

func (c *ResponseCache) Get(ctx context.Context, key string) (domain.SearchOutput, bool) {
	payload, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("search cache read failed", slog.String("error", err.Error()))
		return domain.SearchOutput{}, false
	}
	if !ok {
		return domain.SearchOutput{}, false
	}
	var output domain.SearchOutput
	if err := json.Unmarshal(payload, &output); err != nil {
		_ = c.backend.Delete(ctx, key)
		return domain.SearchOutput{}, false
	}
	// Link identity is not serialized; rebuild it from the magnet so
	// cached results behave like fresh ones.
	for i := range output.Results {
		if output.Results[i].Magnet == "" {
			continue
		}
		if link, err := domain.ParseLink(output.Results[i].Magnet); err == nil {
			output.Results[i].Link = link
		}
	}
	return output, true
}

func (c *ResponseCache) Set(ctx context.Context, key string, output domain.SearchOutput) {
	payload, err := json.Marshal(output)
	if err != nil {
		return
	}
	if err := c.backend.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("search cache write failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) cacheLookup(ctx context.Context, key string) (domain.SearchOutput, bool) {
	if e.cache == nil {
		return domain.SearchOutput{}, false
	}
	output, ok := e.cache.Get(ctx, key)
	if ok {
		metrics.SearchCacheHitsTotal.Inc()
	} else {
		metrics.SearchCacheMissesTotal.Inc()
	}
	return output, ok
}

func (e *Engine) cacheStore(ctx context.Context, key string, output domain.SearchOutput) {
	if e.cache == nil {
		return
	}
	e.cache.Set(ctx, key, output)
}

// buildCacheKey hashes the normalized query, the per-source limit and the
// resolved source set so equivalent requests share an entry.
func buildCacheKey(query string, limit int, sources []string) string {
	sorted := append([]string(nil), sources...)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(normalizeQuery(query))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(limit))
	b.WriteByte('|')
	b.WriteString(strings.Join(sorted, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return "search:" + hex.EncodeToString(sum[:16])
}

// MemoryCacheBackend is an in-process backend with lazy expiry and a hard
// entry cap, for running without Redis.
type MemoryCacheBackend struct {
	mu         sync.Mutex
	entries    map[string]memoryCacheEntry
	maxEntries int
}

type memoryCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

func NewMemoryCacheBackend(maxEntries int) *MemoryCacheBackend {
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	return &MemoryCacheBackend{
		entries:    make(map[string]memoryCacheEntry),
		maxEntries: maxEntries,
	}
}

func (m *MemoryCacheBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return entry.payload, true, nil
}

func (m *MemoryCacheBackend) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.maxEntries {
		m.evictOldestLocked()
	}
	m.entries[key] = memoryCacheEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryCacheBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCacheBackend) Ping(context.Context) error { return nil }

func (m *MemoryCacheBackend) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range m.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
