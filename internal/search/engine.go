package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"torrenthub/internal/domain"
	"torrenthub/internal/domain/ports"
)

// maxConcurrentSources limits the number of source queries that can run
// simultaneously, so a large source roster does not overwhelm the process
// or the remote trackers.
const maxConcurrentSources = 10

const defaultPerSourceLimit = 10

// Engine fans a query out to registered search sources, absorbs per-source
// failures, and merges the survivors into one deduplicated, seeder-ranked
// result set.
type Engine struct {
	sources map[string]ports.Source // keyed by lowercased name
	names   []string                // sorted source keys
	prefs   ports.PreferencesStore
	cache   *ResponseCache // nil disables caching
	logger  *slog.Logger
	timeout time.Duration

	healthMu sync.Mutex
	health   map[string]*sourceHealth

	limiters *sourceLimiters
}

// Config tunes the engine; zero values fall back to defaults.
type Config struct {
	Timeout          time.Duration
	SourceRatePerSec float64
	SourceBurst      int
}

func NewEngine(sources []ports.Source, prefs ports.PreferencesStore, cache *ResponseCache, logger *slog.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	byName := make(map[string]ports.Source, len(sources))
	for _, src := range sources {
		key := sourceKey(src.Name())
		if key == "" {
			continue
		}
		byName[key] = src
	}
	names := make([]string, 0, len(byName))
	for key := range byName {
		names = append(names, key)
	}
	sort.Strings(names)

	return &Engine{
		sources:  byName,
		names:    names,
		prefs:    prefs,
		cache:    cache,
		logger:   logger,
		timeout:  cfg.Timeout,
		health:   make(map[string]*sourceHealth),
		limiters: newSourceLimiters(cfg.SourceRatePerSec, cfg.SourceBurst),
	}
}

// Input is one search request. Sources empty means "favorites, then all".
type Input struct {
	Query   string
	Limit   int // per-source result cap; <=0 means the default
	Sources []string
}

func (e *Engine) Search(ctx context.Context, input Input) (domain.SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return domain.SearchOutput{}, fmt.Errorf("%w: search query cannot be empty", domain.ErrValidation)
	}
	limit := input.Limit
	if limit == 0 {
		limit = defaultPerSourceLimit
	}
	if limit < 1 {
		return domain.SearchOutput{}, fmt.Errorf("%w: limit must be at least 1", domain.ErrValidation)
	}

	selected, err := e.resolveSources(ctx, input.Sources)
	if err != nil {
		return domain.SearchOutput{}, err
	}

	startedAt := time.Now()
	cacheKey := buildCacheKey(query, limit, selected)
	if cached, ok := e.cacheLookup(ctx, cacheKey); ok {
		cached.ElapsedMS = time.Since(startedAt).Milliseconds()
		return cached, nil
	}

	output, err := e.executeSearch(ctx, query, limit, selected)
	if err != nil {
		return domain.SearchOutput{}, err
	}
	output.ElapsedMS = time.Since(startedAt).Milliseconds()
	e.cacheStore(ctx, cacheKey, output)
	return output, nil
}

func (e *Engine) executeSearch(ctx context.Context, query string, limit int, selected []string) (domain.SearchOutput, error) {
	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// Each goroutine owns one slot, so the merge below can walk the
	// slices in source order without locking and dedup stays
	// deterministic: the first source to report a link keeps it.
	results := make([][]domain.SearchResult, len(selected))
	failures := make([]error, len(selected))

	sem := semaphore.NewWeighted(maxConcurrentSources)
	var wg sync.WaitGroup
	for i, name := range selected {
		wg.Add(1)
		go func(slot int, name string) {
			defer wg.Done()
			if err := sem.Acquire(runCtx, 1); err != nil {
				failures[slot] = domain.NewSourceTimeout(name, err)
				return
			}
			defer sem.Release(1)
			results[slot], failures[slot] = e.searchOne(runCtx, name, query, limit)
		}(i, name)
	}
	wg.Wait()

	output := domain.SearchOutput{Query: query}
	seen := make(map[string]struct{})
	succeeded := 0
	for i, name := range selected {
		if err := failures[i]; err != nil {
			var srcErr *domain.SourceError
			if !errors.As(err, &srcErr) {
				// Not a source-level failure; abort the whole search.
				return domain.SearchOutput{}, err
			}
			output.FailedSources = append(output.FailedSources, domain.FailedSource{
				Source:  name,
				Message: failureMessage(srcErr),
			})
			continue
		}
		succeeded++
		for _, item := range results[i] {
			key := item.Link.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			output.Results = append(output.Results, item)
		}
	}

	if succeeded == 0 {
		return domain.SearchOutput{}, fmt.Errorf("%w: query %q", domain.ErrAllSourcesFailed, query)
	}

	sort.SliceStable(output.Results, func(i, j int) bool {
		return output.Results[i].Seeders > output.Results[j].Seeders
	})
	return output, nil
}

// searchOne runs a single source query with health gating, rate limiting
// and transient retry.
func (e *Engine) searchOne(ctx context.Context, name, query string, limit int) ([]domain.SearchResult, error) {
	src := e.sources[name]

	now := time.Now()
	if blocked, until, lastErr := e.isSourceBlocked(name, now); blocked {
		return nil, domain.NewSourceError(name,
			fmt.Errorf("temporarily unhealthy until %s: %s", until.UTC().Format(time.RFC3339), lastErr))
	}

	if err := e.limiters.wait(ctx, name); err != nil {
		return nil, domain.NewSourceTimeout(name, err)
	}

	startedAt := time.Now()
	var items []domain.SearchResult
	err := RetryWithBackoff(ctx, DefaultRetryConfig(), func() error {
		var searchErr error
		items, searchErr = src.Search(ctx, query, limit)
		return searchErr
	})
	if err != nil {
		var srcErr *domain.SourceError
		if !errors.As(err, &srcErr) {
			// A deadline expiring during the retry backoff surfaces as a
			// raw context error; keep the failure attributed to this
			// source so the other sources' results survive.
			err = domain.NewSourceTimeout(name, err)
		}
	}
	e.recordSourceResult(name, err, time.Since(startedAt), time.Now())
	if err != nil {
		e.logger.Warn("source search failed",
			slog.String("source", name),
			slog.String("query", query),
			slog.String("error", err.Error()))
		return nil, err
	}
	return items, nil
}

// resolveSources picks the sources to query: an explicit list wins and
// must be fully known; otherwise favorite sources from preferences;
// otherwise every registered source in name order.
func (e *Engine) resolveSources(ctx context.Context, requested []string) ([]string, error) {
	if len(e.sources) == 0 {
		return nil, domain.ErrNoSources
	}

	if len(requested) > 0 {
		selected := make([]string, 0, len(requested))
		seen := make(map[string]struct{}, len(requested))
		var unknown []string
		for _, raw := range requested {
			key := sourceKey(raw)
			if key == "" {
				continue
			}
			if _, ok := e.sources[key]; !ok {
				unknown = append(unknown, key)
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			selected = append(selected, key)
		}
		if len(unknown) > 0 {
			return nil, fmt.Errorf("%w: %s (valid sources are: %s)",
				domain.ErrUnknownSource, strings.Join(unknown, ", "), strings.Join(e.names, ", "))
		}
		if len(selected) == 0 {
			return nil, domain.ErrNoSources
		}
		return selected, nil
	}

	if e.prefs != nil {
		prefs, err := e.prefs.Get(ctx)
		if err != nil {
			return nil, err
		}
		if len(prefs.FavoriteSources) > 0 {
			selected := make([]string, 0, len(prefs.FavoriteSources))
			seen := make(map[string]struct{}, len(prefs.FavoriteSources))
			for _, raw := range prefs.FavoriteSources {
				key := sourceKey(raw)
				if _, ok := e.sources[key]; !ok {
					// A favorite may point at a source that is no longer
					// configured; skip it rather than failing the search.
					e.logger.Warn("favorite source not registered", slog.String("source", key))
					continue
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				selected = append(selected, key)
			}
			if len(selected) == 0 {
				return nil, domain.ErrNoSources
			}
			return selected, nil
		}
	}

	return append([]string(nil), e.names...), nil
}

// SourceNames lists registered source names sorted alphabetically.
func (e *Engine) SourceNames() []string {
	return append([]string(nil), e.names...)
}

// Sources describes every registered source.
func (e *Engine) Sources() []domain.SourceInfo {
	infos := make([]domain.SourceInfo, 0, len(e.names))
	for _, name := range e.names {
		infos = append(infos, e.sources[name].Info())
	}
	return infos
}

func failureMessage(err *domain.SourceError) string {
	cause := "unknown error"
	if err.Err != nil {
		cause = err.Err.Error()
	}
	if err.Timeout {
		return "timed out: " + cause
	}
	return "failed: " + cause
}

func sourceKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
