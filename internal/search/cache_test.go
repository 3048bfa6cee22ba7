package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"torrenthub/internal/domain"
)

func TestResponseCacheRoundTrip(t *testing.T) {
	cache := NewResponseCache(NewMemoryCacheBackend(0), time.Minute, slog.New(slog.DiscardHandler))

	output := domain.SearchOutput{
		Query: "ubuntu",
		Results: []domain.SearchResult{
			resultFor(t, hashFor('a'), "Ubuntu 24.04", 120),
		},
		FailedSources: []domain.FailedSource{{Source: "beta", Message: "failed: down"}},
	}

	key := buildCacheKey("ubuntu", 10, []string{"alpha", "beta"})
	cache.Set(context.Background(), key, output)

	got, ok := cache.Get(context.Background(), key)
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Query != "ubuntu" || len(got.Results) != 1 || len(got.FailedSources) != 1 {
		t.Fatalf("round trip mangled the output: %+v", got)
	}
	if got.Results[0].Link.InfoHash() != hashFor('a') {
		t.Fatal("link identity must be rebuilt from the magnet on load")
	}
}

func TestMemoryCacheBackendExpiry(t *testing.T) {
	backend := NewMemoryCacheBackend(0)

	if err := backend.Set(context.Background(), "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, _ := backend.Get(context.Background(), "k"); !ok {
		t.Fatal("expected a hit before expiry")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := backend.Get(context.Background(), "k"); ok {
		t.Fatal("expected a miss after expiry")
	}
}

func TestMemoryCacheBackendEviction(t *testing.T) {
	backend := NewMemoryCacheBackend(2)
	ctx := context.Background()

	_ = backend.Set(ctx, "a", []byte("1"), time.Minute)
	_ = backend.Set(ctx, "b", []byte("2"), 2*time.Minute)
	_ = backend.Set(ctx, "c", []byte("3"), 3*time.Minute)

	// "a" carried the nearest expiry and must have been evicted.
	if _, ok, _ := backend.Get(ctx, "a"); ok {
		t.Fatal("expected the oldest entry to be evicted")
	}
	if _, ok, _ := backend.Get(ctx, "c"); !ok {
		t.Fatal("latest entry must survive")
	}
}

func TestBuildCacheKeyEquivalence(t *testing.T) {
	base := buildCacheKey("Ubuntu  Server", 10, []string{"beta", "alpha"})

	if got := buildCacheKey("ubuntu server", 10, []string{"alpha", "beta"}); got != base {
		t.Fatal("normalized queries and reordered sources must share a key")
	}
	if got := buildCacheKey("ubuntu server", 20, []string{"alpha", "beta"}); got == base {
		t.Fatal("a different limit must produce a different key")
	}
	if got := buildCacheKey("debian", 10, []string{"alpha", "beta"}); got == base {
		t.Fatal("a different query must produce a different key")
	}
}
