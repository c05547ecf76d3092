package similarity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/internal/cache"
	"github.com/NguyenVanDuc36/AffiliHub/internal/catalog"
)

type fakeGenerator struct {
	mu     sync.Mutex
	reply  string
	err    error
	calls  int
	prompt string
}

func (g *fakeGenerator) Generate(_ context.Context, _, userPrompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompt = userPrompt
	return g.reply, g.err
}

type failingStore struct{}

func (failingStore) GetFresh(context.Context, int64) (cache.SimilarityRecord, bool, error) {
	return cache.SimilarityRecord{}, false, errors.New("db down")
}
func (failingStore) Upsert(context.Context, cache.SimilarityRecord, time.Duration) error {
	return errors.New("db down")
}
func (failingStore) Delete(context.Context, int64) error { return errors.New("db down") }
func (failingStore) Purge(context.Context) (int64, error) { return 0, errors.New("db down") }

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func products(n int) []catalog.Product {
	out := make([]catalog.Product, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, catalog.Product{
			ID:       int64(i),
			Name:     "Product " + string(rune('A'+i-1)),
			Category: "tech",
			Price:    int64(i * 100),
		})
	}
	return out
}

func newResolver(t *testing.T, items []catalog.Product, gen Generator, opts ...cache.Option) (*Resolver, *cache.MemoryStore[int64, cache.SimilarityRecord, *cache.SimilarityRecord]) {
	t.Helper()
	store := cache.NewMemorySimilarityStore(0, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return New(catalog.NewMemory(items, nil), gen, store, Options{}), store
}

func ids(ps []catalog.Product) []int64 {
	out := make([]int64, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFindSimilarTrivialCase(t *testing.T) {
	gen := &fakeGenerator{}
	r, store := newResolver(t, products(3), gen)

	got, err := r.FindSimilar(context.Background(), 1, 3)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if !equalIDs(ids(got), []int64{2, 3}) {
		t.Fatalf("expected [2 3] in catalog order, got %v", ids(got))
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not be called, got %d calls", gen.calls)
	}
	if store.Len() != 0 {
		t.Fatalf("trivial case must not write to cache")
	}
}

func TestFindSimilarMapsPositions(t *testing.T) {
	gen := &fakeGenerator{reply: `{"similarProductIds":[4, 2, 4, 0, 99, 1.5, "3", 1]}`}
	r, store := newResolver(t, products(6), gen)

	got, err := r.FindSimilar(context.Background(), 1, 3)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	// candidates are [2 3 4 5 6]; positions 4, 2, 1 -> ids 5, 3, 2
	if !equalIDs(ids(got), []int64{5, 3, 2}) {
		t.Fatalf("unexpected mapping %v", ids(got))
	}
	if !strings.Contains(gen.prompt, "1. Name: Product B") || !strings.Contains(gen.prompt, "5. Name: Product F") {
		t.Fatalf("prompt does not number the candidates:\n%s", gen.prompt)
	}
	if strings.Contains(gen.prompt, ". Name: Product A") {
		t.Fatalf("source must not be listed as a candidate")
	}

	rec, ok, _ := store.GetFresh(context.Background(), 1)
	if !ok || !equalIDs(rec.SimilarProductIDs, []int64{5, 3, 2}) {
		t.Fatalf("expected write-through of ranked ids, got %v", rec.SimilarProductIDs)
	}
}

func TestFindSimilarCacheHitShortCircuits(t *testing.T) {
	gen := &fakeGenerator{reply: `{"similarProductIds":[1]}`}
	r, store := newResolver(t, products(6), gen)
	ctx := context.Background()

	_ = store.Upsert(ctx, cache.SimilarityRecord{SourceProductID: 1, SimilarProductIDs: []int64{6, 42, 4, 3}}, time.Hour)

	got, err := r.FindSimilar(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("cache hit must not call the generator")
	}
	// 42 left the catalog and is dropped; the rest is truncated to 2
	if !equalIDs(ids(got), []int64{6, 4}) {
		t.Fatalf("unexpected cached products %v", ids(got))
	}
}

func TestFindSimilarExpiredEntryIsMiss(t *testing.T) {
	c := &clock{now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	gen := &fakeGenerator{reply: `{"similarProductIds":[1]}`}
	r, store := newResolver(t, products(6), gen, cache.WithClock(c.Now))
	ctx := context.Background()

	_ = store.Upsert(ctx, cache.SimilarityRecord{SourceProductID: 1, SimilarProductIDs: []int64{6}}, time.Hour)
	c.now = c.now.Add(time.Hour)

	got, err := r.FindSimilar(ctx, 1, 3)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expired entry must behave as a miss")
	}
	if !equalIDs(ids(got), []int64{2}) {
		t.Fatalf("unexpected products %v", ids(got))
	}
}

func TestFindSimilarVanishedCacheEntryIsMiss(t *testing.T) {
	gen := &fakeGenerator{reply: `{"similarProductIds":[2]}`}
	r, store := newResolver(t, products(6), gen)
	ctx := context.Background()
	_ = store.Upsert(ctx, cache.SimilarityRecord{SourceProductID: 1, SimilarProductIDs: []int64{77, 78}}, time.Hour)

	got, err := r.FindSimilar(ctx, 1, 3)
	if err != nil || gen.calls != 1 || !equalIDs(ids(got), []int64{3}) {
		t.Fatalf("got %v, %v after %d calls", ids(got), err, gen.calls)
	}
}

func TestFindSimilarUnknownSource(t *testing.T) {
	gen := &fakeGenerator{}
	r, _ := newResolver(t, products(6), gen)

	_, err := r.FindSimilar(context.Background(), 404, 3)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindSimilarBadReply(t *testing.T) {
	cases := map[string]string{
		"not json":     `similar: 1, 2`,
		"missing key":  `{"ids":[1]}`,
		"not an array": `{"similarProductIds":"1,2"}`,
		"null":         `{"similarProductIds":null}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			r, store := newResolver(t, products(6), &fakeGenerator{reply: reply})
			_, err := r.FindSimilar(context.Background(), 1, 3)
			if !errors.Is(err, apperr.ErrUpstreamFormat) {
				t.Fatalf("expected ErrUpstreamFormat, got %v", err)
			}
			if store.Len() != 0 {
				t.Fatalf("failed resolution must not be cached")
			}
		})
	}
}

func TestFindSimilarNoValidPositions(t *testing.T) {
	r, store := newResolver(t, products(6), &fakeGenerator{reply: `{"similarProductIds":[0, 9]}`})
	_, err := r.FindSimilar(context.Background(), 1, 3)
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("nothing should be cached")
	}
}

func TestFindSimilarGeneratorFailure(t *testing.T) {
	r, _ := newResolver(t, products(6), &fakeGenerator{err: context.DeadlineExceeded})
	_, err := r.FindSimilar(context.Background(), 1, 3)
	if !errors.Is(err, apperr.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if apperr.Code(err) != "generation_timeout" {
		t.Fatalf("timeouts should stay distinguishable, got %q", apperr.Code(err))
	}
}

func TestFindSimilarStorageFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{reply: `{"similarProductIds":[3]}`}
	r := New(catalog.NewMemory(products(6), nil), gen, failingStore{}, Options{})

	got, err := r.FindSimilar(context.Background(), 1, 3)
	if err != nil {
		t.Fatalf("storage failures must not surface: %v", err)
	}
	if gen.calls != 1 || !equalIDs(ids(got), []int64{4}) {
		t.Fatalf("unexpected result %v after %d calls", ids(got), gen.calls)
	}
}

func TestFindSimilarDefaultMaxResults(t *testing.T) {
	gen := &fakeGenerator{reply: `{"similarProductIds":[1,2,3,4,5]}`}
	r, _ := newResolver(t, products(6), gen)

	got, err := r.FindSimilar(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(got) != DefaultMaxResults {
		t.Fatalf("expected %d results, got %d", DefaultMaxResults, len(got))
	}
}

func TestInvalidate(t *testing.T) {
	gen := &fakeGenerator{reply: `{"similarProductIds":[1]}`}
	r, store := newResolver(t, products(6), gen)
	ctx := context.Background()

	if _, err := r.FindSimilar(ctx, 1, 3); err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if err := r.Invalidate(ctx, 1); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("entry should be gone")
	}
	if _, err := r.FindSimilar(ctx, 1, 3); err != nil || gen.calls != 2 {
		t.Fatalf("expected regeneration after invalidate, calls=%d err=%v", gen.calls, err)
	}
}
