// Package similarity finds products similar to a given one, asking the
// generator only on a cache miss.
package similarity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/internal/cache"
	"github.com/NguyenVanDuc36/AffiliHub/internal/catalog"
	"github.com/NguyenVanDuc36/AffiliHub/pkg/logging"
)

// DefaultMaxResults is used when a caller asks for zero or fewer results.
const DefaultMaxResults = 3

// Generator answers a prompt pair with raw JSON text.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Options struct {
	TTL               time.Duration // default cache.DefaultTTL
	DefaultMaxResults int           // default DefaultMaxResults
}

type Resolver struct {
	products   catalog.Lookup
	gen        Generator
	store      cache.SimilarityStore
	ttl        time.Duration
	defaultMax int
}

func New(products catalog.Lookup, gen Generator, store cache.SimilarityStore, opts Options) *Resolver {
	if opts.TTL <= 0 {
		opts.TTL = cache.DefaultTTL
	}
	if opts.DefaultMaxResults <= 0 {
		opts.DefaultMaxResults = DefaultMaxResults
	}
	return &Resolver{
		products:   products,
		gen:        gen,
		store:      store,
		ttl:        opts.TTL,
		defaultMax: opts.DefaultMaxResults,
	}
}

// FindSimilar returns up to maxResults products similar to sourceID, in
// rank order. An unknown source fails with apperr.ErrNotFound before the
// cache is consulted.
func (r *Resolver) FindSimilar(ctx context.Context, sourceID int64, maxResults int) ([]catalog.Product, error) {
	if maxResults <= 0 {
		maxResults = r.defaultMax
	}
	logger := logging.L(ctx).With(
		zap.Int64("source_product_id", sourceID),
		zap.Int("max_results", maxResults),
	)

	source, ok, err := r.products.GetProductByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("similarity: lookup product %d: %w", sourceID, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: product %d", apperr.ErrNotFound, sourceID)
	}

	if hit, ok := r.fromCache(ctx, logger, sourceID, maxResults); ok {
		logger.Info("similar products served from cache", zap.Int("count", len(hit)))
		return hit, nil
	}

	all, err := r.products.GetProducts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("similarity: list products: %w", err)
	}
	candidates := make([]catalog.Product, 0, len(all))
	for _, p := range all {
		if p.ID != sourceID {
			candidates = append(candidates, p)
		}
	}

	// Nothing to rank: not a derived judgment, so nothing is cached.
	if len(candidates) <= maxResults {
		return candidates, nil
	}

	// candidates is the frozen snapshot: positions in the reply index into
	// exactly this slice.
	systemPrompt, userPrompt := buildPrompt(source, candidates, maxResults)
	raw, err := r.gen.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		logger.Error("similarity generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: similarity for product %d: %w", apperr.ErrGeneration, sourceID, err)
	}

	picked, err := decodePositions(raw, candidates, maxResults)
	if err != nil {
		logger.Warn("unusable similarity reply", zap.Error(err), zap.String("reply", truncate(raw, 200)))
		return nil, err
	}
	if len(picked) == 0 {
		return nil, fmt.Errorf("%w: no valid similar products for product %d", apperr.ErrInvalidArgument, sourceID)
	}

	ids := make([]int64, len(picked))
	for i, p := range picked {
		ids[i] = p.ID
	}
	rec := cache.SimilarityRecord{SourceProductID: sourceID, SimilarProductIDs: ids}
	if err := r.store.Upsert(ctx, rec, r.ttl); err != nil {
		// the fresh result is still good
		logger.Warn("similarity cache write failed", zap.Error(err))
	}

	return picked, nil
}

// Invalidate drops the cached ranking for sourceID.
func (r *Resolver) Invalidate(ctx context.Context, sourceID int64) error {
	return r.store.Delete(ctx, sourceID)
}

// fromCache resolves a fresh cached ranking. Read failures, empty lists
// and lists whose products have all left the catalog count as misses.
func (r *Resolver) fromCache(ctx context.Context, logger *zap.Logger, sourceID int64, maxResults int) ([]catalog.Product, bool) {
	rec, ok, err := r.store.GetFresh(ctx, sourceID)
	if err != nil {
		logger.Warn("similarity cache read failed, treating as miss", zap.Error(err))
		return nil, false
	}
	if !ok || len(rec.SimilarProductIDs) == 0 {
		return nil, false
	}

	out := make([]catalog.Product, 0, min(len(rec.SimilarProductIDs), maxResults))
	for _, id := range rec.SimilarProductIDs {
		if len(out) == maxResults {
			break
		}
		p, found, err := r.products.GetProductByID(ctx, id)
		if err != nil {
			logger.Warn("similarity cache entry unresolvable, treating as miss", zap.Error(err))
			return nil, false
		}
		if found {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
