// Package comparison builds structured multi-product comparisons, asking
// the generator only on a cache miss.
package comparison

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NguyenVanDuc36/AffiliHub/internal/apperr"
	"github.com/NguyenVanDuc36/AffiliHub/internal/cache"
	"github.com/NguyenVanDuc36/AffiliHub/internal/catalog"
	"github.com/NguyenVanDuc36/AffiliHub/pkg/logging"
)

// MinProducts is the smallest comparable set.
const MinProducts = 2

// Generator answers a prompt pair with raw JSON text.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Options struct {
	TTL time.Duration // default cache.DefaultTTL
	// LookupConcurrency bounds parallel product lookups (default 4).
	LookupConcurrency int
}

type Resolver struct {
	products    catalog.Lookup
	gen         Generator
	store       cache.ComparisonStore
	ttl         time.Duration
	concurrency int
}

func New(products catalog.Lookup, gen Generator, store cache.ComparisonStore, opts Options) *Resolver {
	if opts.TTL <= 0 {
		opts.TTL = cache.DefaultTTL
	}
	if opts.LookupConcurrency <= 0 {
		opts.LookupConcurrency = 4
	}
	return &Resolver{
		products:    products,
		gen:         gen,
		store:       store,
		ttl:         opts.TTL,
		concurrency: opts.LookupConcurrency,
	}
}

// Compare returns the comparison of productIDs under an optional
// preference. Duplicate IDs count once; fewer than MinProducts distinct
// IDs fail with apperr.ErrInvalidArgument before any cache or generator
// work.
func (r *Resolver) Compare(ctx context.Context, productIDs []int64, preference string) (Result, error) {
	ids := distinct(productIDs)
	if len(ids) < MinProducts {
		return Result{}, fmt.Errorf("%w: at least %d products are required for a comparison", apperr.ErrInvalidArgument, MinProducts)
	}

	key := cache.ComparisonKey(ids, preference)
	logger := logging.L(ctx).With(zap.String("cache_key", key))

	if hit, ok := r.fromCache(ctx, logger, key); ok {
		logger.Info("comparison served from cache")
		return hit, nil
	}

	resolved, err := r.resolve(ctx, ids)
	if err != nil {
		return Result{}, err
	}
	if len(resolved) < MinProducts {
		return Result{}, fmt.Errorf("%w: only %d of the requested products exist", apperr.ErrInvalidArgument, len(resolved))
	}

	systemPrompt, userPrompt := buildPrompt(resolved, preference)
	raw, err := r.gen.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		logger.Error("comparison generation failed", zap.Error(err))
		return Result{}, fmt.Errorf("%w: comparison %s: %w", apperr.ErrGeneration, key, err)
	}

	res, err := parseResult(raw)
	if err != nil {
		logger.Warn("unusable comparison reply", zap.Error(err))
		return Result{}, err
	}

	r.save(ctx, logger, key, ids, preference, res)
	return res, nil
}

// Invalidate drops the cached comparison for productIDs and preference.
func (r *Resolver) Invalidate(ctx context.Context, productIDs []int64, preference string) error {
	return r.store.Delete(ctx, cache.ComparisonKey(productIDs, preference))
}

func (r *Resolver) fromCache(ctx context.Context, logger *zap.Logger, key string) (Result, bool) {
	rec, ok, err := r.store.GetFresh(ctx, key)
	if err != nil {
		logger.Warn("comparison cache read failed, treating as miss", zap.Error(err))
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}

	var res Result
	if err := json.Unmarshal(rec.ComparisonResult, &res); err != nil {
		logger.Warn("comparison cache entry undecodable, treating as miss", zap.Error(err))
		return Result{}, false
	}
	return res, true
}

// resolve looks products up concurrently and keeps request order.
// Unknown IDs are dropped; lookup failures abort.
func (r *Resolver) resolve(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	found := make([]*catalog.Product, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, ok, err := r.products.GetProductByID(gctx, id)
			if err != nil {
				return fmt.Errorf("comparison: lookup product %d: %w", id, err)
			}
			if ok {
				found[i] = &p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]catalog.Product, 0, len(ids))
	for _, p := range found {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *Resolver) save(ctx context.Context, logger *zap.Logger, key string, ids []int64, preference string, res Result) {
	payload, err := json.Marshal(res)
	if err != nil {
		logger.Warn("comparison encode failed, not cached", zap.Error(err))
		return
	}

	rec := cache.ComparisonRecord{
		CacheKey:         key,
		ProductIDs:       cache.NormalizeIDs(ids),
		ComparisonResult: payload,
	}
	if p := strings.TrimSpace(preference); p != "" {
		rec.UserPreference = &p
	}
	if err := r.store.Upsert(ctx, rec, r.ttl); err != nil {
		// the fresh result is still good
		logger.Warn("comparison cache write failed", zap.Error(err))
	}
}

// distinct drops repeated IDs, keeping first-seen order.
func distinct(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
