package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	KindSimilarity = "similarity"
	KindComparison = "comparison"
)

type Config struct {
	Backend       string
	Prefix        string
	SweepInterval time.Duration
}

// Stores bundles the two record stores sharing one backend.
type Stores struct {
	Backend    string
	Similarity SimilarityStore
	Comparison ComparisonStore

	closers []func() error
}

// NewStores builds both stores for cfg.Backend, wrapped with logging.
// redisClient is only used by the redis backend, db only by postgres.
func NewStores(ctx context.Context, cfg Config, redisClient redis.Cmdable, db *gorm.DB, opts ...Option) (*Stores, error) {
	s := &Stores{Backend: cfg.Backend}

	var (
		sim SimilarityStore
		cmp ComparisonStore
	)

	switch cfg.Backend {
	case BackendRedis:
		if redisClient == nil {
			return nil, errors.New("cache: redis backend needs a redis client")
		}
		sim = NewRedisStore[int64, SimilarityRecord](redisClient, RedisConfig{Prefix: cfg.Prefix, Kind: KindSimilarity}, opts...)
		cmp = NewRedisStore[string, ComparisonRecord](redisClient, RedisConfig{Prefix: cfg.Prefix, Kind: KindComparison}, opts...)
	case BackendPostgres:
		if db == nil {
			return nil, errors.New("cache: postgres backend needs a database handle")
		}
		if err := Migrate(ctx, db); err != nil {
			return nil, err
		}
		sim = NewGormSimilarityStore(db, opts...)
		cmp = NewGormComparisonStore(db, opts...)
	case BackendMemory, "":
		s.Backend = BackendMemory
		memSim := NewMemorySimilarityStore(cfg.SweepInterval, opts...)
		memCmp := NewMemoryComparisonStore(cfg.SweepInterval, opts...)
		s.closers = append(s.closers, memSim.Close, memCmp.Close)
		sim, cmp = memSim, memCmp
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.Backend)
	}

	s.Similarity = NewLoggingStore(sim, KindSimilarity)
	s.Comparison = NewLoggingStore(cmp, KindComparison)
	return s, nil
}

// Purge drops expired rows from both stores.
func (s *Stores) Purge(ctx context.Context) (similarity, comparison int64, err error) {
	similarity, err = s.Similarity.Purge(ctx)
	if err != nil {
		return 0, 0, err
	}
	comparison, err = s.Comparison.Purge(ctx)
	if err != nil {
		return similarity, 0, err
	}
	return similarity, comparison, nil
}

// RunSweeper purges both stores every interval until ctx is done. Purge
// failures are logged and retried on the next tick.
func (s *Stores) RunSweeper(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sim, cmp, err := s.Purge(ctx)
			if err != nil {
				logger.Warn("cache sweep failed", zap.Error(err))
				continue
			}
			if sim+cmp > 0 {
				logger.Info("cache sweep",
					zap.Int64("similarity_removed", sim),
					zap.Int64("comparison_removed", cmp),
				)
			}
		}
	}
}

// OnClose registers fn to run on Close, after the stores' own cleanup.
// Callers hand over the connections a backend was built on.
func (s *Stores) OnClose(fn func() error) {
	if fn != nil {
		s.closers = append(s.closers, fn)
	}
}

// Close releases backend resources owned by the stores.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
