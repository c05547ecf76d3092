package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NguyenVanDuc36/AffiliHub/internal/metrics"
	"github.com/NguyenVanDuc36/AffiliHub/pkg/logging"
)

// LoggingStore wraps a Store with logging + metrics.
type LoggingStore[K comparable, R any] struct {
	inner Store[K, R]
	kind  string
}

// NewLoggingStore returns a store that logs every call and counts lookups
// and writes under the given record kind.
func NewLoggingStore[K comparable, R any](inner Store[K, R], kind string) Store[K, R] {
	return &LoggingStore[K, R]{inner: inner, kind: kind}
}

func (s *LoggingStore[K, R]) GetFresh(ctx context.Context, key K) (R, bool, error) {
	start := time.Now()
	rec, ok, err := s.inner.GetFresh(ctx, key)

	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "hit"
	}
	metrics.CacheLookupsTotal.WithLabelValues(s.kind, result).Inc()

	fields := s.fields(key, start)
	fields = append(fields, zap.String("cache_result", result))

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_get", fields...)
	}
	return rec, ok, err
}

func (s *LoggingStore[K, R]) Upsert(ctx context.Context, rec R, ttl time.Duration) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, rec, ttl)

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.CacheWritesTotal.WithLabelValues(s.kind, result).Inc()

	var key any
	if r, ok := any(rec).(Record[K]); ok {
		key = r.LookupKey()
	}
	fields := append(s.fields(key, start), zap.Duration("ttl", ttl))

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("cache_upsert", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("cache_upsert", fields...)
	}
	return err
}

func (s *LoggingStore[K, R]) Delete(ctx context.Context, key K) error {
	start := time.Now()
	err := s.inner.Delete(ctx, key)

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("cache_delete", append(s.fields(key, start), zap.Error(err))...)
	} else {
		logger.Info("cache_delete", s.fields(key, start)...)
	}
	return err
}

func (s *LoggingStore[K, R]) Purge(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.inner.Purge(ctx)

	fields := []zap.Field{
		zap.String("cache_kind", s.kind),
		zap.Int64("removed", n),
		zap.Float64("latency_ms", sinceMs(start)),
	}
	logger := logging.L(ctx)
	if err != nil {
		logger.Error("cache_purge", append(fields, zap.Error(err))...)
	} else {
		logger.Info("cache_purge", fields...)
	}
	return n, err
}

func (s *LoggingStore[K, R]) fields(key any, start time.Time) []zap.Field {
	return []zap.Field{
		zap.String("cache_kind", s.kind),
		zap.String("lookup_key", fmt.Sprint(key)),
		zap.Float64("latency_ms", sinceMs(start)),
	}
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
