package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each record as a JSON value under
// <prefix>:<kind>:<key>, with the record TTL as the key TTL.
type RedisStore[K comparable, R any, P stampable[K, R]] struct {
	client redis.Cmdable
	prefix string
	kind   string
	now    func() time.Time
}

type RedisConfig struct {
	Prefix string
	// Kind separates record kinds sharing one keyspace, e.g. "similarity".
	Kind string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore[K comparable, R any, P stampable[K, R]](client redis.Cmdable, cfg RedisConfig, opts ...Option) *RedisStore[K, R, P] {
	o := buildOptions(opts)
	return &RedisStore[K, R, P]{
		client: client,
		prefix: cfg.Prefix,
		kind:   cfg.Kind,
		now:    o.now,
	}
}

func (s *RedisStore[K, R, P]) key(k K) string {
	base := fmt.Sprintf("%s:%v", s.kind, k)
	if s.prefix == "" {
		return base
	}
	return s.prefix + ":" + base
}

// GetFresh reads a record. A missing key is a clean miss; Redis errors come
// back wrapped so the caller can log and treat them as a miss.
func (s *RedisStore[K, R, P]) GetFresh(ctx context.Context, key K) (R, bool, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, false, storageErr("redis get", err)
	}

	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, storageErr("redis get", err)
	}

	var rec R
	if err := json.Unmarshal(raw, &rec); err != nil {
		return zero, false, storageErr("redis decode", err)
	}
	// Key TTL and ExpiresAt normally agree; the clock check covers skew
	// and injected clocks.
	if !P(&rec).Fresh(s.now()) {
		return zero, false, nil
	}
	return rec, true, nil
}

// Upsert overwrites the key with a freshly stamped record. SET is atomic,
// so concurrent writers leave one value behind.
func (s *RedisStore[K, R, P]) Upsert(ctx context.Context, rec R, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return storageErr("redis upsert", err)
	}

	p := P(&rec)
	if ttl <= 0 {
		return s.Delete(ctx, p.LookupKey())
	}

	now := s.now()
	p.Stamp(now, now.Add(ttl))

	raw, err := json.Marshal(rec)
	if err != nil {
		return storageErr("redis encode", err)
	}
	if err := s.client.Set(ctx, s.key(p.LookupKey()), raw, ttl).Err(); err != nil {
		return storageErr("redis set", err)
	}
	return nil
}

func (s *RedisStore[K, R, P]) Delete(ctx context.Context, key K) error {
	if err := ctx.Err(); err != nil {
		return storageErr("redis delete", err)
	}
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return storageErr("redis delete", err)
	}
	return nil
}

// Purge is a no-op: Redis expires keys on its own.
func (s *RedisStore[K, R, P]) Purge(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageErr("redis purge", err)
	}
	return 0, nil
}
