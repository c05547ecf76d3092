package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a similarity or comparison result stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// Record is a cache row addressed by a lookup key of type K.
type Record[K comparable] interface {
	LookupKey() K
	// Fresh reports whether the row has not yet expired at now.
	Fresh(now time.Time) bool
}

// stampable is the pointer side of a record: stores set the creation and
// expiry times themselves on every write.
type stampable[K comparable, R any] interface {
	*R
	Record[K]
	Stamp(createdAt, expiresAt time.Time)
}

// Store is a "fresh or nothing" persistence layer for one record kind.
//
// GetFresh never returns an expired row and reports absence as (zero, false,
// nil). Upsert replaces whatever is stored under the record's key with a
// row stamped CreatedAt=now, ExpiresAt=now+ttl; concurrent writers for one
// key leave exactly one row behind. Purge drops expired rows and never
// changes what GetFresh returns.
type Store[K comparable, R any] interface {
	GetFresh(ctx context.Context, key K) (R, bool, error)
	Upsert(ctx context.Context, rec R, ttl time.Duration) error
	Delete(ctx context.Context, key K) error
	Purge(ctx context.Context) (int64, error)
}

// SimilarityStore caches ranked similar products per source product.
type SimilarityStore = Store[int64, SimilarityRecord]

// ComparisonStore caches comparison payloads per comparison key.
type ComparisonStore = Store[string, ComparisonRecord]

type options struct {
	now func() time.Time
}

// Option tweaks a store backend.
type Option func(*options)

// WithClock overrides time.Now. Tests use it to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
