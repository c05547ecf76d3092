package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a map guarded by a mutex. It is the
// default backend for development and single-instance deployments.
type MemoryStore[K comparable, R any, P stampable[K, R]] struct {
	mu    sync.RWMutex
	items map[K]R
	now   func() time.Time

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewMemoryStore creates an in-memory store. A positive cleanupInterval
// starts a background goroutine that purges expired records; stop it with
// Close.
func NewMemoryStore[K comparable, R any, P stampable[K, R]](cleanupInterval time.Duration, opts ...Option) *MemoryStore[K, R, P] {
	o := buildOptions(opts)
	s := &MemoryStore[K, R, P]{
		items:       make(map[K]R),
		now:         o.now,
		stopCleanup: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go s.cleanupExpired(cleanupInterval)
	}
	return s
}

func (s *MemoryStore[K, R, P]) GetFresh(ctx context.Context, key K) (R, bool, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, false, storageErr("memory get", err)
	}

	s.mu.RLock()
	rec, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return zero, false, nil
	}
	if !P(&rec).Fresh(s.now()) {
		return zero, false, nil
	}
	return rec, true, nil
}

func (s *MemoryStore[K, R, P]) Upsert(ctx context.Context, rec R, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return storageErr("memory upsert", err)
	}

	p := P(&rec)
	key := p.LookupKey()
	if ttl <= 0 {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return nil
	}

	now := s.now()
	p.Stamp(now, now.Add(ttl))

	s.mu.Lock()
	s.items[key] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore[K, R, P]) Delete(ctx context.Context, key K) error {
	if err := ctx.Err(); err != nil {
		return storageErr("memory delete", err)
	}
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore[K, R, P]) Purge(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageErr("memory purge", err)
	}
	return s.purge(s.now()), nil
}

func (s *MemoryStore[K, R, P]) purge(now time.Time) int64 {
	var removed int64
	s.mu.Lock()
	for k, rec := range s.items {
		if !P(&rec).Fresh(now) {
			delete(s.items, k)
			removed++
		}
	}
	s.mu.Unlock()
	return removed
}

func (s *MemoryStore[K, R, P]) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.purge(s.now())
		case <-s.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (s *MemoryStore[K, R, P]) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryStore[K, R, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// NewMemorySimilarityStore is NewMemoryStore for similarity records.
func NewMemorySimilarityStore(cleanupInterval time.Duration, opts ...Option) *MemoryStore[int64, SimilarityRecord, *SimilarityRecord] {
	return NewMemoryStore[int64, SimilarityRecord, *SimilarityRecord](cleanupInterval, opts...)
}

// NewMemoryComparisonStore is NewMemoryStore for comparison records.
func NewMemoryComparisonStore(cleanupInterval time.Duration, opts ...Option) *MemoryStore[string, ComparisonRecord, *ComparisonRecord] {
	return NewMemoryStore[string, ComparisonRecord, *ComparisonRecord](cleanupInterval, opts...)
}
