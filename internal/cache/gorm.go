package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps records in a relational table, one row per key.
type GormStore[K comparable, R any, P stampable[K, R]] struct {
	db        *gorm.DB
	keyColumn string
	now       func() time.Time
}

// NewGormStore creates a table-backed store. keyColumn is the column
// holding the lookup key; it must carry a unique index.
func NewGormStore[K comparable, R any, P stampable[K, R]](db *gorm.DB, keyColumn string, opts ...Option) *GormStore[K, R, P] {
	o := buildOptions(opts)
	return &GormStore[K, R, P]{db: db, keyColumn: keyColumn, now: o.now}
}

// Migrate creates or updates both cache tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&SimilarityRecord{}, &ComparisonRecord{}); err != nil {
		return storageErr("migrate", err)
	}
	return nil
}

func (s *GormStore[K, R, P]) GetFresh(ctx context.Context, key K) (R, bool, error) {
	var rec R
	err := s.db.WithContext(ctx).
		Where(s.keyColumn+" = ? AND expires_at > ?", key, s.now()).
		Order("created_at DESC").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var zero R
		return zero, false, nil
	}
	if err != nil {
		var zero R
		return zero, false, storageErr("db get", err)
	}
	return rec, true, nil
}

// Upsert deletes every row for the key and inserts the new one inside a
// single transaction. The insert also resolves a unique-key conflict by
// overwriting, which covers a concurrent writer squeezing in between.
func (s *GormStore[K, R, P]) Upsert(ctx context.Context, rec R, ttl time.Duration) error {
	p := P(&rec)
	key := p.LookupKey()
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}

	now := s.now()
	p.Stamp(now, now.Add(ttl))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(s.keyColumn+" = ?", key).Delete(P(new(R))).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: s.keyColumn}},
			UpdateAll: true,
		}).Create(p).Error
	})
	if err != nil {
		return storageErr("db upsert", err)
	}
	return nil
}

func (s *GormStore[K, R, P]) Delete(ctx context.Context, key K) error {
	if err := s.db.WithContext(ctx).Where(s.keyColumn+" = ?", key).Delete(P(new(R))).Error; err != nil {
		return storageErr("db delete", err)
	}
	return nil
}

func (s *GormStore[K, R, P]) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(P(new(R)))
	if res.Error != nil {
		return 0, storageErr("db purge", res.Error)
	}
	return res.RowsAffected, nil
}

// NewGormSimilarityStore is NewGormStore for the similarity table.
func NewGormSimilarityStore(db *gorm.DB, opts ...Option) *GormStore[int64, SimilarityRecord, *SimilarityRecord] {
	return NewGormStore[int64, SimilarityRecord, *SimilarityRecord](db, "source_product_id", opts...)
}

// NewGormComparisonStore is NewGormStore for the comparison table.
func NewGormComparisonStore(db *gorm.DB, opts ...Option) *GormStore[string, ComparisonRecord, *ComparisonRecord] {
	return NewGormStore[string, ComparisonRecord, *ComparisonRecord](db, "cache_key", opts...)
}
