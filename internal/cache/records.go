package cache

import (
	"time"

	"gorm.io/datatypes"
)

// SimilarityRecord holds the ranked similar-product IDs for one source
// product. SimilarProductIDs is in rank order.
type SimilarityRecord struct {
	ID                uint                       `gorm:"primaryKey" json:"-"`
	SourceProductID   int64                      `gorm:"column:source_product_id;not null;uniqueIndex" json:"sourceProductId"`
	SimilarProductIDs datatypes.JSONSlice[int64] `gorm:"column:similar_product_ids;not null" json:"similarProductIds"`
	CreatedAt         time.Time                  `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
	ExpiresAt         time.Time                  `gorm:"column:expires_at;not null;index" json:"expiresAt"`
}

func (SimilarityRecord) TableName() string { return "product_similarity_cache" }

func (r SimilarityRecord) LookupKey() int64 { return r.SourceProductID }

func (r SimilarityRecord) Fresh(now time.Time) bool { return r.ExpiresAt.After(now) }

func (r *SimilarityRecord) Stamp(createdAt, expiresAt time.Time) {
	r.CreatedAt = createdAt
	r.ExpiresAt = expiresAt
}

// ComparisonRecord holds one comparison payload. ProductIDs and
// UserPreference are kept for auditing; lookups go through CacheKey only.
type ComparisonRecord struct {
	ID               uint                       `gorm:"primaryKey" json:"-"`
	CacheKey         string                     `gorm:"column:cache_key;type:text;not null;uniqueIndex" json:"cacheKey"`
	ProductIDs       datatypes.JSONSlice[int64] `gorm:"column:product_ids;not null" json:"productIds"`
	UserPreference   *string                    `gorm:"column:user_preference;type:text" json:"userPreference,omitempty"`
	ComparisonResult datatypes.JSON             `gorm:"column:comparison_result;not null" json:"comparisonResult"`
	CreatedAt        time.Time                  `gorm:"column:created_at;not null;autoCreateTime:false" json:"createdAt"`
	ExpiresAt        time.Time                  `gorm:"column:expires_at;not null;index" json:"expiresAt"`
}

func (ComparisonRecord) TableName() string { return "product_comparison_cache" }

func (r ComparisonRecord) LookupKey() string { return r.CacheKey }

func (r ComparisonRecord) Fresh(now time.Time) bool { return r.ExpiresAt.After(now) }

func (r *ComparisonRecord) Stamp(createdAt, expiresAt time.Time) {
	r.CreatedAt = createdAt
	r.ExpiresAt = expiresAt
}
