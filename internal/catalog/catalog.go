// Package catalog is the read-only product data the resolvers consult.
package catalog

import "context"

// Product is a catalog item. Prices are whole currency units.
type Product struct {
	ID            int64   `json:"id" yaml:"id"`
	Name          string  `json:"name" yaml:"name"`
	Description   string  `json:"description" yaml:"description"`
	Price         int64   `json:"price" yaml:"price"`
	OriginalPrice int64   `json:"originalPrice" yaml:"originalPrice"`
	Image         string  `json:"image,omitempty" yaml:"image"`
	Category      string  `json:"category" yaml:"category"`
	Rating        float64 `json:"rating" yaml:"rating"`
	ReviewCount   int     `json:"reviewCount" yaml:"reviewCount"`
	Stock         int     `json:"stock" yaml:"stock"`
	Tag           string  `json:"tag,omitempty" yaml:"tag"`
	Slug          string  `json:"slug" yaml:"slug"`
	IsFeatured    bool    `json:"isFeatured" yaml:"isFeatured"`
	IsFlashSale   bool    `json:"isFlashSale" yaml:"isFlashSale"`
}

// Category groups products by slug.
type Category struct {
	ID           int64  `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description,omitempty" yaml:"description"`
	Slug         string `json:"slug" yaml:"slug"`
	Image        string `json:"image,omitempty" yaml:"image"`
	ProductCount int    `json:"productCount" yaml:"productCount"`
}

// Lookup is the product access the resolvers need.
//
// GetProducts returns products ordered by ID; an empty category or "all"
// means the whole catalog.
type Lookup interface {
	GetProductByID(ctx context.Context, id int64) (Product, bool, error)
	GetProducts(ctx context.Context, category string) ([]Product, error)
}
