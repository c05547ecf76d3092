package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

const listingLimit = 10

//go:embed seed.yaml
var seedYAML []byte

// Fixture is the YAML document a catalog is loaded from.
type Fixture struct {
	Categories []Category `yaml:"categories"`
	Products   []Product  `yaml:"products"`
}

// Memory is an in-process catalog. It is built once at startup and passed
// to whoever needs product data.
type Memory struct {
	mu         sync.RWMutex
	products   map[int64]Product
	order      []int64
	categories []Category
}

// NewMemory builds a catalog from products and categories. Later duplicates
// of an ID replace earlier ones.
func NewMemory(products []Product, categories []Category) *Memory {
	m := &Memory{
		products:   make(map[int64]Product, len(products)),
		categories: append([]Category(nil), categories...),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	m.order = make([]int64, 0, len(m.products))
	for id := range m.products {
		m.order = append(m.order, id)
	}
	sort.Slice(m.order, func(i, j int) bool { return m.order[i] < m.order[j] })
	return m
}

// LoadYAML decodes a fixture document into a catalog.
func LoadYAML(r io.Reader) (*Memory, error) {
	var fx Fixture
	if err := yaml.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode catalog fixture: %w", err)
	}
	for i, p := range fx.Products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("catalog fixture: products[%d] has no id", i)
		}
	}
	return NewMemory(fx.Products, fx.Categories), nil
}

// LoadFile reads a fixture from path.
func LoadFile(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog fixture: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// Seed returns the built-in development catalog.
func Seed() *Memory {
	m, err := LoadYAML(bytes.NewReader(seedYAML))
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded seed is invalid: %v", err))
	}
	return m
}

func (m *Memory) GetProductByID(ctx context.Context, id int64) (Product, bool, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	return p, ok, nil
}

func (m *Memory) GetProducts(ctx context.Context, category string) ([]Product, error) {
	return m.filter(ctx, 0, func(p Product) bool {
		return category == "" || category == "all" || p.Category == category
	})
}

// Trending lists featured products and those tagged hot or trending.
func (m *Memory) Trending(ctx context.Context) ([]Product, error) {
	return m.filter(ctx, listingLimit, func(p Product) bool {
		return p.IsFeatured || p.Tag == "trending" || p.Tag == "hot"
	})
}

// FlashSale lists products currently on flash sale.
func (m *Memory) FlashSale(ctx context.Context) ([]Product, error) {
	return m.filter(ctx, listingLimit, func(p Product) bool { return p.IsFlashSale })
}

// Categories lists all categories in fixture order.
func (m *Memory) Categories(ctx context.Context) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Category(nil), m.categories...), nil
}

// filter walks products in ID order. limit <= 0 means no limit.
func (m *Memory) filter(ctx context.Context, limit int, keep func(Product) bool) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Product, 0, len(m.order))
	for _, id := range m.order {
		p := m.products[id]
		if !keep(p) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
