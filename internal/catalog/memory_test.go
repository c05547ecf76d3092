package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSeedCatalog(t *testing.T) {
	ctx := context.Background()
	c := Seed()

	all, err := c.GetProducts(ctx, "")
	if err != nil {
		t.Fatalf("GetProducts: %v", err)
	}
	if len(all) != 10 {
		t.Fatalf("expected 10 seed products, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("products not ordered by id: %d before %d", all[i-1].ID, all[i].ID)
		}
	}

	p, ok, err := c.GetProductByID(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("GetProductByID(1) = %v, %v", ok, err)
	}
	if p.Slug != "sony-wh-1000xm4" {
		t.Fatalf("unexpected product 1: %#v", p)
	}

	if _, ok, _ := c.GetProductByID(ctx, 999); ok {
		t.Fatalf("expected missing product")
	}
}

func TestCategoryFilter(t *testing.T) {
	ctx := context.Background()
	c := Seed()

	fashion, err := c.GetProducts(ctx, "fashion")
	if err != nil {
		t.Fatalf("GetProducts: %v", err)
	}
	if len(fashion) != 2 {
		t.Fatalf("expected 2 fashion products, got %d", len(fashion))
	}

	everything, _ := c.GetProducts(ctx, "all")
	if len(everything) != 10 {
		t.Fatalf(`"all" should return every product, got %d`, len(everything))
	}
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	c := Seed()

	flash, err := c.FlashSale(ctx)
	if err != nil {
		t.Fatalf("FlashSale: %v", err)
	}
	for _, p := range flash {
		if !p.IsFlashSale {
			t.Fatalf("non flash-sale product listed: %d", p.ID)
		}
	}
	if len(flash) != 4 {
		t.Fatalf("expected 4 flash-sale products, got %d", len(flash))
	}

	trending, _ := c.Trending(ctx)
	if len(trending) != 6 {
		t.Fatalf("expected 6 trending products, got %d", len(trending))
	}

	cats, _ := c.Categories(ctx)
	if len(cats) != 4 || cats[0].Slug != "fashion" {
		t.Fatalf("unexpected categories: %#v", cats)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `
products:
  - id: 3
    name: C
  - id: 1
    name: A
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	all, _ := c.GetProducts(context.Background(), "")
	if len(all) != 2 || all[0].Name != "A" || all[1].Name != "C" {
		t.Fatalf("unexpected products: %#v", all)
	}
}

func TestLoadYAMLRejectsMissingID(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("products:\n  - name: nameless\n"))
	if err == nil {
		t.Fatalf("expected error for product without id")
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Seed().GetProducts(ctx, ""); err == nil {
		t.Fatalf("expected context error")
	}
}
