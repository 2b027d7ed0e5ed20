package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pkgerrors "github.com/modehaus/lookbook-backend/internal/pkg/errors"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

// categoryNames maps catalog category ids to their storefront display names.
// Unknown categories fall back to a capitalized id.
var categoryNames = map[string]string{
	"hosen":    "Hosen",
	"jacken":   "Jacken",
	"pullover": "Pullover",
	"schuhe":   "Schuhe",
	"roecke":   "Röcke",
	"kleider":  "Kleider",
}

type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Color         string   `json:"color"`
	Image         string   `json:"image"`
	Discount      *int     `json:"discount"`
}

type Category struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Products []Product `json:"products"`
}

// Index is the in-memory product catalog. It is loaded once at startup and
// immutable afterwards.
type Index struct {
	log         *logger.Logger
	productsDir string
	categories  []Category
}

// Load reads the catalog JSON (category id -> product list), computes the
// discount percentage for discounted products and attaches display names.
func Load(log *logger.Logger, catalogFile, productsDir string) (*Index, error) {
	raw, err := os.ReadFile(catalogFile)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", catalogFile, err)
	}

	var byCategory map[string][]Product
	if err := json.Unmarshal(raw, &byCategory); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", catalogFile, err)
	}

	ids := make([]string, 0, len(byCategory))
	for id := range byCategory {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	categories := make([]Category, 0, len(ids))
	total := 0
	for _, id := range ids {
		products := byCategory[id]
		for i := range products {
			products[i].Discount = discountPercent(products[i])
		}
		categories = append(categories, Category{
			ID:       id,
			Name:     displayName(id),
			Products: products,
		})
		total += len(products)
	}

	if log != nil {
		log = log.With("service", "CatalogIndex")
		log.Info("Catalog loaded", "categories", len(categories), "products", total)
	}

	return &Index{
		log:         log,
		productsDir: productsDir,
		categories:  categories,
	}, nil
}

func discountPercent(p Product) *int {
	if p.OriginalPrice == nil || *p.OriginalPrice <= p.Price {
		return nil
	}
	d := int(math.Round((1 - p.Price / *p.OriginalPrice) * 100))
	return &d
}

func displayName(categoryID string) string {
	if name, ok := categoryNames[categoryID]; ok {
		return name
	}
	if categoryID == "" {
		return ""
	}
	return strings.ToUpper(categoryID[:1]) + categoryID[1:]
}

type CategorySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (ix *Index) Categories() []CategorySummary {
	out := make([]CategorySummary, 0, len(ix.categories))
	for _, c := range ix.categories {
		out = append(out, CategorySummary{ID: c.ID, Name: c.Name})
	}
	return out
}

func (ix *Index) Products(categoryID string) ([]Product, error) {
	for _, c := range ix.categories {
		if c.ID == categoryID {
			return c.Products, nil
		}
	}
	return nil, fmt.Errorf("category %s: %w", categoryID, pkgerrors.ErrNotFound)
}

// Lookup resolves a product id to its record and category. The catalog is
// small, so this is a plain linear scan.
func (ix *Index) Lookup(productID string) (Product, string, error) {
	for _, c := range ix.categories {
		for _, p := range c.Products {
			if p.ID == productID {
				return p, c.ID, nil
			}
		}
	}
	return Product{}, "", fmt.Errorf("product %s: %w", productID, pkgerrors.ErrNotFound)
}

// ImagePath returns the backing image file for a product. Product images live
// in per-category subfolders of the products dir.
func (ix *Index) ImagePath(categoryID string, p Product) string {
	return filepath.Join(ix.productsDir, categoryID, p.Image)
}

func (ix *Index) ProductsDir() string { return ix.productsDir }
