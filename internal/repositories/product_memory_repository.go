package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"productos/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
// Nothing survives a restart.
type MemoryProductRepository struct {
	products map[uint]models.Product
	nextID   uint
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[uint]models.Product),
		nextID:   1,
	}
}

// ListActive returns all active products ordered by id.
func (r *MemoryProductRepository) ListActive(ctx context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if p.Active {
			productList = append(productList, p)
		}
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].ID < productList[j].ID })
	return productList, nil
}

// GetByID returns an active product by its ID.
func (r *MemoryProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok || !product.Active {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

// Create adds a new product with a fresh id.
func (r *MemoryProductRepository) Create(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product.ID = r.nextID
	r.nextID++
	product.CreatedAt = time.Now().UTC()
	product.Active = true
	product.Version = 1
	product.Price = product.Price.Round(2)
	product.SetSearchKeys()
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing active product.
func (r *MemoryProductRepository) Update(ctx context.Context, id uint, input models.ProductInput) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok || !product.Active {
		return nil, ErrProductNotFound
	}
	product.Apply(input)
	product.Version++
	r.products[id] = product
	return &product, nil
}

// SoftDelete marks an active product as inactive.
func (r *MemoryProductRepository) SoftDelete(ctx context.Context, id uint) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok || !product.Active {
		return nil, ErrProductNotFound
	}
	product.Active = false
	product.Version++
	r.products[id] = product
	return &product, nil
}

// Search filters products the same way the GORM repository does.
func (r *MemoryProductRepository) Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var needle string
	if filter.Name != nil {
		needle = models.FoldCase(*filter.Name)
	}

	productList := []models.Product{}
	for _, p := range r.products {
		if !filter.IncludeInactive && !p.Active {
			continue
		}
		if filter.Name != nil && !matchesName(p, needle) {
			continue
		}
		if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		productList = append(productList, p)
	}
	sort.SliceStable(productList, func(i, j int) bool {
		if productList[i].Name == productList[j].Name {
			return productList[i].ID < productList[j].ID
		}
		return productList[i].Name < productList[j].Name
	})
	return productList, nil
}

func matchesName(p models.Product, needle string) bool {
	return strings.Contains(p.SearchName, needle) || strings.Contains(p.SearchDescription, needle)
}

// Stats aggregates over active products.
func (r *MemoryProductRepository) Stats(ctx context.Context) (*models.ProductStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.ProductStats{}
	sum := decimal.Zero
	for _, p := range r.products {
		if !p.Active {
			continue
		}
		stats.Count++
		stats.TotalStock += int64(p.Stock)
		sum = sum.Add(p.Price)
		if !stats.MaxPrice.Valid || p.Price.GreaterThan(stats.MaxPrice.Decimal) {
			stats.MaxPrice = decimal.NewNullDecimal(p.Price)
		}
		if !stats.MinPrice.Valid || p.Price.LessThan(stats.MinPrice.Decimal) {
			stats.MinPrice = decimal.NewNullDecimal(p.Price)
		}
	}
	if stats.Count > 0 {
		stats.AvgPrice = decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(stats.Count)).Round(2))
	}
	return stats, nil
}

// Backend reports "memory".
func (r *MemoryProductRepository) Backend() string {
	return "memory"
}

// Ping always succeeds.
func (r *MemoryProductRepository) Ping(ctx context.Context) error {
	return nil
}

// CountAll counts every product, inactive ones included.
func (r *MemoryProductRepository) CountAll(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.products)), nil
}
