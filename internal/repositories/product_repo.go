package repositories

import (
	"context"
	"errors"

	"productos/internal/models"
)

var (
	// ErrProductNotFound is returned when no active product has the given id.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductConflict is returned when a product changed between read and write.
	ErrProductConflict = errors.New("product was modified concurrently")
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	ListActive(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id uint, input models.ProductInput) (*models.Product, error)
	SoftDelete(ctx context.Context, id uint) (*models.Product, error)
	Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	Stats(ctx context.Context) (*models.ProductStats, error)
}

// HealthReporter is implemented by stores that can report on their backend.
type HealthReporter interface {
	Backend() string
	Ping(ctx context.Context) error
	// CountAll counts every row, inactive ones included.
	CountAll(ctx context.Context) (int64, error)
}
