package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"productos/internal/models"

	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB

	// afterRead runs between the read and the guarded write of Update and
	// SoftDelete. Tests use it to interleave a competing writer.
	afterRead func()
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// ListActive retrieves all active products ordered by id.
func (r *GORMProductRepository) ListActive(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single active product by its ID.
func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ? AND active = ?", id, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// Create inserts a new product. The id, creation time and active flag are
// always assigned here, whatever the caller put in them.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	product.ID = 0
	product.CreatedAt = time.Now().UTC()
	product.Active = true
	product.Version = 1
	product.Price = product.Price.Round(2)

	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update overwrites name, description, price and stock of an active product.
// The write only lands if the row still has the version that was read.
func (r *GORMProductRepository) Update(ctx context.Context, id uint, input models.ProductInput) (*models.Product, error) {
	product, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.afterRead != nil {
		r.afterRead()
	}

	product.Apply(input)
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND active = ? AND version = ?", id, true, product.Version).
		Updates(map[string]interface{}{
			"name":               product.Name,
			"description":        product.Description,
			"price":              product.Price,
			"stock":              product.Stock,
			"search_name":        product.SearchName,
			"search_description": product.SearchDescription,
			"version":            gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, r.explainMiss(ctx, id)
	}

	product.Version++
	return product, nil
}

// SoftDelete marks an active product as inactive.
func (r *GORMProductRepository) SoftDelete(ctx context.Context, id uint) (*models.Product, error) {
	product, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.afterRead != nil {
		r.afterRead()
	}

	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND active = ? AND version = ?", id, true, product.Version).
		Updates(map[string]interface{}{
			"active":  false,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, r.explainMiss(ctx, id)
	}

	product.Active = false
	product.Version++
	return product, nil
}

// explainMiss decides why a guarded write touched no rows: the product is
// gone (or inactive), or somebody else wrote it first.
func (r *GORMProductRepository) explainMiss(ctx context.Context, id uint) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrProductConflict
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search filters products by name/description substring and price range.
// Matching runs on the case-folded search columns; results are ordered by name.
func (r *GORMProductRepository) Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if !filter.IncludeInactive {
		query = query.Where("active = ?", true)
	}
	if filter.Name != nil {
		pattern := "%" + likeEscaper.Replace(models.FoldCase(*filter.Name)) + "%"
		query = query.Where(`(search_name LIKE ? ESCAPE '\' OR search_description LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	products := []models.Product{}
	if err := query.Order("name ASC, id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// Stats aggregates count, stock and price figures over active products.
func (r *GORMProductRepository) Stats(ctx context.Context) (*models.ProductStats, error) {
	var stats models.ProductStats
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("COUNT(*) AS count, COALESCE(SUM(stock), 0) AS total_stock, AVG(price) AS avg_price, MAX(price) AS max_price, MIN(price) AS min_price").
		Where("active = ?", true).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate products: %w", err)
	}

	if stats.AvgPrice.Valid {
		stats.AvgPrice.Decimal = stats.AvgPrice.Decimal.Round(2)
	}
	return &stats, nil
}

// Backend reports the SQL dialect behind the repository.
func (r *GORMProductRepository) Backend() string {
	return r.db.Dialector.Name()
}

// Ping checks that the database is reachable.
func (r *GORMProductRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// CountAll counts every product row, inactive ones included.
func (r *GORMProductRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}
