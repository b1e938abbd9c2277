package services

import (
	"context"

	"productos/internal/events"
	"productos/internal/models"
	"productos/internal/repositories"

	log "github.com/sirupsen/logrus"
)

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	publisher events.Publisher
}

// NewProductService creates a new ProductService. A nil publisher drops events.
func NewProductService(repo repositories.ProductRepository, publisher events.Publisher) *ProductService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ProductService{
		repo:      repo,
		publisher: publisher,
	}
}

// ListProducts retrieves all active products.
func (s *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListActive(ctx)
}

// GetProductByID retrieves a single active product.
func (s *ProductService) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct stores a new product built from input.
func (s *ProductService) CreateProduct(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	product := &models.Product{}
	product.Apply(input)

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductCreated, product)
	return product, nil
}

// UpdateProduct overwrites the mutable fields of an active product.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, input models.ProductInput) (*models.Product, error) {
	product, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductUpdated, product)
	return product, nil
}

// DeleteProduct soft-deletes an active product.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ProductDeleted, product)
	return product, nil
}

// SearchProducts filters products.
func (s *ProductService) SearchProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	return s.repo.Search(ctx, filter)
}

// GetStats aggregates over active products.
func (s *ProductService) GetStats(ctx context.Context) (*models.ProductStats, error) {
	return s.repo.Stats(ctx)
}

// publish is best-effort: a broker failure never undoes a committed write.
func (s *ProductService) publish(ctx context.Context, eventType string, product *models.Product) {
	event := events.NewProductEvent(eventType, *product)
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"event":      eventType,
			"product_id": product.ID,
		}).WithError(err).Warn("failed to publish product event")
	}
}
