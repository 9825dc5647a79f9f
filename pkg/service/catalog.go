package service

import (
	"context"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductCache is the Redis read cache for product lookups.
type ProductCache interface {
	CacheProduct(ctx context.Context, p *models.Product) error
	GetProductCache(ctx context.Context, id string) (*models.Product, error)
	InvalidateProduct(ctx context.Context, id string) error
}

// CatalogService serves the read-mostly product catalog and the admin CRUD
// behind it.
type CatalogService struct {
	products repository.ProductRepository
	cache    ProductCache
	logger   *zap.Logger
}

func NewCatalogService(products repository.ProductRepository, cache ProductCache, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

func (s *CatalogService) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, int64, error) {
	return s.products.List(ctx, filter)
}

func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return product, nil
}

func (s *CatalogService) GetByID(ctx context.Context, id string) (*models.Product, error) {
	// Try cache first
	if s.cache != nil {
		if cached, err := s.cache.GetProductCache(ctx, id); err == nil {
			return cached, nil
		}
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	if s.cache != nil {
		if err := s.cache.CacheProduct(ctx, product); err != nil {
			s.logger.Warn("Failed to cache product", zap.String("product_id", id), zap.Error(err))
		}
	}
	return product, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.products.Categories(ctx)
}

// CreateProduct is admin-only; callers gate on role before reaching here.
func (s *CatalogService) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.Name == "" || p.Slug == "" || p.Price < 0 || p.Stock < 0 {
		return ErrValidation
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return s.products.Create(ctx, p)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, p *models.Product) error {
	if p.Price < 0 || p.Stock < 0 {
		return ErrValidation
	}
	if err := s.products.Update(ctx, p); err != nil {
		return mapNotFound(err)
	}
	s.invalidate(ctx, p.ID)
	return nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return mapNotFound(err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CatalogService) AddImage(ctx context.Context, img *models.ProductImage) error {
	if img.URL == "" {
		return ErrValidation
	}
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if _, err := s.products.GetByID(ctx, img.ProductID); err != nil {
		return mapNotFound(err)
	}
	if err := s.products.AddImage(ctx, img); err != nil {
		return err
	}
	s.invalidate(ctx, img.ProductID)
	return nil
}

func (s *CatalogService) DeleteImage(ctx context.Context, productID, imageID string) error {
	if err := s.products.DeleteImage(ctx, productID, imageID); err != nil {
		return mapNotFound(err)
	}
	s.invalidate(ctx, productID)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate product cache", zap.String("product_id", id), zap.Error(err))
	}
}
