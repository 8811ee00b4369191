package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/VishalVrk/rfid-cart/internal/domain"
	"github.com/VishalVrk/rfid-cart/internal/repository"
	apperrors "github.com/VishalVrk/rfid-cart/pkg/errors"
)

// CatalogService implements the business logic for the product catalog.
type CatalogService struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Price       float64
	Category    string
	Stock       int
	Description string
	ImageURL    string
	Rating      float64
}

// UpdateProductInput holds the parameters for updating a product. Nil fields
// are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Price       *float64
	Category    *string
	Stock       *int
	Description *string
	ImageURL    *string
	Rating      *float64
}

// ListProducts returns the whole catalog, or one category of it when category
// is set. An empty catalog is not an error.
func (s *CatalogService) ListProducts(ctx context.Context, category *string) ([]domain.Product, error) {
	products, err := s.repo.List(ctx, repository.ProductFilter{Category: category})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct retrieves a product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// CreateProduct validates and stores a new product.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		Category:    strings.TrimSpace(input.Category),
		Stock:       input.Stock,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		Rating:      input.Rating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return product, nil
}

// UpdateProduct applies the non-nil fields of input to an existing product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.ImageURL != nil {
		product.ImageURL = *input.ImageURL
	}
	if input.Rating != nil {
		product.Rating = *input.Rating
	}

	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", product.ID))

	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))

	return nil
}

func validateProduct(p *domain.Product) error {
	switch {
	case p.Name == "":
		return apperrors.InvalidInput("product name is required")
	case p.Price < 0:
		return apperrors.InvalidInput("price must not be negative")
	case p.Stock < 0:
		return apperrors.InvalidInput("stock must not be negative")
	case p.Rating < 0 || p.Rating > domain.MaxRating:
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between 0 and %.0f", domain.MaxRating))
	}
	return nil
}
