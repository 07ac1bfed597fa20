package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/rastuci/api/internal/domain"
	"github.com/rastuci/api/internal/repositories"
)

const defaultProductPageSize = 50

var (
	// ErrProductNotFound indicates the catalog entry does not exist.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrCatalogInvalidInput signals the caller provided invalid data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
)

// CatalogServiceDeps bundles dependencies for the public catalog surface.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
}

type catalogService struct {
	products repositories.ProductRepository
}

// NewCatalogService wires a CatalogService backed by the product repository.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	return &catalogService{products: deps.Products}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error) {
	if s == nil || s.products == nil {
		return domain.CursorPage[Product]{}, ErrProductNotFound
	}
	if filter.Pagination.PageSize <= 0 {
		filter.Pagination.PageSize = defaultProductPageSize
	}
	page, err := s.products.List(ctx, repositories.ProductListFilter{
		CategoryID:    strings.TrimSpace(filter.CategoryID),
		OnlyPublished: filter.OnlyPublished,
		Pagination:    filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Product]{}, fmt.Errorf("catalog: list products: %w", err)
	}
	return page, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if s == nil || s.products == nil {
		return Product{}, ErrProductNotFound
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if repoErr, ok := err.(repositories.RepositoryError); ok && repoErr.IsNotFound() {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("catalog: find product %s: %w", productID, err)
	}
	return product, nil
}
