package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/dukerupert/marbelle/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductService provides read-only catalog operations. Only active
// products and categories are visible.
type ProductService interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.PageResult[domain.Product], error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, categoryID string) (*domain.Category, error)
}

type productService struct {
	repo    repository.Querier
	metrics *telemetry.BusinessMetrics
}

// NewProductService creates a new ProductService instance
func NewProductService(repo repository.Querier, metrics *telemetry.BusinessMetrics) ProductService {
	return &productService{
		repo:    repo,
		metrics: metrics,
	}
}

// ListProducts returns one page of products matching filter.
func (s *productService) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.PageResult[domain.Product], error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, domain.NewValidationError("product.list", "min_price", "Minimum price cannot exceed maximum price.")
	}

	page := filter.Page.Normalize()

	ordering := filter.Ordering
	if !ordering.Valid() {
		ordering = domain.DefaultProductOrder
	}

	rows, err := s.repo.ListProducts(ctx, repository.ListProductsParams{
		CategoryID: repository.UUID(filter.CategoryID),
		MinPrice:   repository.NumericPtr(filter.MinPrice),
		MaxPrice:   repository.NumericPtr(filter.MaxPrice),
		InStock:    repository.BoolPtr(filter.InStock),
		Search:     filter.Search,
		Ordering:   string(ordering),
		Limit:      int32(page.Size),
		Offset:     int32(page.Offset()),
	})
	if err != nil {
		return nil, domain.Internal(err, "product.list", "failed to list products")
	}

	count, err := s.repo.CountProducts(ctx, repository.CountProductsParams{
		CategoryID: repository.UUID(filter.CategoryID),
		MinPrice:   repository.NumericPtr(filter.MinPrice),
		MaxPrice:   repository.NumericPtr(filter.MaxPrice),
		InStock:    repository.BoolPtr(filter.InStock),
		Search:     filter.Search,
	})
	if err != nil {
		return nil, domain.Internal(err, "product.list", "failed to count products")
	}

	items := make([]domain.Product, len(rows))
	for i, row := range rows {
		items[i] = productFromListRow(row)
	}

	s.metrics.RecordProductSearch(filterType(filter))

	return &domain.PageResult[domain.Product]{Items: items, Count: count}, nil
}

// GetProduct returns an active product with its images.
func (s *productService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	id, err := parseID(productID, ErrProductNotFound)
	if err != nil {
		return nil, err
	}

	product, err := getActiveProduct(ctx, s.repo, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, domain.Internal(err, "product.get", "failed to get product")
	}

	images, err := s.repo.ListProductImages(ctx, repository.UUID(id))
	if err != nil {
		return nil, domain.Internal(err, "product.get", "failed to get product images")
	}

	product.Images = make([]domain.ProductImage, len(images))
	for i, img := range images {
		product.Images[i] = domain.ProductImage{
			ID:        repository.FromUUID(img.ID),
			URL:       img.Url,
			AltText:   img.AltText,
			IsPrimary: img.IsPrimary,
			SortOrder: img.SortOrder,
		}
	}
	if len(product.Images) > 0 {
		product.ImageURL = product.Images[0].URL
	}

	s.metrics.RecordProductView(id.String())

	return &product, nil
}

// ListCategories returns active categories ordered by name.
func (s *productService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.repo.ListActiveCategories(ctx)
	if err != nil {
		return nil, domain.Internal(err, "category.list", "failed to list categories")
	}

	categories := make([]domain.Category, len(rows))
	for i, row := range rows {
		categories[i] = categoryFromRow(row)
	}
	return categories, nil
}

// GetCategory returns an active category.
func (s *productService) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	id, err := parseID(categoryID, ErrCategoryNotFound)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.GetActiveCategory(ctx, repository.UUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, domain.Internal(err, "category.get", fmt.Sprintf("failed to get category %s", id))
	}

	category := categoryFromRow(row)
	return &category, nil
}

// filterType picks the metrics label for a listing request.
func filterType(f domain.ProductFilter) string {
	switch {
	case f.Search != "":
		return "search"
	case f.CategoryID != uuid.Nil:
		return "category"
	case f.MinPrice != nil || f.MaxPrice != nil:
		return "price"
	case f.InStock != nil:
		return "stock"
	}
	return "none"
}

func productFromRow(row repository.GetActiveProductRow) domain.Product {
	return domain.Product{
		ID:            repository.FromUUID(row.ID),
		Name:          row.Name,
		Description:   row.Description,
		SKU:           row.Sku,
		Price:         repository.Decimal(row.Price),
		UnitOfMeasure: domain.UnitOfMeasure(row.UnitOfMeasure),
		StockQuantity: row.StockQuantity,
		IsActive:      row.IsActive,
		CategoryID:    repository.FromUUID(row.CategoryID),
		CategoryName:  row.CategoryName,
		CreatedAt:     repository.Time(row.CreatedAt),
		UpdatedAt:     repository.Time(row.UpdatedAt),
	}
}

func productFromListRow(row repository.ListProductsRow) domain.Product {
	return domain.Product{
		ID:            repository.FromUUID(row.ID),
		Name:          row.Name,
		Description:   row.Description,
		SKU:           row.Sku,
		Price:         repository.Decimal(row.Price),
		UnitOfMeasure: domain.UnitOfMeasure(row.UnitOfMeasure),
		StockQuantity: row.StockQuantity,
		IsActive:      row.IsActive,
		CategoryID:    repository.FromUUID(row.CategoryID),
		CategoryName:  row.CategoryName,
		ImageURL:      row.ImageUrl,
		CreatedAt:     repository.Time(row.CreatedAt),
		UpdatedAt:     repository.Time(row.UpdatedAt),
	}
}

func categoryFromRow(row repository.Category) domain.Category {
	return domain.Category{
		ID:          repository.FromUUID(row.ID),
		Name:        row.Name,
		Description: row.Description,
		IsActive:    row.IsActive,
		CreatedAt:   repository.Time(row.CreatedAt),
		UpdatedAt:   repository.Time(row.UpdatedAt),
	}
}
