package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/handler"
	"github.com/dukerupert/marbelle/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductHandler serves the read-only catalog routes.
type ProductHandler struct {
	products service.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(products service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// List handles GET /api/products/
//
// Query parameters: category, min_price, max_price, in_stock, search,
// ordering, page, page_size.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.list(w, r, filter, "Results retrieved successfully.")
}

// Get handles GET /api/products/{id}/
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, "Product retrieved successfully.", newProductResponse(*product))
}

// ListCategories handles GET /api/categories/
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.ListCategories(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	// The category list is small and fetched whole; pages are cut in memory.
	page := handler.ParsePage(r)
	start := min(page.Offset(), len(categories))
	end := min(start+page.Size, len(categories))

	out := make([]categoryResponse, 0, end-start)
	for _, c := range categories[start:end] {
		out = append(out, newCategoryResponse(c))
	}
	handler.Paginated(w, r, "Results retrieved successfully.", out, int64(len(categories)), page)
}

// GetCategory handles GET /api/categories/{id}/
func (h *ProductHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.products.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, "Category retrieved successfully.", newCategoryResponse(*category))
}

// CategoryProducts handles GET /api/categories/{id}/products/
// It accepts the same query parameters as List; the path wins over ?category.
func (h *ProductHandler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	category, err := h.products.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	filter, err := parseProductFilter(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	filter.CategoryID = category.ID
	h.list(w, r, filter, "Products retrieved successfully.")
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, filter domain.ProductFilter, message string) {
	result, err := h.products.ListProducts(r.Context(), filter)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]productResponse, len(result.Items))
	for i, p := range result.Items {
		out[i] = newProductResponse(p)
	}
	handler.Paginated(w, r, message, out, result.Count, filter.Page)
}

// parseProductFilter reads catalog filters from the query string. All
// malformed values are reported together.
func parseProductFilter(r *http.Request) (domain.ProductFilter, error) {
	const op = "product.list"
	q := r.URL.Query()

	filter := domain.ProductFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Ordering: domain.ProductOrdering(q.Get("ordering")),
		Page:     handler.ParsePage(r),
	}

	var verr error
	if raw := q.Get("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			verr = domain.AddFieldError(verr, "category", "Select a valid choice.")
		}
		filter.CategoryID = id
	}
	for _, field := range []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"min_price", &filter.MinPrice},
		{"max_price", &filter.MaxPrice},
	} {
		raw := q.Get(field.name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			verr = domain.AddFieldError(verr, field.name, "Enter a number.")
			continue
		}
		*field.dst = &d
	}
	if raw := q.Get("in_stock"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			verr = domain.AddFieldError(verr, "in_stock", "Must be true or false.")
		} else {
			filter.InStock = &b
		}
	}

	if verr != nil {
		return domain.ProductFilter{}, withOp(verr, op)
	}
	return filter, nil
}

func withOp(err error, op string) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		ve.Op = op
	}
	return err
}

// --- Response shapes ---

type imageResponse struct {
	ID           uuid.UUID `json:"id"`
	Image        string    `json:"image"`
	AltText      string    `json:"alt_text"`
	IsPrimary    bool      `json:"is_primary"`
	DisplayOrder int32     `json:"display_order"`
}

type productResponse struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         string          `json:"price"`
	UnitOfMeasure string          `json:"unit_of_measure"`
	Category      *uuid.UUID      `json:"category"`
	CategoryName  string          `json:"category_name,omitempty"`
	StockQuantity int32           `json:"stock_quantity"`
	InStock       bool            `json:"in_stock"`
	SKU           string          `json:"sku"`
	Image         *string         `json:"image"`
	Images        []imageResponse `json:"images,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type categoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProductResponse(p domain.Product) productResponse {
	out := productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.StringFixed(2),
		UnitOfMeasure: string(p.UnitOfMeasure),
		CategoryName:  p.CategoryName,
		StockQuantity: p.StockQuantity,
		InStock:       p.InStock(),
		SKU:           p.SKU,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.CategoryID != uuid.Nil {
		id := p.CategoryID
		out.Category = &id
	}
	if p.ImageURL != "" {
		url := p.ImageURL
		out.Image = &url
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, imageResponse{
			ID:           img.ID,
			Image:        img.URL,
			AltText:      img.AltText,
			IsPrimary:    img.IsPrimary,
			DisplayOrder: img.SortOrder,
		})
	}
	return out
}

func newCategoryResponse(c domain.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
