package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitOfMeasure is the unit a product is priced and sold in.
type UnitOfMeasure string

const (
	UnitSquareMeters UnitOfMeasure = "sqm"
	UnitPiece        UnitOfMeasure = "piece"
	UnitSlab         UnitOfMeasure = "slab"
	UnitLinearMeters UnitOfMeasure = "linear_m"
)

// Category groups products in the catalog (flat, no nesting).
type Category struct {
	ID          uuid.UUID
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductImage is one image attached to a product.
type ProductImage struct {
	ID        uuid.UUID
	URL       string
	AltText   string
	IsPrimary bool
	SortOrder int32
}

// Product is a catalog item. Products are read-only to the cart; price and
// stock are read live when a line is added or updated.
type Product struct {
	ID            uuid.UUID
	Name          string
	Description   string
	SKU           string
	Price         decimal.Decimal
	UnitOfMeasure UnitOfMeasure
	StockQuantity int32
	IsActive      bool
	CategoryID    uuid.UUID
	CategoryName  string
	ImageURL      string
	Images        []ProductImage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// ProductOrdering is a whitelisted sort key for catalog listings.
type ProductOrdering string

const (
	OrderByNameAsc     ProductOrdering = "name"
	OrderByNameDesc    ProductOrdering = "-name"
	OrderByPriceAsc    ProductOrdering = "price"
	OrderByPriceDesc   ProductOrdering = "-price"
	OrderByCreatedAsc  ProductOrdering = "created_at"
	OrderByCreatedDesc ProductOrdering = "-created_at"
	OrderByStockAsc    ProductOrdering = "stock_quantity"
	OrderByStockDesc   ProductOrdering = "-stock_quantity"
)

// DefaultProductOrder lists newest products first.
const DefaultProductOrder = OrderByCreatedDesc

// Valid reports whether o is one of the supported sort keys.
func (o ProductOrdering) Valid() bool {
	switch o {
	case OrderByNameAsc, OrderByNameDesc, OrderByPriceAsc, OrderByPriceDesc,
		OrderByCreatedAsc, OrderByCreatedDesc, OrderByStockAsc, OrderByStockDesc:
		return true
	}
	return false
}

// ProductFilter narrows a catalog listing. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    *bool
	Search     string
	Ordering   ProductOrdering
	Page       Page
}

// Page-number pagination bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a page-number window over a listing.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to valid bounds: numbering starts at 1, the
// size defaults to DefaultPageSize and is capped at MaxPageSize.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// PageResult is one page of results with the total match count.
type PageResult[T any] struct {
	Items []T
	Count int64
}
