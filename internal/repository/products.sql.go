package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const countProducts = `-- name: CountProducts :one
SELECT COUNT(*)
FROM products p
WHERE p.is_active = TRUE
  AND ($1::uuid IS NULL OR p.category_id = $1)
  AND ($2::numeric IS NULL OR p.price >= $2)
  AND ($3::numeric IS NULL OR p.price <= $3)
  AND ($4::boolean IS NULL OR (p.stock_quantity > 0) = $4)
  AND ($5::text = ''
       OR p.name ILIKE '%' || $5 || '%'
       OR p.description ILIKE '%' || $5 || '%'
       OR p.sku ILIKE '%' || $5 || '%')
`

type CountProductsParams struct {
	CategoryID pgtype.UUID    `json:"category_id"`
	MinPrice   pgtype.Numeric `json:"min_price"`
	MaxPrice   pgtype.Numeric `json:"max_price"`
	InStock    pgtype.Bool    `json:"in_stock"`
	Search     string         `json:"search"`
}

func (q *Queries) CountProducts(ctx context.Context, arg CountProductsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countProducts,
		arg.CategoryID,
		arg.MinPrice,
		arg.MaxPrice,
		arg.InStock,
		arg.Search,
	)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getActiveCategory = `-- name: GetActiveCategory :one
SELECT id, name, description, is_active, created_at, updated_at
FROM categories
WHERE id = $1 AND is_active = TRUE
`

func (q *Queries) GetActiveCategory(ctx context.Context, id pgtype.UUID) (Category, error) {
	row := q.db.QueryRow(ctx, getActiveCategory, id)
	var i Category
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getActiveProduct = `-- name: GetActiveProduct :one
SELECT
    p.id, p.name, p.description, p.sku, p.price, p.unit_of_measure, p.category_id,
    p.stock_quantity, p.is_active, p.created_at, p.updated_at,
    c.name AS category_name
FROM products p
JOIN categories c ON c.id = p.category_id
WHERE p.id = $1 AND p.is_active = TRUE
`

type GetActiveProductRow struct {
	ID            pgtype.UUID        `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Sku           string             `json:"sku"`
	Price         pgtype.Numeric     `json:"price"`
	UnitOfMeasure string             `json:"unit_of_measure"`
	CategoryID    pgtype.UUID        `json:"category_id"`
	StockQuantity int32              `json:"stock_quantity"`
	IsActive      bool               `json:"is_active"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
	CategoryName  string             `json:"category_name"`
}

func (q *Queries) GetActiveProduct(ctx context.Context, id pgtype.UUID) (GetActiveProductRow, error) {
	row := q.db.QueryRow(ctx, getActiveProduct, id)
	var i GetActiveProductRow
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Sku,
		&i.Price,
		&i.UnitOfMeasure,
		&i.CategoryID,
		&i.StockQuantity,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CategoryName,
	)
	return i, err
}

const listActiveCategories = `-- name: ListActiveCategories :many
SELECT id, name, description, is_active, created_at, updated_at
FROM categories
WHERE is_active = TRUE
ORDER BY name
`

func (q *Queries) ListActiveCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listActiveCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var i Category
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.IsActive,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listProductImages = `-- name: ListProductImages :many
SELECT id, product_id, url, alt_text, is_primary, sort_order, created_at
FROM product_images
WHERE product_id = $1
ORDER BY is_primary DESC, sort_order, created_at
`

func (q *Queries) ListProductImages(ctx context.Context, productID pgtype.UUID) ([]ProductImage, error) {
	rows, err := q.db.Query(ctx, listProductImages, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ProductImage{}
	for rows.Next() {
		var i ProductImage
		if err := rows.Scan(
			&i.ID,
			&i.ProductID,
			&i.Url,
			&i.AltText,
			&i.IsPrimary,
			&i.SortOrder,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listProducts = `-- name: ListProducts :many
SELECT
    p.id, p.name, p.description, p.sku, p.price, p.unit_of_measure, p.category_id,
    p.stock_quantity, p.is_active, p.created_at, p.updated_at,
    c.name AS category_name,
    COALESCE(img.url, '')::text AS image_url
FROM products p
JOIN categories c ON c.id = p.category_id
LEFT JOIN LATERAL (
    SELECT pi.url
    FROM product_images pi
    WHERE pi.product_id = p.id
    ORDER BY pi.is_primary DESC, pi.sort_order, pi.created_at
    LIMIT 1
) img ON TRUE
WHERE p.is_active = TRUE
  AND ($1::uuid IS NULL OR p.category_id = $1)
  AND ($2::numeric IS NULL OR p.price >= $2)
  AND ($3::numeric IS NULL OR p.price <= $3)
  AND ($4::boolean IS NULL OR (p.stock_quantity > 0) = $4)
  AND ($5::text = ''
       OR p.name ILIKE '%' || $5 || '%'
       OR p.description ILIKE '%' || $5 || '%'
       OR p.sku ILIKE '%' || $5 || '%')
ORDER BY
    CASE WHEN $6::text = 'name' THEN p.name END ASC,
    CASE WHEN $6::text = '-name' THEN p.name END DESC,
    CASE WHEN $6::text = 'price' THEN p.price END ASC,
    CASE WHEN $6::text = '-price' THEN p.price END DESC,
    CASE WHEN $6::text = 'created_at' THEN p.created_at END ASC,
    CASE WHEN $6::text = 'stock_quantity' THEN p.stock_quantity END ASC,
    CASE WHEN $6::text = '-stock_quantity' THEN p.stock_quantity END DESC,
    p.created_at DESC,
    p.id
LIMIT $7 OFFSET $8
`

type ListProductsParams struct {
	CategoryID pgtype.UUID    `json:"category_id"`
	MinPrice   pgtype.Numeric `json:"min_price"`
	MaxPrice   pgtype.Numeric `json:"max_price"`
	InStock    pgtype.Bool    `json:"in_stock"`
	Search     string         `json:"search"`
	Ordering   string         `json:"ordering"`
	Limit      int32          `json:"limit"`
	Offset     int32          `json:"offset"`
}

type ListProductsRow struct {
	ID            pgtype.UUID        `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Sku           string             `json:"sku"`
	Price         pgtype.Numeric     `json:"price"`
	UnitOfMeasure string             `json:"unit_of_measure"`
	CategoryID    pgtype.UUID        `json:"category_id"`
	StockQuantity int32              `json:"stock_quantity"`
	IsActive      bool               `json:"is_active"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
	CategoryName  string             `json:"category_name"`
	ImageUrl      string             `json:"image_url"`
}

// ListProducts orders by the whitelisted key in Ordering and falls back to
// newest first.
func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]ListProductsRow, error) {
	rows, err := q.db.Query(ctx, listProducts,
		arg.CategoryID,
		arg.MinPrice,
		arg.MaxPrice,
		arg.InStock,
		arg.Search,
		arg.Ordering,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListProductsRow{}
	for rows.Next() {
		var i ListProductsRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.Sku,
			&i.Price,
			&i.UnitOfMeasure,
			&i.CategoryID,
			&i.StockQuantity,
			&i.IsActive,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.CategoryName,
			&i.ImageUrl,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
