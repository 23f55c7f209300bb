package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const clearCart = `-- name: ClearCart :execrows
DELETE FROM cart_items
WHERE cart_id = $1
`

func (q *Queries) ClearCart(ctx context.Context, cartID pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, clearCart, cartID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createGuestCart = `-- name: CreateGuestCart :exec
INSERT INTO carts (session_key)
VALUES ($1)
ON CONFLICT (session_key) WHERE user_id IS NULL DO NOTHING
`

func (q *Queries) CreateGuestCart(ctx context.Context, sessionKey pgtype.Text) error {
	_, err := q.db.Exec(ctx, createGuestCart, sessionKey)
	return err
}

const createUserCart = `-- name: CreateUserCart :exec
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`

func (q *Queries) CreateUserCart(ctx context.Context, userID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, createUserCart, userID)
	return err
}

const deleteCartItem = `-- name: DeleteCartItem :execrows
DELETE FROM cart_items
WHERE id = $1 AND cart_id = $2
`

type DeleteCartItemParams struct {
	ID     pgtype.UUID `json:"id"`
	CartID pgtype.UUID `json:"cart_id"`
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCartItem, arg.ID, arg.CartID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteStaleGuestCarts = `-- name: DeleteStaleGuestCarts :execrows
DELETE FROM carts
WHERE user_id IS NULL
  AND updated_at < $1
`

func (q *Queries) DeleteStaleGuestCarts(ctx context.Context, updatedBefore pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, deleteStaleGuestCarts, updatedBefore)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getCartBySessionKey = `-- name: GetCartBySessionKey :one
SELECT id, user_id, session_key, created_at, updated_at
FROM carts
WHERE session_key = $1 AND user_id IS NULL
`

func (q *Queries) GetCartBySessionKey(ctx context.Context, sessionKey pgtype.Text) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartBySessionKey, sessionKey)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.SessionKey,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCartByUserID = `-- name: GetCartByUserID :one
SELECT id, user_id, session_key, created_at, updated_at
FROM carts
WHERE user_id = $1
`

func (q *Queries) GetCartByUserID(ctx context.Context, userID pgtype.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, getCartByUserID, userID)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.SessionKey,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCartItem = `-- name: GetCartItem :one
SELECT
    ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.unit_price, ci.created_at, ci.updated_at,
    p.name AS product_name,
    p.sku AS product_sku,
    p.stock_quantity AS product_stock_quantity,
    p.is_active AS product_is_active,
    COALESCE(img.url, '')::text AS image_url
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
LEFT JOIN LATERAL (
    SELECT pi.url
    FROM product_images pi
    WHERE pi.product_id = p.id
    ORDER BY pi.is_primary DESC, pi.sort_order, pi.created_at
    LIMIT 1
) img ON TRUE
WHERE ci.id = $1 AND ci.cart_id = $2
`

type GetCartItemParams struct {
	ID     pgtype.UUID `json:"id"`
	CartID pgtype.UUID `json:"cart_id"`
}

type GetCartItemRow struct {
	ID                   pgtype.UUID        `json:"id"`
	CartID               pgtype.UUID        `json:"cart_id"`
	ProductID            pgtype.UUID        `json:"product_id"`
	Quantity             int32              `json:"quantity"`
	UnitPrice            pgtype.Numeric     `json:"unit_price"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
	ProductName          string             `json:"product_name"`
	ProductSku           string             `json:"product_sku"`
	ProductStockQuantity int32              `json:"product_stock_quantity"`
	ProductIsActive      bool               `json:"product_is_active"`
	ImageUrl             string             `json:"image_url"`
}

func (q *Queries) GetCartItem(ctx context.Context, arg GetCartItemParams) (GetCartItemRow, error) {
	row := q.db.QueryRow(ctx, getCartItem, arg.ID, arg.CartID)
	var i GetCartItemRow
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.UnitPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.ProductName,
		&i.ProductSku,
		&i.ProductStockQuantity,
		&i.ProductIsActive,
		&i.ImageUrl,
	)
	return i, err
}

const getCartItemByProductForUpdate = `-- name: GetCartItemByProductForUpdate :one
SELECT id, cart_id, product_id, quantity, unit_price, created_at, updated_at
FROM cart_items
WHERE cart_id = $1 AND product_id = $2
FOR UPDATE
`

type GetCartItemByProductForUpdateParams struct {
	CartID    pgtype.UUID `json:"cart_id"`
	ProductID pgtype.UUID `json:"product_id"`
}

func (q *Queries) GetCartItemByProductForUpdate(ctx context.Context, arg GetCartItemByProductForUpdateParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, getCartItemByProductForUpdate, arg.CartID, arg.ProductID)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.UnitPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCartItemForUpdate = `-- name: GetCartItemForUpdate :one
SELECT id, cart_id, product_id, quantity, unit_price, created_at, updated_at
FROM cart_items
WHERE id = $1 AND cart_id = $2
FOR UPDATE
`

type GetCartItemForUpdateParams struct {
	ID     pgtype.UUID `json:"id"`
	CartID pgtype.UUID `json:"cart_id"`
}

func (q *Queries) GetCartItemForUpdate(ctx context.Context, arg GetCartItemForUpdateParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, getCartItemForUpdate, arg.ID, arg.CartID)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.UnitPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCartItems = `-- name: GetCartItems :many
SELECT
    ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.unit_price, ci.created_at, ci.updated_at,
    p.name AS product_name,
    p.sku AS product_sku,
    p.stock_quantity AS product_stock_quantity,
    p.is_active AS product_is_active,
    COALESCE(img.url, '')::text AS image_url
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
LEFT JOIN LATERAL (
    SELECT pi.url
    FROM product_images pi
    WHERE pi.product_id = p.id
    ORDER BY pi.is_primary DESC, pi.sort_order, pi.created_at
    LIMIT 1
) img ON TRUE
WHERE ci.cart_id = $1
ORDER BY ci.created_at, ci.id
`

type GetCartItemsRow struct {
	ID                   pgtype.UUID        `json:"id"`
	CartID               pgtype.UUID        `json:"cart_id"`
	ProductID            pgtype.UUID        `json:"product_id"`
	Quantity             int32              `json:"quantity"`
	UnitPrice            pgtype.Numeric     `json:"unit_price"`
	CreatedAt            pgtype.Timestamptz `json:"created_at"`
	UpdatedAt            pgtype.Timestamptz `json:"updated_at"`
	ProductName          string             `json:"product_name"`
	ProductSku           string             `json:"product_sku"`
	ProductStockQuantity int32              `json:"product_stock_quantity"`
	ProductIsActive      bool               `json:"product_is_active"`
	ImageUrl             string             `json:"image_url"`
}

func (q *Queries) GetCartItems(ctx context.Context, cartID pgtype.UUID) ([]GetCartItemsRow, error) {
	rows, err := q.db.Query(ctx, getCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetCartItemsRow{}
	for rows.Next() {
		var i GetCartItemsRow
		if err := rows.Scan(
			&i.ID,
			&i.CartID,
			&i.ProductID,
			&i.Quantity,
			&i.UnitPrice,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.ProductName,
			&i.ProductSku,
			&i.ProductStockQuantity,
			&i.ProductIsActive,
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

const insertCartItem = `-- name: InsertCartItem :one
INSERT INTO cart_items (cart_id, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cart_id, product_id) DO NOTHING
RETURNING id, cart_id, product_id, quantity, unit_price, created_at, updated_at
`

type InsertCartItemParams struct {
	CartID    pgtype.UUID    `json:"cart_id"`
	ProductID pgtype.UUID    `json:"product_id"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
}

// InsertCartItem returns pgx.ErrNoRows when a line for the product already
// exists in the cart.
func (q *Queries) InsertCartItem(ctx context.Context, arg InsertCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, insertCartItem,
		arg.CartID,
		arg.ProductID,
		arg.Quantity,
		arg.UnitPrice,
	)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.UnitPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const touchCart = `-- name: TouchCart :exec
UPDATE carts
SET updated_at = NOW()
WHERE id = $1
`

func (q *Queries) TouchCart(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, touchCart, id)
	return err
}

const updateCartItemQuantity = `-- name: UpdateCartItemQuantity :one
UPDATE cart_items
SET quantity = $3, updated_at = NOW()
WHERE id = $1 AND cart_id = $2
RETURNING id, cart_id, product_id, quantity, unit_price, created_at, updated_at
`

type UpdateCartItemQuantityParams struct {
	ID       pgtype.UUID `json:"id"`
	CartID   pgtype.UUID `json:"cart_id"`
	Quantity int32       `json:"quantity"`
}

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, updateCartItemQuantity, arg.ID, arg.CartID, arg.Quantity)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.ProductID,
		&i.Quantity,
		&i.UnitPrice,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
