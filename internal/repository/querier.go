package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	ActivateUser(ctx context.Context, id pgtype.UUID) error
	AddressLabelTaken(ctx context.Context, arg AddressLabelTakenParams) (bool, error)
	ClearCart(ctx context.Context, cartID pgtype.UUID) (int64, error)
	ClearPrimaryAddress(ctx context.Context, userID pgtype.UUID) error
	CountAddresses(ctx context.Context, userID pgtype.UUID) (int64, error)
	CountOrdersByUser(ctx context.Context, userID pgtype.UUID) (int64, error)
	CountProducts(ctx context.Context, arg CountProductsParams) (int64, error)
	CreateAccountToken(ctx context.Context, arg CreateAccountTokenParams) error
	CreateAddress(ctx context.Context, arg CreateAddressParams) (Address, error)
	CreateGuestCart(ctx context.Context, sessionKey pgtype.Text) error
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	CreateUserCart(ctx context.Context, userID pgtype.UUID) error
	DeleteAddress(ctx context.Context, arg DeleteAddressParams) (int64, error)
	DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error)
	// DeleteStaleGuestCarts removes guest carts untouched since updatedBefore.
	// Lines go with them through ON DELETE CASCADE.
	DeleteStaleGuestCarts(ctx context.Context, updatedBefore pgtype.Timestamptz) (int64, error)
	// EmailTaken compares case-insensitively and ignores ExcludeID.
	EmailTaken(ctx context.Context, arg EmailTakenParams) (bool, error)
	GetActiveCategory(ctx context.Context, id pgtype.UUID) (Category, error)
	GetActiveProduct(ctx context.Context, id pgtype.UUID) (GetActiveProductRow, error)
	GetActiveUser(ctx context.Context, id pgtype.UUID) (User, error)
	GetAddress(ctx context.Context, arg GetAddressParams) (Address, error)
	GetCartBySessionKey(ctx context.Context, sessionKey pgtype.Text) (Cart, error)
	GetCartByUserID(ctx context.Context, userID pgtype.UUID) (Cart, error)
	GetCartItem(ctx context.Context, arg GetCartItemParams) (GetCartItemRow, error)
	GetCartItemByProductForUpdate(ctx context.Context, arg GetCartItemByProductForUpdateParams) (CartItem, error)
	GetCartItemForUpdate(ctx context.Context, arg GetCartItemForUpdateParams) (CartItem, error)
	GetCartItems(ctx context.Context, cartID pgtype.UUID) ([]GetCartItemsRow, error)
	// GetLiveAccountTokenForUpdate returns pgx.ErrNoRows for used or expired tokens.
	GetLiveAccountTokenForUpdate(ctx context.Context, arg GetLiveAccountTokenForUpdateParams) (AccountToken, error)
	GetOrderForUser(ctx context.Context, arg GetOrderForUserParams) (Order, error)
	GetOrderItems(ctx context.Context, orderID pgtype.UUID) ([]GetOrderItemsRow, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserForUpdate(ctx context.Context, id pgtype.UUID) (User, error)
	// InsertCartItem returns pgx.ErrNoRows when a line for the product already
	// exists in the cart.
	InsertCartItem(ctx context.Context, arg InsertCartItemParams) (CartItem, error)
	InvalidateAccountTokens(ctx context.Context, arg InvalidateAccountTokensParams) (int64, error)
	ListActiveCategories(ctx context.Context) ([]Category, error)
	// ListAddresses returns the primary address first, then oldest first.
	ListAddresses(ctx context.Context, userID pgtype.UUID) ([]Address, error)
	ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error)
	ListProductImages(ctx context.Context, productID pgtype.UUID) ([]ProductImage, error)
	// ListProducts orders by the whitelisted key in Ordering and falls back to
	// newest first.
	ListProducts(ctx context.Context, arg ListProductsParams) ([]ListProductsRow, error)
	SetPrimaryAddress(ctx context.Context, arg SetPrimaryAddressParams) (Address, error)
	TouchCart(ctx context.Context, id pgtype.UUID) error
	UpdateAddress(ctx context.Context, arg UpdateAddressParams) (Address, error)
	UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error)
	UpdateLastLogin(ctx context.Context, id pgtype.UUID) error
	UpdateUserEmail(ctx context.Context, arg UpdateUserEmailParams) error
	UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error
	UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error)
}

var _ Querier = (*Queries)(nil)
