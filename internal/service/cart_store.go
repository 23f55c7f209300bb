package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CartStore owns carts and their lines. Every item operation is scoped to
// a cart; an item of another cart behaves exactly like a missing one.
//
// A CartStore built over a transaction-bound Querier runs all of its
// operations inside that transaction.
type CartStore struct {
	q repository.Querier
}

func NewCartStore(q repository.Querier) *CartStore {
	return &CartStore{q: q}
}

// GetOrCreateCart returns the cart owned by identity, creating it on first
// use. created reports whether this call inserted the cart. Concurrent
// first-time calls for the same identity converge on one cart.
func (s *CartStore) GetOrCreateCart(ctx context.Context, identity domain.Identity) (cart domain.Cart, created bool, err error) {
	if err := identity.Validate(); err != nil {
		return domain.Cart{}, false, err
	}

	row, err := s.findCart(ctx, identity)
	if err == nil {
		return cartFromRow(row), false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Cart{}, false, fmt.Errorf("failed to get cart: %w", err)
	}

	if identity.IsGuest() {
		err = s.q.CreateGuestCart(ctx, repository.Text(identity.GuestToken))
	} else {
		err = s.q.CreateUserCart(ctx, repository.UUID(identity.UserID))
	}
	if err != nil {
		return domain.Cart{}, false, fmt.Errorf("failed to create cart: %w", err)
	}

	row, err = s.findCart(ctx, identity)
	if err != nil {
		return domain.Cart{}, false, fmt.Errorf("failed to get cart after create: %w", err)
	}
	return cartFromRow(row), true, nil
}

func (s *CartStore) findCart(ctx context.Context, identity domain.Identity) (repository.Cart, error) {
	if identity.IsGuest() {
		return s.q.GetCartBySessionKey(ctx, repository.Text(identity.GuestToken))
	}
	return s.q.GetCartByUserID(ctx, repository.UUID(identity.UserID))
}

// GetItem returns the line only if it belongs to cart.
func (s *CartStore) GetItem(ctx context.Context, cart domain.Cart, itemID uuid.UUID) (domain.CartItem, error) {
	row, err := s.q.GetCartItem(ctx, repository.GetCartItemParams{
		ID:     repository.UUID(itemID),
		CartID: repository.UUID(cart.ID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CartItem{}, ErrCartItemNotFound
		}
		return domain.CartItem{}, fmt.Errorf("failed to get cart item: %w", err)
	}
	return cartItemFromRow(repository.GetCartItemsRow(row)), nil
}

// ListItems returns the cart's lines, oldest first.
func (s *CartStore) ListItems(ctx context.Context, cart domain.Cart) ([]domain.CartItem, error) {
	rows, err := s.q.GetCartItems(ctx, repository.UUID(cart.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}

	items := make([]domain.CartItem, len(rows))
	for i, row := range rows {
		items[i] = cartItemFromRow(row)
	}
	return items, nil
}

// UpsertItem returns the existing line for product, locked for update, or
// inserts a new one with quantity and the product's current price. created
// reports which happened; an existing line is returned unchanged for the
// caller to merge into.
func (s *CartStore) UpsertItem(ctx context.Context, cart domain.Cart, product domain.Product, quantity int32) (item domain.CartItem, created bool, err error) {
	existing, err := s.lockItemByProduct(ctx, cart, product.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.CartItem{}, false, fmt.Errorf("failed to lock cart item: %w", err)
	}

	row, err := s.q.InsertCartItem(ctx, repository.InsertCartItemParams{
		CartID:    repository.UUID(cart.ID),
		ProductID: repository.UUID(product.ID),
		Quantity:  quantity,
		UnitPrice: repository.Numeric(product.Price),
	})
	if err == nil {
		return lockedItemFromRow(row), true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.CartItem{}, false, fmt.Errorf("failed to insert cart item: %w", err)
	}

	// A concurrent request inserted the line first.
	existing, err = s.lockItemByProduct(ctx, cart, product.ID)
	if err != nil {
		return domain.CartItem{}, false, fmt.Errorf("failed to lock cart item after conflict: %w", err)
	}
	return existing, false, nil
}

func (s *CartStore) lockItemByProduct(ctx context.Context, cart domain.Cart, productID uuid.UUID) (domain.CartItem, error) {
	row, err := s.q.GetCartItemByProductForUpdate(ctx, repository.GetCartItemByProductForUpdateParams{
		CartID:    repository.UUID(cart.ID),
		ProductID: repository.UUID(productID),
	})
	if err != nil {
		return domain.CartItem{}, err
	}
	return lockedItemFromRow(row), nil
}

// LockItem locks the line for update if it belongs to cart.
func (s *CartStore) LockItem(ctx context.Context, cart domain.Cart, itemID uuid.UUID) (domain.CartItem, error) {
	row, err := s.q.GetCartItemForUpdate(ctx, repository.GetCartItemForUpdateParams{
		ID:     repository.UUID(itemID),
		CartID: repository.UUID(cart.ID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CartItem{}, ErrCartItemNotFound
		}
		return domain.CartItem{}, fmt.Errorf("failed to lock cart item: %w", err)
	}
	return lockedItemFromRow(row), nil
}

// SetQuantity overwrites the quantity of a line in cart.
func (s *CartStore) SetQuantity(ctx context.Context, cart domain.Cart, itemID uuid.UUID, quantity int32) error {
	_, err := s.q.UpdateCartItemQuantity(ctx, repository.UpdateCartItemQuantityParams{
		ID:       repository.UUID(itemID),
		CartID:   repository.UUID(cart.ID),
		Quantity: quantity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("failed to update cart item quantity: %w", err)
	}
	return nil
}

// DeleteItem removes a line from cart.
func (s *CartStore) DeleteItem(ctx context.Context, cart domain.Cart, itemID uuid.UUID) error {
	n, err := s.q.DeleteCartItem(ctx, repository.DeleteCartItemParams{
		ID:     repository.UUID(itemID),
		CartID: repository.UUID(cart.ID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	if n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear removes every line of cart and returns how many were removed.
func (s *CartStore) Clear(ctx context.Context, cart domain.Cart) (int64, error) {
	n, err := s.q.ClearCart(ctx, repository.UUID(cart.ID))
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return n, nil
}

// Touch marks the cart as modified.
func (s *CartStore) Touch(ctx context.Context, cart domain.Cart) error {
	if err := s.q.TouchCart(ctx, repository.UUID(cart.ID)); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}
	return nil
}

// parseID parses a client-supplied id. Malformed ids are reported as
// notFound so they are indistinguishable from missing rows.
func parseID(raw string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

func cartFromRow(row repository.Cart) domain.Cart {
	return domain.Cart{
		ID:         repository.FromUUID(row.ID),
		UserID:     repository.FromUUID(row.UserID),
		SessionKey: row.SessionKey.String,
		CreatedAt:  repository.Time(row.CreatedAt),
		UpdatedAt:  repository.Time(row.UpdatedAt),
	}
}

func cartItemFromRow(row repository.GetCartItemsRow) domain.CartItem {
	return domain.CartItem{
		ID:     repository.FromUUID(row.ID),
		CartID: repository.FromUUID(row.CartID),
		Product: domain.CartProduct{
			ID:            repository.FromUUID(row.ProductID),
			Name:          row.ProductName,
			SKU:           row.ProductSku,
			StockQuantity: row.ProductStockQuantity,
			IsActive:      row.ProductIsActive,
			ImageURL:      row.ImageUrl,
		},
		Quantity:  row.Quantity,
		UnitPrice: repository.Decimal(row.UnitPrice),
		CreatedAt: repository.Time(row.CreatedAt),
		UpdatedAt: repository.Time(row.UpdatedAt),
	}
}

// lockedItemFromRow carries only the product id; product details are read
// separately when needed.
func lockedItemFromRow(row repository.CartItem) domain.CartItem {
	return domain.CartItem{
		ID:        repository.FromUUID(row.ID),
		CartID:    repository.FromUUID(row.CartID),
		Product:   domain.CartProduct{ID: repository.FromUUID(row.ProductID)},
		Quantity:  row.Quantity,
		UnitPrice: repository.Decimal(row.UnitPrice),
		CreatedAt: repository.Time(row.CreatedAt),
		UpdatedAt: repository.Time(row.UpdatedAt),
	}
}
