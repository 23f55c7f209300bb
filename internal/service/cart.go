package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/pricing"
	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/dukerupert/marbelle/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CartService provides business logic for shopping cart operations.
// Every operation finds or creates the identity's cart and runs in a single
// transaction: it either fully succeeds or leaves the cart unchanged.
type CartService interface {
	GetCart(ctx context.Context, identity domain.Identity) (*domain.CartSummary, error)
	AddItem(ctx context.Context, identity domain.Identity, productID string, quantity int) (*ItemResult, error)
	UpdateItemQuantity(ctx context.Context, identity domain.Identity, itemID string, quantity int) (*ItemResult, error)
	RemoveItem(ctx context.Context, identity domain.Identity, itemID string) (*RemoveResult, error)
	ClearCart(ctx context.Context, identity domain.Identity) (*domain.CartTotals, error)
}

// ItemResult is a line after a mutation with the recalculated cart totals.
type ItemResult struct {
	Item    domain.CartItem
	Totals  domain.CartTotals
	Created bool
}

// RemoveResult carries the removed product's name for caller messaging.
type RemoveResult struct {
	ProductName string
	Totals      domain.CartTotals
}

type cartService struct {
	store   repository.Store
	pricing *pricing.Calculator
	metrics *telemetry.BusinessMetrics
}

// NewCartService creates a new CartService instance. metrics may be nil.
func NewCartService(store repository.Store, calc *pricing.Calculator, metrics *telemetry.BusinessMetrics) CartService {
	return &cartService{
		store:   store,
		pricing: calc,
		metrics: metrics,
	}
}

// GetCart returns the cart with its lines and totals. Reading a cart counts
// as activity, so a guest who only views their cart keeps it past the sweep.
func (s *cartService) GetCart(ctx context.Context, identity domain.Identity) (*domain.CartSummary, error) {
	var summary *domain.CartSummary

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		carts := NewCartStore(q)

		cart, err := s.openCart(ctx, carts, identity)
		if err != nil {
			return err
		}
		if err := carts.Touch(ctx, cart); err != nil {
			return err
		}

		items, err := carts.ListItems(ctx, cart)
		if err != nil {
			return err
		}

		totals, err := s.pricing.Totals(ctx, items)
		if err != nil {
			return err
		}

		summary = &domain.CartSummary{Cart: cart, Items: items, Totals: totals}
		return nil
	})
	if err != nil {
		return nil, s.fail("cart.get", err)
	}

	return summary, nil
}

// AddItem adds quantity units of a product, merging into the existing line
// when the product is already in the cart. A merged line keeps its
// original unit price.
func (s *cartService) AddItem(ctx context.Context, identity domain.Identity, productID string, quantity int) (*ItemResult, error) {
	const op = "cart.add_item"

	if err := validateQuantity(quantity); err != nil {
		return nil, s.fail(op, err)
	}

	pid, err := parseID(productID, ErrProductNotFound)
	if err != nil {
		return nil, s.fail(op, err)
	}

	var result ItemResult
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		carts := NewCartStore(q)

		cart, err := s.openCart(ctx, carts, identity)
		if err != nil {
			return err
		}

		product, err := getActiveProduct(ctx, q, pid)
		if err != nil {
			return err
		}

		requested := int32(quantity)
		if err := checkStock(product.StockQuantity, requested); err != nil {
			return err
		}

		line, created, err := carts.UpsertItem(ctx, cart, product, requested)
		if err != nil {
			return err
		}

		if !created {
			combined := line.Quantity + requested
			if combined > domain.MaxLineQuantity {
				return ErrQuantityLimitExceeded
			}
			if err := checkStock(product.StockQuantity, combined); err != nil {
				return err
			}
			if err := carts.SetQuantity(ctx, cart, line.ID, combined); err != nil {
				return err
			}
		}

		if err := s.finish(ctx, carts, cart, line.ID, &result); err != nil {
			return err
		}
		result.Created = created
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.RecordItemAdded(identity.Kind(), result.Created)
	s.metrics.ObserveCartValue(identity.Kind(), result.Totals.Total.InexactFloat64())
	return &result, nil
}

// UpdateItemQuantity sets a line's quantity. The same bounds and stock
// checks as AddItem apply to the new quantity.
func (s *cartService) UpdateItemQuantity(ctx context.Context, identity domain.Identity, itemID string, quantity int) (*ItemResult, error) {
	const op = "cart.update_item"

	if err := validateQuantity(quantity); err != nil {
		return nil, s.fail(op, err)
	}

	id, err := parseID(itemID, ErrCartItemNotFound)
	if err != nil {
		return nil, s.fail(op, err)
	}

	var result ItemResult
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		carts := NewCartStore(q)

		cart, err := s.openCart(ctx, carts, identity)
		if err != nil {
			return err
		}

		if _, err := carts.LockItem(ctx, cart, id); err != nil {
			return err
		}

		current, err := carts.GetItem(ctx, cart, id)
		if err != nil {
			return err
		}

		if err := checkStock(current.Product.StockQuantity, int32(quantity)); err != nil {
			return err
		}

		if err := carts.SetQuantity(ctx, cart, id, int32(quantity)); err != nil {
			return err
		}

		return s.finish(ctx, carts, cart, id, &result)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.RecordItemUpdated(identity.Kind())
	s.metrics.ObserveCartValue(identity.Kind(), result.Totals.Total.InexactFloat64())
	return &result, nil
}

// RemoveItem deletes a line and returns the removed product's name.
func (s *cartService) RemoveItem(ctx context.Context, identity domain.Identity, itemID string) (*RemoveResult, error) {
	const op = "cart.remove_item"

	id, err := parseID(itemID, ErrCartItemNotFound)
	if err != nil {
		return nil, s.fail(op, err)
	}

	var result RemoveResult
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		carts := NewCartStore(q)

		cart, err := s.openCart(ctx, carts, identity)
		if err != nil {
			return err
		}

		item, err := carts.GetItem(ctx, cart, id)
		if err != nil {
			return err
		}

		if err := carts.DeleteItem(ctx, cart, id); err != nil {
			return err
		}
		if err := carts.Touch(ctx, cart); err != nil {
			return err
		}

		totals, err := s.totals(ctx, carts, cart)
		if err != nil {
			return err
		}

		result = RemoveResult{ProductName: item.Product.Name, Totals: totals}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.RecordItemRemoved(identity.Kind())
	return &result, nil
}

// ClearCart removes every line from the cart.
func (s *cartService) ClearCart(ctx context.Context, identity domain.Identity) (*domain.CartTotals, error) {
	var totals domain.CartTotals

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		carts := NewCartStore(q)

		cart, err := s.openCart(ctx, carts, identity)
		if err != nil {
			return err
		}

		if _, err := carts.Clear(ctx, cart); err != nil {
			return err
		}
		if err := carts.Touch(ctx, cart); err != nil {
			return err
		}

		totals, err = s.totals(ctx, carts, cart)
		return err
	})
	if err != nil {
		return nil, s.fail("cart.clear", err)
	}

	s.metrics.RecordCartCleared(identity.Kind())
	return &totals, nil
}

func (s *cartService) openCart(ctx context.Context, carts *CartStore, identity domain.Identity) (domain.Cart, error) {
	cart, created, err := carts.GetOrCreateCart(ctx, identity)
	if err != nil {
		return domain.Cart{}, err
	}
	if created {
		s.metrics.RecordCartCreated(identity.Kind())
	}
	return cart, nil
}

// finish touches the cart and fills result with the fresh line and totals.
func (s *cartService) finish(ctx context.Context, carts *CartStore, cart domain.Cart, itemID uuid.UUID, result *ItemResult) error {
	if err := carts.Touch(ctx, cart); err != nil {
		return err
	}

	item, err := carts.GetItem(ctx, cart, itemID)
	if err != nil {
		return err
	}

	totals, err := s.totals(ctx, carts, cart)
	if err != nil {
		return err
	}

	result.Item = item
	result.Totals = totals
	return nil
}

func (s *cartService) totals(ctx context.Context, carts *CartStore, cart domain.Cart) (domain.CartTotals, error) {
	items, err := carts.ListItems(ctx, cart)
	if err != nil {
		return domain.CartTotals{}, err
	}
	return s.pricing.Totals(ctx, items)
}

// fail records business-rule rejections and wraps infrastructure errors
// as internal errors. Domain errors pass through unchanged.
func (s *cartService) fail(op string, err error) error {
	if reason := rejectionReason(err); reason != "" {
		s.metrics.RecordRejected(reason)
	}

	var de *domain.Error
	var ve *domain.ValidationError
	if errors.As(err, &de) || errors.As(err, &ve) {
		return err
	}
	return domain.Internal(err, op, "cart operation failed")
}

func validateQuantity(quantity int) error {
	if quantity < domain.MinLineQuantity || quantity > domain.MaxLineQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

// checkStock validates a wanted quantity against live stock.
func checkStock(stock, want int32) error {
	if stock <= 0 {
		return ErrOutOfStock
	}
	if want > stock {
		return insufficientStock(stock)
	}
	return nil
}

func getActiveProduct(ctx context.Context, q repository.Querier, id uuid.UUID) (domain.Product, error) {
	row, err := q.GetActiveProduct(ctx, repository.UUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return productFromRow(row), nil
}
