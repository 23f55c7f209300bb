package service

import (
	"context"
	"errors"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderService provides read-only order tracking for a signed-in user.
// Orders of other users are reported as not found.
type OrderService interface {
	ListOrders(ctx context.Context, userID uuid.UUID, page domain.Page) (*domain.PageResult[domain.Order], error)
	GetOrder(ctx context.Context, userID uuid.UUID, orderID string) (*domain.Order, error)
}

type orderService struct {
	repo repository.Querier
}

// NewOrderService creates a new OrderService instance
func NewOrderService(repo repository.Querier) OrderService {
	return &orderService{repo: repo}
}

// ListOrders returns the user's orders, newest first, with their lines.
func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, page domain.Page) (*domain.PageResult[domain.Order], error) {
	const op = "order.list"

	page = page.Normalize()

	rows, err := s.repo.ListOrdersByUser(ctx, repository.ListOrdersByUserParams{
		UserID: repository.UUID(userID),
		Limit:  int32(page.Size),
		Offset: int32(page.Offset()),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}

	count, err := s.repo.CountOrdersByUser(ctx, repository.UUID(userID))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count orders")
	}

	orders := make([]domain.Order, len(rows))
	for i, row := range rows {
		order := orderFromRow(row)
		if order.Items, err = s.items(ctx, row.ID); err != nil {
			return nil, domain.Internal(err, op, "failed to get order items")
		}
		orders[i] = order
	}

	return &domain.PageResult[domain.Order]{Items: orders, Count: count}, nil
}

// GetOrder returns one of the user's orders with its lines.
func (s *orderService) GetOrder(ctx context.Context, userID uuid.UUID, orderID string) (*domain.Order, error) {
	const op = "order.get"

	id, err := parseID(orderID, ErrOrderNotFound)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.GetOrderForUser(ctx, repository.GetOrderForUserParams{
		ID:     repository.UUID(id),
		UserID: repository.UUID(userID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to get order")
	}

	order := orderFromRow(row)
	if order.Items, err = s.items(ctx, row.ID); err != nil {
		return nil, domain.Internal(err, op, "failed to get order items")
	}

	return &order, nil
}

func (s *orderService) items(ctx context.Context, orderID pgtype.UUID) ([]domain.OrderItem, error) {
	rows, err := s.repo.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, len(rows))
	for i, row := range rows {
		items[i] = domain.OrderItem{
			ID:          repository.FromUUID(row.ID),
			ProductID:   repository.FromUUID(row.ProductID),
			ProductName: row.ProductName,
			ProductSKU:  row.ProductSku,
			Quantity:    row.Quantity,
			UnitPrice:   repository.Decimal(row.UnitPrice),
			CreatedAt:   repository.Time(row.CreatedAt),
		}
	}
	return items, nil
}

func orderFromRow(row repository.Order) domain.Order {
	return domain.Order{
		ID:          repository.FromUUID(row.ID),
		UserID:      repository.FromUUID(row.UserID),
		Status:      domain.OrderStatus(row.Status),
		TotalAmount: repository.Decimal(row.TotalAmount),
		CreatedAt:   repository.Time(row.CreatedAt),
		UpdatedAt:   repository.Time(row.UpdatedAt),
	}
}
