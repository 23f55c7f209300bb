package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withUser(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(domain.NewContextWithUser(r.Context(), &domain.User{ID: id, IsActive: true}))
}

func testOrder(userID uuid.UUID) domain.Order {
	return domain.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      domain.OrderStatusShipped,
		TotalAmount: decimal.RequireFromString("54.5"),
		Items: []domain.OrderItem{
			{ID: uuid.New(), ProductID: uuid.New(), ProductName: "Onyx", ProductSKU: "ONX", Quantity: 2, UnitPrice: decimal.RequireFromString("25")},
		},
	}
}

func TestOrderHandler_List(t *testing.T) {
	me := uuid.New()
	var gotUser uuid.UUID
	var gotPage domain.Page
	orders := &mockOrderService{
		listOrdersFunc: func(ctx context.Context, userID uuid.UUID, page domain.Page) (*domain.PageResult[domain.Order], error) {
			gotUser, gotPage = userID, page
			return &domain.PageResult[domain.Order]{Items: []domain.Order{testOrder(userID)}, Count: 1}, nil
		},
	}
	h := NewOrderHandler(orders)

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/orders/?page_size=5", nil), me)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, me, gotUser)
	assert.Equal(t, domain.Page{Number: 1, Size: 5}, gotPage)

	resp := decodeResponse(t, rec)
	var data []struct {
		Status      string `json:"status"`
		TotalAmount string `json:"total_amount"`
		ItemCount   int    `json:"item_count"`
		Items       []struct {
			Subtotal string `json:"subtotal"`
		} `json:"items"`
	}
	decodeData(t, resp, &data)
	require.Len(t, data, 1)
	assert.Equal(t, "shipped", data[0].Status)
	assert.Equal(t, "54.50", data[0].TotalAmount)
	assert.Equal(t, 2, data[0].ItemCount)
	require.Len(t, data[0].Items, 1)
	assert.Equal(t, "50.00", data[0].Items[0].Subtotal)
}

func TestOrderHandler_Get(t *testing.T) {
	me := uuid.New()
	order := testOrder(me)
	orders := &mockOrderService{
		getOrderFunc: func(ctx context.Context, userID uuid.UUID, orderID string) (*domain.Order, error) {
			if userID == me && orderID == order.ID.String() {
				return &order, nil
			}
			return nil, service.ErrOrderNotFound
		},
	}
	h := NewOrderHandler(orders)

	tests := []struct {
		name       string
		user       uuid.UUID
		id         string
		wantStatus int
	}{
		{"own order", me, order.ID.String(), http.StatusOK},
		{"someone else's order", uuid.New(), order.ID.String(), http.StatusNotFound},
		{"malformed id", me, "1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withUser(httptest.NewRequest(http.MethodGet, "/api/orders/"+tt.id+"/", nil), tt.user)
			req.SetPathValue("id", tt.id)
			rec := httptest.NewRecorder()
			h.Get(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "Order retrieved successfully.", decodeResponse(t, rec).Message)
			}
		})
	}
}

func TestOrderHandler_RequiresUser(t *testing.T) {
	h := NewOrderHandler(&mockOrderService{})

	for name, serve := range map[string]http.HandlerFunc{"list": h.List, "get": h.Get} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			serve(rec, httptest.NewRequest(http.MethodGet, "/api/orders/", nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
