package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/handler"
	"github.com/dukerupert/marbelle/internal/middleware"
	"github.com/dukerupert/marbelle/internal/service"
	"github.com/google/uuid"
)

// OrderHandler serves the signed-in user's order history.
// Routes must be wrapped in middleware.RequireAuth.
type OrderHandler struct {
	orders service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List handles GET /api/orders/
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	page := handler.ParsePage(r)
	result, err := h.orders.ListOrders(r.Context(), user.ID, page)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	out := make([]orderResponse, len(result.Items))
	for i, o := range result.Items {
		out[i] = newOrderResponse(o)
	}
	handler.Paginated(w, r, "Results retrieved successfully.", out, result.Count, page)
}

// Get handles GET /api/orders/{id}/
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, "Order retrieved successfully.", newOrderResponse(*order))
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Product     uuid.UUID `json:"product"`
	ProductName string    `json:"product_name"`
	ProductSKU  string    `json:"product_sku"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Subtotal    string    `json:"subtotal"`
	CreatedAt   time.Time `json:"created_at"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	Status      domain.OrderStatus  `json:"status"`
	TotalAmount string              `json:"total_amount"`
	ItemCount   int                 `json:"item_count"`
	Items       []orderItemResponse `json:"items"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func newOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ID:          item.ID,
			Product:     item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Subtotal:    item.Subtotal().StringFixed(2),
			CreatedAt:   item.CreatedAt,
		}
	}
	return orderResponse{
		ID:          o.ID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount.StringFixed(2),
		ItemCount:   o.ItemCount(),
		Items:       items,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
