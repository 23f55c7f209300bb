package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/marbelle/internal/cookie"
	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/handler"
	"github.com/dukerupert/marbelle/internal/middleware"
	"github.com/dukerupert/marbelle/internal/pricing"
	"github.com/dukerupert/marbelle/internal/service"
	"github.com/google/uuid"
)

// DefaultSessionHeader carries the guest token for clients that cannot
// rely on cookies.
const DefaultSessionHeader = "X-Session-ID"

// CartHandler serves the /api/cart routes for users and guests.
type CartHandler struct {
	resolver      service.IdentityResolver
	carts         service.CartService
	cookies       *cookie.Config
	sessionHeader string
}

// NewCartHandler creates a new cart handler
func NewCartHandler(resolver service.IdentityResolver, carts service.CartService, cookies *cookie.Config, sessionHeader string) *CartHandler {
	if sessionHeader == "" {
		sessionHeader = DefaultSessionHeader
	}
	return &CartHandler{
		resolver:      resolver,
		carts:         carts,
		cookies:       cookies,
		sessionHeader: sessionHeader,
	}
}

type addItemRequest struct {
	ProductID string      `json:"product_id" validate:"required"`
	Quantity  json.Number `json:"quantity"`
}

type updateItemRequest struct {
	Quantity json.Number `json:"quantity" validate:"required"`
}

// Get handles GET /api/cart/
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	summary, err := h.carts.GetCart(r.Context(), identity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.Success(w, "Cart retrieved successfully.", newCartResponse(summary))
}

// AddItem handles POST /api/cart/items/
// Quantity defaults to 1 when omitted.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	const op = "cart.add_item"

	var req addItemRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Quantity == "" {
		req.Quantity = "1"
	}
	quantity, err := parseQuantity(op, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	result, err := h.carts.AddItem(r.Context(), identity, strings.TrimSpace(req.ProductID), quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	message := fmt.Sprintf("Added %d x %s to cart.", quantity, result.Item.Product.Name)
	handler.Success(w, message, itemMutationResponse{
		Item:       newItemResponse(result.Item),
		CartTotals: newTotalsResponse(result.Totals),
	})
}

// UpdateItem handles PUT /api/cart/items/{id}/
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	const op = "cart.update_item"

	var req updateItemRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	quantity, err := parseQuantity(op, req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	result, err := h.carts.UpdateItemQuantity(r.Context(), identity, r.PathValue("id"), quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.Success(w, "Cart item updated successfully.", itemMutationResponse{
		Item:       newItemResponse(result.Item),
		CartTotals: newTotalsResponse(result.Totals),
	})
}

// RemoveItem handles DELETE /api/cart/items/{id}/
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	result, err := h.carts.RemoveItem(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.Success(w, fmt.Sprintf("Removed %s from cart.", result.ProductName), totalsOnlyResponse{
		CartTotals: newTotalsResponse(result.Totals),
	})
}

// Clear handles DELETE /api/cart/clear/
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	totals, err := h.carts.ClearCart(r.Context(), identity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.Success(w, "Cart cleared successfully.", totalsOnlyResponse{
		CartTotals: newTotalsResponse(*totals),
	})
}

// identity resolves the cart owner and writes the guest token to the
// response. On failure the error response has been written.
func (h *CartHandler) identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	rc := domain.RequestContext{
		HeaderToken: strings.TrimSpace(r.Header.Get(h.sessionHeader)),
		CookieToken: h.cookies.Session(r),
	}
	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		rc.IsAuthenticated = true
		rc.UserID = user.ID
	}

	res, err := h.resolver.Resolve(r.Context(), rc)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return domain.Identity{}, false
	}

	if res.EchoToken != "" {
		w.Header().Set(h.sessionHeader, res.EchoToken)
	}
	if res.SetCookie {
		h.cookies.SetSession(w, res.EchoToken)
	}
	return res.Identity, true
}

// parseQuantity accepts JSON integers only; range checks belong to the
// cart service.
func parseQuantity(op string, n json.Number) (int, error) {
	v, err := n.Int64()
	if err != nil {
		return 0, domain.NewValidationError(op, "quantity", "A valid integer is required.")
	}
	const limit = 1 << 31
	if v >= limit || v <= -limit {
		return 0, domain.NewValidationError(op, "quantity", "A valid integer is required.")
	}
	return int(v), nil
}

// --- Response shapes ---

type productSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	StockQuantity int32     `json:"stock_quantity"`
	InStock       bool      `json:"in_stock"`
	Image         *string   `json:"image"`
}

type itemResponse struct {
	ID        uuid.UUID      `json:"id"`
	Product   productSummary `json:"product"`
	Quantity  int32          `json:"quantity"`
	UnitPrice string         `json:"unit_price"`
	Subtotal  string         `json:"subtotal"`
	CreatedAt time.Time      `json:"created_at"`
}

type totalsResponse struct {
	ItemCount int    `json:"item_count"`
	Subtotal  string `json:"subtotal"`
	TaxAmount string `json:"tax_amount"`
	Total     string `json:"total"`
}

type cartResponse struct {
	ID uuid.UUID `json:"id"`
	totalsResponse
	Items []itemResponse `json:"items"`
}

type itemMutationResponse struct {
	Item       itemResponse   `json:"item"`
	CartTotals totalsResponse `json:"cart_totals"`
}

type totalsOnlyResponse struct {
	CartTotals totalsResponse `json:"cart_totals"`
}

func newItemResponse(item domain.CartItem) itemResponse {
	var image *string
	if item.Product.ImageURL != "" {
		url := item.Product.ImageURL
		image = &url
	}
	return itemResponse{
		ID: item.ID,
		Product: productSummary{
			ID:            item.Product.ID,
			Name:          item.Product.Name,
			SKU:           item.Product.SKU,
			StockQuantity: item.Product.StockQuantity,
			InStock:       item.Product.InStock(),
			Image:         image,
		},
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice.StringFixed(2),
		Subtotal:  pricing.ItemSubtotal(item).StringFixed(2),
		CreatedAt: item.CreatedAt,
	}
}

func newTotalsResponse(t domain.CartTotals) totalsResponse {
	return totalsResponse{
		ItemCount: t.ItemCount,
		Subtotal:  t.Subtotal.StringFixed(2),
		TaxAmount: t.Tax.StringFixed(2),
		Total:     t.Total.StringFixed(2),
	}
}

func newCartResponse(s *domain.CartSummary) cartResponse {
	items := make([]itemResponse, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, newItemResponse(item))
	}
	return cartResponse{
		ID:             s.Cart.ID,
		totalsResponse: newTotalsResponse(s.Totals),
		Items:          items,
	}
}
