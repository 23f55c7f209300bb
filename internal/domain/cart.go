package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart quantity bounds. A line never holds fewer than MinLineQuantity or
// more than MaxLineQuantity units of one product.
const (
	MinLineQuantity = 1
	MaxLineQuantity = 99
)

// Identity is the owner of a cart: an authenticated user or a guest
// session token. Exactly one of the two is set.
type Identity struct {
	UserID     uuid.UUID
	GuestToken string
}

// UserIdentity returns the identity of an authenticated user.
func UserIdentity(id uuid.UUID) Identity {
	return Identity{UserID: id}
}

// GuestIdentity returns the identity of an unauthenticated caller.
func GuestIdentity(token string) Identity {
	return Identity{GuestToken: token}
}

// IsGuest reports whether the identity belongs to an unauthenticated caller.
func (i Identity) IsGuest() bool {
	return i.UserID == uuid.Nil
}

// Validate enforces the exactly-one-owner invariant.
func (i Identity) Validate() error {
	hasUser := i.UserID != uuid.Nil
	hasGuest := i.GuestToken != ""
	if hasUser == hasGuest {
		return Invalid("identity.validate", "cart identity requires exactly one of user or guest token")
	}
	return nil
}

// Kind returns "user" or "guest" (used as a metrics label).
func (i Identity) Kind() string {
	if i.IsGuest() {
		return "guest"
	}
	return "user"
}

// RequestContext is the per-request view of who is calling, built once by
// the HTTP layer from the auth state, the session header and the session
// cookie.
type RequestContext struct {
	IsAuthenticated bool
	UserID          uuid.UUID
	HeaderToken     string
	CookieToken     string
}

// Cart is the per-identity container of selected products.
type Cart struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	SessionKey string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CartProduct is the product snapshot shown next to a cart line.
type CartProduct struct {
	ID            uuid.UUID
	Name          string
	SKU           string
	StockQuantity int32
	IsActive      bool
	ImageURL      string
}

// InStock reports whether at least one unit is available.
func (p CartProduct) InStock() bool {
	return p.StockQuantity > 0
}

// CartItem is one (product, quantity, frozen unit price) line in a cart.
type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	Product   CartProduct
	Quantity  int32
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartTotals are derived on read from the cart's lines; they are never stored.
type CartTotals struct {
	ItemCount int
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
}

// CartSummary aggregates a cart with its lines and calculated totals.
type CartSummary struct {
	Cart   Cart
	Items  []CartItem
	Totals CartTotals
}
