package routes

import (
	"net/http"

	"github.com/dukerupert/marbelle/internal/handler/api"
	"github.com/dukerupert/marbelle/internal/router"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	CartHandler    *api.CartHandler
	ProductHandler *api.ProductHandler
	OrderHandler   *api.OrderHandler
	AuthHandler    *api.AuthHandler
	AddressHandler *api.AddressHandler

	// CartLimiter throttles cart mutations per client. Optional.
	CartLimiter router.Middleware

	// AuthLimiter throttles sign-in, registration and token endpoints per
	// client. Optional.
	AuthLimiter router.Middleware

	// Health reports readiness. Defaults to a static OK.
	Health http.HandlerFunc

	// Metrics serves the Prometheus scrape endpoint. Optional.
	Metrics http.Handler
}
