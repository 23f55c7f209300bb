package routes

import (
	"net/http"

	"github.com/dukerupert/marbelle/internal/middleware"
	"github.com/dukerupert/marbelle/internal/router"
)

// RegisterAPIRoutes registers the cart, catalog, account and order routes
// under /api, plus /health and /metrics.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	health := deps.Health
	if health == nil {
		health = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		}
	}
	r.Get("/health", health)

	if deps.Metrics != nil {
		r.Get("/metrics", deps.Metrics.ServeHTTP)
	}

	// Cart (users and guests)
	cart := r.Route("/api/cart")
	var mutate []router.Middleware
	if deps.CartLimiter != nil {
		mutate = append(mutate, deps.CartLimiter)
	}
	cart.Get("/", deps.CartHandler.Get)
	cart.Post("/items/", deps.CartHandler.AddItem, mutate...)
	cart.Put("/items/{id}/", deps.CartHandler.UpdateItem, mutate...)
	cart.Delete("/items/{id}/", deps.CartHandler.RemoveItem, mutate...)
	cart.Delete("/items/{id}/remove/", deps.CartHandler.RemoveItem, mutate...)
	cart.Delete("/clear/", deps.CartHandler.Clear, mutate...)

	// Catalog
	r.Get("/api/products/", deps.ProductHandler.List)
	r.Get("/api/products/{id}/", deps.ProductHandler.Get)
	r.Get("/api/categories/", deps.ProductHandler.ListCategories)
	r.Get("/api/categories/{id}/", deps.ProductHandler.GetCategory)
	r.Get("/api/categories/{id}/products/", deps.ProductHandler.CategoryProducts)

	// Order history (signed-in users only)
	orders := r.Route("/api/orders", middleware.RequireAuth)
	orders.Get("/", deps.OrderHandler.List)
	orders.Get("/{id}/", deps.OrderHandler.Get)

	// Accounts
	accounts := r.Route("/api/auth")
	var throttle []router.Middleware
	if deps.AuthLimiter != nil {
		throttle = append(throttle, deps.AuthLimiter)
	}
	accounts.Post("/register/", deps.AuthHandler.Register, throttle...)
	accounts.Post("/login/", deps.AuthHandler.Login, throttle...)
	accounts.Post("/verify-email/", deps.AuthHandler.VerifyEmail, throttle...)
	accounts.Post("/resend-verification/", deps.AuthHandler.ResendVerification, throttle...)
	accounts.Post("/password-reset/", deps.AuthHandler.RequestPasswordReset, throttle...)
	accounts.Post("/password-reset-confirm/", deps.AuthHandler.ConfirmPasswordReset, throttle...)
	accounts.Post("/refresh-token/", deps.AuthHandler.RefreshToken, throttle...)
	accounts.Post("/confirm-email-change/", deps.AuthHandler.ConfirmEmailChange, throttle...)

	account := accounts.Group(middleware.RequireAuth)
	account.Post("/logout/", deps.AuthHandler.Logout)
	account.Get("/verify-token/", deps.AuthHandler.VerifyToken)
	account.Post("/request-email-change/", deps.AuthHandler.RequestEmailChange, throttle...)
	account.Get("/user/", deps.AuthHandler.Profile)
	account.Put("/user/", deps.AuthHandler.UpdateProfile)
	account.Patch("/user/", deps.AuthHandler.UpdateProfile)
	account.Post("/change-password/", deps.AuthHandler.ChangePassword, throttle...)

	account.Get("/addresses/", deps.AddressHandler.List)
	account.Post("/addresses/", deps.AddressHandler.Create)
	account.Get("/addresses/{id}/", deps.AddressHandler.Get)
	account.Put("/addresses/{id}/", deps.AddressHandler.Update)
	account.Delete("/addresses/{id}/", deps.AddressHandler.Delete)
	account.Post("/addresses/{id}/set_primary/", deps.AddressHandler.SetPrimary)
}
