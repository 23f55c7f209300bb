// Package cookie provides helpers for the guest session cookie.
// All guest session cookies should go through Config so the name, scope
// and lifetime stay consistent between reads and writes.
package cookie

import (
	"net/http"
	"time"
)

// SessionCookieName is the default name of the guest session cookie.
const SessionCookieName = "marbelle_sessionid"

// Config holds cookie configuration for the guest session.
type Config struct {
	// Name is the cookie name. Defaults to SessionCookieName.
	Name string

	// Domain scopes the cookie. Empty means host-only.
	Domain string

	// Secure determines whether cookies require HTTPS.
	// Should be true in production, false in development.
	Secure bool

	// MaxAge is the cookie lifetime. It should match the session TTL so the
	// browser drops the cookie around the time the token expires server-side.
	MaxAge time.Duration
}

// NewConfig creates a new cookie configuration.
func NewConfig(name, domain string, secure bool, maxAge time.Duration) *Config {
	if name == "" {
		name = SessionCookieName
	}
	return &Config{
		Name:   name,
		Domain: domain,
		Secure: secure,
		MaxAge: maxAge,
	}
}

// SetSession writes the session token cookie.
//
// The cookie is HttpOnly with SameSite=Lax and Path=/.
func (c *Config) SetSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession removes the session cookie by setting MaxAge to -1.
// Domain must match the original cookie's domain.
func (c *Config) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session returns the session token carried by the request, or "".
func (c *Config) Session(r *http.Request) string {
	return Get(r, c.Name)
}

// Get retrieves a cookie value from the request.
// Returns empty string if cookie not found.
func Get(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
