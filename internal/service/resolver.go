package service

import (
	"context"
	"fmt"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/session"
	"github.com/dukerupert/marbelle/internal/telemetry"
)

// Resolution is the outcome of identity resolution for one request.
type Resolution struct {
	Identity domain.Identity

	// EchoToken is the guest token to return in the session header.
	// Empty for authenticated callers.
	EchoToken string

	// SetCookie is true when the token was allocated on this request and
	// the session cookie must be issued.
	SetCookie bool
}

// IdentityResolver maps a request to the identity that owns its cart.
type IdentityResolver interface {
	Resolve(ctx context.Context, rc domain.RequestContext) (Resolution, error)
}

type identityResolver struct {
	sessions session.Store
	generate func() (string, error)
	metrics  *telemetry.BusinessMetrics
}

// NewIdentityResolver creates an IdentityResolver backed by sessions.
// metrics may be nil.
func NewIdentityResolver(sessions session.Store, metrics *telemetry.BusinessMetrics) IdentityResolver {
	return &identityResolver{
		sessions: sessions,
		generate: session.GenerateToken,
		metrics:  metrics,
	}
}

// Resolve picks the cart owner in priority order: authenticated user, the
// session header, a known session cookie, and finally a newly allocated
// guest session. Malformed tokens are treated as absent.
func (r *identityResolver) Resolve(ctx context.Context, rc domain.RequestContext) (Resolution, error) {
	const op = "session.resolve"

	if rc.IsAuthenticated {
		identity := domain.UserIdentity(rc.UserID)
		if err := identity.Validate(); err != nil {
			return Resolution{}, domain.Internal(err, op, "authenticated request without user id")
		}
		return Resolution{Identity: identity}, nil
	}

	if session.ValidToken(rc.HeaderToken) {
		return guestResolution(rc.HeaderToken, false), nil
	}

	if session.ValidToken(rc.CookieToken) {
		ok, err := r.sessions.Exists(ctx, rc.CookieToken)
		if err != nil {
			return Resolution{}, domain.Internal(err, op, "failed to look up session")
		}
		if ok {
			return guestResolution(rc.CookieToken, false), nil
		}
	}

	token, err := r.allocate(ctx)
	if err != nil {
		return Resolution{}, domain.Internal(err, op, "failed to allocate guest session")
	}
	return guestResolution(token, true), nil
}

// allocate creates a new session, falling back once to a forced save of a
// freshly generated token.
func (r *identityResolver) allocate(ctx context.Context) (string, error) {
	token, err := r.sessions.Create(ctx)
	if err == nil {
		r.metrics.RecordSessionAllocated("create")
		return token, nil
	}

	telemetry.AddBreadcrumb("session", "session create failed, retrying with forced save", map[string]interface{}{
		"error": err.Error(),
	})

	token, genErr := r.generate()
	if genErr != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionUnavailable, genErr)
	}
	if saveErr := r.sessions.Save(ctx, token); saveErr != nil {
		return "", fmt.Errorf("%w: create: %w; save: %w", ErrSessionUnavailable, err, saveErr)
	}

	r.metrics.RecordSessionAllocated("retry")
	return token, nil
}

func guestResolution(token string, setCookie bool) Resolution {
	return Resolution{
		Identity:  domain.GuestIdentity(token),
		EchoToken: token,
		SetCookie: setCookie,
	}
}
