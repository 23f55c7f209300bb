package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrInactiveUser  = errors.New("user not found or inactive")
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrRevokedToken  = errors.New("token has been revoked")
)

// Token types carried in the token_type claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// UserStore looks up the account behind a token subject.
type UserStore interface {
	GetActiveUser(ctx context.Context, id pgtype.UUID) (repository.User, error)
}

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Claims are the JWT claims issued to storefront users. UserID is preferred
// over the registered subject when both are present. Tokens without a
// token_type are treated as access tokens.
type Claims struct {
	UserID    string `json:"user_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is issued at login.
type TokenPair struct {
	Access  string
	Refresh string
}

// Denylist records revoked refresh tokens by their jti.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTAuthenticator issues and verifies HMAC-signed access and refresh tokens.
type JWTAuthenticator struct {
	secret     []byte
	users      UserStore
	parser     *jwt.Parser
	accessTTL  time.Duration
	refreshTTL time.Duration
	denylist   Denylist
}

var _ Authenticator = (*JWTAuthenticator)(nil)

// Option configures a JWTAuthenticator.
type Option func(*JWTAuthenticator)

// WithLifetimes overrides the token lifetimes. Non-positive values keep the
// defaults.
func WithLifetimes(access, refresh time.Duration) Option {
	return func(a *JWTAuthenticator) {
		if access > 0 {
			a.accessTTL = access
		}
		if refresh > 0 {
			a.refreshTTL = refresh
		}
	}
}

// WithDenylist enables refresh token revocation.
func WithDenylist(d Denylist) Option {
	return func(a *JWTAuthenticator) {
		a.denylist = d
	}
}

func NewJWTAuthenticator(secret string, users UserStore, opts ...Option) (*JWTAuthenticator, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	a := &JWTAuthenticator{
		secret: []byte(secret),
		users:  users,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
			jwt.WithExpirationRequired(),
		),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate parses an access token, validates signature and expiry, and
// loads the user it names. Refresh tokens, unknown and inactive users are
// rejected.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	_, userID, err := a.parse(token, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	return a.loadUser(ctx, userID)
}

// IssueToken signs an HS256 access token for userID.
func (a *JWTAuthenticator) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	return a.sign(userID, TokenTypeAccess, ttl)
}

// IssueTokenPair signs a fresh access and refresh token for userID.
func (a *JWTAuthenticator) IssueTokenPair(userID uuid.UUID) (TokenPair, error) {
	access, err := a.IssueToken(userID, a.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := a.sign(userID, TokenTypeRefresh, a.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a live refresh token for a new access token.
func (a *JWTAuthenticator) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrMissingToken
	}

	claims, userID, err := a.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	if err := a.checkRevoked(ctx, claims.ID); err != nil {
		return "", err
	}
	if _, err := a.loadUser(ctx, userID); err != nil {
		return "", err
	}

	return a.IssueToken(userID, a.accessTTL)
}

// Revoke denylists a refresh token until it would have expired. The token
// must belong to userID.
func (a *JWTAuthenticator) Revoke(ctx context.Context, userID uuid.UUID, refreshToken string) error {
	if refreshToken == "" {
		return ErrMissingToken
	}

	claims, subject, err := a.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return err
	}
	if subject != userID {
		return fmt.Errorf("%w: token belongs to another user", ErrInvalidToken)
	}
	if a.denylist == nil || claims.ID == "" {
		return nil
	}
	if err := a.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (a *JWTAuthenticator) sign(userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID.String(),
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// parse verifies token and checks it has the wanted type.
func (a *JWTAuthenticator) parse(token, wantType string) (*Claims, uuid.UUID, error) {
	var claims Claims
	_, err := a.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	tokenType := claims.TokenType
	if tokenType == "" {
		tokenType = TokenTypeAccess
	}
	if tokenType != wantType {
		return nil, uuid.Nil, fmt.Errorf("%w: wrong token type %q", ErrInvalidToken, claims.TokenType)
	}

	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return &claims, userID, nil
}

func (a *JWTAuthenticator) checkRevoked(ctx context.Context, jti string) error {
	if a.denylist == nil || jti == "" {
		return nil
	}
	revoked, err := a.denylist.IsRevoked(ctx, jti)
	if err != nil {
		return fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return ErrRevokedToken
	}
	return nil
}

func (a *JWTAuthenticator) loadUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	row, err := a.users.GetActiveUser(ctx, repository.UUID(userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInactiveUser
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return UserFromRow(row), nil
}

// UserFromRow maps a users row to the domain view.
func UserFromRow(row repository.User) *domain.User {
	return &domain.User{
		ID:          repository.FromUUID(row.ID),
		Email:       row.Email,
		FirstName:   row.FirstName,
		LastName:    row.LastName,
		CompanyName: row.CompanyName,
		Phone:       row.Phone,
		IsActive:    row.IsActive,
		LastLogin:   repository.Time(row.LastLogin),
	}
}

// BearerToken extracts the token from an Authorization header value.
// ok is false when the header is empty; an empty token with ok true means
// the header is present but malformed.
func BearerToken(header string) (token string, ok bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(rest), true
}
