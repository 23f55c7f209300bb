// Package session stores guest session tokens. A token is an opaque,
// URL-safe string that identifies an anonymous caller's cart.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxTokenLength bounds the tokens accepted from callers. It matches the
// carts.session_key column.
const MaxTokenLength = 64

// DefaultTTL is how long an idle guest session is kept (four weeks).
const DefaultTTL = 28 * 24 * time.Hour

const keyPrefix = "session:"

var (
	// ErrAllocate is returned when a new session cannot be persisted.
	ErrAllocate = errors.New("session: failed to allocate session")

	// ErrInvalidToken is returned for an empty token.
	ErrInvalidToken = errors.New("session: invalid token")
)

// Store is the persistence port for guest session tokens.
type Store interface {
	// Exists reports whether token is a live session.
	Exists(ctx context.Context, token string) (bool, error)

	// Create allocates a fresh token and persists it.
	Create(ctx context.Context) (string, error)

	// Save persists token unconditionally, resetting its expiry.
	Save(ctx context.Context, token string) error
}

// GenerateToken returns 32 bytes of crypto/rand data, base64 URL encoded.
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// ValidToken reports whether token could have been issued by GenerateToken:
// non-empty, at most MaxTokenLength characters, base64 URL alphabet.
func ValidToken(token string) bool {
	if token == "" || len(token) > MaxTokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '=':
		default:
			return false
		}
	}
	return true
}

// RedisStore keeps sessions as expiring Redis keys.
type RedisStore struct {
	client   redis.Cmdable
	ttl      time.Duration
	generate func() (string, error)
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a Store backed by client. A non-positive ttl falls
// back to DefaultTTL.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client:   client,
		ttl:      ttl,
		generate: GenerateToken,
	}
}

func (s *RedisStore) Exists(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	n, err := s.client.Exists(ctx, sessionKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	token, err := s.generate()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAllocate, err)
	}

	ok, err := s.client.SetNX(ctx, sessionKey(token), sessionValue(), s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: redis setnx failed: %w", ErrAllocate, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: token collision", ErrAllocate)
	}

	return token, nil
}

func (s *RedisStore) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	if err := s.client.Set(ctx, sessionKey(token), sessionValue(), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return keyPrefix + token
}

func sessionValue() string {
	return time.Now().UTC().Format(time.RFC3339)
}
