// Package worker runs background maintenance for the cart API.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/marbelle/internal/telemetry"
	"github.com/jackc/pgx/v5/pgtype"
)

// CartPurger deletes guest carts idle since a cutoff.
type CartPurger interface {
	DeleteStaleGuestCarts(ctx context.Context, updatedBefore pgtype.Timestamptz) (int64, error)
}

// Config holds sweeper configuration
type Config struct {
	// Interval is how often to sweep. Defaults to one hour.
	Interval time.Duration

	// MaxAge is how long a guest cart may sit untouched. It should match the
	// session TTL: once the token has expired nobody can reach the cart.
	MaxAge time.Duration

	// Timeout bounds a single sweep. Defaults to 30 seconds.
	Timeout time.Duration

	// Metrics is optional.
	Metrics *telemetry.BusinessMetrics
}

// Sweeper periodically removes guest carts whose session has expired.
type Sweeper struct {
	config Config
	carts  CartPurger
	logger *slog.Logger
	now    func() time.Time
}

// NewSweeper creates a guest cart sweeper
func NewSweeper(carts CartPurger, config Config, logger *slog.Logger) (*Sweeper, error) {
	if config.MaxAge <= 0 {
		return nil, errors.New("sweeper: MaxAge must be positive")
	}
	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		config: config,
		carts:  carts,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Start sweeps once immediately and then every Interval until ctx is
// cancelled. Sweep failures are logged and retried on the next tick.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info("cart sweeper starting",
		"interval", s.config.Interval,
		"max_age", s.config.MaxAge,
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("cart sweeper shutting down")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	n, err := s.Sweep(sweepCtx)
	if err != nil {
		s.logger.Error("cart sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("purged stale guest carts", "count", n)
	}
}

// Sweep deletes guest carts untouched for longer than MaxAge and returns how
// many were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.config.MaxAge)
	n, err := s.carts.DeleteStaleGuestCarts(ctx, pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("delete stale guest carts: %w", err)
	}
	s.config.Metrics.RecordCartsSwept(n)
	return n, nil
}
