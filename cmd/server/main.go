package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/marbelle/internal"
	"github.com/dukerupert/marbelle/internal/auth"
	"github.com/dukerupert/marbelle/internal/cookie"
	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/email"
	"github.com/dukerupert/marbelle/internal/handler/api"
	"github.com/dukerupert/marbelle/internal/middleware"
	"github.com/dukerupert/marbelle/internal/pricing"
	"github.com/dukerupert/marbelle/internal/repository"
	"github.com/dukerupert/marbelle/internal/router"
	"github.com/dukerupert/marbelle/internal/routes"
	"github.com/dukerupert/marbelle/internal/service"
	"github.com/dukerupert/marbelle/internal/session"
	"github.com/dukerupert/marbelle/internal/tax"
	"github.com/dukerupert/marbelle/internal/telemetry"
	"github.com/dukerupert/marbelle/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	// Initialize Redis for guest sessions
	redisOpts, err := redis.ParseURL(cfg.RedisUrl)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("Redis connection established")

	sessions := session.NewRedisStore(rdb, cfg.Session.TTL)

	authenticator, err := auth.NewJWTAuthenticator(cfg.JWTSecret, store,
		auth.WithLifetimes(cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL),
		auth.WithDenylist(auth.NewRedisDenylist(rdb)),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize authenticator: %w", err)
	}

	// ==========================================================================
	// Services
	// ==========================================================================

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	business := telemetry.NewBusinessMetrics("marbelle", registry)
	metrics := middleware.NewMetrics("marbelle", registry)

	taxCalculator, err := tax.NewPercentageCalculator(cfg.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid tax rate: %w", err)
	}
	calculator := pricing.NewCalculator(taxCalculator)

	resolver := service.NewIdentityResolver(sessions, business)
	cartService := service.NewCartService(store, calculator, business)
	productService := service.NewProductService(store, business)
	orderService := service.NewOrderService(store)

	var sender email.Sender
	if cfg.Email.SMTPHost != "" {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.FromAddress,
		}, logger.With("component", "smtp"))
	} else {
		logger.Warn("SMTP_HOST not set, logging outgoing email")
		sender = email.NewLogSender(logger.With("component", "email"))
	}
	mailer, err := email.NewService(sender, cfg.Email.FromAddress, cfg.Email.FromName)
	if err != nil {
		return fmt.Errorf("failed to initialize email templates: %w", err)
	}

	accountService := service.NewAccountService(store, authenticator, mailer, service.AccountConfig{
		FrontendURL: cfg.FrontendURL,
		TokenTTL:    cfg.Auth.AccountTokenTTL,
		Logger:      logger.With("component", "accounts"),
	})
	addressService := service.NewAddressService(store)

	sweeper, err := worker.NewSweeper(store, worker.Config{
		Interval: cfg.Session.SweepInterval,
		MaxAge:   cfg.Session.TTL,
		Metrics:  business,
	}, logger.With("component", "cart_sweeper"))
	if err != nil {
		return fmt.Errorf("failed to initialize cart sweeper: %w", err)
	}
	go sweeper.Start(ctx)

	cookies := cookie.NewConfig(cfg.Session.CookieName, cfg.Session.CookieDomain, cfg.IsProd(), cfg.Session.TTL)

	// ==========================================================================
	// Middleware
	// ==========================================================================

	cartLimiter := middleware.NewRedisLimiter(rdb, "ratelimit:cart", middleware.CartMutationLimit, middleware.CartMutationWindow)
	authLimiter := middleware.NewRedisLimiter(rdb, "ratelimit:auth", middleware.AuthAttemptLimit, middleware.AuthAttemptWindow)
	defaultLimiter := middleware.NewMemoryLimiter(middleware.DefaultRequestsPerSecond, middleware.DefaultBurst)
	defer defaultLimiter.Stop()

	r := router.New(
		router.Recovery(logger),
		telemetry.SentryMiddleware(),
		middleware.RequestID,
		middleware.WithClientIP(),
		metrics.Middleware,
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsProd())),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
		middleware.RateLimit(defaultLimiter),
		middleware.WithUser(authenticator),
		telemetry.SentryContextMiddleware(sentryUser),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		CartHandler:    api.NewCartHandler(resolver, cartService, cookies, cfg.Session.HeaderName),
		ProductHandler: api.NewProductHandler(productService),
		OrderHandler:   api.NewOrderHandler(orderService),
		AuthHandler:    api.NewAuthHandler(accountService, cookies),
		AddressHandler: api.NewAddressHandler(addressService),
		CartLimiter:    middleware.RateLimit(cartLimiter),
		AuthLimiter:    middleware.RateLimit(authLimiter),
		Health:         healthHandler(pool, rdb),
		Metrics:        metrics.Handler(),
	})

	cors := router.CORS(router.CORSConfig{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedHeaders:   []string{"Authorization", "Content-Type", cfg.Session.HeaderName},
		ExposedHeaders:   []string{cfg.Session.HeaderName, "X-Request-ID"},
		AllowCredentials: true,
	})

	// ==========================================================================
	// Start server
	// ==========================================================================

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           cors(r),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting API server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// healthHandler reports 503 when Postgres or Redis is unreachable.
func healthHandler(pool *pgxpool.Pool, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			middleware.GetLogger(r.Context()).Error("health check: database", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			middleware.GetLogger(r.Context()).Error("health check: redis", "error", err)
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func sentryUser(ctx context.Context) *telemetry.UserInfo {
	user := domain.UserFromContext(ctx)
	if user == nil {
		return nil
	}
	return &telemetry.UserInfo{ID: user.ID.String(), Email: user.Email}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
