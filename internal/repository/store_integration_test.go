package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/marbelle/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestStore(t *testing.T) (*PoolStore, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("marbelle_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.MigrationsFS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "."))

	return NewStore(pool), pool
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, sku string, price string, stock int32) pgtype.UUID {
	t.Helper()
	ctx := context.Background()

	var categoryID pgtype.UUID
	err := pool.QueryRow(ctx, `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, "Marble").Scan(&categoryID)
	require.NoError(t, err)

	var productID pgtype.UUID
	err = pool.QueryRow(ctx, `
		INSERT INTO products (name, sku, price, unit_of_measure, category_id, stock_quantity)
		VALUES ($1, $2, $3, 'piece', $4, $5)
		RETURNING id`, "Carrara "+sku, sku, Numeric(decimal.RequireFromString(price)), categoryID, stock).Scan(&productID)
	require.NoError(t, err)
	return productID
}

func TestStore_GuestCartGetOrCreate(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	key := Text("guest-token")
	require.NoError(t, store.CreateGuestCart(ctx, key))
	require.NoError(t, store.CreateGuestCart(ctx, key))

	cart, err := store.GetCartBySessionKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, cart.ID.Valid)
	assert.False(t, cart.UserID.Valid)
	assert.Equal(t, "guest-token", cart.SessionKey.String)

	_, err = store.GetCartBySessionKey(ctx, Text("unknown"))
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestStore_InsertCartItemConflict(t *testing.T) {
	store, pool := setupTestStore(t)
	ctx := context.Background()

	productID := seedProduct(t, pool, "CAR-001", "29.99", 10)
	require.NoError(t, store.CreateGuestCart(ctx, Text("tok")))
	cart, err := store.GetCartBySessionKey(ctx, Text("tok"))
	require.NoError(t, err)

	item, err := store.InsertCartItem(ctx, InsertCartItemParams{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  2,
		UnitPrice: Numeric(decimal.RequireFromString("29.99")),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), item.Quantity)
	assert.Equal(t, "29.99", Decimal(item.UnitPrice).StringFixed(2))

	_, err = store.InsertCartItem(ctx, InsertCartItemParams{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  1,
		UnitPrice: Numeric(decimal.RequireFromString("29.99")),
	})
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	rows, err := store.GetCartItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CAR-001", rows[0].ProductSku)
	assert.Equal(t, int32(10), rows[0].ProductStockQuantity)
}

func TestStore_QuantityCheckConstraint(t *testing.T) {
	store, pool := setupTestStore(t)
	ctx := context.Background()

	productID := seedProduct(t, pool, "CAR-002", "10.00", 500)
	require.NoError(t, store.CreateGuestCart(ctx, Text("tok")))
	cart, err := store.GetCartBySessionKey(ctx, Text("tok"))
	require.NoError(t, err)

	_, err = store.InsertCartItem(ctx, InsertCartItemParams{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  100,
		UnitPrice: Numeric(decimal.RequireFromString("10.00")),
	})
	assert.Error(t, err)
}

func TestStore_ExecTxRollsBack(t *testing.T) {
	store, pool := setupTestStore(t)
	ctx := context.Background()

	productID := seedProduct(t, pool, "CAR-003", "49.99", 5)
	require.NoError(t, store.CreateGuestCart(ctx, Text("tok")))
	cart, err := store.GetCartBySessionKey(ctx, Text("tok"))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.ExecTx(ctx, func(q Querier) error {
		if _, err := q.InsertCartItem(ctx, InsertCartItemParams{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  1,
			UnitPrice: Numeric(decimal.RequireFromString("49.99")),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rows, err := store.GetCartItems(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_DeleteScopedToCart(t *testing.T) {
	store, pool := setupTestStore(t)
	ctx := context.Background()

	productID := seedProduct(t, pool, "CAR-004", "5.00", 5)
	require.NoError(t, store.CreateGuestCart(ctx, Text("a")))
	require.NoError(t, store.CreateGuestCart(ctx, Text("b")))
	cartA, err := store.GetCartBySessionKey(ctx, Text("a"))
	require.NoError(t, err)
	cartB, err := store.GetCartBySessionKey(ctx, Text("b"))
	require.NoError(t, err)

	item, err := store.InsertCartItem(ctx, InsertCartItemParams{
		CartID:    cartA.ID,
		ProductID: productID,
		Quantity:  1,
		UnitPrice: Numeric(decimal.RequireFromString("5.00")),
	})
	require.NoError(t, err)

	n, err := store.DeleteCartItem(ctx, DeleteCartItemParams{ID: item.ID, CartID: cartB.ID})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.DeleteCartItem(ctx, DeleteCartItemParams{ID: item.ID, CartID: cartA.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_ConcurrentFirstInsertMerges(t *testing.T) {
	store, pool := setupTestStore(t)
	ctx := context.Background()

	productID := seedProduct(t, pool, "CAR-005", "12.50", 50)
	require.NoError(t, store.CreateGuestCart(ctx, Text("tok")))
	cart, err := store.GetCartBySessionKey(ctx, Text("tok"))
	require.NoError(t, err)

	add := func() error {
		return store.ExecTx(ctx, func(q Querier) error {
			existing, err := q.GetCartItemByProductForUpdate(ctx, GetCartItemByProductForUpdateParams{
				CartID:    cart.ID,
				ProductID: productID,
			})
			if err == nil {
				_, err = q.UpdateCartItemQuantity(ctx, UpdateCartItemQuantityParams{
					ID:       existing.ID,
					CartID:   cart.ID,
					Quantity: existing.Quantity + 1,
				})
				return err
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			_, err = q.InsertCartItem(ctx, InsertCartItemParams{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  1,
				UnitPrice: Numeric(decimal.RequireFromString("12.50")),
			})
			if errors.Is(err, pgx.ErrNoRows) {
				existing, err := q.GetCartItemByProductForUpdate(ctx, GetCartItemByProductForUpdateParams{
					CartID:    cart.ID,
					ProductID: productID,
				})
				if err != nil {
					return err
				}
				_, err = q.UpdateCartItemQuantity(ctx, UpdateCartItemQuantityParams{
					ID:       existing.ID,
					CartID:   cart.ID,
					Quantity: existing.Quantity + 1,
				})
				return err
			}
			return err
		})
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- add()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rows, err := store.GetCartItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int32(workers), rows[0].Quantity)
}

func TestStore_DeleteStaleGuestCarts(t *testing.T) {
	store, pool := setupTestStore(t)
	ctx := context.Background()
	productID := seedProduct(t, pool, "STALE-1", "10.00", 5)

	require.NoError(t, store.CreateGuestCart(ctx, Text("old-guest")))
	require.NoError(t, store.CreateGuestCart(ctx, Text("fresh-guest")))
	old, err := store.GetCartBySessionKey(ctx, Text("old-guest"))
	require.NoError(t, err)
	_, err = store.InsertCartItem(ctx, InsertCartItemParams{
		CartID:    old.ID,
		ProductID: productID,
		Quantity:  1,
		UnitPrice: Numeric(decimal.RequireFromString("10.00")),
	})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE carts SET updated_at = now() - interval '40 days' WHERE id = $1`, old.ID)
	require.NoError(t, err)

	cutoff := pgtype.Timestamptz{Time: time.Now().Add(-28 * 24 * time.Hour), Valid: true}
	n, err := store.DeleteStaleGuestCarts(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetCartBySessionKey(ctx, Text("old-guest"))
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = store.GetCartBySessionKey(ctx, Text("fresh-guest"))
	assert.NoError(t, err)

	var lines int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM cart_items WHERE cart_id = $1`, old.ID).Scan(&lines))
	assert.Zero(t, lines)
}

func TestStore_AddressConstraints(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, CreateUserParams{Email: "ana@example.com", FirstName: "Ana"})
	require.NoError(t, err)
	assert.False(t, user.IsActive, "new accounts start inactive")

	_, err = store.CreateUser(ctx, CreateUserParams{Email: "ANA@example.com"})
	assert.True(t, IsUniqueViolation(err, ""), "emails are unique regardless of case")

	params := CreateAddressParams{
		UserID:       user.ID,
		Label:        "Home",
		FirstName:    "Ana",
		LastName:     "Marin",
		AddressLine1: "1 Quarry Road",
		City:         "Carrara",
		State:        "MS",
		PostalCode:   "54033",
		Country:      "Italy",
		IsPrimary:    true,
	}
	home, err := store.CreateAddress(ctx, params)
	require.NoError(t, err)

	_, err = store.CreateAddress(ctx, params)
	assert.True(t, IsUniqueViolation(err, "addresses_user_label_key"))

	params.Label = "Work"
	_, err = store.CreateAddress(ctx, params)
	assert.True(t, IsUniqueViolation(err, "addresses_one_primary_idx"), "only one primary per user")

	params.IsPrimary = false
	work, err := store.CreateAddress(ctx, params)
	require.NoError(t, err)

	require.NoError(t, store.ClearPrimaryAddress(ctx, user.ID))
	promoted, err := store.SetPrimaryAddress(ctx, SetPrimaryAddressParams{ID: work.ID, UserID: user.ID})
	require.NoError(t, err)
	assert.True(t, promoted.IsPrimary)

	list, err := store.ListAddresses(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, work.ID, list[0].ID, "primary first")
	assert.Equal(t, home.ID, list[1].ID)
}
