package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmeshcher/procurement/internal/model"
	"github.com/mmeshcher/procurement/internal/notify"
)

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "5-1", FormatOrderNumber(5, 1))
	assert.Equal(t, "12-105", FormatOrderNumber(12, 105))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, want: true},
		{name: "deadlock", err: fmt.Errorf("tx: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

// newTestRepository поднимает PostgreSQL в контейнере и применяет миграции.
func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("procurement"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	repo.delays = []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 50 * time.Millisecond}
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

type catalogFixture struct {
	supplier model.User
	product  int64
	phone    int64
	cover    int64
	cable    int64
}

func seedCatalog(t *testing.T, r *PostgresRepository) catalogFixture {
	t.Helper()
	ctx := context.Background()

	supplier := model.User{
		Email: "shop@example.com", PasswordHash: []byte("x"),
		FirstName: "Olga", LastName: "Sidorova", Company: "Svyaznoy", Type: model.UserTypeSupplier,
	}
	id, err := r.CreateUser(ctx, supplier)
	require.NoError(t, err)
	supplier.ID = id

	var shopID, categoryID, productID int64
	require.NoError(t, r.pool.QueryRow(ctx,
		`INSERT INTO shops (name, user_id) VALUES ('Svyaznoy', $1) RETURNING id`, supplier.ID).Scan(&shopID))
	require.NoError(t, r.pool.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ('Phones') RETURNING id`).Scan(&categoryID))
	require.NoError(t, r.pool.QueryRow(ctx,
		`INSERT INTO products (name, category_id) VALUES ('Smartphone', $1) RETURNING id`, categoryID).Scan(&productID))

	insert := func(name string, stock, price, retail int64) int64 {
		var piID int64
		require.NoError(t, r.pool.QueryRow(ctx,
			`INSERT INTO product_infos (name, product_id, shop_id, quantity_in_stock, price, retail_price)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			name, productID, shopID, stock, price, retail).Scan(&piID))
		return piID
	}

	return catalogFixture{
		supplier: supplier,
		product:  productID,
		phone:    insert("iPhone", 5, 80, 100),
		cover:    insert("Cover", 10, 30, 50),
		cable:    insert("Cable", 10, 5, 10),
	}
}

func createBuyer(t *testing.T, r *PostgresRepository, email string) int64 {
	t.Helper()
	id, err := r.CreateUser(context.Background(), model.User{
		Email: email, PasswordHash: []byte("x"), FirstName: "Ivan", LastName: "Petrov", Type: model.UserTypeBuyer,
	})
	require.NoError(t, err)
	return id
}

func TestPostgresRepository(t *testing.T) {
	r := newTestRepository(t)
	fx := seedCatalog(t, r)
	ctx := context.Background()

	t.Run("duplicate user", func(t *testing.T) {
		_, err := r.CreateUser(ctx, model.User{Email: "shop@example.com", PasswordHash: []byte("y"), Type: model.UserTypeBuyer})
		require.ErrorIs(t, err, model.ErrUserExists)
	})

	t.Run("basket promotion and cancellation", func(t *testing.T) {
		buyer := createBuyer(t, r, "buyer1@example.com")

		inserted, name, err := r.AddToBasket(ctx, buyer, fx.phone)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, "iPhone", name)

		inserted, _, err = r.AddToBasket(ctx, buyer, fx.phone)
		require.NoError(t, err)
		assert.False(t, inserted)

		_, _, err = r.AddToBasket(ctx, buyer, fx.cover)
		require.NoError(t, err)

		basket, err := r.ListBasket(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, basket, 2)
		for _, item := range basket {
			if item.Name == "iPhone" {
				require.NoError(t, r.UpdateOrderQuantity(ctx, buyer, item.ID, 2))
			}
		}

		promoted, err := r.PromoteBasket(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, promoted, 1)
		assert.Equal(t, FormatOrderNumber(buyer, 1), promoted[0].Number)
		assert.Equal(t, []string{"shop@example.com"}, promoted[0].SupplierEmails)

		again, err := r.PromoteBasket(ctx, buyer)
		require.NoError(t, err)
		assert.Empty(t, again)

		orders, err := r.ListOrders(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, int64(250), orders[0].Sum)
		assert.Equal(t, model.OrderStatusNew, orders[0].Status)

		_, _, err = r.AddToBasket(ctx, buyer, fx.cable)
		require.NoError(t, err)
		_, err = r.pool.Exec(ctx,
			`UPDATE orders SET date = CURRENT_DATE - 1 WHERE user_id = $1 AND product_info_id = $2`, buyer, fx.cable)
		require.NoError(t, err)

		promoted, err = r.PromoteBasket(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, promoted, 1)
		assert.Equal(t, FormatOrderNumber(buyer, 2), promoted[0].Number)

		canceled, err := r.CancelActiveOrders(ctx, buyer)
		require.NoError(t, err)
		assert.Len(t, canceled, 2)

		canceled, err = r.CancelActiveOrders(ctx, buyer)
		require.NoError(t, err)
		assert.Empty(t, canceled)
	})

	t.Run("status transitions", func(t *testing.T) {
		buyer := createBuyer(t, r, "buyer2@example.com")
		_, _, err := r.AddToBasket(ctx, buyer, fx.phone)
		require.NoError(t, err)
		promoted, err := r.PromoteBasket(ctx, buyer)
		require.NoError(t, err)
		number := promoted[0].Number

		_, err = r.TransitionOrder(ctx, number, OrderFilter{SupplierID: fx.supplier.ID}, model.OrderStatusDelivered)
		require.ErrorIs(t, err, model.ErrValidation)

		got, err := r.TransitionOrder(ctx, number, OrderFilter{SupplierID: fx.supplier.ID}, model.OrderStatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, buyer, got)

		_, err = r.TransitionOrder(ctx, number, OrderFilter{BuyerID: buyer + 1000}, model.OrderStatusCanceled)
		require.ErrorIs(t, err, model.ErrNotFound)

		lines, err := r.ListSupplierOrderLines(ctx, fx.supplier.ID, number)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, int64(80), lines[0].Price)
		assert.Equal(t, model.OrderStatusConfirmed, lines[0].Status)
	})

	t.Run("concurrent promotion numbers once", func(t *testing.T) {
		buyer := createBuyer(t, r, "buyer3@example.com")
		_, _, err := r.AddToBasket(ctx, buyer, fx.phone)
		require.NoError(t, err)
		_, _, err = r.AddToBasket(ctx, buyer, fx.cover)
		require.NoError(t, err)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			numbers []string
		)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				promoted, err := r.PromoteBasket(ctx, buyer)
				assert.NoError(t, err)
				mu.Lock()
				for _, p := range promoted {
					numbers = append(numbers, p.Number)
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		assert.Equal(t, []string{FormatOrderNumber(buyer, 1)}, numbers)
	})

	t.Run("one contact per user", func(t *testing.T) {
		buyer := createBuyer(t, r, "buyer4@example.com")
		c := model.Contact{UserID: buyer, City: "Moscow", Street: "Tverskaya", Phone: "+79001234567"}

		id, err := r.CreateContact(ctx, c)
		require.NoError(t, err)

		_, err = r.CreateContact(ctx, c)
		require.ErrorIs(t, err, model.ErrConflict)

		ok, err := r.HasContact(ctx, buyer)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, r.DeleteContact(ctx, buyer, id))
		require.ErrorIs(t, r.DeleteContact(ctx, buyer, id), model.ErrNotFound)
	})

	t.Run("today new orders follow database date", func(t *testing.T) {
		buyer := createBuyer(t, r, "buyer7@example.com")
		_, _, err := r.AddToBasket(ctx, buyer, fx.cover)
		require.NoError(t, err)
		_, err = r.PromoteBasket(ctx, buyer)
		require.NoError(t, err)

		lines, err := r.ListTodayNewOrders(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, FormatOrderNumber(buyer, 1), lines[0].OrderNumber)

		_, err = r.pool.Exec(ctx, `UPDATE orders SET date = CURRENT_DATE - 1 WHERE user_id = $1`, buyer)
		require.NoError(t, err)
		lines, err = r.ListTodayNewOrders(ctx, buyer)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("delete product info keeps placed orders", func(t *testing.T) {
		placedBuyer := createBuyer(t, r, "buyer5@example.com")
		basketBuyer := createBuyer(t, r, "buyer6@example.com")

		charger, err := r.CreateProductInfo(ctx, fx.supplier.ID, model.ProductInfo{
			Name: "Charger", ProductID: fx.product, QuantityInStock: 3, Price: 10, RetailPrice: 20,
		})
		require.NoError(t, err)

		_, _, err = r.AddToBasket(ctx, placedBuyer, charger)
		require.NoError(t, err)
		_, err = r.PromoteBasket(ctx, placedBuyer)
		require.NoError(t, err)
		_, _, err = r.AddToBasket(ctx, basketBuyer, charger)
		require.NoError(t, err)

		err = r.DeleteProductInfo(ctx, fx.supplier.ID, charger)
		require.ErrorIs(t, err, model.ErrValidation)

		orders, err := r.ListOrders(ctx, placedBuyer)
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, int64(20), orders[0].Sum)

		basket, err := r.ListBasket(ctx, basketBuyer)
		require.NoError(t, err)
		assert.Len(t, basket, 1, "failed delete leaves baskets untouched")

		require.ErrorIs(t, r.DeleteProductInfo(ctx, fx.supplier.ID+1000, charger), model.ErrNotFound)

		_, err = r.CancelActiveOrders(ctx, placedBuyer)
		require.NoError(t, err)
		_, err = r.pool.Exec(ctx, `DELETE FROM orders WHERE user_id = $1`, placedBuyer)
		require.NoError(t, err)

		require.NoError(t, r.DeleteProductInfo(ctx, fx.supplier.ID, charger))
		basket, err = r.ListBasket(ctx, basketBuyer)
		require.NoError(t, err)
		assert.Empty(t, basket)
	})

	t.Run("notification outbox", func(t *testing.T) {
		require.NoError(t, r.EnqueueNotifications(ctx,
			notify.Notification{Recipients: []string{"a@example.com"}, Subject: "s1", Body: "b1"},
			notify.Notification{Recipients: []string{"b@example.com", "c@example.com"}, Subject: "s2", Body: "b2"},
		))

		first, err := r.LockBatch(ctx, "owner-a", 10, time.Minute)
		require.NoError(t, err)
		require.Len(t, first, 2)

		second, err := r.LockBatch(ctx, "owner-b", 10, time.Minute)
		require.NoError(t, err)
		assert.Empty(t, second, "leased messages are not handed out twice")

		require.NoError(t, r.MarkSent(ctx, []int64{first[0].ID}))
		require.NoError(t, r.MarkFailed(ctx, first[1].ID, "smtp down", 2))

		retry, err := r.LockBatch(ctx, "owner-b", 10, time.Minute)
		require.NoError(t, err)
		require.Len(t, retry, 1)
		assert.Equal(t, first[1].ID, retry[0].ID)
		assert.Equal(t, 1, retry[0].Attempts)

		require.NoError(t, r.MarkFailed(ctx, retry[0].ID, "smtp down", 2))
		rest, err := r.LockBatch(ctx, "owner-c", 10, time.Minute)
		require.NoError(t, err)
		assert.Empty(t, rest, "message is dropped after max attempts")
	})
}
