package database

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	store, err := OpenSQL(ctx, DialectSQLite, filepath.Join(t.TempDir(), "storefront.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestSQLiteProducts(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := store.InsertProduct(ctx, models.Product{ID: "old", Name: "Bol", Price: 12.5, Stock: 3, CreatedAt: base})
	require.NoError(t, err)
	_, err = store.InsertProduct(ctx, models.Product{ID: "new", Name: "Tasse", Price: 8, Stock: 0, CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "new", products[0].ID)
	assert.Equal(t, "old", products[1].ID)
	assert.True(t, products[1].CreatedAt.Equal(base))

	p, err := store.GetProduct(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "Bol", p.Name)
	assert.Equal(t, 12.5, p.Price)
	assert.Equal(t, 3, p.Stock)

	_, err = store.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteInsertProductUpserts(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := store.InsertProduct(ctx, models.Product{ID: "bol", Name: "Bol", Price: 12.5, Stock: 3, CreatedAt: base})
	require.NoError(t, err)
	_, err = store.InsertProduct(ctx, models.Product{ID: "bol", Name: "Bol en grès", Price: 14, Stock: 7, CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	products, err := store.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Bol en grès", products[0].Name)
	assert.Equal(t, 14.0, products[0].Price)
	assert.Equal(t, 7, products[0].Stock)
	assert.True(t, products[0].CreatedAt.Equal(base))
}

func TestSQLiteOrders(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	order, err := store.CreateOrder(ctx, models.Order{
		CustomerName:    "Asha",
		CustomerEmail:   "asha@example.com",
		CustomerAddress: "12 Rue Verte, Lyon, 69001",
		TotalAmount:     42,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)

	err = store.CreateOrderItems(ctx, []models.OrderItem{
		{OrderID: order.ID, ProductID: "a", Quantity: 2, Price: 10},
		{OrderID: order.ID, ProductID: "b", Quantity: 1, Price: 22},
	})
	require.NoError(t, err)
	require.NoError(t, store.CreateOrderItems(ctx, nil))

	items, err := store.ListOrderItems(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	n, err := store.CountOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteEvents(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertEvent(ctx, models.AnalyticsEvent{EventType: models.EventAddToCart, CreatedAt: base.Add(2 * time.Minute), EventData: map[string]any{"product_id": "a"}}))
	require.NoError(t, store.InsertEvent(ctx, models.AnalyticsEvent{EventType: models.EventPageView, CreatedAt: base}))
	require.NoError(t, store.InsertEvent(ctx, models.AnalyticsEvent{EventType: models.EventPageView, CreatedAt: base.Add(time.Minute)}))

	all, err := store.ListEvents(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.EventPageView, all[0].EventType)
	assert.Equal(t, models.EventAddToCart, all[2].EventType)
	assert.Equal(t, "a", all[2].EventData["product_id"])
	assert.NotNil(t, all[0].EventData)

	views, err := store.ListEvents(ctx, models.EventPageView)
	require.NoError(t, err)
	assert.Len(t, views, 2)
	assert.True(t, views[0].CreatedAt.Before(views[1].CreatedAt))
}

func TestPostgresRebind(t *testing.T) {
	s := NewSQLStore(nil, DialectPostgres)
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := NewSQLStore(nil, DialectSQLite)
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestPostgresCreateOrderItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db, DialectPostgres)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)`)).
		WithArgs("o1", "a", 2, 10.0, "o1", "b", 1, 5.0).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err = store.CreateOrderItems(context.Background(), []models.OrderItem{
		{OrderID: "o1", ProductID: "a", Quantity: 2, Price: 10},
		{OrderID: "o1", ProductID: "b", Quantity: 1, Price: 5},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateOrderFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db, DialectPostgres)
	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO orders`)).
		WithArgs(sqlmock.AnyArg(), "Asha", "asha@example.com", "addr", 9.5, models.OrderStatusCompleted, sqlmock.AnyArg()).
		WillReturnError(boom)

	_, err = store.CreateOrder(context.Background(), models.Order{
		CustomerName: "Asha", CustomerEmail: "asha@example.com", CustomerAddress: "addr", TotalAmount: 9.5,
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetProductNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLStore(db, DialectPostgres)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = $1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "price", "image_url", "stock", "created_at"}))

	_, err = store.GetProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenSQLUnknownDialect(t *testing.T) {
	_, err := OpenSQL(context.Background(), "mysql", "dsn")
	assert.Error(t, err)
}
