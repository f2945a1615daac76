package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
)

type fakeOrders struct {
	mu        sync.Mutex
	orderErr  error
	itemsErr  error
	orders    []models.Order
	items     []models.OrderItem
	itemCalls int
	block     chan struct{}
}

func (f *fakeOrders) CreateOrder(_ context.Context, order models.Order) (models.Order, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return models.Order{}, f.orderErr
	}
	order.ID = "order-1"
	order.CreatedAt = time.Now()
	f.orders = append(f.orders, order)
	return order, nil
}

func (f *fakeOrders) CreateOrderItems(_ context.Context, items []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls++
	if f.itemsErr != nil {
		return f.itemsErr
	}
	f.items = append(f.items, items...)
	return nil
}

type fakeTracker struct {
	mu     sync.Mutex
	events []string
	data   []map[string]any
}

func (f *fakeTracker) Track(eventType string, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	f.data = append(f.data, data)
}

type fakeNotifier struct{ orders []models.Order }

func (f *fakeNotifier) OrderConfirmed(order models.Order, _ []models.CartItem) {
	f.orders = append(f.orders, order)
}

func validForm() Form {
	return Form{
		Name:       "Asha Rao",
		Email:      "asha@example.com",
		Address:    "12 MG Road",
		City:       "Pune",
		ZipCode:    "411001",
		CardNumber: "4242 4242 4242 4242",
		ExpiryDate: "12/29",
		CVV:        "123",
	}
}

func cartItems() []models.CartItem {
	return []models.CartItem{
		{Product: models.Product{ID: "p1", Price: 10, Stock: 5}, Quantity: 2},
		{Product: models.Product{ID: "p2", Price: 20, Stock: 3}, Quantity: 1},
	}
}

func TestSubmitSuccess(t *testing.T) {
	orders := &fakeOrders{}
	tracker := &fakeTracker{}
	notifier := &fakeNotifier{}
	o := New(orders, tracker, nil).WithNotifier(notifier)
	defer o.Close()

	order, err := o.Submit(context.Background(), validForm(), cartItems())
	require.NoError(t, err)

	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, StateComplete, o.State())
	require.Len(t, orders.orders, 1)
	assert.Equal(t, "12 MG Road, Pune, 411001", orders.orders[0].CustomerAddress)
	assert.Equal(t, models.OrderStatusCompleted, orders.orders[0].Status)
	assert.InDelta(t, 40.0, orders.orders[0].TotalAmount, 1e-9)

	assert.Equal(t, []models.OrderItem{
		{OrderID: "order-1", ProductID: "p1", Quantity: 2, Price: 10},
		{OrderID: "order-1", ProductID: "p2", Quantity: 1, Price: 20},
	}, orders.items)

	require.Equal(t, []string{models.EventOrderCompleted}, tracker.events)
	assert.Equal(t, "order-1", tracker.data[0]["order_id"])
	assert.Equal(t, 2, tracker.data[0]["items_count"])
	assert.Len(t, notifier.orders, 1)
	require.NotNil(t, o.LastOrder())
	assert.Equal(t, "order-1", o.LastOrder().ID)
}

func TestSubmitOrderFailureWritesNoItems(t *testing.T) {
	orders := &fakeOrders{orderErr: errors.New("insert refusé")}
	tracker := &fakeTracker{}
	o := New(orders, tracker, nil)

	_, err := o.Submit(context.Background(), validForm(), cartItems())
	require.ErrorIs(t, err, ErrOrderFailed)
	assert.Equal(t, StateIdle, o.State())
	assert.Equal(t, 0, orders.itemCalls)
	assert.Empty(t, tracker.events)
}

func TestSubmitItemsFailureLeavesOrderPersisted(t *testing.T) {
	orders := &fakeOrders{itemsErr: errors.New("timeout")}
	tracker := &fakeTracker{}
	o := New(orders, tracker, nil)

	order, err := o.Submit(context.Background(), validForm(), cartItems())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOrderItemsFailed)

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "order-1", partial.OrderID)
	assert.Equal(t, "order-1", order.ID)

	assert.Len(t, orders.orders, 1, "la commande orpheline reste en base")
	assert.Equal(t, StateIdle, o.State())
	assert.Empty(t, tracker.events)
	assert.Nil(t, o.LastOrder())
}

func TestSubmitValidation(t *testing.T) {
	o := New(&fakeOrders{}, nil, nil)

	form := validForm()
	form.City = "  "
	_, err := o.Submit(context.Background(), form, cartItems())
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = o.Submit(context.Background(), validForm(), nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StateIdle, o.State())
}

func TestSubmitRejectedWhileComplete(t *testing.T) {
	o := New(&fakeOrders{}, nil, nil)
	defer o.Close()

	_, err := o.Submit(context.Background(), validForm(), cartItems())
	require.NoError(t, err)

	_, err = o.Submit(context.Background(), validForm(), cartItems())
	assert.ErrorIs(t, err, ErrAlreadyComplete)
}

func TestSubmitRejectedWhileSubmitting(t *testing.T) {
	orders := &fakeOrders{block: make(chan struct{})}
	o := New(orders, nil, nil)
	defer o.Close()

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), validForm(), cartItems())
		done <- err
	}()

	require.Eventually(t, func() bool { return o.State() == StateSubmitting }, time.Second, 5*time.Millisecond)
	_, err := o.Submit(context.Background(), validForm(), cartItems())
	assert.ErrorIs(t, err, ErrInProgress)

	close(orders.block)
	require.NoError(t, <-done)
}

func TestResetFiresAfterDelay(t *testing.T) {
	resets := make(chan struct{}, 1)
	o := New(&fakeOrders{}, nil, func() { resets <- struct{}{} })
	o.resetDelay = 20 * time.Millisecond
	defer o.Close()

	_, err := o.Submit(context.Background(), validForm(), cartItems())
	require.NoError(t, err)

	select {
	case <-resets:
	case <-time.After(time.Second):
		t.Fatal("reset non déclenché")
	}
	assert.Equal(t, StateIdle, o.State())

	// une nouvelle commande est de nouveau possible
	_, err = o.Submit(context.Background(), validForm(), cartItems())
	assert.NoError(t, err)
}

func TestCloseCancelsPendingReset(t *testing.T) {
	resets := make(chan struct{}, 1)
	o := New(&fakeOrders{}, nil, func() { resets <- struct{}{} })
	o.resetDelay = 30 * time.Millisecond

	_, err := o.Submit(context.Background(), validForm(), cartItems())
	require.NoError(t, err)
	o.Close()

	select {
	case <-resets:
		t.Fatal("reset appliqué à une session fermée")
	case <-time.After(120 * time.Millisecond):
	}

	_, err = o.Submit(context.Background(), validForm(), cartItems())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStaleGenerationIgnored(t *testing.T) {
	called := false
	o := New(&fakeOrders{}, nil, func() { called = true })
	o.resetDelay = time.Hour
	defer o.Close()

	_, err := o.Submit(context.Background(), validForm(), cartItems())
	require.NoError(t, err)

	o.reset(o.generation + 1)
	assert.False(t, called)
	assert.Equal(t, StateComplete, o.State())
}

func TestDefaultResetDelay(t *testing.T) {
	assert.Equal(t, 3*time.Second, ResetDelay)
	assert.Equal(t, ResetDelay, New(&fakeOrders{}, nil, nil).resetDelay)
}
