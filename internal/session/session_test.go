package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/models"
)

type fakeOrders struct{}

func (fakeOrders) CreateOrder(_ context.Context, o models.Order) (models.Order, error) {
	o.ID = "order-1"
	return o, nil
}

func (fakeOrders) CreateOrderItems(context.Context, []models.OrderItem) error { return nil }

type recordingBus struct {
	mu       sync.Mutex
	messages []string
}

func (b *recordingBus) Publish(_ context.Context, sessionID, kind string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, sessionID+":"+kind)
}

// slowBus bloque chaque publication jusqu'à la fermeture de release
type slowBus struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *slowBus) Publish(context.Context, string, string) {
	b.once.Do(func() { close(b.started) })
	<-b.release
}

var product = models.Product{ID: "p1", Name: "Bol", Price: 10, Stock: 5}

func TestGetReturnsSameSession(t *testing.T) {
	r := NewRegistry(Dependencies{Orders: fakeOrders{}}, time.Hour)

	a := r.Get("abc")
	b := r.Get("abc")
	c := r.Get("other")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	r := NewRegistry(Dependencies{Orders: fakeOrders{}}, time.Hour)

	r.Get("a").WithCart(func(c *cart.Store) { c.Add(product, 2) })

	_, total, count := r.Get("b").Snapshot()
	assert.Zero(t, total)
	assert.Zero(t, count)

	items, total, count := r.Get("a").Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, 20.0, total)
	assert.Equal(t, 2, count)
}

func TestCartChangesArePublished(t *testing.T) {
	bus := &recordingBus{}
	r := NewRegistry(Dependencies{Orders: fakeOrders{}, Bus: bus}, time.Hour)

	s := r.Get("s1")
	s.WithCart(func(c *cart.Store) {
		c.Add(product, 1)
		c.Remove("unknown")
		c.Clear()
	})

	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.Equal(t, []string{"s1:updated", "s1:cleared"}, bus.messages)
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	r := NewRegistry(Dependencies{Orders: fakeOrders{}}, time.Hour)
	s := r.Get("s1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Get("s1").WithCart(func(c *cart.Store) { c.Add(product, 1) })
		}()
	}
	wg.Wait()

	items, _, count := s.Snapshot()
	assert.Len(t, items, 1)
	assert.Equal(t, 50, count)
}

func TestSweepEvictsIdleSessionsAndClosesCheckout(t *testing.T) {
	r := NewRegistry(Dependencies{Orders: fakeOrders{}}, time.Minute)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	idle := r.Get("idle")
	idle.WithCart(func(c *cart.Store) { c.Add(product, 1) })
	items, _, _ := idle.Snapshot()

	form := checkout.Form{Name: "A", Email: "a@b.c", Address: "x", City: "y", ZipCode: "1", CardNumber: "4242", ExpiryDate: "12/30", CVV: "123"}
	_, err := idle.Checkout().Submit(context.Background(), form, items)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	r.Get("active")

	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	_, err = idle.Checkout().Submit(context.Background(), form, items)
	assert.ErrorIs(t, err, checkout.ErrClosed)
}

func TestRunStopsWithContext(t *testing.T) {
	r := NewRegistry(Dependencies{Orders: fakeOrders{}}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run ne s'est pas arrêté")
	}
}

func TestCloseClosesAllSessions(t *testing.T) {
	r := NewRegistry(Dependencies{Orders: fakeOrders{}}, time.Hour)
	s := r.Get("s1")
	s.WithCart(func(c *cart.Store) { c.Add(product, 1) })
	items, _, _ := s.Snapshot()

	r.Close()
	assert.Zero(t, r.Len())

	form := checkout.Form{Name: "A", Email: "a@b.c", Address: "x", City: "y", ZipCode: "1", CardNumber: "4242", ExpiryDate: "12/30", CVV: "123"}
	_, err := s.Checkout().Submit(context.Background(), form, items)
	assert.ErrorIs(t, err, checkout.ErrClosed)
}

func TestSlowPublishDoesNotBlockOtherSessions(t *testing.T) {
	bus := &slowBus{started: make(chan struct{}), release: make(chan struct{})}
	r := NewRegistry(Dependencies{Orders: fakeOrders{}, Bus: bus}, time.Hour)
	defer close(bus.release)

	a := r.Get("a")
	go a.WithCart(func(c *cart.Store) { c.Add(product, 1) })
	<-bus.started

	// le panier de "a" est déjà relâché pendant la publication
	got := make(chan struct{})
	go func() {
		r.Get("a")
		r.Get("b").WithCart(func(c *cart.Store) {})
		_, _, count := a.Snapshot()
		assert.Equal(t, 1, count)
		close(got)
	}()

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("Get bloqué par une publication lente")
	}
}
