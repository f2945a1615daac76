package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
)

func TestProductCacheWithoutRedis(t *testing.T) {
	ctx := context.Background()
	c := NewProductCache(nil, 0)

	c.Set(ctx, []models.Product{{ID: "p1"}})
	_, ok := c.Get(ctx)
	assert.False(t, ok)
	c.Invalidate(ctx)

	var nilCache *ProductCache
	_, ok = nilCache.Get(ctx)
	assert.False(t, ok)
}

func TestLocalCartBus(t *testing.T) {
	ctx := context.Background()
	bus := NewCartBus(nil)

	ch, unsubscribe := bus.Subscribe(ctx, "s1")
	other, unsubscribeOther := bus.Subscribe(ctx, "s2")
	defer unsubscribeOther()

	bus.Publish(ctx, "s1", "updated")
	select {
	case msg := <-ch:
		assert.Equal(t, "updated", msg)
	case <-time.After(time.Second):
		t.Fatal("notification non reçue")
	}

	select {
	case msg := <-other:
		t.Fatalf("notification inattendue pour s2: %s", msg)
	default:
	}

	unsubscribe()
	unsubscribe()
	_, open := <-ch
	assert.False(t, open)

	bus.Publish(ctx, "s1", "cleared")
}

// Nécessite un Redis local : REDIS_TEST_ADDR=localhost:6379
func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR non défini")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestProductCacheRedis(t *testing.T) {
	client := redisForTest(t)
	ctx := context.Background()
	c := NewProductCache(client, time.Minute)
	c.Invalidate(ctx)

	_, ok := c.Get(ctx)
	require.False(t, ok)

	c.Set(ctx, []models.Product{{ID: "p1", Name: "Bol", Price: 12}})
	products, ok := c.Get(ctx)
	require.True(t, ok)
	require.Len(t, products, 1)
	assert.Equal(t, "Bol", products[0].Name)

	c.Invalidate(ctx)
	_, ok = c.Get(ctx)
	assert.False(t, ok)
}

func TestRedisCartBus(t *testing.T) {
	client := redisForTest(t)
	ctx := context.Background()
	bus := NewCartBus(client)

	ch, unsubscribe := bus.Subscribe(ctx, "it-session")
	defer unsubscribe()
	time.Sleep(100 * time.Millisecond)

	bus.Publish(ctx, "it-session", "cleared")
	select {
	case msg := <-ch:
		assert.Equal(t, "cleared", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("notification Redis non reçue")
	}
}
