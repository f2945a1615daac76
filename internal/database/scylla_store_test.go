package database

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/models"
)

// Nécessite un ScyllaDB local : SCYLLA_TEST_HOSTS=127.0.0.1 SCYLLA_TEST_KEYSPACE=storefront_test
func TestScyllaStoreIntegration(t *testing.T) {
	hosts := os.Getenv("SCYLLA_TEST_HOSTS")
	keyspace := os.Getenv("SCYLLA_TEST_KEYSPACE")
	if hosts == "" || keyspace == "" {
		t.Skip("SCYLLA_TEST_HOSTS non défini")
	}

	session, err := ConnectScylla(ScyllaConfig{Hosts: strings.Split(hosts, ","), Keyspace: keyspace})
	require.NoError(t, err)
	store := NewScyllaStore(session)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	base := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.InsertEvent(ctx, models.AnalyticsEvent{EventType: "it_probe", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, store.InsertEvent(ctx, models.AnalyticsEvent{EventType: "it_probe", CreatedAt: base, EventData: map[string]any{"n": 1}}))

	events, err := store.ListEvents(ctx, "it_probe")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(events), 2)
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].CreatedAt.Before(events[i-1].CreatedAt))
	}

	order, err := store.CreateOrder(ctx, models.Order{CustomerName: "Asha", CustomerEmail: "a@b.c", CustomerAddress: "x", TotalAmount: 3})
	require.NoError(t, err)
	require.NoError(t, store.CreateOrderItems(ctx, []models.OrderItem{{OrderID: order.ID, ProductID: "p", Quantity: 1, Price: 3}}))
}

func TestConnectScyllaRequiresHosts(t *testing.T) {
	_, err := ConnectScylla(ScyllaConfig{Keyspace: "x"})
	assert.Error(t, err)
}
