package state

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

func setupRealRedis(t *testing.T) (*RedisStore, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	redisC, err := tcredis.Run(ctx, "redis:7")
	require.NoError(t, err)

	cleanup := func() {
		testcontainers.CleanupContainer(t, redisC)
	}

	uri, err := redisC.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	return NewRedisStore(redis.NewClient(opts)), cleanup
}

func TestRedisStore_Integration(t *testing.T) {
	store, cleanup := setupRealRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SetSessionID(ctx, "client1", "session_1_abcdefghi"))
	id, err := store.GetSessionID(ctx, "client1")
	require.NoError(t, err)
	assert.Equal(t, "session_1_abcdefghi", id)

	auth := &domain.AuthState{Token: "tok", User: domain.User{ID: "u1"}}
	require.NoError(t, store.SetAuth(ctx, "client1", auth))
	gotAuth, err := store.GetAuth(ctx, "client1")
	require.NoError(t, err)
	assert.Equal(t, auth, gotAuth)

	cart := &domain.Cart{
		Items:       []domain.LineItem{{ProductID: "p1", VariantID: "v1", Quantity: 2, UnitPrice: 100}},
		TotalAmount: 200,
	}
	require.NoError(t, store.SetCart(ctx, "client1", cart))
	gotCart, err := store.GetCart(ctx, "client1")
	require.NoError(t, err)
	assert.Equal(t, cart, gotCart)

	require.NoError(t, store.DeleteCart(ctx, "client1"))
	_, err = store.GetCart(ctx, "client1")
	assert.ErrorIs(t, err, ErrNotFound)
}
