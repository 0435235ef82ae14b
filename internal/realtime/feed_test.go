package realtime

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_NewestFirst(t *testing.T) {
	feed := NewFeed()
	ctx := context.Background()

	require.NoError(t, feed.Store(ctx, ReviewEvent{ProductID: "p1", UserName: "an", Rating: 4}))
	require.NoError(t, feed.Store(ctx, ReviewEvent{ProductID: "p1", UserName: "binh", Rating: 5}))

	got := feed.Recent("p1")
	require.Len(t, got, 2)
	assert.Equal(t, "binh", got[0].UserName)
	assert.Equal(t, "an", got[1].UserName)
}

func TestFeed_BoundedPerProduct(t *testing.T) {
	feed := NewFeed()
	ctx := context.Background()

	for i := 0; i < feedDepth+10; i++ {
		require.NoError(t, feed.Store(ctx, ReviewEvent{
			ProductID:  "p1",
			UserName:   fmt.Sprintf("user%d", i),
			Rating:     5,
			OccurredAt: time.Now(),
		}))
	}

	got := feed.Recent("p1")
	assert.Len(t, got, feedDepth)
	assert.Equal(t, fmt.Sprintf("user%d", feedDepth+9), got[0].UserName)
}

func TestFeed_ProductsIsolated(t *testing.T) {
	feed := NewFeed()
	ctx := context.Background()

	require.NoError(t, feed.Store(ctx, ReviewEvent{ProductID: "p1", Rating: 5}))
	assert.Len(t, feed.Recent("p1"), 1)
	assert.Empty(t, feed.Recent("p2"))
}

func TestFeed_RecentReturnsCopy(t *testing.T) {
	feed := NewFeed()
	require.NoError(t, feed.Store(context.Background(), ReviewEvent{ProductID: "p1", UserName: "an"}))

	got := feed.Recent("p1")
	got[0].UserName = "mutated"
	assert.Equal(t, "an", feed.Recent("p1")[0].UserName)
}
