package cache

import (
	"context"
	"testing"
	"time"

	"mou-dashboard/internal/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	return NewWithClient(client, logger.NewNop())
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	type payload struct {
		Name  string  `json:"name"`
		Total float64 `json:"total"`
	}

	c.Set(ctx, "table:mo", payload{Name: "LBNL", Total: 3.75}, time.Hour)

	var got payload
	found, err := c.Get(ctx, "table:mo", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "LBNL", Total: 3.75}, got)
}

func TestGetMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	var got map[string]interface{}
	found, err := c.Get(ctx, "never-set", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestVersionCounter(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	assert.Equal(t, int64(0), c.GetVersion(ctx, "wbs:mo:table:version"))

	c.IncrementVersion(ctx, "wbs:mo:table:version")
	c.IncrementVersion(ctx, "wbs:mo:table:version")
	assert.Equal(t, int64(2), c.GetVersion(ctx, "wbs:mo:table:version"))

	// counters are independent per key
	assert.Equal(t, int64(0), c.GetVersion(ctx, "wbs:upgrade:table:version"))
}

func TestNilClientIsNoOp(t *testing.T) {
	ctx := context.Background()
	c := NewWithClient(nil, logger.NewNop())

	c.Set(ctx, "key", "value", time.Minute)
	var got string
	found, err := c.Get(ctx, "key", &got)
	require.NoError(t, err)
	assert.False(t, found)

	c.IncrementVersion(ctx, "key")
	assert.Equal(t, int64(0), c.GetVersion(ctx, "key"))
}
