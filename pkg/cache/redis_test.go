package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCacheFromClient(client), mr
}

func TestRedisCache_SetNX(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := c.GetString(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	mr.FastForward(2 * time.Minute)
	_, err = c.GetString(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_PublishSubscribe(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	sub := c.Subscribe(ctx, "ch")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, c.Publish(ctx, "ch", []byte(`{"x":1}`)))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, `{"x":1}`, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
