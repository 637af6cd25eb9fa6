package services_test

import (
	"context"
	"testing"
	"time"

	"sosline/internal/services"
	"sosline/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultDedupTTL = 10 * time.Minute

func newMiniRedisCache(t *testing.T) (*miniredis.Miniredis, *cache.RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewRedisCacheFromClient(client)
}

func exerciseDeduplicator(t *testing.T, d services.OfferDeduplicator) {
	ctx := context.Background()

	id, claimed, err := d.Claim(ctx, "u1", "tok")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Empty(t, id)

	// Still persisting: no id yet, not claimable.
	id, claimed, err = d.Claim(ctx, "u1", "tok")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Empty(t, id)

	// Tokens are scoped per user.
	_, claimed, err = d.Claim(ctx, "u2", "tok")
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, d.Complete(ctx, "u1", "tok", "evt-1"))
	id, claimed, err = d.Claim(ctx, "u1", "tok")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "evt-1", id)

	require.NoError(t, d.Release(ctx, "u2", "tok"))
	_, claimed, err = d.Claim(ctx, "u2", "tok")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestMemoryOfferDeduplicator(t *testing.T) {
	exerciseDeduplicator(t, services.NewMemoryOfferDeduplicator(defaultDedupTTL))
}

func TestMemoryOfferDeduplicator_Expires(t *testing.T) {
	d := services.NewMemoryOfferDeduplicator(time.Millisecond)
	ctx := context.Background()

	_, claimed, err := d.Claim(ctx, "u1", "tok")
	require.NoError(t, err)
	require.True(t, claimed)

	time.Sleep(5 * time.Millisecond)

	_, claimed, err = d.Claim(ctx, "u1", "tok")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestRedisOfferDeduplicator(t *testing.T) {
	_, c := newMiniRedisCache(t)
	exerciseDeduplicator(t, services.NewRedisOfferDeduplicator(c, defaultDedupTTL))
}

func TestRedisOfferDeduplicator_Expires(t *testing.T) {
	mr, c := newMiniRedisCache(t)
	d := services.NewRedisOfferDeduplicator(c, time.Minute)
	ctx := context.Background()

	_, claimed, err := d.Claim(ctx, "u1", "tok")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, d.Complete(ctx, "u1", "tok", "evt-1"))

	mr.FastForward(2 * time.Minute)

	id, claimed, err := d.Claim(ctx, "u1", "tok")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Empty(t, id)
}

func TestRedisOfferDeduplicator_UnavailableReportsError(t *testing.T) {
	mr, c := newMiniRedisCache(t)
	d := services.NewRedisOfferDeduplicator(c, time.Minute)
	mr.Close()

	_, claimed, err := d.Claim(context.Background(), "u1", "tok")
	assert.Error(t, err)
	assert.False(t, claimed)
}
