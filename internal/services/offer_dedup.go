package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sosline/internal/utils"
	"sosline/pkg/cache"
)

const offerPending = "pending"

// OfferDeduplicator remembers (user, correlation token) pairs so a client
// that re-sends an offer after a reconnect gets the original id back instead
// of a second event.
type OfferDeduplicator interface {
	// Claim returns claimed=true when the caller owns the token and must
	// create the event. Otherwise eventID holds the id stored for it, or is
	// empty while the first claimant is still persisting.
	Claim(ctx context.Context, userID, token string) (eventID string, claimed bool, err error)
	Complete(ctx context.Context, userID, token, eventID string) error
	Release(ctx context.Context, userID, token string) error
}

func offerKey(userID, token string) string {
	return utils.CacheOfferPrefix + userID + ":" + token
}

type redisOfferDeduplicator struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

func NewRedisOfferDeduplicator(c *cache.RedisCache, ttl time.Duration) OfferDeduplicator {
	return &redisOfferDeduplicator{cache: c, ttl: ttl}
}

func (d *redisOfferDeduplicator) Claim(ctx context.Context, userID, token string) (string, bool, error) {
	key := offerKey(userID, token)

	ok, err := d.cache.SetNX(ctx, key, offerPending, d.ttl)
	if err != nil {
		return "", false, fmt.Errorf("failed to claim offer token: %w", err)
	}
	if ok {
		return "", true, nil
	}

	value, err := d.cache.GetString(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			// Expired between SETNX and GET; try once more.
			ok, err = d.cache.SetNX(ctx, key, offerPending, d.ttl)
			if err != nil {
				return "", false, fmt.Errorf("failed to claim offer token: %w", err)
			}
			return "", ok, nil
		}
		return "", false, fmt.Errorf("failed to read offer token: %w", err)
	}

	if value == offerPending {
		return "", false, nil
	}
	return value, false, nil
}

func (d *redisOfferDeduplicator) Complete(ctx context.Context, userID, token, eventID string) error {
	return d.cache.SetString(ctx, offerKey(userID, token), eventID, d.ttl)
}

func (d *redisOfferDeduplicator) Release(ctx context.Context, userID, token string) error {
	return d.cache.Delete(ctx, offerKey(userID, token))
}

// memoryOfferDeduplicator serves single-instance deployments without Redis.
type memoryOfferDeduplicator struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]offerEntry
}

type offerEntry struct {
	eventID string
	expires time.Time
}

func NewMemoryOfferDeduplicator(ttl time.Duration) OfferDeduplicator {
	return &memoryOfferDeduplicator{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]offerEntry),
	}
}

func (d *memoryOfferDeduplicator) Claim(_ context.Context, userID, token string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweep(now)

	key := offerKey(userID, token)
	if entry, ok := d.entries[key]; ok {
		return entry.eventID, false, nil
	}

	d.entries[key] = offerEntry{expires: now.Add(d.ttl)}
	return "", true, nil
}

func (d *memoryOfferDeduplicator) Complete(_ context.Context, userID, token, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries[offerKey(userID, token)] = offerEntry{eventID: eventID, expires: d.now().Add(d.ttl)}
	return nil
}

func (d *memoryOfferDeduplicator) Release(_ context.Context, userID, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.entries, offerKey(userID, token))
	return nil
}

func (d *memoryOfferDeduplicator) sweep(now time.Time) {
	for key, entry := range d.entries {
		if now.After(entry.expires) {
			delete(d.entries, key)
		}
	}
}
