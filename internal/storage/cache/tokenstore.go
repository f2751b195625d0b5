package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-notify/pkg/channel/push"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// CachedTokenStore is a decorator that adds read-aside caching to any
// push.TokenStore. Reads hit the cache first; every write goes to the real
// store and invalidates the cached entry, so a just-unregistered device stops
// receiving pushes immediately.
type CachedTokenStore struct {
	realStore push.TokenStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedTokenStore(realStore push.TokenStore, cache CacheClient, ttl time.Duration) *CachedTokenStore {
	return &CachedTokenStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

func (s *CachedTokenStore) Fetch(ctx context.Context, recipient string) (*push.DeviceTokens, error) {
	key := s.cacheKey(recipient)

	var cached push.DeviceTokens
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	fresh, err := s.realStore.Fetch(ctx, recipient)
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction: if Redis is down we
	// just serve from the real store.
	_ = s.cache.Set(ctx, key, fresh, s.ttl)

	return fresh, nil
}

func (s *CachedTokenStore) RegisterFCM(ctx context.Context, recipient, token string) error {
	if err := s.realStore.RegisterFCM(ctx, recipient, token); err != nil {
		return err
	}
	return s.invalidate(ctx, recipient)
}

func (s *CachedTokenStore) RegisterAPNS(ctx context.Context, recipient, token string) error {
	if err := s.realStore.RegisterAPNS(ctx, recipient, token); err != nil {
		return err
	}
	return s.invalidate(ctx, recipient)
}

func (s *CachedTokenStore) RegisterWeb(ctx context.Context, recipient string, sub push.WebSubscription) error {
	if err := s.realStore.RegisterWeb(ctx, recipient, sub); err != nil {
		return err
	}
	return s.invalidate(ctx, recipient)
}

func (s *CachedTokenStore) UnregisterFCM(ctx context.Context, recipient, token string) error {
	if err := s.realStore.UnregisterFCM(ctx, recipient, token); err != nil {
		return err
	}
	return s.invalidate(ctx, recipient)
}

func (s *CachedTokenStore) UnregisterAPNS(ctx context.Context, recipient, token string) error {
	if err := s.realStore.UnregisterAPNS(ctx, recipient, token); err != nil {
		return err
	}
	return s.invalidate(ctx, recipient)
}

func (s *CachedTokenStore) UnregisterWeb(ctx context.Context, recipient, endpoint string) error {
	if err := s.realStore.UnregisterWeb(ctx, recipient, endpoint); err != nil {
		return err
	}
	return s.invalidate(ctx, recipient)
}

func (s *CachedTokenStore) invalidate(ctx context.Context, recipient string) error {
	// Delete the key; the next Fetch is forced back to the real store.
	return s.cache.Del(ctx, s.cacheKey(recipient))
}

func (s *CachedTokenStore) cacheKey(recipient string) string {
	return fmt.Sprintf("notify:tokens:%s", recipient)
}
