package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-notify/internal/storage/cache"
	"github.com/tinywideclouds/go-notify/pkg/channel/push"
)

// --- Mocks ---

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCache) Del(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockRealStore struct {
	mock.Mock
}

func (m *MockRealStore) Fetch(ctx context.Context, recipient string) (*push.DeviceTokens, error) {
	args := m.Called(ctx, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*push.DeviceTokens), args.Error(1)
}

func (m *MockRealStore) RegisterFCM(ctx context.Context, recipient, token string) error {
	return m.Called(ctx, recipient, token).Error(0)
}

func (m *MockRealStore) UnregisterFCM(ctx context.Context, recipient, token string) error {
	return m.Called(ctx, recipient, token).Error(0)
}

// Stub the rest of the interface.
func (m *MockRealStore) RegisterAPNS(context.Context, string, string) error   { return nil }
func (m *MockRealStore) RegisterWeb(context.Context, string, push.WebSubscription) error {
	return nil
}
func (m *MockRealStore) UnregisterAPNS(context.Context, string, string) error { return nil }
func (m *MockRealStore) UnregisterWeb(context.Context, string, string) error  { return nil }

func TestCachedStore_ReadAside(t *testing.T) {
	ctx := context.Background()

	t.Run("Cache hit skips the real store", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		mockCache.On("Get", mock.Anything, "notify:tokens:user-1", mock.Anything).Return(nil)

		_, err := store.Fetch(ctx, "user-1")

		require.NoError(t, err)
		mockDB.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("Cache miss falls through and populates", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		fresh := &push.DeviceTokens{Recipient: "user-1", FCMTokens: []string{"t-1"}}
		mockCache.On("Get", mock.Anything, "notify:tokens:user-1", mock.Anything).
			Return(errors.New("cache miss"))
		mockDB.On("Fetch", mock.Anything, "user-1").Return(fresh, nil)
		mockCache.On("Set", mock.Anything, "notify:tokens:user-1", fresh, time.Hour).Return(nil)

		got, err := store.Fetch(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, fresh, got)
		mockCache.AssertExpectations(t)
	})
}

func TestCachedStore_ImmediateInvalidation(t *testing.T) {
	ctx := context.Background()

	t.Run("Unregister invalidates even on cache write path", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		mockDB.On("UnregisterFCM", mock.Anything, "user-1", "dead-token").Return(nil)
		mockCache.On("Del", mock.Anything, "notify:tokens:user-1").Return(nil)

		require.NoError(t, store.UnregisterFCM(ctx, "user-1", "dead-token"))

		mockCache.AssertCalled(t, "Del", mock.Anything, "notify:tokens:user-1")
	})

	t.Run("Register invalidates", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		mockDB.On("RegisterFCM", mock.Anything, "user-1", "new-token").Return(nil)
		mockCache.On("Del", mock.Anything, "notify:tokens:user-1").Return(nil)

		require.NoError(t, store.RegisterFCM(ctx, "user-1", "new-token"))

		mockCache.AssertExpectations(t)
	})

	t.Run("Real store failure leaves the cache alone", func(t *testing.T) {
		mockCache := new(MockCache)
		mockDB := new(MockRealStore)
		store := cache.NewCachedTokenStore(mockDB, mockCache, time.Hour)

		mockDB.On("RegisterFCM", mock.Anything, "user-1", "t").Return(errors.New("db down"))

		require.Error(t, store.RegisterFCM(ctx, "user-1", "t"))
		mockCache.AssertNotCalled(t, "Del", mock.Anything, mock.Anything)
	})
}
