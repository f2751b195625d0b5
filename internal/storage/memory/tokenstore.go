// Package memory implements the push token store in process memory. It backs
// local development and tests where no Firestore project is available.
package memory

import (
	"context"
	"sync"

	"github.com/tinywideclouds/go-notify/pkg/channel/push"
)

type buckets struct {
	fcm  map[string]struct{}
	apns map[string]struct{}
	web  map[string]push.WebSubscription // keyed by endpoint
}

// TokenStore is a concurrency-safe in-memory push.TokenStore.
type TokenStore struct {
	mu         sync.RWMutex
	recipients map[string]*buckets
}

func NewTokenStore() *TokenStore {
	return &TokenStore{recipients: make(map[string]*buckets)}
}

func (s *TokenStore) Fetch(_ context.Context, recipient string) (*push.DeviceTokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := &push.DeviceTokens{
		Recipient:        recipient,
		FCMTokens:        make([]string, 0),
		APNSTokens:       make([]string, 0),
		WebSubscriptions: make([]push.WebSubscription, 0),
	}

	b, ok := s.recipients[recipient]
	if !ok {
		return devices, nil
	}
	for t := range b.fcm {
		devices.FCMTokens = append(devices.FCMTokens, t)
	}
	for t := range b.apns {
		devices.APNSTokens = append(devices.APNSTokens, t)
	}
	for _, sub := range b.web {
		devices.WebSubscriptions = append(devices.WebSubscriptions, sub)
	}
	return devices, nil
}

func (s *TokenStore) RegisterFCM(_ context.Context, recipient, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucketsFor(recipient).fcm[token] = struct{}{}
	return nil
}

func (s *TokenStore) RegisterAPNS(_ context.Context, recipient, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucketsFor(recipient).apns[token] = struct{}{}
	return nil
}

func (s *TokenStore) RegisterWeb(_ context.Context, recipient string, sub push.WebSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucketsFor(recipient).web[sub.Endpoint] = sub
	return nil
}

func (s *TokenStore) UnregisterFCM(_ context.Context, recipient, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.recipients[recipient]; ok {
		delete(b.fcm, token)
	}
	return nil
}

func (s *TokenStore) UnregisterAPNS(_ context.Context, recipient, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.recipients[recipient]; ok {
		delete(b.apns, token)
	}
	return nil
}

func (s *TokenStore) UnregisterWeb(_ context.Context, recipient, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.recipients[recipient]; ok {
		delete(b.web, endpoint)
	}
	return nil
}

// bucketsFor must be called with the write lock held.
func (s *TokenStore) bucketsFor(recipient string) *buckets {
	b, ok := s.recipients[recipient]
	if !ok {
		b = &buckets{
			fcm:  make(map[string]struct{}),
			apns: make(map[string]struct{}),
			web:  make(map[string]push.WebSubscription),
		}
		s.recipients[recipient] = b
	}
	return b
}
