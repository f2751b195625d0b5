// Package push contains the domain models and storage contract shared by the
// push capability, the platform dispatchers and the token stores.
package push

import "context"

// Content is the user-visible part of a push notification.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound,omitempty"`
}

// SubscriptionKeys holds the client keys of a Web Push subscription.
type SubscriptionKeys struct {
	P256dh []byte `json:"p256dh"`
	Auth   []byte `json:"auth"`
}

// WebSubscription is a browser push subscription (VAPID). The Endpoint URL is
// its unique identifier.
type WebSubscription struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// DeviceTokens groups every registered delivery target for one recipient into
// per-platform buckets.
type DeviceTokens struct {
	Recipient        string            `json:"recipient"`
	FCMTokens        []string          `json:"fcm_tokens"`
	APNSTokens       []string          `json:"apns_tokens"`
	WebSubscriptions []WebSubscription `json:"web_subscriptions"`
}

// Empty reports whether no delivery target is registered at all.
func (d *DeviceTokens) Empty() bool {
	return len(d.FCMTokens) == 0 && len(d.APNSTokens) == 0 && len(d.WebSubscriptions) == 0
}

// TokenStore manages device registrations per recipient. It answers "where"
// a push for a recipient should go. Implementations must deduplicate on
// registration (upsert).
type TokenStore interface {
	// Fetch retrieves every registered device bucket for the recipient.
	Fetch(ctx context.Context, recipient string) (*DeviceTokens, error)

	RegisterFCM(ctx context.Context, recipient string, token string) error
	RegisterAPNS(ctx context.Context, recipient string, token string) error
	RegisterWeb(ctx context.Context, recipient string, sub WebSubscription) error

	UnregisterFCM(ctx context.Context, recipient string, token string) error
	UnregisterAPNS(ctx context.Context, recipient string, token string) error
	UnregisterWeb(ctx context.Context, recipient string, endpoint string) error
}
