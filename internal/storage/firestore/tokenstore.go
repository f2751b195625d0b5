// Package firestore implements the push token store on Google Cloud
// Firestore.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/tinywideclouds/go-notify/pkg/channel/push"
)

// TokenStore implements push.TokenStore using Firestore, one document per
// registered device under recipients/{recipient}/devices/{deviceHash}.
type TokenStore struct {
	client *firestore.Client
}

func NewTokenStore(client *firestore.Client) *TokenStore {
	return &TokenStore{client: client}
}

// deviceRecord is the internal DB representation. It holds EITHER a plain
// token (fcm/apns) OR a web subscription object.
type deviceRecord struct {
	Platform        string                `firestore:"platform"`
	Token           string                `firestore:"token,omitempty"`
	WebSubscription *push.WebSubscription `firestore:"web_subscription,omitempty"`
	UpdatedAt       time.Time             `firestore:"updated_at"`
}

func (s *TokenStore) RegisterFCM(ctx context.Context, recipient, token string) error {
	return s.putToken(ctx, recipient, "fcm", token)
}

func (s *TokenStore) RegisterAPNS(ctx context.Context, recipient, token string) error {
	return s.putToken(ctx, recipient, "apns", token)
}

func (s *TokenStore) RegisterWeb(ctx context.Context, recipient string, sub push.WebSubscription) error {
	// For web, the endpoint URL is the unique identifier.
	record := deviceRecord{
		Platform:        "web",
		WebSubscription: &sub,
		UpdatedAt:       time.Now(),
	}
	_, err := s.deviceRef(recipient, hashToken(sub.Endpoint)).Set(ctx, record)
	return err
}

func (s *TokenStore) UnregisterFCM(ctx context.Context, recipient, token string) error {
	_, err := s.deviceRef(recipient, hashToken(token)).Delete(ctx)
	return err
}

func (s *TokenStore) UnregisterAPNS(ctx context.Context, recipient, token string) error {
	_, err := s.deviceRef(recipient, hashToken(token)).Delete(ctx)
	return err
}

func (s *TokenStore) UnregisterWeb(ctx context.Context, recipient, endpoint string) error {
	_, err := s.deviceRef(recipient, hashToken(endpoint)).Delete(ctx)
	return err
}

// Fetch loads every device for the recipient and sorts it into the
// per-platform buckets.
func (s *TokenStore) Fetch(ctx context.Context, recipient string) (*push.DeviceTokens, error) {
	iter := s.devicesCollection(recipient).Documents(ctx)
	defer iter.Stop()

	devices := &push.DeviceTokens{
		Recipient:        recipient,
		FCMTokens:        make([]string, 0),
		APNSTokens:       make([]string, 0),
		WebSubscriptions: make([]push.WebSubscription, 0),
	}

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record deviceRecord
		if err := doc.DataTo(&record); err != nil {
			// Corrupt rows are skipped rather than failing the whole fetch.
			continue
		}

		switch {
		case record.Platform == "web" && record.WebSubscription != nil:
			devices.WebSubscriptions = append(devices.WebSubscriptions, *record.WebSubscription)
		case record.Platform == "apns" && record.Token != "":
			devices.APNSTokens = append(devices.APNSTokens, record.Token)
		case record.Token != "":
			devices.FCMTokens = append(devices.FCMTokens, record.Token)
		}
	}

	return devices, nil
}

func (s *TokenStore) putToken(ctx context.Context, recipient, platform, token string) error {
	record := deviceRecord{
		Platform:  platform,
		Token:     token,
		UpdatedAt: time.Now(),
	}
	// Hash of the token as doc ID prevents duplicates and hot-spotting.
	_, err := s.deviceRef(recipient, hashToken(token)).Set(ctx, record)
	return err
}

func (s *TokenStore) deviceRef(recipient, docID string) *firestore.DocumentRef {
	return s.devicesCollection(recipient).Doc(docID)
}

func (s *TokenStore) devicesCollection(recipient string) *firestore.CollectionRef {
	return s.client.Collection("recipients").Doc(recipient).Collection("devices")
}

func hashToken(t string) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}
