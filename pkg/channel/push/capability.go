package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tinywideclouds/go-notify/pkg/notify"
)

// PlatformDispatcher sends content to a batch of platform-specific string
// tokens (FCM, APNs). It returns a receipt, the tokens the platform reported
// dead, and an error when the whole batch failed.
type PlatformDispatcher interface {
	Dispatch(ctx context.Context, tokens []string, content Content, data map[string]string) (string, []string, error)
}

// WebPlatformDispatcher is the object-based variant for Web Push
// subscriptions, which are identified by endpoint rather than token.
type WebPlatformDispatcher interface {
	Dispatch(ctx context.Context, subs []WebSubscription, content Content, data map[string]string) (string, []WebSubscription, error)
}

// Capability delivers PUSH requests. The recipient of a push request is a
// user ID, not a device address: the capability fetches the user's device
// buckets from the TokenStore and fans the content out to every configured
// platform. Tokens a platform reports as dead are unregistered on the spot
// (self-healing), so they stop costing a delivery attempt next time.
//
// Any of the platform dispatchers may be nil; only configured platforms are
// attempted.
type Capability struct {
	store  TokenStore
	fcm    PlatformDispatcher
	apns   PlatformDispatcher
	web    WebPlatformDispatcher
	logger *slog.Logger
}

func NewCapability(store TokenStore, fcm, apns PlatformDispatcher, web WebPlatformDispatcher, logger *slog.Logger) *Capability {
	return &Capability{
		store:  store,
		fcm:    fcm,
		apns:   apns,
		web:    web,
		logger: logger.With("component", "PushCapability"),
	}
}

func (c *Capability) ChannelType() notify.Channel {
	return notify.ChannelPush
}

// Validate requires the recipient to be a plausible user ID: no whitespace,
// no "@" (a common sign the caller confused the channels).
func (c *Capability) Validate(_ context.Context, req *notify.Request) error {
	recipient := req.Recipient()
	if strings.ContainsAny(recipient, " \t@") {
		return &notify.ValidationError{
			Field:  "recipient",
			Reason: fmt.Sprintf("%q is not a valid user ID for push delivery", recipient),
		}
	}
	return nil
}

func (c *Capability) Send(ctx context.Context, req *notify.Request) (notify.Result, error) {
	procLogger := c.logger.With("recipient", req.Recipient())

	devices, err := c.store.Fetch(ctx, req.Recipient())
	if err != nil {
		return notify.Result{}, fmt.Errorf("failed to fetch device tokens: %w", err)
	}
	if devices.Empty() {
		return notify.Result{}, errors.New("no devices registered for recipient")
	}

	content := Content{
		Body:  req.Message(),
		Sound: "default",
	}
	if subject, ok := req.Subject(); ok {
		content.Title = subject
	}
	data := req.Metadata()

	var platformErrs []error
	delivered := 0

	if c.fcm != nil && len(devices.FCMTokens) > 0 {
		receipt, invalid, err := c.fcm.Dispatch(ctx, devices.FCMTokens, content, data)
		c.cleanupTokens(ctx, procLogger, "fcm", req.Recipient(), invalid, c.store.UnregisterFCM)
		if err != nil {
			procLogger.Error("FCM dispatch failed", "err", err)
			platformErrs = append(platformErrs, fmt.Errorf("fcm: %w", err))
		} else {
			procLogger.Info("FCM dispatched", "receipt", receipt)
			delivered++
		}
	}

	if c.apns != nil && len(devices.APNSTokens) > 0 {
		receipt, invalid, err := c.apns.Dispatch(ctx, devices.APNSTokens, content, data)
		c.cleanupTokens(ctx, procLogger, "apns", req.Recipient(), invalid, c.store.UnregisterAPNS)
		if err != nil {
			procLogger.Error("APNs dispatch failed", "err", err)
			platformErrs = append(platformErrs, fmt.Errorf("apns: %w", err))
		} else {
			procLogger.Info("APNs dispatched", "receipt", receipt)
			delivered++
		}
	}

	if c.web != nil && len(devices.WebSubscriptions) > 0 {
		receipt, invalidSubs, err := c.web.Dispatch(ctx, devices.WebSubscriptions, content, data)
		if len(invalidSubs) > 0 {
			procLogger.Info("Cleaning up invalid web subscriptions", "count", len(invalidSubs))
			for _, sub := range invalidSubs {
				if err := c.store.UnregisterWeb(ctx, req.Recipient(), sub.Endpoint); err != nil {
					procLogger.Warn("Failed to delete web subscription", "endpoint", sub.Endpoint, "err", err)
				}
			}
		}
		if err != nil {
			procLogger.Error("Web dispatch failed", "err", err)
			platformErrs = append(platformErrs, fmt.Errorf("web: %w", err))
		} else {
			procLogger.Info("Web dispatched", "receipt", receipt)
			delivered++
		}
	}

	if delivered == 0 {
		if len(platformErrs) > 0 {
			return notify.Result{}, errors.Join(platformErrs...)
		}
		return notify.Result{}, errors.New("no configured platform matched the registered devices")
	}

	return notify.Success(notify.ChannelPush, uuid.NewString()), nil
}

func (c *Capability) cleanupTokens(
	ctx context.Context,
	logger *slog.Logger,
	platform string,
	recipient string,
	invalid []string,
	unregister func(context.Context, string, string) error,
) {
	if len(invalid) == 0 {
		return
	}
	logger.Info("Cleaning up invalid tokens", "platform", platform, "count", len(invalid))
	for _, t := range invalid {
		if err := unregister(ctx, recipient, t); err != nil {
			logger.Warn("Failed to delete token", "platform", platform, "token", t, "err", err)
		}
	}
}
