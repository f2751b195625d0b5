// Package sms provides the SMS channel capability. It talks to a generic
// HTTP gateway; the GatewayClient interface keeps the capability testable and
// the gateway swappable.
package sms

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/tinywideclouds/go-notify/pkg/notify"
)

// GatewayClient defines the transport subset the capability needs. SendText
// returns the gateway's message ID.
type GatewayClient interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// maxLength is the usual concatenated-SMS gateway limit.
const maxLength = 1600

var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

type Capability struct {
	gateway GatewayClient
	logger  *slog.Logger
}

func NewCapability(gateway GatewayClient, logger *slog.Logger) *Capability {
	return &Capability{
		gateway: gateway,
		logger:  logger.With("component", "SMSCapability"),
	}
}

func (c *Capability) ChannelType() notify.Channel {
	return notify.ChannelSMS
}

// Validate requires an E.164 recipient and a body within the gateway limit.
func (c *Capability) Validate(_ context.Context, req *notify.Request) error {
	if !e164.MatchString(req.Recipient()) {
		return &notify.ValidationError{
			Field:  "recipient",
			Reason: fmt.Sprintf("%q is not an E.164 phone number", req.Recipient()),
		}
	}
	if len(req.Message()) > maxLength {
		return &notify.ValidationError{
			Field:  "message",
			Reason: fmt.Sprintf("message exceeds %d characters", maxLength),
		}
	}
	return nil
}

func (c *Capability) Send(ctx context.Context, req *notify.Request) (notify.Result, error) {
	messageID, err := c.gateway.SendText(ctx, req.Recipient(), req.Message())
	if err != nil {
		return notify.Result{}, fmt.Errorf("sms gateway failed: %w", err)
	}

	c.logger.Info("SMS dispatched", "recipient", req.Recipient(), "message_id", messageID)
	return notify.Success(notify.ChannelSMS, messageID), nil
}
