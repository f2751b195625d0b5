// Package email provides the EMAIL channel capability. Transport sits behind
// the Mailer interface so the capability can be unit tested and the wire
// protocol swapped.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tinywideclouds/go-notify/pkg/notify"
)

// Mailer defines the transport subset the capability needs.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

const defaultSubject = "Notification"

type Capability struct {
	mailer Mailer
	logger *slog.Logger
}

func NewCapability(mailer Mailer, logger *slog.Logger) *Capability {
	return &Capability{
		mailer: mailer,
		logger: logger.With("component", "EmailCapability"),
	}
}

func (c *Capability) ChannelType() notify.Channel {
	return notify.ChannelEmail
}

// Validate checks the recipient for a plausible address shape. Full RFC 5322
// parsing is deliberately out of scope; the provider remains the authority.
func (c *Capability) Validate(_ context.Context, req *notify.Request) error {
	recipient := req.Recipient()
	at := strings.Index(recipient, "@")
	if at < 1 || at == len(recipient)-1 || strings.ContainsAny(recipient, " \t") {
		return &notify.ValidationError{
			Field:  "recipient",
			Reason: fmt.Sprintf("%q is not a valid email address", recipient),
		}
	}
	return nil
}

func (c *Capability) Send(ctx context.Context, req *notify.Request) (notify.Result, error) {
	subject, ok := req.Subject()
	if !ok {
		subject = defaultSubject
	}

	if err := c.mailer.Send(ctx, req.Recipient(), subject, req.Message()); err != nil {
		return notify.Result{}, fmt.Errorf("mail transport failed: %w", err)
	}

	messageID := uuid.NewString()
	c.logger.Info("Email dispatched", "recipient", req.Recipient(), "message_id", messageID)
	return notify.Success(notify.ChannelEmail, messageID), nil
}
