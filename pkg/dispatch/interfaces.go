// Package dispatch implements the channel registry and routing engine, plus
// the concurrent async layer and the sequential batch processor built on top
// of it.
package dispatch

import (
	"context"

	"github.com/tinywideclouds/go-notify/pkg/notify"
)

// Capability is the per-channel delivery collaborator the Dispatcher routes
// to. Implementations must be safe for concurrent use: the async layer drives
// one Send per goroutine with no serialization.
type Capability interface {
	// ChannelType returns the channel this capability serves. It is used as
	// the registry key.
	ChannelType() notify.Channel

	// Validate applies channel-specific rules to a structurally valid
	// request (recipient shape, payload limits). It is always called before
	// Send.
	Validate(ctx context.Context, req *notify.Request) error

	// Send performs the delivery attempt. A returned error is treated as a
	// transport failure and converted into a failure Result by the
	// Dispatcher; it is never raised to the caller.
	Send(ctx context.Context, req *notify.Request) (notify.Result, error)
}
