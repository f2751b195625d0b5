package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tinywideclouds/go-notify/pkg/notify"
)

// Dispatcher owns the channel registry and routes single requests to the
// matching Capability. One Dispatcher instance exclusively owns its registry;
// the async and batch layers hold a reference to the Dispatcher and only call
// its routing operations.
//
// Error policy: configuration mistakes (nil request, unregistered channel)
// are raised as errors. Everything a capability reports, a failed Validate
// as much as a failed Send, is converted into a failure Result, so callers
// branch on Result.Succeeded() for ordinary failures and handle errors only
// for setup bugs.
type Dispatcher struct {
	mu           sync.RWMutex
	capabilities map[notify.Channel]Capability
	logger       *slog.Logger
}

// NewDispatcher creates an empty dispatcher. Channels are added with
// RegisterChannel; there is no way to remove one.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		capabilities: make(map[notify.Channel]Capability),
		logger:       logger.With("component", "Dispatcher"),
	}
}

// RegisterChannel inserts or replaces the capability for its declared
// channel. Replacing an existing entry is allowed (last write wins) but
// logged as a warning, since it usually means two components configured the
// same channel. Safe against concurrent registration and concurrent sends.
func (d *Dispatcher) RegisterChannel(c Capability) error {
	if c == nil {
		return &notify.ConfigurationError{Reason: "capability must not be nil"}
	}
	channel := c.ChannelType()
	if !channel.Valid() {
		return &notify.ConfigurationError{Reason: fmt.Sprintf("capability declares unknown channel %q", channel)}
	}

	d.mu.Lock()
	_, replaced := d.capabilities[channel]
	d.capabilities[channel] = c
	d.mu.Unlock()

	if replaced {
		d.logger.Warn("Replacing registered capability", "channel", channel.String())
	} else {
		d.logger.Info("Registered capability", "channel", channel.String())
	}
	return nil
}

// Send validates and routes a single request. The returned error is non-nil
// only for a nil request or an unregistered channel; capability failures of
// either kind come back as a failure Result.
func (d *Dispatcher) Send(ctx context.Context, req *notify.Request) (notify.Result, error) {
	if req == nil {
		return notify.Result{}, &notify.ValidationError{Field: "request", Reason: "request must not be nil"}
	}

	capability, ok := d.Lookup(req.Channel())
	if !ok {
		return notify.Result{}, &notify.ConfigurationError{
			Reason: fmt.Sprintf("channel %s not registered", req.Channel()),
		}
	}

	if err := capability.Validate(ctx, req); err != nil {
		d.logger.Warn("Channel validation rejected request",
			"channel", req.Channel().String(), "err", err)
		return notify.Failure(req.Channel(), err.Error(), err), nil
	}

	res, err := capability.Send(ctx, req)
	if err != nil {
		sendErr := &notify.SendingError{Channel: req.Channel(), Err: err}
		d.logger.Error("Capability send failed", "channel", req.Channel().String(), "err", err)
		return notify.Failure(req.Channel(), sendErr.Error(), sendErr), nil
	}
	return res, nil
}

// SendToChannels derives one request per requested channel from the template
// (same fields, channel replaced) and sends each. The aggregate never raises:
// an unregistered channel, like any other failure, appears as a failure
// Result in the returned map.
func (d *Dispatcher) SendToChannels(ctx context.Context, template *notify.Request, channels ...notify.Channel) (map[notify.Channel]notify.Result, error) {
	if template == nil {
		return nil, &notify.ValidationError{Field: "request", Reason: "template request must not be nil"}
	}

	results := make(map[notify.Channel]notify.Result, len(channels))
	for _, channel := range channels {
		res, err := d.Send(ctx, template.WithChannel(channel))
		if err != nil {
			res = notify.Failure(channel, err.Error(), err)
		}
		results[channel] = res
	}
	return results, nil
}

// Channels returns the registered channels in sorted order.
func (d *Dispatcher) Channels() []notify.Channel {
	d.mu.RLock()
	channels := make([]notify.Channel, 0, len(d.capabilities))
	for channel := range d.capabilities {
		channels = append(channels, channel)
	}
	d.mu.RUnlock()

	slices.Sort(channels)
	return channels
}

// Lookup returns the capability registered for the channel, if any.
func (d *Dispatcher) Lookup(channel notify.Channel) (Capability, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.capabilities[channel]
	return c, ok
}

// HasChannels reports whether every given channel has a registered
// capability.
func (d *Dispatcher) HasChannels(channels ...notify.Channel) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, channel := range channels {
		if _, ok := d.capabilities[channel]; !ok {
			return false
		}
	}
	return true
}
