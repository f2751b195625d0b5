// Package notify contains the value types and error taxonomy shared by every
// layer of the dispatch library: channels, priorities, requests and results.
package notify

import (
	"fmt"
	"strings"
)

// Channel identifies a delivery mechanism.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
)

// Channels returns every known channel. Wiring code ranges over this so a new
// channel constant cannot be silently left unconfigured.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelPush}
}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

func (c Channel) String() string {
	return string(c)
}

// ParseChannel converts a case-insensitive name ("email", "SMS") into a
// Channel. Unknown names return a ValidationError.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", &ValidationError{Field: "channel", Reason: fmt.Sprintf("unknown channel %q", s)}
	}
	return c, nil
}

// Priority indicates how urgently a request should be delivered. The dispatch
// engine carries it through unchanged; capabilities may map it onto provider
// semantics.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

func (p Priority) String() string {
	return string(p)
}
