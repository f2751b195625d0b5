package notify

import (
	"maps"
	"strings"
)

// Request is an immutable description of a single notification: what to say,
// through which channel, and to whom. Instances are created only through
// NewRequest, which validates eagerly; an invalid Request never exists.
type Request struct {
	channel   Channel
	recipient string
	message   string
	subject   string
	metadata  map[string]string
	priority  Priority
}

// RequestOption customises optional request fields at construction time.
type RequestOption func(*Request)

// WithSubject sets the optional subject line. A blank subject is treated as
// absent.
func WithSubject(subject string) RequestOption {
	return func(r *Request) { r.subject = strings.TrimSpace(subject) }
}

// WithMetadata attaches arbitrary key/value pairs. The map is copied; later
// mutation by the caller does not affect the request.
func WithMetadata(metadata map[string]string) RequestOption {
	return func(r *Request) {
		if len(metadata) == 0 {
			return
		}
		r.metadata = maps.Clone(metadata)
	}
}

// WithPriority overrides the default NORMAL priority.
func WithPriority(p Priority) RequestOption {
	return func(r *Request) { r.priority = p }
}

// NewRequest builds a validated Request. The recipient and message are
// trimmed and must be non-blank, and the channel must be a known value;
// any violation returns a *ValidationError immediately.
func NewRequest(channel Channel, recipient, message string, opts ...RequestOption) (*Request, error) {
	r := &Request{
		channel:   channel,
		recipient: strings.TrimSpace(recipient),
		message:   strings.TrimSpace(message),
		priority:  PriorityNormal,
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.channel.Valid() {
		return nil, &ValidationError{Field: "channel", Reason: "channel is required"}
	}
	if r.recipient == "" {
		return nil, &ValidationError{Field: "recipient", Reason: "recipient must not be blank"}
	}
	if r.message == "" {
		return nil, &ValidationError{Field: "message", Reason: "message must not be blank"}
	}
	if !r.priority.Valid() {
		return nil, &ValidationError{Field: "priority", Reason: "unknown priority"}
	}
	if r.metadata == nil {
		r.metadata = map[string]string{}
	}
	return r, nil
}

// Channel returns the target delivery channel.
func (r *Request) Channel() Channel { return r.channel }

// Recipient returns the channel-specific recipient address.
func (r *Request) Recipient() string { return r.recipient }

// Message returns the message body.
func (r *Request) Message() string { return r.message }

// Subject returns the subject line and whether one was set. An empty subject
// is normalized to absent at construction.
func (r *Request) Subject() (string, bool) {
	return r.subject, r.subject != ""
}

// Metadata returns a copy of the attached metadata.
func (r *Request) Metadata() map[string]string {
	return maps.Clone(r.metadata)
}

// Priority returns the delivery priority.
func (r *Request) Priority() Priority { return r.priority }

// WithChannel returns a new Request identical to r except for the channel.
// The receiver is left untouched; this is how multi-channel sends derive
// per-channel requests from a template.
func (r *Request) WithChannel(channel Channel) *Request {
	clone := *r
	clone.channel = channel
	clone.metadata = maps.Clone(r.metadata)
	return &clone
}
