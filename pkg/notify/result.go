package notify

import "time"

// Result is the uniform outcome of one delivery attempt. It is created only
// through the Success and Failure factories: a successful Result carries a
// message ID and nothing else, a failed one carries an error message and an
// optional underlying cause. The success flag strictly determines which
// payload is populated.
type Result struct {
	success   bool
	channel   Channel
	messageID string
	errMsg    string
	cause     error
	createdAt time.Time
}

// Success builds a successful Result carrying the provider's message ID.
func Success(channel Channel, messageID string) Result {
	return Result{
		success:   true,
		channel:   channel,
		messageID: messageID,
		createdAt: time.Now().UTC(),
	}
}

// Failure builds a failed Result. cause may be nil when no underlying error
// exists.
func Failure(channel Channel, message string, cause error) Result {
	return Result{
		channel:   channel,
		errMsg:    message,
		cause:     cause,
		createdAt: time.Now().UTC(),
	}
}

// Succeeded reports whether the delivery attempt succeeded.
func (r Result) Succeeded() bool { return r.success }

// Channel returns the channel the attempt was made on.
func (r Result) Channel() Channel { return r.channel }

// MessageID returns the provider message ID; empty for failed results.
func (r Result) MessageID() string { return r.messageID }

// ErrorMessage returns the failure description; empty for successful results.
func (r Result) ErrorMessage() string { return r.errMsg }

// Cause returns the underlying error of a failed result, if any.
func (r Result) Cause() error { return r.cause }

// CreatedAt returns when the Result was produced (UTC).
func (r Result) CreatedAt() time.Time { return r.createdAt }

// OnSuccess invokes fn with the message ID only when the result is
// successful. It returns the receiver so callbacks can be chained.
func (r Result) OnSuccess(fn func(messageID string)) Result {
	if r.success {
		fn(r.messageID)
	}
	return r
}

// OnFailure invokes fn with the error message and cause only when the result
// is a failure. It returns the receiver so callbacks can be chained.
func (r Result) OnFailure(fn func(message string, cause error)) Result {
	if !r.success {
		fn(r.errMsg, r.cause)
	}
	return r
}

// Fold maps either side of a Result onto a common type: exactly one of the
// two functions is invoked, depending on the success flag.
func Fold[T any](r Result, onSuccess func(messageID string) T, onFailure func(message string, cause error) T) T {
	if r.Succeeded() {
		return onSuccess(r.MessageID())
	}
	return onFailure(r.ErrorMessage(), r.Cause())
}
