package notify

import "fmt"

// ValidationError reports a malformed or missing request field. It is returned
// at construction time by NewRequest and by channel capabilities whose
// Validate step rejects channel-specific input (a bad email address shape,
// a non-E.164 phone number).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Reason)
}

// ConfigurationError reports a mistake in how the dispatcher was set up:
// registering a nil capability, or sending to a channel nothing was
// registered for. These are caller bugs and are raised, never converted into
// failure Results.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// SendingError reports that a capability's transport failed. The Dispatcher
// always converts it into a failure Result; callers only ever see it as the
// Cause of such a Result.
type SendingError struct {
	Channel Channel
	Err     error
}

func (e *SendingError) Error() string {
	return fmt.Sprintf("sending via %s failed: %v", e.Channel, e.Err)
}

func (e *SendingError) Unwrap() error {
	return e.Err
}
