package channel

import (
	"errors"
	"fmt"

	"github.com/xiaowei-guan/pigeon/codec"
)

// Error codes carried in reply envelopes.
const (
	// CodeError is used for failures of user logic that carry no code.
	CodeError = "Error"

	// CodeNullError marks a non-nullable value that arrived absent.
	CodeNullError = "null-error"

	// CodeChannelError marks a transport failure. It never appears on the
	// wire; it is the code reported by ChannelError.
	CodeChannelError = "channel-error"
)

// ApplicationError is a failure reported by the receiver in an "error"
// reply envelope. Receiver logic may return one to control the code and
// details sent back to the caller.
type ApplicationError struct {
	Code    string
	Message string
	Details codec.Value
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NullError reports a non-nullable argument or return value that decoded
// to absent.
type NullError struct {
	// Channel is the channel of the affected method.
	Channel string

	// Argument names the argument; empty for the return value.
	Argument string
}

func (e *NullError) Error() string {
	if e.Argument == "" {
		return fmt.Sprintf("%s: host returned null value for non-null return value", e.Channel)
	}
	return fmt.Sprintf("%s: argument %q was null, expected non-null", e.Channel, e.Argument)
}

// ChannelError reports that no reply envelope was received: no handler was
// registered, the reply was dropped, the reply could not be decoded, or the
// caller's context ended first.
type ChannelError struct {
	Channel string
	Message string
	Err     error
}

func (e *ChannelError) Error() string {
	msg := fmt.Sprintf("%s on channel %s: %s", CodeChannelError, e.Channel, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// IsNullError reports whether err is or wraps a NullError.
func IsNullError(err error) bool {
	var ne *NullError
	return errors.As(err, &ne)
}

// IsChannelError reports whether err is or wraps a ChannelError.
func IsChannelError(err error) bool {
	var ce *ChannelError
	return errors.As(err, &ce)
}

// AsApplicationError returns the ApplicationError in err's chain, if any.
func AsApplicationError(err error) (*ApplicationError, bool) {
	var ae *ApplicationError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
