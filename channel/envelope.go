package channel

import (
	"errors"
	"fmt"

	"github.com/xiaowei-guan/pigeon/codec"
)

// Envelope keys.
const (
	keyResult  = "result"
	keyError   = "error"
	keyCode    = "code"
	keyMessage = "message"
	keyDetails = "details"
)

// Success wraps a return value in a reply envelope. Void methods reply
// with a nil result.
func Success(result codec.Value) codec.Value {
	if result == nil {
		result = codec.Null{}
	}
	return codec.Map{codec.E(keyResult, result)}
}

// Failure wraps err in an error reply envelope.
//
// An ApplicationError keeps its code, message and details. A NullError is
// reported with code "null-error". Anything else uses code "Error" and the
// error text as message.
func Failure(err error) codec.Value {
	code, message, details := CodeError, err.Error(), codec.Value(codec.Null{})

	var ae *ApplicationError
	var ne *NullError
	switch {
	case errors.As(err, &ae):
		code, message = ae.Code, ae.Message
		if ae.Details != nil {
			details = ae.Details
		}
	case errors.As(err, &ne):
		code = CodeNullError
	}

	var msg codec.Value = codec.Null{}
	if message != "" {
		msg = codec.String(message)
	}
	return codec.Map{codec.E(keyError, codec.Map{
		codec.E(keyCode, codec.String(code)),
		codec.E(keyMessage, msg),
		codec.E(keyDetails, details),
	})}
}

// ParseReply interprets a decoded reply envelope.
//
// An absent reply is a ChannelError. An envelope with a non-null "error"
// entry is an ApplicationError. Otherwise the "result" entry is returned,
// which is Null when absent.
func ParseReply(channel string, reply codec.Value) (codec.Value, error) {
	if codec.IsNull(reply) {
		return nil, &ChannelError{Channel: channel, Message: "unable to establish connection on channel"}
	}
	envelope, ok := reply.(codec.Map)
	if !ok {
		return nil, &ChannelError{
			Channel: channel,
			Message: fmt.Sprintf("malformed reply envelope of type %s", codec.TypeName(reply)),
		}
	}

	if raw, ok := envelope.Get(keyError); ok && !codec.IsNull(raw) {
		return nil, parseError(channel, raw)
	}

	result, ok := envelope.Get(keyResult)
	if !ok {
		return codec.Null{}, nil
	}
	return result, nil
}

func parseError(channel string, raw codec.Value) error {
	fields, ok := raw.(codec.Map)
	if !ok {
		return &ChannelError{
			Channel: channel,
			Message: fmt.Sprintf("malformed error envelope of type %s", codec.TypeName(raw)),
		}
	}

	ae := &ApplicationError{Details: codec.Null{}}
	if v, ok := fields.Get(keyCode); ok {
		s, ok := v.(codec.String)
		if !ok {
			return &ChannelError{Channel: channel, Message: "error envelope code is not a string"}
		}
		ae.Code = string(s)
	}
	if v, ok := fields.Get(keyMessage); ok {
		if s, ok := v.(codec.String); ok {
			ae.Message = string(s)
		}
	}
	if v, ok := fields.Get(keyDetails); ok && v != nil {
		ae.Details = v
	}
	if ae.Code == "" {
		return &ChannelError{Channel: channel, Message: "error envelope has no code"}
	}
	return ae
}
