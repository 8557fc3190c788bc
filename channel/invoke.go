package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xiaowei-guan/pigeon/codec"
)

// Func is synchronous receiver logic for one method. It gets the decoded
// positional arguments and returns the encoded result.
type Func func(args []codec.Value) (codec.Value, error)

// Completion finishes an asynchronous call. Only the first call has effect.
type Completion func(result codec.Value, err error)

// AsyncFunc is asynchronous receiver logic. It must call complete exactly
// once, from any goroutine, at any later time.
type AsyncFunc func(args []codec.Value, complete Completion)

// Call sends one request and resolves its single reply.
//
// Zero arguments send no payload. The returned value is the reply's result,
// Null for void methods; use Result to enforce a non-nullable return type.
func Call(ctx context.Context, m Messenger, c codec.MessageCodec, channel string, args ...codec.Value) (codec.Value, error) {
	var message []byte
	if len(args) > 0 {
		data, err := c.EncodeMessage(codec.List(args))
		if err != nil {
			return nil, fmt.Errorf("encode arguments for %s: %w", channel, err)
		}
		message = data
	}

	raw, err := m.Send(ctx, channel, message)
	if err != nil {
		var ce *ChannelError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &ChannelError{Channel: channel, Message: "send failed", Err: err}
	}

	reply, err := c.DecodeMessage(raw)
	if err != nil {
		return nil, &ChannelError{Channel: channel, Message: "undecodable reply", Err: err}
	}
	return ParseReply(channel, reply)
}

// Result enforces a non-nullable return value.
func Result(channel string, v codec.Value) (codec.Value, error) {
	if codec.IsNull(v) {
		return nil, &NullError{Channel: channel}
	}
	return v, nil
}

// Arg returns the i-th positional argument. Missing positions are absent.
// An absent non-nullable argument is a NullError.
func Arg(channel string, args []codec.Value, i int, name string, nullable bool) (codec.Value, error) {
	var v codec.Value = codec.Null{}
	if i < len(args) && args[i] != nil {
		v = args[i]
	}
	if !nullable && codec.IsNull(v) {
		return nil, &NullError{Channel: channel, Argument: name}
	}
	return v, nil
}

// Serve adapts synchronous receiver logic into a Handler that always
// replies exactly once.
func Serve(c codec.MessageCodec, fn Func) Handler {
	return func(message []byte, reply Reply) {
		args, err := decodeArgs(c, message)
		if err != nil {
			respond(c, reply, Failure(err))
			return
		}
		result, err := invoke(fn, args)
		if err != nil {
			respond(c, reply, Failure(err))
			return
		}
		respond(c, reply, Success(result))
	}
}

// ServeAsync adapts asynchronous receiver logic into a Handler. A panic
// before completion is reported as a failure; later completions are
// ignored.
func ServeAsync(c codec.MessageCodec, fn AsyncFunc) Handler {
	return func(message []byte, reply Reply) {
		args, err := decodeArgs(c, message)
		if err != nil {
			respond(c, reply, Failure(err))
			return
		}

		var once sync.Once
		complete := func(result codec.Value, err error) {
			once.Do(func() {
				if err != nil {
					respond(c, reply, Failure(err))
					return
				}
				respond(c, reply, Success(result))
			})
		}

		defer func() {
			if p := recover(); p != nil {
				complete(nil, fmt.Errorf("%v", p))
			}
		}()
		fn(args, complete)
	}
}

func invoke(fn Func, args []codec.Value) (result codec.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, fmt.Errorf("%v", p)
		}
	}()
	return fn(args)
}

func decodeArgs(c codec.MessageCodec, message []byte) ([]codec.Value, error) {
	v, err := c.DecodeMessage(message)
	if err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	switch args := v.(type) {
	case codec.Null:
		return nil, nil
	case codec.List:
		return args, nil
	default:
		return nil, fmt.Errorf("decode request: expected argument list, got %s", codec.TypeName(v))
	}
}

// respond encodes envelope and replies. A reply that cannot be encoded is
// replaced by an error envelope describing the encoding failure.
func respond(c codec.MessageCodec, reply Reply, envelope codec.Value) {
	data, err := c.EncodeMessage(envelope)
	if err != nil {
		data, err = c.EncodeMessage(Failure(fmt.Errorf("encode reply: %w", err)))
		if err != nil {
			reply(nil)
			return
		}
	}
	reply(data)
}
