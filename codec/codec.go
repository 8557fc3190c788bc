package codec

import (
	"errors"
	"fmt"
)

// MessageCodec converts between values and the bytes carried by a channel.
//
// A Null value encodes to a nil message and a nil or empty message decodes
// to Null; this is how zero-argument requests carry no payload.
type MessageCodec interface {
	EncodeMessage(v Value) ([]byte, error)
	DecodeMessage(data []byte) (Value, error)
}

// ErrCorrupted is wrapped by every DecodeError.
var ErrCorrupted = errors.New("message corrupted")

// DecodeError reports malformed message bytes.
type DecodeError struct {
	Offset  int
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v at offset %d: %s", ErrCorrupted, e.Offset, e.Message)
}

// Unwrap lets errors.Is match ErrCorrupted.
func (e *DecodeError) Unwrap() error {
	return ErrCorrupted
}

// UnknownCodeError reports a custom discriminant the codec was not
// configured to accept.
type UnknownCodeError struct {
	Code uint8
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown custom type code %d", e.Code)
}

// codeSet restricts accepted custom discriminants. An empty set accepts
// every code in the custom range.
type codeSet map[uint8]struct{}

func newCodeSet(codes []uint8) codeSet {
	if len(codes) == 0 {
		return nil
	}
	set := make(codeSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

func (s codeSet) check(code uint8) error {
	if code < MinCustomCode {
		return fmt.Errorf("custom type code %d collides with a built-in tag", code)
	}
	if s == nil {
		return nil
	}
	if _, ok := s[code]; !ok {
		return &UnknownCodeError{Code: code}
	}
	return nil
}
