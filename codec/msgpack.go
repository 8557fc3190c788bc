package codec

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Msgpack carries values as MessagePack for non-Flutter transports.
//
// Custom values become extension types whose id is the discriminant minus
// MinCustomCode, so codes 128..255 map onto ext ids 0..127. Bytes map to
// bin. Typed numeric lists are written as plain arrays and decode as List,
// as MessagePack has no typed array family. Readers that know the declared
// type convert them back.
type Msgpack struct {
	known codeSet
}

// NewMsgpack returns a MessagePack codec restricted to codes, when given.
func NewMsgpack(codes ...uint8) *Msgpack {
	return &Msgpack{known: newCodeSet(codes)}
}

// EncodeMessage implements MessageCodec.
func (c *Msgpack) EncodeMessage(v Value) ([]byte, error) {
	if IsNull(v) {
		return nil, nil
	}
	return c.encode(v)
}

func (c *Msgpack) encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := c.writeValue(enc, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Msgpack) writeValue(enc *msgpack.Encoder, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		return enc.EncodeNil()
	case Bool:
		return enc.EncodeBool(bool(val))
	case Int:
		return enc.EncodeInt(int64(val))
	case Float:
		return enc.EncodeFloat64(float64(val))
	case String:
		return enc.EncodeString(string(val))
	case Bytes:
		return enc.EncodeBytes(val)
	case Int32List:
		if err := enc.EncodeArrayLen(len(val)); err != nil {
			return err
		}
		for _, n := range val {
			if err := enc.EncodeInt(int64(n)); err != nil {
				return err
			}
		}
	case Int64List:
		if err := enc.EncodeArrayLen(len(val)); err != nil {
			return err
		}
		for _, n := range val {
			if err := enc.EncodeInt(n); err != nil {
				return err
			}
		}
	case Float64List:
		if err := enc.EncodeArrayLen(len(val)); err != nil {
			return err
		}
		for _, f := range val {
			if err := enc.EncodeFloat64(f); err != nil {
				return err
			}
		}
	case List:
		if err := enc.EncodeArrayLen(len(val)); err != nil {
			return err
		}
		for i, elem := range val {
			if err := c.writeValue(enc, elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
	case Map:
		if err := enc.EncodeMapLen(len(val)); err != nil {
			return err
		}
		for i, e := range val {
			if err := c.writeValue(enc, e.Key); err != nil {
				return fmt.Errorf("map key %d: %w", i, err)
			}
			if err := c.writeValue(enc, e.Value); err != nil {
				return fmt.Errorf("map value %d: %w", i, err)
			}
		}
	case Custom:
		if err := c.known.check(val.Code); err != nil {
			return err
		}
		payload, err := c.encode(val.Payload)
		if err != nil {
			return fmt.Errorf("custom %d: %w", val.Code, err)
		}
		if err := enc.EncodeExtHeader(int8(val.Code-MinCustomCode), len(payload)); err != nil {
			return err
		}
		_, err = enc.Writer().Write(payload)
		return err
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// DecodeMessage implements MessageCodec.
func (c *Msgpack) DecodeMessage(data []byte) (Value, error) {
	if len(data) == 0 {
		return Null{}, nil
	}
	return c.decode(data)
}

func (c *Msgpack) decode(data []byte) (Value, error) {
	r := bytes.NewReader(data)
	dec := msgpack.NewDecoder(r)
	v, err := c.readValue(dec, data, r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, &DecodeError{Offset: len(data) - r.Len(), Message: fmt.Sprintf("%d trailing bytes", r.Len())}
	}
	return v, nil
}

func (c *Msgpack) readValue(dec *msgpack.Decoder, data []byte, r *bytes.Reader) (Value, error) {
	corrupt := func(err error) error {
		return &DecodeError{Offset: len(data) - r.Len(), Message: err.Error()}
	}
	code, err := dec.PeekCode()
	if err != nil {
		return nil, corrupt(err)
	}
	switch {
	case code == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return nil, corrupt(err)
		}
		return Null{}, nil
	case code == msgpcode.True || code == msgpcode.False:
		b, err := dec.DecodeBool()
		if err != nil {
			return nil, corrupt(err)
		}
		return Bool(b), nil
	case code == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if err != nil {
			return nil, corrupt(err)
		}
		n, err := safecast.Conv[int64](u)
		if err != nil {
			return nil, corrupt(err)
		}
		return Int(n), nil
	case msgpcode.IsFixedNum(code), code == msgpcode.Uint8, code == msgpcode.Uint16,
		code == msgpcode.Uint32, code == msgpcode.Int8, code == msgpcode.Int16,
		code == msgpcode.Int32, code == msgpcode.Int64:
		n, err := dec.DecodeInt64()
		if err != nil {
			return nil, corrupt(err)
		}
		return Int(n), nil
	case code == msgpcode.Float || code == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return nil, corrupt(err)
		}
		return Float(f), nil
	case msgpcode.IsString(code):
		s, err := dec.DecodeString()
		if err != nil {
			return nil, corrupt(err)
		}
		return String(s), nil
	case msgpcode.IsBin(code):
		b, err := dec.DecodeBytes()
		if err != nil {
			return nil, corrupt(err)
		}
		return Bytes(b), nil
	case msgpcode.IsFixedArray(code), code == msgpcode.Array16, code == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, corrupt(err)
		}
		if n > r.Len() {
			return nil, corrupt(fmt.Errorf("array length %d exceeds remaining bytes", n))
		}
		out := make(List, n)
		for i := range out {
			if out[i], err = c.readValue(dec, data, r); err != nil {
				return nil, err
			}
		}
		return out, nil
	case msgpcode.IsFixedMap(code), code == msgpcode.Map16, code == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, corrupt(err)
		}
		if n > r.Len()/2 {
			return nil, corrupt(fmt.Errorf("map length %d exceeds remaining bytes", n))
		}
		out := make(Map, n)
		for i := range out {
			if out[i].Key, err = c.readValue(dec, data, r); err != nil {
				return nil, err
			}
			if out[i].Value, err = c.readValue(dec, data, r); err != nil {
				return nil, err
			}
		}
		return out, nil
	case msgpcode.IsExt(code):
		id, n, err := dec.DecodeExtHeader()
		if err != nil {
			return nil, corrupt(err)
		}
		if id < 0 {
			return nil, corrupt(fmt.Errorf("reserved extension type %d", id))
		}
		ext := uint8(id) + MinCustomCode
		if err := c.known.check(ext); err != nil {
			return nil, err
		}
		if n > r.Len() {
			return nil, corrupt(fmt.Errorf("extension length %d exceeds remaining bytes", n))
		}
		raw := make([]byte, n)
		if err := dec.ReadFull(raw); err != nil {
			return nil, corrupt(err)
		}
		payload, err := c.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("custom %d: %w", ext, err)
		}
		return Custom{Code: ext, Payload: payload}, nil
	default:
		return nil, corrupt(fmt.Errorf("unsupported msgpack code 0x%02x", code))
	}
}
