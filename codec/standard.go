package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"fortio.org/safecast"
)

// Standard message codec type tags.
const (
	tagNull        = 0
	tagTrue        = 1
	tagFalse       = 2
	tagInt32       = 3
	tagInt64       = 4
	tagLargeInt    = 5
	tagFloat64     = 6
	tagString      = 7
	tagUint8List   = 8
	tagInt32List   = 9
	tagInt64List   = 10
	tagFloat64List = 11
	tagList        = 12
	tagMap         = 13
	tagFloat32List = 14
)

// Standard is the Flutter standard message codec.
//
// Layout: one tag byte per value, little-endian scalars, sizes encoded in
// one byte (<254), three bytes (254 + uint16) or five bytes (255 + uint32),
// and doubles/typed arrays aligned to their element width relative to the
// start of the message. Integers that fit in 32 bits are written as int32.
// Custom values write their discriminant as the tag followed by the payload.
type Standard struct {
	known codeSet
}

// NewStandard returns a standard codec. When codes are given, decoding a
// custom tag outside that set fails with UnknownCodeError.
func NewStandard(codes ...uint8) *Standard {
	return &Standard{known: newCodeSet(codes)}
}

// EncodeMessage implements MessageCodec.
func (c *Standard) EncodeMessage(v Value) ([]byte, error) {
	if IsNull(v) {
		return nil, nil
	}
	w := &stdWriter{known: c.known}
	if err := w.writeValue(v); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// DecodeMessage implements MessageCodec.
func (c *Standard) DecodeMessage(data []byte) (Value, error) {
	if len(data) == 0 {
		return Null{}, nil
	}
	r := &stdReader{data: data, known: c.known}
	v, err := r.readValue()
	if err != nil {
		return nil, err
	}
	if r.pos != len(r.data) {
		return nil, r.errorf("%d trailing bytes", len(r.data)-r.pos)
	}
	return v, nil
}

type stdWriter struct {
	buf   bytes.Buffer
	known codeSet
}

func (w *stdWriter) writeSize(n int) error {
	size, err := safecast.Conv[uint32](n)
	if err != nil {
		return fmt.Errorf("size %d: %w", n, err)
	}
	switch {
	case size < 254:
		w.buf.WriteByte(byte(size))
	case size <= math.MaxUint16:
		w.buf.WriteByte(254)
		w.buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(size)))
	default:
		w.buf.WriteByte(255)
		w.buf.Write(binary.LittleEndian.AppendUint32(nil, size))
	}
	return nil
}

func (w *stdWriter) align(n int) {
	if mod := w.buf.Len() % n; mod != 0 {
		w.buf.Write(make([]byte, n-mod))
	}
}

func (w *stdWriter) writeValue(v Value) error {
	switch val := v.(type) {
	case nil, Null:
		w.buf.WriteByte(tagNull)
	case Bool:
		if val {
			w.buf.WriteByte(tagTrue)
		} else {
			w.buf.WriteByte(tagFalse)
		}
	case Int:
		if val >= math.MinInt32 && val <= math.MaxInt32 {
			w.buf.WriteByte(tagInt32)
			w.buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(int32(val))))
		} else {
			w.buf.WriteByte(tagInt64)
			w.buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(val)))
		}
	case Float:
		w.buf.WriteByte(tagFloat64)
		w.align(8)
		w.buf.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(float64(val))))
	case String:
		w.buf.WriteByte(tagString)
		if err := w.writeSize(len(val)); err != nil {
			return err
		}
		w.buf.WriteString(string(val))
	case Bytes:
		w.buf.WriteByte(tagUint8List)
		if err := w.writeSize(len(val)); err != nil {
			return err
		}
		w.buf.Write(val)
	case Int32List:
		w.buf.WriteByte(tagInt32List)
		if err := w.writeSize(len(val)); err != nil {
			return err
		}
		w.align(4)
		for _, n := range val {
			w.buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(n)))
		}
	case Int64List:
		w.buf.WriteByte(tagInt64List)
		if err := w.writeSize(len(val)); err != nil {
			return err
		}
		w.align(8)
		for _, n := range val {
			w.buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(n)))
		}
	case Float64List:
		w.buf.WriteByte(tagFloat64List)
		if err := w.writeSize(len(val)); err != nil {
			return err
		}
		w.align(8)
		for _, f := range val {
			w.buf.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(f)))
		}
	case List:
		w.buf.WriteByte(tagList)
		if err := w.writeSize(len(val)); err != nil {
			return err
		}
		for i, elem := range val {
			if err := w.writeValue(elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
	case Map:
		w.buf.WriteByte(tagMap)
		if err := w.writeSize(len(val)); err != nil {
			return err
		}
		for i, e := range val {
			if err := w.writeValue(e.Key); err != nil {
				return fmt.Errorf("map key %d: %w", i, err)
			}
			if err := w.writeValue(e.Value); err != nil {
				return fmt.Errorf("map value %d: %w", i, err)
			}
		}
	case Custom:
		if err := w.known.check(val.Code); err != nil {
			return err
		}
		w.buf.WriteByte(val.Code)
		if err := w.writeValue(val.Payload); err != nil {
			return fmt.Errorf("custom %d: %w", val.Code, err)
		}
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

type stdReader struct {
	data  []byte
	pos   int
	known codeSet
}

func (r *stdReader) errorf(format string, args ...any) error {
	return &DecodeError{Offset: r.pos, Message: fmt.Sprintf(format, args...)}
}

func (r *stdReader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.errorf("need %d bytes, have %d", n, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *stdReader) readByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *stdReader) readSize() (int, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b < 254:
		return int(b), nil
	case b == 254:
		raw, err := r.take(2)
		if err != nil {
			return 0, err
		}
		return int(binary.LittleEndian.Uint16(raw)), nil
	default:
		raw, err := r.take(4)
		if err != nil {
			return 0, err
		}
		n, err := safecast.Conv[int](binary.LittleEndian.Uint32(raw))
		if err != nil {
			return 0, r.errorf("size overflow: %v", err)
		}
		return n, nil
	}
}

func (r *stdReader) align(n int) error {
	if mod := r.pos % n; mod != 0 {
		_, err := r.take(n - mod)
		return err
	}
	return nil
}

// readCount reads an element count and checks the remaining buffer can
// hold count elements of width bytes before anything is allocated.
func (r *stdReader) readCount(width int) (int, error) {
	n, err := r.readSize()
	if err != nil {
		return 0, err
	}
	if n > (len(r.data)-r.pos)/width {
		return 0, r.errorf("count %d exceeds remaining bytes", n)
	}
	return n, nil
}

func (r *stdReader) readValue() (Value, error) {
	tag, err := r.readByte()
	if err != nil {
		return nil, err
	}
	return r.readValueOfType(tag)
}

func (r *stdReader) readValueOfType(tag byte) (Value, error) {
	switch tag {
	case tagNull:
		return Null{}, nil
	case tagTrue:
		return Bool(true), nil
	case tagFalse:
		return Bool(false), nil
	case tagInt32:
		raw, err := r.take(4)
		if err != nil {
			return nil, err
		}
		return Int(int32(binary.LittleEndian.Uint32(raw))), nil
	case tagInt64:
		raw, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return Int(int64(binary.LittleEndian.Uint64(raw))), nil
	case tagFloat64:
		if err := r.align(8); err != nil {
			return nil, err
		}
		raw, err := r.take(8)
		if err != nil {
			return nil, err
		}
		return Float(math.Float64frombits(binary.LittleEndian.Uint64(raw))), nil
	case tagString:
		n, err := r.readCount(1)
		if err != nil {
			return nil, err
		}
		raw, err := r.take(n)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, r.errorf("invalid UTF-8 string")
		}
		return String(raw), nil
	case tagUint8List:
		n, err := r.readCount(1)
		if err != nil {
			return nil, err
		}
		raw, err := r.take(n)
		if err != nil {
			return nil, err
		}
		return Bytes(bytes.Clone(raw)), nil
	case tagInt32List:
		n, err := r.readCount(4)
		if err != nil {
			return nil, err
		}
		if err := r.align(4); err != nil {
			return nil, err
		}
		out := make(Int32List, n)
		for i := range out {
			raw, err := r.take(4)
			if err != nil {
				return nil, err
			}
			out[i] = int32(binary.LittleEndian.Uint32(raw))
		}
		return out, nil
	case tagInt64List, tagFloat64List:
		n, err := r.readCount(8)
		if err != nil {
			return nil, err
		}
		if err := r.align(8); err != nil {
			return nil, err
		}
		if tag == tagInt64List {
			out := make(Int64List, n)
			for i := range out {
				raw, err := r.take(8)
				if err != nil {
					return nil, err
				}
				out[i] = int64(binary.LittleEndian.Uint64(raw))
			}
			return out, nil
		}
		out := make(Float64List, n)
		for i := range out {
			raw, err := r.take(8)
			if err != nil {
				return nil, err
			}
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw))
		}
		return out, nil
	case tagList:
		n, err := r.readCount(1)
		if err != nil {
			return nil, err
		}
		out := make(List, n)
		for i := range out {
			if out[i], err = r.readValue(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case tagMap:
		n, err := r.readCount(2)
		if err != nil {
			return nil, err
		}
		out := make(Map, n)
		for i := range out {
			if out[i].Key, err = r.readValue(); err != nil {
				return nil, err
			}
			if out[i].Value, err = r.readValue(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case tagLargeInt, tagFloat32List:
		return nil, r.errorf("unsupported type tag %d", tag)
	default:
		if tag < MinCustomCode {
			return nil, r.errorf("unknown type tag %d", tag)
		}
		if err := r.known.check(tag); err != nil {
			return nil, err
		}
		payload, err := r.readValue()
		if err != nil {
			return nil, err
		}
		return Custom{Code: tag, Payload: payload}, nil
	}
}
