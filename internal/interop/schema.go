package interop

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/xiaowei-guan/pigeon/codec"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

// Schema encodes and decodes values of a Document's types.
//
// Without discriminants every record encodes as a plain mapping. A Binding
// adds the discriminants of one interface for signature positions.
type Schema struct {
	doc    *ir.Document
	codes  map[string]uint8
	byCode map[uint8]string
}

// NewSchema returns a Schema over doc. It fails if any type reference in
// doc is unresolved.
func NewSchema(doc *ir.Document) (*Schema, error) {
	if err := resolve.Check(doc); err != nil {
		return nil, err
	}
	return &Schema{doc: doc}, nil
}

// EncodeRecord encodes rec as its ordered field mapping.
func (s *Schema) EncodeRecord(rec *Record) (codec.Map, error) {
	if rec == nil {
		return nil, fmt.Errorf("encode record: nil instance")
	}
	def, ok := s.doc.Record(rec.Type)
	if !ok {
		return nil, fmt.Errorf("encode record: unknown record %q", rec.Type)
	}

	out := make(codec.Map, 0, len(def.Fields))
	for _, f := range def.Fields {
		v := rec.Fields[f.Name]
		if v == nil && !f.Type.IsNullable {
			return nil, fmt.Errorf("encode %s.%s: non-nullable field is absent", def.Name, f.Name)
		}
		ev, err := s.encode(f.Type, v, false)
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", def.Name, f.Name, err)
		}
		out = append(out, codec.E(f.Name, ev))
	}
	return out, nil
}

// DecodeRecord decodes the field mapping of record type name. It is the
// left inverse of EncodeRecord.
func (s *Schema) DecodeRecord(name string, v codec.Value) (*Record, error) {
	def, ok := s.doc.Record(name)
	if !ok {
		return nil, fmt.Errorf("decode record: unknown record %q", name)
	}
	m, ok := v.(codec.Map)
	if !ok {
		return nil, fmt.Errorf("decode %s: expected Map, got %s", name, codec.TypeName(v))
	}

	rec := NewRecord(name, make(map[string]Value, len(def.Fields)))
	for _, f := range def.Fields {
		raw, _ := m.Get(f.Name)
		if codec.IsNull(raw) {
			if !f.Type.IsNullable {
				return nil, fmt.Errorf("decode %s.%s: non-nullable field is absent", name, f.Name)
			}
			rec.Fields[f.Name] = nil
			continue
		}
		fv, err := s.decode(f.Type, raw, false)
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", name, f.Name, err)
		}
		rec.Fields[f.Name] = fv
	}
	return rec, nil
}

// DecodeEnum maps a wire index to a member of enum type name. An index
// outside the declared members is an error.
func (s *Schema) DecodeEnum(name string, v codec.Value) (EnumValue, error) {
	def, ok := s.doc.Enum(name)
	if !ok {
		return EnumValue{}, fmt.Errorf("decode enum: unknown enum %q", name)
	}
	idx, ok := v.(codec.Int)
	if !ok {
		return EnumValue{}, fmt.Errorf("decode %s: expected int, got %s", name, codec.TypeName(v))
	}
	if idx < 0 || int64(idx) >= int64(len(def.Members)) {
		return EnumValue{}, fmt.Errorf("decode %s: index %d out of range [0, %d)", name, idx, len(def.Members))
	}
	return EnumValue{Type: name, Index: int(idx)}, nil
}

// encode converts v of type ref. tagged wraps records in their
// discriminant and is false below a record field.
func (s *Schema) encode(ref ir.TypeRef, v Value, tagged bool) (codec.Value, error) {
	if v == nil {
		return codec.Null{}, nil
	}

	switch resolve.KindOf(ref, s.doc) {
	case resolve.KindRecord:
		rec, ok := v.(*Record)
		if !ok || rec.Type != ref.BaseName {
			return nil, typeMismatch(ref, v)
		}
		return s.encodeRecordValue(rec, tagged)

	case resolve.KindEnum:
		ev, ok := v.(EnumValue)
		if !ok || ev.Type != ref.BaseName {
			return nil, typeMismatch(ref, v)
		}
		def, _ := s.doc.Enum(ref.BaseName)
		if ev.Index < 0 || ev.Index >= len(def.Members) {
			return nil, fmt.Errorf("%s index %d out of range", ev.Type, ev.Index)
		}
		return codec.Int(ev.Index), nil

	case resolve.KindBuiltin:
		return s.encodeBuiltin(ref, v, tagged)

	default:
		return nil, &resolve.Error{Name: ref.BaseName, Ref: ref.String()}
	}
}

func (s *Schema) encodeRecordValue(rec *Record, tagged bool) (codec.Value, error) {
	m, err := s.EncodeRecord(rec)
	if err != nil {
		return nil, err
	}
	if !tagged {
		return m, nil
	}
	code, ok := s.codes[rec.Type]
	if !ok {
		return nil, fmt.Errorf("record %s has no discriminant on this interface", rec.Type)
	}
	return codec.Custom{Code: code, Payload: m}, nil
}

func (s *Schema) encodeBuiltin(ref ir.TypeRef, v Value, tagged bool) (codec.Value, error) {
	switch ref.BaseName {
	case ir.TypeBool:
		if b, ok := v.(bool); ok {
			return codec.Bool(b), nil
		}
	case ir.TypeInt:
		switch n := v.(type) {
		case int64:
			return codec.Int(n), nil
		case int:
			return codec.Int(n), nil
		}
	case ir.TypeDouble:
		if f, ok := v.(float64); ok {
			return codec.Float(f), nil
		}
	case ir.TypeString:
		if str, ok := v.(string); ok {
			return codec.String(str), nil
		}
	case ir.TypeUint8List:
		if b, ok := v.([]byte); ok {
			return codec.Bytes(b), nil
		}
	case ir.TypeInt32List:
		if l, ok := v.([]int32); ok {
			return codec.Int32List(l), nil
		}
	case ir.TypeInt64List:
		if l, ok := v.([]int64); ok {
			return codec.Int64List(l), nil
		}
	case ir.TypeFloat64List:
		if l, ok := v.([]float64); ok {
			return codec.Float64List(l), nil
		}
	case ir.TypeList:
		list, ok := v.([]Value)
		if !ok {
			break
		}
		elem := resolve.TypeArguments(ref)[0]
		out := make(codec.List, len(list))
		for i, item := range list {
			ev, err := s.encode(elem, item, tagged)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case ir.TypeMap:
		m, ok := v.(Map)
		if !ok {
			break
		}
		args := resolve.TypeArguments(ref)
		out := make(codec.Map, len(m))
		for i, p := range m {
			k, err := s.encode(args[0], p.Key, tagged)
			if err != nil {
				return nil, fmt.Errorf("key %d: %w", i, err)
			}
			val, err := s.encode(args[1], p.Value, tagged)
			if err != nil {
				return nil, fmt.Errorf("value %d: %w", i, err)
			}
			out[i] = codec.Entry{Key: k, Value: val}
		}
		return out, nil
	case ir.TypeObject:
		return s.encodeObject(v)
	}
	return nil, typeMismatch(ref, v)
}

// encodeObject encodes a value of dynamic type. Records are always tagged,
// wherever the Object sits, since nothing else identifies them on decode.
// Enums have no discriminant and cannot be carried at all.
func (s *Schema) encodeObject(v Value) (codec.Value, error) {
	switch val := v.(type) {
	case nil:
		return codec.Null{}, nil
	case *Record:
		return s.encodeRecordValue(val, true)
	case EnumValue:
		return nil, fmt.Errorf("enum %s cannot be carried as Object", val.Type)
	case []Value:
		out := make(codec.List, len(val))
		for i, item := range val {
			ev, err := s.encodeObject(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case Map:
		out := make(codec.Map, len(val))
		for i, p := range val {
			k, err := s.encodeObject(p.Key)
			if err != nil {
				return nil, fmt.Errorf("key %d: %w", i, err)
			}
			ev, err := s.encodeObject(p.Value)
			if err != nil {
				return nil, fmt.Errorf("value %d: %w", i, err)
			}
			out[i] = codec.Entry{Key: k, Value: ev}
		}
		return out, nil
	case bool:
		return codec.Bool(val), nil
	case int64:
		return codec.Int(val), nil
	case int:
		return codec.Int(val), nil
	case float64:
		return codec.Float(val), nil
	case string:
		return codec.String(val), nil
	case []byte:
		return codec.Bytes(val), nil
	case []int32:
		return codec.Int32List(val), nil
	case []int64:
		return codec.Int64List(val), nil
	case []float64:
		return codec.Float64List(val), nil
	default:
		return nil, fmt.Errorf("cannot encode %T as Object", v)
	}
}

// decode converts a non-null wire value of type ref.
func (s *Schema) decode(ref ir.TypeRef, v codec.Value, tagged bool) (Value, error) {
	if codec.IsNull(v) {
		return nil, nil
	}

	switch resolve.KindOf(ref, s.doc) {
	case resolve.KindRecord:
		if !tagged {
			return s.DecodeRecord(ref.BaseName, v)
		}
		c, ok := v.(codec.Custom)
		if !ok {
			return nil, fmt.Errorf("expected tagged %s, got %s", ref.BaseName, codec.TypeName(v))
		}
		if want, ok := s.codes[ref.BaseName]; !ok || c.Code != want {
			return nil, fmt.Errorf("expected %s discriminant, got %d", ref.BaseName, c.Code)
		}
		return s.DecodeRecord(ref.BaseName, c.Payload)

	case resolve.KindEnum:
		return s.DecodeEnum(ref.BaseName, v)

	case resolve.KindBuiltin:
		return s.decodeBuiltin(ref, v, tagged)

	default:
		return nil, &resolve.Error{Name: ref.BaseName, Ref: ref.String()}
	}
}

func (s *Schema) decodeBuiltin(ref ir.TypeRef, v codec.Value, tagged bool) (Value, error) {
	switch ref.BaseName {
	case ir.TypeBool:
		if b, ok := v.(codec.Bool); ok {
			return bool(b), nil
		}
	case ir.TypeInt:
		if n, ok := v.(codec.Int); ok {
			return int64(n), nil
		}
	case ir.TypeDouble:
		if f, ok := v.(codec.Float); ok {
			return float64(f), nil
		}
	case ir.TypeString:
		if str, ok := v.(codec.String); ok {
			return string(str), nil
		}
	case ir.TypeUint8List:
		if b, ok := v.(codec.Bytes); ok {
			return []byte(b), nil
		}
	case ir.TypeInt32List:
		switch l := v.(type) {
		case codec.Int32List:
			return []int32(l), nil
		case codec.List:
			return numericList(l, func(n codec.Int) (int32, error) {
				return safecast.Conv[int32](int64(n))
			})
		}
	case ir.TypeInt64List:
		switch l := v.(type) {
		case codec.Int64List:
			return []int64(l), nil
		case codec.List:
			return numericList(l, func(n codec.Int) (int64, error) {
				return int64(n), nil
			})
		}
	case ir.TypeFloat64List:
		switch l := v.(type) {
		case codec.Float64List:
			return []float64(l), nil
		case codec.List:
			return numericList(l, func(f codec.Float) (float64, error) {
				return float64(f), nil
			})
		}
	case ir.TypeList:
		list, ok := v.(codec.List)
		if !ok {
			break
		}
		elem := resolve.TypeArguments(ref)[0]
		out := make([]Value, len(list))
		for i, item := range list {
			dv, err := s.decode(elem, item, tagged)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = dv
		}
		return out, nil
	case ir.TypeMap:
		m, ok := v.(codec.Map)
		if !ok {
			break
		}
		args := resolve.TypeArguments(ref)
		out := make(Map, len(m))
		for i, e := range m {
			k, err := s.decode(args[0], e.Key, tagged)
			if err != nil {
				return nil, fmt.Errorf("key %d: %w", i, err)
			}
			val, err := s.decode(args[1], e.Value, tagged)
			if err != nil {
				return nil, fmt.Errorf("value %d: %w", i, err)
			}
			out[i] = Pair{Key: k, Value: val}
		}
		return out, nil
	case ir.TypeObject:
		return s.decodeObject(v)
	}
	return nil, fmt.Errorf("expected %s, got %s", ref, codec.TypeName(v))
}

// decodeObject decodes a value of dynamic type. Tagged records are
// recognised by discriminant; untagged mappings stay Maps.
func (s *Schema) decodeObject(v codec.Value) (Value, error) {
	switch val := v.(type) {
	case nil, codec.Null:
		return nil, nil
	case codec.Bool:
		return bool(val), nil
	case codec.Int:
		return int64(val), nil
	case codec.Float:
		return float64(val), nil
	case codec.String:
		return string(val), nil
	case codec.Bytes:
		return []byte(val), nil
	case codec.Int32List:
		return []int32(val), nil
	case codec.Int64List:
		return []int64(val), nil
	case codec.Float64List:
		return []float64(val), nil
	case codec.List:
		out := make([]Value, len(val))
		for i, item := range val {
			dv, err := s.decodeObject(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = dv
		}
		return out, nil
	case codec.Map:
		out := make(Map, len(val))
		for i, e := range val {
			k, err := s.decodeObject(e.Key)
			if err != nil {
				return nil, err
			}
			dv, err := s.decodeObject(e.Value)
			if err != nil {
				return nil, err
			}
			out[i] = Pair{Key: k, Value: dv}
		}
		return out, nil
	case codec.Custom:
		name, ok := s.byCode[val.Code]
		if !ok {
			return nil, &codec.UnknownCodeError{Code: val.Code}
		}
		return s.DecodeRecord(name, val.Payload)
	default:
		return nil, fmt.Errorf("cannot decode %s as Object", codec.TypeName(v))
	}
}

// numericList converts a plain list to a typed array. Codecs without typed
// arrays, such as MessagePack, carry them this way.
func numericList[W codec.Int | codec.Float, T int32 | int64 | float64](l codec.List, conv func(W) (T, error)) ([]T, error) {
	out := make([]T, len(l))
	for i, item := range l {
		w, ok := item.(W)
		if !ok {
			return nil, fmt.Errorf("[%d]: unexpected %s in typed list", i, codec.TypeName(item))
		}
		n, err := conv(w)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func typeMismatch(ref ir.TypeRef, v Value) error {
	return fmt.Errorf("expected %s, got %T", ref, v)
}
