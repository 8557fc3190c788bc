package golang

// helpers is appended to every generated file.
const helpers = `
func pigeonTypeError(want string, v codec.Value) error {
	return fmt.Errorf("expected %s, got %s", want, codec.TypeName(v))
}

func pigeonNullable[T any](v *T, enc func(T) codec.Value) codec.Value {
	if v == nil {
		return codec.Null{}
	}
	return enc(*v)
}

func pigeonNilable(isNil bool, v codec.Value) codec.Value {
	if isNil {
		return codec.Null{}
	}
	return v
}

func pigeonEncodeObject(v codec.Value) codec.Value {
	if v == nil {
		return codec.Null{}
	}
	return v
}

func pigeonEncodeList[T any](v []T, enc func(T) codec.Value) codec.Value {
	out := make(codec.List, len(v))
	for i, e := range v {
		out[i] = enc(e)
	}
	return out
}

func pigeonEncodeMap[K comparable, V any](v map[K]V, encKey func(K) codec.Value, encValue func(V) codec.Value) codec.Value {
	out := make(codec.Map, 0, len(v))
	for k, e := range v {
		out = append(out, codec.Entry{Key: encKey(k), Value: encValue(e)})
	}
	return out
}

func pigeonDecodeBool(v codec.Value) (bool, error) {
	b, ok := v.(codec.Bool)
	if !ok {
		return false, pigeonTypeError("bool", v)
	}
	return bool(b), nil
}

func pigeonDecodeInt(v codec.Value) (int64, error) {
	n, ok := v.(codec.Int)
	if !ok {
		return 0, pigeonTypeError("int", v)
	}
	return int64(n), nil
}

func pigeonDecodeDouble(v codec.Value) (float64, error) {
	f, ok := v.(codec.Float)
	if !ok {
		return 0, pigeonTypeError("double", v)
	}
	return float64(f), nil
}

func pigeonDecodeString(v codec.Value) (string, error) {
	s, ok := v.(codec.String)
	if !ok {
		return "", pigeonTypeError("String", v)
	}
	return string(s), nil
}

func pigeonDecodeBytes(v codec.Value) ([]byte, error) {
	if codec.IsNull(v) {
		return nil, nil
	}
	b, ok := v.(codec.Bytes)
	if !ok {
		return nil, pigeonTypeError("Uint8List", v)
	}
	return []byte(b), nil
}

func pigeonDecodeInt32List(v codec.Value) ([]int32, error) {
	if codec.IsNull(v) {
		return nil, nil
	}
	l, ok := v.(codec.Int32List)
	if !ok {
		return nil, pigeonTypeError("Int32List", v)
	}
	return []int32(l), nil
}

func pigeonDecodeInt64List(v codec.Value) ([]int64, error) {
	if codec.IsNull(v) {
		return nil, nil
	}
	l, ok := v.(codec.Int64List)
	if !ok {
		return nil, pigeonTypeError("Int64List", v)
	}
	return []int64(l), nil
}

func pigeonDecodeFloat64List(v codec.Value) ([]float64, error) {
	if codec.IsNull(v) {
		return nil, nil
	}
	l, ok := v.(codec.Float64List)
	if !ok {
		return nil, pigeonTypeError("Float64List", v)
	}
	return []float64(l), nil
}

func pigeonDecodeObject(v codec.Value) (codec.Value, error) {
	if codec.IsNull(v) {
		return nil, nil
	}
	return v, nil
}

func pigeonDecodeNullable[T any](dec func(codec.Value) (T, error)) func(codec.Value) (*T, error) {
	return func(v codec.Value) (*T, error) {
		if codec.IsNull(v) {
			return nil, nil
		}
		out, err := dec(v)
		if err != nil {
			return nil, err
		}
		return &out, nil
	}
}

func pigeonDecodeTagged[T any](code uint8, dec func(codec.Value) (T, error)) func(codec.Value) (T, error) {
	return func(v codec.Value) (T, error) {
		c, ok := v.(codec.Custom)
		if !ok || c.Code != code {
			var zero T
			return zero, fmt.Errorf("expected custom value %d, got %s", code, codec.TypeName(v))
		}
		return dec(c.Payload)
	}
}

func pigeonDecodeList[T any](dec func(codec.Value) (T, error)) func(codec.Value) ([]T, error) {
	return func(v codec.Value) ([]T, error) {
		if codec.IsNull(v) {
			return nil, nil
		}
		list, ok := v.(codec.List)
		if !ok {
			return nil, pigeonTypeError("List", v)
		}
		out := make([]T, len(list))
		for i, e := range list {
			item, err := dec(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = item
		}
		return out, nil
	}
}

func pigeonDecodeMap[K comparable, V any](decKey func(codec.Value) (K, error), decValue func(codec.Value) (V, error)) func(codec.Value) (map[K]V, error) {
	return func(v codec.Value) (out map[K]V, err error) {
		if codec.IsNull(v) {
			return nil, nil
		}
		m, ok := v.(codec.Map)
		if !ok {
			return nil, pigeonTypeError("Map", v)
		}
		defer func() {
			if r := recover(); r != nil {
				out, err = nil, fmt.Errorf("unhashable map key: %v", r)
			}
		}()
		out = make(map[K]V, len(m))
		for i, e := range m {
			key, kerr := decKey(e.Key)
			if kerr != nil {
				return nil, fmt.Errorf("key %d: %w", i, kerr)
			}
			value, verr := decValue(e.Value)
			if verr != nil {
				return nil, fmt.Errorf("value %d: %w", i, verr)
			}
			out[key] = value
		}
		return out, nil
	}
}
`
