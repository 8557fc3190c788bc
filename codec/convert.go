package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// FromGo converts a decoded YAML/JSON tree into a Value.
//
// Maps with string keys are converted with keys in sorted order, since Go
// maps carry no order. json.Number is converted to Int when it is integral.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of int64 range", val)
		}
		return Int(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Float(f), nil
	case string:
		return String(val), nil
	case []byte:
		return Bytes(val), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			ev, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = ev
		}
		return list, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(Map, 0, len(val))
		for _, k := range keys {
			ev, err := FromGo(val[k])
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			m = append(m, E(k, ev))
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToGo converts a Value into plain Go values.
//
// Maps whose keys are all strings become map[string]any; other maps become
// a list of [key, value] pairs. Custom values become
// {"code": <code>, "value": <payload>}.
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Bytes:
		out := make([]any, len(val))
		for i, b := range val {
			out[i] = int64(b)
		}
		return out
	case Int32List:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = int64(n)
		}
		return out
	case Int64List:
		out := make([]any, len(val))
		for i, n := range val {
			out[i] = n
		}
		return out
	case Float64List:
		out := make([]any, len(val))
		for i, f := range val {
			out[i] = f
		}
		return out
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Map:
		if obj, ok := stringKeyed(val); ok {
			return obj
		}
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = []any{ToGo(e.Key), ToGo(e.Value)}
		}
		return out
	case Custom:
		return map[string]any{"code": int64(val.Code), "value": ToGo(val.Payload)}
	default:
		return nil
	}
}

func stringKeyed(m Map) (map[string]any, bool) {
	obj := make(map[string]any, len(m))
	for _, e := range m {
		k, ok := e.Key.(String)
		if !ok {
			return nil, false
		}
		obj[string(k)] = ToGo(e.Value)
	}
	return obj, true
}
