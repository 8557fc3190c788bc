package harness

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/xiaowei-guan/pigeon/internal/interop"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

// fromYAML converts a YAML-decoded value to a value of type ref.
//
// Records are mappings of field names, enums are member names or indices,
// typed arrays are sequences of numbers. nil stays nil whatever the type;
// the receiver enforces nullability.
func fromYAML(doc *ir.Document, ref ir.TypeRef, v any) (interop.Value, error) {
	if v == nil {
		return nil, nil
	}

	switch resolve.KindOf(ref, doc) {
	case resolve.KindRecord:
		fields, ok := stringMap(v)
		if !ok {
			return nil, fmt.Errorf("%s: expected a mapping, got %T", ref.BaseName, v)
		}
		def, _ := doc.Record(ref.BaseName)
		rec := interop.NewRecord(def.Name, nil)
		for _, name := range sortedKeys(fields) {
			field, ok := fieldOf(def, name)
			if !ok {
				return nil, fmt.Errorf("%s has no field %q", def.Name, name)
			}
			fv, err := fromYAML(doc, field.Type, fields[name])
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.Name, name, err)
			}
			rec.Fields[name] = fv
		}
		return rec, nil

	case resolve.KindEnum:
		def, _ := doc.Enum(ref.BaseName)
		switch m := v.(type) {
		case string:
			idx := def.Index(m)
			if idx < 0 {
				return nil, fmt.Errorf("%s has no member %q", def.Name, m)
			}
			return interop.EnumValue{Type: def.Name, Index: idx}, nil
		case int:
			return interop.EnumValue{Type: def.Name, Index: m}, nil
		}
		return nil, fmt.Errorf("%s: expected a member name, got %T", ref.BaseName, v)

	case resolve.KindBuiltin:
		return builtinFromYAML(doc, ref, v)
	}
	return nil, &resolve.Error{Name: ref.BaseName, Ref: ref.String()}
}

func builtinFromYAML(doc *ir.Document, ref ir.TypeRef, v any) (interop.Value, error) {
	mismatch := fmt.Errorf("%s: unexpected %T", ref, v)

	switch ref.BaseName {
	case ir.TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, mismatch
	case ir.TypeString:
		if str, ok := v.(string); ok {
			return str, nil
		}
		return nil, mismatch
	case ir.TypeInt:
		if n, ok := v.(int); ok {
			return int64(n), nil
		}
		return nil, mismatch
	case ir.TypeDouble:
		f, ok := number(v)
		if !ok {
			return nil, mismatch
		}
		return f, nil
	case ir.TypeUint8List, ir.TypeInt32List, ir.TypeInt64List, ir.TypeFloat64List:
		items, ok := v.([]any)
		if !ok {
			return nil, mismatch
		}
		return typedList(ref.BaseName, items)
	case ir.TypeList:
		items, ok := v.([]any)
		if !ok {
			return nil, mismatch
		}
		elem := resolve.TypeArguments(ref)[0]
		out := make([]interop.Value, len(items))
		for i, item := range items {
			ev, err := fromYAML(doc, elem, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case ir.TypeMap:
		pairs, ok := yamlPairs(v)
		if !ok {
			return nil, mismatch
		}
		args := resolve.TypeArguments(ref)
		out := make(interop.Map, len(pairs))
		for i, p := range pairs {
			k, err := fromYAML(doc, args[0], p.Key)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", p.Key, err)
			}
			val, err := fromYAML(doc, args[1], p.Value)
			if err != nil {
				return nil, fmt.Errorf("[%v]: %w", p.Key, err)
			}
			out[i] = interop.Pair{Key: k, Value: val}
		}
		return out, nil
	case ir.TypeObject:
		return objectFromYAML(v), nil
	}
	return nil, mismatch
}

// objectFromYAML maps a YAML value onto the dynamic Object forms.
func objectFromYAML(v any) interop.Value {
	switch val := v.(type) {
	case int:
		return int64(val)
	case []any:
		out := make([]interop.Value, len(val))
		for i, item := range val {
			out[i] = objectFromYAML(item)
		}
		return out
	case map[string]any, map[any]any:
		pairs, _ := yamlPairs(val)
		out := make(interop.Map, len(pairs))
		for i, p := range pairs {
			out[i] = interop.Pair{Key: objectFromYAML(p.Key), Value: objectFromYAML(p.Value)}
		}
		return out
	default:
		return val
	}
}

func typedList(base string, items []any) (interop.Value, error) {
	switch base {
	case ir.TypeUint8List:
		out := make([]byte, len(items))
		for i, item := range items {
			n, ok := item.(int)
			if !ok || n < 0 || n > math.MaxUint8 {
				return nil, fmt.Errorf("%s[%d]: %v is not a byte", base, i, item)
			}
			out[i] = byte(n)
		}
		return out, nil
	case ir.TypeInt32List:
		out := make([]int32, len(items))
		for i, item := range items {
			n, ok := item.(int)
			if !ok || n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("%s[%d]: %v is not an int32", base, i, item)
			}
			out[i] = int32(n)
		}
		return out, nil
	case ir.TypeInt64List:
		out := make([]int64, len(items))
		for i, item := range items {
			n, ok := item.(int)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: %v is not an integer", base, i, item)
			}
			out[i] = int64(n)
		}
		return out, nil
	default:
		out := make([]float64, len(items))
		for i, item := range items {
			f, ok := number(item)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: %v is not a number", base, i, item)
			}
			out[i] = f
		}
		return out, nil
	}
}

// toPlain converts a dynamic value to plain Go data for matching:
// records and string-keyed maps become map[string]any, enums their member
// name, other maps a list of [key, value] pairs.
func toPlain(doc *ir.Document, v interop.Value) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		return int64(val)
	case *interop.Record:
		out := make(map[string]any, len(val.Fields))
		for k, fv := range val.Fields {
			out[k] = toPlain(doc, fv)
		}
		return out
	case interop.EnumValue:
		if def, ok := doc.Enum(val.Type); ok && val.Index >= 0 && val.Index < len(def.Members) {
			return def.Members[val.Index]
		}
		return val.String()
	case []interop.Value:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toPlain(doc, item)
		}
		return out
	case interop.Map:
		obj := make(map[string]any, len(val))
		pairs := make([]any, len(val))
		keyed := true
		for i, p := range val {
			k, v := toPlain(doc, p.Key), toPlain(doc, p.Value)
			if s, ok := k.(string); ok && keyed {
				obj[s] = v
			} else {
				keyed = false
			}
			pairs[i] = []any{k, v}
		}
		if keyed {
			return obj
		}
		return pairs
	case []byte:
		return numbers(val)
	case []int32:
		return numbers(val)
	case []int64:
		return numbers(val)
	case []float64:
		out := make([]any, len(val))
		for i, f := range val {
			out[i] = f
		}
		return out
	default:
		return val
	}
}

func numbers[T byte | int32 | int64](in []T) []any {
	out := make([]any, len(in))
	for i, n := range in {
		out[i] = int64(n)
	}
	return out
}

// match compares plain values. Mappings in expected match as subsets of
// actual; everything else must be equal.
func match(path string, expected, actual any) error {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected a mapping, got %v", path, actual)
		}
		for _, k := range sortedKeys(exp) {
			av, present := act[k]
			if !present {
				return fmt.Errorf("%s.%s: missing", path, k)
			}
			if err := match(path+"."+k, exp[k], av); err != nil {
				return err
			}
		}
		return nil
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return fmt.Errorf("%s: expected %v, got %v", path, expected, actual)
		}
		for i := range exp {
			if err := match(fmt.Sprintf("%s[%d]", path, i), exp[i], act[i]); err != nil {
				return err
			}
		}
		return nil
	}
	if !reflect.DeepEqual(expected, actual) {
		return fmt.Errorf("%s: expected %v, got %v", path, expected, actual)
	}
	return nil
}

// canonicalTree prepares decoded wire data for canonical JSON, which has
// no floats: doubles are rendered as their shortest decimal string.
func canonicalTree(v any) any {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = canonicalTree(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = canonicalTree(item)
		}
		return out
	default:
		return val
	}
}

type yamlPair struct {
	Key   any
	Value any
}

// yamlPairs returns the entries of a YAML mapping ordered by key text.
func yamlPairs(v any) ([]yamlPair, bool) {
	var pairs []yamlPair
	switch m := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(m) {
			pairs = append(pairs, yamlPair{Key: k, Value: m[k]})
		}
		return pairs, true
	case map[any]any:
		for k, val := range m {
			pairs = append(pairs, yamlPair{Key: k, Value: val})
		}
		sort.Slice(pairs, func(i, j int) bool {
			return fmt.Sprint(pairs[i].Key) < fmt.Sprint(pairs[j].Key)
		})
		return pairs, true
	}
	return nil, false
}

func stringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = val
		}
		return out, true
	}
	return nil, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fieldOf(rec *ir.Record, name string) (ir.Field, bool) {
	for _, f := range rec.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return ir.Field{}, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
