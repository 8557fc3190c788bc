package codec

import "fmt"

// Value is a sealed interface representing a codec value.
// Only the types declared in this file implement it.
type Value interface {
	codecValue()
}

// Null represents an absent value.
type Null struct{}

func (Null) codecValue() {}

// Bool represents a boolean.
type Bool bool

func (Bool) codecValue() {}

// Int represents a 64-bit signed integer.
type Int int64

func (Int) codecValue() {}

// Float represents a 64-bit IEEE 754 double.
type Float float64

func (Float) codecValue() {}

// String represents a UTF-8 string.
type String string

func (String) codecValue() {}

// Bytes represents a Uint8List.
type Bytes []byte

func (Bytes) codecValue() {}

// Int32List represents a fixed-width 32-bit integer array.
type Int32List []int32

func (Int32List) codecValue() {}

// Int64List represents a fixed-width 64-bit integer array.
type Int64List []int64

func (Int64List) codecValue() {}

// Float64List represents a fixed-width double array.
type Float64List []float64

func (Float64List) codecValue() {}

// List represents a heterogeneous list.
type List []Value

func (List) codecValue() {}

// Entry is one key/value pair of a Map.
type Entry struct {
	Key   Value
	Value Value
}

// Map represents an ordered mapping. Keys may be any value; record
// encodings use String keys in field declaration order.
type Map []Entry

func (Map) codecValue() {}

// Custom is a value tagged with a discriminant code. The payload of a
// custom record is its encoded field mapping.
type Custom struct {
	Code    uint8
	Payload Value
}

func (Custom) codecValue() {}

// MinCustomCode is the first discriminant available to custom types.
// Codes below it are reserved for the standard codec's built-in tags.
const MinCustomCode = 128

// E is a shorthand for a string-keyed Entry.
// Example: Map{E("code", String("Error")), E("message", Null{})}
func E(key string, value Value) Entry {
	return Entry{Key: String(key), Value: value}
}

// Get returns the value stored under the string key, if present.
func (m Map) Get(key string) (Value, bool) {
	for _, e := range m {
		if k, ok := e.Key.(String); ok && string(k) == key {
			return e.Value, true
		}
	}
	return nil, false
}

// IsNull reports whether v is absent: a nil interface or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// TypeName returns a short name of the value's kind for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "double"
	case String:
		return "String"
	case Bytes:
		return "Uint8List"
	case Int32List:
		return "Int32List"
	case Int64List:
		return "Int64List"
	case Float64List:
		return "Float64List"
	case List:
		return "List"
	case Map:
		return "Map"
	case Custom:
		return "Custom"
	default:
		return fmt.Sprintf("%T", v)
	}
}
