package interop

import "fmt"

// Value is a dynamic value of a Document type. The accepted forms are:
//
//	nil                                  absent
//	bool, int64, float64, string
//	[]byte, []int32, []int64, []float64  typed arrays
//	[]Value                              List
//	Map                                  Map
//	*Record                              record instance
//	EnumValue                            enum member
//
// Encoding also accepts int for int64.
type Value = any

// Pair is one entry of a Map.
type Pair struct {
	Key   Value
	Value Value
}

// Map is an ordered mapping.
type Map []Pair

// Record is an instance of a record type. Decoding always populates every
// declared field, absent ones as nil.
type Record struct {
	Type   string
	Fields map[string]Value
}

// NewRecord returns a record instance of typ.
func NewRecord(typ string, fields map[string]Value) *Record {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return &Record{Type: typ, Fields: fields}
}

// Get returns the value of a field; absent fields are nil.
func (r *Record) Get(field string) Value {
	return r.Fields[field]
}

// EnumValue is a member of an enum type, identified by declaration index.
type EnumValue struct {
	Type  string
	Index int
}

func (e EnumValue) String() string {
	return fmt.Sprintf("%s(%d)", e.Type, e.Index)
}
