package resolve

import (
	"slices"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// Kind classifies a type reference.
type Kind int

const (
	KindUnknown Kind = iota
	KindVoid
	KindBuiltin
	KindRecord
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBuiltin:
		return "builtin"
	case KindRecord:
		return "record"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// IsBuiltin reports whether name is in the canonical builtin vocabulary.
func IsBuiltin(name string) bool {
	return slices.Contains(ir.BuiltinNames, name)
}

// KindOf classifies ref against doc. Builtin names win over declarations of
// the same name.
func KindOf(ref ir.TypeRef, doc *ir.Document) Kind {
	if ref.IsVoid {
		return KindVoid
	}
	if IsBuiltin(ref.BaseName) {
		return KindBuiltin
	}
	if doc != nil {
		if _, ok := doc.Record(ref.BaseName); ok {
			return KindRecord
		}
		if _, ok := doc.Enum(ref.BaseName); ok {
			return KindEnum
		}
	}
	return KindUnknown
}

// Arity returns the number of type arguments a container base name takes,
// or 0 for non-containers.
func Arity(base string) int {
	switch base {
	case ir.TypeList:
		return 1
	case ir.TypeMap:
		return 2
	default:
		return 0
	}
}

// TypeArguments returns ref's type arguments padded to the container's
// arity with nullable Object, so "List" reads as "List<Object?>".
func TypeArguments(ref ir.TypeRef) []ir.TypeRef {
	n := Arity(ref.BaseName)
	if n == 0 {
		return nil
	}
	args := make([]ir.TypeRef, n)
	for i := range args {
		if i < len(ref.TypeArguments) {
			args[i] = ref.TypeArguments[i]
		} else {
			args[i] = ir.Nullable(ir.TypeObject)
		}
	}
	return args
}

// Visit walks ref pre-order: the reference itself, then its type arguments
// in order. Returning false from fn skips the reference's arguments.
func Visit(ref ir.TypeRef, fn func(ir.TypeRef) bool) {
	if !fn(ref) {
		return
	}
	for _, arg := range ref.TypeArguments {
		Visit(arg, fn)
	}
}
