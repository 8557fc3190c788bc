package golang

import (
	"fmt"

	"github.com/xiaowei-guan/pigeon/internal/backend"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

func nonNull(ref ir.TypeRef) ir.TypeRef {
	ref.IsNullable = false
	return ref
}

// pointer reports whether a nullable ref is a pointer to its non-null form.
func (g *generator) pointer(ref ir.TypeRef) bool {
	return ref.IsNullable && !nilable(g.plan.Type(nonNull(ref)))
}

// enc returns an expression encoding x of type ref to a codec.Value.
// Records are tagged with iface's discriminants; a nil iface means the
// position is a record field.
func (g *generator) enc(ref ir.TypeRef, x string, iface *backend.Interface) string {
	if g.pointer(ref) {
		inner := nonNull(ref)
		return fmt.Sprintf("pigeonNullable(%s, func(v %s) codec.Value { return %s })",
			x, g.plan.Type(inner), g.enc(inner, "v", iface))
	}

	switch g.plan.Kind(ref) {
	case resolve.KindRecord:
		payload := x + ".encode()"
		if iface != nil {
			if code, ok := iface.Code(ref.BaseName); ok {
				return fmt.Sprintf("codec.Custom{Code: %d, Payload: %s}", code, payload)
			}
		}
		return payload
	case resolve.KindEnum:
		return fmt.Sprintf("codec.Int(%s)", x)
	}

	var expr string
	switch ref.BaseName {
	case ir.TypeBool:
		return fmt.Sprintf("codec.Bool(%s)", x)
	case ir.TypeInt:
		return fmt.Sprintf("codec.Int(%s)", x)
	case ir.TypeDouble:
		return fmt.Sprintf("codec.Float(%s)", x)
	case ir.TypeString:
		return fmt.Sprintf("codec.String(%s)", x)
	case ir.TypeObject:
		return fmt.Sprintf("pigeonEncodeObject(%s)", x)
	case ir.TypeUint8List:
		expr = fmt.Sprintf("codec.Bytes(%s)", x)
	case ir.TypeInt32List:
		expr = fmt.Sprintf("codec.Int32List(%s)", x)
	case ir.TypeInt64List:
		expr = fmt.Sprintf("codec.Int64List(%s)", x)
	case ir.TypeFloat64List:
		expr = fmt.Sprintf("codec.Float64List(%s)", x)
	case ir.TypeList:
		elem := resolve.TypeArguments(ref)[0]
		expr = fmt.Sprintf("pigeonEncodeList(%s, func(v %s) codec.Value { return %s })",
			x, g.plan.Type(elem), g.enc(elem, "v", iface))
	case ir.TypeMap:
		args := resolve.TypeArguments(ref)
		expr = fmt.Sprintf("pigeonEncodeMap(%s, func(v %s) codec.Value { return %s }, func(v %s) codec.Value { return %s })",
			x, g.plan.Type(args[0]), g.enc(args[0], "v", iface), g.plan.Type(args[1]), g.enc(args[1], "v", iface))
	default:
		return "codec.Null{}"
	}
	if ref.IsNullable {
		return fmt.Sprintf("pigeonNilable(%s == nil, %s)", x, expr)
	}
	return expr
}

// dec returns a decoder function value for ref, of type
// func(codec.Value) (T, error) where T is ref's Go type.
func (g *generator) dec(ref ir.TypeRef, iface *backend.Interface) string {
	if g.pointer(ref) {
		return fmt.Sprintf("pigeonDecodeNullable(%s)", g.dec(nonNull(ref), iface))
	}

	switch g.plan.Kind(ref) {
	case resolve.KindRecord:
		fn := "decode" + backend.Upper(ref.BaseName)
		if iface != nil {
			if code, ok := iface.Code(ref.BaseName); ok {
				return fmt.Sprintf("pigeonDecodeTagged(%d, %s)", code, fn)
			}
		}
		return fn
	case resolve.KindEnum:
		return "decode" + backend.Upper(ref.BaseName)
	}

	switch ref.BaseName {
	case ir.TypeBool:
		return "pigeonDecodeBool"
	case ir.TypeInt:
		return "pigeonDecodeInt"
	case ir.TypeDouble:
		return "pigeonDecodeDouble"
	case ir.TypeString:
		return "pigeonDecodeString"
	case ir.TypeUint8List:
		return "pigeonDecodeBytes"
	case ir.TypeInt32List:
		return "pigeonDecodeInt32List"
	case ir.TypeInt64List:
		return "pigeonDecodeInt64List"
	case ir.TypeFloat64List:
		return "pigeonDecodeFloat64List"
	case ir.TypeList:
		return fmt.Sprintf("pigeonDecodeList(%s)", g.dec(resolve.TypeArguments(ref)[0], iface))
	case ir.TypeMap:
		args := resolve.TypeArguments(ref)
		return fmt.Sprintf("pigeonDecodeMap(%s, %s)", g.dec(args[0], iface), g.dec(args[1], iface))
	default:
		return "pigeonDecodeObject"
	}
}

// zero returns the zero value literal of ref's Go type.
func (g *generator) zero(ref ir.TypeRef) string {
	repr := g.plan.Type(ref)
	if nilable(repr) {
		return "nil"
	}
	switch g.plan.Kind(ref) {
	case resolve.KindRecord:
		return repr + "{}"
	case resolve.KindEnum:
		return "0"
	}
	switch ref.BaseName {
	case ir.TypeBool:
		return "false"
	case ir.TypeString:
		return `""`
	default:
		return "0"
	}
}

// reserved are identifiers a parameter must not shadow in generated
// bodies.
var reserved = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,

	"any": true, "bool": true, "byte": true, "error": true, "float64": true,
	"int32": true, "int64": true, "string": true, "nil": true, "true": true,
	"false": true, "len": true, "make": true, "append": true,

	"api": true, "args": true, "channel": true, "channelName": true, "codec": true,
	"complete": true, "context": true, "ctx": true, "err": true, "fmt": true,
	"m": true, "out": true, "result": true,
}

// param returns the Go parameter name of an argument.
func param(name string) string {
	if reserved[name] {
		return name + "Arg"
	}
	return name
}
