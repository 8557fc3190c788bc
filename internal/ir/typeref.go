package ir

import (
	"fmt"
	"strings"
	"unicode"
)

// Canonical built-in base names. Every backend's builtin table covers
// exactly this vocabulary.
const (
	TypeBool        = "bool"
	TypeInt         = "int"
	TypeDouble      = "double"
	TypeString      = "String"
	TypeUint8List   = "Uint8List"
	TypeInt32List   = "Int32List"
	TypeInt64List   = "Int64List"
	TypeFloat64List = "Float64List"
	TypeList        = "List"
	TypeMap         = "Map"
	TypeObject      = "Object"
	TypeVoid        = "void"
)

// BuiltinNames lists the canonical built-in base names in a fixed order.
var BuiltinNames = []string{
	TypeBool, TypeInt, TypeDouble, TypeString,
	TypeUint8List, TypeInt32List, TypeInt64List, TypeFloat64List,
	TypeList, TypeMap, TypeObject,
}

// TypeRef is a recursive reference to a type.
//
// IsVoid is only meaningful for a method's return type. TypeArguments is
// non-empty only for container base names (List, Map).
type TypeRef struct {
	BaseName      string    `json:"base_name"`
	IsNullable    bool      `json:"is_nullable,omitempty"`
	IsVoid        bool      `json:"is_void,omitempty"`
	TypeArguments []TypeRef `json:"type_arguments,omitempty"`
}

// Named returns a non-nullable reference to name.
func Named(name string, args ...TypeRef) TypeRef {
	return TypeRef{BaseName: name, TypeArguments: args}
}

// Nullable returns a nullable reference to name.
func Nullable(name string, args ...TypeRef) TypeRef {
	return TypeRef{BaseName: name, IsNullable: true, TypeArguments: args}
}

// Void returns the void return type.
func Void() TypeRef {
	return TypeRef{BaseName: TypeVoid, IsVoid: true}
}

// IsContainer reports whether the base name is a generic container.
func (t TypeRef) IsContainer() bool {
	return t.BaseName == TypeList || t.BaseName == TypeMap
}

// String renders the reference in the type-expression syntax accepted by
// ParseTypeRef, e.g. "Map<String?, List<int>>?".
func (t TypeRef) String() string {
	if t.IsVoid {
		return TypeVoid
	}
	var sb strings.Builder
	sb.WriteString(t.BaseName)
	if len(t.TypeArguments) > 0 {
		sb.WriteByte('<')
		for i, arg := range t.TypeArguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.String())
		}
		sb.WriteByte('>')
	}
	if t.IsNullable {
		sb.WriteByte('?')
	}
	return sb.String()
}

// ParseTypeRef parses a type expression.
//
// Grammar:
//
//	type := name [ "<" type { "," type } ">" ] [ "?" ]
//
// The name "void" yields a void reference and accepts no arguments or
// nullability marker.
func ParseTypeRef(s string) (TypeRef, error) {
	p := &typeParser{src: s}
	t, err := p.parseType()
	if err != nil {
		return TypeRef{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeRef{}, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

// MustParseTypeRef is like ParseTypeRef but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseTypeRef(s string) TypeRef {
	t, err := ParseTypeRef(s)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) errorf(format string, args ...any) error {
	return fmt.Errorf("type %q at offset %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *typeParser) parseType() (TypeRef, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	if start == p.pos {
		return TypeRef{}, p.errorf("expected type name")
	}
	name := p.src[start:p.pos]

	if name == TypeVoid {
		p.skipSpace()
		if c := p.peek(); c == '<' || c == '?' {
			return TypeRef{}, p.errorf("void takes no arguments or nullability")
		}
		return Void(), nil
	}

	t := TypeRef{BaseName: name}
	p.skipSpace()
	if p.peek() == '<' {
		p.pos++
		for {
			arg, err := p.parseType()
			if err != nil {
				return TypeRef{}, err
			}
			t.TypeArguments = append(t.TypeArguments, arg)
			p.skipSpace()
			switch p.peek() {
			case ',':
				p.pos++
				continue
			case '>':
				p.pos++
			default:
				return TypeRef{}, p.errorf("expected ',' or '>'")
			}
			break
		}
	}
	p.skipSpace()
	if p.peek() == '?' {
		p.pos++
		t.IsNullable = true
	}
	return t, nil
}
