package frontend

import (
	"fmt"
	"regexp"

	"github.com/xiaowei-guan/pigeon/internal/discriminant"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateDeclaration = "E201" // record, enum or interface name declared twice
	ErrDuplicateField       = "E202" // record field declared twice
	ErrDuplicateMember      = "E203" // enum member declared twice
	ErrEmptyEnum            = "E204" // enum without members
	ErrDuplicateMethod      = "E205" // interface method declared twice
	ErrDuplicateArgument    = "E206" // method argument declared twice
	ErrUnknownType          = "E207" // type reference resolves to nothing
	ErrTypeArity            = "E208" // wrong number of type arguments
	ErrMisplacedVoid        = "E209" // void outside a return type
	ErrInvalidName          = "E210" // name is not an identifier
	ErrBuiltinShadowed      = "E211" // declaration reuses a builtin name
	ErrTooManyRecords       = "E212" // interface exceeds the discriminant space
	ErrInvalidRole          = "E213" // interface role is not receiver or caller
)

// ValidationError is one problem found in a document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks doc and returns every problem found, in declaration
// order.
func Validate(doc *ir.Document) []ValidationError {
	v := &validator{doc: doc, declared: make(map[string]bool)}

	for _, rec := range doc.Records {
		v.declare("record "+rec.Name, rec.Name)
		seen := make(map[string]bool)
		for _, f := range rec.Fields {
			where := rec.Name + "." + f.Name
			v.name(where, f.Name)
			if seen[f.Name] {
				v.add(where, fmt.Sprintf("duplicate field %q", f.Name), ErrDuplicateField)
			}
			seen[f.Name] = true
			v.typ(where, f.Type, false)
		}
	}

	for _, e := range doc.Enums {
		v.declare("enum "+e.Name, e.Name)
		if len(e.Members) == 0 {
			v.add(e.Name, "enum must have at least one member", ErrEmptyEnum)
		}
		seen := make(map[string]bool)
		for _, m := range e.Members {
			v.name(e.Name+"."+m, m)
			if seen[m] {
				v.add(e.Name+"."+m, fmt.Sprintf("duplicate member %q", m), ErrDuplicateMember)
			}
			seen[m] = true
		}
	}

	for i := range doc.Interfaces {
		iface := &doc.Interfaces[i]
		v.declare("interface "+iface.Name, iface.Name)
		if iface.Role != ir.RoleReceiver && iface.Role != ir.RoleCaller {
			v.add(iface.Name, fmt.Sprintf("invalid role %s", iface.Role), ErrInvalidRole)
		}

		methods := make(map[string]bool)
		for _, m := range iface.Methods {
			where := iface.Name + "." + m.Name
			v.name(where, m.Name)
			if methods[m.Name] {
				v.add(where, fmt.Sprintf("duplicate method %q", m.Name), ErrDuplicateMethod)
			}
			methods[m.Name] = true

			v.typ(where+" return", m.ReturnType, true)
			args := make(map[string]bool)
			for _, a := range m.Arguments {
				aw := where + "(" + a.Name + ")"
				v.name(aw, a.Name)
				if args[a.Name] {
					v.add(aw, fmt.Sprintf("duplicate argument %q", a.Name), ErrDuplicateArgument)
				}
				args[a.Name] = true
				v.typ(aw, a.Type, false)
			}
		}

		if !v.unresolved {
			if _, err := discriminant.Assign(iface, doc); err != nil {
				v.add(iface.Name, err.Error(), ErrTooManyRecords)
			}
		}
	}

	return v.errs
}

type validator struct {
	doc        *ir.Document
	declared   map[string]bool
	unresolved bool
	errs       []ValidationError
}

func (v *validator) add(field, msg, code string) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: msg, Code: code})
}

func (v *validator) name(where, name string) {
	if !identifier.MatchString(name) {
		v.add(where, fmt.Sprintf("%q is not a valid identifier", name), ErrInvalidName)
	}
}

func (v *validator) declare(where, name string) {
	v.name(where, name)
	if resolve.IsBuiltin(name) || name == ir.TypeVoid {
		v.add(where, fmt.Sprintf("%q is a builtin type name", name), ErrBuiltinShadowed)
	}
	if v.declared[name] {
		v.add(where, fmt.Sprintf("%q is already declared", name), ErrDuplicateDeclaration)
	}
	v.declared[name] = true
}

func (v *validator) typ(where string, ref ir.TypeRef, isReturn bool) {
	if ref.IsVoid {
		if !isReturn {
			v.add(where, "void is only allowed as a return type", ErrMisplacedVoid)
		}
		return
	}
	resolve.Visit(ref, func(r ir.TypeRef) bool {
		if r.IsVoid || r.BaseName == ir.TypeVoid {
			v.add(where, "void cannot be a type argument", ErrMisplacedVoid)
			return false
		}
		if resolve.KindOf(r, v.doc) == resolve.KindUnknown {
			v.unresolved = true
			v.add(where, (&resolve.Error{Name: r.BaseName, Ref: ref.String()}).Error(), ErrUnknownType)
			return false
		}
		if n, arity := len(r.TypeArguments), resolve.Arity(r.BaseName); n != 0 && n != arity {
			v.add(where, fmt.Sprintf("%s takes %d type arguments, got %d", r.BaseName, arity, n), ErrTypeArity)
			return false
		}
		return true
	})
}
