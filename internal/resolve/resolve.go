package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// ResolvedType is the target representation of a type reference.
type ResolvedType struct {
	Representation string
	IsBuiltIn      bool
}

// Table is a backend's builtin type table.
//
// Builtins maps every canonical builtin base name to its representation.
// Container entries are templates with one %s per type argument, e.g.
// "Map<%s, %s>". Every table covers the same key set, so whether a
// reference is builtin never depends on the backend.
type Table struct {
	Builtins map[string]string

	// Void is the representation of a void return type.
	Void string

	// Custom renders a declared record or enum name. Nil keeps the name.
	Custom func(name string) string

	// Nullable wraps a representation for a nullable reference. Nil keeps
	// the representation.
	Nullable func(repr string) string
}

// Validate checks that the table covers the canonical builtin vocabulary
// and that container templates take the right number of arguments.
func (t Table) Validate() error {
	for _, name := range ir.BuiltinNames {
		tmpl, ok := t.Builtins[name]
		if !ok {
			return fmt.Errorf("builtin table missing %q", name)
		}
		if got, want := strings.Count(tmpl, "%s"), Arity(name); got != want {
			return fmt.Errorf("builtin %q template %q has %d placeholders, want %d", name, tmpl, got, want)
		}
	}
	for name := range t.Builtins {
		if !IsBuiltin(name) {
			return fmt.Errorf("builtin table has non-canonical entry %q", name)
		}
	}
	return nil
}

// Error reports a type reference that matches neither a builtin nor a
// declared record or enum.
type Error struct {
	// Name is the unresolved base name.
	Name string

	// Ref is the full reference the name appeared in.
	Ref string
}

func (e *Error) Error() string {
	if e.Ref != "" && e.Ref != e.Name {
		return fmt.Sprintf("unknown type %q in %q", e.Name, e.Ref)
	}
	return fmt.Sprintf("unknown type %q", e.Name)
}

// Resolve maps ref to its representation in table.
//
//  1. A builtin base name resolves through the table, IsBuiltIn = true.
//  2. A declared record or enum resolves to its custom name,
//     IsBuiltIn = false.
//  3. Anything else resolves to the base name verbatim and returns *Error.
//
// Type arguments resolve recursively and the first error is returned with
// the representation built so far.
func Resolve(ref ir.TypeRef, doc *ir.Document, table Table) (ResolvedType, error) {
	rt, err := resolve(ref, doc, table)
	var re *Error
	if errors.As(err, &re) && re.Ref == "" {
		re.Ref = ref.String()
	}
	return rt, err
}

func resolve(ref ir.TypeRef, doc *ir.Document, table Table) (ResolvedType, error) {
	var (
		rt       ResolvedType
		firstErr error
	)

	switch KindOf(ref, doc) {
	case KindVoid:
		return ResolvedType{Representation: table.Void, IsBuiltIn: true}, nil

	case KindBuiltin:
		tmpl, ok := table.Builtins[ref.BaseName]
		if !ok {
			return ResolvedType{Representation: ref.BaseName}, &Error{Name: ref.BaseName}
		}
		rt.IsBuiltIn = true
		args := TypeArguments(ref)
		if len(args) == 0 {
			rt.Representation = tmpl
			break
		}
		reprs := make([]any, len(args))
		for i, arg := range args {
			inner, err := resolve(arg, doc, table)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			reprs[i] = inner.Representation
		}
		rt.Representation = fmt.Sprintf(tmpl, reprs...)

	case KindRecord, KindEnum:
		rt.Representation = ref.BaseName
		if table.Custom != nil {
			rt.Representation = table.Custom(ref.BaseName)
		}

	default:
		return ResolvedType{Representation: ref.BaseName}, &Error{Name: ref.BaseName}
	}

	if ref.IsNullable && table.Nullable != nil {
		rt.Representation = table.Nullable(rt.Representation)
	}
	return rt, firstErr
}

// Check resolves every type reference in doc against the canonical
// vocabulary and returns the first unresolved one.
func Check(doc *ir.Document) error {
	check := func(where string, ref ir.TypeRef) error {
		var bad *Error
		Visit(ref, func(r ir.TypeRef) bool {
			if bad == nil && KindOf(r, doc) == KindUnknown {
				bad = &Error{Name: r.BaseName, Ref: ref.String()}
			}
			return bad == nil
		})
		if bad != nil {
			return fmt.Errorf("%s: %w", where, bad)
		}
		return nil
	}

	for _, rec := range doc.Records {
		for _, f := range rec.Fields {
			if err := check(rec.Name+"."+f.Name, f.Type); err != nil {
				return err
			}
		}
	}
	for _, iface := range doc.Interfaces {
		for _, m := range iface.Methods {
			where := iface.Name + "." + m.Name
			if err := check(where+" return", m.ReturnType); err != nil {
				return err
			}
			for _, a := range m.Arguments {
				if err := check(where+"("+a.Name+")", a.Type); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
