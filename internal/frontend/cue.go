package frontend

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// CompileError is a compilation error with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileString compiles one CUE source text. filename is used in error
// positions only.
func CompileString(src, filename string) (*ir.Document, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return Compile(v)
}

// Compile converts a CUE value holding top-level declaration groups into
// a Document.
func Compile(v cue.Value) (*ir.Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	doc := &ir.Document{}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		group := iter.Label()
		switch group {
		case "record":
			err = eachField(iter.Value(), func(name string, rv cue.Value) error {
				rec, err := compileRecord(name, rv)
				if err == nil {
					doc.Records = append(doc.Records, rec)
				}
				return err
			})
		case "enum":
			err = eachField(iter.Value(), func(name string, ev cue.Value) error {
				e, err := compileEnum(name, ev)
				if err == nil {
					doc.Enums = append(doc.Enums, e)
				}
				return err
			})
		case "host", "receiver", "flutter", "caller":
			role, _ := ir.ParseRole(group)
			err = eachField(iter.Value(), func(name string, iv cue.Value) error {
				iface, err := compileInterface(name, role, iv)
				if err == nil {
					doc.Interfaces = append(doc.Interfaces, iface)
				}
				return err
			})
		default:
			err = &CompileError{
				Field:   group,
				Message: "unknown declaration group (expected record, enum, host or flutter)",
				Pos:     iter.Value().Pos(),
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func eachField(v cue.Value, fn func(label string, v cue.Value) error) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func compileRecord(name string, v cue.Value) (ir.Record, error) {
	rec := ir.Record{Name: name}
	err := eachField(v, func(field string, fv cue.Value) error {
		ref, err := compileType("record."+name+"."+field, fv)
		if err != nil {
			return err
		}
		rec.Fields = append(rec.Fields, ir.Field{Name: field, Type: ref})
		return nil
	})
	return rec, err
}

func compileEnum(name string, v cue.Value) (ir.Enum, error) {
	e := ir.Enum{Name: name}
	iter, err := v.List()
	if err != nil {
		return e, &CompileError{Field: "enum." + name, Message: "must be a list of member names", Pos: v.Pos()}
	}
	for iter.Next() {
		member, err := iter.Value().String()
		if err != nil {
			return e, formatCUEError(err)
		}
		e.Members = append(e.Members, member)
	}
	return e, nil
}

func compileInterface(name string, role ir.Role, v cue.Value) (ir.Interface, error) {
	iface := ir.Interface{Name: name, Role: role}
	err := eachField(v, func(method string, mv cue.Value) error {
		m, err := compileMethod(name+"."+method, method, mv)
		if err == nil {
			iface.Methods = append(iface.Methods, m)
		}
		return err
	})
	return iface, err
}

func compileMethod(where, name string, v cue.Value) (ir.Method, error) {
	m := ir.Method{Name: name, ReturnType: ir.Void()}

	err := eachField(v, func(key string, kv cue.Value) error {
		switch key {
		case "args":
			args, err := compileArgs(where, kv)
			m.Arguments = args
			return err
		case "returns":
			ref, err := compileType(where+".returns", kv)
			m.ReturnType = ref
			return err
		case "async":
			b, err := kv.Bool()
			if err != nil {
				return formatCUEError(err)
			}
			m.IsAsynchronous = b
		case "background":
			b, err := kv.Bool()
			if err != nil {
				return formatCUEError(err)
			}
			if b {
				m.Dispatch = ir.DispatchBackground
			}
		default:
			return &CompileError{
				Field:   where + "." + key,
				Message: "unknown method option (expected args, returns, async or background)",
				Pos:     kv.Pos(),
			}
		}
		return nil
	})
	return m, err
}

// compileArgs reads an ordered list of single-field structs, e.g.
// [{request: "SearchRequest"}, {limit: "int?"}].
func compileArgs(where string, v cue.Value) ([]ir.Field, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: where + ".args", Message: "must be a list", Pos: v.Pos()}
	}
	var args []ir.Field
	for i := 0; iter.Next(); i++ {
		var fields []ir.Field
		err := eachField(iter.Value(), func(name string, tv cue.Value) error {
			ref, err := compileType(fmt.Sprintf("%s.args[%d].%s", where, i, name), tv)
			if err == nil {
				fields = append(fields, ir.Field{Name: name, Type: ref})
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(fields) != 1 {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s.args[%d]", where, i),
				Message: "each argument must be a single {name: type} entry",
				Pos:     iter.Value().Pos(),
			}
		}
		args = append(args, fields[0])
	}
	return args, nil
}

func compileType(where string, v cue.Value) (ir.TypeRef, error) {
	s, err := v.String()
	if err != nil {
		return ir.TypeRef{}, &CompileError{Field: where, Message: "type must be a string", Pos: v.Pos()}
	}
	ref, err := ir.ParseTypeRef(s)
	if err != nil {
		return ir.TypeRef{}, &CompileError{Field: where, Message: err.Error(), Pos: v.Pos()}
	}
	return ref, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
