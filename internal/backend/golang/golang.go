// Package golang emits host-side Go bindings over the channel and codec
// packages.
package golang

import (
	"fmt"
	"go/format"
	"strings"

	"github.com/xiaowei-guan/pigeon/internal/backend"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

const (
	defaultPackage = "messages"
	defaultOut     = "messages.g.go"

	channelImport = "github.com/xiaowei-guan/pigeon/channel"
	codecImport   = "github.com/xiaowei-guan/pigeon/codec"
)

// Backend is the Go target.
type Backend struct{}

// New returns the Go backend.
func New() *Backend {
	return &Backend{}
}

// Name returns "go".
func (b *Backend) Name() string {
	return "go"
}

// Builtins returns the Go type table. Nullable scalars, enums and records
// are pointers; slices, maps and codec.Value use nil for absent.
func (b *Backend) Builtins() resolve.Table {
	return resolve.Table{
		Builtins: map[string]string{
			ir.TypeBool:        "bool",
			ir.TypeInt:         "int64",
			ir.TypeDouble:      "float64",
			ir.TypeString:      "string",
			ir.TypeUint8List:   "[]byte",
			ir.TypeInt32List:   "[]int32",
			ir.TypeInt64List:   "[]int64",
			ir.TypeFloat64List: "[]float64",
			ir.TypeList:        "[]%s",
			ir.TypeMap:         "map[%s]%s",
			ir.TypeObject:      "codec.Value",
		},
		Custom: backend.Upper,
		Nullable: func(repr string) string {
			if nilable(repr) {
				return repr
			}
			return "*" + repr
		},
	}
}

func nilable(repr string) bool {
	return strings.HasPrefix(repr, "[]") || strings.HasPrefix(repr, "map[") ||
		strings.HasPrefix(repr, "*") || repr == "codec.Value"
}

// Generate emits one gofmt-formatted source file.
func (b *Backend) Generate(plan *backend.Plan, opts backend.Options) ([]backend.File, error) {
	if err := checkMapKeys(plan); err != nil {
		return nil, err
	}

	pkg := opts.Package
	if pkg == "" {
		pkg = defaultPackage
	}
	out := opts.Out
	if out == "" {
		out = defaultOut
	}

	g := &generator{plan: plan, w: backend.NewWriter("\t")}
	g.file(pkg, opts)

	src, err := format.Source(g.w.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", out, err)
	}
	return []backend.File{{Path: out, Content: src}}, nil
}

// checkMapKeys rejects map key types that are not comparable in Go.
func checkMapKeys(plan *backend.Plan) error {
	var bad error
	check := func(where string, ref ir.TypeRef) {
		resolve.Visit(ref, func(r ir.TypeRef) bool {
			if bad != nil {
				return false
			}
			if r.BaseName == ir.TypeMap && len(r.TypeArguments) > 0 {
				key := r.TypeArguments[0]
				if !comparableKey(plan, key) {
					bad = fmt.Errorf("%s: map key type %s is not comparable in Go", where, key)
				}
			}
			return true
		})
	}
	for _, rec := range plan.Records {
		for _, f := range rec.Fields {
			check(rec.Name+"."+f.Name, f.Type)
		}
	}
	for _, iface := range plan.Interfaces {
		for _, m := range iface.Methods {
			check(iface.Name+"."+m.Name, m.Return.Type)
			for _, a := range m.Arguments {
				check(iface.Name+"."+m.Name+"("+a.Name+")", a.Type)
			}
		}
	}
	return bad
}

func comparableKey(plan *backend.Plan, key ir.TypeRef) bool {
	switch plan.Kind(key) {
	case resolve.KindEnum:
		return !key.IsNullable
	case resolve.KindBuiltin:
		switch key.BaseName {
		case ir.TypeBool, ir.TypeInt, ir.TypeDouble, ir.TypeString:
			return !key.IsNullable
		case ir.TypeObject:
			return true
		}
	}
	return false
}

type generator struct {
	plan *backend.Plan
	w    *backend.Writer
}

func (g *generator) file(pkg string, opts backend.Options) {
	w := g.w
	w.Line("// Code generated by pigeon. DO NOT EDIT.")
	w.Header("//", g.plan, opts)
	w.Line("")
	w.Linef("package %s", pkg)
	w.Line("")

	callers := g.plan.InterfacesOn(backend.SideHost, false)
	receivers := g.plan.InterfacesOn(backend.SideHost, true)

	w.Line("import (")
	w.In()
	if len(callers) > 0 {
		w.Line(`"context"`)
	}
	w.Line(`"fmt"`)
	w.Line("")
	if len(g.plan.Interfaces) > 0 {
		w.Line(backend.Quote(channelImport))
	}
	w.Line(backend.Quote(codecImport))
	w.Out()
	w.Line(")")

	for _, e := range g.plan.Enums {
		w.Line("")
		g.enum(e)
	}
	for _, rec := range g.plan.Records {
		w.Line("")
		g.record(rec)
	}
	for i := range g.plan.Interfaces {
		w.Line("")
		g.codecVar(&g.plan.Interfaces[i])
	}
	for _, iface := range receivers {
		w.Line("")
		g.receiver(iface)
	}
	for _, iface := range callers {
		w.Line("")
		g.caller(iface)
	}
	w.Line("")
	w.Line(strings.TrimSpace(helpers))
}

func (g *generator) enum(e backend.Enum) {
	w := g.w
	name := backend.Upper(e.Name)
	w.Linef("// %s is carried on the wire as its member index.", name)
	w.Linef("type %s int", name)
	w.Line("")
	if len(e.Members) > 0 {
		w.Block("const (", ")", func() {
			for i, m := range e.Members {
				w.Linef("%s%s %s = %d", name, backend.Upper(m), name, i)
			}
		})
		w.Line("")
	}
	w.Linef("func decode%s(v codec.Value) (%s, error) {", name, name)
	w.In()
	w.Line("n, ok := v.(codec.Int)")
	w.Block("if !ok {", "}", func() {
		w.Linef("return 0, pigeonTypeError(%s, v)", backend.Quote(e.Name))
	})
	w.Linef("if n < 0 || n >= %d {", len(e.Members))
	w.In()
	w.Linef(`return 0, fmt.Errorf("%s index %%d out of range", n)`, e.Name)
	w.Out()
	w.Line("}")
	w.Linef("return %s(n), nil", name)
	w.Out()
	w.Line("}")
}

func (g *generator) record(rec backend.Record) {
	w := g.w
	name := backend.Upper(rec.Name)

	w.Linef("// %s is a generated record.", name)
	w.Block(fmt.Sprintf("type %s struct {", name), "}", func() {
		for _, f := range rec.Fields {
			w.Linef("%s %s", backend.Upper(f.Name), f.Resolved.Representation)
		}
	})

	w.Line("")
	w.Linef("func (r %s) encode() codec.Map {", name)
	w.In()
	if len(rec.Fields) == 0 {
		w.Line("return codec.Map{}")
	} else {
		w.Block("return codec.Map{", "}", func() {
			for _, f := range rec.Fields {
				w.Linef("codec.E(%s, %s),", backend.Quote(f.Name), g.enc(f.Type, "r."+backend.Upper(f.Name), nil))
			}
		})
	}
	w.Out()
	w.Line("}")

	w.Line("")
	w.Linef("func decode%s(v codec.Value) (%s, error) {", name, name)
	w.In()
	w.Linef("var r %s", name)
	if len(rec.Fields) == 0 {
		w.Block("if _, ok := v.(codec.Map); !ok {", "}", func() {
			w.Linef("return r, pigeonTypeError(%s, v)", backend.Quote(rec.Name))
		})
		w.Line("return r, nil")
		w.Out()
		w.Line("}")
		return
	}
	w.Line("m, ok := v.(codec.Map)")
	w.Block("if !ok {", "}", func() {
		w.Linef("return r, pigeonTypeError(%s, v)", backend.Quote(rec.Name))
	})
	for _, f := range rec.Fields {
		where := rec.Name + "." + f.Name
		w.Block("{", "}", func() {
			w.Linef("raw, _ := m.Get(%s)", backend.Quote(f.Name))
			if !f.Type.IsNullable {
				w.Block("if codec.IsNull(raw) {", "}", func() {
					w.Linef(`return r, fmt.Errorf("%s: non-nullable field is absent")`, where)
				})
			}
			w.Linef("field, err := %s(raw)", g.dec(f.Type, nil))
			w.Block("if err != nil {", "}", func() {
				w.Linef(`return r, fmt.Errorf("%s: %%w", err)`, where)
			})
			w.Linef("r.%s = field", backend.Upper(f.Name))
		})
	}
	w.Line("return r, nil")
	w.Out()
	w.Line("}")
}

func (g *generator) codecVar(iface *backend.Interface) {
	codes := make([]string, len(iface.Discriminants))
	for i, e := range iface.Discriminants {
		codes[i] = fmt.Sprint(e.Code)
	}
	g.w.Linef("var %s = codec.NewStandard(%s)", codecName(iface), strings.Join(codes, ", "))
}

func codecName(iface *backend.Interface) string {
	return backend.Lower(iface.Name) + "Codec"
}
