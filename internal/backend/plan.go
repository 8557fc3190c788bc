package backend

import (
	"fmt"

	"github.com/xiaowei-guan/pigeon/channel"
	"github.com/xiaowei-guan/pigeon/internal/discriminant"
	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

// PlanOptions are the language-independent generation settings.
type PlanOptions struct {
	// Prefix is the channel name prefix. Empty means channel.DefaultPrefix.
	Prefix string
}

// Side is one end of the channels.
type Side int

const (
	// SideHost is the native platform.
	SideHost Side = iota
	// SideFlutter is the UI side.
	SideFlutter
)

// Plan is a Document with every wire-relevant decision made.
type Plan struct {
	Document    *ir.Document
	Fingerprint string
	Prefix      string
	Records     []Record
	Enums       []Enum
	Interfaces  []Interface

	table resolve.Table
}

// Field is a record field or method argument with its resolved type.
type Field struct {
	Name     string
	Type     ir.TypeRef
	Kind     resolve.Kind
	Resolved resolve.ResolvedType
}

// Record is a planned record declaration.
type Record struct {
	Name   string
	Fields []Field
}

// Enum is a planned enum declaration.
type Enum struct {
	Name    string
	Members []string
}

// Method is a planned interface method.
type Method struct {
	Name           string
	Channel        string
	Arguments      []Field
	Return         Field
	IsAsynchronous bool
	Dispatch       ir.Dispatch
}

// Interface is a planned interface with its codec discriminants.
type Interface struct {
	Name          string
	Role          ir.Role
	Methods       []Method
	Discriminants []discriminant.Entry
}

// ImplementedOn reports whether side implements the interface. The host
// implements receiver interfaces and Flutter implements caller interfaces.
func (i *Interface) ImplementedOn(side Side) bool {
	if side == SideHost {
		return i.Role == ir.RoleReceiver
	}
	return i.Role == ir.RoleCaller
}

// HasBackground reports whether any method runs off the serial context.
func (i *Interface) HasBackground() bool {
	for _, m := range i.Methods {
		if m.Dispatch == ir.DispatchBackground {
			return true
		}
	}
	return false
}

// Code returns the discriminant of record on this interface.
func (i *Interface) Code(record string) (uint8, bool) {
	return discriminant.Lookup(i.Discriminants, record)
}

// NewPlan resolves every type reference of doc against table, assigns
// discriminants per interface and names every channel.
func NewPlan(doc *ir.Document, table resolve.Table, opts PlanOptions) (*Plan, error) {
	if err := resolve.Check(doc); err != nil {
		return nil, err
	}
	fp, err := doc.Fingerprint()
	if err != nil {
		return nil, err
	}

	p := &Plan{
		Document:    doc,
		Fingerprint: fp,
		Prefix:      opts.Prefix,
		table:       table,
	}
	if p.Prefix == "" {
		p.Prefix = channel.DefaultPrefix
	}

	for _, rec := range doc.Records {
		fields, err := p.fields(rec.Name, rec.Fields)
		if err != nil {
			return nil, err
		}
		p.Records = append(p.Records, Record{Name: rec.Name, Fields: fields})
	}
	for _, e := range doc.Enums {
		p.Enums = append(p.Enums, Enum{Name: e.Name, Members: e.Members})
	}

	for i := range doc.Interfaces {
		iface := &doc.Interfaces[i]
		entries, err := discriminant.Assign(iface, doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", iface.Name, err)
		}
		planned := Interface{
			Name:          iface.Name,
			Role:          iface.Role,
			Discriminants: entries,
		}
		for _, m := range iface.Methods {
			where := iface.Name + "." + m.Name
			args, err := p.fields(where, m.Arguments)
			if err != nil {
				return nil, err
			}
			ret, err := p.field(where+" return", "", m.ReturnType)
			if err != nil {
				return nil, err
			}
			planned.Methods = append(planned.Methods, Method{
				Name:           m.Name,
				Channel:        channel.Name(p.Prefix, iface.Name, m.Name),
				Arguments:      args,
				Return:         ret,
				IsAsynchronous: m.IsAsynchronous,
				Dispatch:       m.Dispatch,
			})
		}
		p.Interfaces = append(p.Interfaces, planned)
	}
	return p, nil
}

func (p *Plan) fields(where string, in []ir.Field) ([]Field, error) {
	out := make([]Field, 0, len(in))
	for _, f := range in {
		pf, err := p.field(where+"."+f.Name, f.Name, f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, pf)
	}
	return out, nil
}

func (p *Plan) field(where, name string, ref ir.TypeRef) (Field, error) {
	rt, err := resolve.Resolve(ref, p.Document, p.table)
	if err != nil {
		return Field{}, fmt.Errorf("%s: %w", where, err)
	}
	return Field{Name: name, Type: ref, Kind: resolve.KindOf(ref, p.Document), Resolved: rt}, nil
}

// Type resolves a reference that occurs inside a planned type, such as a
// container's type argument. A reference that does not resolve panics with
// an *UnresolvedError, which Generate returns as an error.
func (p *Plan) Type(ref ir.TypeRef) string {
	rt, err := resolve.Resolve(ref, p.Document, p.table)
	if err != nil {
		panic(&UnresolvedError{Ref: ref.String(), Err: err})
	}
	return rt.Representation
}

// UnresolvedError reports a type reference a Plan could not resolve.
type UnresolvedError struct {
	Ref string
	Err error
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("plan: cannot resolve %s: %v", e.Ref, e.Err)
}

func (e *UnresolvedError) Unwrap() error {
	return e.Err
}

// Kind classifies ref against the planned document.
func (p *Plan) Kind(ref ir.TypeRef) resolve.Kind {
	return resolve.KindOf(ref, p.Document)
}

// Record returns the planned record named name.
func (p *Plan) Record(name string) (*Record, bool) {
	for i := range p.Records {
		if p.Records[i].Name == name {
			return &p.Records[i], true
		}
	}
	return nil, false
}

// Enum returns the planned enum named name.
func (p *Plan) Enum(name string) (*Enum, bool) {
	for i := range p.Enums {
		if p.Enums[i].Name == name {
			return &p.Enums[i], true
		}
	}
	return nil, false
}

// InterfacesOn returns the interfaces side implements (implemented true)
// or calls (implemented false), in declaration order.
func (p *Plan) InterfacesOn(side Side, implemented bool) []*Interface {
	var out []*Interface
	for i := range p.Interfaces {
		if p.Interfaces[i].ImplementedOn(side) == implemented {
			out = append(out, &p.Interfaces[i])
		}
	}
	return out
}
