package ir

import (
	"encoding/json"
	"fmt"
)

// Document is the complete IR produced by a front end.
type Document struct {
	Records    []Record    `json:"records"`
	Enums      []Enum      `json:"enums"`
	Interfaces []Interface `json:"interfaces"`
}

// Record is a structured message payload. Field order is significant and
// must be identical across encode and decode.
type Record struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Enum is an enumeration whose wire value is the zero-based declaration
// index of a member. Renaming a member is safe, reordering is not.
type Enum struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Field is a named, typed slot. Used both as a record member and as a
// method parameter.
type Field struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
}

// Interface is a named set of methods exposed over channels.
type Interface struct {
	Name    string   `json:"name"`
	Role    Role     `json:"role"`
	Methods []Method `json:"methods"`
}

// Method is one callable operation of an interface.
type Method struct {
	Name           string   `json:"name"`
	Arguments      []Field  `json:"arguments"`
	ReturnType     TypeRef  `json:"return_type"`
	IsAsynchronous bool     `json:"is_asynchronous,omitempty"`
	Dispatch       Dispatch `json:"dispatch,omitempty"`
}

// Role tags which side of a channel implements an interface.
//
// The two roles have disjoint operation sets: receiver interfaces register
// handlers, caller interfaces send requests. Consumers switch on the tag.
type Role int

const (
	// RoleReceiver interfaces are implemented by the host and invoked by the
	// other side.
	RoleReceiver Role = iota + 1
	// RoleCaller interfaces invoke the other side and await one reply.
	RoleCaller
)

// String returns the canonical role name.
func (r Role) String() string {
	switch r {
	case RoleReceiver:
		return "receiver"
	case RoleCaller:
		return "caller"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole maps a role name to a Role. "host" and "flutter" are accepted
// as aliases for receiver and caller.
func ParseRole(s string) (Role, error) {
	switch s {
	case "receiver", "host":
		return RoleReceiver, nil
	case "caller", "flutter":
		return RoleCaller, nil
	default:
		return 0, fmt.Errorf("unknown role %q: must be receiver or caller", s)
	}
}

// MarshalJSON encodes the role by name.
func (r Role) MarshalJSON() ([]byte, error) {
	if r != RoleReceiver && r != RoleCaller {
		return nil, fmt.Errorf("cannot marshal invalid role %d", int(r))
	}
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a role name.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Dispatch selects the receiver-side execution context of a method.
type Dispatch int

const (
	// DispatchSerial runs the handler on the interface's shared ordered
	// execution context. It is the zero value.
	DispatchSerial Dispatch = iota
	// DispatchBackground runs the handler off the serial context.
	DispatchBackground
)

// String returns the canonical dispatch name.
func (d Dispatch) String() string {
	if d == DispatchBackground {
		return "background"
	}
	return "serial"
}

// ParseDispatch maps a dispatch name to a Dispatch. Empty means serial.
func ParseDispatch(s string) (Dispatch, error) {
	switch s {
	case "", "serial":
		return DispatchSerial, nil
	case "background":
		return DispatchBackground, nil
	default:
		return 0, fmt.Errorf("unknown dispatch %q: must be serial or background", s)
	}
}

// MarshalJSON encodes the dispatch hint by name.
func (d Dispatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a dispatch name.
func (d *Dispatch) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseDispatch(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Record returns the record declared with name, if any.
func (d *Document) Record(name string) (*Record, bool) {
	for i := range d.Records {
		if d.Records[i].Name == name {
			return &d.Records[i], true
		}
	}
	return nil, false
}

// Enum returns the enum declared with name, if any.
func (d *Document) Enum(name string) (*Enum, bool) {
	for i := range d.Enums {
		if d.Enums[i].Name == name {
			return &d.Enums[i], true
		}
	}
	return nil, false
}

// Interface returns the interface declared with name, if any.
func (d *Document) Interface(name string) (*Interface, bool) {
	for i := range d.Interfaces {
		if d.Interfaces[i].Name == name {
			return &d.Interfaces[i], true
		}
	}
	return nil, false
}

// Method returns the method declared with name, if any.
func (i *Interface) Method(name string) (*Method, bool) {
	for j := range i.Methods {
		if i.Methods[j].Name == name {
			return &i.Methods[j], true
		}
	}
	return nil, false
}

// Index returns the zero-based wire value of member, or -1.
func (e *Enum) Index(member string) int {
	for i, m := range e.Members {
		if m == member {
			return i
		}
	}
	return -1
}
