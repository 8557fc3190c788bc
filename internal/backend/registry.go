package backend

import (
	"fmt"
	"strings"
)

// Registry holds the available backends in registration order.
type Registry struct {
	backends []Backend
}

// NewRegistry returns a registry of bs. Names must be unique.
func NewRegistry(bs ...Backend) *Registry {
	r := &Registry{}
	for _, b := range bs {
		r.Register(b)
	}
	return r
}

// Register adds b. It panics on a duplicate name.
func (r *Registry) Register(b Backend) {
	if _, ok := r.Get(b.Name()); ok {
		panic(fmt.Sprintf("backend %q registered twice", b.Name()))
	}
	r.backends = append(r.backends, b)
}

// Get returns the backend named name.
func (r *Registry) Get(name string) (Backend, bool) {
	for _, b := range r.backends {
		if b.Name() == name {
			return b, true
		}
	}
	return nil, false
}

// Names returns the registered backend names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.backends))
	for i, b := range r.backends {
		names[i] = b.Name()
	}
	return names
}

// Select returns the backends named in names, in registration order. An
// empty selection means all of them.
func (r *Registry) Select(names []string) ([]Backend, error) {
	if len(names) == 0 {
		return append([]Backend(nil), r.backends...), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.Get(n); !ok {
			return nil, fmt.Errorf("unknown backend %q (available: %s)", n, strings.Join(r.Names(), ", "))
		}
		want[n] = true
	}
	var out []Backend
	for _, b := range r.backends {
		if want[b.Name()] {
			out = append(out, b)
		}
	}
	return out, nil
}
