// Package backend defines the contract every target-language emitter
// implements.
//
// The language-independent work (type resolution, discriminant assignment
// and channel naming) happens once in NewPlan. A Backend only formats the
// Plan into source files, so two backends given the same Document agree on
// every wire-relevant decision.
package backend

import (
	"fmt"

	"github.com/xiaowei-guan/pigeon/internal/ir"
	"github.com/xiaowei-guan/pigeon/internal/resolve"
)

// Backend is implemented by every code generation target.
type Backend interface {
	// Name returns the backend name (e.g., "dart", "kotlin", "go").
	Name() string

	// Builtins returns the backend's builtin type table.
	Builtins() resolve.Table

	// Generate formats plan into source files.
	Generate(plan *Plan, opts Options) ([]File, error)
}

// Options are per-backend output settings.
type Options struct {
	// Package is the target package or namespace, if the language has one.
	Package string

	// Out is the output file name. Empty selects the backend's default.
	Out string

	// CopyrightHeader is emitted as a comment above the generated header.
	CopyrightHeader []string
}

// File is one generated source file.
type File struct {
	Path    string
	Content []byte
}

// Generate validates b's builtin table, plans doc for it and runs the
// backend.
func Generate(b Backend, doc *ir.Document, planOpts PlanOptions, opts Options) ([]File, error) {
	table := b.Builtins()
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%s backend: %w", b.Name(), err)
	}
	plan, err := NewPlan(doc, table, planOpts)
	if err != nil {
		return nil, err
	}
	files, err := generate(b, plan, opts)
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", b.Name(), err)
	}
	return files, nil
}

// generate runs b, recovering an unresolved reference met while emitting.
func generate(b Backend, plan *Plan, opts Options) (files []File, err error) {
	defer func() {
		if r := recover(); r != nil {
			ue, ok := r.(*UnresolvedError)
			if !ok {
				panic(r)
			}
			files, err = nil, ue
		}
	}()
	return b.Generate(plan, opts)
}
