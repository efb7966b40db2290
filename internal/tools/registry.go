// Package tools defines the tool catalog the planner can invoke and the
// dispatcher that validates and executes those invocations.
package tools

import (
	"context"
	"fmt"

	"makwenta.app/finance-assistant/internal/core"
)

// Handler executes a tool with fully validated and injected arguments.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Tool pairs a declared schema with its implementation. Mutating tools
// write to the ledger store; read tools must not.
type Tool struct {
	Spec     core.ToolSpec
	Mutating bool
	Handler  Handler
}

// Registry is the fixed catalog of named tools. Registration happens once
// at startup; lookups after that are read-only and safe for concurrent use.
type Registry struct {
	tools map[string]*Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool to the catalog. Registering the same name twice is a
// wiring bug, so it panics rather than silently shadowing.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Spec.Name]; exists {
		panic(fmt.Sprintf("tool %q registered twice", t.Spec.Name))
	}
	r.tools[t.Spec.Name] = t
	r.order = append(r.order, t.Spec.Name)
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Catalog returns the tool specs in registration order, for the planner.
func (r *Registry) Catalog() []core.ToolSpec {
	specs := make([]core.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec)
	}
	return specs
}
