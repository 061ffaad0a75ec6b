// Package stages implements the Stage Adapter Registry (spec §4.7): the
// immutable map from stage name to Adapter the Manager drives, plus a
// minimal but runnable default implementation for each of the seven
// domain stages and the smartsheet integration adapter. The stages'
// internal logic is explicitly out of spec scope (spec §1); these
// defaults exist so the pipeline is runnable end-to-end in tests and the
// demo CLI rather than just wiring an interface nobody implements.
package stages

import (
	"context"
	"fmt"

	"goa.design/estimo/internal/state"
)

// Adapter is the contract every stage implements (spec §4.7): a pure
// function, from the adapter's viewpoint, over the state's plain
// representation.
type Adapter interface {
	// Name is the stage's unique identifier, matching the canonical
	// pipeline names used by the planner and manager.
	Name() string
	// RequiredInputField is the state field that must be populated before
	// this stage runs, or "" if the stage has no precondition.
	RequiredInputField() string
	// Invoke runs the stage over a plain representation of the state and
	// returns the mutated plain representation.
	Invoke(ctx context.Context, in state.Plain) (state.Plain, error)
}

// Registry is the immutable, post-construction stage lookup the Manager
// drives. Build one with NewRegistry; there is no mutator.
type Registry struct {
	byName map[string]Adapter
	order  []string
}

// NewRegistry constructs a Registry from a set of adapters. Registering two
// adapters under the same name is a construction-time error since the
// registry's immutability is only meaningful if names are unique.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{byName: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := r.byName[a.Name()]; exists {
			return nil, fmt.Errorf("stage %q registered more than once", a.Name())
		}
		r.byName[a.Name()] = a
		r.order = append(r.order, a.Name())
	}
	return r, nil
}

// Get returns the adapter registered under name, if any.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Names returns every registered stage name in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultRegistry builds a Registry with the minimal runnable
// implementation of all seven domain stages plus the smartsheet adapter
// (spec §4.7, §4.5 scenario 5).
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(
		NewSmartsheetAdapter(nil),
		NewParser(nil),
		NewTradeClassifier(),
		NewScopeExtractor(),
		NewTakeoff(),
		NewEstimator(),
		NewQAValidator(),
		NewExporter(),
	)
}
