// Package extract pulls named numeric results out of a live model object.
//
// Objects expose their fields through a Registry: a table from field name to
// accessor, built once per object type. A name with no accessor is skipped at
// extraction; the comparator reports it later as a one-sided key.
package extract

import (
	"fmt"
	"sort"

	"github.com/roach88/pvregress/internal/ir"
)

// Accessor reads one field from an object. Accessors that compute a value
// (a method call) and accessors that read stored state look the same here.
type Accessor[T any] func(obj T) (ir.IRValue, error)

// Registry maps field names to accessors for one object type.
type Registry[T any] struct {
	accessors map[string]Accessor[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{accessors: make(map[string]Accessor[T])}
}

// Register adds an accessor. Registering a name twice panics: registries are
// built at init time, so a duplicate is a programming error.
func (r *Registry[T]) Register(name string, fn Accessor[T]) *Registry[T] {
	if _, dup := r.accessors[name]; dup {
		panic(fmt.Sprintf("extract: duplicate accessor %q", name))
	}
	r.accessors[name] = fn
	return r
}

// Lookup returns the accessor for name.
func (r *Registry[T]) Lookup(name string) (Accessor[T], bool) {
	fn, ok := r.accessors[name]
	return fn, ok
}

// Names lists registered fields, sorted.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.accessors))
	for n := range r.accessors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Float adapts a float-valued getter.
func Float[T any](get func(T) float64) Accessor[T] {
	return func(obj T) (ir.IRValue, error) {
		return ir.IRFloat(get(obj)), nil
	}
}

// Int adapts an integer-valued getter.
func Int[T any](get func(T) int) Accessor[T] {
	return func(obj T) (ir.IRValue, error) {
		return ir.IRInt(int64(get(obj))), nil
	}
}

// String adapts a string-valued getter.
func String[T any](get func(T) string) Accessor[T] {
	return func(obj T) (ir.IRValue, error) {
		return ir.IRString(get(obj)), nil
	}
}

// Floats adapts a getter returning a numeric series.
func Floats[T any](get func(T) []float64) Accessor[T] {
	return func(obj T) (ir.IRValue, error) {
		return ir.NewFloatArray(get(obj)), nil
	}
}

// Computed adapts a getter that can fail, such as one that solves for a point
// on the curve.
func Computed[T any](get func(T) (float64, error)) Accessor[T] {
	return func(obj T) (ir.IRValue, error) {
		v, err := get(obj)
		if err != nil {
			return nil, err
		}
		return ir.IRFloat(v), nil
	}
}
