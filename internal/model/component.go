package model

import (
	"github.com/roach88/pvregress/internal/curve"
)

// Component kinds.
const (
	KindCell  = "cell"
	KindGroup = "group"
)

// Component is a node of a circuit tree.
type Component interface {
	// Name labels the component.
	Name() string
	// Kind is KindCell or KindGroup.
	Kind() string

	// Invalidate drops cached curves in this subtree.
	Invalidate()
	// Recompute rebuilds cached curves in this subtree.
	Recompute() error
	// Curve returns the IV curve, recomputing it if stale. The slices are
	// shared with the cache and must not be modified.
	Curve() (curve.Curve, error)

	// SetSolver replaces the solver settings in this subtree and invalidates it.
	SetSolver(s Solver)
	// Solver returns the component's solver settings.
	Solver() Solver

	// CriticalFields lists the fields that define the component.
	CriticalFields() []string
	// Field returns a critical field's value.
	Field(name string) (any, bool)

	// Equal reports structural equality, ignoring caches and solver settings.
	Equal(other Component) bool
}

// CountCells returns the number of cells in the tree rooted at c.
func CountCells(c Component) int {
	g, ok := c.(*Group)
	if !ok {
		return 1
	}
	n := 0
	for _, m := range g.Members {
		n += CountCells(m)
	}
	return n
}

// TotalArea returns the summed cell area of the tree rooted at c.
func TotalArea(c Component) float64 {
	switch v := c.(type) {
	case *Cell:
		return v.Params.Area
	case *Group:
		sum := 0.0
		for _, m := range v.Members {
			sum += TotalArea(m)
		}
		return sum
	}
	return 0
}
