package model

import (
	"fmt"
	"sort"

	"github.com/roach88/pvregress/internal/curve"
)

// Topology is how a group connects its members.
type Topology string

const (
	Series   Topology = "series"
	Parallel Topology = "parallel"
)

// ParseTopology validates a topology name.
func ParseTopology(s string) (Topology, error) {
	switch Topology(s) {
	case Series, Parallel:
		return Topology(s), nil
	}
	return "", fmt.Errorf("unknown topology %q (want series or parallel)", s)
}

// Group is a set of components connected in series or in parallel.
type Group struct {
	name     string
	Topology Topology
	Members  []Component

	solver Solver
	iv     *curve.Curve
}

// NewGroup creates a group. Members take on the group's solver settings.
func NewGroup(name string, topology Topology, members []Component, solver Solver) (*Group, error) {
	if _, err := ParseTopology(string(topology)); err != nil {
		return nil, fmt.Errorf("group %s: %w", name, err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("group %s: no members", name)
	}
	g := &Group{name: name, Topology: topology, Members: members}
	g.SetSolver(solver)
	return g, nil
}

// Name implements Component.
func (g *Group) Name() string { return g.name }

// Kind implements Component.
func (g *Group) Kind() string { return KindGroup }

// Solver implements Component.
func (g *Group) Solver() Solver { return g.solver }

// SetSolver implements Component.
func (g *Group) SetSolver(s Solver) {
	g.solver = s
	g.iv = nil
	for _, m := range g.Members {
		m.SetSolver(s)
	}
}

// Invalidate implements Component.
func (g *Group) Invalidate() {
	g.iv = nil
	for _, m := range g.Members {
		m.Invalidate()
	}
}

// Recompute implements Component.
func (g *Group) Recompute() error {
	if g.iv != nil {
		return nil
	}

	curves := make([]curve.Curve, len(g.Members))
	for k, m := range g.Members {
		c, err := m.Curve()
		if err != nil {
			return fmt.Errorf("group %s member %d: %w", g.name, k, err)
		}
		curves[k] = c
	}

	var iv curve.Curve
	switch g.Topology {
	case Series:
		// Members share a current; voltages add.
		is, vs, err := combine(curves, byCurrent, g.solver.MaxPoints)
		if err != nil {
			return fmt.Errorf("group %s: %w", g.name, err)
		}
		iv = curve.Curve{V: vs, I: is}
	case Parallel:
		// Members share a voltage; currents add.
		vs, is, err := combine(curves, byVoltage, g.solver.MaxPoints)
		if err != nil {
			return fmt.Errorf("group %s: %w", g.name, err)
		}
		iv = curve.Curve{V: vs, I: is}
	default:
		return fmt.Errorf("group %s: unknown topology %q", g.name, g.Topology)
	}

	g.iv = &iv
	return nil
}

// Curve implements Component.
func (g *Group) Curve() (curve.Curve, error) {
	if err := g.Recompute(); err != nil {
		return curve.Curve{}, err
	}
	return *g.iv, nil
}

func byCurrent(c curve.Curve) ([]float64, []float64) { return c.I, c.V }

func byVoltage(c curve.Curve) ([]float64, []float64) { return c.V, c.I }

// combine resamples every curve onto a shared abscissa and sums the
// ordinates. The shared grid is the union of the members' abscissae inside
// the range all members cover, thinned to at most maxPoints.
func combine(curves []curve.Curve, axes func(curve.Curve) ([]float64, []float64), maxPoints int) ([]float64, []float64, error) {
	var lo, hi float64
	interps := make([]*curve.Interpolator, len(curves))
	var grid []float64

	for k, c := range curves {
		xs, ys := axes(c)
		in, err := curve.NewInterpolator(xs, ys)
		if err != nil {
			return nil, nil, err
		}
		interps[k] = in

		cmin, cmax := bounds(xs)
		if k == 0 || cmin > lo {
			lo = cmin
		}
		if k == 0 || cmax < hi {
			hi = cmax
		}
		grid = append(grid, xs...)
	}
	if lo > hi {
		return nil, nil, fmt.Errorf("member curves share no common range")
	}

	grid = thin(uniqueInRange(grid, lo, hi), maxPoints)

	sum := make([]float64, len(grid))
	for k, x := range grid {
		for _, in := range interps {
			sum[k] += in.At(x)
		}
	}
	return grid, sum, nil
}

func bounds(xs []float64) (float64, float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

func uniqueInRange(xs []float64, lo, hi float64) []float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	out := sorted[:0]
	for _, x := range sorted {
		if x < lo || x > hi {
			continue
		}
		if n := len(out); n > 0 && out[n-1] == x {
			continue
		}
		out = append(out, x)
	}
	return out
}

// thin keeps at most max points, always including both ends.
func thin(xs []float64, max int) []float64 {
	if max < 2 || len(xs) <= max {
		return xs
	}
	out := make([]float64, max)
	for k := 0; k < max; k++ {
		out[k] = xs[k*(len(xs)-1)/(max-1)]
	}
	return out
}

var groupFields = []string{"name", "topology", "members"}

// CriticalFields implements Component.
func (g *Group) CriticalFields() []string { return groupFields }

// Field implements Component.
func (g *Group) Field(name string) (any, bool) {
	switch name {
	case "name":
		return g.name, true
	case "topology":
		return string(g.Topology), true
	case "members":
		return g.Members, true
	}
	return nil, false
}

// Equal implements Component.
func (g *Group) Equal(other Component) bool {
	o, ok := other.(*Group)
	if !ok || o == nil {
		return false
	}
	if g.name != o.name || g.Topology != o.Topology || len(g.Members) != len(o.Members) {
		return false
	}
	for k := range g.Members {
		if !g.Members[k].Equal(o.Members[k]) {
			return false
		}
	}
	return true
}

func (g *Group) String() string {
	return fmt.Sprintf("%s group %s (%d members)", g.Topology, g.name, len(g.Members))
}
