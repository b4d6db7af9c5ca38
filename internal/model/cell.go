package model

import (
	"fmt"
	"math"

	"github.com/roach88/pvregress/internal/curve"
)

// CellParams are the double-diode parameters of a cell. Currents are in
// amperes for the whole cell, resistances in ohms, area in cm².
type CellParams struct {
	IL     float64 `yaml:"IL"`
	I01    float64 `yaml:"I01"`
	I02    float64 `yaml:"I02"`
	Rshunt float64 `yaml:"Rshunt"`
	Rs     float64 `yaml:"Rs"`
	Area   float64 `yaml:"area"`
}

// Check validates the parameters.
func (p CellParams) Check() error {
	switch {
	case p.IL < 0:
		return fmt.Errorf("IL must be non-negative, got %g", p.IL)
	case p.I01 <= 0:
		return fmt.Errorf("I01 must be positive, got %g", p.I01)
	case p.I02 < 0:
		return fmt.Errorf("I02 must be non-negative, got %g", p.I02)
	case p.Rshunt <= 0:
		return fmt.Errorf("Rshunt must be positive, got %g", p.Rshunt)
	case p.Rs < 0:
		return fmt.Errorf("Rs must be non-negative, got %g", p.Rs)
	case p.Area <= 0:
		return fmt.Errorf("area must be positive, got %g", p.Area)
	}
	return nil
}

// Cell is a single double-diode solar cell.
type Cell struct {
	name   string
	Params CellParams

	solver Solver
	iv     *curve.Curve
}

// NewCell creates a cell.
func NewCell(name string, params CellParams, solver Solver) (*Cell, error) {
	if err := params.Check(); err != nil {
		return nil, fmt.Errorf("cell %s: %w", name, err)
	}
	return &Cell{name: name, Params: params, solver: solver}, nil
}

// Name implements Component.
func (c *Cell) Name() string { return c.name }

// Kind implements Component.
func (c *Cell) Kind() string { return KindCell }

// Solver implements Component.
func (c *Cell) Solver() Solver { return c.solver }

// SetSolver implements Component.
func (c *Cell) SetSolver(s Solver) {
	c.solver = s
	c.iv = nil
}

// Invalidate implements Component.
func (c *Cell) Invalidate() { c.iv = nil }

// Recompute implements Component.
func (c *Cell) Recompute() error {
	if c.iv != nil {
		return nil
	}
	if err := c.solver.Check(); err != nil {
		return err
	}

	p := c.Params
	vt := c.solver.ThermalVoltage()
	current := func(vj float64) float64 {
		return p.IL - p.I01*math.Expm1(vj/vt) - p.I02*math.Expm1(vj/(2*vt)) - vj/p.Rshunt
	}

	vocj := junctionVoc(current, vt)
	span := math.Max(vocj, 10*vt)
	lo, hi := -0.1*span, vocj+0.1*span

	n := c.solver.GridPoints
	iv := curve.Curve{V: make([]float64, n), I: make([]float64, n)}
	for k := 0; k < n; k++ {
		vj := lo + (hi-lo)*float64(k)/float64(n-1)
		i := current(vj)
		iv.V[k] = vj - i*p.Rs
		iv.I[k] = i
	}
	c.iv = &iv
	return nil
}

// junctionVoc solves current(vj) = 0 by bisection. current is decreasing
// in vj and current(0) = IL >= 0.
func junctionVoc(current func(float64) float64, vt float64) float64 {
	if current(0) <= 0 {
		return 0
	}
	lo, hi := 0.0, vt
	for current(hi) > 0 {
		lo, hi = hi, 2*hi
	}
	for k := 0; k < 200 && hi-lo > 1e-15; k++ {
		mid := 0.5 * (lo + hi)
		if current(mid) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// Curve implements Component.
func (c *Cell) Curve() (curve.Curve, error) {
	if err := c.Recompute(); err != nil {
		return curve.Curve{}, err
	}
	return *c.iv, nil
}

var cellFields = []string{"name", "IL", "I01", "I02", "Rshunt", "Rs", "area"}

// CriticalFields implements Component.
func (c *Cell) CriticalFields() []string { return cellFields }

// Field implements Component.
func (c *Cell) Field(name string) (any, bool) {
	switch name {
	case "name":
		return c.name, true
	case "IL":
		return c.Params.IL, true
	case "I01":
		return c.Params.I01, true
	case "I02":
		return c.Params.I02, true
	case "Rshunt":
		return c.Params.Rshunt, true
	case "Rs":
		return c.Params.Rs, true
	case "area":
		return c.Params.Area, true
	}
	return nil, false
}

// Equal implements Component.
func (c *Cell) Equal(other Component) bool {
	o, ok := other.(*Cell)
	if !ok || o == nil {
		return false
	}
	return c.name == o.name && c.Params == o.Params
}

func (c *Cell) String() string {
	return fmt.Sprintf("cell %s", c.name)
}
