package model

import (
	"fmt"

	"github.com/roach88/pvregress/internal/ir"
)

// Boltzmann constant over elementary charge, in V/K.
const kOverQ = 8.617333262e-5

// Solver holds the numerical settings shared by every component in a tree.
type Solver struct {
	// GridPoints is the number of junction-voltage samples per cell.
	GridPoints int `yaml:"grid_points"`
	// Temperature is the cell temperature in kelvin.
	Temperature float64 `yaml:"temperature"`
	// MaxPoints caps the merged grid of a group curve.
	MaxPoints int `yaml:"max_points"`
}

// DefaultSolver returns the settings used when a scenario sets none.
func DefaultSolver() Solver {
	return Solver{GridPoints: 400, Temperature: 298.15, MaxPoints: 20000}
}

// WithOverrides returns s with the non-zero fields of o applied.
func (s Solver) WithOverrides(o Solver) Solver {
	if o.GridPoints != 0 {
		s.GridPoints = o.GridPoints
	}
	if o.Temperature != 0 {
		s.Temperature = o.Temperature
	}
	if o.MaxPoints != 0 {
		s.MaxPoints = o.MaxPoints
	}
	return s
}

// Check validates the settings.
func (s Solver) Check() error {
	if s.GridPoints < 2 {
		return fmt.Errorf("solver: grid_points must be at least 2, got %d", s.GridPoints)
	}
	if s.Temperature <= 0 {
		return fmt.Errorf("solver: temperature must be positive, got %g", s.Temperature)
	}
	if s.MaxPoints < s.GridPoints {
		return fmt.Errorf("solver: max_points (%d) below grid_points (%d)", s.MaxPoints, s.GridPoints)
	}
	return nil
}

// ThermalVoltage returns kT/q.
func (s Solver) ThermalVoltage() float64 {
	return kOverQ * s.Temperature
}

// Env returns the solver environment captured alongside every snapshot.
func (s Solver) Env() ir.IRObject {
	return ir.IRObject{
		"grid_points":     ir.IRInt(int64(s.GridPoints)),
		"max_points":      ir.IRInt(int64(s.MaxPoints)),
		"temperature":     ir.IRFloat(s.Temperature),
		"thermal_voltage": ir.IRFloat(s.ThermalVoltage()),
	}
}
