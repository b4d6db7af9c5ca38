package model

import (
	"fmt"
	"sync"

	"github.com/roach88/pvregress/internal/curve"
	"github.com/roach88/pvregress/internal/extract"
	"github.com/roach88/pvregress/internal/ir"
)

// Irradiance is the one-sun power density in W/cm², used for efficiency.
const Irradiance = 0.1

// Point is an operating point on an IV curve.
type Point struct {
	V, I float64
}

// MaxPowerPoint returns the sample with the largest V*I.
func MaxPowerPoint(c Component) (Point, error) {
	iv, err := c.Curve()
	if err != nil {
		return Point{}, err
	}
	if iv.Len() == 0 {
		return Point{}, fmt.Errorf("%s: empty curve", c.Name())
	}
	best := 0
	for k := range iv.V {
		if iv.V[k]*iv.I[k] > iv.V[best]*iv.I[best] {
			best = k
		}
	}
	return Point{V: iv.V[best], I: iv.I[best]}, nil
}

// Voc returns the open-circuit voltage, V at I = 0.
func Voc(c Component) (float64, error) {
	iv, err := c.Curve()
	if err != nil {
		return 0, err
	}
	in, err := curve.NewInterpolator(iv.I, iv.V)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", c.Name(), err)
	}
	return in.At(0), nil
}

// Isc returns the short-circuit current, I at V = 0.
func Isc(c Component) (float64, error) {
	iv, err := c.Curve()
	if err != nil {
		return 0, err
	}
	in, err := curve.NewInterpolator(iv.V, iv.I)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", c.Name(), err)
	}
	return in.At(0), nil
}

// Pmax returns the maximum power of c.
func Pmax(c Component) (float64, error) {
	iv, err := c.Curve()
	if err != nil {
		return 0, err
	}
	return curve.Pmax(iv), nil
}

// FillFactor returns Pmax / (Voc * Isc).
func FillFactor(c Component) (float64, error) {
	pmax, err := Pmax(c)
	if err != nil {
		return 0, err
	}
	voc, err := Voc(c)
	if err != nil {
		return 0, err
	}
	isc, err := Isc(c)
	if err != nil {
		return 0, err
	}
	if voc*isc == 0 {
		return 0, fmt.Errorf("%s: fill factor undefined at Voc*Isc = 0", c.Name())
	}
	return pmax / (voc * isc), nil
}

// Efficiency returns Pmax over the incident one-sun power on the cell area.
func Efficiency(c Component) (float64, error) {
	pmax, err := Pmax(c)
	if err != nil {
		return 0, err
	}
	return pmax / (TotalArea(c) * Irradiance), nil
}

var (
	registry     *extract.Registry[Component]
	registryOnce sync.Once
)

// Fields returns the accessor registry for components.
func Fields() *extract.Registry[Component] {
	registryOnce.Do(func() {
		mpp := func(pick func(Point) float64) extract.Accessor[Component] {
			return extract.Computed(func(c Component) (float64, error) {
				p, err := MaxPowerPoint(c)
				return pick(p), err
			})
		}
		series := func(pick func(curve.Curve) []float64) extract.Accessor[Component] {
			return func(c Component) (ir.IRValue, error) {
				iv, err := c.Curve()
				if err != nil {
					return nil, err
				}
				return ir.NewFloatArray(pick(iv)), nil
			}
		}

		registry = extract.NewRegistry[Component]().
			Register("name", extract.String(Component.Name)).
			Register("num_cells", extract.Int(CountCells)).
			Register("area", extract.Float(TotalArea)).
			Register("Pmax", extract.Computed(Pmax)).
			Register("Vmp", mpp(func(p Point) float64 { return p.V })).
			Register("Imp", mpp(func(p Point) float64 { return p.I })).
			Register("Voc", extract.Computed(Voc)).
			Register("Isc", extract.Computed(Isc)).
			Register("FF", extract.Computed(FillFactor)).
			Register("efficiency", extract.Computed(Efficiency)).
			Register("IV_V", series(func(c curve.Curve) []float64 { return c.V })).
			Register("IV_I", series(func(c curve.Curve) []float64 { return c.I }))
	})
	return registry
}
