// Package curve cross-validates a computed current-voltage curve against an
// independently produced reference curve.
//
// Curves use the generator convention: current is positive while the device
// delivers power, so V*I peaks at the maximum-power point. Reference scans
// come from a circuit simulator that reports the opposite sign, and are
// negated on load.
package curve

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// Curve is a sampled IV curve. V and I have equal length.
type Curve struct {
	V []float64
	I []float64
}

// Len returns the number of samples.
func (c Curve) Len() int {
	return len(c.V)
}

// Check returns an error if the curve is malformed.
func (c Curve) Check() error {
	if len(c.V) != len(c.I) {
		return fmt.Errorf("curve has %d voltages and %d currents", len(c.V), len(c.I))
	}
	for k := range c.V {
		if math.IsNaN(c.V[k]) || math.IsNaN(c.I[k]) {
			return fmt.Errorf("curve sample %d is NaN", k)
		}
	}
	return nil
}

// Append concatenates other onto c and returns the result.
func (c Curve) Append(other Curve) Curve {
	return Curve{
		V: append(append([]float64(nil), c.V...), other.V...),
		I: append(append([]float64(nil), c.I...), other.I...),
	}
}

// Negated returns c with the current sign flipped.
func (c Curve) Negated() Curve {
	out := Curve{V: append([]float64(nil), c.V...), I: make([]float64, len(c.I))}
	for k, i := range c.I {
		out.I[k] = -i
	}
	return out
}

// Pmax returns the largest power V*I over the samples, or 0 for an empty
// curve. The product is signed: curves use the generator convention (positive
// current on the power-producing branch), so the maximum is the delivered
// power rather than the largest magnitude.
func Pmax(c Curve) float64 {
	if c.Len() == 0 {
		return 0
	}
	best := math.Inf(-1)
	for k := range c.V {
		if p := c.V[k] * c.I[k]; p > best {
			best = p
		}
	}
	return best
}

// Interpolator evaluates a piecewise-linear function through sampled points,
// clamping to the end values outside the sampled range.
type Interpolator struct {
	pl       interp.PiecewiseLinear
	constant float64
	single   bool
}

// NewInterpolator fits xs -> ys. Samples are sorted by x and duplicate
// abscissae are merged by averaging their ordinates, so any sample order is
// accepted.
func NewInterpolator(xs, ys []float64) (*Interpolator, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("interpolate: %d xs and %d ys", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("interpolate: no samples")
	}

	sx, sy := monotone(xs, ys)
	if len(sx) == 1 {
		return &Interpolator{constant: sy[0], single: true}, nil
	}

	in := &Interpolator{}
	if err := in.pl.Fit(sx, sy); err != nil {
		return nil, fmt.Errorf("interpolate: %w", err)
	}
	return in, nil
}

// At evaluates the interpolant at x.
func (in *Interpolator) At(x float64) float64 {
	if in.single {
		return in.constant
	}
	return in.pl.Predict(x)
}

// monotone returns the samples sorted by x with strictly increasing x.
func monotone(xs, ys []float64) ([]float64, []float64) {
	idx := make([]int, len(xs))
	for k := range idx {
		idx[k] = k
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	outX := make([]float64, 0, len(xs))
	outY := make([]float64, 0, len(ys))
	count := 0
	for _, k := range idx {
		x, y := xs[k], ys[k]
		if n := len(outX); n > 0 && outX[n-1] == x {
			count++
			outY[n-1] += (y - outY[n-1]) / float64(count)
			continue
		}
		outX = append(outX, x)
		outY = append(outY, y)
		count = 1
	}
	return outX, outY
}
