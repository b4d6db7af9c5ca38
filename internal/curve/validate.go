package curve

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/pvregress/internal/compare"
	"github.com/roach88/pvregress/internal/ir"
	"github.com/roach88/pvregress/internal/logging"
)

// Tolerances used by Validate.
const (
	PmaxAtol  = 1e-5
	PmaxRtol  = 1e-5
	PointAtol = 1e-4
	PointRtol = 1e-4
)

// ErrCurveMismatch is matched by errors.Is for every fail-fast curve failure.
var ErrCurveMismatch = errors.New("curve: reference mismatch")

// CurveError carries the first failure found in fail-fast mode.
type CurveError struct {
	Message string
}

// Error implements the error interface.
func (e *CurveError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, ErrCurveMismatch) match.
func (e *CurveError) Unwrap() error {
	return ErrCurveMismatch
}

// Options controls a validation.
type Options struct {
	// Active enables validation; an inactive call returns a nil Result.
	Active bool
	// FailFast aborts on the first failure with a *CurveError.
	FailFast bool
	// Out receives one line per failure. Nil discards.
	Out io.Writer
	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

// Rejection is a reference sample that neither interpolation direction
// reproduced.
type Rejection struct {
	V       float64 `json:"v"`
	I       float64 `json:"i"`
	IInterp float64 `json:"i_interp"`
	VInterp float64 `json:"v_interp"`
}

// Result is the outcome of a validation.
type Result struct {
	Pass          bool        `json:"pass"`
	ComputedPmax  float64     `json:"computed_pmax"`
	ReferencePmax float64     `json:"reference_pmax"`
	PmaxMatch     bool        `json:"pmax_match"`
	Checked       int         `json:"checked"`
	Rejected      []Rejection `json:"rejected,omitempty"`
	// Messages holds every failure line written to Options.Out.
	Messages []string `json:"messages,omitempty"`
}

// Validate compares computed against reference.
//
// The maximum powers must agree within PmaxAtol/PmaxRtol. Each reference
// sample passes when either the computed I(V) at its voltage or the computed
// V(I) at its current lands within PointAtol/PointRtol of the sample; steep
// regions are well-conditioned on at least one axis.
func Validate(computed, reference Curve, opts Options) (*Result, error) {
	if !opts.Active {
		return nil, nil
	}
	if err := computed.Check(); err != nil {
		return nil, fmt.Errorf("computed curve: %w", err)
	}
	if err := reference.Check(); err != nil {
		return nil, fmt.Errorf("reference curve: %w", err)
	}

	logger := logging.Component(opts.Logger, "curve")
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	res := &Result{
		Pass:          true,
		ComputedPmax:  Pmax(computed),
		ReferencePmax: Pmax(reference),
		PmaxMatch:     true,
	}

	if !compare.Close(res.ComputedPmax, res.ReferencePmax, PmaxAtol, PmaxRtol) {
		res.Pass = false
		res.PmaxMatch = false
		msg := fmt.Sprintf("Difference at Pmax: %s (reference) != %s (model)",
			ir.FormatFloat(res.ReferencePmax), ir.FormatFloat(res.ComputedPmax))
		res.Messages = append(res.Messages, msg)
		fmt.Fprintln(out, msg)
		if opts.FailFast {
			return res, &CurveError{Message: msg}
		}
	}

	if reference.Len() == 0 {
		return res, nil
	}

	iOfV, err := NewInterpolator(computed.V, computed.I)
	if err != nil {
		return nil, fmt.Errorf("computed I(V): %w", err)
	}
	vOfI, err := NewInterpolator(computed.I, computed.V)
	if err != nil {
		return nil, fmt.Errorf("computed V(I): %w", err)
	}

	for k := range reference.V {
		v, i := reference.V[k], reference.I[k]
		iInterp := iOfV.At(v)
		vInterp := vOfI.At(i)
		res.Checked++

		if compare.Close(vInterp, v, PointAtol, PointRtol) || compare.Close(iInterp, i, PointAtol, PointRtol) {
			continue
		}

		res.Pass = false
		res.Rejected = append(res.Rejected, Rejection{V: v, I: i, IInterp: iInterp, VInterp: vInterp})
		msg := fmt.Sprintf("Difference in IV curves at V = %s: I=%s (reference) != %s (model)",
			ir.FormatFloat(v), ir.FormatFloat(i), ir.FormatFloat(iInterp))
		res.Messages = append(res.Messages, msg)
		fmt.Fprintln(out, msg)
		if opts.FailFast {
			return res, &CurveError{Message: msg}
		}
	}

	logger.Debug("curve validation finished",
		"pass", res.Pass,
		"checked", res.Checked,
		"rejected", len(res.Rejected),
		"computed_pmax", res.ComputedPmax,
		"reference_pmax", res.ReferencePmax)
	return res, nil
}
