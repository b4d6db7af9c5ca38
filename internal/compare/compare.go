// Package compare implements tolerant comparison of snapshot results.
//
// Both sides are trees of objects. An object carrying a "value" key is a
// field record and is compared as a leaf using the candidate's tolerances;
// any other object is a group and is walked recursively. Keys present on one
// side only are mismatches. Nothing is dropped: in report mode every
// mismatch is collected, in fail-fast mode the first one aborts the walk.
package compare

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"

	"github.com/roach88/pvregress/internal/ir"
	"github.com/roach88/pvregress/internal/logging"
	"github.com/roach88/pvregress/internal/snapshot"
)

// Kind classifies a mismatch.
type Kind string

const (
	// KindOnlyBaseline is a key present in the baseline but not the candidate.
	KindOnlyBaseline Kind = "only_baseline"
	// KindOnlyCandidate is a key present in the candidate but not the baseline.
	KindOnlyCandidate Kind = "only_candidate"
	// KindValue is a value outside tolerance.
	KindValue Kind = "value"
	// KindShape is a structural disagreement: differing kinds or array lengths.
	KindShape Kind = "shape"
)

// Mismatch is one reported difference.
type Mismatch struct {
	Path    string     `json:"path"`
	Kind    Kind       `json:"kind"`
	Message string     `json:"message"`
	Old     ir.IRValue `json:"-"`
	New     ir.IRValue `json:"-"`
}

// Options controls a comparison.
type Options struct {
	// FailFast aborts on the first mismatch with a *MismatchError.
	FailFast bool
	// Out receives one line per mismatch. Nil discards.
	Out io.Writer
	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

// Report is the outcome of a comparison.
type Report struct {
	// Pass is true iff every leaf matched and no key was one-sided.
	Pass bool `json:"pass"`
	// Compared counts leaf comparisons performed.
	Compared int `json:"compared"`
	// Mismatches lists every reported difference in walk order.
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Lines returns the report message of every mismatch.
func (r *Report) Lines() []string {
	lines := make([]string, len(r.Mismatches))
	for i, m := range r.Mismatches {
		lines[i] = m.Message
	}
	return lines
}

type comparer struct {
	opts   Options
	out    io.Writer
	logger *slog.Logger
	report *Report
}

// errStop unwinds the walk after a fail-fast mismatch has been recorded.
type errStop struct{ err *MismatchError }

// Compare compares a candidate results tree against a baseline.
// In report mode the error is always nil; in fail-fast mode a mismatch
// returns the partial report and a *MismatchError.
func Compare(baseline, candidate ir.IRObject, opts Options) (*Report, error) {
	c := &comparer{
		opts:   opts,
		out:    opts.Out,
		logger: logging.Component(opts.Logger, "compare"),
		report: &Report{Pass: true},
	}
	if c.out == nil {
		c.out = io.Discard
	}

	if stop := c.walk(baseline, candidate, ""); stop != nil {
		return c.report, stop.err
	}

	c.logger.Debug("comparison finished",
		"pass", c.report.Pass,
		"compared", c.report.Compared,
		"mismatches", len(c.report.Mismatches))
	return c.report, nil
}

func (c *comparer) walk(baseline, candidate ir.IRObject, prefix string) *errStop {
	for _, key := range unionKeys(baseline, candidate) {
		path := joinPath(prefix, key)
		old, inOld := baseline[key]
		cur, inNew := candidate[key]

		switch {
		case !inNew:
			if stop := c.fail(Mismatch{Path: path, Kind: KindOnlyBaseline, Old: old,
				Message: path + " only in dict1"}); stop != nil {
				return stop
			}
		case !inOld:
			if stop := c.fail(Mismatch{Path: path, Kind: KindOnlyCandidate, New: cur,
				Message: path + " only in dict2"}); stop != nil {
				return stop
			}
		default:
			if stop := c.node(old, cur, path); stop != nil {
				return stop
			}
		}
	}
	return nil
}

func (c *comparer) node(old, cur ir.IRValue, path string) *errStop {
	oldObj, oldIsObj := old.(ir.IRObject)
	curObj, curIsObj := cur.(ir.IRObject)

	switch {
	case oldIsObj && curIsObj:
		oldRec, curRec := snapshot.IsRecord(oldObj), snapshot.IsRecord(curObj)
		switch {
		case oldRec && curRec:
			atol, rtol := snapshot.Tolerances(curObj)
			return c.leaf(oldObj[snapshot.KeyValue], curObj[snapshot.KeyValue], atol, rtol, path)
		case !oldRec && !curRec:
			return c.walk(oldObj, curObj, path)
		default:
			return c.fail(Mismatch{Path: path, Kind: KindShape, Old: old, New: cur,
				Message: fmt.Sprintf("Difference at %s: %s (old) != %s (new)", path, nodeKind(oldObj), nodeKind(curObj))})
		}
	case oldIsObj || curIsObj:
		return c.fail(Mismatch{Path: path, Kind: KindShape, Old: old, New: cur,
			Message: fmt.Sprintf("Difference at %s: %s (old) != %s (new)", path, ir.KindOf(old), ir.KindOf(cur))})
	default:
		// Bare values outside a record compare with default tolerances.
		return c.leaf(old, cur, snapshot.DefaultAtol, snapshot.DefaultRtol, path)
	}
}

func (c *comparer) leaf(old, cur ir.IRValue, atol, rtol float64, path string) *errStop {
	c.report.Compared++

	if m, ok := compareValues(old, cur, atol, rtol, path); !ok {
		return c.fail(m)
	}
	return nil
}

func (c *comparer) fail(m Mismatch) *errStop {
	c.report.Pass = false
	c.report.Mismatches = append(c.report.Mismatches, m)
	fmt.Fprintln(c.out, m.Message)

	if c.opts.FailFast {
		return &errStop{err: &MismatchError{Mismatch: m}}
	}
	return nil
}

// compareValues compares two leaf values. The bool is true when they match.
// Canonically equal values always match; tolerance applies to numbers only.
func compareValues(old, cur ir.IRValue, atol, rtol float64, path string) (Mismatch, bool) {
	if canonicalEqual(old, cur) {
		return Mismatch{}, true
	}

	shape := func() (Mismatch, bool) {
		return Mismatch{Path: path, Kind: KindShape, Old: old, New: cur,
			Message: fmt.Sprintf("Difference at %s: %s (old) != %s (new)", path, ir.KindOf(old), ir.KindOf(cur))}, false
	}
	value := func() (Mismatch, bool) {
		return Mismatch{Path: path, Kind: KindValue, Old: old, New: cur,
			Message: fmt.Sprintf("Difference at %s: %s (old) != %s (new)", path, ir.Format(old), ir.Format(cur))}, false
	}

	switch o := old.(type) {
	case ir.IRArray:
		n, ok := cur.(ir.IRArray)
		if !ok {
			return shape()
		}
		return compareArrays(o, n, atol, rtol, path)
	case ir.IRInt:
		switch n := cur.(type) {
		case ir.IRInt:
			if o == n {
				return Mismatch{}, true
			}
			return value()
		case ir.IRFloat:
			if Close(float64(o), float64(n), atol, rtol) {
				return Mismatch{}, true
			}
			return value()
		}
		return shape()
	case ir.IRFloat:
		n, ok := ir.Numeric(cur)
		if !ok {
			return shape()
		}
		if Close(float64(o), n, atol, rtol) {
			return Mismatch{}, true
		}
		return value()
	case ir.IRString:
		n, ok := cur.(ir.IRString)
		if !ok {
			return shape()
		}
		if o == n {
			return Mismatch{}, true
		}
		return value()
	case ir.IRBool:
		n, ok := cur.(ir.IRBool)
		if !ok {
			return shape()
		}
		if o == n {
			return Mismatch{}, true
		}
		return value()
	default:
		return shape()
	}
}

func compareArrays(old, cur ir.IRArray, atol, rtol float64, path string) (Mismatch, bool) {
	fail := func(detail string) (Mismatch, bool) {
		return Mismatch{Path: path, Kind: KindValue, Old: old, New: cur,
			Message: fmt.Sprintf("Difference at %s: arrays not equal (%s)", path, detail)}, false
	}

	if len(old) != len(cur) {
		m, _ := fail(fmt.Sprintf("length %d (old) != %d (new)", len(old), len(cur)))
		m.Kind = KindShape
		return m, false
	}

	a, okA := old.Floats()
	b, okB := cur.Floats()
	if !okA || !okB {
		m, _ := fail("non-numeric elements")
		m.Kind = KindShape
		return m, false
	}

	bad, first := 0, -1
	for i := range a {
		if !Close(a[i], b[i], atol, rtol) {
			if first < 0 {
				first = i
			}
			bad++
		}
	}
	if bad == 0 {
		return Mismatch{}, true
	}
	return fail(fmt.Sprintf("%d of %d elements outside tolerance, first at index %d: %s (old) != %s (new)",
		bad, len(a), first, ir.FormatFloat(a[first]), ir.FormatFloat(b[first])))
}

// Close reports whether a is within atol + rtol*|b| of b. Equal values,
// including equal infinities, always match; NaN never does.
func Close(a, b, atol, rtol float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	return math.Abs(a-b) <= atol+rtol*math.Abs(b)
}

// canonicalEqual reports whether a and b serialize to the same canonical
// JSON. Values without a canonical form (NaN, Inf) are never equal here.
func canonicalEqual(a, b ir.IRValue) bool {
	ab, err := ir.MarshalCanonical(a)
	if err != nil {
		return false
	}
	bb, err := ir.MarshalCanonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func nodeKind(obj ir.IRObject) string {
	if snapshot.IsRecord(obj) {
		return "record"
	}
	return "group"
}

func unionKeys(a, b ir.IRObject) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for _, obj := range []ir.IRObject{a, b} {
		for k := range obj {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
