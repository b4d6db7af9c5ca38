// Package objdiff localizes differences between two composite model objects.
//
// A flat equality check on a device tree says only that something changed.
// Diff walks each object's critical fields, drills into ordered collections
// of sub-objects, and reports each difference under the lineage of the node
// where it occurs:
//
//	-------------------------------
//	device1.0.2 != device2.0.2 in the following:
//	  Rs: 0.003 != 0.004
package objdiff

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/pvregress/internal/logging"
)

// Object is a composite model object that can be diffed.
type Object interface {
	// CriticalFields lists the fields that define the object, in report order.
	CriticalFields() []string
	// Field returns the value of a critical field.
	Field(name string) (any, bool)
}

// Lineage locates a node inside an object tree by member index.
type Lineage []int

// String renders the lineage as ".0.3"; the root renders as "".
func (l Lineage) String() string {
	var b strings.Builder
	for _, i := range l {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}

// Extend returns a new lineage with i appended.
func (l Lineage) Extend(i int) Lineage {
	out := make(Lineage, len(l), len(l)+1)
	copy(out, l)
	return append(out, i)
}

// ErrDiffer is matched by errors.Is for every fail-fast difference.
var ErrDiffer = errors.New("objdiff: objects differ")

// DiffError carries the first difference found in fail-fast mode.
type DiffError struct {
	Difference Difference
}

// Error implements the error interface.
func (e *DiffError) Error() string {
	return e.Difference.String()
}

// Unwrap lets errors.Is(err, ErrDiffer) match.
func (e *DiffError) Unwrap() error {
	return ErrDiffer
}

// Difference is one reported divergence.
type Difference struct {
	Lineage Lineage `json:"lineage"`
	Field   string  `json:"field,omitempty"`
	Message string  `json:"message"`
}

// String renders the difference with its lineage.
func (d Difference) String() string {
	if len(d.Lineage) == 0 {
		return d.Message
	}
	return fmt.Sprintf("at %s: %s", d.Lineage, d.Message)
}

// Options controls a diff.
type Options struct {
	// FailFast aborts at the first difference with a *DiffError.
	FailFast bool
	// Out receives the human-readable report. Nil discards.
	Out io.Writer
	// Labels names the two sides in headers; defaults to device1 and device2.
	Labels [2]string
	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

// Report is the outcome of a diff.
type Report struct {
	// Equal is true when the objects are equal by their own definition.
	Equal       bool         `json:"equal"`
	Differences []Difference `json:"differences,omitempty"`
}

const separator = "-------------------------------"

// equalOpts compares unexported state too; model types define equality
// through Equal methods, which cmp honours before looking at fields.
var equalOpts = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Equal reports whether a and b are equal by the objects' own definition.
func Equal(a, b any) bool {
	return cmp.Equal(a, b, equalOpts...)
}

type differ struct {
	opts   Options
	out    io.Writer
	logger *slog.Logger
	report *Report
}

type errStop struct{ err *DiffError }

// Diff compares a against b.
func Diff(a, b Object, opts Options) (*Report, error) {
	if opts.Labels[0] == "" {
		opts.Labels[0] = "device1"
	}
	if opts.Labels[1] == "" {
		opts.Labels[1] = "device2"
	}

	d := &differ{
		opts:   opts,
		out:    opts.Out,
		logger: logging.Component(opts.Logger, "objdiff"),
		report: &Report{},
	}
	if d.out == nil {
		d.out = io.Discard
	}

	if Equal(a, b) {
		d.report.Equal = true
		return d.report, nil
	}

	if stop := d.node(a, b, nil); stop != nil {
		return d.report, stop.err
	}

	d.logger.Debug("diff finished", "differences", len(d.report.Differences))
	return d.report, nil
}

// nodeState tracks whether a node has printed its header yet.
type nodeState struct {
	lineage Lineage
	header  bool
}

func (d *differ) node(a, b Object, lineage Lineage) *errStop {
	st := &nodeState{lineage: lineage}
	before := len(d.report.Differences)

	for _, name := range criticalUnion(a, b) {
		va, okA := a.Field(name)
		vb, okB := b.Field(name)

		switch {
		case !okA && !okB:
			continue
		case !okA:
			if stop := d.record(st, name, fmt.Sprintf("%s missing from %s%s", name, d.opts.Labels[0], lineage)); stop != nil {
				return stop
			}
			continue
		case !okB:
			if stop := d.record(st, name, fmt.Sprintf("%s missing from %s%s", name, d.opts.Labels[1], lineage)); stop != nil {
				return stop
			}
			continue
		}

		if Equal(va, vb) {
			continue
		}
		if stop := d.field(st, name, va, vb); stop != nil {
			return stop
		}
	}

	if len(d.report.Differences) == before {
		return d.record(st, "", "objects differ outside their critical fields")
	}
	return nil
}

func (d *differ) field(st *nodeState, name string, va, vb any) *errStop {
	ra, rb := reflect.ValueOf(va), reflect.ValueOf(vb)
	if !isSequence(ra) || !isSequence(rb) {
		return d.record(st, name, fmt.Sprintf("%s: %s != %s", name, describe(va), describe(vb)))
	}

	if ra.Len() != rb.Len() {
		return d.record(st, name, fmt.Sprintf("%s: length %d != %d", name, ra.Len(), rb.Len()))
	}

	for i := 0; i < ra.Len(); i++ {
		ea, eb := ra.Index(i).Interface(), rb.Index(i).Interface()
		if Equal(ea, eb) {
			continue
		}

		oa, okA := ea.(Object)
		ob, okB := eb.(Object)
		if okA && okB {
			if stop := d.node(oa, ob, st.lineage.Extend(i)); stop != nil {
				return stop
			}
			continue
		}

		if stop := d.record(st, name, fmt.Sprintf("%s[%d]: %s != %s", name, i, describe(ea), describe(eb))); stop != nil {
			return stop
		}
	}
	return nil
}

func (d *differ) record(st *nodeState, field, message string) *errStop {
	if !st.header {
		fmt.Fprintln(d.out, separator)
		fmt.Fprintf(d.out, "%s%s != %s%s in the following:\n",
			d.opts.Labels[0], st.lineage, d.opts.Labels[1], st.lineage)
		st.header = true
	}
	fmt.Fprintf(d.out, "  %s\n", message)

	diff := Difference{Lineage: append(Lineage(nil), st.lineage...), Field: field, Message: message}
	d.report.Differences = append(d.report.Differences, diff)

	if d.opts.FailFast {
		return &errStop{err: &DiffError{Difference: diff}}
	}
	return nil
}

func criticalUnion(a, b Object) []string {
	fields := append([]string(nil), a.CriticalFields()...)
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		seen[f] = true
	}
	for _, f := range b.CriticalFields() {
		if !seen[f] {
			fields = append(fields, f)
			seen[f] = true
		}
	}
	return fields
}

func isSequence(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	k := v.Kind()
	return k == reflect.Slice || k == reflect.Array
}

func describe(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
