package snapshot

import (
	"fmt"

	"github.com/roach88/pvregress/internal/ir"
)

// Default tolerances applied when a field declaration omits them.
const (
	DefaultAtol = 1e-5
	DefaultRtol = 1e-5
)

// Keys of a field record object.
const (
	KeyValue = "value"
	KeyAtol  = "atol"
	KeyRtol  = "rtol"
)

// FieldRecord is one extracted value with its comparison tolerances.
// Records are created fresh for each run and never mutated.
type FieldRecord struct {
	Name  string
	Value ir.IRValue
	Atol  float64
	Rtol  float64
}

// NewFieldRecord validates and builds a record.
func NewFieldRecord(name string, value ir.IRValue, atol, rtol float64) (FieldRecord, error) {
	if name == "" {
		return FieldRecord{}, fmt.Errorf("field record: empty name")
	}
	if name == KeyValue {
		return FieldRecord{}, fmt.Errorf("field record: %q is reserved", name)
	}
	if value == nil {
		return FieldRecord{}, fmt.Errorf("field %s: missing value", name)
	}
	if atol < 0 || rtol < 0 {
		return FieldRecord{}, fmt.Errorf("field %s: tolerances must be non-negative (atol=%g, rtol=%g)", name, atol, rtol)
	}
	return FieldRecord{Name: name, Value: value, Atol: atol, Rtol: rtol}, nil
}

// Object returns the record in its persisted shape.
func (r FieldRecord) Object() ir.IRObject {
	return ir.IRObject{
		KeyValue: r.Value,
		KeyAtol:  ir.IRFloat(r.Atol),
		KeyRtol:  ir.IRFloat(r.Rtol),
	}
}

// IsRecord reports whether obj is a field record (it carries a value key).
func IsRecord(obj ir.IRObject) bool {
	_, ok := obj[KeyValue]
	return ok
}

// Tolerances reads atol and rtol from a record object, falling back to the
// defaults for absent or non-numeric entries.
func Tolerances(obj ir.IRObject) (atol, rtol float64) {
	atol, rtol = DefaultAtol, DefaultRtol
	if v, ok := ir.Numeric(obj[KeyAtol]); ok {
		atol = v
	}
	if v, ok := ir.Numeric(obj[KeyRtol]); ok {
		rtol = v
	}
	return atol, rtol
}

// Results builds a flat results object from records. A later record with the
// same name replaces an earlier one.
func Results(records []FieldRecord) ir.IRObject {
	out := make(ir.IRObject, len(records))
	for _, r := range records {
		out[r.Name] = r.Object()
	}
	return out
}
