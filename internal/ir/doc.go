// Package ir provides the typed value tree that extracted results, snapshots
// and solver environments are expressed in.
//
// This package contains value types and their serialization only. Other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Integers and floats are distinct kinds; integer fields compare exactly
//   - Floats always serialize with a decimal point or exponent so their kind
//     survives a JSON round trip
//   - Non-finite floats and null are rejected at the serialization boundary
//   - Object keys serialize in a single canonical order (UTF-16 code units)
package ir
