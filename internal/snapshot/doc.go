// Package snapshot defines the field-value snapshot persisted for every
// scenario: the captured solver environment plus a tree of field records.
//
// On disk a snapshot is canonical JSON:
//
//	{
//	  "results": {"Pmax": {"atol": 1e-05, "rtol": 1e-05, "value": 5.0}},
//	  "solver_environment": {"grid_points": 400, "temperature": 298.15}
//	}
//
// Decoding validates the document against an embedded JSON Schema before
// converting it, so malformed baselines fail with a schema path rather than a
// confusing comparison report.
package snapshot
