// Package harness runs regression scenarios for the PV circuit model.
//
// A scenario builds a device tree and runs up to three checks against it.
// The configured mode decides what each check does:
//
//   - record: save the device artifact and a field snapshot as new
//     timestamped baselines; reference validation is skipped
//   - test: load the newest baselines, report every difference, keep going
//   - pytest: as test, but stop at the first difference
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: a02
//	description: 60-cell module
//	checks: [artifact, fields, reference]
//	solver: {grid_points: 400}
//	device:
//	  kind: group
//	  name: module
//	  topology: series
//	  members:
//	    - kind: cell
//	      name: cell
//	      repeat: 60
//	      params: {IL: 7.0, I01: 1e-12, I02: 1e-8, Rshunt: 1000, Rs: 0.003}
//	reference:
//	  dir: ltspice
//	  device: module
//
// # Checks
//
// Checks always run in the order artifact, fields, reference. Outside
// record mode the artifact check replaces the freshly built device with the
// saved one, so the later checks exercise what was recorded.
//
//   - artifact: structural diff of the device tree against the saved artifact
//   - fields: extract the configured fields and compare them with the saved
//     snapshot; solver environment drift is reported as a warning
//   - reference: validate the device IV curve against external reference
//     scans; reference.baseline swaps in the newest artifact of another
//     scenario
//
// # Usage
//
//	h := harness.New(cfg, harness.WithLedger(ledger))
//	summary, err := h.RunAll(ctx, scenarios)
package harness
