// Package config loads the harness configuration.
//
// A configuration file is YAML (JSON also works) shaped like:
//
//	mode: test
//	snapshot_dir: results
//	ledger: ledger.db
//	log_level: info
//	log_format: text
//	fields:
//	  common:
//	    - {name: Pmax, atol: 1e-5, rtol: 1e-5}
//	  a02:
//	    - {name: num_cells}
//
// The document is checked against an embedded CUE definition first, so
// negative tolerances and unknown keys are rejected with file positions, and
// then decoded strictly with yaml.v3.
//
// A Config is loaded once by the driver and passed to every operation that
// needs it; nothing in this repository rereads the file mid-run.
package config
