package snapshot

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/roach88/pvregress/internal/ir"
)

// Top-level keys of a persisted snapshot.
const (
	KeySolverEnv = "solver_environment"
	KeyResults   = "results"
)

// Snapshot is one point-in-time regression baseline for one scenario.
type Snapshot struct {
	SolverEnv ir.IRObject
	Results   ir.IRObject
}

// Object returns the snapshot in its persisted shape.
func (s Snapshot) Object() ir.IRObject {
	env := s.SolverEnv
	if env == nil {
		env = ir.IRObject{}
	}
	results := s.Results
	if results == nil {
		results = ir.IRObject{}
	}
	return ir.IRObject{
		KeySolverEnv: env,
		KeyResults:   results,
	}
}

// ID returns the content hash of the snapshot.
func (s Snapshot) ID() (string, error) {
	return ir.SnapshotID(s.Object())
}

// Encode serializes the snapshot as canonical JSON followed by a newline.
// The output is checked against the schema so that anything Encode returns
// can be read back by Decode.
func Encode(s Snapshot) ([]byte, error) {
	data, err := ir.MarshalCanonical(s.Object())
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

//go:embed snapshot.schema.json
var schemaJSON []byte

var (
	schema      *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// compileSchema compiles the embedded schema once.
func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal snapshot schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("snapshot.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add snapshot schema resource: %w", err)
			return
		}

		schema, err = compiler.Compile("snapshot.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile snapshot schema: %w", err)
			return
		}
	})

	return compileErr
}

// Validate checks raw JSON against the snapshot schema.
func Validate(data []byte) error {
	if err := compileSchema(); err != nil {
		return err
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("snapshot validation failed: %w", err)
	}

	return nil
}

// Decode validates and parses a persisted snapshot.
func Decode(data []byte) (Snapshot, error) {
	if err := Validate(data); err != nil {
		return Snapshot{}, err
	}

	var obj ir.IRObject
	if err := obj.UnmarshalJSON(data); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	env, _ := obj[KeySolverEnv].(ir.IRObject)
	results, _ := obj[KeyResults].(ir.IRObject)
	return Snapshot{SolverEnv: env, Results: results}, nil
}
