package extract

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/pvregress/internal/config"
	"github.com/roach88/pvregress/internal/ir"
	"github.com/roach88/pvregress/internal/logging"
	"github.com/roach88/pvregress/internal/snapshot"
)

// Recomputable is an object with cached derived state.
type Recomputable interface {
	// Invalidate drops any cached derived state.
	Invalidate()
	// Recompute rebuilds derived state from the current parameters.
	Recompute() error
}

// Extractor reads configured fields from objects of type T.
type Extractor[T Recomputable] struct {
	registry *Registry[T]
	logger   *slog.Logger
}

// New creates an extractor over registry. A nil logger discards output.
func New[T Recomputable](registry *Registry[T], logger *slog.Logger) *Extractor[T] {
	return &Extractor[T]{
		registry: registry,
		logger:   logging.Component(logger, "extract"),
	}
}

// Extract refreshes obj and returns the results object for scenario, using
// the common field list merged with the scenario's own.
func (e *Extractor[T]) Extract(obj T, scenario string, cfg *config.Config) (ir.IRObject, error) {
	records, err := e.Records(obj, cfg.FieldsFor(scenario))
	if err != nil {
		return nil, err
	}
	return snapshot.Results(records), nil
}

// Records refreshes obj and reads every field in specs that the registry
// knows. Unknown names are skipped.
func (e *Extractor[T]) Records(obj T, specs []config.FieldSpec) ([]snapshot.FieldRecord, error) {
	start := time.Now()

	obj.Invalidate()
	if err := obj.Recompute(); err != nil {
		return nil, fmt.Errorf("recompute before extraction: %w", err)
	}

	records := make([]snapshot.FieldRecord, 0, len(specs))
	for _, spec := range specs {
		get, ok := e.registry.Lookup(spec.Name)
		if !ok {
			e.logger.Debug("field not available, skipping", "field", spec.Name)
			continue
		}

		value, err := get(obj)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", spec.Name, err)
		}

		atol, rtol := spec.Tolerances()
		rec, err := snapshot.NewFieldRecord(spec.Name, value, atol, rtol)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	e.logger.Debug("extracted fields",
		"requested", len(specs),
		"extracted", len(records),
		"duration", time.Since(start))
	return records, nil
}
