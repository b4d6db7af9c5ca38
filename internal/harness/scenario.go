package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pvregress/internal/model"
)

// Check names one of the checks a scenario can run.
type Check string

// Check constants, in execution order.
const (
	CheckArtifact  Check = "artifact"
	CheckFields    Check = "fields"
	CheckReference Check = "reference"
)

var checkOrder = []Check{CheckArtifact, CheckFields, CheckReference}

// Scenario defines one regression scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It prefixes the baseline
	// filenames and selects the scenario's entry in the config field lists.
	Name string `yaml:"name"`

	// Description explains what this scenario covers.
	Description string `yaml:"description,omitempty"`

	// Checks lists the checks to run.
	Checks []Check `yaml:"checks"`

	// Solver overrides the default solver settings field by field.
	Solver model.Solver `yaml:"solver,omitempty"`

	// Device is the device tree under test.
	Device *model.Node `yaml:"device,omitempty"`

	// Reference configures reference-curve validation.
	Reference *Reference `yaml:"reference,omitempty"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-"`
}

// Reference locates the reference scans for a scenario.
type Reference struct {
	// Dir holds the <device>_scan<N>.txt files. Relative paths are resolved
	// against the scenario file.
	Dir string `yaml:"dir"`

	// Device is the scan file prefix.
	Device string `yaml:"device"`

	// Baseline, when set, validates the newest artifact recorded by that
	// scenario instead of this scenario's device.
	Baseline string `yaml:"baseline,omitempty"`
}

// Has reports whether the scenario runs check c.
func (s *Scenario) Has(c Check) bool {
	for _, have := range s.Checks {
		if have == c {
			return true
		}
	}
	return false
}

// orderedChecks returns the scenario's checks in execution order.
func (s *Scenario) orderedChecks() []Check {
	var out []Check
	for _, c := range checkOrder {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// ScenarioError reports an invalid or unreadable scenario file.
type ScenarioError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ScenarioError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("scenario: %v", e.Err)
	}
	return fmt.Sprintf("scenario %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScenarioError) Unwrap() error {
	return e.Err
}

// LoadScenario reads and parses a scenario YAML file.
// Returns a *ScenarioError if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(p string) (*Scenario, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, &ScenarioError{Path: p, Err: err}
	}

	sc, err := ParseScenario(data, filepath.Dir(p))
	if err != nil {
		return nil, &ScenarioError{Path: p, Err: err}
	}
	sc.Path = p
	return sc, nil
}

// ParseScenario parses scenario YAML, resolving relative reference
// directories against baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if sc.Reference != nil && sc.Reference.Dir != "" && !filepath.IsAbs(sc.Reference.Dir) && baseDir != "" {
		sc.Reference.Dir = filepath.Join(baseDir, sc.Reference.Dir)
	}

	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, ordered by file
// name. Scenario names must be unique.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	seen := make(map[string]string, len(files))
	scenarios := make([]*Scenario, 0, len(files))
	for _, f := range files {
		sc, err := LoadScenario(f)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[sc.Name]; ok {
			return nil, &ScenarioError{Path: f, Err: fmt.Errorf("name %q already used by %s", sc.Name, prev)}
		}
		seen[sc.Name] = f
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// Select returns the scenarios whose name matches the glob pattern. An empty
// pattern selects everything.
func Select(scenarios []*Scenario, pattern string) ([]*Scenario, error) {
	if pattern == "" {
		return scenarios, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
	}

	var out []*Scenario
	for _, sc := range scenarios {
		if ok, _ := path.Match(pattern, sc.Name); ok {
			out = append(out, sc)
		}
	}
	return out, nil
}

// validateScenario checks that required fields are present and consistent.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("name %q must not contain path separators", s.Name)
	}

	if len(s.Checks) == 0 {
		return fmt.Errorf("checks list is required and must be non-empty")
	}
	seen := make(map[Check]bool, len(s.Checks))
	for i, c := range s.Checks {
		switch c {
		case CheckArtifact, CheckFields, CheckReference:
		default:
			return fmt.Errorf("checks[%d]: unknown check %q", i, c)
		}
		if seen[c] {
			return fmt.Errorf("checks[%d]: duplicate check %q", i, c)
		}
		seen[c] = true
	}

	solver := model.DefaultSolver().WithOverrides(s.Solver)
	if err := solver.Check(); err != nil {
		return err
	}

	if s.Device != nil {
		if _, err := model.Build(*s.Device, solver); err != nil {
			return fmt.Errorf("device: %w", err)
		}
	}
	if (s.Has(CheckArtifact) || s.Has(CheckFields)) && s.Device == nil {
		return fmt.Errorf("device is required for the artifact and fields checks")
	}

	if s.Has(CheckReference) {
		r := s.Reference
		if r == nil {
			return fmt.Errorf("reference is required for the reference check")
		}
		if r.Dir == "" || r.Device == "" {
			return fmt.Errorf("reference: dir and device are required")
		}
		if r.Baseline == "" && s.Device == nil {
			return fmt.Errorf("reference: needs a device or a baseline scenario")
		}
	}

	return nil
}
