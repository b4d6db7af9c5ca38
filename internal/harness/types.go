package harness

import (
	"time"

	"github.com/roach88/pvregress/internal/config"
)

// CheckResult is the outcome of one check.
type CheckResult struct {
	Check Check `json:"check"`
	Pass  bool  `json:"pass"`

	// Path is the baseline written (record mode) or compared against.
	Path string `json:"path,omitempty"`

	// Errors holds the report lines of a failed check.
	Errors []string `json:"errors,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	Scenario string `json:"scenario"`
	Mode     string `json:"mode"`

	// Pass is true when every check passed and nothing failed fatally.
	Pass bool `json:"pass"`

	Checks []CheckResult `json:"checks"`

	// Errors collects every failure line, check failures first.
	Errors []string `json:"errors,omitempty"`

	// Warnings collects non-fatal findings such as solver environment drift.
	Warnings []string `json:"warnings,omitempty"`

	// BaselineID is the content hash of the last baseline recorded or
	// compared against.
	BaselineID string `json:"baseline_id,omitempty"`

	// RunID is the ledger ID of this run; empty without a ledger.
	RunID string `json:"run_id,omitempty"`

	Duration time.Duration `json:"duration"`
}

// NewResult creates a new passing result.
func NewResult(scenario string, mode config.Mode) *Result {
	return &Result{
		Scenario: scenario,
		Mode:     mode.String(),
		Pass:     true,
		Checks:   []CheckResult{},
	}
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddWarning adds a warning without affecting Pass.
func (r *Result) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddCheck records a check outcome; a failed check fails the result.
func (r *Result) AddCheck(c CheckResult) {
	r.Checks = append(r.Checks, c)
	if !c.Pass {
		r.Pass = false
		r.Errors = append(r.Errors, c.Errors...)
	}
}

// Check returns the result of check c, if it ran.
func (r *Result) Check(c Check) (CheckResult, bool) {
	for _, cr := range r.Checks {
		if cr.Check == c {
			return cr, true
		}
	}
	return CheckResult{}, false
}

// Summary aggregates the results of a batch of scenarios.
type Summary struct {
	Results []*Result `json:"results"`
	Passed  int       `json:"passed"`
	Failed  int       `json:"failed"`
}

// Add counts a result into the summary.
func (s *Summary) Add(r *Result) {
	s.Results = append(s.Results, r)
	if r.Pass {
		s.Passed++
	} else {
		s.Failed++
	}
}

// Pass reports whether every scenario passed.
func (s *Summary) Pass() bool {
	return s.Failed == 0
}
