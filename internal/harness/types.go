package harness

import (
	"slices"

	"github.com/roach88/sorsync/internal/ir"
	"github.com/roach88/sorsync/internal/reconcile"
)

// RunResult is the outcome of one run of a scenario.
type RunResult struct {
	Report reconcile.Report

	// Err is the run's fatal error, if any.
	Err error
}

// Fatal reports whether the run aborted before writing.
func (r RunResult) Fatal() bool {
	return reconcile.IsFatal(r.Err)
}

// FinalState is the scenario source's mirror after the last run.
type FinalState struct {
	// Records are ordered by natural id.
	Records []ir.MirrorRecord

	// ChangeLog is in write order.
	ChangeLog []ir.ChangeLogEntry
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every run expectation and assertion holds.
	Pass bool `json:"pass"`

	// Runs holds one entry per executed run.
	Runs []RunResult `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is captured after the last run.
	State FinalState `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// counterNames are the report counters scenarios and golden files use,
// keyed by their JSON names.
var counterNames = []string{
	"seen", "dropped", "duplicates",
	"inserted", "updated", "reactivated", "removed",
	"unchanged", "known", "missed", "failed",
}

func isCounter(name string) bool {
	return slices.Contains(counterNames, name)
}

// counters returns the counters of r keyed by JSON name.
func counters(r reconcile.Report) map[string]int {
	return map[string]int{
		"seen":        r.Seen,
		"dropped":     r.Dropped,
		"duplicates":  r.Duplicates,
		"inserted":    r.Inserted,
		"updated":     r.Updated,
		"reactivated": r.Reactivated,
		"removed":     r.Removed,
		"unchanged":   r.Unchanged,
		"known":       r.Known,
		"missed":      r.Missed,
		"failed":      r.Failed,
	}
}
