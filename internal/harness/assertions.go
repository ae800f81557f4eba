package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/sorsync/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Records  []ir.MirrorRecord
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Records) > 0 {
		fmt.Fprintf(&buf, "\nFinal rows:\n")
		for _, r := range e.Records {
			fmt.Fprintf(&buf, "  %s [%s] %s\n", r.NaturalID, r.Status, r.Payload)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the final state and
// returns one message per failure.
func EvaluateAssertions(state FinalState, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertRecord:
			err = assertRecord(state, a)
		case AssertAbsent:
			err = assertAbsent(state, a)
		case AssertChangelog:
			err = assertChangelog(state, a)
		case AssertStatusCounts:
			err = assertStatusCounts(state, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func findRecord(state FinalState, naturalID string) (ir.MirrorRecord, bool) {
	for _, r := range state.Records {
		if r.NaturalID == naturalID {
			return r, true
		}
	}
	return ir.MirrorRecord{}, false
}

// assertRecord checks that the row exists, has the expected status and
// carries the expected attributes (subset match).
func assertRecord(state FinalState, a Assertion) error {
	rec, ok := findRecord(state, a.NaturalID)
	if !ok {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("row %s", a.NaturalID),
			Actual:   "row not found",
			Records:  state.Records,
		}
	}

	if a.Status != "" && string(rec.Status) != a.Status {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("row %s with status %s", a.NaturalID, a.Status),
			Actual:   fmt.Sprintf("status %s", rec.Status),
		}
	}

	if len(a.Attrs) == 0 {
		return nil
	}
	want, err := toObject(a.Attrs)
	if err != nil {
		return fmt.Errorf("attrs: %w", err)
	}
	payload, err := ir.ParseObject([]byte(rec.Payload))
	if err != nil {
		return fmt.Errorf("stored payload of %s: %w", a.NaturalID, err)
	}
	for _, key := range want.SortedKeys() {
		got, ok := payload[key]
		if !ok || !reflect.DeepEqual(got, want[key]) {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("row %s attribute %s = %s", a.NaturalID, key, formatValue(want[key])),
				Actual:   fmt.Sprintf("payload %s", rec.Payload),
			}
		}
	}
	return nil
}

func assertAbsent(state FinalState, a Assertion) error {
	if rec, ok := findRecord(state, a.NaturalID); ok {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("no row for %s", a.NaturalID),
			Actual:   fmt.Sprintf("row with status %s", rec.Status),
		}
	}
	return nil
}

// assertChangelog checks the exact operation sequence of one natural id.
func assertChangelog(state FinalState, a Assertion) error {
	actual := []string{}
	for _, e := range state.ChangeLog {
		if e.NaturalID == a.NaturalID {
			actual = append(actual, string(e.Operation))
		}
	}
	if !reflect.DeepEqual(actual, append([]string{}, a.Operations...)) {
		return &AssertionError{
			Type:     AssertChangelog,
			Expected: fmt.Sprintf("%s operations %v", a.NaturalID, a.Operations),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}

// assertStatusCounts checks row counts per status. Statuses not listed are
// not checked.
func assertStatusCounts(state FinalState, a Assertion) error {
	actual := make(map[string]int)
	for _, r := range state.Records {
		actual[string(r.Status)]++
	}

	statuses := make([]string, 0, len(a.Counts))
	for s := range a.Counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	for _, s := range statuses {
		if actual[s] != a.Counts[s] {
			return &AssertionError{
				Type:     AssertStatusCounts,
				Expected: fmt.Sprintf("%d %s rows", a.Counts[s], s),
				Actual:   fmt.Sprintf("%d", actual[s]),
				Records:  state.Records,
			}
		}
	}
	return nil
}

func formatValue(v ir.Value) string {
	data, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
