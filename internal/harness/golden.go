package harness

import (
	"fmt"
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sorsync/internal/ir"
)

// Snapshot is the deterministic part of a scenario's outcome: per-run
// counters and the final rows and changelog, without timestamps, uuids
// or fingerprints.
type Snapshot struct {
	ScenarioName string
	Source       string
	Result       *Result
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *Snapshot) toCanonicalMap() (map[string]any, error) {
	reports := make([]any, len(s.Result.Runs))
	for i, run := range s.Result.Runs {
		m := map[string]any{}
		for name, n := range counters(run.Report) {
			m[name] = n
		}
		if run.Fatal() {
			m["fatal"] = true
		}
		reports[i] = m
	}

	records := make([]any, len(s.Result.State.Records))
	for i, r := range s.Result.State.Records {
		payload, err := ir.ParseObject([]byte(r.Payload))
		if err != nil {
			return nil, fmt.Errorf("payload of %s: %w", r.NaturalID, err)
		}
		records[i] = map[string]any{
			"natural_id": r.NaturalID,
			"status":     string(r.Status),
			"payload":    payload,
		}
	}

	// Writes within a run are concurrent, so only the order per natural id
	// is stable.
	log := append([]ir.ChangeLogEntry{}, s.Result.State.ChangeLog...)
	sort.SliceStable(log, func(i, j int) bool {
		return log[i].NaturalID < log[j].NaturalID
	})
	changelog := make([]any, len(log))
	for i, e := range log {
		m := map[string]any{
			"natural_id": e.NaturalID,
			"operation":  string(e.Operation),
		}
		for key, p := range map[string]string{"old_payload": e.OldPayload, "new_payload": e.NewPayload} {
			if p == "" {
				continue
			}
			obj, err := ir.ParseObject([]byte(p))
			if err != nil {
				return nil, fmt.Errorf("changelog %d %s: %w", e.ID, key, err)
			}
			m[key] = obj
		}
		changelog[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"source":        s.Source,
		"reports":       reports,
		"records":       records,
		"changelog":     changelog,
	}, nil
}

// MarshalCanonical serializes the snapshot as canonical JSON.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	m, err := s.toCanonicalMap()
	if err != nil {
		return nil, err
	}
	return ir.MarshalCanonical(m)
}

// RunWithGolden executes a scenario, fails the test on any expectation or
// assertion error, and compares the snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	if err := AssertGolden(t, scenario.Name, scenario.Source, result); err != nil {
		return result, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName, source string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Source: source, Result: result}
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
