package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sorsync/internal/ir"
)

// Scenario defines a reconciliation test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the SoR source every run reconciles.
	Source string `yaml:"source"`

	// IDField is the natural id attribute of inline records.
	// Default: "id"
	IDField string `yaml:"id_field,omitempty"`

	// Seed rows are written before the first run, in order.
	Seed []SeedRecord `yaml:"seed,omitempty"`

	// Runs are executed sequentially against the same store.
	Runs []RunStep `yaml:"runs"`

	// Assertions validate the final mirror and changelog.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedRecord is a mirror row present before the first run. Seeding goes
// through the store's writes, so seeded rows have changelog entries too.
type SeedRecord struct {
	NaturalID string `yaml:"natural_id"`

	// Status is active (default), inactive or deleted.
	Status string `yaml:"status,omitempty"`

	// Attrs is the stored payload.
	Attrs map[string]interface{} `yaml:"attrs"`
}

// RunStep is one reconciliation run.
type RunStep struct {
	// Records is an inline generic feed. An empty list is an empty feed.
	Records []map[string]interface{} `yaml:"records,omitempty"`

	// Feed is a feed file (.xml or .json), resolved relative to the
	// scenario file. Mutually exclusive with Records.
	Feed string `yaml:"feed,omitempty"`

	// FailWrites lists natural ids whose writes fail during this run.
	FailWrites []string `yaml:"fail_writes,omitempty"`

	// FailSnapshot makes the snapshot load fail, aborting the run.
	FailSnapshot bool `yaml:"fail_snapshot,omitempty"`

	// Expect validates the run's report. If nil, nothing is checked.
	Expect *RunExpect `yaml:"expect,omitempty"`
}

// RunExpect specifies the expected outcome of a run.
type RunExpect struct {
	// Fatal expects the run to abort before writing.
	Fatal bool `yaml:"fatal,omitempty"`

	// Counts is a subset match on report counters, keyed by their JSON
	// names (inserted, updated, reactivated, removed, unchanged, ...).
	Counts map[string]int `yaml:"counts,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record": a row exists, optionally with a status and attribute subset
	// - "absent": no row exists for the natural id
	// - "changelog": the natural id's changelog operations, in order
	// - "status_counts": number of rows per status (subset match)
	Type string `yaml:"type"`

	// NaturalID selects the row (record, absent, changelog).
	NaturalID string `yaml:"natural_id,omitempty"`

	// Status is the expected row status (record).
	Status string `yaml:"status,omitempty"`

	// Attrs are expected payload attributes (record). Subset match.
	Attrs map[string]interface{} `yaml:"attrs,omitempty"`

	// Operations is the expected changelog sequence (changelog).
	Operations []string `yaml:"operations,omitempty"`

	// Counts are expected row counts per status (status_counts).
	Counts map[string]int `yaml:"counts,omitempty"`
}

// Assertion type constants.
const (
	AssertRecord       = "record"
	AssertAbsent       = "absent"
	AssertChangelog    = "changelog"
	AssertStatusCounts = "status_counts"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Feed paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, run := range scenario.Runs {
		if run.Feed != "" && !filepath.IsAbs(run.Feed) {
			scenario.Runs[i].Feed = filepath.Join(base, run.Feed)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Source == "" {
		return fmt.Errorf("source is required")
	}
	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, seed := range s.Seed {
		if seed.NaturalID == "" {
			return fmt.Errorf("seed[%d]: natural_id is required", i)
		}
		switch ir.Status(seed.Status) {
		case "", ir.StatusActive, ir.StatusInactive, ir.StatusDeleted:
		default:
			return fmt.Errorf("seed[%d]: unknown status %q", i, seed.Status)
		}
		if seed.Attrs == nil {
			return fmt.Errorf("seed[%d]: attrs is required", i)
		}
	}

	for i, run := range s.Runs {
		if run.Feed != "" && run.Records != nil {
			return fmt.Errorf("runs[%d]: records and feed are mutually exclusive", i)
		}
		if run.Feed == "" && run.Records == nil {
			return fmt.Errorf("runs[%d]: records or feed is required (use an empty list for an empty feed)", i)
		}
		if run.Feed != "" {
			if _, err := os.Stat(run.Feed); err != nil {
				return fmt.Errorf("runs[%d]: feed file not found: %s", i, run.Feed)
			}
		}
		if run.Expect != nil {
			for key := range run.Expect.Counts {
				if !isCounter(key) {
					return fmt.Errorf("runs[%d].expect: unknown counter %q", i, key)
				}
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRecord, AssertAbsent:
		if a.NaturalID == "" {
			return fmt.Errorf("assertions[%d]: natural_id is required for %s", index, a.Type)
		}
	case AssertChangelog:
		if a.NaturalID == "" {
			return fmt.Errorf("assertions[%d]: natural_id is required for changelog", index)
		}
		if a.Operations == nil {
			return fmt.Errorf("assertions[%d]: operations list is required for changelog", index)
		}
	case AssertStatusCounts:
		if len(a.Counts) == 0 {
			return fmt.Errorf("assertions[%d]: counts is required for status_counts", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
