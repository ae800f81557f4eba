// Package harness runs reconciliation scenarios described in YAML.
//
// A scenario seeds the mirror of one source, runs one or more feeds through
// the reconciliation coordinator against a fresh in-memory SQLite store, and
// then checks per-run counters, assertions on the final rows and changelog,
// and optionally a golden snapshot of the final state:
//
//	name: reactivate_inactive
//	description: An inactive row that reappears is reactivated in place
//	source: SIMS
//	id_field: naturalId
//	seed:
//	  - natural_id: "002"
//	    status: inactive
//	    attrs: {naturalId: "002", name: Bob}
//	runs:
//	  - records:
//	      - {naturalId: "002", name: Bob}
//	    expect:
//	      counts: {reactivated: 1}
//	assertions:
//	  - type: changelog
//	    natural_id: "002"
//	    operations: [insert, deactivate, reactivate]
//
// Runs use inline records (a generic feed keyed by id_field) or a feed file
// (XML extract or JSON feed, path relative to the scenario file). A run can
// inject write failures for given natural ids or a snapshot load failure.
//
// Scenarios are deterministic: the store clock steps one second per
// timestamp and run ids are run-1, run-2, ... Golden snapshots leave out
// timestamps, uuids and fingerprints, and order changelog entries per
// natural id so concurrent writes within a run cannot reorder them.
package harness
