// Package harness runs entity-cache scenarios: YAML files that seed a data
// service, dispatch actions through a real store and assert on the
// resulting action trace, the final cache and runtime failures.
//
// # Scenario Format
//
//	name: hero_query_all
//	description: "Query-all loads the seeded heroes"
//	entities:
//	  - entities/heroes.cue
//	seed:
//	  Hero:
//	    - { id: 1, name: "Ada" }
//	flow:
//	  - entity: Hero
//	    op: entity/query-all
//	effects:
//	  - name: audit
//	    when: 'entity_op == "entity/query-all/success"'
//	    emit: { action: "audit/loaded" }
//	    data_expr: '{count: len(data)}'
//	assertions:
//	  - type: trace_contains
//	    action: "[Hero] entity/query-all/success"
//	  - type: final_state
//	    entity: Hero
//	    ids: ["1"]
//	    loaded: true
//
// A step selects its action kind with exactly one of entity (with op),
// cache (a cache-wide op) or action (a plain action type).
//
// # Assertion Types
//
//   - trace_contains: an action type appears, optionally with matching data
//   - trace_order: action types appear in order
//   - trace_count: an action type appears exactly N times
//   - final_state: one collection's ids, records, flags and change state
//   - error_count: the number of runtime failures, optionally of one code
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite database as both data service
// and action log, a logical clock starting at zero, and either a fixed
// (correlation_id) or counting correlation-id generator. The trace is read
// back from the action log, so identical scenarios produce byte-identical
// golden snapshots.
package harness
