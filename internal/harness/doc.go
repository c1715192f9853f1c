// Package harness runs generation scenarios as executable contract tests.
//
// A scenario materializes a small source tree, runs one code generation
// session over it, writes the build to a scratch output directory and
// checks the artifact inventory against expectations and assertions.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	sources:
//	  org/acme/rules.drl: |
//	    package org.acme;
//	    rule "Check age" when then end
//	inputs:            # optional: explicit files, otherwise the tree is walked
//	  - org/acme/rules.drl
//	kind: drl          # optional resource kind
//	package: com.acme  # optional fallback package
//	hot_reload: false
//	expect:
//	  total: 3
//	  packages: 1
//	  units: 0
//	  rules: 1
//	assertions:
//	  - type: artifact_exists
//	    name: rules/org/acme/rule_check_age.go
//	    kind: rule
//	  - type: kind_count
//	    kind: rule
//	    count: 1
//
// A scenario that expects a failure sets expect.error to an ir.ErrorCode and
// carries no assertions.
//
// # Assertion Types
//
//   - artifact_exists: an artifact with the logical name (and kind, when given) was emitted
//   - artifact_absent: no artifact with the logical name was emitted
//   - artifact_order: the named artifacts appear in the given relative order
//   - kind_count: exactly count artifacts of kind were emitted
//   - content_contains: the named artifact's content contains text
//   - file_exists: the named artifact was written to the output directory
//
// # Invariants
//
// Every successful run is also checked against the emission invariants: the
// artifact total follows the emission formula, the unit registry is present
// exactly when units exist, and logical names are unique.
//
// # Deterministic Testing
//
// Each run uses a fresh temp directory, an in-memory SQLite build cache and
// sequential build IDs, so results and golden manifests are reproducible.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/recursive_tree.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
