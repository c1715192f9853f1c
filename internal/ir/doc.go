// Package ir provides the shared model types for rulegen.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal, so the
// model stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Slices, never maps, carry anything whose order reaches the output
//     (packages, units, rules, artifacts keep discovery order)
//   - Model values are never mutated once the builder hands them out
//   - All JSON tags use snake_case
package ir
