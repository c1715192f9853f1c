// Package compiler turns loaded rule sources into the package/unit/rule
// model consumed by the emitter.
//
// Parsing is structural only. Rule text is scanned for package and unit
// declarations and rule boundaries; decision tables are scanned for
// RuleSet, Unit and RuleTable blocks, one rule per data row. Condition and
// action semantics are never interpreted.
//
// Build parses sources in parallel and merges them serially in discovery
// order:
//
//	model, err := compiler.Build(ctx, sources, compiler.Options{PackageName: "com.acme"})
package compiler
