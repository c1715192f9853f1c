// Package codegen drives rule code generation: it locates sources, builds
// the package/unit model and emits the generated artifacts.
//
// For every session the artifact count follows one formula:
//
//	total = rules + 2*packages + 3*units (+1 registry when units > 0)
//
// Hot-reload mode changes how package descriptors resolve rules but never
// the artifact set: counts, kinds, order and logical names are identical in
// both modes.
package codegen
