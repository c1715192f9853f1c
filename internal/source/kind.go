package source

import (
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/rulegen/internal/ir"
)

// KindSpec binds a resource kind to the file extensions that select it.
type KindSpec struct {
	Kind       ir.ResourceKind
	Extensions []string // lower-case, with leading dot
}

// Registry is a closed table of known resource kinds.
// A Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	kinds []ir.ResourceKind
	byExt map[string]ir.ResourceKind
}

// NewRegistry builds a registry from the given specs. Later specs win when
// two specs claim the same extension.
func NewRegistry(specs ...KindSpec) *Registry {
	r := &Registry{byExt: make(map[string]ir.ResourceKind)}
	for _, spec := range specs {
		if !slices.Contains(r.kinds, spec.Kind) {
			r.kinds = append(r.kinds, spec.Kind)
		}
		for _, ext := range spec.Extensions {
			r.byExt[strings.ToLower(ext)] = spec.Kind
		}
	}
	return r
}

// Default returns the process-wide registry.
var Default = sync.OnceValue(func() *Registry {
	return NewRegistry(
		KindSpec{Kind: ir.ResourceRuleText, Extensions: []string{".drl"}},
		KindSpec{Kind: ir.ResourceDecisionTable, Extensions: []string{".csv", ".xls", ".xlsx"}},
	)
})

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []ir.ResourceKind {
	return slices.Clone(r.kinds)
}

// Known reports whether kind is registered.
func (r *Registry) Known(kind ir.ResourceKind) bool {
	return slices.Contains(r.kinds, kind)
}

// KindOf returns the kind selected by the extension of path.
func (r *Registry) KindOf(path string) (ir.ResourceKind, bool) {
	kind, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return kind, ok
}

// Classify determines the resource kind of path. An explicit kind wins over
// the extension but must itself be registered.
func (r *Registry) Classify(path string, explicit ir.ResourceKind) (ir.ResourceKind, error) {
	if explicit != ir.ResourceUnspecified {
		if !r.Known(explicit) {
			return "", ir.Errorf(ir.ErrUnsupportedResourceType, path, 0, "unknown resource kind %q", explicit)
		}
		return explicit, nil
	}
	kind, ok := r.KindOf(path)
	if !ok {
		return "", ir.Errorf(ir.ErrUnsupportedResourceType, path, 0,
			"no resource kind for extension %q", filepath.Ext(path))
	}
	return kind, nil
}

// ParseKind converts a user-facing kind name into a ResourceKind.
// Accepts the canonical names plus the short aliases "drl" and "dtable".
func (r *Registry) ParseKind(name string) (ir.ResourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return ir.ResourceUnspecified, nil
	case "drl":
		return ir.ResourceRuleText, nil
	case "dtable", "xls", "xlsx", "csv":
		return ir.ResourceDecisionTable, nil
	}
	kind := ir.ResourceKind(strings.ToLower(strings.TrimSpace(name)))
	if !r.Known(kind) {
		return "", ir.Errorf(ir.ErrUnsupportedResourceType, "", 0, "unknown resource kind %q", name)
	}
	return kind, nil
}
