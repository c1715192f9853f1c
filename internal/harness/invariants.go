package harness

import (
	"fmt"

	"github.com/roach88/rulegen/internal/ir"
)

// checkInvariants verifies the properties every successful generation run
// has regardless of its sources. It returns one message per violation.
func checkInvariants(result *Result) []string {
	var violations []string

	c := result.Counts
	want := c.Rules + 2*c.Packages + 3*c.Units
	if c.Units > 0 {
		want++
	}
	if c.Total != want {
		violations = append(violations, fmt.Sprintf(
			"invariant: %d rules, %d packages and %d units must emit %d artifacts, got %d",
			c.Rules, c.Packages, c.Units, want, c.Total))
	}

	counts := make(map[ir.ArtifactKind]int)
	seen := make(map[string]bool, len(result.Artifacts))
	for _, a := range result.Artifacts {
		counts[a.Kind]++
		if seen[a.Name] {
			violations = append(violations, fmt.Sprintf("invariant: logical name %s emitted twice", a.Name))
		}
		seen[a.Name] = true
	}

	registries := 0
	if c.Units > 0 {
		registries = 1
	}
	expected := map[ir.ArtifactKind]int{
		ir.KindRule:              c.Rules,
		ir.KindPackageDescriptor: c.Packages,
		ir.KindPackageMetadata:   c.Packages,
		ir.KindUnitClass:         c.Units,
		ir.KindUnitInstance:      c.Units,
		ir.KindUnitModel:         c.Units,
		ir.KindUnitRegistry:      registries,
	}
	for _, kind := range ir.ArtifactKinds {
		if counts[kind] != expected[kind] {
			violations = append(violations, fmt.Sprintf(
				"invariant: expected %d artifacts of kind %s, got %d", expected[kind], kind, counts[kind]))
		}
	}

	if n := len(result.Artifacts); n > 0 && c.Units > 0 && result.Artifacts[n-1].Kind != ir.KindUnitRegistry {
		violations = append(violations, "invariant: unit registry must be the last artifact")
	}
	return violations
}
