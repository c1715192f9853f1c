package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Manifest renders the result's artifacts one per line as "<kind> <name>"
// in emission order. Hashes are left out so template changes do not churn
// golden files.
func Manifest(result *Result) []byte {
	var b strings.Builder
	for _, a := range result.Artifacts {
		fmt.Fprintf(&b, "%s %s\n", a.Kind, a.Name)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its manifest against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can make further checks.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the result's manifest against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Manifest(result))
}
