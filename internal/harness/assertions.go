package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/rulegen/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the emitted manifest to help debug the failure.
type AssertionError struct {
	Type      string // Assertion type for categorization
	Expected  string
	Actual    string
	Artifacts []ArtifactEntry
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nEmitted artifacts:\n")
	for i, a := range e.Artifacts {
		fmt.Fprintf(&buf, "  [%d] %s (%s)\n", i+1, a.Name, a.Kind)
	}
	return buf.String()
}

// evaluateAssertion dispatches an assertion to its checker. outDir is the
// directory the build was written to.
func evaluateAssertion(result *Result, assertion Assertion, outDir string) error {
	switch assertion.Type {
	case AssertArtifactExists:
		return assertArtifactExists(result, assertion)
	case AssertArtifactAbsent:
		return assertArtifactAbsent(result, assertion)
	case AssertArtifactOrder:
		return assertArtifactOrder(result, assertion)
	case AssertKindCount:
		return assertKindCount(result, assertion)
	case AssertContentContains:
		return assertContentContains(result, assertion)
	case AssertFileExists:
		return assertFileExists(result, assertion, outDir)
	default:
		return fmt.Errorf("unknown assertion type: %s", assertion.Type)
	}
}

func assertArtifactExists(result *Result, assertion Assertion) error {
	a, ok := result.Artifact(assertion.Name)
	if !ok {
		return &AssertionError{
			Type:      AssertArtifactExists,
			Expected:  fmt.Sprintf("artifact %s", assertion.Name),
			Actual:    "not emitted",
			Artifacts: result.Artifacts,
		}
	}
	if assertion.Kind != "" && a.Kind != ir.ArtifactKind(assertion.Kind) {
		return &AssertionError{
			Type:      AssertArtifactExists,
			Expected:  fmt.Sprintf("artifact %s of kind %s", assertion.Name, assertion.Kind),
			Actual:    fmt.Sprintf("kind %s", a.Kind),
			Artifacts: result.Artifacts,
		}
	}
	return nil
}

func assertArtifactAbsent(result *Result, assertion Assertion) error {
	if _, ok := result.Artifact(assertion.Name); ok {
		return &AssertionError{
			Type:      AssertArtifactAbsent,
			Expected:  fmt.Sprintf("no artifact %s", assertion.Name),
			Actual:    "emitted",
			Artifacts: result.Artifacts,
		}
	}
	return nil
}

// assertArtifactOrder checks that the named artifacts appear in the given
// order. Other artifacts may appear in between.
func assertArtifactOrder(result *Result, assertion Assertion) error {
	positions := make(map[string]int, len(result.Artifacts))
	for i, a := range result.Artifacts {
		positions[a.Name] = i
	}

	prev := -1
	for _, name := range assertion.Names {
		pos, ok := positions[name]
		if !ok {
			return &AssertionError{
				Type:      AssertArtifactOrder,
				Expected:  fmt.Sprintf("order %v", assertion.Names),
				Actual:    fmt.Sprintf("%s not emitted", name),
				Artifacts: result.Artifacts,
			}
		}
		if pos < prev {
			return &AssertionError{
				Type:      AssertArtifactOrder,
				Expected:  fmt.Sprintf("order %v", assertion.Names),
				Actual:    fmt.Sprintf("%s emitted at position %d, before its predecessor", name, pos+1),
				Artifacts: result.Artifacts,
			}
		}
		prev = pos
	}
	return nil
}

func assertKindCount(result *Result, assertion Assertion) error {
	count := 0
	for _, a := range result.Artifacts {
		if a.Kind == ir.ArtifactKind(assertion.Kind) {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:      AssertKindCount,
			Expected:  fmt.Sprintf("%d artifacts of kind %s", assertion.Count, assertion.Kind),
			Actual:    fmt.Sprintf("%d", count),
			Artifacts: result.Artifacts,
		}
	}
	return nil
}

func assertContentContains(result *Result, assertion Assertion) error {
	a, ok := result.Artifact(assertion.Name)
	if !ok {
		return &AssertionError{
			Type:      AssertContentContains,
			Expected:  fmt.Sprintf("artifact %s containing %q", assertion.Name, assertion.Text),
			Actual:    "not emitted",
			Artifacts: result.Artifacts,
		}
	}
	if !bytes.Contains(a.Content, []byte(assertion.Text)) {
		return &AssertionError{
			Type:      AssertContentContains,
			Expected:  fmt.Sprintf("artifact %s containing %q", assertion.Name, assertion.Text),
			Actual:    "text not found",
			Artifacts: result.Artifacts,
		}
	}
	return nil
}

func assertFileExists(result *Result, assertion Assertion, outDir string) error {
	info, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(assertion.Name)))
	if err != nil || !info.Mode().IsRegular() {
		return &AssertionError{
			Type:      AssertFileExists,
			Expected:  fmt.Sprintf("file %s in the output directory", assertion.Name),
			Actual:    "missing",
			Artifacts: result.Artifacts,
		}
	}
	return nil
}
