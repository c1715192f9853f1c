package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rulegen/internal/ir"
	"github.com/roach88/rulegen/internal/source"
)

// Scenario defines a generation scenario: a source tree, the session
// settings to run it with, and what the run must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sources maps slash-separated relative paths to file contents.
	Sources map[string]string `yaml:"sources"`

	// Inputs lists the files passed to an explicit-file session, in order.
	// If empty, the whole tree is walked.
	Inputs []string `yaml:"inputs,omitempty"`

	// Kind restricts or forces the resource kind ("drl", "dtable", ...).
	Kind string `yaml:"kind,omitempty"`

	// Package is the fallback package for sources without a declaration.
	Package string `yaml:"package,omitempty"`

	HotReload bool `yaml:"hot_reload,omitempty"`

	// Expect holds inventory expectations.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the emitted artifacts.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies the expected inventory. Nil counts are not checked.
type ExpectClause struct {
	// Error is the expected ir.ErrorCode. When set the run must fail with it.
	Error string `yaml:"error,omitempty"`

	Sources  *int `yaml:"sources,omitempty"`
	Packages *int `yaml:"packages,omitempty"`
	Units    *int `yaml:"units,omitempty"`
	Rules    *int `yaml:"rules,omitempty"`
	Total    *int `yaml:"total,omitempty"`
}

// Assertion validates the emitted artifacts.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Name is a logical artifact name (artifact_exists, artifact_absent,
	// content_contains, file_exists).
	Name string `yaml:"name,omitempty"`

	// Kind is an artifact kind (kind_count, optionally artifact_exists).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of artifacts (kind_count).
	Count int `yaml:"count,omitempty"`

	// Names is the expected relative order (artifact_order).
	Names []string `yaml:"names,omitempty"`

	// Text is the expected substring (content_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertArtifactExists  = "artifact_exists"
	AssertArtifactAbsent  = "artifact_absent"
	AssertArtifactOrder   = "artifact_order"
	AssertKindCount       = "kind_count"
	AssertContentContains = "content_contains"
	AssertFileExists      = "file_exists"
)

var errorCodes = []ir.ErrorCode{
	ir.ErrResourceNotFound,
	ir.ErrUnsupportedResourceType,
	ir.ErrMalformedSource,
	ir.ErrDuplicateRuleDefinition,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Sources) == 0 {
		return fmt.Errorf("sources map is required and must be non-empty")
	}
	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	for name := range s.Sources {
		if !validRelPath(name) {
			return fmt.Errorf("sources: %q is not a relative slash-separated path", name)
		}
	}
	for i, in := range s.Inputs {
		if _, ok := s.Sources[in]; !ok {
			return fmt.Errorf("inputs[%d]: %q is not one of the sources", i, in)
		}
	}

	if _, err := source.Default().ParseKind(s.Kind); err != nil {
		return fmt.Errorf("kind: %w", err)
	}

	if s.Expect != nil && s.Expect.Error != "" {
		if !knownErrorCode(s.Expect.Error) {
			return fmt.Errorf("expect.error: unknown error code %q", s.Expect.Error)
		}
		if len(s.Assertions) > 0 {
			return fmt.Errorf("assertions cannot be combined with expect.error")
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertArtifactExists, AssertArtifactAbsent, AssertFileExists:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for %s", index, a.Type)
		}
		if a.Kind != "" && !knownArtifactKind(a.Kind) {
			return fmt.Errorf("assertions[%d]: unknown artifact kind %q", index, a.Kind)
		}
	case AssertArtifactOrder:
		if len(a.Names) < 2 {
			return fmt.Errorf("assertions[%d]: names needs at least two entries for artifact_order", index)
		}
	case AssertKindCount:
		if !knownArtifactKind(a.Kind) {
			return fmt.Errorf("assertions[%d]: unknown artifact kind %q", index, a.Kind)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for kind_count", index)
		}
	case AssertContentContains:
		if a.Name == "" || a.Text == "" {
			return fmt.Errorf("assertions[%d]: name and text are required for content_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func validRelPath(name string) bool {
	return path.Clean(name) == name && filepath.IsLocal(filepath.FromSlash(name))
}

func knownErrorCode(code string) bool {
	return slices.Contains(errorCodes, ir.ErrorCode(code))
}

func knownArtifactKind(kind string) bool {
	return slices.Contains(ir.ArtifactKinds, ir.ArtifactKind(kind))
}
