package ir

// ResourceKind identifies how a source artifact is parsed.
type ResourceKind string

const (
	// ResourceUnspecified asks the classifier to infer the kind from the file extension.
	ResourceUnspecified ResourceKind = ""

	// ResourceRuleText is a textual rule definition file (.drl).
	ResourceRuleText ResourceKind = "rule_text"

	// ResourceDecisionTable is a spreadsheet decision table (.csv, .xls, .xlsx).
	ResourceDecisionTable ResourceKind = "decision_table"
)

// SourceArtifact is one loaded rule source. Immutable once loaded.
type SourceArtifact struct {
	Location string       `json:"location"`
	Kind     ResourceKind `json:"kind"`
	Content  []byte       `json:"-"`
}

// RuleDefinition is one rule discovered in a source artifact.
type RuleDefinition struct {
	Name    string `json:"name"`
	Package string `json:"package"`
	Unit    string `json:"unit,omitempty"`
	Source  string `json:"source"` // location of the owning SourceArtifact
	Line    int    `json:"line"`   // 1-based line (rule text) or sheet row (decision table)
	Body    string `json:"body,omitempty"`
}

// RulePackage groups rules by package name. Artifacts declaring the same
// package name contribute to the same RulePackage.
type RulePackage struct {
	Name      string           `json:"name"`
	Rules     []RuleDefinition `json:"rules"`
	UnitNames []string         `json:"unit_names,omitempty"` // ordered set
	Sources   []string         `json:"sources"`              // ordered set
}

// HasUnit reports whether the package references the named unit.
func (p *RulePackage) HasUnit(name string) bool {
	for _, u := range p.UnitNames {
		if u == name {
			return true
		}
	}
	return false
}

// Rule returns the rule with the given name, if any.
func (p *RulePackage) Rule(name string) (RuleDefinition, bool) {
	for _, r := range p.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return RuleDefinition{}, false
}

// RuleUnit is a session-wide, cross-package rule unit. Its identity is the name alone.
type RuleUnit struct {
	Name     string   `json:"name"`
	Packages []string `json:"packages"` // packages whose rules reference the unit, discovery order
}

// Model is the package/unit/rule inventory produced by the model builder.
type Model struct {
	Packages []*RulePackage `json:"packages"`
	Units    []RuleUnit     `json:"units"`
}

// Package returns the package with the given name, or nil.
func (m *Model) Package(name string) *RulePackage {
	for _, p := range m.Packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// RuleCount returns the number of rules across all packages.
func (m *Model) RuleCount() int {
	n := 0
	for _, p := range m.Packages {
		n += len(p.Rules)
	}
	return n
}

// ArtifactKind tags a generated artifact.
type ArtifactKind string

const (
	KindRule              ArtifactKind = "rule"
	KindPackageDescriptor ArtifactKind = "package_descriptor"
	KindPackageMetadata   ArtifactKind = "package_metadata"
	KindUnitClass         ArtifactKind = "unit_class"
	KindUnitInstance      ArtifactKind = "unit_instance"
	KindUnitModel         ArtifactKind = "unit_model"
	KindUnitRegistry      ArtifactKind = "unit_registry"
)

// ArtifactKinds lists every artifact kind in emission order.
var ArtifactKinds = []ArtifactKind{
	KindRule,
	KindPackageDescriptor,
	KindPackageMetadata,
	KindUnitClass,
	KindUnitInstance,
	KindUnitModel,
	KindUnitRegistry,
}

// GeneratedArtifact is one emitted output file.
type GeneratedArtifact struct {
	LogicalName string       `json:"logical_name"` // slash-separated path relative to the output root
	Kind        ArtifactKind `json:"kind"`
	Package     string       `json:"package,omitempty"`
	Unit        string       `json:"unit,omitempty"`
	Rule        string       `json:"rule,omitempty"`
	Content     []byte       `json:"-"`
	Hash        string       `json:"hash"`
}
