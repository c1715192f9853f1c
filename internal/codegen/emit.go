package codegen

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/roach88/rulegen/internal/ir"
)

// Mode selects the generation strategy. Both modes emit the same artifact
// set; they differ only in how the package descriptor resolves rules.
type Mode string

const (
	// ModeAOT precomputes a rule index in each package descriptor.
	ModeAOT Mode = "aot"

	// ModeHotReload resolves rules through per-rule constructors on every
	// lookup, so single rule files can be regenerated in place.
	ModeHotReload Mode = "hot-reload"
)

// Emitter turns a model into generated artifacts.
type Emitter struct {
	mode   Mode
	logger *slog.Logger
}

// NewEmitter creates an emitter for the given mode. A nil logger means slog.Default().
func NewEmitter(mode Mode, logger *slog.Logger) *Emitter {
	if mode == "" {
		mode = ModeAOT
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{mode: mode, logger: logger}
}

// Mode returns the emitter's generation mode.
func (e *Emitter) Mode() Mode {
	return e.mode
}

// Emit renders every artifact of model in emission order: per package its
// rules, descriptor and metadata; then per unit its class, instance and
// model; then the unit registry when the model has units.
func (e *Emitter) Emit(ctx context.Context, model *ir.Model) ([]ir.GeneratedArtifact, error) {
	artifacts := make([]ir.GeneratedArtifact, 0, ExpectedTotal(model))

	for _, pkg := range model.Packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := e.emitPackage(pkg)
		if err != nil {
			return nil, fmt.Errorf("emitting package %s: %w", pkg.Name, err)
		}
		artifacts = append(artifacts, out...)
	}

	units := e.unitData(model)
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := e.emitUnit(u)
		if err != nil {
			return nil, fmt.Errorf("emitting unit %s: %w", u.Name, err)
		}
		artifacts = append(artifacts, out...)
	}

	if len(units) > 0 {
		content, err := renderGo(tmplRegistry, registryData{Version: ir.GeneratorVersion, Units: units})
		if err != nil {
			return nil, fmt.Errorf("emitting unit registry: %w", err)
		}
		artifacts = append(artifacts, newArtifact(path.Join(unitsRoot, "registry.go"), ir.KindUnitRegistry, content))
	}

	if want := ExpectedTotal(model); len(artifacts) != want {
		return nil, fmt.Errorf("emitted %d artifacts, expected %d", len(artifacts), want)
	}

	e.logger.Debug("artifacts emitted", "mode", e.mode, "count", len(artifacts))
	return artifacts, nil
}

func (e *Emitter) emitPackage(pkg *ir.RulePackage) ([]ir.GeneratedArtifact, error) {
	namer := newRuleNamer(pkg.Name)
	dir := packageDir(pkg.Name)
	goPkg := goPackageName(pkg.Name)

	rules := make([]ruleData, len(pkg.Rules))
	out := make([]ir.GeneratedArtifact, 0, len(pkg.Rules)+2)

	for i, r := range pkg.Rules {
		n := namer.name(r.Name)
		rules[i] = newRuleData(r, n)

		content, err := renderGo(tmplRule, ruleFileData{
			Version:   ir.GeneratorVersion,
			GoPackage: goPkg,
			Rule:      rules[i],
		})
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		a := newArtifact(n.LogicalName, ir.KindRule, content)
		a.Package = pkg.Name
		a.Unit = r.Unit
		a.Rule = r.Name
		out = append(out, a)
	}

	descriptor, err := renderGo(tmplPackage, packageData{
		Version:   ir.GeneratorVersion,
		GoPackage: goPkg,
		Name:      pkg.Name,
		Mode:      string(e.mode),
		HotReload: e.mode == ModeHotReload,
		Units:     pkg.UnitNames,
		Rules:     rules,
	})
	if err != nil {
		return nil, err
	}
	a := newArtifact(path.Join(dir, "package.go"), ir.KindPackageDescriptor, descriptor)
	a.Package = pkg.Name
	out = append(out, a)

	meta := packageMetadata{
		Package:   pkg.Name,
		GoPackage: goPkg,
		Mode:      string(e.mode),
		Generator: ir.GeneratorVersion,
		Schema:    ir.ArtifactSchemaVersion,
		Units:     pkg.UnitNames,
		Sources:   make([]string, len(pkg.Sources)),
		Rules:     make([]ruleMetadata, len(rules)),
	}
	for i, s := range pkg.Sources {
		meta.Sources[i] = filepath.Base(s)
	}
	for i, r := range rules {
		meta.Rules[i] = ruleMetadata{Name: r.Name, File: r.File, Unit: r.Unit, Source: r.Source, Line: r.Line}
	}
	metadata, err := renderYAML(meta)
	if err != nil {
		return nil, err
	}
	a = newArtifact(path.Join(dir, "package_meta.yaml"), ir.KindPackageMetadata, metadata)
	a.Package = pkg.Name
	out = append(out, a)

	return out, nil
}

func (e *Emitter) emitUnit(u unitData) ([]ir.GeneratedArtifact, error) {
	files := []struct {
		tmpl string
		file string
		kind ir.ArtifactKind
	}{
		{tmplUnit, "unit.go", ir.KindUnitClass},
		{tmplInstance, "instance.go", ir.KindUnitInstance},
		{tmplModel, "model.go", ir.KindUnitModel},
	}

	out := make([]ir.GeneratedArtifact, 0, len(files))
	for _, f := range files {
		content, err := renderGo(f.tmpl, u)
		if err != nil {
			return nil, err
		}
		a := newArtifact(path.Join(u.Dir, f.file), f.kind, content)
		a.Unit = u.Name
		out = append(out, a)
	}
	return out, nil
}

// unitData resolves output directories and rule membership for every unit.
func (e *Emitter) unitData(model *ir.Model) []unitData {
	namer := newUnitNamer()
	units := make([]unitData, len(model.Units))
	for i, u := range model.Units {
		dir := namer.dir(u.Name)
		units[i] = unitData{
			Version:   ir.GeneratorVersion,
			GoPackage: goPackageName(dir),
			Name:      u.Name,
			Dir:       dir,
			Packages:  u.Packages,
		}
	}

	index := make(map[string]int, len(units))
	for i, u := range units {
		index[u.Name] = i
	}
	for _, pkg := range model.Packages {
		for _, r := range pkg.Rules {
			if i, ok := index[r.Unit]; ok {
				units[i].Rules = append(units[i].Rules, ruleData{Name: r.Name, Package: r.Package, Unit: r.Unit})
			}
		}
	}
	return units
}

func newRuleData(r ir.RuleDefinition, n ruleName) ruleData {
	return ruleData{
		Name:    r.Name,
		Package: r.Package,
		Unit:    r.Unit,
		Source:  filepath.Base(r.Source),
		Line:    r.Line,
		Body:    r.Body,
		Ident:   n.Ident,
		File:    path.Base(n.LogicalName),
	}
}

func newArtifact(logicalName string, kind ir.ArtifactKind, content []byte) ir.GeneratedArtifact {
	return ir.GeneratedArtifact{
		LogicalName: logicalName,
		Kind:        kind,
		Content:     content,
		Hash:        ir.ArtifactHash(logicalName, kind, content),
	}
}

// ExpectedTotal returns the artifact count the emission formula prescribes
// for model: rules + 2*packages + 3*units, plus one registry when units exist.
func ExpectedTotal(model *ir.Model) int {
	total := model.RuleCount() + 2*len(model.Packages) + 3*len(model.Units)
	if len(model.Units) > 0 {
		total++
	}
	return total
}

// CountByKind tallies artifacts per kind.
func CountByKind(artifacts []ir.GeneratedArtifact) map[ir.ArtifactKind]int {
	counts := make(map[ir.ArtifactKind]int, len(ir.ArtifactKinds))
	for _, a := range artifacts {
		counts[a.Kind]++
	}
	return counts
}
