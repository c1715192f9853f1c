package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/rulegen/internal/ir"
)

// DefaultPackage is used for sources that declare no package when no
// override is configured.
const DefaultPackage = "defaultpkg"

// Options configures model building.
type Options struct {
	// PackageName is the fallback package for sources that declare none.
	PackageName string

	// Concurrency bounds parallel parsing. Zero or negative means GOMAXPROCS.
	Concurrency int

	// Logger receives debug output. nil means slog.Default().
	Logger *slog.Logger
}

type parseFunc func(ir.SourceArtifact) (*ParsedSource, error)

// parsers is the closed dispatch table from resource kind to structural parser.
var parsers = map[ir.ResourceKind]parseFunc{
	ir.ResourceRuleText:      ParseRuleText,
	ir.ResourceDecisionTable: ParseDecisionTable,
}

// Parse dispatches src to the parser registered for its kind.
func Parse(src ir.SourceArtifact) (*ParsedSource, error) {
	parse, ok := parsers[src.Kind]
	if !ok {
		return nil, ir.Errorf(ir.ErrUnsupportedResourceType, src.Location, 0, "no parser for resource kind %q", src.Kind)
	}
	return parse(src)
}

// Build parses every source and merges the results into a Model.
//
// Parsing runs in parallel; merging is serial in source order, so packages,
// units and rules appear in discovery order regardless of scheduling. When
// several sources fail, the error of the earliest source is returned.
func Build(ctx context.Context, sources []ir.SourceArtifact, opts Options) (*ir.Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PackageName != "" && !ValidPackageName(opts.PackageName) {
		return nil, ir.Errorf(ir.ErrMalformedSource, "", 0, "invalid package name override %q", opts.PackageName)
	}

	parsed, err := parseAll(ctx, sources, opts.Concurrency)
	if err != nil {
		return nil, err
	}

	model, err := merge(parsed, opts.PackageName)
	if err != nil {
		return nil, err
	}

	logger.Debug("model built",
		"sources", len(sources),
		"packages", len(model.Packages),
		"units", len(model.Units),
		"rules", model.RuleCount())
	return model, nil
}

func parseAll(ctx context.Context, sources []ir.SourceArtifact, limit int) ([]*ParsedSource, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]*ParsedSource, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Parse failures are recorded, not returned, so every source is
			// parsed and the earliest failure can be reported.
			ps, err := Parse(src)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = ps
			return nil
		})
	}
	waitErr := g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if waitErr != nil {
		return nil, fmt.Errorf("parsing sources: %w", waitErr)
	}
	return results, nil
}

func merge(parsed []*ParsedSource, override string) (*ir.Model, error) {
	model := &ir.Model{}
	packages := make(map[string]*ir.RulePackage)
	ruleNames := make(map[string]map[string]ir.RuleDefinition)
	units := make(map[string]int)

	for _, ps := range parsed {
		name := ps.Package
		if name == "" {
			name = override
		}
		if name == "" {
			name = DefaultPackage
		}

		pkg, ok := packages[name]
		if !ok {
			pkg = &ir.RulePackage{Name: name}
			packages[name] = pkg
			ruleNames[name] = make(map[string]ir.RuleDefinition)
			model.Packages = append(model.Packages, pkg)
		}
		if !slices.Contains(pkg.Sources, ps.Location) {
			pkg.Sources = append(pkg.Sources, ps.Location)
		}

		for _, r := range ps.Rules {
			if prev, dup := ruleNames[name][r.Name]; dup {
				return nil, ir.Errorf(ir.ErrDuplicateRuleDefinition, ps.Location, r.Line,
					"rule %q already defined in package %q at %s:%d", r.Name, name, prev.Source, prev.Line)
			}
			def := ir.RuleDefinition{
				Name:    r.Name,
				Package: name,
				Unit:    ps.Unit,
				Source:  ps.Location,
				Line:    r.Line,
				Body:    r.Body,
			}
			ruleNames[name][r.Name] = def
			pkg.Rules = append(pkg.Rules, def)
		}

		if ps.Unit == "" {
			continue
		}
		if !pkg.HasUnit(ps.Unit) {
			pkg.UnitNames = append(pkg.UnitNames, ps.Unit)
		}
		idx, ok := units[ps.Unit]
		if !ok {
			idx = len(model.Units)
			units[ps.Unit] = idx
			model.Units = append(model.Units, ir.RuleUnit{Name: ps.Unit})
		}
		if !slices.Contains(model.Units[idx].Packages, name) {
			model.Units[idx].Packages = append(model.Units[idx].Packages, name)
		}
	}

	return model, nil
}
