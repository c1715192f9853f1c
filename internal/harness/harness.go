package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/rulegen/internal/codegen"
	"github.com/roach88/rulegen/internal/ir"
	"github.com/roach88/rulegen/internal/outdir"
	"github.com/roach88/rulegen/internal/source"
	"github.com/roach88/rulegen/internal/store"
	"github.com/roach88/rulegen/internal/testutil"
)

// Harness executes one scenario in an isolated workspace.
type Harness struct {
	store  *store.Store
	srcDir string
	outDir string
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temp directory with an in-memory build
// cache. Execution flow:
//  1. Materialize the sources
//  2. Run the generation session
//  3. Write the build to a scratch output directory
//  4. Check expectations, invariants and assertions
//
// The returned error reports harness failures only. Scenario failures are
// recorded in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	workDir, err := os.MkdirTemp("", "rulegen-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		srcDir: filepath.Join(workDir, "src"),
		outDir: filepath.Join(workDir, "out"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if err := h.materialize(scenario.Sources); err != nil {
		return nil, err
	}

	session, err := h.session(scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	res, genErr := session.Run(ctx)
	if genErr != nil {
		h.checkFailure(scenario, genErr, result)
		return result, nil
	}
	if scenario.Expect != nil && scenario.Expect.Error != "" {
		result.AddError(fmt.Sprintf("expected error %s, generation succeeded with %d artifacts",
			scenario.Expect.Error, len(res.Artifacts)))
	}

	h.record(res, result)

	report, err := outdir.NewWriter(h.outDir,
		outdir.WithStore(h.store),
		outdir.WithBuildIDGenerator(testutil.NewSequentialIDGenerator("build")),
		outdir.WithLogger(h.logger),
	).Write(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("failed to write build: %w", err)
	}
	result.Written = len(report.Written)

	checkCounts(scenario.Expect, result)
	for _, msg := range checkInvariants(result) {
		result.AddError(msg)
	}
	for _, assertion := range scenario.Assertions {
		if err := evaluateAssertion(result, assertion, h.outDir); err != nil {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// materialize writes the scenario sources under the source directory.
func (h *Harness) materialize(sources map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(sources)) {
		p := filepath.Join(h.srcDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("failed to create source dir: %w", err)
		}
		if err := os.WriteFile(p, []byte(sources[name]), 0o644); err != nil {
			return fmt.Errorf("failed to write source %s: %w", name, err)
		}
	}
	return nil
}

// session builds the generation session the scenario describes.
func (h *Harness) session(scenario *Scenario) (*codegen.Session, error) {
	kind, err := source.Default().ParseKind(scenario.Kind)
	if err != nil {
		return nil, err
	}

	var s *codegen.Session
	if len(scenario.Inputs) > 0 {
		files := make([]string, len(scenario.Inputs))
		for i, in := range scenario.Inputs {
			files[i] = filepath.Join(h.srcDir, filepath.FromSlash(in))
		}
		s = codegen.FromFiles(files, kind)
	} else {
		s = codegen.FromPath(h.srcDir, kind)
	}

	return s.WithOptions(codegen.Options{
		PackageName: scenario.Package,
		HotReload:   scenario.HotReload,
	}).WithLogger(h.logger), nil
}

func (h *Harness) checkFailure(scenario *Scenario, genErr error, result *Result) {
	result.ErrorCode = ir.CodeOf(genErr)
	want := ""
	if scenario.Expect != nil {
		want = scenario.Expect.Error
	}
	switch {
	case want == "":
		result.AddError(fmt.Sprintf("generation failed: %v", genErr))
	case string(result.ErrorCode) != want:
		result.AddError(fmt.Sprintf("expected error %s, got: %v", want, genErr))
	}
}

// record copies the generation inventory into the result.
func (h *Harness) record(res *codegen.Result, result *Result) {
	for _, a := range res.Artifacts {
		result.Artifacts = append(result.Artifacts, ArtifactEntry{
			Name:    a.LogicalName,
			Kind:    a.Kind,
			Hash:    a.Hash,
			Content: a.Content,
		})
	}
	result.Counts = Counts{
		Sources:  len(res.Sources),
		Packages: len(res.Model.Packages),
		Units:    len(res.Model.Units),
		Rules:    res.Model.RuleCount(),
		Total:    len(res.Artifacts),
	}
}

// checkCounts compares the inventory against the expect clause.
func checkCounts(expect *ExpectClause, result *Result) {
	if expect == nil {
		return
	}
	checks := []struct {
		name string
		want *int
		got  int
	}{
		{"sources", expect.Sources, result.Counts.Sources},
		{"packages", expect.Packages, result.Counts.Packages},
		{"units", expect.Units, result.Counts.Units},
		{"rules", expect.Rules, result.Counts.Rules},
		{"total", expect.Total, result.Counts.Total},
	}
	for _, c := range checks {
		if c.want != nil && *c.want != c.got {
			result.AddError(fmt.Sprintf("expect.%s: expected %d, got %d", c.name, *c.want, c.got))
		}
	}
}
