package codegen

import (
	"bytes"
	"context"
	"go/build"
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rulegen/internal/ir"
	"github.com/roach88/rulegen/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testdata(parts ...string) string {
	return filepath.Join(append([]string{"testdata"}, parts...)...)
}

func logicalNames(artifacts []ir.GeneratedArtifact) []string {
	names := make([]string, len(artifacts))
	for i, a := range artifacts {
		names[i] = a.LogicalName
	}
	return names
}

func kinds(artifacts []ir.GeneratedArtifact) []ir.ArtifactKind {
	out := make([]ir.ArtifactKind, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.Kind
	}
	return out
}

func TestGenerateScenarios(t *testing.T) {
	tests := []struct {
		name    string
		session func() *Session
		total   int
		units   int
	}{
		{
			name: "single file with two rules",
			session: func() *Session {
				return FromFiles([]string{testdata("rules", "pkg1", "file1.drl")}, ir.ResourceRuleText)
			},
			total: 4,
		},
		{
			name: "package directory with four rules",
			session: func() *Session {
				return FromPath(testdata("rules", "pkg1"), ir.ResourceRuleText)
			},
			total: 6,
		},
		{
			name: "recursive tree with three packages and one unit",
			session: func() *Session {
				return FromPath(testdata("rules"), ir.ResourceUnspecified)
			},
			total: 17,
			units: 1,
		},
		{
			name: "decision table with two rows",
			session: func() *Session {
				return FromFiles([]string{testdata("dtables", "CanDrink.csv")}, ir.ResourceDecisionTable)
			},
			total: 4,
		},
		{
			name: "decision table with inferred kind",
			session: func() *Session {
				return FromFiles([]string{testdata("dtables", "CanDrink.csv")}, ir.ResourceUnspecified)
			},
			total: 4,
		},
		{
			name: "unit directory with one rule",
			session: func() *Session {
				return FromPath(testdata("rules", "myunit"), ir.ResourceUnspecified)
			},
			total: 7,
			units: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, hot := range []bool{false, true} {
				s := tt.session().WithLogger(discard)
				if hot {
					s.WithHotReloadMode()
				}
				artifacts, err := s.Generate(context.Background())
				require.NoError(t, err)
				assert.Len(t, artifacts, tt.total, "hot-reload=%v", hot)

				counts := CountByKind(artifacts)
				assert.Equal(t, 3*tt.units, counts[ir.KindUnitClass]+counts[ir.KindUnitInstance]+counts[ir.KindUnitModel])
				if tt.units > 0 {
					assert.Equal(t, 1, counts[ir.KindUnitRegistry])
				} else {
					assert.Zero(t, counts[ir.KindUnitRegistry])
				}
			}
		})
	}
}

func TestGenerateRecursiveOrder(t *testing.T) {
	artifacts, err := FromPath(testdata("rules"), ir.ResourceUnspecified).WithLogger(discard).Generate(context.Background())
	require.NoError(t, err)

	want := []string{
		"rules/org/acme/myunit/rule_adult_check.go",
		"rules/org/acme/myunit/package.go",
		"rules/org/acme/myunit/package_meta.yaml",
		"rules/org/acme/pkg1/rule_hello.go",
		"rules/org/acme/pkg1/rule_greet_person.go",
		"rules/org/acme/pkg1/rule_discount.go",
		"rules/org/acme/pkg1/rule_loyalty_bonus.go",
		"rules/org/acme/pkg1/package.go",
		"rules/org/acme/pkg1/package_meta.yaml",
		"rules/org/acme/pkg2/rule_validate_order.go",
		"rules/org/acme/pkg2/rule_ship_order.go",
		"rules/org/acme/pkg2/package.go",
		"rules/org/acme/pkg2/package_meta.yaml",
		"units/my_unit/unit.go",
		"units/my_unit/instance.go",
		"units/my_unit/model.go",
		"units/registry.go",
	}
	assert.Equal(t, want, logicalNames(artifacts))

	assert.Equal(t, ir.KindRule, artifacts[0].Kind)
	assert.Equal(t, "org.acme.myunit", artifacts[0].Package)
	assert.Equal(t, "MyUnit", artifacts[0].Unit)
	assert.Equal(t, "Adult check", artifacts[0].Rule)
	assert.Equal(t, ir.KindPackageDescriptor, artifacts[1].Kind)
	assert.Equal(t, ir.KindPackageMetadata, artifacts[2].Kind)
	assert.Equal(t, ir.KindUnitClass, artifacts[13].Kind)
	assert.Equal(t, ir.KindUnitInstance, artifacts[14].Kind)
	assert.Equal(t, ir.KindUnitModel, artifacts[15].Kind)
	assert.Equal(t, ir.KindUnitRegistry, artifacts[16].Kind)
}

func TestGenerateIsIdempotent(t *testing.T) {
	s := FromPath(testdata("rules"), ir.ResourceUnspecified).WithLogger(discard)

	first, err := s.Generate(context.Background())
	require.NoError(t, err)
	second, err := s.Generate(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second Generate differs (-first +second):\n%s", diff)
	}
}

func TestFromPathMatchesFromFiles(t *testing.T) {
	files := []string{
		testdata("rules", "myunit", "unit.drl"),
		testdata("rules", "pkg1", "file1.drl"),
		testdata("rules", "pkg1", "file2.drl"),
		testdata("rules", "pkg2", "rules.drl"),
	}

	walked, err := FromPath(testdata("rules"), ir.ResourceUnspecified).WithLogger(discard).Run(context.Background())
	require.NoError(t, err)
	listed, err := FromFiles(files, ir.ResourceUnspecified).WithLogger(discard).Run(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff(listed.Model, walked.Model); diff != "" {
		t.Errorf("models differ (-files +path):\n%s", diff)
	}
	if diff := cmp.Diff(listed.Artifacts, walked.Artifacts); diff != "" {
		t.Errorf("artifacts differ (-files +path):\n%s", diff)
	}
}

func TestHotReloadKeepsArtifactSet(t *testing.T) {
	aot, err := FromPath(testdata("rules"), ir.ResourceUnspecified).WithLogger(discard).Generate(context.Background())
	require.NoError(t, err)
	hot, err := FromPath(testdata("rules"), ir.ResourceUnspecified).WithLogger(discard).WithHotReloadMode().Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, logicalNames(aot), logicalNames(hot))
	assert.Equal(t, kinds(aot), kinds(hot))

	for i := range aot {
		switch aot[i].Kind {
		case ir.KindPackageDescriptor:
			assert.Contains(t, string(aot[i].Content), "ruleIndex")
			assert.Contains(t, string(hot[i].Content), "ruleFuncs")
			assert.NotEqual(t, aot[i].Hash, hot[i].Hash)
		case ir.KindRule:
			assert.Equal(t, aot[i].Hash, hot[i].Hash, aot[i].LogicalName)
		}
	}
}

func TestGeneratedContentIsWellFormed(t *testing.T) {
	for _, hot := range []bool{false, true} {
		s := FromPath(testdata("rules"), ir.ResourceUnspecified).WithLogger(discard)
		if hot {
			s.WithHotReloadMode()
		}
		artifacts, err := s.Generate(context.Background())
		require.NoError(t, err)

		for _, a := range artifacts {
			assert.Equal(t, ir.ArtifactHash(a.LogicalName, a.Kind, a.Content), a.Hash)

			if strings.HasSuffix(a.LogicalName, ".go") {
				_, err := parser.ParseFile(token.NewFileSet(), a.LogicalName, a.Content, parser.ParseComments)
				assert.NoError(t, err, a.LogicalName)
				assert.True(t, strings.HasPrefix(string(a.Content), "// Code generated by rulegen "), a.LogicalName)
				continue
			}

			var meta packageMetadata
			require.NoError(t, yaml.Unmarshal(a.Content, &meta), a.LogicalName)
			assert.Equal(t, a.Package, meta.Package)
			assert.Equal(t, string(s.Options().Mode()), meta.Mode)
		}
	}
}

func TestRuleFilesJoinEveryBuild(t *testing.T) {
	dir := t.TempDir()
	drl := `package org.acme.main;

rule "Age test"
when
then
end

rule "Check windows"
when
then
end

rule "Route arm64"
when
then
end

rule "Plain"
when
then
end
`
	file := filepath.Join(dir, "suffixes.drl")
	require.NoError(t, os.WriteFile(file, []byte(drl), 0o644))

	artifacts, err := FromFiles([]string{file}, ir.ResourceUnspecified).WithLogger(discard).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, artifacts, 6)

	content := make(map[string][]byte, len(artifacts))
	for _, a := range artifacts {
		content[a.LogicalName] = a.Content
	}
	ctx := build.Default
	ctx.GOOS, ctx.GOARCH = "linux", "amd64"
	ctx.OpenFile = func(p string) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(content[filepath.ToSlash(p)])), nil
	}

	for _, a := range artifacts {
		if a.Kind != ir.KindRule && a.Kind != ir.KindPackageDescriptor {
			continue
		}
		dir, name := path.Split(a.LogicalName)
		assert.False(t, strings.HasSuffix(name, "_test.go"), a.LogicalName)
		ok, err := ctx.MatchFile(path.Clean(dir), name)
		require.NoError(t, err)
		assert.True(t, ok, a.LogicalName)

		f, err := parser.ParseFile(token.NewFileSet(), a.LogicalName, a.Content, parser.PackageClauseOnly)
		require.NoError(t, err)
		assert.Equal(t, "main_", f.Name.Name)
	}
}

func TestPackageMetadataContent(t *testing.T) {
	artifacts, err := FromPath(testdata("rules", "pkg1"), ir.ResourceUnspecified).WithLogger(discard).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, artifacts, 6)

	var meta packageMetadata
	require.NoError(t, yaml.Unmarshal(artifacts[5].Content, &meta))

	assert.Equal(t, packageMetadata{
		Package:   "org.acme.pkg1",
		GoPackage: "pkg1",
		Mode:      "aot",
		Generator: ir.GeneratorVersion,
		Schema:    ir.ArtifactSchemaVersion,
		Sources:   []string{"file1.drl", "file2.drl"},
		Rules: []ruleMetadata{
			{Name: "Hello", File: "rule_hello.go", Source: "file1.drl", Line: 5},
			{Name: "Greet person", File: "rule_greet_person.go", Source: "file1.drl", Line: 12},
			{Name: "Discount", File: "rule_discount.go", Source: "file2.drl", Line: 5},
			{Name: "Loyalty bonus", File: "rule_loyalty_bonus.go", Source: "file2.drl", Line: 12},
		},
	}, meta)
}

func TestUnitModelListsUnitRules(t *testing.T) {
	artifacts, err := FromPath(testdata("rules", "myunit"), ir.ResourceUnspecified).WithLogger(discard).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, artifacts, 7)

	model := string(artifacts[5].Content)
	assert.Equal(t, ir.KindUnitModel, artifacts[5].Kind)
	assert.Contains(t, model, `{Package: "org.acme.myunit", Name: "Adult check"}`)

	registry := string(artifacts[6].Content)
	assert.Contains(t, registry, `"MyUnit"`)
	assert.Contains(t, registry, `"units/my_unit"`)
}

func TestSetPackageName(t *testing.T) {
	dir := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"plain.drl":    testutil.DRL("", "", "A", "B"),
		"declared.drl": testutil.DRL("org.declared", "", "C"),
	})

	res, err := FromPath(dir, ir.ResourceUnspecified).
		SetPackageName("org.override").
		WithLogger(discard).
		Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Model.Packages, 2)
	assert.Equal(t, "org.declared", res.Model.Packages[0].Name)
	assert.Equal(t, "org.override", res.Model.Packages[1].Name)
	assert.Len(t, res.Artifacts, 3+4)
}

func TestDefaultPackage(t *testing.T) {
	dir := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"plain.drl": testutil.DRL("", "", "A"),
	})

	artifacts, err := FromPath(dir, ir.ResourceUnspecified).WithLogger(discard).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"rules/defaultpkg/rule_a.go",
		"rules/defaultpkg/package.go",
		"rules/defaultpkg/package_meta.yaml",
	}, logicalNames(artifacts))
}

func TestUnitWithoutRulesIsRegistered(t *testing.T) {
	dir := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"a.drl":     testutil.DRL("org.a", "", "A"),
		"empty.drl": testutil.DRL("org.a", "Empty"),
	})

	artifacts, err := FromPath(dir, ir.ResourceUnspecified).WithLogger(discard).Generate(context.Background())
	require.NoError(t, err)
	assert.Len(t, artifacts, 1+2+3+1)
}

func TestSessionChaining(t *testing.T) {
	s := FromFiles([]string{"a.drl"}, ir.ResourceUnspecified)
	assert.Same(t, s, s.SetPackageName("org.p"))
	assert.Same(t, s, s.WithHotReloadMode())
	assert.Same(t, s, s.WithConcurrency(2))
	assert.Same(t, s, s.WithLogger(discard))

	assert.Equal(t, Options{PackageName: "org.p", HotReload: true, Concurrency: 2}, s.Options())
	assert.Equal(t, ModeHotReload, s.Options().Mode())

	s.WithOptions(Options{})
	assert.Equal(t, ModeAOT, s.Options().Mode())
}

func TestGenerateFailures(t *testing.T) {
	dup := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"a.drl": testutil.DRL("org.p", "", "Same"),
		"b.drl": testutil.DRL("org.p", "", "Same"),
	})
	unknown := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"rules.txt": "rule",
	})

	tests := []struct {
		name    string
		session *Session
		code    ir.ErrorCode
	}{
		{"missing file", FromFiles([]string{testdata("nope.drl")}, ir.ResourceUnspecified), ir.ErrResourceNotFound},
		{"missing root", FromPath(testdata("nope"), ir.ResourceUnspecified), ir.ErrResourceNotFound},
		{"unknown extension", FromFiles([]string{filepath.Join(unknown, "rules.txt")}, ir.ResourceUnspecified), ir.ErrUnsupportedResourceType},
		{"unknown kind", FromPath(testdata("rules"), ir.ResourceKind("binary")), ir.ErrUnsupportedResourceType},
		{"duplicate rule", FromPath(dup, ir.ResourceUnspecified), ir.ErrDuplicateRuleDefinition},
		{"invalid override", FromPath(testdata("rules"), ir.ResourceUnspecified).SetPackageName("1bad"), ir.ErrMalformedSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifacts, err := tt.session.WithLogger(discard).Generate(context.Background())
			require.Error(t, err)
			assert.Nil(t, artifacts)
			assert.Equal(t, tt.code, ir.CodeOf(err))
		})
	}
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	artifacts, err := FromPath(testdata("rules"), ir.ResourceUnspecified).WithLogger(discard).Generate(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, artifacts)
}
