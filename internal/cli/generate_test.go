package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rulegen/internal/outdir"
	"github.com/roach88/rulegen/internal/store"
	"github.com/roach88/rulegen/internal/testutil"
)

func TestGenerateText(t *testing.T) {
	dir := sourceTree(t)

	out, err := execute(t, "generate", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Generated 17 artifact(s) from 3 source(s)")
	assert.Contains(t, out, "[aot]")
	assert.Contains(t, out, "packages: 3  units: 1  rules: 7")
	assert.Regexp(t, `rule\s+7`, out)
	assert.Regexp(t, `unit_registry\s+1`, out)
	assert.NotContains(t, out, "Wrote build")
}

func TestGenerateJSON(t *testing.T) {
	dir := sourceTree(t)

	out, err := execute(t, "--format", "json", "generate", dir)
	require.NoError(t, err)

	var result GenerateResult
	resp := decodeData(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "aot", result.Mode)
	assert.Equal(t, 17, result.Total)
	assert.Equal(t, 7, result.Rules)
	assert.Equal(t, map[string]int{
		"rule":               7,
		"package_descriptor": 3,
		"package_metadata":   3,
		"unit_class":         1,
		"unit_instance":      1,
		"unit_model":         1,
		"unit_registry":      1,
	}, result.Kinds)
	require.Len(t, result.Artifacts, 17)
	assert.Equal(t, "rules/org/acme/a/rule_base_price.go", result.Artifacts[0].Name)
	assert.Equal(t, "units/registry.go", result.Artifacts[16].Name)
}

func TestGenerateFileList(t *testing.T) {
	dir := sourceTree(t)

	out, err := execute(t, "--format", "json", "generate",
		filepath.Join(dir, "b", "shipping.drl"),
		filepath.Join(dir, "a", "pricing.drl"))
	require.NoError(t, err)

	var result GenerateResult
	decodeData(t, out, &result)
	assert.Equal(t, 2, result.Sources)
	assert.Equal(t, 5+2*2, result.Total)
	assert.Equal(t, "rules/org/acme/b/rule_ship.go", result.Artifacts[0].Name, "file order is kept")
}

func TestGenerateHotReloadSameInventory(t *testing.T) {
	dir := sourceTree(t)

	aotOut, err := execute(t, "--format", "json", "generate", dir)
	require.NoError(t, err)
	hotOut, err := execute(t, "--format", "json", "generate", "--hot-reload", dir)
	require.NoError(t, err)

	var aot, hot GenerateResult
	decodeData(t, aotOut, &aot)
	decodeData(t, hotOut, &hot)

	assert.Equal(t, "hot-reload", hot.Mode)
	assert.Equal(t, aot.Kinds, hot.Kinds)
	require.Len(t, hot.Artifacts, len(aot.Artifacts))
	for i := range aot.Artifacts {
		assert.Equal(t, aot.Artifacts[i].Name, hot.Artifacts[i].Name)
	}
}

func TestGenerateWritesOutput(t *testing.T) {
	dir := sourceTree(t)
	outDir := filepath.Join(t.TempDir(), "gen")

	out, err := execute(t, "--format", "json", "generate", "--hot-reload", "--out", outDir, dir)
	require.NoError(t, err)

	var first GenerateResult
	decodeData(t, out, &first)
	require.NotNil(t, first.Output)
	assert.Equal(t, int64(1), first.Output.Seq)
	assert.Len(t, first.Output.Written, 17)
	assert.FileExists(t, fileIn(outDir, "rules", "org", "acme", "a", "rule_tax.go"))
	assert.FileExists(t, fileIn(outDir, "units", "registry.go"))
	assert.FileExists(t, fileIn(outDir, outdir.ManifestFile))

	out, err = execute(t, "--format", "json", "generate", "--hot-reload", "--out", outDir, dir)
	require.NoError(t, err)

	var second GenerateResult
	decodeData(t, out, &second)
	assert.Equal(t, int64(2), second.Output.Seq)
	assert.Empty(t, second.Output.Written)
	assert.Len(t, second.Output.Unchanged, 17)
	assert.Empty(t, second.Output.Removed)
}

func TestGenerateTextReportsWrite(t *testing.T) {
	dir := sourceTree(t)
	outDir := t.TempDir()

	out, err := execute(t, "generate", "-o", outDir, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote build 1")
	assert.Contains(t, out, "17 written, 0 unchanged, 0 removed")
}

func TestGenerateRecordsCache(t *testing.T) {
	dir := sourceTree(t)
	outDir := t.TempDir()
	cache := filepath.Join(t.TempDir(), "cache.db")

	for range 2 {
		_, err := execute(t, "generate", "--out", outDir, "--cache", cache, dir)
		require.NoError(t, err)
	}

	st, err := store.Open(cache)
	require.NoError(t, err)
	defer st.Close()

	abs, err := filepath.Abs(outDir)
	require.NoError(t, err)
	build, err := st.LatestBuild(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), build.Seq)
	assert.Equal(t, 17, build.ArtifactCount)
}

func TestGenerateRemovesStaleArtifacts(t *testing.T) {
	dir := sourceTree(t)
	outDir := t.TempDir()

	_, err := execute(t, "generate", "--out", outDir, dir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "u", "checkout.drl")))
	out, err := execute(t, "--format", "json", "generate", "--out", outDir, dir)
	require.NoError(t, err)

	var result GenerateResult
	decodeData(t, out, &result)
	assert.Equal(t, 5+2*2, result.Total)
	assert.Len(t, result.Output.Removed, 2+2+4)
	assert.NoDirExists(t, fileIn(outDir, "units"))
}

func TestGeneratePackageFallback(t *testing.T) {
	dir := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"loose.drl": testutil.DRL("", "", "Anything"),
	})

	out, err := execute(t, "--format", "json", "generate", dir)
	require.NoError(t, err)
	var result GenerateResult
	decodeData(t, out, &result)
	assert.Equal(t, "rules/defaultpkg/rule_anything.go", result.Artifacts[0].Name)

	out, err = execute(t, "--format", "json", "generate", "--package", "com.example", dir)
	require.NoError(t, err)
	decodeData(t, out, &result)
	assert.Equal(t, "rules/com/example/rule_anything.go", result.Artifacts[0].Name)
}

func TestGenerateUsesConfig(t *testing.T) {
	dir := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"loose.drl": testutil.DRL("", "", "Anything"),
	})
	cfgDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "configured")
	cfg := testutil.WriteTree(t, cfgDir, map[string]string{
		"rulegen.cue": "package_name: \"from.config\"\nhot_reload: true\nout_dir: \"" + filepath.ToSlash(outDir) + "\"\n",
	})

	out, err := execute(t, "--config", filepath.Join(cfg, "rulegen.cue"), "--format", "json", "generate", dir)
	require.NoError(t, err)

	var result GenerateResult
	decodeData(t, out, &result)
	assert.Equal(t, "hot-reload", result.Mode)
	assert.Equal(t, "rules/from/config/rule_anything.go", result.Artifacts[0].Name)
	require.NotNil(t, result.Output)
	assert.FileExists(t, fileIn(outDir, "rules", "from", "config", "rule_anything.go"))

	out, err = execute(t, "--config", filepath.Join(cfg, "rulegen.cue"), "--format", "json",
		"generate", "--package", "from.flag", "--hot-reload=false", dir)
	require.NoError(t, err)
	decodeData(t, out, &result)
	assert.Equal(t, "aot", result.Mode)
	assert.Equal(t, "rules/from/flag/rule_anything.go", result.Artifacts[0].Name)
}

func TestGenerateErrors(t *testing.T) {
	dup := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"a.drl": testutil.DRL("p", "", "Same"),
		"b.drl": testutil.DRL("p", "", "Same"),
	})
	malformed := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"bad.drl": "package p;\nrule \"Open\"\nwhen\nthen\n",
	})

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing file", []string{"generate", filepath.Join(t.TempDir(), "nope.drl")}, ErrCodeNotFound},
		{"duplicate rule", []string{"generate", dup}, ErrCodeDuplicate},
		{"malformed source", []string{"generate", malformed}, ErrCodeMalformed},
		{"unknown kind", []string{"generate", "--kind", "yaml", dup}, ErrCodeUnsupported},
		{"bad package override", []string{"generate", "--package", "1bad", dup}, ErrCodeMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decodeData(t, out, nil)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestGenerateErrorText(t *testing.T) {
	dup := testutil.WriteTree(t, t.TempDir(), map[string]string{
		"a.drl": testutil.DRL("p", "", "Same"),
		"b.drl": testutil.DRL("p", "", "Same"),
	})

	out, err := execute(t, "generate", dup)
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeDuplicate+"]")
	assert.Contains(t, out, "b.drl:")
}
