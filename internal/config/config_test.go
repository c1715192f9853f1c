package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, path, err := Load(context.Background(), LoadOptions{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)
}

func TestLoadCUE(t *testing.T) {
	dir := t.TempDir()
	want := writeConfig(t, dir, "rulegen.cue", `
package_name: "org.acme.rules"
kind: "drl"
hot_reload: true
out_dir: "gen"
concurrency: 4
log: level: "debug"
`)

	cfg, path, err := Load(context.Background(), LoadOptions{Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, want, path)
	assert.Equal(t, "org.acme.rules", cfg.Package)
	assert.Equal(t, "drl", cfg.Kind)
	assert.True(t, cfg.HotReload)
	assert.Equal(t, "gen", cfg.OutDir)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset fields keep defaults")
}

func TestLoadCUEWinsOverYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "rulegen.cue", `package_name: "from.cue"`)
	writeConfig(t, dir, "rulegen.yaml", "package_name: from.yaml\n")

	cfg, path, err := Load(context.Background(), LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "rulegen.cue", filepath.Base(path))
	assert.Equal(t, "from.cue", cfg.Package)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "rulegen.yaml", "package_name: org.acme\ncache_db: cache.db\nlog:\n  format: json\n")

	cfg, _, err := Load(context.Background(), LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "org.acme", cfg.Package)
	assert.Equal(t, "cache.db", cfg.CacheDB)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "custom.json", `{"package_name": "json.pkg", "concurrency": 2}`)

	cfg, got, err := Load(context.Background(), LoadOptions{File: path})
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, "json.pkg", cfg.Package)
	assert.Equal(t, 2, cfg.Concurrency)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, _, err := Load(context.Background(), LoadOptions{File: filepath.Join(t.TempDir(), "nope.cue")})
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoadCUESchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", `outdir: "gen"`},
		{"bad package", `package_name: "1bad"`},
		{"bad kind", `kind: "yaml"`},
		{"negative concurrency", `concurrency: -1`},
		{"bad log format", `log: format: "xml"`},
		{"syntax", `package_name: `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "rulegen.cue", tt.content)

			_, _, err := Load(context.Background(), LoadOptions{Dir: dir})
			assert.ErrorContains(t, err, "rulegen.cue")
		})
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "rulegen.cue", `package_name: "from.file"
log: level: "info"`)
	t.Setenv("RULEGEN_PACKAGE_NAME", "from.env")
	t.Setenv("RULEGEN_LOG_LEVEL", "warn")
	t.Setenv("RULEGEN_HOT_RELOAD", "true")

	cfg, _, err := Load(context.Background(), LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "from.env", cfg.Package)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.HotReload)
}

func TestLoadEnvValidated(t *testing.T) {
	t.Setenv("RULEGEN_CONCURRENCY", "-3")

	_, _, err := Load(context.Background(), LoadOptions{Dir: t.TempDir()})
	assert.ErrorContains(t, err, "concurrency")
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Load(ctx, LoadOptions{Dir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.Error(t, (&Config{Log: LogConfig{Format: "xml"}}).Validate())
	assert.Error(t, (&Config{Concurrency: -1}).Validate())
}
