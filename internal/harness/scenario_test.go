package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "one rule"
sources:
  r.drl: |
    package p;
    rule "A" when then end
expect:
  total: 3
`

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Contains(t, s.Sources["r.drl"], `rule "A"`)
	require.NotNil(t, s.Expect)
	require.NotNil(t, s.Expect.Total)
	assert.Equal(t, 3, *s.Expect.Total)
	assert.Nil(t, s.Expect.Rules)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsources: {r.drl: x}\nexpect: {total: 1}\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsources: {r.drl: x}\nexpect: {total: 1}\n",
			want: "description is required",
		},
		{
			name: "no sources",
			yaml: "name: n\ndescription: d\nexpect: {total: 1}\n",
			want: "sources map is required",
		},
		{
			name: "nothing to check",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\n",
			want: "expect or assertions is required",
		},
		{
			name: "escaping source path",
			yaml: "name: n\ndescription: d\nsources: {../r.drl: x}\nexpect: {total: 1}\n",
			want: "not a relative slash-separated path",
		},
		{
			name: "unknown input",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\ninputs: [s.drl]\nexpect: {total: 1}\n",
			want: "inputs[0]",
		},
		{
			name: "unknown kind",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nkind: bpmn\nexpect: {total: 1}\n",
			want: "kind:",
		},
		{
			name: "unknown error code",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nexpect: {error: BOOM}\n",
			want: "unknown error code",
		},
		{
			name: "error with assertions",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nexpect: {error: MALFORMED_SOURCE}\nassertions: [{type: artifact_exists, name: a}]\n",
			want: "cannot be combined",
		},
		{
			name: "assertion without type",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nassertions: [{name: a}]\n",
			want: "assertions[0]: type is required",
		},
		{
			name: "unknown assertion type",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nassertions: [{type: trace_order}]\n",
			want: "unknown assertion type",
		},
		{
			name: "exists without name",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nassertions: [{type: artifact_exists}]\n",
			want: "name is required for artifact_exists",
		},
		{
			name: "order with one name",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nassertions: [{type: artifact_order, names: [a]}]\n",
			want: "at least two entries",
		},
		{
			name: "unknown kind in count",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nassertions: [{type: kind_count, kind: class, count: 1}]\n",
			want: "unknown artifact kind",
		},
		{
			name: "negative count",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nassertions: [{type: kind_count, kind: rule, count: -1}]\n",
			want: "count must be non-negative",
		},
		{
			name: "contains without text",
			yaml: "name: n\ndescription: d\nsources: {r.drl: x}\nassertions: [{type: content_contains, name: a}]\n",
			want: "name and text are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenarioFilesParse(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		assert.Equal(t, filepath.Base(path), s.Name+".yaml", "scenario name must match its file name")
	}
}
