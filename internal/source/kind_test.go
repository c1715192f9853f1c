package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rulegen/internal/ir"
)

func TestDefaultRegistryKinds(t *testing.T) {
	reg := Default()

	assert.Equal(t, []ir.ResourceKind{ir.ResourceRuleText, ir.ResourceDecisionTable}, reg.Kinds())
	assert.Same(t, reg, Default(), "Default must be built once")
}

func TestClassifyByExtension(t *testing.T) {
	tests := []struct {
		path string
		want ir.ResourceKind
	}{
		{"rules/file1.drl", ir.ResourceRuleText},
		{"rules/FILE1.DRL", ir.ResourceRuleText},
		{"tables/CanDrink.csv", ir.ResourceDecisionTable},
		{"tables/CanDrink.xls", ir.ResourceDecisionTable},
		{"tables/CanDrink.xlsx", ir.ResourceDecisionTable},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			kind, err := Default().Classify(tt.path, ir.ResourceUnspecified)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestClassifyUnknownExtension(t *testing.T) {
	_, err := Default().Classify("notes.txt", ir.ResourceUnspecified)

	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrUnsupportedResourceType))
	assert.Contains(t, err.Error(), ".txt")
}

func TestClassifyExplicitKindWins(t *testing.T) {
	kind, err := Default().Classify("notes.txt", ir.ResourceRuleText)

	require.NoError(t, err)
	assert.Equal(t, ir.ResourceRuleText, kind)
}

func TestClassifyExplicitUnknownKind(t *testing.T) {
	_, err := Default().Classify("a.drl", ir.ResourceKind("bpmn"))

	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrUnsupportedResourceType))
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ir.ResourceKind
		wantErr bool
	}{
		{"", ir.ResourceUnspecified, false},
		{"drl", ir.ResourceRuleText, false},
		{"rule_text", ir.ResourceRuleText, false},
		{"DTABLE", ir.ResourceDecisionTable, false},
		{"decision_table", ir.ResourceDecisionTable, false},
		{"bpmn", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Default().ParseKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, ir.IsCode(err, ir.ErrUnsupportedResourceType))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRegistryCustomKinds(t *testing.T) {
	reg := NewRegistry(
		KindSpec{Kind: ir.ResourceRuleText, Extensions: []string{".DRL", ".rdrl"}},
	)

	kind, ok := reg.KindOf("a.rdrl")
	assert.True(t, ok)
	assert.Equal(t, ir.ResourceRuleText, kind)

	_, ok = reg.KindOf("a.csv")
	assert.False(t, ok)
	assert.False(t, reg.Known(ir.ResourceDecisionTable))
}
