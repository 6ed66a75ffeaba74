package evolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileOutputsCapturesTypeSizeAndSortedKeys(t *testing.T) {
	profile := ProfileOutputs(map[string]any{
		"str":  "hello",
		"arr":  []any{1, 2, 3},
		"obj":  map[string]any{"b": 1, "a": 2},
		"num":  42.0,
		"flag": true,
		"nil":  nil,
	})

	assert.Equal(t, NodeProfile{Type: "string", Size: 5}, profile["str"])
	assert.Equal(t, NodeProfile{Type: "array", Size: 3}, profile["arr"])
	assert.Equal(t, NodeProfile{Type: "object", Size: 2, Keys: []string{"a", "b"}}, profile["obj"])
	assert.Equal(t, NodeProfile{Type: "number"}, profile["num"])
	assert.Equal(t, NodeProfile{Type: "boolean"}, profile["flag"])
	assert.Equal(t, NodeProfile{Type: "null"}, profile["nil"])
}

func TestCompareBehaviorNoDriftWhenProfilesMatch(t *testing.T) {
	p := BehaviorProfile{"a": {Type: "string", Size: 5}}
	score, signals := CompareBehavior(p, p)
	assert.Equal(t, 0, score)
	assert.Empty(t, signals)
}

func TestCompareBehaviorDetectsMissingAndNewNodes(t *testing.T) {
	prev := BehaviorProfile{"a": {Type: "string", Size: 5}}
	next := BehaviorProfile{"b": {Type: "number"}}

	score, signals := CompareBehavior(prev, next)
	require.Equal(t, 2, score)
	assert.Equal(t, DriftMissingNode, signals[0].Kind)
	assert.Equal(t, "a", signals[0].NodeID)
	assert.Equal(t, DriftNewNode, signals[1].Kind)
	assert.Equal(t, "b", signals[1].NodeID)
}

func TestCompareBehaviorDetectsTypeChange(t *testing.T) {
	prev := BehaviorProfile{"a": {Type: "string", Size: 5}}
	next := BehaviorProfile{"a": {Type: "number"}}
	score, signals := CompareBehavior(prev, next)
	require.Equal(t, 1, score)
	assert.Equal(t, DriftTypeChange, signals[0].Kind)
}

func TestCompareBehaviorDetectsKeyAndLengthShifts(t *testing.T) {
	prev := BehaviorProfile{
		"obj": {Type: "object", Size: 1, Keys: []string{"x"}},
		"arr": {Type: "array", Size: 2},
	}
	next := BehaviorProfile{
		"obj": {Type: "object", Size: 1, Keys: []string{"y"}},
		"arr": {Type: "array", Size: 5},
	}
	score, signals := CompareBehavior(prev, next)
	require.Equal(t, 2, score)
	kinds := map[string]DriftSignalKind{}
	for _, s := range signals {
		kinds[s.NodeID] = s.Kind
	}
	assert.Equal(t, DriftKeyChange, kinds["obj"])
	assert.Equal(t, DriftLengthShift, kinds["arr"])
}

func TestSuggestVersionBumpUnchangedWithoutDrift(t *testing.T) {
	v, err := SuggestVersionBump("1.2.3", false)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v)
}

func TestSuggestVersionBumpAppendsBuildMetadataOnDrift(t *testing.T) {
	v, err := SuggestVersionBump("1.2.3", true)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3+b1", v)
}

func TestSuggestVersionBumpIncrementsExistingBuildMetadata(t *testing.T) {
	v, err := SuggestVersionBump("1.2.3+b4", true)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3+b5", v)
}

func TestSuggestVersionBumpPreservesPrerelease(t *testing.T) {
	v, err := SuggestVersionBump("1.2.3-beta", true)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3-beta+b1", v)
}

func TestSuggestVersionBumpRejectsInvalidVersion(t *testing.T) {
	_, err := SuggestVersionBump("not-a-version", true)
	require.Error(t, err)
}
