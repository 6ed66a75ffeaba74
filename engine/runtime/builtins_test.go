package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeState struct {
	outputs map[string]any
}

func (f fakeState) GetNodeOutput(id string) (any, bool) {
	v, ok := f.outputs[id]
	return v, ok
}

func (f fakeState) GetNodeOutputs() map[string]any {
	return f.outputs
}

func TestRegisterBuiltinsBindsTransformRuntimes(t *testing.T) {
	reg := NewRegistry()
	RegisterBuiltins(reg)
	assert.True(t, reg.Has("transform:template"))
	assert.True(t, reg.Has("transform:map"))
	assert.True(t, reg.Has("transform:filter"))
}

func TestTemplateRuntimeReturnsResolvedString(t *testing.T) {
	out, err := templateRuntime(context.Background(), Input{
		Config: map[string]any{"template": "hello world"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestMapRuntimeAppliesExpressionPerItem(t *testing.T) {
	out, err := mapRuntime(context.Background(), Input{
		Value:  []any{float64(1), float64(2), float64(3)},
		Config: map[string]any{"expression": "{{ $item * 2 }}"},
		State:  fakeState{outputs: map[string]any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(2), float64(4), float64(6)}, out)
}

func TestMapRuntimeWithoutExpressionPassesThrough(t *testing.T) {
	items := []any{"a", "b"}
	out, err := mapRuntime(context.Background(), Input{Value: items, Config: map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, items, out)
}

func TestFilterRuntimeKeepsTruthyItems(t *testing.T) {
	out, err := filterRuntime(context.Background(), Input{
		Value:  []any{float64(1), float64(2), float64(3), float64(4)},
		Config: map[string]any{"condition": "{{ $item % 2 == 0 }}"},
		State:  fakeState{outputs: map[string]any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(2), float64(4)}, out)
}

func TestFilterRuntimeExposesFirstLastLocals(t *testing.T) {
	out, err := filterRuntime(context.Background(), Input{
		Value:  []any{"x", "y", "z"},
		Config: map[string]any{"condition": "{{ $first || $last }}"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "z"}, out)
}

func TestToSliceWrapsSingletonAndHandlesNil(t *testing.T) {
	assert.Nil(t, toSlice(nil))
	assert.Equal(t, []any{"solo"}, toSlice("solo"))
	assert.Equal(t, []any{1, 2}, toSlice([]any{1, 2}))
}
