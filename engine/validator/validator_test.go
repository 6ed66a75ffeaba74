package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/ferrors"
)

func wf(nodes ...ast.Node) *ast.Workflow {
	return &ast.Workflow{Metadata: ast.Metadata{Name: "demo", Version: "1.0.0"}, Nodes: nodes}
}

func TestValidateDuplicateIds(t *testing.T) {
	result := Validate(wf(
		&ast.SourceNode{Base: ast.Base{ID: "dup"}, SourceType: "http"},
		&ast.SinkNode{Base: ast.Base{ID: "dup"}, SinkType: "file"},
	), Options{})

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ferrors.KindDuplicateNodeId, result.Errors[0].Kind)
}

func TestValidateUndefinedInputRef(t *testing.T) {
	result := Validate(wf(
		&ast.TransformNode{Base: ast.Base{ID: "t", Input: "missing"}, TransformType: "map"},
	), Options{})

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ferrors.KindUndefinedNodeRef, result.Errors[0].Kind)
}

func TestValidateUndefinedSecretRef(t *testing.T) {
	w := wf(
		&ast.SourceNode{Base: ast.Base{ID: "s"}, SourceType: "http", Config: map[string]any{
			"token": "{{ $secrets.API_KEY }}",
		}},
	)
	result := Validate(w, Options{})
	require.False(t, result.Valid)
	assert.Equal(t, ferrors.KindUndefinedSecretRef, result.Errors[0].Kind)
}

func TestValidateDeclaredSecretRefPasses(t *testing.T) {
	w := wf(
		&ast.SourceNode{Base: ast.Base{ID: "s"}, SourceType: "http", Config: map[string]any{
			"token": "{{ $secrets.API_KEY }}",
		}},
	)
	w.Metadata.Secrets = []string{"API_KEY"}
	result := Validate(w, Options{})
	assert.True(t, result.Valid)
}

func TestValidateCycleRejected(t *testing.T) {
	p := &ast.TransformNode{Base: ast.Base{ID: "P", Input: "Q"}, TransformType: "map"}
	q := &ast.TransformNode{Base: ast.Base{ID: "Q", Input: "P"}, TransformType: "map"}

	result := Validate(wf(p, q), Options{})
	require.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)

	var cycleErr *ferrors.Error
	for _, e := range result.Errors {
		if e.Kind == ferrors.KindCircularDependency {
			cycleErr = e
		}
	}
	require.NotNil(t, cycleErr)
	assert.Contains(t, cycleErr.Message, "P -> Q -> P")
}

func TestValidateAcyclicPasses(t *testing.T) {
	a := &ast.SourceNode{Base: ast.Base{ID: "A"}, SourceType: "http"}
	b := &ast.TransformNode{Base: ast.Base{ID: "B", Input: "A"}, TransformType: "map"}
	c := &ast.SinkNode{Base: ast.Base{ID: "C", Input: "B"}, SinkType: "file"}

	result := Validate(wf(a, b, c), Options{})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateBranchRequiresCases(t *testing.T) {
	result := Validate(wf(&ast.BranchNode{Base: ast.Base{ID: "b"}}), Options{})
	require.False(t, result.Valid)
	assert.Equal(t, ferrors.KindMissingRequiredField, result.Errors[0].Kind)
}

func TestValidateSinkWithoutInputWarns(t *testing.T) {
	result := Validate(wf(&ast.SinkNode{Base: ast.Base{ID: "s"}, SinkType: "file"}), Options{})
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
}

func TestValidateStrictModePromotesWarningsToErrors(t *testing.T) {
	result := Validate(wf(&ast.SinkNode{Base: ast.Base{ID: "s"}, SinkType: "file"}), Options{Strict: true})
	assert.False(t, result.Valid)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Errors, 1)
}

func TestValidateCheckpointDefaultActionMustBeKnown(t *testing.T) {
	result := Validate(wf(&ast.CheckpointNode{Base: ast.Base{ID: "cp"}, DefaultAction: "maybe"}), Options{})
	require.False(t, result.Valid)
	assert.Equal(t, ferrors.KindInvalidFieldType, result.Errors[0].Kind)
}

func TestValidateSkipsCycleDetectionWhenReferencesAlreadyBroken(t *testing.T) {
	// B references a non-existent node; pass C must not also report a
	// (nonsensical) cycle derived from the broken graph.
	result := Validate(wf(
		&ast.TransformNode{Base: ast.Base{ID: "B", Input: "ghost"}, TransformType: "map"},
	), Options{})
	for _, e := range result.Errors {
		assert.NotEqual(t, ferrors.KindCircularDependency, e.Kind)
	}
}
