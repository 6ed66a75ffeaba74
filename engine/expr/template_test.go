package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateIdempotenceWithoutExpressions(t *testing.T) {
	plain := "no expressions here, just { braces } and } stray"
	v, err := EvalTemplate(plain, ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, plain, v)
}

func TestTemplateSingleExpressionReturnsRawType(t *testing.T) {
	ctx := ctxWith(map[string]any{"n": float64(42)})
	v, err := EvalTemplate("{{ n }}", ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)
}

func TestTemplateMixedSegmentsConcatenateAsString(t *testing.T) {
	ctx := ctxWith(map[string]any{"name": "world"})
	v, err := EvalTemplate("hello {{ name }}!", ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello world!", v)
}

func TestTemplateBracesInsideStringLiteralDoNotTerminateEarly(t *testing.T) {
	v, err := EvalTemplate(`{{ "}}" }}`, ctxWith(nil))
	require.NoError(t, err)
	assert.Equal(t, "}}", v)
}

func TestTemplateUnterminatedExpressionErrors(t *testing.T) {
	_, err := EvalTemplate("prefix {{ missing close", ctxWith(nil))
	require.Error(t, err)
}
