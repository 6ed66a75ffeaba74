package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuiltinsNullSafety is the §8 null-safety law: calling any built-in
// with null/undefined operands must not panic/error and must return the
// function's documented empty value.
func TestBuiltinsNullSafety(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{"len(null)", "len", []any{nil}, float64(0)},
		{"first(null)", "first", []any{nil}, nil},
		{"last(null)", "last", []any{nil}, nil},
		{"keys(null)", "keys", []any{nil}, []any{}},
		{"values(null)", "values", []any{nil}, []any{}},
		{"flatten(null)", "flatten", []any{nil}, []any{}},
		{"unique(null)", "unique", []any{nil}, []any{}},
		{"is_empty(null)", "is_empty", []any{nil}, true},
		{"to_number(null)", "to_number", []any{nil}, float64(0)},
		{"to_boolean(null)", "to_boolean", []any{nil}, false},
		{"to_string(null)", "to_string", []any{nil}, ""},
		{"upper(null)", "upper", []any{nil}, ""},
		{"sum(null)", "sum", []any{nil}, float64(0)},
		{"avg(null)", "avg", []any{}, float64(0)},
		{"min(null)", "min", []any{}, nil},
		{"contains(null, x)", "contains", []any{nil, "x"}, false},
		{"get(null, a.b)", "get", []any{nil, "a.b"}, nil},
		{"has(null, a.b)", "has", []any{nil, "a.b"}, false},
		{"json_decode(null)", "json_decode", []any{nil}, nil},
		{"base64_decode(bad)", "base64_decode", []any{"not base64!!"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := Builtins[tt.fn]
			require.True(t, ok, "builtin %q must be registered", tt.fn)
			got, err := fn(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltinStringFunctions(t *testing.T) {
	v, err := Builtins["upper"]([]any{"abc"})
	require.NoError(t, err)
	assert.Equal(t, "ABC", v)

	v, err = Builtins["truncate"]([]any{"hello world", float64(5)})
	require.NoError(t, err)
	assert.Contains(t, v, "hello")

	v, err = Builtins["split"]([]any{"a,b,c", ","})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, v)
}

func TestBuiltinArrayFunctions(t *testing.T) {
	arr := []any{float64(3), float64(1), float64(2)}

	v, err := Builtins["sort"]([]any{arr})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, v)

	v, err = Builtins["reverse"]([]any{[]any{"a", "b", "c"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"c", "b", "a"}, v)

	v, err = Builtins["contains"]([]any{[]any{"a", "b"}, "b"})
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Builtins["range"]([]any{float64(0), float64(5), float64(1)})
	require.NoError(t, err)
	assert.Len(t, v, 5)
}

func TestBuiltinTypeofCoversAllVariants(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{nil, "null"},
		{[]any{}, "array"},
		{map[string]any{}, "object"},
		{"x", "string"},
		{float64(1), "number"},
		{true, "boolean"},
	}
	for _, tt := range tests {
		got, err := Builtins["typeof"]([]any{tt.v})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestBuiltinUUIDIsV4Shaped(t *testing.T) {
	v, err := Builtins["uuid"](nil)
	require.NoError(t, err)
	s, ok := v.(string)
	require.True(t, ok)
	assert.Len(t, s, 36)
}

func TestBuiltinGetWithDefault(t *testing.T) {
	obj := map[string]any{"a": map[string]any{"b": "found"}}
	v, err := Builtins["get"]([]any{obj, "a.b"})
	require.NoError(t, err)
	assert.Equal(t, "found", v)

	v, err = Builtins["get"]([]any{obj, "a.missing", "fallback"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}
