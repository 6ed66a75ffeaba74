package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscript/flowscript/engine/ast"
)

func TestBuildConfigMergesDefaultsAndOverrides(t *testing.T) {
	t.Run("Should layer -c overrides on top of declared defaults", func(t *testing.T) {
		meta := ast.Metadata{
			Config: map[string]ast.ConfigField{
				"limit":  {Type: ast.ConfigTypeNumber, Default: float64(5)},
				"nested": {Type: ast.ConfigTypeObject, Default: map[string]any{"k": "orig"}},
			},
		}
		merged, err := buildConfig(meta, []string{`limit=10`, `nested={"k":"v"}`})
		require.NoError(t, err)
		assert.Equal(t, float64(10), merged["limit"])
		assert.Equal(t, map[string]any{"k": "v"}, merged["nested"])
	})

	t.Run("Should reject a flag with no = separator", func(t *testing.T) {
		_, err := buildConfig(ast.Metadata{}, []string{"bogus"})
		assert.Error(t, err)
	})

	t.Run("Should return only declared defaults with no flags", func(t *testing.T) {
		meta := ast.Metadata{Config: map[string]ast.ConfigField{"x": {Default: "y"}}}
		merged, err := buildConfig(meta, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"x": "y"}, merged)
	})
}

func TestDecodeConfigValue(t *testing.T) {
	t.Run("Should parse JSON-shaped values", func(t *testing.T) {
		assert.Equal(t, float64(10), decodeConfigValue("10"))
		assert.Equal(t, true, decodeConfigValue("true"))
		assert.Equal(t, map[string]any{"k": "v"}, decodeConfigValue(`{"k":"v"}`))
	})

	t.Run("Should fall back to the raw string when not JSON", func(t *testing.T) {
		assert.Equal(t, "hello world", decodeConfigValue("hello world"))
	})
}

func TestSecretsFromEnv(t *testing.T) {
	t.Run("Should only include declared secrets present in the environment", func(t *testing.T) {
		t.Setenv("FLOWSCRIPT_TEST_SECRET", "shh")
		secrets := secretsFromEnv([]string{"FLOWSCRIPT_TEST_SECRET", "FLOWSCRIPT_TEST_ABSENT"})
		assert.Equal(t, map[string]any{"FLOWSCRIPT_TEST_SECRET": "shh"}, secrets)
	})
}

func TestNewRunCmdFlags(t *testing.T) {
	t.Run("Should declare dry-run, set, and input flags", func(t *testing.T) {
		cmd := newRunCmd()
		assert.Equal(t, "run <file>", cmd.Use)
		assert.NotNil(t, cmd.Flags().Lookup("dry-run"))
		assert.NotNil(t, cmd.Flags().Lookup("set"))
		assert.NotNil(t, cmd.Flags().Lookup("input"))
	})
}
