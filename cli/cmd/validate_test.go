package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkflowFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.fsx")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalWorkflow = "---\nname: demo\nversion: 1.0.0\n---\n" +
	"<workflow><transform id=\"t\" type=\"template\"><template>hello world</template></transform></workflow>"

func TestValidateFile(t *testing.T) {
	t.Run("Should report valid for a well-formed workflow", func(t *testing.T) {
		path := writeWorkflowFile(t, minimalWorkflow)
		fv := validateFile(path, false)
		assert.True(t, fv.Valid)
		assert.Empty(t, fv.Errors)
	})

	t.Run("Should report parse errors for malformed source", func(t *testing.T) {
		path := writeWorkflowFile(t, "not a workflow at all")
		fv := validateFile(path, false)
		assert.False(t, fv.Valid)
		assert.NotEmpty(t, fv.Errors)
	})

	t.Run("Should report an error when the file cannot be read", func(t *testing.T) {
		fv := validateFile(filepath.Join(t.TempDir(), "missing.fsx"), false)
		assert.False(t, fv.Valid)
		assert.NotEmpty(t, fv.Errors)
	})
}

func TestNewValidateCmdFlags(t *testing.T) {
	t.Run("Should declare the strict flag", func(t *testing.T) {
		cmd := newValidateCmd()
		assert.NotNil(t, cmd.Flags().Lookup("strict"))
	})
}
