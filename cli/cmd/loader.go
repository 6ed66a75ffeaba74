package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/parser"
	"github.com/flowscript/flowscript/engine/validator"
)

// fileLoader implements executor.WorkflowLoader, resolving include/call
// workflow paths relative to the root workflow's directory.
type fileLoader struct {
	baseDir string
}

func (l *fileLoader) Load(path string) (*ast.Workflow, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.baseDir, path)
	}
	source, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("load workflow %q: %w", path, err)
	}
	wf, errs := parser.Parse(string(source), full)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	result := validator.Validate(wf, validator.Options{})
	if !result.Valid {
		return nil, result.Errors[0]
	}
	return wf, nil
}
