// Package parser turns a workflow document's raw source text into a typed
// ast.Workflow, accumulating every recoverable error along the way rather
// than stopping at the first one.
package parser

import (
	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/sourcemap"
)

// Parse decodes source (the full contents of a .flow file) into a
// Workflow. Frontmatter and body errors are collected together; a
// frontmatter structural failure (no delimiters, no body) aborts before
// the body is attempted since there is nothing left worth parsing.
func Parse(source, filePath string) (*ast.Workflow, []error) {
	sm := sourcemap.New(source, filePath)

	split, err := split(source, sm)
	if err != nil {
		return nil, []error{err}
	}

	metadata, err := parseFrontmatter(split.Frontmatter, split.FrontmatterOffset, sm)
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}

	nodes, bodyErrs := parseBody(split.Body, split.BodyOffset, sm)
	errs = append(errs, bodyErrs...)

	wf := &ast.Workflow{
		Metadata:  metadata,
		Nodes:     nodes,
		SourceMap: sm,
	}
	return wf, errs
}
