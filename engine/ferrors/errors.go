// Package ferrors implements the error taxonomy of the specification as a
// single concrete error type per kind, grounded in engine/core/error.go's
// {Message, Code, Details, cause} shape from the teacher repository.
package ferrors

import (
	"fmt"

	"github.com/flowscript/flowscript/engine/sourcemap"
)

// Kind is the classifying error code, orthogonal to runtime origin.
type Kind string

const (
	// Parse kinds
	KindYamlInvalid        Kind = "YamlInvalid"
	KindXmlInvalid         Kind = "XmlInvalid"
	KindMissingFrontmatter Kind = "MissingFrontmatter"
	KindMissingBody        Kind = "MissingBody"

	// Validation kinds
	KindMissingRequiredField Kind = "MissingRequiredField"
	KindInvalidFieldType     Kind = "InvalidFieldType"
	KindUnknownNodeType      Kind = "UnknownNodeType"
	KindUndefinedNodeRef     Kind = "UndefinedNodeRef"
	KindUndefinedSecretRef   Kind = "UndefinedSecretRef"
	KindDuplicateNodeId      Kind = "DuplicateNodeId"
	KindCircularDependency   Kind = "CircularDependency"
	KindInvalidSchema        Kind = "InvalidSchema"
	KindTypeMismatch         Kind = "TypeMismatch"

	// Expression
	KindExpressionError Kind = "ExpressionError"

	// Runtime domain
	KindHttp          Kind = "Http"
	KindFile          Kind = "File"
	KindTimeout       Kind = "Timeout"
	KindPathTraversal Kind = "PathTraversal"
	KindAI            Kind = "AI"

	// Control
	KindAbort Kind = "AbortError"

	// Internal
	KindUnknownRuntime Kind = "UnknownRuntime"
)

// Error is the single concrete error type backing every kind in the
// taxonomy. It carries a structured code, a human message, an optional
// source location, hints, and kind-specific fields.
type Error struct {
	Kind    Kind
	Message string
	Loc     *sourcemap.Location
	Hints   []string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Loc != nil {
		return fmt.Sprintf("%s: %s (at %d:%d)", e.Kind, e.Message, e.Loc.Start.Line, e.Loc.Start.Column)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, message string) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithLocation returns a copy of e with Loc set.
func (e *Error) WithLocation(loc sourcemap.Location) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Loc = &loc
	return &cp
}

// WithHint appends a hint and returns e for chaining.
func (e *Error) WithHint(hint string) *Error {
	if e == nil {
		return nil
	}
	e.Hints = append(e.Hints, hint)
	return e
}

// WithDetail sets a detail key and returns e for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e == nil {
		return nil
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// --- Runtime domain errors -------------------------------------------------

// HTTPError is raised by HTTP runtimes.
type HTTPError struct {
	Status    int
	Body      string
	Retryable bool
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status=%d", e.Status)
}

// FileError is raised by file runtimes.
type FileError struct {
	Path string
	Code string // e.g. "ENOENT", "PARSE_ERROR"
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file error: %s (%s)", e.Path, e.Code)
}

// TimeoutError is raised when an operation exceeds its deadline.
type TimeoutError struct {
	Ms int64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %dms", e.Ms)
}

// PathTraversalError is raised when a file runtime detects an escape from
// its sandboxed root.
type PathTraversalError struct {
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path traversal detected: %s", e.Path)
}

// AIError is raised by AI-domain runtimes.
type AIError struct {
	Code      string // TIMEOUT | RATE_LIMIT | VALIDATION | API_ERROR
	Retryable bool
	Message   string
}

func (e *AIError) Error() string {
	return fmt.Sprintf("ai error [%s]: %s", e.Code, e.Message)
}

// AbortError signals a user-initiated cancellation. Never retryable.
type AbortError struct {
	Reason string
}

func (e *AbortError) Error() string {
	if e.Reason == "" {
		return "aborted"
	}
	return "aborted: " + e.Reason
}

// UnknownRuntimeError is raised when no runtime is registered for a type key.
type UnknownRuntimeError struct {
	Type string
}

func (e *UnknownRuntimeError) Error() string {
	return fmt.Sprintf("unknown runtime: %s", e.Type)
}
