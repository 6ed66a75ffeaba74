// Package state implements ExecutionState: the single-writer record of a
// workflow run's node results and layered context. Grounded in the
// teacher's workflow-state mutation style (mutex-guarded maps with small
// accessor methods), generalized to the spec's context-layering model.
package state

import (
	"maps"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"
)

// Status enumerates the lifecycle of a node or a whole run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
	// StatusCompleted is the run-level terminal-success value (§3's
	// ExecutionState.status enum), distinct from a node result's
	// StatusSuccess.
	StatusCompleted Status = "completed"
)

// NodeResult records the outcome of executing a single node.
type NodeResult struct {
	NodeID      string
	Status      Status
	Output      any
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
	Attempts    int
}

// Duration returns the wall-clock time spent on this node, zero if it
// hasn't completed.
func (r NodeResult) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Options configures createExecutionState.
type Options struct {
	RunID         string
	Config        map[string]any
	Secrets       map[string]any
	GlobalContext map[string]any
}

// ExecutionState is the single-writer mutable record of a run. All
// mutating methods must be called from the state's owner goroutine (the
// Executor); concurrent reads are protected by a mutex so runtimes and
// expression evaluation can safely read in-flight results from other
// goroutines within the same wave-join window.
type ExecutionState struct {
	mu sync.RWMutex

	WorkflowID string
	RunID      string
	Status     Status
	CurrentWave int
	StartedAt   time.Time
	CompletedAt time.Time

	config        map[string]any
	secrets       map[string]any
	globalContext map[string]any
	phaseContext  map[string]any
	nodeContext   map[string]any

	nodeResults map[string]NodeResult
	order       []string // insertion order, for deterministic serialization
}

// New creates a fresh ExecutionState. RunID defaults to a UUID v4 when
// opts.RunID is empty.
func New(workflowID string, opts Options) *ExecutionState {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &ExecutionState{
		WorkflowID:    workflowID,
		RunID:         runID,
		Status:        StatusPending,
		config:        copyMap(opts.Config),
		secrets:       copyMap(opts.Secrets),
		globalContext: copyMap(opts.GlobalContext),
		phaseContext:  map[string]any{},
		nodeContext:   map[string]any{},
		nodeResults:   map[string]NodeResult{},
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RecordNodeResult stores result, overwriting any prior result for the
// same node id. Single-writer: callers must serialize calls through the
// state's owner.
func (s *ExecutionState) RecordNodeResult(id string, result NodeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodeResults[id]; !exists {
		s.order = append(s.order, id)
	}
	result.NodeID = id
	s.nodeResults[id] = result
}

// GetNodeOutput returns the node's output and true iff it completed with
// StatusSuccess.
func (s *ExecutionState) GetNodeOutput(id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.nodeResults[id]
	if !ok || r.Status != StatusSuccess {
		return nil, false
	}
	return r.Output, true
}

// HasNodeExecuted reports whether id has any recorded result.
func (s *ExecutionState) HasNodeExecuted(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodeResults[id]
	return ok
}

// GetNodeOutputs returns every successfully-completed node's output,
// keyed by node id.
func (s *ExecutionState) GetNodeOutputs() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]any{}
	for _, id := range s.order {
		r := s.nodeResults[id]
		if r.Status == StatusSuccess {
			out[id] = r.Output
		}
	}
	return out
}

// NodeResults returns a snapshot of every recorded result in insertion
// order, for serialization.
func (s *ExecutionState) NodeResults() []NodeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NodeResult, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodeResults[id])
	}
	return out
}

// MergeGlobalContext merges entries into the global context layer,
// overwriting any existing scalar keys and deep-merging nested maps.
// Used by include to fold bindings into the parent's global context,
// the same mergo.WithOverride composition the teacher uses for its own
// Input/Output merging (engine/core/params.go).
func (s *ExecutionState) MergeGlobalContext(entries map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make(map[string]any, len(s.globalContext))
	maps.Copy(merged, s.globalContext)
	if err := mergo.Merge(&merged, entries, mergo.WithOverride, mergo.WithAppendSlice); err == nil {
		s.globalContext = merged
	} else {
		for k, v := range entries {
			s.globalContext[k] = v
		}
	}
}

// SetPhaseContext shallow-replaces the phase context layer.
func (s *ExecutionState) SetPhaseContext(ctx map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phaseContext = copyMap(ctx)
}

// SetNodeContext shallow-replaces the node context layer.
func (s *ExecutionState) SetNodeContext(ctx map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodeContext = copyMap(ctx)
}

// Layers returns the five context layers in low-to-high precedence
// order, for the expression evaluator to merge.
func (s *ExecutionState) Layers() (config, secrets, global, phase, node map[string]any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.config), copyMap(s.secrets), copyMap(s.globalContext), copyMap(s.phaseContext), copyMap(s.nodeContext)
}

// ReplaceConfigSecrets overrides the config/secrets layers, used by
// persistence Load when the caller supplies overrides.
func (s *ExecutionState) ReplaceConfigSecrets(config, secrets map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if config != nil {
		s.config = copyMap(config)
	}
	if secrets != nil {
		s.secrets = copyMap(secrets)
	}
}

// MarkRunning transitions the run to StatusRunning and stamps StartedAt
// if unset.
func (s *ExecutionState) MarkRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusRunning
	if s.StartedAt.IsZero() {
		s.StartedAt = nowFunc()
	}
}

// MarkCompleted transitions the run to StatusCompleted and stamps
// CompletedAt.
func (s *ExecutionState) MarkCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusCompleted
	s.CompletedAt = nowFunc()
}

// MarkFailed transitions the run to StatusFailed and stamps CompletedAt.
func (s *ExecutionState) MarkFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusFailed
	s.CompletedAt = nowFunc()
}

// MarkCancelled transitions the run to StatusCancelled and stamps
// CompletedAt.
func (s *ExecutionState) MarkCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = StatusCancelled
	s.CompletedAt = nowFunc()
}

// nowFunc is a package-level indirection so persistence round-trip tests
// can freeze time without depending on wall-clock granularity.
var nowFunc = time.Now
