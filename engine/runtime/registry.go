// Package runtime defines the NodeRuntime contract and a type-keyed
// registry the Executor consults to dispatch each node. Grounded in the
// teacher's tool/runtime registry pattern (a concurrency-safe map with
// register/get/has/list), generalized from the teacher's single-domain
// registry to the spec's {variant}:{discriminator} key scheme.
package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flowscript/flowscript/engine/ast"
)

// Input is everything a NodeRuntime needs to execute one node.
type Input struct {
	Node   ast.Node
	Value  any // resolved upstream input, nil if node.Input is unset/unsuccessful
	Config map[string]any
	State  StateReader
	Signal context.Context // carries cancellation; runtimes must respect ctx.Done()
}

// StateReader is the subset of ExecutionState a runtime is allowed to
// read. Defined here (rather than importing engine/state) to keep the
// registry decoupled from the state package's concrete type.
type StateReader interface {
	GetNodeOutput(id string) (any, bool)
	GetNodeOutputs() map[string]any
}

// NodeRuntime executes one node variant/discriminator pair.
type NodeRuntime interface {
	Execute(ctx context.Context, in Input) (any, error)
}

// RuntimeFunc adapts a plain function to the NodeRuntime interface.
type RuntimeFunc func(ctx context.Context, in Input) (any, error)

func (f RuntimeFunc) Execute(ctx context.Context, in Input) (any, error) {
	return f(ctx, in)
}

// Registry is a concurrency-safe type-key -> NodeRuntime mapping.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]NodeRuntime
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: map[string]NodeRuntime{}}
}

// Register associates typeKey with rt, overwriting any prior binding.
func (r *Registry) Register(typeKey string, rt NodeRuntime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[typeKey] = rt
}

// Get returns the runtime bound to typeKey, or ok=false if none.
func (r *Registry) Get(typeKey string) (NodeRuntime, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.byID[typeKey]
	return rt, ok
}

// Has reports whether typeKey has a bound runtime.
func (r *Registry) Has(typeKey string) bool {
	_, ok := r.Get(typeKey)
	return ok
}

// List returns every registered type key, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.byID))
	for k := range r.byID {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every registered binding.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = map[string]NodeRuntime{}
}

// TypeKey builds the registry lookup key for a node, combining its kind
// with a variant discriminator (source/sink/transform type), or the bare
// kind name for control-flow nodes. The executor only looks up
// source/transform/sink keys; control-flow nodes are interpreted in-process
// and a runtime registered under their key is not consulted.
func TypeKey(n ast.Node) string {
	switch v := n.(type) {
	case *ast.SourceNode:
		return fmt.Sprintf("source:%s", v.SourceType)
	case *ast.TransformNode:
		return fmt.Sprintf("transform:%s", v.TransformType)
	case *ast.SinkNode:
		return fmt.Sprintf("sink:%s", v.SinkType)
	default:
		return string(n.Kind())
	}
}
