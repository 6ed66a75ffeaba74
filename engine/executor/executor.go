package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/expr"
	"github.com/flowscript/flowscript/engine/ferrors"
	"github.com/flowscript/flowscript/engine/planner"
	"github.com/flowscript/flowscript/engine/runtime"
	"github.com/flowscript/flowscript/engine/state"
	"github.com/flowscript/flowscript/internal/logx"
)

// Executor drives a plan to completion against a shared ExecutionState.
type Executor struct {
	Registry    *runtime.Registry
	WorkflowDir string
	Log         logx.Logger
	Now         func() time.Time
	Loader      WorkflowLoader

	activeMu    sync.Mutex
	activePaths map[string]bool
	nodeIndex   map[string]ast.Node
}

// WorkflowLoader parses another workflow file by path, for include/call.
// Implemented by the CLI (cli/cmd's fileLoader) so the executor package
// stays decoupled from filesystem access and the parser.
type WorkflowLoader interface {
	Load(path string) (*ast.Workflow, error)
}

// New constructs an Executor backed by reg.
func New(reg *runtime.Registry, workflowDir string) *Executor {
	return &Executor{Registry: reg, WorkflowDir: workflowDir, Log: logx.FromContext(context.Background()), Now: time.Now}
}

// Run drives wf's top-level plan to completion, returning when the last
// wave has terminated or the context is cancelled.
func (ex *Executor) Run(ctx context.Context, wf *ast.Workflow, st *state.ExecutionState) error {
	st.MarkRunning()
	ex.nodeIndex, _ = ast.ByID(wf.Nodes)
	plan, err := planner.Plan(wf.Metadata.Name, wf.Nodes)
	if err != nil {
		st.MarkFailed()
		return err
	}
	if err := ex.runPlan(ctx, plan, st, nil); err != nil {
		st.MarkFailed()
		return err
	}
	st.MarkCompleted()
	return nil
}

// runPlan drives every wave of plan sequentially; within a wave, nodes
// execute concurrently. locals carries iteration variables ($item,
// $index, ...) inherited from an enclosing foreach/loop, if any.
func (ex *Executor) runPlan(ctx context.Context, plan *planner.ExecutionPlan, st *state.ExecutionState, locals map[string]any) error {
	for _, wave := range plan.Waves {
		if err := ctx.Err(); err != nil {
			return err
		}
		g, gctx := errgroup.WithContext(ctx)
		ids := append([]string{}, wave.NodeIDs...)
		sort.Strings(ids)
		for _, id := range ids {
			node := plan.Nodes[id]
			g.Go(func() error {
				return ex.executeOne(gctx, node, st, locals)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// runNodeList plans and runs an ad-hoc child list (a control-flow
// container's body) as its own mini wave sequence.
func (ex *Executor) runNodeList(ctx context.Context, workflowID string, nodes []ast.Node, st *state.ExecutionState, locals map[string]any) error {
	if len(nodes) == 0 {
		return nil
	}
	plan, err := planner.Plan(workflowID, nodes)
	if err != nil {
		return err
	}
	return ex.runPlan(ctx, plan, st, locals)
}

// executeOne dispatches a single node: data-flow nodes go through the
// runtime registry with retry; control-flow nodes are interpreted
// in-process. Outside an iteration scope (locals == nil), a node already
// recorded as successful is skipped, which is how a resumed run avoids
// re-executing finished nodes; loop/while/foreach bodies always run.
func (ex *Executor) executeOne(ctx context.Context, node ast.Node, st *state.ExecutionState, locals map[string]any) error {
	base := node.Base()
	if locals == nil {
		if _, ok := st.GetNodeOutput(base.ID); ok {
			return nil
		}
	}
	switch node.Kind() {
	case ast.KindSource, ast.KindTransform, ast.KindSink:
		return ex.executeLeaf(ctx, node, st, locals)
	case ast.KindIf:
		return ex.executeIf(ctx, node.(*ast.IfNode), st, locals)
	case ast.KindBranch:
		return ex.executeBranch(ctx, node.(*ast.BranchNode), st, locals)
	case ast.KindLoop:
		return ex.executeLoop(ctx, node.(*ast.LoopNode), st, locals)
	case ast.KindWhile:
		return ex.executeWhile(ctx, node.(*ast.WhileNode), st, locals)
	case ast.KindForeach:
		return ex.executeForeach(ctx, node.(*ast.ForeachNode), st, locals)
	case ast.KindParallel:
		return ex.executeParallel(ctx, node.(*ast.ParallelNode), st, locals)
	case ast.KindCheckpoint:
		return ex.executeCheckpoint(ctx, node.(*ast.CheckpointNode), st)
	case ast.KindDelay:
		return ex.executeDelay(ctx, node.(*ast.DelayNode), st, locals)
	case ast.KindTimeout:
		return ex.executeTimeout(ctx, node.(*ast.TimeoutNode), st, locals)
	case ast.KindPhase:
		return ex.executePhase(ctx, node.(*ast.PhaseNode), st, locals)
	case ast.KindContext:
		return ex.executeContext(ctx, node.(*ast.ContextNode), st)
	case ast.KindSet:
		return ex.executeSet(ctx, node.(*ast.SetNode), st, locals)
	case ast.KindInclude, ast.KindCall:
		return ex.executeSubWorkflow(ctx, node, st)
	default:
		return fmt.Errorf("executor: unhandled node kind %q for %q", node.Kind(), base.ID)
	}
}

// executeLeaf runs a data-flow node (source/transform/sink) through the
// runtime registry with retry.
func (ex *Executor) executeLeaf(ctx context.Context, node ast.Node, st *state.ExecutionState, locals map[string]any) error {
	base := node.Base()
	start := ex.Now()
	st.RecordNodeResult(base.ID, state.NodeResult{Status: state.StatusRunning, StartedAt: start})

	typeKey := runtime.TypeKey(node)
	rt, ok := ex.Registry.Get(typeKey)
	if !ok {
		err := &ferrors.UnknownRuntimeError{Type: typeKey}
		st.RecordNodeResult(base.ID, state.NodeResult{Status: state.StatusFailed, Err: err, StartedAt: start, CompletedAt: ex.Now()})
		return err
	}

	input := resolveInput(st, base.Input)
	cfg, err := ex.resolveConfig(node, st, locals)
	if err != nil {
		st.RecordNodeResult(base.ID, state.NodeResult{Status: state.StatusFailed, Err: err, StartedAt: start, CompletedAt: ex.Now()})
		return err
	}

	retryCfg := resolveRetryConfig(base.ErrorConfig)
	var fallback func(context.Context) (any, error)
	if base.ErrorConfig != nil && base.ErrorConfig.Fallback != "" {
		fallbackID := base.ErrorConfig.Fallback
		fallback = func(ctx context.Context) (any, error) {
			out, ok := st.GetNodeOutput(fallbackID)
			if !ok {
				return nil, fmt.Errorf("fallback node %q has no successful output", fallbackID)
			}
			return out, nil
		}
	}

	attempts := 0
	out, err := func() (any, error) {
		var o any
		var e error
		o, e, attempts = executeWithRetry(ctx, retryCfg, func(ctx context.Context) (any, error) {
			return rt.Execute(ctx, runtime.Input{Node: node, Value: input, Config: cfg, State: st, Signal: ctx})
		}, fallback)
		return o, e
	}()

	completed := ex.Now()
	if err != nil {
		st.RecordNodeResult(base.ID, state.NodeResult{Status: state.StatusFailed, Err: err, StartedAt: start, CompletedAt: completed, Attempts: attempts})
		return err
	}
	st.RecordNodeResult(base.ID, state.NodeResult{Status: state.StatusSuccess, Output: out, StartedAt: start, CompletedAt: completed, Attempts: attempts})
	return nil
}

func resolveInput(st *state.ExecutionState, inputID string) any {
	if inputID == "" {
		return nil
	}
	out, ok := st.GetNodeOutput(inputID)
	if !ok {
		return nil
	}
	return out
}

// perItemConfigKeys holds config keys whose template evaluation must be
// deferred to the runtime itself rather than resolved once up front,
// because they are evaluated once per element ($item/$index/$items) —
// the built-in map/filter transforms (engine/runtime) re-evaluate these
// raw expressions per collection element.
var perItemConfigKeys = map[string]map[string]bool{
	"map":    {"expression": true},
	"filter": {"condition": true},
}

// resolveConfig evaluates every string-valued config entry as a template
// in the node's current context; non-string values pass through as-is.
func (ex *Executor) resolveConfig(node ast.Node, st *state.ExecutionState, locals map[string]any) (map[string]any, error) {
	raw := configOf(node)
	out := make(map[string]any, len(raw))
	ctx := ex.buildContext(st, locals)
	deferred := deferredKeysFor(node)
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		if deferred[k] {
			out[k] = s
			continue
		}
		val, err := expr.EvalTemplate(s, ctx)
		if err != nil {
			return nil, err
		}
		out[k] = val
	}
	return out, nil
}

func deferredKeysFor(node ast.Node) map[string]bool {
	t, ok := node.(*ast.TransformNode)
	if !ok {
		return nil
	}
	return perItemConfigKeys[t.TransformType]
}

func configOf(node ast.Node) map[string]any {
	switch v := node.(type) {
	case *ast.SourceNode:
		return v.Config
	case *ast.TransformNode:
		return v.Config
	case *ast.SinkNode:
		return v.Config
	default:
		return nil
	}
}

// buildContext merges the execution state's layers with $-prefixed
// locals (iteration variables, $secrets, $workflowDir).
func (ex *Executor) buildContext(st *state.ExecutionState, locals map[string]any) expr.Context {
	config, secrets, global, phase, node := st.Layers()
	merged := map[string]any{}
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range st.GetNodeOutputs() {
		merged[k] = v
	}
	allLocals := map[string]any{
		"$secrets":     secrets,
		"$workflowDir": ex.WorkflowDir,
	}
	for k, v := range locals {
		allLocals[k] = v
	}
	return expr.Context{
		Layers: []map[string]any{config, merged, phase, node},
		Locals: allLocals,
	}
}

// evalCondition evaluates a bare condition expression (an attribute
// value that is itself an expression, not a template) to a bool.
func (ex *Executor) evalCondition(condition string, st *state.ExecutionState, locals map[string]any) (bool, error) {
	if condition == "" {
		return false, nil
	}
	v, err := expr.Eval(condition, ex.buildContext(st, locals))
	if err != nil {
		return false, err
	}
	return expr.Truthy(v), nil
}
