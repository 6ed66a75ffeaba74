package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/expr"
	"github.com/flowscript/flowscript/engine/ferrors"
	"github.com/flowscript/flowscript/engine/state"
	"github.com/flowscript/flowscript/internal/durationx"
)

// evalRaw evaluates s as a bare expression (no {{ }} delimiters expected).
func evalRaw(s string, ctx expr.Context) (any, error) {
	return expr.Eval(s, ctx)
}

const defaultWhileSafetyBound = 10_000

func (ex *Executor) executeIf(ctx context.Context, n *ast.IfNode, st *state.ExecutionState, locals map[string]any) error {
	ok, err := ex.evalCondition(n.Condition, st, locals)
	if err != nil {
		return err
	}
	children := n.Else
	if ok {
		children = n.Then
	}
	return ex.runNodeList(ctx, n.ID+":if", children, st, locals)
}

func (ex *Executor) executeBranch(ctx context.Context, n *ast.BranchNode, st *state.ExecutionState, locals map[string]any) error {
	for _, c := range n.Cases {
		ok, err := ex.evalCondition(c.When, st, locals)
		if err != nil {
			return err
		}
		if ok {
			return ex.runNodeList(ctx, n.ID+":branch", c.Nodes, st, locals)
		}
	}
	return ex.runNodeList(ctx, n.ID+":branch-default", n.Default, st, locals)
}

func (ex *Executor) executeLoop(ctx context.Context, n *ast.LoopNode, st *state.ExecutionState, locals map[string]any) error {
	maxIter := n.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultWhileSafetyBound
	}
	for i := 0; i < maxIter; i++ {
		iterLocals := withIterationLocals(locals, i, maxIter)
		if err := ex.runNodeList(ctx, fmt.Sprintf("%s:loop:%d", n.ID, i), n.Body, st, iterLocals); err != nil {
			return err
		}
		if n.BreakCondition != "" {
			brk, err := ex.evalCondition(n.BreakCondition, st, iterLocals)
			if err != nil {
				return err
			}
			if brk {
				break
			}
		}
	}
	return nil
}

func (ex *Executor) executeWhile(ctx context.Context, n *ast.WhileNode, st *state.ExecutionState, locals map[string]any) error {
	for i := 0; i < defaultWhileSafetyBound; i++ {
		ok, err := ex.evalCondition(n.Condition, st, locals)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		iterLocals := withIterationLocals(locals, i, -1)
		if err := ex.runNodeList(ctx, fmt.Sprintf("%s:while:%d", n.ID, i), n.Body, st, iterLocals); err != nil {
			return err
		}
	}
	return fmt.Errorf("while %q: exceeded safety bound of %d iterations", n.ID, defaultWhileSafetyBound)
}

func (ex *Executor) executeForeach(ctx context.Context, n *ast.ForeachNode, st *state.ExecutionState, locals map[string]any) error {
	items, err := ex.evalCollection(n.Collection, st, locals)
	if err != nil {
		return err
	}

	concurrency := n.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)
	var mu sync.Mutex
	for idx, item := range items {
		idx, item := idx, item
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			mu.Lock()
			iterLocals := foreachLocals(locals, n, items, idx, item)
			mu.Unlock()
			return ex.runNodeList(gctx, fmt.Sprintf("%s:foreach:%d", n.ID, idx), n.Body, st, iterLocals)
		})
	}
	return g.Wait()
}

func (ex *Executor) evalCollection(collection string, st *state.ExecutionState, locals map[string]any) ([]any, error) {
	raw, err := evalRaw(collection, ex.buildContext(st, locals))
	if err != nil {
		return nil, err
	}
	switch t := raw.(type) {
	case []any:
		return t, nil
	case nil:
		return nil, nil
	default:
		return []any{t}, nil
	}
}

func withIterationLocals(locals map[string]any, index, total int) map[string]any {
	out := map[string]any{}
	for k, v := range locals {
		out[k] = v
	}
	out["$index"] = float64(index)
	out["$first"] = index == 0
	if total >= 0 {
		out["$last"] = index == total-1
	}
	return out
}

func foreachLocals(locals map[string]any, n *ast.ForeachNode, items []any, idx int, item any) map[string]any {
	out := withIterationLocals(locals, idx, len(items))
	out["$item"] = item
	out["$items"] = items
	if n.ItemVar != "" {
		out["$"+n.ItemVar] = item
	}
	return out
}

func (ex *Executor) executeParallel(ctx context.Context, n *ast.ParallelNode, st *state.ExecutionState, locals map[string]any) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, branch := range n.Branches {
		i, branch := i, branch
		g.Go(func() error {
			return ex.runNodeList(gctx, fmt.Sprintf("%s:parallel:%d", n.ID, i), branch, st, locals)
		})
	}
	return g.Wait()
}

// executeCheckpoint applies defaultAction immediately, since a batch
// (non-interactive) execution has no UI to suspend for.
func (ex *Executor) executeCheckpoint(ctx context.Context, n *ast.CheckpointNode, st *state.ExecutionState) error {
	start := ex.Now()
	st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusRunning, StartedAt: start})
	if n.DefaultAction == ast.CheckpointReject {
		err := fmt.Errorf("checkpoint %q: rejected by default action", n.ID)
		st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusFailed, Err: err, StartedAt: start, CompletedAt: ex.Now()})
		return err
	}
	st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusSuccess, Output: map[string]any{"approved": true}, StartedAt: start, CompletedAt: ex.Now()})
	return nil
}

func (ex *Executor) executeDelay(ctx context.Context, n *ast.DelayNode, st *state.ExecutionState, locals map[string]any) error {
	start := ex.Now()
	st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusRunning, StartedAt: start})
	d, err := durationx.Parse(n.Duration)
	if err != nil {
		st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusFailed, Err: err, StartedAt: start, CompletedAt: ex.Now()})
		return err
	}
	select {
	case <-ctx.Done():
		err := &ferrors.AbortError{Reason: "cancelled during delay"}
		st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusCancelled, Err: err, StartedAt: start, CompletedAt: ex.Now()})
		return err
	case <-time.After(d):
	}
	input := resolveInput(st, n.Input)
	st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusSuccess, Output: input, StartedAt: start, CompletedAt: ex.Now()})
	return nil
}

func (ex *Executor) executeTimeout(ctx context.Context, n *ast.TimeoutNode, st *state.ExecutionState, locals map[string]any) error {
	d, err := durationx.Parse(n.Duration)
	if err != nil {
		return err
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err = ex.runNodeList(tctx, n.ID+":timeout", n.Children, st, locals)
	if err != nil && tctx.Err() != nil {
		if n.OnTimeout != "" {
			if target, ok := ex.nodeIndex[n.OnTimeout]; ok {
				return ex.executeOne(ctx, target, st, locals)
			}
		}
		return &ferrors.TimeoutError{Ms: d.Milliseconds()}
	}
	return err
}

func (ex *Executor) executePhase(ctx context.Context, n *ast.PhaseNode, st *state.ExecutionState, locals map[string]any) error {
	st.SetPhaseContext(map[string]any{"name": n.Name})
	return ex.runNodeList(ctx, n.ID+":phase", n.Children, st, locals)
}

func (ex *Executor) executeContext(ctx context.Context, n *ast.ContextNode, st *state.ExecutionState) error {
	_, _, _, _, node := st.Layers()
	entries := map[string]any{}
	for k, val := range node {
		entries[k] = val
	}
	exprCtx := ex.buildContext(st, nil)
	for _, e := range n.Entries {
		v, err := evalRaw(e.Value, exprCtx)
		if err != nil {
			return err
		}
		entries[e.Key] = v
	}
	st.SetNodeContext(entries)
	return nil
}

func (ex *Executor) executeSet(ctx context.Context, n *ast.SetNode, st *state.ExecutionState, locals map[string]any) error {
	v, err := evalRaw(n.Value, ex.buildContext(st, locals))
	if err != nil {
		return err
	}
	_, _, _, _, node := st.Layers()
	updated := map[string]any{}
	for k, val := range node {
		updated[k] = val
	}
	updated[n.Var] = v
	st.SetNodeContext(updated)
	return nil
}

// executeSubWorkflow runs an include/call node by dispatching to
// executeInclude/executeCall (include.go). Loading the other workflow file
// goes through ex.Loader, which the caller supplies; without one the node
// fails.
func (ex *Executor) executeSubWorkflow(ctx context.Context, node ast.Node, st *state.ExecutionState) error {
	if ex.Loader == nil {
		return fmt.Errorf("node %q: no workflow loader configured for include/call", node.Base().ID)
	}
	switch n := node.(type) {
	case *ast.IncludeNode:
		return ex.executeInclude(ctx, n, st)
	case *ast.CallNode:
		return ex.executeCall(ctx, n, st)
	default:
		return fmt.Errorf("unreachable: %T is not include/call", node)
	}
}
