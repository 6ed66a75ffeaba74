package executor

import (
	"context"
	"fmt"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/state"
)

// enterPath registers path as active, returning an error if it's already
// on the call stack (recursive include/call cycle) and a release func to
// call on return.
func (ex *Executor) enterPath(path string) (func(), error) {
	ex.activeMu.Lock()
	defer ex.activeMu.Unlock()
	if ex.activePaths == nil {
		ex.activePaths = map[string]bool{}
	}
	if ex.activePaths[path] {
		return nil, fmt.Errorf("recursive workflow inclusion detected: %s", path)
	}
	ex.activePaths[path] = true
	return func() {
		ex.activeMu.Lock()
		delete(ex.activePaths, path)
		ex.activeMu.Unlock()
	}, nil
}

// executeInclude loads and runs another workflow file inline: it inherits
// the parent's config/secrets and merges bindings into global context.
func (ex *Executor) executeInclude(ctx context.Context, n *ast.IncludeNode, st *state.ExecutionState) error {
	release, err := ex.enterPath(n.Workflow)
	if err != nil {
		return err
	}
	defer release()

	wf, err := ex.Loader.Load(n.Workflow)
	if err != nil {
		return err
	}

	exprCtx := ex.buildContext(st, nil)
	bound := map[string]any{}
	for _, b := range n.Bindings {
		v, err := evalRaw(b.Value, exprCtx)
		if err != nil {
			return err
		}
		bound[b.Key] = v
	}
	st.MergeGlobalContext(bound)

	start := ex.Now()
	if err := ex.Run(ctx, wf, st); err != nil {
		st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusFailed, Err: err, StartedAt: start, CompletedAt: ex.Now()})
		return err
	}
	st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusSuccess, Output: lastSuccessfulOutput(st), StartedAt: start, CompletedAt: ex.Now()})
	return nil
}

// executeCall loads and runs another workflow file in a fully isolated
// state initialized only from resolved Args.
func (ex *Executor) executeCall(ctx context.Context, n *ast.CallNode, st *state.ExecutionState) error {
	release, err := ex.enterPath(n.Workflow)
	if err != nil {
		return err
	}
	defer release()

	wf, err := ex.Loader.Load(n.Workflow)
	if err != nil {
		return err
	}

	exprCtx := ex.buildContext(st, nil)
	args := map[string]any{}
	for k, v := range n.Args {
		if s, ok := v.(string); ok {
			resolved, err := evalRaw(s, exprCtx)
			if err != nil {
				return err
			}
			args[k] = resolved
			continue
		}
		args[k] = v
	}

	childState := state.New(wf.Metadata.Name, state.Options{GlobalContext: args})
	start := ex.Now()
	if err := ex.Run(ctx, wf, childState); err != nil {
		st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusFailed, Err: err, StartedAt: start, CompletedAt: ex.Now()})
		return err
	}

	st.RecordNodeResult(n.ID, state.NodeResult{Status: state.StatusSuccess, Output: lastSuccessfulOutput(childState), StartedAt: start, CompletedAt: ex.Now()})
	return nil
}

// lastSuccessfulOutput returns the output of the last (in execution order)
// successfully-completed node, since map iteration over GetNodeOutputs is
// unordered and include/call must return a deterministic result.
func lastSuccessfulOutput(st *state.ExecutionState) any {
	var last any
	for _, r := range st.NodeResults() {
		if r.Status == state.StatusSuccess {
			last = r.Output
		}
	}
	return last
}
