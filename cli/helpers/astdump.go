// Package helpers backs the flowscript CLI: output formatting (text/json),
// error categorization, and the AST -> plain-data dump the parse/inspect
// commands render. Grounded in the teacher's cli/helpers formatter split
// (JSON response envelopes via tidwall/pretty, colorized text via
// lipgloss), trimmed to the two formats §6 actually specifies.
package helpers

import "github.com/flowscript/flowscript/engine/ast"

// DumpWorkflow renders wf as plain maps/slices suitable for json.Marshal
// or a YAML encoder — the shape `parse`/`inspect` hand to their
// formatters.
func DumpWorkflow(wf *ast.Workflow) map[string]any {
	nodes := make([]any, 0, len(wf.Nodes))
	for _, n := range wf.Nodes {
		nodes = append(nodes, DumpNode(n))
	}
	return map[string]any{
		"metadata": dumpMetadata(wf.Metadata),
		"nodes":    nodes,
	}
}

func dumpMetadata(m ast.Metadata) map[string]any {
	out := map[string]any{
		"name":    m.Name,
		"version": m.Version,
	}
	if m.Description != "" {
		out["description"] = m.Description
	}
	if m.Trigger != nil {
		out["trigger"] = map[string]any{"type": string(m.Trigger.Type), "config": m.Trigger.Config}
	}
	if len(m.Config) > 0 {
		fields := map[string]any{}
		for k, f := range m.Config {
			fields[k] = map[string]any{
				"type": string(f.Type), "default": f.Default,
				"required": f.Required, "description": f.Description,
			}
		}
		out["config"] = fields
	}
	if len(m.Secrets) > 0 {
		out["secrets"] = m.Secrets
	}
	if len(m.Schemas) > 0 {
		out["schemas"] = m.Schemas
	}
	if m.Evolution != nil {
		ev := map[string]any{"generation": m.Evolution.Generation}
		if m.Evolution.Parent != "" {
			ev["parent"] = m.Evolution.Parent
		}
		if m.Evolution.Fitness != nil {
			ev["fitness"] = *m.Evolution.Fitness
		}
		if len(m.Evolution.Learnings) > 0 {
			ev["learnings"] = m.Evolution.Learnings
		}
		out["evolution"] = ev
	}
	return out
}

// DumpNode renders a single node (and its control-flow children,
// recursively) as a plain map keyed by "kind"/"id"/"input" plus whatever
// fields that variant carries.
func DumpNode(n ast.Node) map[string]any {
	base := n.Base()
	out := map[string]any{"kind": string(n.Kind()), "id": base.ID}
	if base.Input != "" {
		out["input"] = base.Input
	}
	if base.ErrorConfig != nil {
		ec := map[string]any{}
		if base.ErrorConfig.Retry != nil {
			ec["retry"] = map[string]any{
				"when": base.ErrorConfig.Retry.When, "max": base.ErrorConfig.Retry.Max,
				"backoff": string(base.ErrorConfig.Retry.Backoff),
			}
		}
		if base.ErrorConfig.Fallback != "" {
			ec["fallback"] = base.ErrorConfig.Fallback
		}
		out["errorConfig"] = ec
	}
	dumpVariantFields(n, out)
	return out
}

func dumpVariantFields(n ast.Node, out map[string]any) {
	switch v := n.(type) {
	case *ast.SourceNode:
		out["sourceType"] = v.SourceType
		out["config"] = v.Config
	case *ast.TransformNode:
		out["transformType"] = v.TransformType
		out["config"] = v.Config
	case *ast.SinkNode:
		out["sinkType"] = v.SinkType
		out["config"] = v.Config
	case *ast.BranchNode:
		cases := make([]any, 0, len(v.Cases))
		for _, c := range v.Cases {
			cases = append(cases, map[string]any{"when": c.When, "nodes": dumpNodes(c.Nodes)})
		}
		out["cases"] = cases
		if v.Default != nil {
			out["default"] = dumpNodes(v.Default)
		}
	case *ast.IfNode:
		out["condition"] = v.Condition
		out["then"] = dumpNodes(v.Then)
		if v.Else != nil {
			out["else"] = dumpNodes(v.Else)
		}
	case *ast.LoopNode:
		out["maxIterations"] = v.MaxIterations
		out["breakCondition"] = v.BreakCondition
		out["body"] = dumpNodes(v.Body)
	case *ast.WhileNode:
		out["condition"] = v.Condition
		out["body"] = dumpNodes(v.Body)
	case *ast.ForeachNode:
		out["collection"] = v.Collection
		out["itemVar"] = v.ItemVar
		out["maxConcurrency"] = v.MaxConcurrency
		out["body"] = dumpNodes(v.Body)
	case *ast.ParallelNode:
		branches := make([]any, 0, len(v.Branches))
		for _, b := range v.Branches {
			branches = append(branches, dumpNodes(b))
		}
		out["branches"] = branches
	case *ast.CheckpointNode:
		out["prompt"] = v.Prompt
		out["timeout"] = v.Timeout
		out["defaultAction"] = string(v.DefaultAction)
	case *ast.IncludeNode:
		out["workflow"] = v.Workflow
		bindings := make([]any, 0, len(v.Bindings))
		for _, b := range v.Bindings {
			bindings = append(bindings, map[string]any{"key": b.Key, "value": b.Value})
		}
		out["bindings"] = bindings
	case *ast.CallNode:
		out["workflow"] = v.Workflow
		out["args"] = v.Args
	case *ast.PhaseNode:
		out["name"] = v.Name
		out["children"] = dumpNodes(v.Children)
	case *ast.ContextNode:
		entries := make([]any, 0, len(v.Entries))
		for _, e := range v.Entries {
			entries = append(entries, map[string]any{"key": e.Key, "value": e.Value})
		}
		out["entries"] = entries
	case *ast.SetNode:
		out["var"] = v.Var
		out["value"] = v.Value
	case *ast.DelayNode:
		out["duration"] = v.Duration
	case *ast.TimeoutNode:
		out["duration"] = v.Duration
		out["onTimeout"] = v.OnTimeout
		out["children"] = dumpNodes(v.Children)
	}
}

func dumpNodes(nodes []ast.Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, DumpNode(n))
	}
	return out
}
