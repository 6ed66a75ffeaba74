// Package planner computes an ExecutionPlan from a validated Workflow:
// the top-level sibling dependency graph, split into waves via Kahn's
// algorithm. Grounded in the teacher's wave-based task-graph scheduling
// idiom (engine/domain/workflow/executor), adapted to the NodeAST's
// top-level-only dependency edges.
package planner

import (
	"fmt"
	"sort"

	"github.com/flowscript/flowscript/engine/ast"
)

// Wave is one batch of nodes whose dependencies are all satisfied by
// prior waves.
type Wave struct {
	WaveNumber int
	NodeIDs    []string
}

// ExecutionPlan is the scheduler's output: every top-level node indexed
// by id, grouped into ordered waves.
type ExecutionPlan struct {
	WorkflowID string
	TotalNodes int
	Nodes      map[string]ast.Node
	Waves      []Wave
}

// Plan builds an ExecutionPlan for wf. It assumes wf has already passed
// validation (acyclic top-level graph, unique ids); a cyclic graph
// produces an error here instead of an infinite loop.
func Plan(workflowID string, nodes []ast.Node) (*ExecutionPlan, error) {
	byID := make(map[string]ast.Node, len(nodes))
	ids := make([]string, 0, len(nodes))
	sourceOrder := make(map[string]int, len(nodes))
	for i, n := range nodes {
		id := n.Base().ID
		byID[id] = n
		ids = append(ids, id)
		sourceOrder[id] = i
	}
	sort.Strings(ids)

	indegree := make(map[string]int, len(ids))
	dependents := make(map[string][]string, len(ids))
	for _, id := range ids {
		indegree[id] = 0
	}
	for _, n := range nodes {
		b := n.Base()
		if b.Input == "" {
			continue
		}
		if _, ok := byID[b.Input]; !ok {
			continue
		}
		dependents[b.Input] = append(dependents[b.Input], b.ID)
		indegree[b.ID]++
	}
	for from := range dependents {
		sort.Strings(dependents[from])
	}

	var waves []Wave
	remaining := len(ids)
	placed := map[string]bool{}
	waveNum := 0
	for remaining > 0 {
		var frontier []string
		for _, id := range ids {
			if !placed[id] && indegree[id] == 0 {
				frontier = append(frontier, id)
			}
		}
		if len(frontier) == 0 {
			return nil, fmt.Errorf("planner: cycle detected among remaining %d node(s)", remaining)
		}
		sort.Slice(frontier, func(i, j int) bool { return sourceOrder[frontier[i]] < sourceOrder[frontier[j]] })
		waves = append(waves, Wave{WaveNumber: waveNum, NodeIDs: frontier})
		for _, id := range frontier {
			placed[id] = true
			remaining--
			for _, dep := range dependents[id] {
				indegree[dep]--
			}
		}
		waveNum++
	}

	return &ExecutionPlan{
		WorkflowID: workflowID,
		TotalNodes: len(nodes),
		Nodes:      byID,
		Waves:      waves,
	}, nil
}
