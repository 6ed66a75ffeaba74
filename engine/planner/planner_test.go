package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscript/flowscript/engine/ast"
)

func TestPlanDependencyWaves(t *testing.T) {
	a := &ast.SourceNode{Base: ast.Base{ID: "A"}}
	b := &ast.TransformNode{Base: ast.Base{ID: "B", Input: "A"}}
	c := &ast.SinkNode{Base: ast.Base{ID: "C", Input: "B"}}

	plan, err := Plan("wf1", []ast.Node{a, b, c})
	require.NoError(t, err)
	require.Len(t, plan.Waves, 3)
	assert.Equal(t, []string{"A"}, plan.Waves[0].NodeIDs)
	assert.Equal(t, []string{"B"}, plan.Waves[1].NodeIDs)
	assert.Equal(t, []string{"C"}, plan.Waves[2].NodeIDs)
	assert.Equal(t, 3, plan.TotalNodes)
}

func TestPlanIndependentNodesShareAWave(t *testing.T) {
	a := &ast.SourceNode{Base: ast.Base{ID: "A"}}
	b := &ast.SourceNode{Base: ast.Base{ID: "B"}}

	plan, err := Plan("wf1", []ast.Node{a, b})
	require.NoError(t, err)
	require.Len(t, plan.Waves, 1)
	assert.ElementsMatch(t, []string{"A", "B"}, plan.Waves[0].NodeIDs)
}

func TestPlanTieBreaksBySourceOrder(t *testing.T) {
	z := &ast.SourceNode{Base: ast.Base{ID: "zebra"}}
	a := &ast.SourceNode{Base: ast.Base{ID: "apple"}}

	plan, err := Plan("wf1", []ast.Node{z, a})
	require.NoError(t, err)
	require.Len(t, plan.Waves, 1)
	assert.Equal(t, []string{"zebra", "apple"}, plan.Waves[0].NodeIDs,
		"wave order must follow source order, not alphabetical id order")
}

func TestPlanCycleErrors(t *testing.T) {
	p := &ast.TransformNode{Base: ast.Base{ID: "P", Input: "Q"}}
	q := &ast.TransformNode{Base: ast.Base{ID: "Q", Input: "P"}}

	_, err := Plan("wf1", []ast.Node{p, q})
	require.Error(t, err)
}

// Kahn correctness law: for every edge A->B, waveOf(A) < waveOf(B); every
// node appears in exactly one wave.
func TestPlanKahnCorrectness(t *testing.T) {
	a := &ast.SourceNode{Base: ast.Base{ID: "A"}}
	b := &ast.TransformNode{Base: ast.Base{ID: "B", Input: "A"}}
	c := &ast.TransformNode{Base: ast.Base{ID: "C", Input: "A"}}
	d := &ast.SinkNode{Base: ast.Base{ID: "D", Input: "B"}}

	plan, err := Plan("wf1", []ast.Node{a, b, c, d})
	require.NoError(t, err)

	waveOf := map[string]int{}
	for _, w := range plan.Waves {
		for _, id := range w.NodeIDs {
			_, seen := waveOf[id]
			require.False(t, seen, "node %s appeared in more than one wave", id)
			waveOf[id] = w.WaveNumber
		}
	}
	assert.Equal(t, 4, len(waveOf))
	assert.Less(t, waveOf["A"], waveOf["B"])
	assert.Less(t, waveOf["A"], waveOf["C"])
	assert.Less(t, waveOf["B"], waveOf["D"])
}
