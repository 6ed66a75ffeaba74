package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscript/flowscript/engine/ast"
)

func TestParseLoopWithBodyAndBreakCondition(t *testing.T) {
	src := minimalSource(`<workflow>
  <loop id="l" maxIterations="5" breakCondition="$index >= 2">
    <body><set var="x" value="1"/></body>
  </loop>
</workflow>`)

	wf, errs := Parse(src, "loop.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	ln, ok := wf.Nodes[0].(*ast.LoopNode)
	require.True(t, ok)
	assert.Equal(t, 5, ln.MaxIterations)
	assert.Equal(t, "$index >= 2", ln.BreakCondition)
	require.Len(t, ln.Body, 1)
	assert.Equal(t, "x", ln.Body[0].Base().ID)
}

func TestParseWhileWithCondition(t *testing.T) {
	src := minimalSource(`<workflow>
  <while id="w" condition="(counter ?? 0) < 3">
    <body><set var="counter" value="(counter ?? 0) + 1"/></body>
  </while>
</workflow>`)

	wf, errs := Parse(src, "while.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	wn, ok := wf.Nodes[0].(*ast.WhileNode)
	require.True(t, ok)
	assert.Equal(t, "(counter ?? 0) < 3", wn.Condition)
	require.Len(t, wn.Body, 1)
}

func TestParseForeachWithItemVarAndMaxConcurrency(t *testing.T) {
	src := minimalSource(`<workflow>
  <foreach id="f" collection="items" itemVar="item" maxConcurrency="4">
    <body><sink id="s" type="file" input="item"/></body>
  </foreach>
</workflow>`)

	wf, errs := Parse(src, "foreach.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	fn, ok := wf.Nodes[0].(*ast.ForeachNode)
	require.True(t, ok)
	assert.Equal(t, "items", fn.Collection)
	assert.Equal(t, "item", fn.ItemVar)
	assert.Equal(t, 4, fn.MaxConcurrency)
	require.Len(t, fn.Body, 1)
}

func TestParseParallelWithMultipleBranches(t *testing.T) {
	src := minimalSource(`<workflow>
  <parallel id="p">
    <branch><sink id="s1" type="file"/></branch>
    <branch><sink id="s2" type="file"/></branch>
  </parallel>
</workflow>`)

	wf, errs := Parse(src, "parallel.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	pn, ok := wf.Nodes[0].(*ast.ParallelNode)
	require.True(t, ok)
	require.Len(t, pn.Branches, 2)
	assert.Equal(t, "s1", pn.Branches[0][0].Base().ID)
	assert.Equal(t, "s2", pn.Branches[1][0].Base().ID)
}

func TestParseCheckpointDefaultsToReject(t *testing.T) {
	src := minimalSource(`<workflow>
  <checkpoint id="ck" prompt="approve?"/>
</workflow>`)

	wf, errs := Parse(src, "checkpoint.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	cn, ok := wf.Nodes[0].(*ast.CheckpointNode)
	require.True(t, ok)
	assert.Equal(t, "approve?", cn.Prompt)
	assert.Equal(t, ast.CheckpointReject, cn.DefaultAction)
}

func TestParseCheckpointHonorsExplicitDefaultAction(t *testing.T) {
	src := minimalSource(`<workflow>
  <checkpoint id="ck" prompt="approve?" default="approve"/>
</workflow>`)

	wf, errs := Parse(src, "checkpoint2.flow")
	require.Empty(t, errs)
	cn := wf.Nodes[0].(*ast.CheckpointNode)
	assert.Equal(t, ast.CheckpointDefaultAction("approve"), cn.DefaultAction)
}

func TestParseIncludeWithBindings(t *testing.T) {
	src := minimalSource(`<workflow>
  <include id="inc" workflow="sub.flow">
    <bind key="x" value="1"/>
    <bind key="y" value="greeting"/>
  </include>
</workflow>`)

	wf, errs := Parse(src, "include.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	in, ok := wf.Nodes[0].(*ast.IncludeNode)
	require.True(t, ok)
	assert.Equal(t, "sub.flow", in.Workflow)
	require.Len(t, in.Bindings, 2)
	assert.Equal(t, ast.Binding{Key: "x", Value: "1"}, in.Bindings[0])
	assert.Equal(t, ast.Binding{Key: "y", Value: "greeting"}, in.Bindings[1])
}

func TestParseCallWithArgs(t *testing.T) {
	src := minimalSource(`<workflow>
  <call id="c" workflow="sub.flow">
    <arg key="x" value="&quot;bound&quot;"/>
  </call>
</workflow>`)

	wf, errs := Parse(src, "call.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	cn, ok := wf.Nodes[0].(*ast.CallNode)
	require.True(t, ok)
	assert.Equal(t, "sub.flow", cn.Workflow)
	assert.Equal(t, `"bound"`, cn.Args["x"])
}

func TestParseContextWithEntries(t *testing.T) {
	src := minimalSource(`<workflow>
  <context id="ctx">
    <entry key="region" value="&quot;us-east&quot;"/>
  </context>
</workflow>`)

	wf, errs := Parse(src, "context.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	cn, ok := wf.Nodes[0].(*ast.ContextNode)
	require.True(t, ok)
	require.Len(t, cn.Entries, 1)
	assert.Equal(t, "region", cn.Entries[0].Key)
	assert.Equal(t, `"us-east"`, cn.Entries[0].Value)
}

func TestParseSetUsesVarAsID(t *testing.T) {
	src := minimalSource(`<workflow>
  <set var="total" value="1 + 1"/>
</workflow>`)

	wf, errs := Parse(src, "set.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	sn, ok := wf.Nodes[0].(*ast.SetNode)
	require.True(t, ok)
	assert.Equal(t, "total", sn.ID)
	assert.Equal(t, "total", sn.Var)
	assert.Equal(t, "1 + 1", sn.Value)
}

func TestParseDelayRequiresDuration(t *testing.T) {
	src := minimalSource(`<workflow>
  <delay id="d"/>
</workflow>`)

	wf, errs := Parse(src, "delay.flow")
	require.NotEmpty(t, errs)
	assert.Empty(t, wf.Nodes)
}

func TestParseDelayWithDuration(t *testing.T) {
	src := minimalSource(`<workflow>
  <delay id="d" duration="5s"/>
</workflow>`)

	wf, errs := Parse(src, "delay2.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	dn := wf.Nodes[0].(*ast.DelayNode)
	assert.Equal(t, "5s", dn.Duration)
}

func TestParseTimeoutRoutesToOnTimeoutNode(t *testing.T) {
	src := minimalSource(`<workflow>
  <timeout id="t" duration="10s" onTimeout="fallback">
    <sink id="inner" type="file"/>
  </timeout>
</workflow>`)

	wf, errs := Parse(src, "timeout.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	tn, ok := wf.Nodes[0].(*ast.TimeoutNode)
	require.True(t, ok)
	assert.Equal(t, "10s", tn.Duration)
	assert.Equal(t, "fallback", tn.OnTimeout)
	require.Len(t, tn.Children, 1)
	assert.Equal(t, "inner", tn.Children[0].Base().ID)
}

func TestParseBranchWithCasesAndDefault(t *testing.T) {
	src := minimalSource(`<workflow>
  <branch id="b">
    <case when="x == 1"><sink id="one" type="file"/></case>
    <case when="x == 2"><sink id="two" type="file"/></case>
    <default><sink id="other" type="file"/></default>
  </branch>
</workflow>`)

	wf, errs := Parse(src, "branch.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	bn, ok := wf.Nodes[0].(*ast.BranchNode)
	require.True(t, ok)
	require.Len(t, bn.Cases, 2)
	assert.Equal(t, "x == 1", bn.Cases[0].When)
	assert.Equal(t, "one", bn.Cases[0].Nodes[0].Base().ID)
	require.Len(t, bn.Default, 1)
	assert.Equal(t, "other", bn.Default[0].Base().ID)
}
