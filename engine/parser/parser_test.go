package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/ferrors"
)

func minimalSource(body string) string {
	return "---\nname: demo\nversion: 1.0.0\n---\n" + body
}

func TestParseMinimalTemplateTransform(t *testing.T) {
	src := minimalSource(`<workflow>
  <transform id="t" type="template"><template>hello world</template></transform>
</workflow>`)

	wf, errs := Parse(src, "demo.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)

	tn, ok := wf.Nodes[0].(*ast.TransformNode)
	require.True(t, ok)
	assert.Equal(t, "t", tn.ID)
	assert.Equal(t, "template", tn.TransformType)
	assert.Equal(t, "hello world", tn.Config["template"])
}

func TestParseDependencyChain(t *testing.T) {
	src := minimalSource(`<workflow>
  <source id="A" type="http" url="http://example.com"/>
  <transform id="B" type="map" input="A"/>
  <sink id="C" type="file" input="B"/>
</workflow>`)

	wf, errs := Parse(src, "chain.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 3)
	assert.Equal(t, "A", wf.Nodes[0].Base().ID)
	assert.Equal(t, "A", wf.Nodes[1].Base().Input)
	assert.Equal(t, "B", wf.Nodes[2].Base().Input)
}

func TestParseMissingFrontmatterDelimiter(t *testing.T) {
	src := "name: demo\nversion: 1.0.0\n---\n<workflow><transform id=\"t\" type=\"map\"/></workflow>"
	_, errs := Parse(src, "bad.flow")
	require.NotEmpty(t, errs)
	ferr, ok := errs[0].(*ferrors.Error)
	require.True(t, ok)
	assert.Equal(t, ferrors.KindMissingFrontmatter, ferr.Kind)
}

func TestParseMissingClosingDelimiter(t *testing.T) {
	src := "---\nname: demo\nversion: 1.0.0\n<workflow></workflow>"
	_, errs := Parse(src, "bad.flow")
	require.NotEmpty(t, errs)
	ferr, ok := errs[0].(*ferrors.Error)
	require.True(t, ok)
	assert.Equal(t, ferrors.KindMissingFrontmatter, ferr.Kind)
}

func TestParseEmptyBody(t *testing.T) {
	src := "---\nname: demo\nversion: 1.0.0\n---\n   \n"
	_, errs := Parse(src, "bad.flow")
	require.NotEmpty(t, errs)
	ferr, ok := errs[0].(*ferrors.Error)
	require.True(t, ok)
	assert.Equal(t, ferrors.KindMissingBody, ferr.Kind)
}

func TestParseAccumulatesSiblingErrors(t *testing.T) {
	src := minimalSource(`<workflow>
  <source id="a" type="nope"/>
  <transform type="map"/>
  <sink id="c" type="file"/>
</workflow>`)

	wf, errs := Parse(src, "siblings.flow")
	require.Len(t, errs, 2, "both the bad source and the id-less transform should be reported")
	require.Len(t, wf.Nodes, 1, "the valid sink must still be parsed")
	assert.Equal(t, "c", wf.Nodes[0].Base().ID)
}

func TestParseCRLFLineEndings(t *testing.T) {
	src := "---\r\nname: demo\r\nversion: 1.0.0\r\n---\r\n<workflow><transform id=\"t\" type=\"map\"/></workflow>"
	wf, errs := Parse(src, "crlf.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
}

func TestParseNestedIfRecursesChildren(t *testing.T) {
	src := minimalSource(`<workflow>
  <if id="cond" condition="true">
    <then><transform id="onTrue" type="map"/></then>
    <else><transform id="onFalse" type="map"/></else>
  </if>
</workflow>`)

	wf, errs := Parse(src, "if.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	ifNode, ok := wf.Nodes[0].(*ast.IfNode)
	require.True(t, ok)
	require.Len(t, ifNode.Then, 1)
	require.Len(t, ifNode.Else, 1)
	assert.Equal(t, "onTrue", ifNode.Then[0].Base().ID)
	assert.Equal(t, "onFalse", ifNode.Else[0].Base().ID)
}

func TestParseOnErrorRetryAndFallback(t *testing.T) {
	src := minimalSource(`<workflow>
  <source id="s" type="http" url="http://example.com">
    <on-error>
      <retry max="5" backoff="linear"/>
      <fallback node="other"/>
    </on-error>
  </source>
</workflow>`)

	wf, errs := Parse(src, "onerror.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	sn := wf.Nodes[0].(*ast.SourceNode)
	require.NotNil(t, sn.ErrorConfig)
	require.NotNil(t, sn.ErrorConfig.Retry)
	assert.Equal(t, 5, sn.ErrorConfig.Retry.Max)
	assert.Equal(t, ast.BackoffLinear, sn.ErrorConfig.Retry.Backoff)
	assert.Equal(t, "other", sn.ErrorConfig.Fallback)
}

func TestParsePhaseFallsBackToNameAttr(t *testing.T) {
	src := minimalSource(`<workflow>
  <phase name="setup">
    <set var="x" value="1"/>
  </phase>
</workflow>`)

	wf, errs := Parse(src, "phase.flow")
	require.Empty(t, errs)
	require.Len(t, wf.Nodes, 1)
	ph := wf.Nodes[0].(*ast.PhaseNode)
	assert.Equal(t, "setup", ph.Base().ID)
	require.Len(t, ph.Children, 1)
}
