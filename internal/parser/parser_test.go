package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowrunio/flowrun/internal/domain"
)

func TestParseInfersTemplateDependencies(t *testing.T) {
	doc := `
id: fanout
version: "2.0"
start: root
nodes:
  root:
    type: math
    inputs: {a: 10, b: 20, op: add}
  left:
    type: math
    inputs: {a: "{{ root.result }}", b: 1, op: mul}
  right:
    type: math
    inputs: {a: "{{ root.result }}", b: 2, op: mul}
  join:
    type: math
    inputs: {a: "{{ left.result }}", b: "{{ right.result }}", op: add}
`
	graph, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "fanout", graph.WorkflowID)
	assert.Equal(t, "2.0", graph.Version)
	assert.Equal(t, "root", graph.Start)

	assert.Empty(t, graph.Deps["root"])
	assert.Contains(t, graph.Deps["left"], "root")
	assert.Contains(t, graph.Deps["right"], "root")
	assert.Contains(t, graph.Deps["join"], "left")
	assert.Contains(t, graph.Deps["join"], "right")
}

func TestParseNextProducesReverseEdges(t *testing.T) {
	doc := `
id: chain
nodes:
  a:
    type: print
    inputs: {message: hi}
    next: [b]
  b:
    type: print
    inputs: {message: bye}
`
	graph, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Contains(t, graph.Deps["b"], "a")
	assert.Equal(t, []string{"b"}, graph.Successors["a"])
}

func TestParseScalarNext(t *testing.T) {
	doc := `
id: scalar
nodes:
  a:
    type: print
    inputs: {message: hi}
    next: b
  b:
    type: print
`
	graph, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, graph.Successors["a"])
	assert.Contains(t, graph.Deps["b"], "a")
}

func TestParseReservedInputsNotADependency(t *testing.T) {
	doc := `
id: reserved
nodes:
  only:
    type: print
    inputs: {message: "{{ inputs.query }}"}
`
	graph, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, graph.Deps["only"])
}

func TestParseRefsInNestedInputs(t *testing.T) {
	doc := `
id: nested
nodes:
  src:
    type: print
    inputs: {message: hi}
  sink:
    type: print
    inputs:
      wrapper:
        deep: ["{{ src.printed }}", plain]
`
	graph, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Contains(t, graph.Deps["sink"], "src")
}

func TestParseIgnoresUndefinedTemplateRefs(t *testing.T) {
	doc := `
id: loose
nodes:
  only:
    type: print
    inputs: {message: "{{ ghost.field }}"}
`
	graph, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, graph.Deps["only"])
}

func TestParseUnknownDependsOn(t *testing.T) {
	doc := `
id: broken
nodes:
  a:
    type: print
    depends_on: [ghost]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	var compileErr *domain.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Contains(t, compileErr.Error(), "ghost")
}

func TestParseUnknownNextTarget(t *testing.T) {
	doc := `
id: broken
nodes:
  a:
    type: print
    next: [ghost]
`
	_, err := Parse([]byte(doc))
	var compileErr *domain.CompileError
	require.ErrorAs(t, err, &compileErr)
}

func TestParseDetectsCycle(t *testing.T) {
	doc := `
id: cyclic
nodes:
  a:
    type: print
    depends_on: [b]
  b:
    type: print
    depends_on: [a]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	var compileErr *domain.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Contains(t, compileErr.Error(), "cycle")
	assert.Contains(t, compileErr.Error(), "a")
	assert.Contains(t, compileErr.Error(), "b")
}

func TestParseMalformedDocument(t *testing.T) {
	_, err := Parse([]byte("nodes: ["))
	var compileErr *domain.CompileError
	require.ErrorAs(t, err, &compileErr)
}

func TestParseDefaults(t *testing.T) {
	graph, err := Parse([]byte("nodes: {}"))
	require.NoError(t, err)
	assert.Equal(t, "unnamed_workflow", graph.WorkflowID)
	assert.Equal(t, "1.0", graph.Version)
}

func TestParseUnknownStart(t *testing.T) {
	doc := `
id: bad_start
start: ghost
nodes:
  a:
    type: print
`
	_, err := Parse([]byte(doc))
	var compileErr *domain.CompileError
	require.ErrorAs(t, err, &compileErr)
}
