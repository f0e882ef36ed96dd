// Package workflow provides a programmatic builder for workflow graphs,
// an alternative to the YAML document for embedders and tests.
package workflow

import (
	"github.com/flowrunio/flowrun/internal/parser"
)

// Builder assembles a WorkflowGraph without going through YAML. The
// resulting graph carries the same dependency semantics as a compiled
// document: explicit DependsOn edges, reverse edges from Next, and
// implicit edges supplied via DependsOn by the caller.
type Builder struct {
	id      string
	version string
	start   string
	nodes   []*parser.NodeSpec
}

// NewBuilder starts a workflow definition.
func NewBuilder(id, version string) *Builder {
	return &Builder{id: id, version: version}
}

// Start marks the advisory entry node.
func (b *Builder) Start(nodeID string) *Builder {
	b.start = nodeID
	return b
}

// AddNode appends a node definition.
func (b *Builder) AddNode(n NodeBuilder) *Builder {
	b.nodes = append(b.nodes, n.spec)
	return b
}

// Build produces the graph. Dependency sets mirror the compiler's rules
// for explicit edges; template inference is the YAML compiler's job, so
// programmatic callers declare data dependencies via DependsOn.
func (b *Builder) Build() *parser.WorkflowGraph {
	graph := &parser.WorkflowGraph{
		WorkflowID: b.id,
		Version:    b.version,
		Start:      b.start,
		Nodes:      make(map[string]*parser.NodeSpec, len(b.nodes)),
		Deps:       make(map[string]map[string]struct{}, len(b.nodes)),
		Successors: make(map[string][]string, len(b.nodes)),
	}
	for _, spec := range b.nodes {
		graph.Nodes[spec.ID] = spec
		graph.Deps[spec.ID] = make(map[string]struct{})
	}
	for _, spec := range b.nodes {
		for _, dep := range spec.DependsOn {
			graph.Deps[spec.ID][dep] = struct{}{}
		}
		for _, target := range spec.Next {
			if deps, ok := graph.Deps[target]; ok {
				deps[spec.ID] = struct{}{}
			}
		}
		graph.Successors[spec.ID] = []string(spec.Next)
	}
	return graph
}

// NodeBuilder assembles one node spec.
type NodeBuilder struct {
	spec *parser.NodeSpec
}

// NewNode starts a node definition.
func NewNode(id, nodeType string) NodeBuilder {
	return NodeBuilder{spec: &parser.NodeSpec{ID: id, Type: nodeType, Inputs: map[string]any{}}}
}

// Input sets one input parameter.
func (n NodeBuilder) Input(key string, value any) NodeBuilder {
	n.spec.Inputs[key] = value
	return n
}

// Condition sets the guard template.
func (n NodeBuilder) Condition(condition string) NodeBuilder {
	n.spec.Condition = condition
	return n
}

// DependsOn declares explicit upstream nodes.
func (n NodeBuilder) DependsOn(ids ...string) NodeBuilder {
	n.spec.DependsOn = append(n.spec.DependsOn, ids...)
	return n
}

// Next declares downstream nodes.
func (n NodeBuilder) Next(ids ...string) NodeBuilder {
	n.spec.Next = append(n.spec.Next, ids...)
	return n
}
