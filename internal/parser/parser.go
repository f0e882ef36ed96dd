// Package parser compiles declarative workflow documents into an
// executable graph: nodes, a dependency set per node and a successor list
// per node. Dependencies are both explicit (depends_on, next) and implicit
// (template references in node inputs).
package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flowrunio/flowrun/internal/domain"
	"github.com/flowrunio/flowrun/internal/memory"
)

// refPattern matches {{ node_id.field }} references inside input strings.
var refPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\.[A-Za-z0-9_]+\s*\}\}`)

// NodeSpec is the declarative configuration of a single node.
type NodeSpec struct {
	ID        string         `yaml:"-"`
	Type      string         `yaml:"type"`
	Inputs    map[string]any `yaml:"inputs"`
	Condition string         `yaml:"condition"`
	DependsOn []string       `yaml:"depends_on"`
	Next      StringList     `yaml:"next"`
}

// StringList accepts either a YAML scalar or a sequence of scalars.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*s = StringList(list)
	return nil
}

// WorkflowGraph is the compiled, immutable form of a workflow document.
type WorkflowGraph struct {
	WorkflowID string
	Version    string
	Start      string
	Nodes      map[string]*NodeSpec
	Deps       map[string]map[string]struct{}
	Successors map[string][]string
}

type document struct {
	ID      string               `yaml:"id"`
	Version string               `yaml:"version"`
	Start   string               `yaml:"start"`
	Nodes   map[string]*NodeSpec `yaml:"nodes"`
}

// Parse compiles a workflow document into a WorkflowGraph.
func Parse(content []byte) (*WorkflowGraph, error) {
	var doc document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, domain.NewCompileError("malformed workflow document", err)
	}

	if doc.ID == "" {
		doc.ID = "unnamed_workflow"
	}
	if doc.Version == "" {
		doc.Version = "1.0"
	}

	graph := &WorkflowGraph{
		WorkflowID: doc.ID,
		Version:    doc.Version,
		Start:      doc.Start,
		Nodes:      make(map[string]*NodeSpec, len(doc.Nodes)),
		Deps:       make(map[string]map[string]struct{}, len(doc.Nodes)),
		Successors: make(map[string][]string, len(doc.Nodes)),
	}

	for id, spec := range doc.Nodes {
		if strings.TrimSpace(id) == "" {
			return nil, domain.NewCompileError("node id cannot be empty", nil)
		}
		if spec == nil {
			spec = &NodeSpec{}
		}
		spec.ID = id
		graph.Nodes[id] = spec
		graph.Deps[id] = make(map[string]struct{})
	}

	for id, spec := range graph.Nodes {
		// Explicit upstream edges.
		for _, dep := range spec.DependsOn {
			if _, ok := graph.Nodes[dep]; !ok {
				return nil, domain.NewCompileError(
					fmt.Sprintf("node %s depends_on unknown node %s", id, dep), nil)
			}
			graph.Deps[id][dep] = struct{}{}
		}

		// Implicit upstream edges from template references in inputs.
		for ref := range collectRefs(spec.Inputs) {
			if ref == memory.InputsKey {
				continue
			}
			if _, ok := graph.Nodes[ref]; ok {
				graph.Deps[id][ref] = struct{}{}
			}
		}

		// next lists are downstream edges: if a.next contains b, then b
		// depends on a.
		for _, target := range spec.Next {
			if _, ok := graph.Nodes[target]; !ok {
				return nil, domain.NewCompileError(
					fmt.Sprintf("node %s lists unknown node %s in next", id, target), nil)
			}
			graph.Deps[target][id] = struct{}{}
		}
		graph.Successors[id] = []string(spec.Next)
	}

	if doc.Start != "" {
		if _, ok := graph.Nodes[doc.Start]; !ok {
			return nil, domain.NewCompileError(
				fmt.Sprintf("start references unknown node %s", doc.Start), nil)
		}
	}

	if cycle := findCycle(graph.Deps); len(cycle) > 0 {
		return nil, domain.NewCompileError(
			fmt.Sprintf("dependency cycle involving nodes [%s]", strings.Join(cycle, " -> ")), nil)
	}

	return graph, nil
}

// collectRefs walks string leaves of arbitrarily nested maps and lists and
// gathers every node id referenced by a template expression.
func collectRefs(value any) map[string]struct{} {
	refs := make(map[string]struct{})
	walkRefs(value, refs)
	return refs
}

func walkRefs(value any, refs map[string]struct{}) {
	switch v := value.(type) {
	case string:
		for _, m := range refPattern.FindAllStringSubmatch(v, -1) {
			refs[m[1]] = struct{}{}
		}
	case map[string]any:
		for _, inner := range v {
			walkRefs(inner, refs)
		}
	case []any:
		for _, inner := range v {
			walkRefs(inner, refs)
		}
	}
}

// findCycle runs a depth-first search over the dependency relation and
// returns the node ids participating in the first cycle found, or nil.
func findCycle(deps map[string]map[string]struct{}) []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(deps))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for dep := range deps[id] {
			switch color[dep] {
			case gray:
				// Walk back along the stack to the cycle entry point.
				start := 0
				for i, s := range stack {
					if s == dep {
						start = i
						break
					}
				}
				cycle = append(cycle, stack[start:]...)
				cycle = append(cycle, dep)
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}
