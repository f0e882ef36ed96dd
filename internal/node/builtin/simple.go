// Package builtin provides the built-in node catalogue: sleep, print,
// math, intent_classifier, router, mock_search, llm and format.
package builtin

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowrunio/flowrun/internal/node"
	"github.com/flowrunio/flowrun/internal/parser"
)

// Register binds the built-in node set to the registry.
func Register(r *node.Registry) error {
	factories := map[string]node.Factory{
		"sleep":             func(id string, _ *parser.NodeSpec) (node.Node, error) { return &sleepNode{id: id}, nil },
		"print":             func(id string, _ *parser.NodeSpec) (node.Node, error) { return &printNode{id: id}, nil },
		"math":              func(id string, _ *parser.NodeSpec) (node.Node, error) { return &mathNode{id: id}, nil },
		"intent_classifier": func(id string, _ *parser.NodeSpec) (node.Node, error) { return &intentClassifierNode{id: id}, nil },
		"router":            func(id string, _ *parser.NodeSpec) (node.Node, error) { return &routerNode{id: id}, nil },
		"mock_search":       func(id string, _ *parser.NodeSpec) (node.Node, error) { return &mockSearchNode{id: id}, nil },
		"llm":               func(id string, _ *parser.NodeSpec) (node.Node, error) { return newLLMNode(id), nil },
		"format":            func(id string, _ *parser.NodeSpec) (node.Node, error) { return &formatNode{id: id}, nil },
	}
	for tag, factory := range factories {
		if err := r.Register(tag, factory); err != nil {
			return err
		}
	}
	return nil
}

type sleepNode struct{ id string }

func (n *sleepNode) ID() string   { return n.id }
func (n *sleepNode) Type() string { return "sleep" }

func (n *sleepNode) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	duration := toFloat(inputs["duration"], 1)
	log.Debug().Str("node", n.id).Float64("duration", duration).Msg("sleeping")
	if err := sleepFor(ctx, duration); err != nil {
		return nil, err
	}
	return map[string]any{"status": "slept", "duration": duration}, nil
}

func sleepFor(ctx context.Context, seconds float64) error {
	if seconds <= 0 {
		return nil
	}
	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type printNode struct{ id string }

func (n *printNode) ID() string   { return n.id }
func (n *printNode) Type() string { return "print" }

func (n *printNode) Run(_ context.Context, inputs map[string]any) (map[string]any, error) {
	message := toString(inputs["message"])
	log.Info().Str("node", n.id).Str("message", message).Msg("print")
	return map[string]any{"printed": message}, nil
}

type mathNode struct{ id string }

func (n *mathNode) ID() string   { return n.id }
func (n *mathNode) Type() string { return "math" }

func (n *mathNode) Run(_ context.Context, inputs map[string]any) (map[string]any, error) {
	a := toFloat(inputs["a"], 0)
	b := toFloat(inputs["b"], 0)
	op := toString(inputs["op"])
	if op == "" {
		op = "add"
	}

	var result float64
	switch op {
	case "add":
		result = a + b
	case "sub":
		result = a - b
	case "mul":
		result = a * b
	default:
		result = 0
	}

	log.Debug().Str("node", n.id).Float64("a", a).Float64("b", b).Str("op", op).Float64("result", result).Msg("math")
	return map[string]any{"result": result}, nil
}

type intentClassifierNode struct{ id string }

func (n *intentClassifierNode) ID() string   { return n.id }
func (n *intentClassifierNode) Type() string { return "intent_classifier" }

func (n *intentClassifierNode) Run(_ context.Context, inputs map[string]any) (map[string]any, error) {
	query := strings.ToLower(toString(inputs["query"]))

	var category string
	switch {
	case strings.Contains(query, "ec2") || strings.Contains(query, "server") || strings.Contains(query, "down"):
		category = "technical_issue"
	case strings.Contains(query, "bill") || strings.Contains(query, "cost"):
		category = "billing"
	default:
		category = "general_inquiry"
	}

	log.Info().Str("node", n.id).Str("query", query).Str("category", category).Msg("classified intent")
	return map[string]any{"category": category}, nil
}

type routerNode struct{ id string }

func (n *routerNode) ID() string   { return n.id }
func (n *routerNode) Type() string { return "router" }

// Run passes the intent through; branching happens via downstream
// conditions.
func (n *routerNode) Run(_ context.Context, inputs map[string]any) (map[string]any, error) {
	intent := inputs["intent"]
	log.Debug().Str("node", n.id).Interface("intent", intent).Msg("routing")
	return map[string]any{"intent": intent}, nil
}

type mockSearchNode struct{ id string }

func (n *mockSearchNode) ID() string   { return n.id }
func (n *mockSearchNode) Type() string { return "mock_search" }

func (n *mockSearchNode) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	query := toString(inputs["query"])
	if query == "" {
		query = toString(inputs["keywords"])
	}
	source := toString(inputs["source"])
	if source == "" {
		source = "unknown"
	}
	duration := toFloat(inputs["duration"], 0.5)

	log.Info().Str("node", n.id).Str("source", source).Str("query", query).Msg("searching")
	if err := sleepFor(ctx, duration); err != nil {
		return nil, err
	}

	var results string
	switch source {
	case "official_docs":
		results = "Official Docs: EC2 instance troubleshooting guide. Check security groups."
	case "community_forum":
		results = "Community Forum: User 'cloud_guru' suggests restarting the instance."
	default:
		results = "No results found."
	}
	return map[string]any{"results": results}, nil
}

type formatNode struct{ id string }

func (n *formatNode) ID() string   { return n.id }
func (n *formatNode) Type() string { return "format" }

// Run returns the template as-is: the engine has already expanded it.
func (n *formatNode) Run(_ context.Context, inputs map[string]any) (map[string]any, error) {
	template := toString(inputs["template"])
	return map[string]any{"formatted": template, "length": len(template)}, nil
}
