// Package node defines the unit-of-work contract and the type-keyed
// factory registry used to construct node implementations at dispatch
// time.
package node

import (
	"context"

	"github.com/flowrunio/flowrun/internal/parser"
)

// Node is a typed unit of work. Run receives the already-resolved input
// map (templates expanded) and returns the mapping that becomes the node's
// memory entry. Implementations must be safe to call concurrently with
// other nodes and must not touch run memory directly.
type Node interface {
	ID() string
	Type() string
	Run(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// Factory constructs a node implementation from its id and spec.
type Factory func(id string, spec *parser.NodeSpec) (Node, error)
