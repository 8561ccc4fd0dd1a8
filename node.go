package datanode

import (
	"slices"

	"github.com/reoring/datanode/schema"
)

// Node is a short-lived, schema-aware view of one position in a raw tree.
// Writes through a Node are visible in the tree at once. Nodes are built
// per access and carry no identity.
type Node interface {
	// Name is the attribute the node was reached through.
	Name() string
	// Instance is the raw value the node wraps.
	Instance() any
	Schema() schema.Schema
	Parent() Node
	// Path is the key and index path from the root node.
	Path() []any

	segment() (any, bool)
}

type node struct {
	name   string
	seg    any
	hasSeg bool
	schema schema.Schema
	ctx    Context
	parent Node
}

func newNode(name string, seg any, hasSeg bool, s schema.Schema, ctx Context, parent Node) node {
	if s == nil {
		s = schema.Schema{}
	}
	return node{name: name, seg: seg, hasSeg: hasSeg, schema: s, ctx: ctx, parent: parent}
}

func (n *node) Name() string          { return n.name }
func (n *node) Schema() schema.Schema { return n.schema }
func (n *node) Parent() Node          { return n.parent }

func (n *node) segment() (any, bool) { return n.seg, n.hasSeg }

func (n *node) Path() []any {
	var out []any
	if n.hasSeg {
		out = append(out, n.seg)
	}
	for p := n.parent; p != nil; p = p.Parent() {
		if seg, ok := p.segment(); ok {
			out = append(out, seg)
		}
	}
	slices.Reverse(out)
	return out
}

// gate runs the validation hook on a candidate when the context validates
// on assignment.
func (n *node) gate(name string, candidate any, s schema.Schema) (bool, error) {
	if !n.ctx.ValidateOnAssignment() {
		return true, nil
	}
	ok, err := valueChange(n.ctx, name, candidate, s)
	if err != nil {
		return false, err
	}
	if !ok {
		logger(n.ctx).Debug("change rejected", "name", name, "path", PathOf(n.Path()).Pointer())
	}
	return ok, nil
}

// unwrap returns the raw value behind a Node.
func unwrap(v any) any {
	if nd, ok := v.(Node); ok {
		return nd.Instance()
	}
	return v
}

// wrap turns composite raw values into child nodes. Lists are addressed
// through slot so that growing them rewrites the container entry.
func wrap(name string, seg any, val any, s schema.Schema, ctx Context, parent Node, slot listSlot) any {
	switch t := val.(type) {
	case map[string]any:
		return &ObjectNode{node: newNode(name, seg, true, s, ctx, parent), m: t}
	case []any:
		return &ListNode{node: newNode(name, seg, true, s, ctx, parent), slot: slot}
	}
	return val
}
