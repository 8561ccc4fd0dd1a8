package datanode

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/reoring/datanode/schema"
)

// ObjectNode is a view over a raw mapping. Attributes resolve against the
// node's schema: stored values are returned as they are, absent ones are
// synthesized from the schema and stored on first read.
type ObjectNode struct {
	node
	m map[string]any
}

// NewObjectNode wraps m. A nil m is replaced by an empty mapping, reachable
// through Instance.
func NewObjectNode(name string, m map[string]any, s schema.Schema, ctx Context, parent Node) *ObjectNode {
	if m == nil {
		m = map[string]any{}
	}
	return &ObjectNode{node: newNode(name, nil, false, s, ctx, parent), m: m}
}

func (n *ObjectNode) Instance() any { return n.m }

// Raw returns the wrapped mapping.
func (n *ObjectNode) Raw() map[string]any { return n.m }

func checkAttr(attr string) error {
	if attr == "" || strings.HasPrefix(attr, "_") {
		return fmt.Errorf("%w: %q", ErrNoAttribute, attr)
	}
	return nil
}

// Get resolves attr. Mappings and lists come back as child nodes, anything
// else as the raw value. An attribute that is neither stored nor described
// by the schema fails with ErrNoAttribute.
func (n *ObjectNode) Get(attr string) (any, error) {
	if err := checkAttr(attr); err != nil {
		return nil, err
	}
	s := schema.ForProperty(n.schema, attr)
	val, ok := n.m[attr]
	if !ok {
		if s.IsEmpty() {
			return nil, fmt.Errorf("%w: %q", ErrNoAttribute, attr)
		}
		def, err := MakeDefault(attr, s, n.ctx)
		if err != nil {
			return nil, fmt.Errorf("default for %q: %w", attr, err)
		}
		if def != nil {
			n.m[attr] = def
		}
		val = def
	}
	return wrap(attr, attr, val, s, n.ctx, n, mapSlot{m: n.m, key: attr}), nil
}

// Set casts v against the attribute's schema and stores it. A nil v stores
// the synthesized default. Under validate-on-assignment a rejected value is
// dropped without error.
func (n *ObjectNode) Set(attr string, v any) error {
	if err := checkAttr(attr); err != nil {
		return err
	}
	s := schema.ForProperty(n.schema, attr)
	v = unwrap(v)
	if v == nil {
		def, err := MakeDefault(attr, s, n.ctx)
		if err != nil {
			return fmt.Errorf("default for %q: %w", attr, err)
		}
		v = def
	}
	v, err := Cast(v, s)
	if err != nil {
		return fmt.Errorf("set %q: %w", attr, err)
	}
	ok, err := n.gate(attr, v, s)
	if err != nil || !ok {
		return err
	}
	n.m[attr] = v
	return nil
}

// Delete removes attr once the validation hook accepts a nil replacement,
// or the context tolerates invalid values. Removing an absent key fails
// with ErrMissingKey.
func (n *ObjectNode) Delete(attr string) error {
	if err := checkAttr(attr); err != nil {
		return err
	}
	s := schema.ForProperty(n.schema, attr)
	ok, err := valueChange(n.ctx, attr, nil, s)
	if err != nil {
		return err
	}
	if !ok && !n.ctx.PassInvalidValues() {
		logger(n.ctx).Debug("delete rejected", "name", attr)
		return nil
	}
	if _, exists := n.m[attr]; !exists {
		return fmt.Errorf("%w: %q", ErrMissingKey, attr)
	}
	delete(n.m, attr)
	return nil
}

// Has reports whether attr is stored, without synthesizing a default.
func (n *ObjectNode) Has(attr string) bool {
	_, ok := n.m[attr]
	return ok
}

// Keys lists the stored attributes and those the schema declares directly.
func (n *ObjectNode) Keys() []string {
	set := map[string]struct{}{}
	for k := range n.m {
		set[k] = struct{}{}
	}
	for k := range n.schema.Properties() {
		set[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// GetPath resolves a dot-separated path one attribute at a time.
func (n *ObjectNode) GetPath(path string) (any, error) {
	var cur any = n
	for _, field := range strings.Split(path, ".") {
		obj, ok := cur.(*ObjectNode)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a mapping at %q", ErrNoAttribute, path, field)
		}
		v, err := obj.Get(field)
		if err != nil {
			return nil, err
		}
		cur = v
	}
	return cur, nil
}

// Iter walks the stored leaves depth-first.
func (n *ObjectNode) Iter() *Iterator { return newIterator(n.m) }

// All yields the same paths as Iter.
func (n *ObjectNode) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		it := n.Iter()
		for it.Next() {
			if !yield(it.Path()) {
				return
			}
		}
	}
}

// Paths collects the flattened leaf paths.
func (n *ObjectNode) Paths() []string {
	return slices.Collect(n.All())
}

// Item is one flattened leaf.
type Item struct {
	Path  string
	Value any
}

// Items pairs every flattened path with its value resolved through Get, so
// values pass through default synthesis.
func (n *ObjectNode) Items() ([]Item, error) {
	var out []Item
	for _, p := range n.Paths() {
		v, err := n.GetPath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, Item{Path: p, Value: v})
	}
	return out, nil
}

// Equal compares the wrapped mapping with other, unwrapping nodes.
func (n *ObjectNode) Equal(other any) bool {
	return equalValues(n.m, unwrap(other))
}

func (n *ObjectNode) String() string { return fmt.Sprint(n.m) }
