package datanode

import (
	"fmt"
	"slices"

	"github.com/reoring/datanode/schema"
)

// listSlot is where a list lives in its container. Growing a list
// reallocates it, so the view writes the new slice back.
type listSlot interface {
	load() []any
	store([]any)
}

type mapSlot struct {
	m   map[string]any
	key string
}

func (s mapSlot) load() []any {
	l, _ := s.m[s.key].([]any)
	return l
}
func (s mapSlot) store(l []any) { s.m[s.key] = l }

type elemSlot struct {
	owner *ListNode
	i     int
}

func (s elemSlot) load() []any {
	items := s.owner.items()
	if s.i >= len(items) {
		return nil
	}
	l, _ := items[s.i].([]any)
	return l
}
func (s elemSlot) store(l []any) { s.owner.items()[s.i] = l }

type boxSlot struct{ p *[]any }

func (s boxSlot) load() []any   { return *s.p }
func (s boxSlot) store(l []any) { *s.p = l }

// ListNode is a view over a raw list. Element schemas come from the list
// schema's items.
type ListNode struct {
	node
	slot listSlot
}

// NewListNode wraps the list behind items; appends are written back to it.
func NewListNode(name string, items *[]any, s schema.Schema, ctx Context, parent Node) *ListNode {
	return &ListNode{node: newNode(name, nil, false, s, ctx, parent), slot: boxSlot{p: items}}
}

func (n *ListNode) items() []any { return n.slot.load() }

func (n *ListNode) Instance() any { return n.items() }

func (n *ListNode) Len() int { return len(n.items()) }

func (n *ListNode) index(i int) (int, error) {
	l := n.Len()
	if i < 0 {
		i += l
	}
	if i < 0 || i >= l {
		return 0, fmt.Errorf("%w: %d (len %d)", ErrIndex, i, l)
	}
	return i, nil
}

func (n *ListNode) child(i int, val any, s schema.Schema) any {
	return wrap(n.name, i, val, s, n.ctx, n, elemSlot{owner: n, i: i})
}

// At returns element i; negative indices count from the end.
func (n *ListNode) At(i int) (any, error) {
	i, err := n.index(i)
	if err != nil {
		return nil, err
	}
	return n.child(i, n.items()[i], schema.ForIndex(n.schema, i)), nil
}

// prepare casts v for position i and runs the assignment gate.
func (n *ListNode) prepare(i int, v any) (any, bool, error) {
	s := schema.ForIndex(n.schema, i)
	v, err := Cast(unwrap(v), s)
	if err != nil {
		return nil, false, fmt.Errorf("%s[%d]: %w", n.name, i, err)
	}
	ok, err := n.gate(n.name, v, s)
	return v, ok, err
}

// SetAt replaces element i.
func (n *ListNode) SetAt(i int, v any) error {
	i, err := n.index(i)
	if err != nil {
		return err
	}
	v, ok, err := n.prepare(i, v)
	if err != nil || !ok {
		return err
	}
	n.items()[i] = v
	return nil
}

// DeleteAt removes element i. Under validate-on-assignment the shortened
// list is checked afterwards; the removal stands either way and the outcome
// is only logged.
func (n *ListNode) DeleteAt(i int) error {
	i, err := n.index(i)
	if err != nil {
		return err
	}
	n.slot.store(slices.Delete(n.items(), i, i+1))
	if !n.ctx.ValidateOnAssignment() {
		return nil
	}
	ok, err := valueChange(n.ctx, n.name, n.items(), n.schema)
	if err != nil || !ok {
		logger(n.ctx).Debug("list invalid after delete", "name", n.name, "index", i, "error", err)
	}
	return nil
}

// Append adds v at the end.
func (n *ListNode) Append(v any) error {
	items := n.items()
	v, ok, err := n.prepare(len(items), v)
	if err != nil || !ok {
		return err
	}
	n.slot.store(append(items, v))
	return nil
}

// Insert places v before index i, clamping i into range.
func (n *ListNode) Insert(i int, v any) error {
	items := n.items()
	if i < 0 {
		i = max(i+len(items), 0)
	}
	i = min(i, len(items))
	v, ok, err := n.prepare(i, v)
	if err != nil || !ok {
		return err
	}
	n.slot.store(slices.Insert(items, i, v))
	return nil
}

// Pop removes and returns element i, -1 being the last.
func (n *ListNode) Pop(i int) (any, error) {
	i, err := n.index(i)
	if err != nil {
		return nil, err
	}
	items := n.items()
	x := items[i]
	n.slot.store(slices.Delete(items, i, i+1))
	s := schema.ForIndex(n.schema, 0)
	switch t := x.(type) {
	case map[string]any:
		return &ObjectNode{node: newNode(n.name, nil, false, s, n.ctx, n), m: t}, nil
	case []any:
		return &ListNode{node: newNode(n.name, nil, false, s, n.ctx, n), slot: boxSlot{p: &t}}, nil
	}
	return x, nil
}

// Remove deletes the first element equal to v.
func (n *ListNode) Remove(v any) error {
	i, err := n.Index(v)
	if err != nil {
		return err
	}
	n.slot.store(slices.Delete(n.items(), i, i+1))
	return nil
}

// Count returns how many elements equal v.
func (n *ListNode) Count(v any) int {
	v = unwrap(v)
	c := 0
	for _, el := range n.items() {
		if equalValues(el, v) {
			c++
		}
	}
	return c
}

// Index returns the position of the first element equal to v.
func (n *ListNode) Index(v any) (int, error) {
	v = unwrap(v)
	for i, el := range n.items() {
		if equalValues(el, v) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %v", ErrNotFound, v)
}

func (n *ListNode) Contains(v any) bool {
	_, err := n.Index(v)
	return err == nil
}

func (n *ListNode) Reverse() { slices.Reverse(n.items()) }

// Sort orders the raw elements with cmp, keeping equal elements in place.
func (n *ListNode) Sort(cmp func(a, b any) int) { slices.SortStableFunc(n.items(), cmp) }

// Extend appends every element of other, a list or a ListNode.
func (n *ListNode) Extend(other any) error {
	src, ok := unwrap(other).([]any)
	if !ok {
		return fmt.Errorf("%w: cannot extend with %T", ErrUnknownFieldType, other)
	}
	for _, part := range slices.Clone(src) {
		if err := n.Append(part); err != nil {
			return err
		}
	}
	return nil
}

// Item builds a record against the list's items schema. Under
// validate-on-assignment a record the hook refuses fails with ErrRejected.
// The record is not added to the list.
func (n *ListNode) Item(fields map[string]any) (*ObjectNode, error) {
	s, ok := schema.ItemSchema(n.schema)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no single items schema", ErrNoAttribute, n.name)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	rec := &ObjectNode{node: newNode(n.name, n.Len(), true, s, n.ctx, n), m: fields}
	ok, err := rec.gate(n.name, fields, s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s item", ErrRejected, n.name)
	}
	return rec, nil
}

// Equal compares the wrapped list with other, unwrapping nodes.
func (n *ListNode) Equal(other any) bool {
	return equalValues(n.items(), unwrap(other))
}

func (n *ListNode) String() string { return fmt.Sprint(n.items()) }
