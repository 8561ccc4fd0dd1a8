package datanode

import (
	"fmt"
	"reflect"

	"github.com/reoring/datanode/ndarray"
)

// ItemsMarker is the path segment that stands for the elements of a list.
const ItemsMarker = "items"

// PutValue stores value at path inside tree, replacing what is there.
// Missing containers are created along the way: a list when the segment
// that follows is an index or ItemsMarker, a mapping otherwise. Lists are
// padded with empty mappings up to the index being written. On a list,
// ItemsMarker addresses the last element.
func PutValue(path []any, value any, tree map[string]any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", ErrPathConflict)
	}
	if tree == nil {
		return fmt.Errorf("%w: nil tree", ErrPathConflict)
	}
	_, err := putInto(tree, path, 0, value)
	return err
}

// putInto writes into cur and returns it, reallocated when it is a list
// that had to grow.
func putInto(cur any, path []any, depth int, value any) (any, error) {
	seg := path[depth]
	last := depth == len(path)-1
	switch c := cur.(type) {
	case map[string]any:
		key, ok := seg.(string)
		if !ok {
			return nil, conflict(path, depth, "index into a mapping")
		}
		if last {
			c[key] = value
			return c, nil
		}
		next, err := putInto(containerFor(c[key], path[depth+1]), path, depth+1, value)
		if err != nil {
			return nil, err
		}
		c[key] = next
		return c, nil
	case []any:
		var i int
		// fresh marks a slot this call appended; it takes whatever container
		// the next segment needs.
		fresh := false
		switch s := seg.(type) {
		case int:
			if s < 0 {
				return nil, conflict(path, depth, "negative index")
			}
			fresh = s >= len(c)
			for len(c) <= s {
				c = append(c, map[string]any{})
			}
			i = s
		case string:
			if s != ItemsMarker {
				return nil, conflict(path, depth, "key into a list")
			}
			if len(c) == 0 {
				c = append(c, map[string]any{})
				fresh = true
			}
			i = len(c) - 1
		default:
			return nil, conflict(path, depth, fmt.Sprintf("segment of type %T", seg))
		}
		if last {
			c[i] = value
			return c, nil
		}
		el := c[i]
		if fresh {
			el = nil
		}
		next, err := putInto(containerFor(el, path[depth+1]), path, depth+1, value)
		if err != nil {
			return nil, err
		}
		c[i] = next
		return c, nil
	}
	return nil, conflict(path, depth, fmt.Sprintf("%T is not a container", cur))
}

// containerFor returns existing, or a fresh container of the kind the next
// segment needs when there is none.
func containerFor(existing any, next any) any {
	if existing != nil {
		return existing
	}
	if _, ok := next.(int); ok || next == ItemsMarker {
		return []any{}
	}
	return map[string]any{}
}

func conflict(path []any, depth int, msg string) error {
	return fmt.Errorf("%w: %s at %s", ErrPathConflict, msg, PathOf(path[:depth+1]).Pointer())
}

// MergeTree merges b into a and returns a. Mappings merge key by key;
// every other value from b, lists included, replaces the one in a with a
// deep copy. A nil a is allocated.
func MergeTree(a, b map[string]any) map[string]any {
	if a == nil {
		a = map[string]any{}
	}
	for k, bv := range b {
		a[k] = mergeValue(a[k], bv)
	}
	return a
}

func mergeValue(a, b any) any {
	bm, ok := b.(map[string]any)
	if !ok {
		return DeepCopy(b)
	}
	am, ok := a.(map[string]any)
	if !ok {
		return DeepCopy(b)
	}
	return MergeTree(am, bm)
}

// DeepCopy copies mappings, lists, arrays and tables recursively. Other
// values are shared.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = DeepCopy(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = DeepCopy(t[i])
		}
		return out
	case ndarray.Tuple:
		out := make(ndarray.Tuple, len(t))
		for i := range t {
			out[i] = DeepCopy(t[i])
		}
		return out
	case *ndarray.Array:
		return t.Clone()
	case *ndarray.Table:
		return t.Clone()
	}
	return v
}

func equalValues(a, b any) bool {
	switch x := a.(type) {
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !equalValues(xv, yv) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equalValues(x[i], y[i]) {
				return false
			}
		}
		return true
	case *ndarray.Array:
		y, ok := b.(*ndarray.Array)
		return ok && x.Equal(y)
	case *ndarray.Table:
		y, ok := b.(*ndarray.Table)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}
