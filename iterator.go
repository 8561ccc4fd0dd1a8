package datanode

import (
	"maps"
	"slices"
	"strings"
)

// Iterator flattens a raw mapping into dot-joined leaf paths, depth-first.
// Only mappings are descended into; lists and arrays are leaves. Keys are
// visited in sorted order.
//
//	it := obj.Iter()
//	for it.Next() {
//		fmt.Println(it.Path())
//	}
type Iterator struct {
	stack  []frame
	prefix []string
	path   string
}

type frame struct {
	m    map[string]any
	keys []string
	pos  int
}

func newFrame(m map[string]any) frame {
	return frame{m: m, keys: slices.Sorted(maps.Keys(m))}
}

func newIterator(m map[string]any) *Iterator {
	return &Iterator{stack: []frame{newFrame(m)}}
}

// Next advances to the next leaf and reports whether there is one.
func (it *Iterator) Next() bool {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.pos >= len(top.keys) {
			it.stack = it.stack[:len(it.stack)-1]
			if len(it.stack) > 0 {
				it.prefix = it.prefix[:len(it.prefix)-1]
			}
			continue
		}
		key := top.keys[top.pos]
		top.pos++
		if sub, ok := top.m[key].(map[string]any); ok {
			it.prefix = append(it.prefix, key)
			it.stack = append(it.stack, newFrame(sub))
			continue
		}
		it.path = strings.Join(append(slices.Clip(it.prefix), key), ".")
		return true
	}
	return false
}

// Path is the current leaf path.
func (it *Iterator) Path() string { return it.path }
