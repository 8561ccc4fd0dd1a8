package datanode_test

import (
	"cmp"
	"errors"
	"testing"

	gocmp "github.com/google/go-cmp/cmp"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/schema"
)

func TestObjectNode_DefaultIsWrittenThroughOnRead(t *testing.T) {
	raw := map[string]any{}
	_, root := newTestTree(rampSchema(), raw)
	meta, err := root.Get("meta")
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	obj, ok := meta.(*datanode.ObjectNode)
	if !ok {
		t.Fatalf("expected *ObjectNode, got %T", meta)
	}
	tel, err := obj.Get("telescope")
	if err != nil || tel != "JWST" {
		t.Fatalf("telescope = %v, %v", tel, err)
	}
	want := map[string]any{"meta": map[string]any{"telescope": "JWST"}}
	if diff := gocmp.Diff(want, raw); diff != "" {
		t.Fatalf("raw tree (-want +got):\n%s", diff)
	}

	// A nil default leaves the tree alone.
	note, err := obj.Get("note")
	if err != nil || note != nil {
		t.Fatalf("note = %v, %v", note, err)
	}
	if obj.Has("note") {
		t.Fatalf("nil default must not be stored")
	}
}

func TestObjectNode_UnknownAttribute(t *testing.T) {
	_, root := newTestTree(rampSchema(), map[string]any{"extra": 1})
	if _, err := root.Get("nope"); !errors.Is(err, datanode.ErrNoAttribute) {
		t.Fatalf("expected ErrNoAttribute, got %v", err)
	}
	if v, err := root.Get("extra"); err != nil || v != 1 {
		t.Fatalf("stored value without schema = %v, %v", v, err)
	}
	if _, err := root.Get("_private"); !errors.Is(err, datanode.ErrNoAttribute) {
		t.Fatalf("expected ErrNoAttribute for private name, got %v", err)
	}
}

func TestObjectNode_SetCastsAndValidates(t *testing.T) {
	c, root := newTestTree(rampSchema(), nil)
	c.validate = true
	if err := root.Set("pixeldq", []any{[]any{1, 2}, []any{3, 4}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if len(c.calls) != 1 || c.calls[0].name != "pixeldq" {
		t.Fatalf("hook calls = %v", c.calls)
	}
	if err := root.Set("pixeldq", []any{1, 2}); !errors.Is(err, datanode.ErrDimensionality) {
		t.Fatalf("expected ErrDimensionality, got %v", err)
	}

	c.accept = func(string, any) bool { return false }
	if err := root.Set("extra", 1); err != nil {
		t.Fatalf("rejection must be silent, got %v", err)
	}
	if root.Has("extra") {
		t.Fatalf("rejected value was stored")
	}

	c.validate = false
	if err := root.Set("extra", 1); err != nil || !root.Has("extra") {
		t.Fatalf("unvalidated set failed: %v", err)
	}
}

func TestObjectNode_SetNilStoresDefault(t *testing.T) {
	_, root := newTestTree(rampSchema(), nil)
	meta, _ := root.Get("meta")
	obj := meta.(*datanode.ObjectNode)
	if err := obj.Set("telescope", "HST"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := obj.Set("telescope", nil); err != nil {
		t.Fatalf("set nil: %v", err)
	}
	if v, _ := obj.Get("telescope"); v != "JWST" {
		t.Fatalf("telescope = %v", v)
	}
}

func TestObjectNode_DeleteConsultsHook(t *testing.T) {
	c, root := newTestTree(rampSchema(), map[string]any{"extra": 1})
	c.validate = true
	c.accept = func(string, any) bool { return false }
	if err := root.Delete("extra"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(c.calls) != 1 || c.calls[0].instance != nil {
		t.Fatalf("hook must see a nil candidate, got %v", c.calls)
	}
	if !root.Has("extra") {
		t.Fatalf("rejected delete removed the key")
	}

	c.pass = true
	if err := root.Delete("extra"); err != nil || root.Has("extra") {
		t.Fatalf("tolerant delete failed: %v", err)
	}
	if err := root.Delete("extra"); !errors.Is(err, datanode.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestObjectNode_IterationOrder(t *testing.T) {
	raw := map[string]any{"a": map[string]any{"b": 1, "c": 2}, "d": 3}
	_, root := newTestTree(schema.Schema{}, raw)
	if diff := gocmp.Diff([]string{"a.b", "a.c", "d"}, root.Paths()); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
	it := root.Iter()
	n := 0
	for it.Next() {
		n++
	}
	if n != 3 {
		t.Fatalf("iterator yielded %d paths", n)
	}
}

func TestObjectNode_IterationTreatsListsAsLeaves(t *testing.T) {
	raw := map[string]any{
		"x":     []any{map[string]any{"y": 1}},
		"empty": map[string]any{},
		"z":     map[string]any{"w": map[string]any{"v": nil}},
	}
	_, root := newTestTree(schema.Schema{}, raw)
	if diff := gocmp.Diff([]string{"x", "z.w.v"}, root.Paths()); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
}

func TestObjectNode_ItemsResolveThroughGet(t *testing.T) {
	raw := map[string]any{"meta": map[string]any{"telescope": "JWST", "filters": []any{"F090W"}}}
	_, root := newTestTree(rampSchema(), raw)
	items, err := root.Items()
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 || items[0].Path != "meta.filters" || items[1].Path != "meta.telescope" {
		t.Fatalf("items = %v", items)
	}
	list, ok := items[0].Value.(*datanode.ListNode)
	if !ok || list.Len() != 1 {
		t.Fatalf("meta.filters = %#v", items[0].Value)
	}
	if diff := gocmp.Diff([]any{"meta", "filters"}, list.Path()); diff != "" {
		t.Fatalf("node path (-want +got):\n%s", diff)
	}
}

func TestObjectNode_KeysIncludeSchemaProperties(t *testing.T) {
	_, root := newTestTree(schema.Schema{"properties": map[string]any{"b": map[string]any{}}}, map[string]any{"a": 1})
	if diff := gocmp.Diff([]string{"a", "b"}, root.Keys()); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
}

func TestObjectNode_Equal(t *testing.T) {
	_, a := newTestTree(schema.Schema{}, map[string]any{"k": []any{1, "x"}})
	_, b := newTestTree(schema.Schema{}, map[string]any{"k": []any{1, "x"}})
	if !a.Equal(b) || !a.Equal(map[string]any{"k": []any{1, "x"}}) {
		t.Fatalf("equal trees compare unequal")
	}
	if a.Equal(map[string]any{"k": []any{2}}) {
		t.Fatalf("different trees compare equal")
	}
}

func listSchema() schema.Schema {
	return schema.Schema{
		"type": "object",
		"properties": map[string]any{
			"rows": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":       "object",
					"properties": map[string]any{"name": map[string]any{"type": "string"}},
				},
			},
			"vecs": map[string]any{
				"type":  "array",
				"items": map[string]any{"datatype": "float64", "ndim": 1},
			},
		},
	}
}

func getList(t *testing.T, root *datanode.ObjectNode, name string) *datanode.ListNode {
	t.Helper()
	v, err := root.Get(name)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	l, ok := v.(*datanode.ListNode)
	if !ok {
		t.Fatalf("%s: expected *ListNode, got %T", name, v)
	}
	return l
}

func TestListNode_AppendWritesThrough(t *testing.T) {
	raw := map[string]any{}
	_, root := newTestTree(listSchema(), raw)
	rows := getList(t, root, "rows")
	for _, name := range []string{"a", "b"} {
		if err := rows.Append(map[string]any{"name": name}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	want := []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}
	if diff := gocmp.Diff(want, raw["rows"]); diff != "" {
		t.Fatalf("raw rows (-want +got):\n%s", diff)
	}
	first, err := rows.At(-2)
	if err != nil {
		t.Fatalf("at: %v", err)
	}
	obj := first.(*datanode.ObjectNode)
	if err := obj.Set("name", "z"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if raw["rows"].([]any)[0].(map[string]any)["name"] != "z" {
		t.Fatalf("element write did not reach the raw tree")
	}
	if _, err := rows.At(2); !errors.Is(err, datanode.ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
}

func TestListNode_NestedListGrowsInPlace(t *testing.T) {
	raw := map[string]any{"grid": []any{[]any{}}}
	_, root := newTestTree(schema.Schema{}, raw)
	grid := getList(t, root, "grid")
	inner, err := grid.At(0)
	if err != nil {
		t.Fatalf("at: %v", err)
	}
	if err := inner.(*datanode.ListNode).Append(1); err != nil {
		t.Fatalf("append: %v", err)
	}
	if diff := gocmp.Diff([]any{[]any{1}}, raw["grid"]); diff != "" {
		t.Fatalf("grid (-want +got):\n%s", diff)
	}
}

func TestListNode_ElementsAreCast(t *testing.T) {
	_, root := newTestTree(listSchema(), nil)
	vecs := getList(t, root, "vecs")
	if err := vecs.Append([]any{1, 2}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := vecs.Insert(0, [][]float64{{1}}); !errors.Is(err, datanode.ErrDimensionality) {
		t.Fatalf("expected ErrDimensionality, got %v", err)
	}
	if vecs.Len() != 1 {
		t.Fatalf("len = %d", vecs.Len())
	}
}

func TestListNode_Mutators(t *testing.T) {
	raw := map[string]any{"xs": []any{3, 1, 2, 1}}
	_, root := newTestTree(schema.Schema{}, raw)
	xs := getList(t, root, "xs")

	if xs.Count(1) != 2 || !xs.Contains(3) || xs.Contains(9) {
		t.Fatalf("count/contains wrong on %v", xs)
	}
	if i, err := xs.Index(2); err != nil || i != 2 {
		t.Fatalf("index = %d, %v", i, err)
	}
	if err := xs.Remove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := xs.Remove(9); !errors.Is(err, datanode.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := xs.Insert(-100, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := xs.Insert(100, 9); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if diff := gocmp.Diff([]any{0, 3, 2, 1, 9}, raw["xs"]); diff != "" {
		t.Fatalf("after insert (-want +got):\n%s", diff)
	}
	xs.Sort(func(a, b any) int { return cmp.Compare(a.(int), b.(int)) })
	xs.Reverse()
	if diff := gocmp.Diff([]any{9, 3, 2, 1, 0}, raw["xs"]); diff != "" {
		t.Fatalf("after sort/reverse (-want +got):\n%s", diff)
	}
	v, err := xs.Pop(-1)
	if err != nil || v != 0 {
		t.Fatalf("pop = %v, %v", v, err)
	}
	if err := xs.DeleteAt(0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := xs.Extend(xs); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if diff := gocmp.Diff([]any{3, 2, 1, 3, 2, 1}, raw["xs"]); diff != "" {
		t.Fatalf("after extend (-want +got):\n%s", diff)
	}
	if !xs.Equal([]any{3, 2, 1, 3, 2, 1}) {
		t.Fatalf("equal failed")
	}
}

func TestListNode_DeleteAtRevalidates(t *testing.T) {
	c, root := newTestTree(schema.Schema{}, map[string]any{"xs": []any{1, 2}})
	c.validate = true
	c.accept = func(string, any) bool { return false }
	xs := getList(t, root, "xs")
	if err := xs.DeleteAt(0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if xs.Len() != 1 {
		t.Fatalf("removal must stand, len = %d", xs.Len())
	}
	if len(c.calls) != 1 {
		t.Fatalf("hook calls = %v", c.calls)
	}

	c.fail = errors.New("strict rejection")
	if err := xs.DeleteAt(0); err != nil {
		t.Fatalf("committed delete reported %v", err)
	}
	if xs.Len() != 0 || len(c.calls) != 2 {
		t.Fatalf("len = %d, hook calls = %v", xs.Len(), c.calls)
	}
}

func TestListNode_Item(t *testing.T) {
	c, root := newTestTree(listSchema(), nil)
	rows := getList(t, root, "rows")
	rec, err := rows.Item(map[string]any{"name": "r1"})
	if err != nil {
		t.Fatalf("item: %v", err)
	}
	if v, _ := rec.Get("name"); v != "r1" {
		t.Fatalf("name = %v", v)
	}
	if rows.Len() != 0 {
		t.Fatalf("item must not append")
	}

	c.validate = true
	c.accept = func(string, any) bool { return false }
	if _, err := rows.Item(map[string]any{"name": 1}); !errors.Is(err, datanode.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	_, root = newTestTree(schema.Schema{"properties": map[string]any{
		"pair": map[string]any{"type": "array", "items": []any{map[string]any{}, map[string]any{}}},
	}}, nil)
	if _, err := getList(t, root, "pair").Item(nil); !errors.Is(err, datanode.ErrNoAttribute) {
		t.Fatalf("expected ErrNoAttribute, got %v", err)
	}
}
