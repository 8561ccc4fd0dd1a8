package treeio_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	j "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/ndarray"
	"github.com/reoring/datanode/treeio"
)

func TestRoundTrip_ArraysComeBackLazy(t *testing.T) {
	data, err := ndarray.Coerce([]any{[]any{1, 2}, []any{3, 4}}, ndarray.Scalar(ndarray.Float32), false)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	tree := map[string]any{
		"data": data,
		"meta": map[string]any{"telescope": "JWST", "count": 3, "ratio": 0.5, "tags": []any{"a", nil}},
	}
	var buf bytes.Buffer
	if err := treeio.Encode(&buf, tree); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"$array"`) {
		t.Fatalf("missing envelope:\n%s", buf.String())
	}

	got, err := treeio.Decode(&buf, treeio.Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantMeta := map[string]any{"telescope": "JWST", "count": int64(3), "ratio": 0.5, "tags": []any{"a", nil}}
	if diff := cmp.Diff(wantMeta, got["meta"]); diff != "" {
		t.Fatalf("meta (-want +got):\n%s", diff)
	}
	lz, ok := got["data"].(*ndarray.Lazy)
	if !ok {
		t.Fatalf("expected *ndarray.Lazy, got %T", got["data"])
	}
	if lz.Loaded() {
		t.Fatalf("payload decoded before use")
	}
	if diff := cmp.Diff([]int{2, 2}, lz.Shape()); diff != "" {
		t.Fatalf("header shape (-want +got):\n%s", diff)
	}
	arr, err := lz.Materialize()
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if !arr.Equal(data) {
		t.Fatalf("array changed: %v", arr.Flat())
	}
}

func TestRoundTrip_TablesKeepUnits(t *testing.T) {
	dt := ndarray.RecordOf(
		ndarray.Field{Name: "wave", DType: ndarray.Scalar(ndarray.Float64)},
		ndarray.Field{Name: "z", DType: ndarray.Scalar(ndarray.Complex128)},
		ndarray.Field{Name: "vec", DType: ndarray.Scalar(ndarray.Int16), Shape: []int{2}},
	)
	arr, err := ndarray.Coerce([]any{
		ndarray.Tuple{1.5, complex(1, -1), []any{1, 2}},
		ndarray.Tuple{2.5, complex(0, 2), []any{3, 4}},
	}, dt, false)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	tb, _ := ndarray.AsTable(arr)
	if err := tb.SetUnit("wave", "um"); err != nil {
		t.Fatalf("unit: %v", err)
	}
	b, err := treeio.Marshal(map[string]any{"tab": tb})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := treeio.Unmarshal(b, treeio.Options{})
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back, ok := got["tab"].(*ndarray.Table)
	if !ok {
		t.Fatalf("expected *ndarray.Table, got %T", got["tab"])
	}
	if !back.Equal(tb) {
		t.Fatalf("table changed: %v", back.Array().Flat())
	}
}

func TestUnmarshal_EmptyArrayKeepsShape(t *testing.T) {
	in := map[string]any{"dq": ndarray.New(ndarray.Scalar(ndarray.Uint8), 0, 3)}
	b, err := treeio.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := treeio.Unmarshal(b, treeio.Options{Eager: true})
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	arr := got["dq"].(*ndarray.Array)
	if diff := cmp.Diff([]int{0, 3}, arr.Shape()); diff != "" {
		t.Fatalf("shape (-want +got):\n%s", diff)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	if _, err := treeio.Unmarshal([]byte(`[1, 2]`), treeio.Options{}); !errors.Is(err, treeio.ErrNotTree) {
		t.Fatalf("expected ErrNotTree, got %v", err)
	}
	bad := []byte(`{"a": {"$array": {"datatype": "nope", "shape": [1], "data": [1]}}}`)
	if _, err := treeio.Unmarshal(bad, treeio.Options{}); !errors.Is(err, treeio.ErrEnvelope) {
		t.Fatalf("expected ErrEnvelope, got %v", err)
	}
	short := []byte(`{"a": {"$array": {"datatype": "int32", "shape": [3], "data": [1, 2]}}}`)
	got, err := treeio.Unmarshal(short, treeio.Options{})
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := got["a"].(*ndarray.Lazy).Materialize(); !errors.Is(err, treeio.ErrEnvelope) {
		t.Fatalf("expected ErrEnvelope on load, got %v", err)
	}
}

func TestDuplicateKeys(t *testing.T) {
	doc := []byte(`{"a": 1, "b": {"c": 1, "c": 2}, "l": [{"x": 1, "x": 2}], "a": 3}`)
	iss, err := treeio.DuplicateKeys(doc)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var paths []string
	for _, it := range iss {
		if it.Code != datanode.CodeDuplicateKey {
			t.Fatalf("code = %s", it.Code)
		}
		paths = append(paths, it.Path)
	}
	if diff := cmp.Diff([]string{"/b/c", "/l/0/x", "/a"}, paths); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
	if _, err := treeio.Unmarshal(doc, treeio.Options{RejectDuplicateKeys: true}); err == nil {
		t.Fatalf("expected duplicate keys to be rejected")
	}
}

func TestDecodeYAML(t *testing.T) {
	doc := `
meta:
  telescope: JWST
  filters: [F090W, F200W]
dq:
  $array:
    datatype: uint8
    shape: [2]
    data: [0, 4]
`
	got, err := treeio.DecodeYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"telescope": "JWST", "filters": []any{"F090W", "F200W"}}, got["meta"]); diff != "" {
		t.Fatalf("meta (-want +got):\n%s", diff)
	}
	dq, ok := got["dq"].(*ndarray.Array)
	if !ok {
		t.Fatalf("expected *ndarray.Array, got %T", got["dq"])
	}
	if diff := cmp.Diff([]any{uint8(0), uint8(4)}, dq.Flat()); diff != "" {
		t.Fatalf("dq (-want +got):\n%s", diff)
	}
}

func TestMarshalValue_LazyArraysStayUnloaded(t *testing.T) {
	lz := ndarray.NewLazy(ndarray.Scalar(ndarray.Int16), []int{2, 3}, func() (*ndarray.Array, error) {
		t.Fatalf("payload must not be loaded")
		return nil, nil
	})
	raw, err := treeio.MarshalValue(map[string]any{"dq": lz, "note": nil})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"dq":{"$array":{"datatype":"int16","shape":[2,3]}}}`
	if diff := cmp.Diff(want, string(raw)); diff != "" {
		t.Fatalf("json (-want +got):\n%s", diff)
	}

	var doc map[string]any
	if err := j.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v, ok, err := treeio.FromEnvelope(doc["dq"])
	if err != nil || !ok {
		t.Fatalf("FromEnvelope = %v, %v", ok, err)
	}
	header, isLazy := v.(*ndarray.Lazy)
	if !isLazy || header.DType().Kind != ndarray.Int16 {
		t.Fatalf("got %v (%T)", v, v)
	}
	if diff := cmp.Diff([]int{2, 3}, header.Shape()); diff != "" {
		t.Fatalf("shape (-want +got):\n%s", diff)
	}
	if _, err := header.Materialize(); !errors.Is(err, treeio.ErrEnvelope) {
		t.Fatalf("expected ErrEnvelope, got %v", err)
	}
	if _, ok, _ := treeio.FromEnvelope(map[string]any{"a": 1}); ok {
		t.Fatalf("plain mapping taken for an envelope")
	}
}

func TestFromEnvelope_DecodesData(t *testing.T) {
	arr, err := ndarray.Coerce([]any{1.5, 2.5}, ndarray.Scalar(ndarray.Float32), false)
	if err != nil {
		t.Fatalf("coerce: %v", err)
	}
	raw, err := treeio.MarshalValue(arr)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := j.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v, ok, err := treeio.FromEnvelope(doc)
	if err != nil || !ok {
		t.Fatalf("FromEnvelope = %v, %v", ok, err)
	}
	back, isArray := v.(*ndarray.Array)
	if !isArray || !back.Equal(arr) {
		t.Fatalf("got %v (%T)", v, v)
	}
}
