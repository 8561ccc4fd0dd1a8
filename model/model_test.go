package model_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/model"
	"github.com/reoring/datanode/ndarray"
	"github.com/reoring/datanode/schema"
)

const rampYAML = `
type: object
$defs:
  plane:
    datatype: uint32
    ndim: 2
properties:
  data:
    datatype: float32
    ndim: 4
  pixeldq:
    $ref: "#/$defs/plane"
  zeroframe:
    datatype: float32
    ndim: 3
  err:
    datatype: float32
  meta:
    type: object
    properties:
      telescope:
        type: string
        default: JWST
      exposure:
        type: object
        properties:
          nints:
            type: integer
            minimum: 1
`

func loadRamp(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.Load([]byte(rampYAML))
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func shapeOf(t *testing.T, m *model.Model, name string) []int {
	t.Helper()
	v, err := m.Get(name)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	shape, ok := ndarray.ShapeOf(v)
	if !ok {
		t.Fatalf("%s: %T has no shape", name, v)
	}
	return shape
}

func TestNew_SiblingsSizedFromShapeHint(t *testing.T) {
	opts := model.DefaultOptions()
	opts.Shape = []int{2, 3, 4, 5}
	m, err := model.New(loadRamp(t), opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !m.Has("data") {
		t.Fatalf("primary array not allocated by New")
	}
	cases := map[string][]int{
		"data":      {2, 3, 4, 5},
		"zeroframe": {2, 4, 5},
		"pixeldq":   {4, 5},
		"err":       {2, 3, 4, 5},
	}
	for name, want := range cases {
		if diff := cmp.Diff(want, shapeOf(t, m, name)); diff != "" {
			t.Fatalf("%s shape (-want +got):\n%s", name, diff)
		}
	}
	if diff := cmp.Diff([]int{2, 3, 4, 5}, m.Shape()); diff != "" {
		t.Fatalf("Shape (-want +got):\n%s", diff)
	}
}

func TestNew_ShapeHintRankChecked(t *testing.T) {
	opts := model.DefaultOptions()
	opts.Shape = []int{3, 4}
	_, err := model.New(loadRamp(t), opts)
	if !errors.Is(err, datanode.ErrDimensionality) {
		t.Fatalf("expected ErrDimensionality, got %v", err)
	}
}

func TestSet_StrictValidationReturnsIssues(t *testing.T) {
	opts := model.DefaultOptions()
	opts.StrictValidation = true
	m, err := model.New(loadRamp(t), opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = m.Set("meta", map[string]any{"telescope": 5})
	iss, ok := datanode.AsIssues(err)
	if !ok {
		t.Fatalf("expected Issues, got %v", err)
	}
	if iss[0].Path != "/meta/telescope" || iss[0].Code != datanode.CodeInvalidType {
		t.Fatalf("unexpected issue: %+v", iss[0])
	}
	if m.Has("meta") {
		t.Fatalf("rejected value was stored")
	}
}

func TestSet_LenientValidationLogsAndDrops(t *testing.T) {
	var logs bytes.Buffer
	opts := model.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	m, err := model.New(loadRamp(t), opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.Set("meta", map[string]any{"exposure": map[string]any{"nints": 0}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if m.Has("meta") {
		t.Fatalf("rejected value was stored")
	}
	if !strings.Contains(logs.String(), "value rejected") {
		t.Fatalf("missing warning, logs:\n%s", logs.String())
	}
}

func TestSet_PassInvalidValuesCommits(t *testing.T) {
	opts := model.DefaultOptions()
	opts.PassInvalidValues = true
	m, err := model.New(loadRamp(t), opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.Set("meta", map[string]any{"telescope": 5}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := m.GetPath("meta.telescope")
	if err != nil || got != 5 {
		t.Fatalf("meta.telescope = %v, %v", got, err)
	}
}

func TestPutUpdateAndValidate(t *testing.T) {
	m, err := model.New(loadRamp(t), model.DefaultOptions())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.Put([]any{"meta", "exposure", "nints"}, 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	m.Update(map[string]any{"meta": map[string]any{"telescope": "HST"}})

	want := map[string]any{"meta": map[string]any{
		"telescope": "HST",
		"exposure":  map[string]any{"nints": 0},
	}}
	if diff := cmp.Diff(want, m.Tree()); diff != "" {
		t.Fatalf("tree (-want +got):\n%s", diff)
	}
	iss, ok := datanode.AsIssues(m.Validate())
	if !ok || len(iss) != 1 || iss[0].Path != "/meta/exposure/nints" || iss[0].Code != datanode.CodeTooSmall {
		t.Fatalf("unexpected validation result: %v", iss)
	}
	if diff := cmp.Diff([]string{"meta.exposure.nints", "meta.telescope"}, m.Paths()); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
}

func TestEnsureArrays(t *testing.T) {
	opts := model.DefaultOptions()
	opts.Shape = []int{1, 2, 3, 4}
	m, err := model.New(loadRamp(t), opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.EnsureArrays("pixeldq", "zeroframe"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	dq, ok := m.Tree()["pixeldq"].(*ndarray.Array)
	if !ok || dq.DType().Kind != ndarray.Uint32 {
		t.Fatalf("pixeldq = %v", m.Tree()["pixeldq"])
	}
	if diff := cmp.Diff([]int{3, 4}, dq.Shape()); diff != "" {
		t.Fatalf("pixeldq shape (-want +got):\n%s", diff)
	}
	if _, ok := m.Tree()["zeroframe"]; !ok {
		t.Fatalf("zeroframe not stored")
	}
}

func TestSaveOpen_ArraysLoadOnCast(t *testing.T) {
	opts := model.DefaultOptions()
	opts.Shape = []int{1, 1, 2, 2}
	m, err := model.New(loadRamp(t), opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := m.Set("meta", map[string]any{"telescope": "JWST"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}

	back, err := model.Open(&buf, loadRamp(t), model.DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	lz, ok := back.Tree()["data"].(*ndarray.Lazy)
	if !ok {
		t.Fatalf("expected lazy data, got %T", back.Tree()["data"])
	}
	if diff := cmp.Diff([]int{1, 1, 2, 2}, back.Shape()); diff != "" {
		t.Fatalf("Shape (-want +got):\n%s", diff)
	}
	if err := back.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if lz.Loaded() {
		t.Fatalf("validation loaded the payload")
	}
	if err := back.EnsureArrays("data"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, ok := back.Tree()["data"].(*ndarray.Array); !ok {
		t.Fatalf("data not materialized: %T", back.Tree()["data"])
	}
	tel, err := back.GetPath("meta.telescope")
	if err != nil || tel != "JWST" {
		t.Fatalf("meta.telescope = %v, %v", tel, err)
	}
}

func TestOpenYAML(t *testing.T) {
	doc := `
meta:
  telescope: JWST
pixeldq:
  $array: {datatype: uint32, shape: [1, 2], data: [[0, 1]]}
`
	m, err := model.OpenYAML(strings.NewReader(doc), loadRamp(t), model.DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, shapeOf(t, m, "pixeldq")); diff != "" {
		t.Fatalf("pixeldq shape (-want +got):\n%s", diff)
	}
}
