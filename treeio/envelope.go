package treeio

import (
	"fmt"

	"github.com/reoring/datanode/ndarray"
)

// ArrayKey marks a mapping that stands for an array:
//
//	{"$array": {"datatype": "float32", "shape": [2, 2], "data": [[0, 1], [2, 3]]}}
//
// Record arrays list their fields as datatype and may carry "units".
// Complex elements are written as [real, imag] pairs.
const ArrayKey = "$array"

type envelope struct {
	Datatype any               `json:"datatype"`
	Shape    []int             `json:"shape"`
	Data     any               `json:"data"`
	Units    map[string]string `json:"units,omitempty"`
}

func arrayEnvelope(a *ndarray.Array, units map[string]string) map[string]any {
	return map[string]any{ArrayKey: envelope{
		Datatype: ndarray.ToDatatype(a.DType()),
		Shape:    a.Shape(),
		Data:     encodeElements(a.ToList(), a.Ndim(), a.DType()),
		Units:    units,
	}}
}

// headerEnvelope describes a lazy array by dtype and shape alone.
func headerEnvelope(l *ndarray.Lazy) map[string]any {
	return map[string]any{ArrayKey: map[string]any{
		"datatype": ndarray.ToDatatype(l.DType()),
		"shape":    l.Shape(),
	}}
}

func tableEnvelope(t *ndarray.Table) map[string]any {
	var units map[string]string
	for _, c := range t.Columns() {
		if c.Unit == "" {
			continue
		}
		if units == nil {
			units = map[string]string{}
		}
		units[c.Name] = c.Unit
	}
	return arrayEnvelope(t.Array(), units)
}

// encodeElements rewrites the leaves of a nested list into JSON-friendly
// values.
func encodeElements(v any, depth int, d *ndarray.DType) any {
	if depth > 0 {
		l := v.([]any)
		out := make([]any, len(l))
		for i := range l {
			out[i] = encodeElements(l[i], depth-1, d)
		}
		return out
	}
	switch t := v.(type) {
	case complex64:
		return []any{real(t), imag(t)}
	case complex128:
		return []any{real(t), imag(t)}
	case ndarray.Tuple:
		out := make([]any, len(t))
		for i, f := range d.Fields {
			if sub, ok := t[i].(*ndarray.Array); ok {
				out[i] = encodeElements(sub.ToList(), sub.Ndim(), f.DType)
				continue
			}
			out[i] = encodeElements(t[i], 0, f.DType)
		}
		return out
	}
	return v
}

// decodeElements is the inverse of encodeElements on a nested list that
// is depth levels deep.
func decodeElements(v any, depth int, d *ndarray.DType) (any, error) {
	if depth > 0 {
		l, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected a list, got %T", ErrEnvelope, v)
		}
		out := make([]any, len(l))
		for i := range l {
			x, err := decodeElements(l[i], depth-1, d)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	}
	switch d.Kind {
	case ndarray.Complex64, ndarray.Complex128:
		pair, ok := v.([]any)
		if !ok || len(pair) != 2 {
			return v, nil
		}
		re, okR := number(pair[0])
		im, okI := number(pair[1])
		if !okR || !okI {
			return nil, fmt.Errorf("%w: bad complex pair %v", ErrEnvelope, pair)
		}
		return complex(re, im), nil
	case ndarray.Record:
		row, ok := v.([]any)
		if !ok || len(row) != len(d.Fields) {
			return nil, fmt.Errorf("%w: record %v does not fit %s", ErrEnvelope, v, d)
		}
		out := make(ndarray.Tuple, len(row))
		for i, f := range d.Fields {
			x, err := decodeElements(row[i], len(f.Shape), f.DType)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	}
	return v, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// buildArray converts decoded envelope data into an array of the header's
// dtype and shape.
func buildArray(dtype *ndarray.DType, shape []int, data any) (*ndarray.Array, error) {
	size := 1
	for _, n := range shape {
		size *= n
	}
	if size == 0 {
		return ndarray.New(dtype, shape...), nil
	}
	v, err := decodeElements(data, len(shape), dtype)
	if err != nil {
		return nil, err
	}
	arr, err := ndarray.Coerce(v, dtype, false)
	if err != nil {
		return nil, err
	}
	if !ndarray.SameShape(arr.Shape(), shape) {
		return nil, fmt.Errorf("%w: data has shape %v, header says %v", ErrEnvelope, arr.Shape(), shape)
	}
	return arr, nil
}

// asEnvelope reports whether m is an array envelope and returns its body.
func asEnvelope(m map[string]any) (map[string]any, bool) {
	if len(m) != 1 {
		return nil, false
	}
	body, ok := m[ArrayKey].(map[string]any)
	return body, ok
}

// FromEnvelope decodes v when it is an envelope already parsed into Go
// values, as produced by decoding MarshalValue output. An envelope without
// data yields a lazy handle whose payload cannot be loaded; its dtype and
// shape are still available. ok is false when v is not an envelope.
func FromEnvelope(v any) (arr any, ok bool, err error) {
	m, isMap := v.(map[string]any)
	if !isMap {
		return nil, false, nil
	}
	body, ok := asEnvelope(m)
	if !ok {
		return nil, false, nil
	}
	if _, hasData := body["data"]; hasData {
		arr, err = arrayFromBody(body)
		return arr, true, err
	}
	dtype, shape, err := header(body["datatype"], body["shape"])
	if err != nil {
		return nil, true, err
	}
	return ndarray.NewLazy(dtype, shape, func() (*ndarray.Array, error) {
		return nil, fmt.Errorf("%w: envelope has no data", ErrEnvelope)
	}), true, nil
}

// arrayFromBody decodes an envelope body already parsed into Go values.
func arrayFromBody(body map[string]any) (any, error) {
	dtype, shape, err := header(body["datatype"], body["shape"])
	if err != nil {
		return nil, err
	}
	arr, err := buildArray(dtype, shape, body["data"])
	if err != nil {
		return nil, err
	}
	return withUnits(arr, body["units"])
}

func header(rawDatatype, rawShape any) (*ndarray.DType, []int, error) {
	dtype, err := ndarray.FromDatatype(rawDatatype)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	list, ok := rawShape.([]any)
	if !ok && rawShape != nil {
		return nil, nil, fmt.Errorf("%w: shape %v", ErrEnvelope, rawShape)
	}
	shape := make([]int, len(list))
	for i, x := range list {
		f, ok := number(x)
		if !ok || f < 0 || f != float64(int(f)) {
			return nil, nil, fmt.Errorf("%w: shape %v", ErrEnvelope, rawShape)
		}
		shape[i] = int(f)
	}
	return dtype, shape, nil
}

// withUnits returns record arrays as tables carrying the given units.
func withUnits(arr *ndarray.Array, rawUnits any) (any, error) {
	if !arr.DType().IsRecord() {
		return arr, nil
	}
	t, err := ndarray.AsTable(arr)
	if err != nil {
		return nil, err
	}
	units, _ := rawUnits.(map[string]any)
	for name, u := range units {
		s, ok := u.(string)
		if !ok {
			continue
		}
		if err := t.SetUnit(name, s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
		}
	}
	return t, nil
}
