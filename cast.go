package datanode

import (
	"errors"
	"fmt"

	"github.com/reoring/datanode/ndarray"
	"github.com/reoring/datanode/schema"
)

// recordForm classifies a value that may hold records.
type recordForm int

const (
	notRecords    recordForm = iota
	rawTuples                // []ndarray.Tuple, or []any led by a Tuple
	typedRecords             // *ndarray.Array with a record dtype
	tabularExport            // *ndarray.Table
)

func classifyRecords(v any) recordForm {
	switch t := v.(type) {
	case []ndarray.Tuple:
		return rawTuples
	case []any:
		if len(t) > 0 {
			if _, ok := t[0].(ndarray.Tuple); ok {
				return rawTuples
			}
		}
	case *ndarray.Array:
		if t.DType().IsRecord() {
			return typedRecords
		}
	case *ndarray.Table:
		return tabularExport
	}
	return notRecords
}

// firstRecord returns the leading record of a record form and the number of
// records.
func firstRecord(v any, form recordForm) (ndarray.Tuple, int) {
	switch form {
	case rawTuples:
		switch t := v.(type) {
		case []ndarray.Tuple:
			if len(t) == 0 {
				return nil, 0
			}
			return t[0], len(t)
		case []any:
			rec, _ := t[0].(ndarray.Tuple)
			return rec, len(t)
		}
	case typedRecords, tabularExport:
		var arr *ndarray.Array
		if tb, ok := v.(*ndarray.Table); ok {
			arr = tb.Array()
		} else {
			arr = v.(*ndarray.Array)
		}
		if arr.Ndim() == 0 || arr.Len() == 0 {
			return nil, 0
		}
		idx := make([]int, arr.Ndim())
		el, err := arr.At(idx...)
		if err != nil {
			return nil, 0
		}
		rec, _ := el.(ndarray.Tuple)
		return rec, arr.Len()
	}
	return nil, 0
}

// isRecordSchema reports whether the datatype of s lists fields, at least
// one of them named.
func isRecordSchema(s schema.Schema) bool {
	fields, _ := s[schema.KeyDatatype].([]any)
	for _, raw := range fields {
		if f, ok := raw.(map[string]any); ok {
			if _, named := f[schema.KeyName]; named {
				return true
			}
		}
	}
	return false
}

// Cast converts v into the canonical representation s calls for. Values
// whose schema names a datatype become arrays of that element type, or
// tables for record datatypes. ndim and max_ndim are enforced on the
// result. A nil value passes through untouched.
func Cast(v any, s schema.Schema) (any, error) {
	v = unwrap(v)
	if v == nil {
		return nil, nil
	}
	if s.Has(schema.KeyDatatype) {
		var err error
		if v, err = castDatatype(v, s); err != nil {
			return nil, err
		}
	}
	if err := checkNdim(v, s, ""); err != nil {
		return nil, err
	}
	if a, ok := v.(*ndarray.Array); ok && a.Ndim() == 0 && !a.DType().IsRecord() {
		if el, ok := a.Item(); ok {
			return el, nil
		}
	}
	return v, nil
}

func castDatatype(v any, s schema.Schema) (any, error) {
	if lz, ok := v.(*ndarray.Lazy); ok {
		arr, err := lz.Materialize()
		if err != nil {
			return nil, err
		}
		v = arr
	}
	allowExtra := false
	if form := classifyRecords(v); isRecordSchema(s) && form != notRecords {
		if first, n := firstRecord(v, form); n > 0 {
			// Field shapes are recorded on a private copy.
			s = schema.DeepCopy(s)
			allowExtra = s.Bool(schema.KeyAllowExtra)
			fields, _ := s[schema.KeyDatatype].([]any)
			for i, raw := range fields {
				if i >= len(first) {
					break
				}
				f, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				shape, _ := ndarray.ShapeOf(first[i])
				name, _ := f[schema.KeyName].(string)
				if err := checkNdimShape(shape, schema.Schema(f), name); err != nil {
					return nil, err
				}
				if _, ok := f[schema.KeyShape]; !ok {
					f[schema.KeyShape] = append([]int{}, shape...)
				}
			}
		}
	}
	dtype, err := ndarray.FromDatatype(s[schema.KeyDatatype])
	if err != nil {
		return nil, err
	}
	var units []ndarray.Column
	if tb, ok := v.(*ndarray.Table); ok {
		units = tb.Columns()
	}
	arr, err := ndarray.Coerce(v, dtype, allowExtra)
	if err != nil {
		if errors.Is(err, ndarray.ErrUnsupportedType) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownFieldType, err)
		}
		return nil, err
	}
	if !dtype.IsRecord() {
		return arr, nil
	}
	if tb, ok := v.(*ndarray.Table); ok && tb.Array() == arr {
		return tb, nil
	}
	tb, err := ndarray.AsTable(arr)
	if err != nil {
		return nil, err
	}
	for _, c := range units {
		if c.Unit == "" {
			continue
		}
		if _, ok := tb.DType().FieldIndex(c.Name); !ok {
			continue
		}
		if err := tb.SetUnit(c.Name, c.Unit); err != nil {
			return nil, err
		}
	}
	return tb, nil
}

func checkNdim(v any, s schema.Schema, field string) error {
	if !s.Has(schema.KeyNdim) && !s.Has(schema.KeyMaxNdim) {
		return nil
	}
	shape, ok := ndarray.ShapeOf(v)
	if !ok {
		return fmt.Errorf("%w: %T has no shape", ErrDimensionality, v)
	}
	return checkNdimShape(shape, s, field)
}

func checkNdimShape(shape []int, s schema.Schema, field string) error {
	if n, ok := s.Int(schema.KeyNdim); ok && len(shape) != n {
		return &DimensionError{Expected: n, Got: len(shape), Field: field}
	}
	if n, ok := s.Int(schema.KeyMaxNdim); ok && len(shape) > n {
		return &DimensionError{Expected: n, Got: len(shape), Max: true, Field: field}
	}
	return nil
}
