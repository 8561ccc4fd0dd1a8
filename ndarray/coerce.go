package ndarray

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Coerce converts v into an array of dtype. It is tolerant in the way a
// reader of loosely typed files needs:
//
//   - arrays of the same dtype are returned unchanged;
//   - arrays of another scalar dtype are converted element-wise;
//   - record arrays are matched to dtype by column name, case-insensitively,
//     adopting the source spelling; source columns unknown to dtype are an
//     error unless allowExtraColumns is set, in which case they are kept;
//   - nested slices (and tuples for record dtypes) are converted with their
//     shape inferred from the nesting.
//
// A nil dtype keeps the source dtype of arrays and infers one for slices.
func Coerce(v any, dtype *DType, allowExtraColumns bool) (*Array, error) {
	switch t := v.(type) {
	case *Array:
		return coerceArray(t, dtype, allowExtraColumns)
	case *Table:
		return coerceArray(t.arr, dtype, allowExtraColumns)
	case *Lazy:
		a, err := t.Materialize()
		if err != nil {
			return nil, err
		}
		return coerceArray(a, dtype, allowExtraColumns)
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedType)
	}
	shape, leaves, err := flatten(v, dtype.IsRecord())
	if err != nil {
		return nil, err
	}
	if dtype == nil {
		dtype, err = inferDType(leaves)
		if err != nil {
			return nil, err
		}
	}
	data := make([]any, len(leaves))
	for i, leaf := range leaves {
		ev, err := convertElement(leaf, dtype)
		if err != nil {
			return nil, err
		}
		data[i] = ev
	}
	return &Array{dtype: dtype, shape: shape, data: data}, nil
}

func coerceArray(a *Array, dtype *DType, allowExtra bool) (*Array, error) {
	if dtype == nil || a.dtype.Equal(dtype) {
		return a, nil
	}
	switch {
	case !a.dtype.IsRecord() && !dtype.IsRecord():
		data := make([]any, len(a.data))
		for i, el := range a.data {
			ev, err := convertElement(el, dtype)
			if err != nil {
				return nil, err
			}
			data[i] = ev
		}
		return &Array{dtype: dtype, shape: a.Shape(), data: data}, nil
	case a.dtype.IsRecord() && dtype.IsRecord():
		return remapRecords(a, dtype, allowExtra)
	default:
		return nil, fmt.Errorf("%w: cannot convert %s array to %s", ErrIncompatible, a.dtype, dtype)
	}
}

// remapRecords rebuilds a record array with the target field layout.
func remapRecords(a *Array, dtype *DType, allowExtra bool) (*Array, error) {
	var missing []string
	src := make([]int, 0, len(dtype.Fields)+len(a.dtype.Fields))
	fields := make([]Field, 0, len(src))
	used := make(map[int]bool, len(a.dtype.Fields))
	for _, f := range dtype.Fields {
		i, ok := a.dtype.FieldIndex(f.Name)
		if !ok {
			missing = append(missing, strings.ToLower(f.Name))
			continue
		}
		used[i] = true
		src = append(src, i)
		f.Name = a.dtype.Fields[i].Name
		fields = append(fields, f)
	}
	var extra []string
	for i, f := range a.dtype.Fields {
		if !used[i] {
			extra = append(extra, strings.ToLower(f.Name))
		}
	}
	if len(missing) > 0 || (len(extra) > 0 && !allowExtra) {
		return nil, fmt.Errorf("%w: column names don't match schema. Schema has %v. Data has %v", ErrIncompatible, missing, extra)
	}
	for i, f := range a.dtype.Fields {
		if !used[i] {
			src = append(src, i)
			fields = append(fields, f)
		}
	}
	out := RecordOf(fields...)
	data := make([]any, len(a.data))
	for r, el := range a.data {
		row := el.(Tuple)
		nt := make(Tuple, len(fields))
		for j, f := range fields {
			fv, err := convertField(row[src[j]], f)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			nt[j] = fv
		}
		data[r] = nt
	}
	return &Array{dtype: out, shape: a.Shape(), data: data}, nil
}

// flatten walks nested slices, returning the inferred shape and the leaves
// in row-major order. Tuples are leaves when records is set.
func flatten(v any, records bool) ([]int, []any, error) {
	var shape []int
	for x := unwrapArray(v); ; {
		rv, ok := sequence(x, records)
		if !ok {
			break
		}
		shape = append(shape, rv.Len())
		if rv.Len() == 0 {
			break
		}
		x = unwrapArray(rv.Index(0).Interface())
	}
	leaves := make([]any, 0, product(shape))
	var walk func(x any, depth int) error
	walk = func(x any, depth int) error {
		x = unwrapArray(x)
		rv, isSeq := sequence(x, records)
		if depth == len(shape) {
			if isSeq {
				return fmt.Errorf("%w: unexpected sequence at depth %d", ErrRagged, depth)
			}
			leaves = append(leaves, x)
			return nil
		}
		if !isSeq || rv.Len() != shape[depth] {
			return fmt.Errorf("%w: want length %d at depth %d", ErrRagged, shape[depth], depth)
		}
		for i := 0; i < rv.Len(); i++ {
			if err := walk(rv.Index(i).Interface(), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(v, 0); err != nil {
		return nil, nil, err
	}
	if shape == nil {
		shape = []int{}
	}
	return shape, leaves, nil
}

func unwrapArray(x any) any {
	switch t := x.(type) {
	case *Array:
		return t.ToList()
	case *Table:
		return t.arr.ToList()
	}
	return x
}

func sequence(x any, records bool) (reflect.Value, bool) {
	switch x.(type) {
	case nil, string, []byte:
		return reflect.Value{}, false
	case Tuple:
		if records {
			return reflect.Value{}, false
		}
	}
	rv := reflect.ValueOf(x)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return reflect.Value{}, false
	}
	return rv, true
}

func inferDType(leaves []any) (*DType, error) {
	kind := Invalid
	width := 0
	for _, l := range leaves {
		k := Invalid
		switch t := l.(type) {
		case bool:
			k = Bool
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			k = Int64
		case float32, float64:
			k = Float64
		case complex64, complex128:
			k = Complex128
		case string:
			k = UCS4
			width = max(width, len([]rune(t)))
		case interface{ Float64() (float64, error) }:
			k = Float64
		default:
			return nil, fmt.Errorf("%w: cannot infer dtype from %T", ErrUnsupportedType, l)
		}
		switch {
		case kind == Invalid:
			kind = k
		case kind == UCS4 || k == UCS4:
			if kind != k {
				return nil, fmt.Errorf("%w: mixed strings and numbers", ErrIncompatible)
			}
		default:
			kind = max(kind, k)
		}
	}
	if kind == Invalid {
		return Scalar(Float64), nil
	}
	if kind == UCS4 {
		return String(UCS4, width), nil
	}
	return Scalar(kind), nil
}

// ShapeOf reports the shape v would have as an array: the shape of arrays,
// tables and lazy handles, the inferred shape of nested slices, and the
// empty shape of scalars. Mappings have no shape.
func ShapeOf(v any) ([]int, bool) {
	switch t := v.(type) {
	case *Array:
		return t.Shape(), true
	case *Table:
		return t.arr.Shape(), true
	case *Lazy:
		return t.Shape(), true
	case map[string]any, nil:
		return nil, false
	}
	shape, _, err := flatten(v, true)
	if err != nil {
		return nil, false
	}
	return shape, true
}

// SameShape reports whether two shapes are equal.
func SameShape(a, b []int) bool { return slices.Equal(a, b) }
