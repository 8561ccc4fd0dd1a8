package datanode

import (
	"errors"
	"fmt"

	"github.com/reoring/datanode/ndarray"
	"github.com/reoring/datanode/schema"
)

// MakeDefault synthesizes the value an absent attribute takes. Schemas that
// describe arrays (ndim, max_ndim or datatype) get a zero-filled array sized
// from the context; otherwise the schema default is copied, or an empty
// mapping or list is made for object and array types. The result is nil
// when nothing applies.
func MakeDefault(attr string, s schema.Schema, ctx Context) (any, error) {
	if s.Has(schema.KeyMaxNdim) || s.Has(schema.KeyNdim) || s.Has(schema.KeyDatatype) {
		return makeDefaultArray(attr, s, ctx)
	}
	if def, ok := s.Default(); ok {
		return schema.CopyValue(def), nil
	}
	switch schema.Type(s) {
	case "object":
		return map[string]any{}, nil
	case "array":
		return []any{}, nil
	}
	return nil, nil
}

func makeDefaultArray(attr string, s schema.Schema, ctx Context) (any, error) {
	var dtype *ndarray.DType
	if raw, ok := s[schema.KeyDatatype]; ok && raw != nil {
		var err error
		if dtype, err = ndarray.FromDatatype(raw); err != nil {
			return nil, err
		}
	}
	ndim, hasNdim := s.Int(schema.KeyNdim)
	if !hasNdim {
		ndim, hasNdim = s.Int(schema.KeyMaxNdim)
	}
	def, _ := s.Default()

	var shape []int
	primary := ctx.PrimaryArrayName()
	switch {
	case primary != "" && attr == primary:
		if hint := ctx.ShapeHint(); hint != nil {
			if err := checkNdimShape(hint, s, ""); err != nil {
				return nil, err
			}
			shape = append([]int{}, hint...)
		} else {
			shape = zeroShape(ndim, hasNdim)
		}
	case dtype.IsRecord():
		shape = zeroShape(ndim, hasNdim)
		def = nil
	default:
		pshape, err := primaryShape(ctx, primary)
		if err != nil {
			return nil, err
		}
		switch {
		case pshape == nil:
			shape = zeroShape(ndim, hasNdim)
		case !hasNdim:
			shape = pshape
		case attr == ZeroFrameName:
			if len(pshape) != 4 {
				return nil, fmt.Errorf("%w: to allocate %s the primary array must have 4 dimensions, but has %d",
					ErrShapeInference, ZeroFrameName, len(pshape))
			}
			shape = []int{pshape[0], pshape[2], pshape[3]}
		default:
			shape = trailing(pshape, ndim)
		}
	}

	arr := ndarray.New(dtype, shape...)
	if def != nil {
		if err := fillDefault(arr, def); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// primaryShape returns the shape of the context's primary array, nil when
// there is none.
func primaryShape(ctx Context, name string) ([]int, error) {
	if name == "" {
		return nil, nil
	}
	v, err := ctx.Get(name)
	if errors.Is(err, ErrNoAttribute) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if v = unwrap(v); v == nil {
		return nil, nil
	}
	shape, ok := ndarray.ShapeOf(v)
	if !ok {
		return nil, nil
	}
	return shape, nil
}

func zeroShape(ndim int, known bool) []int {
	if !known {
		return []int{0}
	}
	return make([]int, ndim)
}

// trailing returns the last n extents of shape, all of them when n exceeds
// its rank.
func trailing(shape []int, n int) []int {
	if n == 0 {
		return []int{}
	}
	if n >= len(shape) {
		return append([]int{}, shape...)
	}
	return append([]int{}, shape[len(shape)-n:]...)
}

func fillDefault(arr *ndarray.Array, def any) error {
	var err error
	switch d := def.(type) {
	case []any:
		if arr.DType().IsRecord() {
			err = arr.Fill(ndarray.Tuple(d))
			break
		}
		var src *ndarray.Array
		if src, err = ndarray.Coerce(d, arr.DType(), false); err == nil {
			err = arr.FillFrom(src)
		}
	default:
		err = arr.Fill(def)
	}
	if err != nil {
		return fmt.Errorf("%w: invalid default value %v for dtype %s: %v", ErrIncompatibleDefault, def, arr.DType(), err)
	}
	return nil
}
