package ndarray

import (
	"fmt"
	"reflect"
	"slices"
)

// Tuple is one record: a value per field. Sub-array fields hold *Array.
// A slice of tuples is the precursor form of a record array.
type Tuple []any

// Array is a dense, row-major, multi-dimensional array with a fixed dtype.
type Array struct {
	dtype *DType
	shape []int
	data  []any
}

// New allocates a zero-filled array. A nil dtype means float64.
func New(dtype *DType, shape ...int) *Array {
	if dtype == nil {
		dtype = Scalar(Float64)
	}
	shape = append([]int{}, shape...)
	n := product(shape)
	data := make([]any, n)
	for i := range data {
		data[i] = dtype.Zero()
	}
	return &Array{dtype: dtype, shape: shape, data: data}
}

// FromFlat builds an array over already converted elements. The caller
// hands over ownership of data.
func FromFlat(dtype *DType, shape []int, data []any) (*Array, error) {
	if dtype == nil {
		dtype = Scalar(Float64)
	}
	if product(shape) != len(data) {
		return nil, fmt.Errorf("%w: %d elements for shape %v", ErrShape, len(data), shape)
	}
	return &Array{dtype: dtype, shape: append([]int{}, shape...), data: data}, nil
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func (a *Array) DType() *DType { return a.dtype }
func (a *Array) Shape() []int  { return append([]int{}, a.shape...) }
func (a *Array) Ndim() int     { return len(a.shape) }
func (a *Array) Size() int     { return len(a.data) }

// Len is the extent of the first axis, 0 for a scalar array.
func (a *Array) Len() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

func (a *Array) offset(idx []int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("%w: %d indices for %d dimensions", ErrShape, len(idx), len(a.shape))
	}
	off := 0
	for i, x := range idx {
		if x < 0 {
			x += a.shape[i]
		}
		if x < 0 || x >= a.shape[i] {
			return 0, fmt.Errorf("%w: index %d out of range for axis %d with size %d", ErrShape, idx[i], i, a.shape[i])
		}
		off = off*a.shape[i] + x
	}
	return off, nil
}

// At returns the element at idx.
func (a *Array) At(idx ...int) (any, error) {
	off, err := a.offset(idx)
	if err != nil {
		return nil, err
	}
	return a.data[off], nil
}

// SetAt converts v to the array dtype and stores it at idx.
func (a *Array) SetAt(v any, idx ...int) error {
	off, err := a.offset(idx)
	if err != nil {
		return err
	}
	ev, err := convertElement(v, a.dtype)
	if err != nil {
		return err
	}
	a.data[off] = ev
	return nil
}

// Flat returns a copy of the elements in row-major order.
func (a *Array) Flat() []any { return append([]any{}, a.data...) }

// Item returns the only element of a one-element array.
func (a *Array) Item() (any, bool) {
	if len(a.data) != 1 {
		return nil, false
	}
	return a.data[0], true
}

// Fill broadcasts a single value over every element.
func (a *Array) Fill(v any) error {
	ev, err := convertElement(v, a.dtype)
	if err != nil {
		return err
	}
	for i := range a.data {
		a.data[i] = cloneElement(ev)
	}
	return nil
}

// FillFrom tiles src over the trailing axes of a. src must be a scalar
// array or match a's trailing shape.
func (a *Array) FillFrom(src *Array) error {
	if src.Size() == 1 {
		return a.Fill(src.data[0])
	}
	k := src.Ndim()
	if k > a.Ndim() || !slices.Equal(src.shape, a.shape[a.Ndim()-k:]) {
		return fmt.Errorf("%w: cannot broadcast %v into %v", ErrShape, src.shape, a.shape)
	}
	conv, err := Coerce(src, a.dtype, false)
	if err != nil {
		return err
	}
	n := conv.Size()
	for i := range a.data {
		a.data[i] = cloneElement(conv.data[i%n])
	}
	return nil
}

// Field extracts the column name of a record array as a new array whose
// shape is the record shape followed by the field shape.
func (a *Array) Field(name string) (*Array, error) {
	i, ok := a.dtype.FieldIndex(name)
	if !ok {
		return nil, fmt.Errorf("%w: no field %q in %s", ErrIncompatible, name, a.dtype)
	}
	f := a.dtype.Fields[i]
	shape := append(a.Shape(), f.Shape...)
	out := make([]any, 0, product(shape))
	for _, el := range a.data {
		v := el.(Tuple)[i]
		if sub, ok := v.(*Array); ok {
			out = append(out, sub.data...)
			continue
		}
		out = append(out, v)
	}
	return &Array{dtype: f.DType, shape: shape, data: out}, nil
}

// Clone deep-copies the array.
func (a *Array) Clone() *Array {
	data := make([]any, len(a.data))
	for i, el := range a.data {
		data[i] = cloneElement(el)
	}
	return &Array{dtype: a.dtype, shape: a.Shape(), data: data}
}

func cloneElement(v any) any {
	switch t := v.(type) {
	case Tuple:
		out := make(Tuple, len(t))
		for i := range t {
			out[i] = cloneElement(t[i])
		}
		return out
	case *Array:
		return t.Clone()
	}
	return v
}

// Equal reports whether both arrays have the same dtype, shape and elements.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !a.dtype.Equal(b.dtype) || !slices.Equal(a.shape, b.shape) {
		return false
	}
	for i := range a.data {
		if !elementsEqual(a.data[i], b.data[i]) {
			return false
		}
	}
	return true
}

func elementsEqual(x, y any) bool {
	switch tx := x.(type) {
	case *Array:
		ty, ok := y.(*Array)
		return ok && tx.Equal(ty)
	case Tuple:
		ty, ok := y.(Tuple)
		if !ok || len(tx) != len(ty) {
			return false
		}
		for i := range tx {
			if !elementsEqual(tx[i], ty[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(x, y)
}

// ToList returns the elements as nested []any following the shape.
func (a *Array) ToList() any {
	if len(a.shape) == 0 {
		if len(a.data) == 0 {
			return nil
		}
		return a.data[0]
	}
	var build func(dim, off int) ([]any, int)
	build = func(dim, off int) ([]any, int) {
		out := make([]any, a.shape[dim])
		for i := range out {
			if dim == len(a.shape)-1 {
				out[i] = a.data[off]
				off++
				continue
			}
			out[i], off = build(dim+1, off)
		}
		return out, off
	}
	out, _ := build(0, 0)
	return out
}

func (a *Array) String() string {
	return fmt.Sprintf("Array(%s, shape=%v)", a.dtype, a.shape)
}
