package ndarray

import (
	"fmt"
	"slices"
)

// Lazy is an array handle whose payload is only decoded when forced. The
// dtype and shape are known up front so callers can size siblings without
// loading data.
type Lazy struct {
	dtype *DType
	shape []int
	load  func() (*Array, error)

	arr *Array
	err error
}

// NewLazy returns a handle that calls load on first Materialize.
func NewLazy(dtype *DType, shape []int, load func() (*Array, error)) *Lazy {
	return &Lazy{dtype: dtype, shape: append([]int{}, shape...), load: load}
}

func (l *Lazy) DType() *DType { return l.dtype }
func (l *Lazy) Shape() []int  { return append([]int{}, l.shape...) }

// Loaded reports whether the payload has been decoded.
func (l *Lazy) Loaded() bool { return l.load == nil }

// Materialize decodes the payload once and caches the outcome.
func (l *Lazy) Materialize() (*Array, error) {
	if l.load != nil {
		l.arr, l.err = l.load()
		l.load = nil
		if l.err == nil && !slices.Equal(l.arr.shape, l.shape) {
			l.err = fmt.Errorf("%w: lazy payload has shape %v, header says %v", ErrShape, l.arr.shape, l.shape)
			l.arr = nil
		}
	}
	return l.arr, l.err
}

func (l *Lazy) String() string {
	state := "pending"
	if l.Loaded() {
		state = "loaded"
	}
	return fmt.Sprintf("Lazy(%s, shape=%v, %s)", l.dtype, l.shape, state)
}
