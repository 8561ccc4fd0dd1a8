package ndarray

import "errors"

var (
	// ErrUnknownDatatype reports a datatype descriptor that maps to no DType.
	ErrUnknownDatatype = errors.New("ndarray: unknown datatype")
	// ErrIncompatible reports a value that cannot be converted to the target dtype.
	ErrIncompatible = errors.New("ndarray: incompatible value")
	// ErrUnsupportedType reports a Go value no conversion handles.
	ErrUnsupportedType = errors.New("ndarray: unsupported value type")
	// ErrRagged reports nested sequences with inconsistent lengths.
	ErrRagged = errors.New("ndarray: ragged nested sequence")
	// ErrShape reports an index or shape outside the array bounds.
	ErrShape = errors.New("ndarray: shape mismatch")
)
