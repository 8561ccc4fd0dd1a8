package ndarray

import (
	"fmt"
	"math"
	"slices"
	"unicode/utf8"
)

// convertElement converts one leaf value to the Go representation of d.
// Leaves of a Go type no dtype can hold are ErrUnsupportedType; known
// kinds that fail to convert are ErrIncompatible.
func convertElement(v any, d *DType) (any, error) {
	if !knownLeaf(v) {
		return nil, fmt.Errorf("%w: cannot convert %T to %s", ErrUnsupportedType, v, d)
	}
	switch d.Kind {
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		f, ok := toFloat(v)
		if !ok {
			return nil, incompatible(v, d)
		}
		return f != 0, nil
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		return convertInteger(v, d)
	case Float32, Float64:
		f, ok := toFloat(v)
		if !ok {
			return nil, incompatible(v, d)
		}
		if d.Kind == Float32 {
			return float32(f), nil
		}
		return f, nil
	case Complex64, Complex128:
		var c complex128
		switch t := v.(type) {
		case complex128:
			c = t
		case complex64:
			c = complex128(t)
		default:
			f, ok := toFloat(v)
			if !ok {
				return nil, incompatible(v, d)
			}
			c = complex(f, 0)
		}
		if d.Kind == Complex64 {
			return complex64(c), nil
		}
		return c, nil
	case ASCII, UCS4:
		return convertString(v, d)
	case Record:
		return convertTuple(v, d)
	}
	return nil, fmt.Errorf("%w: dtype %s", ErrUnsupportedType, d)
}

// knownLeaf reports whether v is a value some dtype can represent.
func knownLeaf(v any) bool {
	switch v.(type) {
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, complex64, complex128, string, []byte, Tuple, []any,
		*Array, *Table:
		return true
	case interface{ Float64() (float64, error) }, interface{ Int64() (int64, error) }:
		return true
	}
	return false
}

func incompatible(v any, d *DType) error {
	return fmt.Errorf("%w: cannot convert %v (%T) to %s", ErrIncompatible, v, v, d)
}

func convertInteger(v any, d *DType) (any, error) {
	var i int64
	switch t := v.(type) {
	case uint64:
		if d.Kind == Uint64 {
			return t, nil
		}
		i = int64(t)
	default:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, incompatible(v, d)
		}
		if n, ok := toInt64(v); ok {
			i = n
		} else {
			i = int64(f)
		}
	}
	switch d.Kind {
	case Int8:
		return int8(i), nil
	case Int16:
		return int16(i), nil
	case Int32:
		return int32(i), nil
	case Int64:
		return i, nil
	case Uint8:
		return uint8(i), nil
	case Uint16:
		return uint16(i), nil
	case Uint32:
		return uint32(i), nil
	default:
		return uint64(i), nil
	}
}

func convertString(v any, d *DType) (any, error) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return nil, incompatible(v, d)
	}
	if d.Kind == ASCII {
		for i := 0; i < len(s); i++ {
			if s[i] >= utf8.RuneSelf {
				return nil, fmt.Errorf("%w: non-ascii string %q", ErrIncompatible, s)
			}
		}
		if d.Length > 0 && len(s) > d.Length {
			s = s[:d.Length]
		}
		return s, nil
	}
	if d.Length > 0 && utf8.RuneCountInString(s) > d.Length {
		r := []rune(s)
		s = string(r[:d.Length])
	}
	return s, nil
}

func convertTuple(v any, d *DType) (any, error) {
	var in []any
	switch t := v.(type) {
	case Tuple:
		in = t
	case []any:
		in = t
	default:
		return nil, incompatible(v, d)
	}
	if len(in) != len(d.Fields) {
		return nil, fmt.Errorf("%w: record has %d values, dtype has %d fields", ErrIncompatible, len(in), len(d.Fields))
	}
	out := make(Tuple, len(in))
	for i, f := range d.Fields {
		fv, err := convertField(in[i], f)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		out[i] = fv
	}
	return out, nil
}

func convertField(v any, f Field) (any, error) {
	if len(f.Shape) == 0 {
		return convertElement(v, f.DType)
	}
	sub, err := Coerce(v, f.DType, false)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(sub.shape, f.Shape) {
		if sub.Size() == 1 {
			full := New(f.DType, f.Shape...)
			if err := full.Fill(sub.data[0]); err != nil {
				return nil, err
			}
			return full, nil
		}
		return nil, fmt.Errorf("%w: field value shape %v, want %v", ErrShape, sub.shape, f.Shape)
	}
	if sub == v {
		sub = sub.Clone()
	}
	return sub, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
