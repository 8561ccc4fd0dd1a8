package ndarray

import (
	"fmt"
	"strconv"
)

var datatypeKinds = map[string]Kind{
	"bool8":      Bool,
	"int8":       Int8,
	"int16":      Int16,
	"int32":      Int32,
	"int64":      Int64,
	"uint8":      Uint8,
	"uint16":     Uint16,
	"uint32":     Uint32,
	"uint64":     Uint64,
	"float32":    Float32,
	"float64":    Float64,
	"complex64":  Complex64,
	"complex128": Complex128,
}

// FromDatatype translates a schema datatype descriptor into a DType.
//
// Accepted forms:
//
//	"float32"                                  scalar kind name
//	["ascii", 16] / ["ucs4", 16]               fixed-width string
//	[{name: a, datatype: int16, shape: [3]}]   record fields
func FromDatatype(datatype any) (*DType, error) {
	switch t := datatype.(type) {
	case string:
		k, ok := datatypeKinds[t]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDatatype, t)
		}
		return Scalar(k), nil
	case []any:
		if d, ok, err := stringDatatype(t); ok || err != nil {
			return d, err
		}
		fields := make([]Field, 0, len(t))
		for i, raw := range t {
			f, err := fieldFromDatatype(i, raw)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		return RecordOf(fields...), nil
	case []map[string]any:
		items := make([]any, len(t))
		for i := range t {
			items[i] = t[i]
		}
		return FromDatatype(items)
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnknownDatatype)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownDatatype, datatype)
	}
}

func stringDatatype(t []any) (*DType, bool, error) {
	if len(t) != 2 {
		return nil, false, nil
	}
	name, ok := t[0].(string)
	if !ok {
		return nil, false, nil
	}
	var k Kind
	switch name {
	case "ascii":
		k = ASCII
	case "ucs4":
		k = UCS4
	default:
		return nil, false, nil
	}
	n, ok := asInt(t[1])
	if !ok || n < 0 {
		return nil, true, fmt.Errorf("%w: bad %s length %v", ErrUnknownDatatype, name, t[1])
	}
	return String(k, n), true, nil
}

func fieldFromDatatype(i int, raw any) (Field, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		d, err := FromDatatype(raw)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: "f" + strconv.Itoa(i), DType: d}, nil
	}
	name, _ := m["name"].(string)
	if name == "" {
		name = "f" + strconv.Itoa(i)
	}
	d, err := FromDatatype(m["datatype"])
	if err != nil {
		return Field{}, fmt.Errorf("field %q: %w", name, err)
	}
	f := Field{Name: name, DType: d}
	if s, ok := m["shape"]; ok {
		shape, ok := asShape(s)
		if !ok {
			return Field{}, fmt.Errorf("%w: field %q has bad shape %v", ErrUnknownDatatype, name, s)
		}
		f.Shape = shape
	}
	return f, nil
}

// ToDatatype is the inverse of FromDatatype.
func ToDatatype(d *DType) any {
	switch d.Kind {
	case ASCII, UCS4:
		return []any{d.Kind.String(), d.Length}
	case Record:
		out := make([]any, len(d.Fields))
		for i, f := range d.Fields {
			m := map[string]any{"name": f.Name, "datatype": ToDatatype(f.DType)}
			if len(f.Shape) > 0 {
				shape := make([]any, len(f.Shape))
				for j, n := range f.Shape {
					shape[j] = n
				}
				m["shape"] = shape
			}
			out[i] = m
		}
		return out
	default:
		return d.Kind.String()
	}
}

func asShape(v any) ([]int, bool) {
	switch t := v.(type) {
	case []int:
		return append([]int{}, t...), true
	case []any:
		out := make([]int, len(t))
		for i := range t {
			n, ok := asInt(t[i])
			if !ok || n < 0 {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
