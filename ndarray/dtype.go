package ndarray

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies the storage kind of an array element.
type Kind int

const (
	Invalid Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Complex64
	Complex128
	ASCII // fixed-width byte string, stored as string
	UCS4  // fixed-width unicode string, stored as string
	Record
)

var kindNames = map[Kind]string{
	Bool:       "bool8",
	Int8:       "int8",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	Uint8:      "uint8",
	Uint16:     "uint16",
	Uint32:     "uint32",
	Uint64:     "uint64",
	Float32:    "float32",
	Float64:    "float64",
	Complex64:  "complex64",
	Complex128: "complex128",
	ASCII:      "ascii",
	UCS4:       "ucs4",
	Record:     "record",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k Kind) IsInteger() bool { return k >= Int8 && k <= Uint64 }

// IsNumeric reports whether k holds numbers (booleans included).
func (k Kind) IsNumeric() bool { return k >= Bool && k <= Complex128 }

// Field is one named column of a record dtype. Shape is non-empty for
// sub-array columns.
type Field struct {
	Name  string
	DType *DType
	Shape []int
}

// DType describes an array element. Length is the character width of
// string kinds; Fields is set only for Record.
type DType struct {
	Kind   Kind
	Length int
	Fields []Field
}

// Scalar returns the dtype of a plain scalar kind.
func Scalar(k Kind) *DType { return &DType{Kind: k} }

// String returns a fixed-width string dtype.
func String(k Kind, length int) *DType { return &DType{Kind: k, Length: length} }

// RecordOf builds a record dtype from fields.
func RecordOf(fields ...Field) *DType {
	return &DType{Kind: Record, Fields: fields}
}

// IsRecord reports whether d has named fields.
func (d *DType) IsRecord() bool { return d != nil && d.Kind == Record }

// Names returns the field names of a record dtype, nil otherwise.
func (d *DType) Names() []string {
	if !d.IsRecord() {
		return nil
	}
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Name
	}
	return out
}

// FieldIndex looks a field up by name. An exact match wins over a
// case-insensitive one.
func (d *DType) FieldIndex(name string) (int, bool) {
	if !d.IsRecord() {
		return -1, false
	}
	for i, f := range d.Fields {
		if f.Name == name {
			return i, true
		}
	}
	for i, f := range d.Fields {
		if strings.EqualFold(f.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// Equal reports structural equality of two dtypes.
func (d *DType) Equal(o *DType) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Kind != o.Kind || d.Length != o.Length || len(d.Fields) != len(o.Fields) {
		return false
	}
	for i := range d.Fields {
		a, b := d.Fields[i], o.Fields[i]
		if a.Name != b.Name || !slices.Equal(a.Shape, b.Shape) || !a.DType.Equal(b.DType) {
			return false
		}
	}
	return true
}

func (d *DType) String() string {
	if d == nil {
		return "<nil>"
	}
	switch d.Kind {
	case ASCII, UCS4:
		return fmt.Sprintf("%s[%d]", d.Kind, d.Length)
	case Record:
		b := &strings.Builder{}
		b.WriteString("{")
		for i, f := range d.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: %s", f.Name, f.DType)
			if len(f.Shape) > 0 {
				fmt.Fprintf(b, "%v", f.Shape)
			}
		}
		b.WriteString("}")
		return b.String()
	default:
		return d.Kind.String()
	}
}

// Zero returns the zero element of d. Record zeros are tuples whose
// sub-array columns are zero-filled arrays.
func (d *DType) Zero() any {
	switch d.Kind {
	case Bool:
		return false
	case Int8:
		return int8(0)
	case Int16:
		return int16(0)
	case Int32:
		return int32(0)
	case Int64:
		return int64(0)
	case Uint8:
		return uint8(0)
	case Uint16:
		return uint16(0)
	case Uint32:
		return uint32(0)
	case Uint64:
		return uint64(0)
	case Float32:
		return float32(0)
	case Float64:
		return float64(0)
	case Complex64:
		return complex64(0)
	case Complex128:
		return complex128(0)
	case ASCII, UCS4:
		return ""
	case Record:
		t := make(Tuple, len(d.Fields))
		for i, f := range d.Fields {
			if len(f.Shape) > 0 {
				t[i] = New(f.DType, f.Shape...)
			} else {
				t[i] = f.DType.Zero()
			}
		}
		return t
	}
	return nil
}
