package ndarray

import "fmt"

// Column describes one column of a Table.
type Column struct {
	Name  string
	DType *DType
	Shape []int
	Unit  string
}

// Table is the tabular export form of a record array: the records plus
// per-column metadata such as physical units.
type Table struct {
	arr   *Array
	units map[string]string
}

// AsTable wraps a record array as a Table. A Table is returned unchanged.
func AsTable(v any) (*Table, error) {
	switch t := v.(type) {
	case *Table:
		return t, nil
	case *Array:
		if !t.dtype.IsRecord() {
			return nil, fmt.Errorf("%w: %s is not a record dtype", ErrIncompatible, t.dtype)
		}
		return &Table{arr: t, units: map[string]string{}}, nil
	}
	return nil, fmt.Errorf("%w: %T is not a record array", ErrUnsupportedType, v)
}

func (t *Table) Array() *Array   { return t.arr }
func (t *Table) DType() *DType   { return t.arr.dtype }
func (t *Table) Shape() []int    { return t.arr.Shape() }
func (t *Table) Len() int        { return t.arr.Len() }
func (t *Table) Names() []string { return t.arr.dtype.Names() }

// Columns lists the columns in field order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.arr.dtype.Fields))
	for i, f := range t.arr.dtype.Fields {
		out[i] = Column{Name: f.Name, DType: f.DType, Shape: append([]int{}, f.Shape...), Unit: t.units[f.Name]}
	}
	return out
}

// Unit returns the unit of a column, "" when unset.
func (t *Table) Unit(name string) string {
	if i, ok := t.arr.dtype.FieldIndex(name); ok {
		return t.units[t.arr.dtype.Fields[i].Name]
	}
	return ""
}

// SetUnit records the unit of an existing column.
func (t *Table) SetUnit(name, unit string) error {
	i, ok := t.arr.dtype.FieldIndex(name)
	if !ok {
		return fmt.Errorf("%w: no column %q", ErrIncompatible, name)
	}
	t.units[t.arr.dtype.Fields[i].Name] = unit
	return nil
}

// Column extracts one column as an array.
func (t *Table) Column(name string) (*Array, error) { return t.arr.Field(name) }

// Row returns the i-th record of a one-dimensional table.
func (t *Table) Row(i int) (Tuple, error) {
	v, err := t.arr.At(i)
	if err != nil {
		return nil, err
	}
	return v.(Tuple), nil
}

// Equal compares records and units.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !t.arr.Equal(o.arr) {
		return false
	}
	for _, name := range t.Names() {
		if t.units[name] != o.units[name] {
			return false
		}
	}
	return true
}

func (t *Table) String() string {
	return fmt.Sprintf("Table(%s, rows=%d)", t.arr.dtype, t.arr.Len())
}

// Clone copies the records and the unit metadata.
func (t *Table) Clone() *Table {
	units := make(map[string]string, len(t.units))
	for k, v := range t.units {
		units[k] = v
	}
	return &Table{arr: t.arr.Clone(), units: units}
}
