package validate

import (
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/ndarray"
	"github.com/reoring/datanode/schema"
	"github.com/reoring/datanode/treeio"
)

var arrayKeywordsMeta = jsonschema.MustCompileString("datanode:array-keywords.json", `{
	"properties": {
		"datatype": {"type": ["string", "array"]},
		"ndim": {"type": "integer", "minimum": 0},
		"max_ndim": {"type": "integer", "minimum": 0},
		"allow_extra_columns": {"type": "boolean"}
	}
}`)

// arrayKeywords compiles datatype, ndim and max_ndim.
type arrayKeywords struct{}

func (arrayKeywords) Compile(_ jsonschema.CompilerContext, m map[string]interface{}) (jsonschema.ExtSchema, error) {
	s := schema.Schema{}
	for _, key := range []string{schema.KeyDatatype, schema.KeyNdim, schema.KeyMaxNdim} {
		if v, ok := m[key]; ok {
			s[key] = v
		}
	}
	if len(s) == 0 {
		return nil, nil
	}
	if v, ok := m[schema.KeyAllowExtra]; ok {
		s[schema.KeyAllowExtra] = v
	}
	return arraySchema(s), nil
}

// arraySchema casts the instance the way a node does on assignment.
// Envelopes are decoded back into arrays first; lazy ones are checked
// against their header only.
type arraySchema schema.Schema

func (a arraySchema) Validate(ctx jsonschema.ValidationContext, v interface{}) error {
	s := schema.Schema(a)
	val, isEnvelope, err := treeio.FromEnvelope(v)
	if err != nil {
		return ctx.Error(schema.KeyDatatype, "%v", err)
	}
	if !isEnvelope {
		val = v
	}
	if lz, ok := val.(*ndarray.Lazy); ok {
		err = checkLazy(lz, s)
	} else {
		_, err = datanode.Cast(val, s)
	}
	var de *datanode.DimensionError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &de) && de.Max:
		return ctx.Error(schema.KeyMaxNdim, "%v", err)
	case errors.Is(err, datanode.ErrDimensionality):
		return ctx.Error(schema.KeyNdim, "%v", err)
	}
	return ctx.Error(schema.KeyDatatype, "%v", err)
}

func checkLazy(lz *ndarray.Lazy, s schema.Schema) error {
	if raw, ok := s[schema.KeyDatatype]; ok {
		want, err := ndarray.FromDatatype(raw)
		if err != nil {
			return err
		}
		if want.IsRecord() != lz.DType().IsRecord() {
			return fmt.Errorf("%w: %s payload for %s", ndarray.ErrIncompatible, lz.DType(), want)
		}
	}
	shape := lz.Shape()
	if n, ok := s.Int(schema.KeyNdim); ok && len(shape) != n {
		return &datanode.DimensionError{Expected: n, Got: len(shape)}
	}
	if n, ok := s.Int(schema.KeyMaxNdim); ok && len(shape) > n {
		return &datanode.DimensionError{Expected: n, Got: len(shape), Max: true}
	}
	return nil
}
