// Package schema holds the JSON-Schema-like documents that describe a raw
// tree, and the pure functions that navigate them.
//
// A Schema is never mutated while it is being traversed. Callers that need
// to adjust one (for instance to record an inferred column shape) take a
// DeepCopy first.
package schema

// Schema is one node of a schema document.
type Schema map[string]any

// Keywords understood by the navigator and the default synthesizer.
const (
	KeyType         = "type"
	KeyProperties   = "properties"
	KeyItems        = "items"
	KeyDefault      = "default"
	KeyDatatype     = "datatype"
	KeyNdim         = "ndim"
	KeyMaxNdim      = "max_ndim"
	KeyAllOf        = "allOf"
	KeyAnyOf        = "anyOf"
	KeyOneOf        = "oneOf"
	KeyNot          = "not"
	KeyAllowExtra   = "allow_extra_columns"
	KeyShape        = "shape"
	KeyName         = "name"
	KeyFitsRequired = "fits_required"
)

// Of returns v as a Schema when it is a mapping.
func Of(v any) (Schema, bool) {
	switch t := v.(type) {
	case Schema:
		return t, true
	case map[string]any:
		return Schema(t), true
	}
	return nil, false
}

// IsEmpty reports whether s has no keywords.
func (s Schema) IsEmpty() bool { return len(s) == 0 }

// Has reports whether the keyword is present.
func (s Schema) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// String returns a string keyword, "" when absent.
func (s Schema) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool returns a boolean keyword.
func (s Schema) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Int returns an integral keyword such as ndim.
func (s Schema) Int(key string) (int, bool) {
	switch n := s[key].(type) {
	case int:
		return n, true
	case int64:
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

// Default returns the default keyword.
func (s Schema) Default() (any, bool) {
	v, ok := s[KeyDefault]
	return v, ok
}

// Properties returns the properties mapping, nil when absent.
func (s Schema) Properties() map[string]any {
	switch p := s[KeyProperties].(type) {
	case map[string]any:
		return p
	case Schema:
		return p
	}
	return nil
}

// Subschemas returns the entries of a combiner keyword that are schemas.
func (s Schema) Subschemas(key string) []Schema {
	list, _ := s[key].([]any)
	out := make([]Schema, 0, len(list))
	for _, raw := range list {
		if sub, ok := Of(raw); ok {
			out = append(out, sub)
		}
	}
	return out
}

// HasCombiner reports whether s joins subschemas with allOf or anyOf.
func (s Schema) HasCombiner() bool { return s.Has(KeyAllOf) || s.Has(KeyAnyOf) }

// DeepCopy copies every nested mapping and sequence of s.
func DeepCopy(s Schema) Schema {
	if s == nil {
		return nil
	}
	return Schema(deepCopyValue(map[string]any(s)).(map[string]any))
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCopyValue(vv)
		}
		return out
	case Schema:
		return deepCopyValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = deepCopyValue(t[i])
		}
		return out
	case []int:
		return append([]int{}, t...)
	default:
		return v
	}
}

// CopyValue deep-copies the mappings and sequences of a schema value such
// as a default.
func CopyValue(v any) any { return deepCopyValue(v) }
