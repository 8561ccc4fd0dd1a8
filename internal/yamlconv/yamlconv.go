// Package yamlconv normalizes YAML-decoded values into the JSON-like shapes
// the rest of the module works on.
package yamlconv

import "fmt"

// Normalize converts YAML-decoded values (which may contain map[any]any)
// into map[string]any / []any recursively. Non-string keys are rendered
// with fmt.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = Normalize(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			out[ks] = Normalize(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = Normalize(t[i])
		}
		return arr
	default:
		return v
	}
}

// Map normalizes v and returns it when the root is a mapping.
func Map(v any) (map[string]any, bool) {
	m, ok := Normalize(v).(map[string]any)
	return m, ok
}
