package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolvedRef reports a local $ref that names no definition.
var ErrUnresolvedRef = errors.New("schema: unresolved $ref")

var refPrefixes = []struct{ prefix, key string }{
	{"#/$defs/", "$defs"},
	{"#/definitions/", "definitions"},
}

// ResolveRefs expands local $ref pointers into $defs or definitions in
// place. Explicit keywords next to a $ref win over the referenced ones.
// References to other documents, and a reference met again inside its own
// expansion, are left untouched.
func ResolveRefs(root map[string]any) error {
	return resolveNode(root, root, map[string]bool{})
}

func resolveNode(node, root map[string]any, visiting map[string]bool) error {
	if ref, ok := node["$ref"].(string); ok && !visiting[ref] {
		base, local, err := lookupRef(ref, root)
		if err != nil {
			return err
		}
		if local {
			visiting[ref] = true
			defer delete(visiting, ref)
			delete(node, "$ref")
			for k, v := range deepCopyValue(base).(map[string]any) {
				if _, exists := node[k]; !exists {
					node[k] = v
				}
			}
		}
	}
	for key, raw := range node {
		switch key {
		case "$defs", "definitions":
			continue
		}
		if err := resolveValue(raw, root, visiting); err != nil {
			return err
		}
	}
	return nil
}

func resolveValue(v any, root map[string]any, visiting map[string]bool) error {
	switch t := v.(type) {
	case map[string]any:
		return resolveNode(t, root, visiting)
	case []any:
		for _, item := range t {
			if err := resolveValue(item, root, visiting); err != nil {
				return err
			}
		}
	}
	return nil
}

// lookupRef finds the definition a local pointer names. local is false for
// pointers into other documents.
func lookupRef(ref string, root map[string]any) (map[string]any, bool, error) {
	for _, p := range refPrefixes {
		if !strings.HasPrefix(ref, p.prefix) {
			continue
		}
		defs, _ := root[p.key].(map[string]any)
		base, ok := defs[strings.TrimPrefix(ref, p.prefix)].(map[string]any)
		if !ok {
			return nil, false, fmt.Errorf("%w: %s", ErrUnresolvedRef, ref)
		}
		return base, true, nil
	}
	return nil, false, nil
}
