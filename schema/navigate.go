package schema

// Mixed is returned by Type when combined subschemas disagree on type.
const Mixed = "mixed"

// ForProperty returns the subschema describing property attr of s. When s
// has no direct entry, each allOf then anyOf branch is searched depth-first
// and the first non-empty match wins. The result is empty when nothing
// describes attr.
func ForProperty(s Schema, attr string) Schema {
	if sub, ok := Of(s.Properties()[attr]); ok {
		return sub
	}
	for _, combiner := range []string{KeyAllOf, KeyAnyOf} {
		for _, branch := range s.Subschemas(combiner) {
			if sub := ForProperty(branch, attr); !sub.IsEmpty() {
				return sub
			}
		}
	}
	return Schema{}
}

// ForIndex returns the subschema for list element i. A single items schema
// applies to every index; a per-index list yields an empty schema past its
// end.
func ForIndex(s Schema, i int) Schema {
	switch items := s[KeyItems].(type) {
	case []any:
		if i < 0 || i >= len(items) {
			return Schema{}
		}
		if sub, ok := Of(items[i]); ok {
			return sub
		}
		return Schema{}
	default:
		if sub, ok := Of(items); ok {
			return sub
		}
		return Schema{}
	}
}

// ItemSchema returns the single items schema of a list schema.
func ItemSchema(s Schema) (Schema, bool) {
	return Of(s[KeyItems])
}

// WalkFunc is called for every visited subschema with its path from the
// root and the combiner keyword it was reached through ("" for none).
// Returning true stops descent below that subschema.
type WalkFunc func(sub Schema, path []any, combiner string) bool

// Walk visits s and its subschemas depth-first: allOf and not branches,
// anyOf and oneOf branches, then the properties of object schemas and the
// items of array schemas.
func Walk(s Schema, fn WalkFunc) {
	walk(s, nil, "", fn)
}

func walk(s Schema, path []any, combiner string, fn WalkFunc) {
	if fn(s, path, combiner) {
		return
	}
	for _, c := range []string{KeyAllOf, KeyNot} {
		for _, sub := range combinerBranches(s, c) {
			walk(sub, path, c, fn)
		}
	}
	for _, c := range []string{KeyAnyOf, KeyOneOf} {
		for i, sub := range combinerBranches(s, c) {
			walk(sub, appendPath(path, i), c, fn)
		}
	}
	switch s.String(KeyType) {
	case "object":
		for key, raw := range s.Properties() {
			if sub, ok := Of(raw); ok {
				walk(sub, appendPath(path, key), combiner, fn)
			}
		}
	case "array":
		switch items := s[KeyItems].(type) {
		case []any:
			for i, raw := range items {
				if sub, ok := Of(raw); ok {
					walk(sub, appendPath(path, i), combiner, fn)
				}
			}
		default:
			if sub, ok := Of(items); ok && len(sub) > 0 {
				walk(sub, appendPath(path, KeyItems), combiner, fn)
			}
		}
	}
}

// combinerBranches accepts both list-valued combiners and the single
// schema form "not" takes.
func combinerBranches(s Schema, key string) []Schema {
	if sub, ok := Of(s[key]); ok {
		return []Schema{sub}
	}
	return s.Subschemas(key)
}

func appendPath(path []any, seg any) []any {
	out := make([]any, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

// Type returns the type a schema describes. Types are collected from s and,
// through combiners, from its branches; descent stops at subschemas that
// carry no combiner of their own. A single agreed type is returned, Mixed
// when they differ, and "" when no type keyword was found.
func Type(s Schema) string {
	var types []string
	Walk(s, func(sub Schema, _ []any, _ string) bool {
		if t := sub.String(KeyType); t != "" {
			types = append(types, t)
		}
		return !sub.HasCombiner()
	})
	out := ""
	for _, t := range types {
		switch {
		case out == "":
			out = t
		case out != t:
			return Mixed
		}
	}
	return out
}
