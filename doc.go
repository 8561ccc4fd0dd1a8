package datanode

// Package datanode provides:
//
// - Schema-aware views (ObjectNode/ListNode) over a plain raw tree of map[string]any and []any
// - Default synthesis for absent attributes, including arrays sized from the primary array
// - Casting of raw values into typed arrays and record tables (Cast)
// - Path utilities that build (PutValue) and deep-merge (MergeTree) raw trees
// - A stable error model via sentinel kinds and Issues (JSON Pointer, code, message)
//
// Design policy:
// - The raw tree is the single source of truth; nodes are short-lived views that write through.
// - Schema navigation lives under schema/, array storage under ndarray/, the hook under validate/.
// - The owning context (flags, shape hint, primary array) is model.Model; the CLI is cmd/datanode.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	opts := model.DefaultOptions()
//	opts.Shape = []int{2, 3, 4, 5}
//	m, err := model.New(s, opts)
//	data, err := m.Get("data")        // zero-filled 4-D array
//	zf, err := m.Get("zeroframe")     // shape (2, 4, 5)
//	err = m.Set("meta", map[string]any{"exposure": map[string]any{"time": 1.5}})
//	for _, p := range m.Root().Paths() {
//		fmt.Println(p)
//	}
