package treeio

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/reoring/datanode/internal/yamlconv"
)

// DecodeYAML reads a YAML tree. Array envelopes are decoded eagerly.
func DecodeYAML(r io.Reader) (map[string]any, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("treeio: yaml: %w", err)
	}
	m, ok := yamlconv.Map(doc)
	if !ok {
		return nil, ErrNotTree
	}
	v, err := resolveEnvelopes(m)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func resolveEnvelopes(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		if body, ok := asEnvelope(t); ok {
			return arrayFromBody(body)
		}
		for k, vv := range t {
			rv, err := resolveEnvelopes(vv)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			t[k] = rv
		}
		return t, nil
	case []any:
		for i := range t {
			rv, err := resolveEnvelopes(t[i])
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			t[i] = rv
		}
		return t, nil
	}
	return v, nil
}
