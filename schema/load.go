package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reoring/datanode/internal/yamlconv"
)

// ErrNotSchema reports a document whose root is not a mapping.
var ErrNotSchema = errors.New("schema: document root is not a mapping")

// Load decodes a YAML (or JSON) schema document and resolves its local
// $ref pointers.
func Load(data []byte) (Schema, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads one schema document from r.
func Decode(r io.Reader) (Schema, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrNotSchema)
		}
		return nil, fmt.Errorf("schema: decode: %w", err)
	}
	root, ok := yamlconv.Map(doc)
	if !ok {
		return nil, ErrNotSchema
	}
	if err := ResolveRefs(root); err != nil {
		return nil, err
	}
	return Schema(root), nil
}

// LoadFile reads a schema document from disk.
func LoadFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
