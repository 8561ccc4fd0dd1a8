// Package model provides Model, the owner of a raw tree. A Model holds the
// tree, its schema and the flags nodes consult (validate-on-assignment,
// tolerance for invalid values, the primary array and its shape hint).
package model

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/ndarray"
	"github.com/reoring/datanode/schema"
	"github.com/reoring/datanode/treeio"
	"github.com/reoring/datanode/validate"
)

// Options configures a Model.
type Options struct {
	// ValidateOnAssignment runs the validator before every write.
	ValidateOnAssignment bool
	// PassInvalidValues commits changes the validator rejects.
	PassInvalidValues bool
	// StrictValidation makes the default validator return an Issues error
	// for rejected changes instead of logging a warning.
	StrictValidation bool
	// Shape is the explicit primary array shape. When set, the primary
	// array is allocated by New.
	Shape []int
	// PrimaryArray names the array sibling defaults are sized from. Empty
	// means the model has none.
	PrimaryArray string
	Logger       *slog.Logger
	// Validator overrides the schema checker used as the validation hook.
	Validator datanode.Validator
}

// DefaultOptions validates on assignment and uses "data" as the primary
// array.
func DefaultOptions() Options {
	return Options{ValidateOnAssignment: true, PrimaryArray: "data"}
}

// Model owns a raw tree and serves as the context of its nodes.
type Model struct {
	opts    Options
	schema  schema.Schema
	tree    map[string]any
	root    *datanode.ObjectNode
	checker *validate.Checker
}

var _ datanode.Context = (*Model)(nil)

// New returns an empty model for s.
func New(s schema.Schema, opts Options) (*Model, error) {
	return FromTree(nil, s, opts)
}

// FromTree wraps an existing raw tree. The model takes ownership of tree;
// a nil tree starts empty.
func FromTree(tree map[string]any, s schema.Schema, opts Options) (*Model, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if s == nil {
		s = schema.Schema{}
	}
	if tree == nil {
		tree = map[string]any{}
	}
	m := &Model{
		opts:    opts,
		schema:  s,
		tree:    tree,
		checker: validate.New(validate.Options{Strict: opts.StrictValidation, Logger: opts.Logger}),
	}
	m.root = datanode.NewObjectNode("", tree, s, m, nil)
	if len(opts.Shape) > 0 && opts.PrimaryArray != "" {
		if _, err := m.Get(opts.PrimaryArray); err != nil {
			return nil, fmt.Errorf("model: primary array %q: %w", opts.PrimaryArray, err)
		}
	}
	opts.Logger.Debug("model ready", "primary", opts.PrimaryArray, "shape", opts.Shape)
	return m, nil
}

func (m *Model) ValidateOnAssignment() bool { return m.opts.ValidateOnAssignment }
func (m *Model) PassInvalidValues() bool    { return m.opts.PassInvalidValues }
func (m *Model) ShapeHint() []int           { return slices.Clone(m.opts.Shape) }
func (m *Model) PrimaryArrayName() string   { return m.opts.PrimaryArray }
func (m *Model) Logger() *slog.Logger       { return m.opts.Logger }

// Validator returns the configured hook, or the schema checker.
func (m *Model) Validator() datanode.Validator {
	if m.opts.Validator != nil {
		return m.opts.Validator
	}
	return m.checker
}

// Root is the node over the whole tree.
func (m *Model) Root() *datanode.ObjectNode { return m.root }

// Tree returns the raw tree. Changes to it are seen by the model.
func (m *Model) Tree() map[string]any { return m.tree }

func (m *Model) Schema() schema.Schema { return m.schema }

// Get resolves a top-level attribute, synthesizing its default if absent.
func (m *Model) Get(name string) (any, error) { return m.root.Get(name) }

// Set casts and stores a top-level attribute.
func (m *Model) Set(name string, v any) error { return m.root.Set(name, v) }

// Delete removes a top-level attribute.
func (m *Model) Delete(name string) error { return m.root.Delete(name) }

// Has reports whether a top-level attribute is stored.
func (m *Model) Has(name string) bool { return m.root.Has(name) }

// GetPath resolves a dot-separated attribute path.
func (m *Model) GetPath(path string) (any, error) { return m.root.GetPath(path) }

// Paths lists the dot-joined paths of every stored leaf.
func (m *Model) Paths() []string { return m.root.Paths() }

// Items resolves every stored leaf through the node tree.
func (m *Model) Items() ([]datanode.Item, error) { return m.root.Items() }

// Shape returns the explicit shape hint, or the shape of the stored
// primary array. It is nil when neither exists.
func (m *Model) Shape() []int {
	if len(m.opts.Shape) > 0 {
		return m.ShapeHint()
	}
	if m.opts.PrimaryArray == "" {
		return nil
	}
	v, ok := m.tree[m.opts.PrimaryArray]
	if !ok {
		return nil
	}
	if shape, ok := ndarray.ShapeOf(v); ok {
		return shape
	}
	return nil
}

// Put stores value at path, creating intermediate containers. The value
// is stored raw, without casting or validation.
func (m *Model) Put(path []any, value any) error {
	return datanode.PutValue(path, value, m.tree)
}

// Update deep-merges other into the tree.
func (m *Model) Update(other map[string]any) {
	datanode.MergeTree(m.tree, other)
}

// Validate checks the whole tree against the schema.
func (m *Model) Validate() error {
	if iss := m.checker.Check(m.tree, m.schema); len(iss) > 0 {
		return iss
	}
	return nil
}

// EnsureArrays materializes each named attribute and stores it back
// through the validation gate, so absent arrays exist with their default
// shape afterwards.
func (m *Model) EnsureArrays(names ...string) error {
	for _, name := range names {
		v, err := m.Get(name)
		if err != nil {
			return err
		}
		if err := m.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the tree as an indented JSON snapshot.
func (m *Model) Save(w io.Writer) error {
	return treeio.Encode(w, m.tree)
}

// Open reads a JSON snapshot written by Save. Arrays stay undecoded until
// first cast.
func Open(r io.Reader, s schema.Schema, opts Options) (*Model, error) {
	tree, err := treeio.Decode(r, treeio.Options{RejectDuplicateKeys: true})
	if err != nil {
		return nil, fmt.Errorf("model: open: %w", err)
	}
	return FromTree(tree, s, opts)
}

// OpenYAML reads a YAML tree.
func OpenYAML(r io.Reader, s schema.Schema, opts Options) (*Model, error) {
	tree, err := treeio.DecodeYAML(r)
	if err != nil {
		return nil, fmt.Errorf("model: open: %w", err)
	}
	return FromTree(tree, s, opts)
}
