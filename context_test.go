package datanode_test

import (
	"log/slog"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/schema"
)

// hookCall records one validation hook invocation.
type hookCall struct {
	name     string
	instance any
}

// testCtx is a minimal owner for a raw tree.
type testCtx struct {
	validate bool
	pass     bool
	shape    []int
	primary  string
	root     *datanode.ObjectNode
	accept   func(name string, instance any) bool
	fail     error
	calls    []hookCall
}

func newTestTree(s schema.Schema, raw map[string]any) (*testCtx, *datanode.ObjectNode) {
	c := &testCtx{primary: "data"}
	c.root = datanode.NewObjectNode("", raw, s, c, nil)
	return c, c.root
}

func (c *testCtx) ValidateOnAssignment() bool { return c.validate }
func (c *testCtx) PassInvalidValues() bool    { return c.pass }
func (c *testCtx) ShapeHint() []int           { return c.shape }
func (c *testCtx) PrimaryArrayName() string   { return c.primary }
func (c *testCtx) Logger() *slog.Logger       { return nil }

func (c *testCtx) Get(name string) (any, error) { return c.root.Get(name) }

func (c *testCtx) Validator() datanode.Validator {
	return datanode.ValidatorFunc(func(name string, instance any, _ schema.Schema, _ datanode.Context) (bool, error) {
		c.calls = append(c.calls, hookCall{name: name, instance: instance})
		if c.fail != nil {
			return false, c.fail
		}
		if c.accept == nil {
			return true, nil
		}
		return c.accept(name, instance), nil
	})
}
