package datanode

import (
	"log/slog"

	"github.com/reoring/datanode/schema"
)

// ZeroFrameName is the companion array sized from a 4-D primary array with
// its second axis dropped.
const ZeroFrameName = "zeroframe"

// Context is the owner of a raw tree. Nodes consult it for validation
// flags, shape hints and the primary array.
type Context interface {
	// ValidateOnAssignment gates writes and list deletes on the validator.
	ValidateOnAssignment() bool
	// PassInvalidValues lets deletes proceed even when the validator
	// rejects them.
	PassInvalidValues() bool
	// ShapeHint is the explicit primary array shape, nil when unset.
	ShapeHint() []int
	// PrimaryArrayName names the array sibling defaults are sized from; ""
	// when the tree has none.
	PrimaryArrayName() string
	// Get resolves a top-level attribute the way ObjectNode.Get does.
	Get(name string) (any, error)
	// Validator returns the validation hook, nil to accept every change.
	Validator() Validator
	Logger() *slog.Logger
}

// Validator decides whether a proposed write or delete may be committed.
// instance is the candidate raw value (nil for a delete). A false result
// suppresses the change; an error aborts the operation.
type Validator interface {
	ValueChange(name string, instance any, s schema.Schema, ctx Context) (bool, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(name string, instance any, s schema.Schema, ctx Context) (bool, error)

func (f ValidatorFunc) ValueChange(name string, instance any, s schema.Schema, ctx Context) (bool, error) {
	return f(name, instance, s, ctx)
}

func valueChange(ctx Context, name string, instance any, s schema.Schema) (bool, error) {
	v := ctx.Validator()
	if v == nil {
		return true, nil
	}
	return v.ValueChange(name, instance, s, ctx)
}

func logger(ctx Context) *slog.Logger {
	if l := ctx.Logger(); l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
