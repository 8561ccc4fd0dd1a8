package datanode

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the node tree. They are data or programming
// errors and are never retried.
var (
	// ErrDimensionality reports a value whose dimensionality differs from a
	// schema's ndim or exceeds its max_ndim.
	ErrDimensionality = errors.New("datanode: wrong number of dimensions")
	// ErrShapeInference reports a derived default array whose shape cannot
	// be computed from the primary array.
	ErrShapeInference = errors.New("datanode: cannot infer shape")
	// ErrIncompatibleDefault reports a schema default that does not fit the
	// element type of the array it should fill.
	ErrIncompatibleDefault = errors.New("datanode: incompatible default")
	// ErrUnknownFieldType reports a value whose runtime type no conversion
	// branch handles.
	ErrUnknownFieldType = errors.New("datanode: unknown field type")
	// ErrMissingKey reports a delete of a key absent from the raw mapping.
	ErrMissingKey = errors.New("datanode: missing key")
	// ErrNoAttribute reports an attribute with neither a stored value nor a
	// schema entry.
	ErrNoAttribute = errors.New("datanode: no such attribute")
	// ErrRejected reports a record the validation hook refused.
	ErrRejected = errors.New("datanode: rejected by validation")
	// ErrIndex reports a list index out of range.
	ErrIndex = errors.New("datanode: index out of range")
	// ErrNotFound reports a list value that is not present.
	ErrNotFound = errors.New("datanode: value not in list")
	// ErrPathConflict reports a path segment that does not fit the
	// container found at that position.
	ErrPathConflict = errors.New("datanode: path conflicts with tree")
)

// DimensionError carries the details of an ErrDimensionality failure.
// Max is set when the bound violated was max_ndim. Field names the record
// column when the check concerned one.
type DimensionError struct {
	Expected int
	Got      int
	Max      bool
	Field    string
}

func (e *DimensionError) Error() string {
	op := ""
	if e.Max {
		op = "<= "
	}
	msg := fmt.Sprintf("array has wrong number of dimensions: expected %s%d, got %d", op, e.Expected, e.Got)
	if e.Field != "" {
		msg = fmt.Sprintf("field %q: %s", e.Field, msg)
	}
	return msg
}

func (e *DimensionError) Is(target error) bool { return target == ErrDimensionality }

// Issue codes reported by validators.
const (
	CodeInvalidType     = "invalid_type"
	CodeRequired        = "required"
	CodeUnknownKey      = "unknown_key"
	CodeTooSmall        = "too_small"
	CodeTooBig          = "too_big"
	CodeTooShort        = "too_short"
	CodeTooLong         = "too_long"
	CodePattern         = "pattern"
	CodeInvalidEnum     = "invalid_enum"
	CodeNoMatch         = "no_match"
	CodeForbidden       = "forbidden"
	CodeDimensionality  = "wrong_ndim"
	CodeInvalidDatatype = "invalid_datatype"
	CodeDuplicateKey    = "duplicate_key"
	CodeInvalidValue    = "invalid_value"
	CodeInvalidSchema   = "invalid_schema"
)

// Issue represents a single validation entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /meta/exposure/0).
	Code    string // One of the codes listed above.
	Message string
	// Params carries structured parameters (e.g., {"min":1, "got":0}).
	Params map[string]any
}

// Issues is a collection of validation errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Message != "" {
			fmt.Fprintf(b, " (%s)", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues and returns the combined Issues.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// IssueAt creates an Issue at the given path.
func IssueAt(p PathRef, code, msg string, params map[string]any) Issue {
	return Issue{Path: p.Pointer(), Code: code, Message: msg, Params: params}
}
