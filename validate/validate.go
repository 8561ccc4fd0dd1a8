// Package validate checks raw tree values against their schemas. A Checker
// serves as the validation hook of a node tree: it decides whether a
// proposed write or delete may be committed.
//
// Keyword validation is done by github.com/santhosh-tekuri/jsonschema/v5
// under draft 7. The array keywords datatype, ndim and max_ndim are
// registered as a compiler extension that runs the same cast a node
// applies on assignment.
package validate

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	j "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/i18n"
	"github.com/reoring/datanode/schema"
	"github.com/reoring/datanode/treeio"
)

// Options configures a Checker.
type Options struct {
	// Strict turns a rejected change into an Issues error instead of a
	// logged warning.
	Strict bool
	// Logger receives warnings for rejected changes. Nil discards them.
	Logger *slog.Logger
	// Translator renders issue messages. Nil uses the i18n default.
	Translator i18n.Translator
}

// Checker validates raw values. It is safe for concurrent use.
type Checker struct {
	opts Options

	mu       sync.Mutex
	compiled map[string]*compiled
}

// compiled is a schema ready for validation, kept with the document it was
// built from so keyword failures can be traced back to their keyword.
type compiled struct {
	sch *jsonschema.Schema
	doc any
	err error
}

// New returns a Checker.
func New(opts Options) *Checker {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Checker{opts: opts, compiled: map[string]*compiled{}}
}

var _ datanode.Validator = (*Checker)(nil)

// ValueChange reports whether instance may be stored under name. A nil
// instance stands for a delete and is accepted unless the schema marks the
// value fits_required. Invalid values are accepted when ctx tolerates them;
// otherwise they are rejected, with an Issues error in strict mode and a
// warning log entry in lenient mode.
func (c *Checker) ValueChange(name string, instance any, s schema.Schema, ctx datanode.Context) (bool, error) {
	iss := c.CheckAt(datanode.Root().Field(name), instance, s)
	if len(iss) == 0 {
		return true, nil
	}
	if ctx != nil && ctx.PassInvalidValues() {
		return true, nil
	}
	if c.opts.Strict {
		return false, iss
	}
	c.opts.Logger.Warn("value rejected", "name", name, "issues", iss.Error())
	return false, nil
}

// Check validates a whole value and returns the issues found.
func (c *Checker) Check(instance any, s schema.Schema) datanode.Issues {
	return c.CheckAt(datanode.Root(), instance, s)
}

// CheckAt validates instance as the value found at path. Issues are
// ordered by path.
func (c *Checker) CheckAt(path datanode.PathRef, instance any, s schema.Schema) datanode.Issues {
	if len(s) == 0 {
		return nil
	}
	if instance == nil {
		if s.Bool(schema.KeyFitsRequired) {
			return datanode.Issues{c.issue(path, datanode.CodeRequired, nil)}
		}
		return nil
	}
	cs := c.compile(s)
	if cs.err != nil {
		c.opts.Logger.Warn("schema does not compile", "path", path.Pointer(), "error", cs.err)
		return datanode.Issues{c.issue(path, datanode.CodeInvalidSchema, map[string]string{"detail": cs.err.Error()})}
	}
	doc, err := jsonInstance(instance)
	if err != nil {
		return datanode.Issues{c.issue(path, datanode.CodeInvalidType, map[string]string{"detail": err.Error()})}
	}
	err = cs.sch.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return datanode.Issues{c.issue(path, datanode.CodeInvalidType, map[string]string{"detail": err.Error()})}
	}
	var iss datanode.Issues
	c.collect(&iss, path, doc, cs.doc, ve)
	sort.SliceStable(iss, func(a, b int) bool { return iss[a].Path < iss[b].Path })
	return iss
}

func (c *Checker) issue(p datanode.PathRef, code string, data map[string]string) datanode.Issue {
	tr := c.opts.Translator
	if tr == nil {
		tr = i18n.Current()
	}
	var params map[string]any
	if len(data) > 0 {
		params = make(map[string]any, len(data))
		for k, v := range data {
			params[k] = v
		}
	}
	return datanode.IssueAt(p, code, tr.Message(code, data), params)
}

// collect turns the leaves of a validation error tree into issues.
// Combiner failures are reported once instead of per branch.
func (c *Checker) collect(iss *datanode.Issues, base datanode.PathRef, doc, schemaDoc any, ve *jsonschema.ValidationError) {
	kw := lastToken(ve.KeywordLocation)
	if len(ve.Causes) > 0 && kw != "anyOf" && kw != "oneOf" {
		for _, cause := range ve.Causes {
			c.collect(iss, base, doc, schemaDoc, cause)
		}
		return
	}
	at, obj := locate(base, doc, ve.InstanceLocation)
	data := map[string]string{"detail": ve.Message}
	switch kw {
	case "required":
		keyword, _ := resolve(schemaDoc, ve.AbsoluteKeywordLocation).([]any)
		for _, raw := range keyword {
			key, _ := raw.(string)
			if m, ok := obj.(map[string]any); ok && key != "" {
				if _, present := m[key]; !present {
					*iss = datanode.AppendIssues(*iss, c.issue(at.Field(key), datanode.CodeRequired, nil))
				}
			}
		}
		return
	case "additionalProperties":
		m, _ := obj.(map[string]any)
		keys := make([]string, 0, len(m))
		for key := range m {
			if strings.Contains(ve.Message, quote(key)) {
				keys = append(keys, key)
			}
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			for _, key := range keys {
				*iss = datanode.AppendIssues(*iss, c.issue(at.Field(key), datanode.CodeUnknownKey, nil))
			}
			return
		}
	}
	*iss = datanode.AppendIssues(*iss, c.issue(at, codeFor(kw), data))
}

var keywordCodes = map[string]string{
	"type":                 datanode.CodeInvalidType,
	"required":             datanode.CodeRequired,
	"dependencies":         datanode.CodeRequired,
	"additionalProperties": datanode.CodeUnknownKey,
	"enum":                 datanode.CodeInvalidEnum,
	"const":                datanode.CodeInvalidEnum,
	"minimum":              datanode.CodeTooSmall,
	"exclusiveMinimum":     datanode.CodeTooSmall,
	"maximum":              datanode.CodeTooBig,
	"exclusiveMaximum":     datanode.CodeTooBig,
	"minLength":            datanode.CodeTooShort,
	"minItems":             datanode.CodeTooShort,
	"minProperties":        datanode.CodeTooShort,
	"maxLength":            datanode.CodeTooLong,
	"maxItems":             datanode.CodeTooLong,
	"maxProperties":        datanode.CodeTooLong,
	"additionalItems":      datanode.CodeTooLong,
	"pattern":              datanode.CodePattern,
	"format":               datanode.CodePattern,
	"anyOf":                datanode.CodeNoMatch,
	"oneOf":                datanode.CodeNoMatch,
	"contains":             datanode.CodeNoMatch,
	"not":                  datanode.CodeForbidden,
	schema.KeyDatatype:     datanode.CodeInvalidDatatype,
	schema.KeyNdim:         datanode.CodeDimensionality,
	schema.KeyMaxNdim:      datanode.CodeDimensionality,
}

func codeFor(keyword string) string {
	if code, ok := keywordCodes[keyword]; ok {
		return code
	}
	return datanode.CodeInvalidValue
}

// compile returns the compiled form of s, building it on first use.
func (c *Checker) compile(s schema.Schema) *compiled {
	src := schema.DeepCopy(s)
	delete(src, "$schema")
	dropExternalRefs(src)
	raw, err := j.Marshal(src)
	if err != nil {
		return &compiled{err: err}
	}
	key := string(raw)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cs, ok := c.compiled[key]; ok {
		return cs
	}
	cs := &compiled{}
	cs.doc, cs.err = decodeJSON(raw)
	if cs.err == nil {
		cs.sch, cs.err = compileDoc(raw)
	}
	c.compiled[key] = cs
	return cs
}

const schemaURL = "datanode:schema.json"

func compileDoc(raw []byte) (*jsonschema.Schema, error) {
	comp := jsonschema.NewCompiler()
	comp.Draft = jsonschema.Draft7
	comp.LoadURL = func(s string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("external schema %s is not loaded", s)
	}
	comp.RegisterExtension("datanode-array", arrayKeywordsMeta, arrayKeywords{})
	if err := comp.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return comp.Compile(schemaURL)
}

// dropExternalRefs removes references to other documents; local ones are
// resolved by the compiler.
func dropExternalRefs(v any) {
	switch t := v.(type) {
	case schema.Schema:
		dropExternalRefs(map[string]any(t))
	case map[string]any:
		if ref, ok := t["$ref"].(string); ok && !strings.HasPrefix(ref, "#") {
			delete(t, "$ref")
		}
		for _, x := range t {
			dropExternalRefs(x)
		}
	case []any:
		for _, x := range t {
			dropExternalRefs(x)
		}
	}
}

// jsonInstance rewrites a tree value into the JSON data model the
// validator works on: arrays become "$array" envelopes, lazy ones without
// their payload.
func jsonInstance(v any) (any, error) {
	raw, err := treeio.MarshalValue(v)
	if err != nil {
		return nil, err
	}
	return decodeJSON(raw)
}

func decodeJSON(raw []byte) (any, error) {
	dec := j.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// locate maps a JSON pointer into doc onto a path below base and returns
// the value found there.
func locate(base datanode.PathRef, doc any, ptr string) (datanode.PathRef, any) {
	p := base
	if ptr == "" {
		return p, doc
	}
	for _, tok := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		tok = unescape(tok)
		switch d := doc.(type) {
		case []any:
			if i, err := strconv.Atoi(tok); err == nil && i >= 0 && i < len(d) {
				p, doc = p.Index(i), d[i]
				continue
			}
			doc = nil
		case map[string]any:
			doc = d[tok]
		default:
			doc = nil
		}
		p = p.Field(tok)
	}
	return p, doc
}

// resolve returns the schema value an absolute keyword location points at.
func resolve(doc any, loc string) any {
	i := strings.IndexByte(loc, '#')
	if i < 0 {
		return nil
	}
	_, v := locate(datanode.Root(), doc, loc[i+1:])
	return v
}

func unescape(tok string) string {
	if u, err := url.PathUnescape(tok); err == nil {
		tok = u
	}
	tok = strings.ReplaceAll(tok, "~1", "/")
	return strings.ReplaceAll(tok, "~0", "~")
}

func lastToken(ptr string) string {
	if i := strings.LastIndexByte(ptr, '/'); i >= 0 {
		return ptr[i+1:]
	}
	return ptr
}

// quote renders a property name the way the validator lists it in
// messages.
func quote(s string) string {
	s = strconv.Quote(s)
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s[1:len(s)-1] + "'"
}
