// Package treeio reads and writes raw trees. JSON snapshots keep arrays in
// "$array" envelopes; on decode, plain array payloads stay undecoded
// behind an ndarray.Lazy handle until first use.
package treeio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	j "github.com/goccy/go-json"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/ndarray"
)

var (
	// ErrEnvelope reports a malformed "$array" envelope.
	ErrEnvelope = errors.New("treeio: bad array envelope")
	// ErrNotTree reports a document whose root is not a mapping.
	ErrNotTree = errors.New("treeio: document root is not a mapping")
)

// Options controls decoding.
type Options struct {
	// RejectDuplicateKeys fails decoding when an object repeats a key,
	// reporting every repetition as an Issue.
	RejectDuplicateKeys bool
	// Eager decodes array payloads at once instead of lazily.
	Eager bool
}

// Marshal encodes tree as JSON.
func Marshal(tree map[string]any) ([]byte, error) {
	v, err := encodeValue(tree, true)
	if err != nil {
		return nil, err
	}
	return j.Marshal(v)
}

// Encode writes tree as indented JSON.
func Encode(w io.Writer, tree map[string]any) error {
	v, err := encodeValue(tree, true)
	if err != nil {
		return err
	}
	b, err := j.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// MarshalValue encodes any tree value as JSON. Unlike Marshal it leaves
// lazy arrays unloaded, writing them as envelopes without data. Mapping
// entries holding nil are omitted.
func MarshalValue(v any) ([]byte, error) {
	ev, err := encodeValue(v, false)
	if err != nil {
		return nil, err
	}
	return j.Marshal(ev)
}

// encodeValue rewrites v into JSON-friendly values. Lazy arrays are loaded
// when load is set and reduced to their header otherwise.
func encodeValue(v any, load bool) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			if vv == nil && !load {
				continue
			}
			ev, err := encodeValue(vv, load)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = ev
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i := range t {
			ev, err := encodeValue(t[i], load)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case *ndarray.Array:
		return arrayEnvelope(t, nil), nil
	case *ndarray.Table:
		return tableEnvelope(t), nil
	case *ndarray.Lazy:
		if !load && !t.Loaded() {
			return headerEnvelope(t), nil
		}
		arr, err := t.Materialize()
		if err != nil {
			return nil, err
		}
		return arrayEnvelope(arr, nil), nil
	case datanode.Node:
		return encodeValue(t.Instance(), load)
	case complex64:
		return []any{real(t), imag(t)}, nil
	case complex128:
		return []any{real(t), imag(t)}, nil
	case ndarray.Tuple:
		return encodeValue([]any(t), load)
	}
	return v, nil
}

// Unmarshal decodes a JSON tree.
func Unmarshal(data []byte, opts Options) (map[string]any, error) {
	if opts.RejectDuplicateKeys {
		iss, err := DuplicateKeys(data)
		if err != nil {
			return nil, err
		}
		if len(iss) > 0 {
			return nil, iss
		}
	}
	v, err := decodeRaw(data, opts)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotTree
	}
	return m, nil
}

// Decode reads a JSON tree from r.
func Decode(r io.Reader, opts Options) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data, opts)
}

func decodeRaw(raw []byte, opts Options) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	switch raw[0] {
	case '{':
		var fields map[string]j.RawMessage
		if err := j.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
		if body, ok := fields[ArrayKey]; ok && len(fields) == 1 {
			return decodeEnvelope(body, opts)
		}
		out := make(map[string]any, len(fields))
		for k, fv := range fields {
			v, err := decodeRaw(fv, opts)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	case '[':
		var items []j.RawMessage
		if err := j.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, iv := range items {
			v, err := decodeRaw(iv, opts)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return decodeScalar(raw)
}

// decodeScalar keeps integers exact and turns other numbers into float64.
func decodeScalar(raw []byte) (any, error) {
	v, err := decodeNumbers(raw)
	if err != nil {
		return nil, err
	}
	if n, ok := v.(j.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	return v, nil
}

func decodeNumbers(raw []byte) (any, error) {
	dec := j.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

type rawEnvelope struct {
	Datatype any               `json:"datatype"`
	Shape    []any             `json:"shape"`
	Data     j.RawMessage      `json:"data"`
	Units    map[string]string `json:"units"`
}

// decodeEnvelope turns an envelope into a lazy handle. Record envelopes
// are decoded at once so their units survive.
func decodeEnvelope(raw []byte, opts Options) (any, error) {
	var env rawEnvelope
	if err := j.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	dtype, shape, err := header(env.Datatype, env.Shape)
	if err != nil {
		return nil, err
	}
	data := env.Data
	load := func() (*ndarray.Array, error) {
		var v any
		if len(data) > 0 {
			var err error
			if v, err = decodeNumbers(data); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
			}
		}
		return buildArray(dtype, shape, v)
	}
	if dtype.IsRecord() || opts.Eager {
		arr, err := load()
		if err != nil {
			return nil, err
		}
		units := make(map[string]any, len(env.Units))
		for k, u := range env.Units {
			units[k] = u
		}
		return withUnits(arr, units)
	}
	return ndarray.NewLazy(dtype, shape, load), nil
}
