package treeio

import (
	"bytes"
	"errors"
	"io"

	j "github.com/goccy/go-json"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/i18n"
)

type dupFrame struct {
	object       bool
	keys         map[string]struct{}
	expectingKey bool
	key          string
	n            int
}

// DuplicateKeys scans a JSON document and reports every object key that
// appears twice in the same object. Syntax errors are returned as errors.
func DuplicateKeys(data []byte) (datanode.Issues, error) {
	dec := j.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var iss datanode.Issues
	var stack []dupFrame
	valueStart := func() {
		if len(stack) == 0 {
			return
		}
		top := &stack[len(stack)-1]
		if top.object {
			top.expectingKey = true
		} else {
			top.n++
		}
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return iss, err
		}
		switch v := tok.(type) {
		case j.Delim:
			switch v {
			case '{':
				valueStart()
				stack = append(stack, dupFrame{object: true, keys: map[string]struct{}{}, expectingKey: true})
			case '[':
				valueStart()
				stack = append(stack, dupFrame{})
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].expectingKey {
				top := &stack[n-1]
				if _, dup := top.keys[v]; dup {
					p := framePath(stack[:n-1]).Field(v)
					iss = datanode.AppendIssues(iss, datanode.IssueAt(p, datanode.CodeDuplicateKey,
						i18n.T(datanode.CodeDuplicateKey, map[string]string{"key": v}), nil))
				}
				top.keys[v] = struct{}{}
				top.key = v
				top.expectingKey = false
				continue
			}
			valueStart()
		default:
			valueStart()
		}
	}
	return iss, nil
}

func framePath(stack []dupFrame) datanode.PathRef {
	p := datanode.Root()
	for _, f := range stack {
		if f.object {
			p = p.Field(f.key)
		} else {
			p = p.Index(f.n - 1)
		}
	}
	return p
}
