package datanode

import (
	"fmt"
	"strconv"
	"strings"
)

// PathRef builds JSON Pointer paths in a chain-safe way.
type PathRef struct {
	parts []string
}

// Root is the empty path.
func Root() PathRef { return PathRef{} }

// PathOf converts tree path segments (string keys, int indices) to a PathRef.
func PathOf(segments []any) PathRef {
	p := Root()
	for _, seg := range segments {
		switch s := seg.(type) {
		case int:
			p = p.Index(s)
		case string:
			p = p.Field(s)
		default:
			p = p.Field(fmt.Sprint(s))
		}
	}
	return p
}

func (p PathRef) Field(name string) PathRef {
	if name == "" {
		return p
	}
	// escape '~' -> '~0', '/' -> '~1' per RFC6901
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return PathRef{parts: append(append([]string{}, p.parts...), esc)}
}

func (p PathRef) Index(i int) PathRef {
	return PathRef{parts: append(append([]string{}, p.parts...), strconv.Itoa(i))}
}

func (p PathRef) Pointer() string {
	if len(p.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(p.parts, "/")
}

func (p PathRef) String() string { return p.Pointer() }
