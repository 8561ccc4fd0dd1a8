package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/ndarray"
)

func diffCmd(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	var c common
	var with string
	c.register(fs)
	fs.StringVar(&with, "with", "", "tree compared against -in")
	_ = fs.Parse(args)
	if with == "" {
		fs.Usage()
		os.Exit(2)
	}
	from := flatten(c.open().Tree())
	other := common{in: with, schema: c.schema, verbose: c.verbose}
	to := flatten(other.open().Tree())
	setColor(os.Stdout)
	if n := writeDiff(os.Stdout, from, to); n > 0 {
		os.Exit(1)
	}
}

// setColor enables colored output only when f is a terminal.
func setColor(f *os.File) {
	color.NoColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// flatten renders every leaf of tree as one "path = value" line, sorted by
// path. Array payloads are loaded and printed in full.
func flatten(tree map[string]any) string {
	var lines []string
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		m, ok := v.(map[string]any)
		if !ok || len(m) == 0 {
			lines = append(lines, prefix+" = "+render(v))
			return
		}
		for k, vv := range m {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			walk(p, vv)
		}
	}
	for k, v := range tree {
		walk(k, v)
	}
	sort.Strings(lines)
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

func render(v any) string {
	switch t := v.(type) {
	case *ndarray.Lazy:
		arr, err := t.Materialize()
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return render(arr)
	case *ndarray.Array:
		return fmt.Sprintf("%s%v %v", t.DType(), t.Shape(), t.ToList())
	case *ndarray.Table:
		var units []string
		for _, col := range t.Columns() {
			if col.Unit != "" {
				units = append(units, col.Name+":"+col.Unit)
			}
		}
		return fmt.Sprintf("%s units=%v", render(t.Array()), units)
	case datanode.Node:
		return render(t.Instance())
	}
	return fmt.Sprintf("%v", v)
}

// writeDiff prints the line diff between from and to and returns the
// number of changed lines.
func writeDiff(w io.Writer, from, to string) int {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	changed := 0
	for _, d := range diffs {
		var prefix string
		var paint func(string, ...any) string
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix, paint = "+ ", color.GreenString
		case diffpatch.DiffDelete:
			prefix, paint = "- ", color.RedString
		default:
			continue
		}
		for _, l := range strings.SplitAfter(d.Text, "\n") {
			if l == "" {
				continue
			}
			changed++
			fmt.Fprint(w, paint("%s%s", prefix, l))
		}
	}
	return changed
}
