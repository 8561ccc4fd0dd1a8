package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	j "github.com/goccy/go-json"

	"github.com/reoring/datanode"
	"github.com/reoring/datanode/model"
	"github.com/reoring/datanode/schema"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "flatten":
		flattenCmd(os.Args[2:])
	case "get":
		getCmd(os.Args[2:])
	case "put":
		putCmd(os.Args[2:])
	case "merge":
		mergeCmd(os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	case "diff":
		diffCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "datanode CLI\n\nUsage:\n  datanode flatten -in tree.json [-schema s.yaml]\n  datanode get -in tree.json -path meta.telescope [-schema s.yaml]\n  datanode put -in tree.json -path meta.filters.0 -value '\"F090W\"' [-o out.json]\n  datanode merge -in a.json -with b.json [-o out.json]\n  datanode validate -in tree.json -schema s.yaml\n  datanode diff -in a.json -with b.json\n\nNotes:\n  - Trees are JSON snapshots or YAML documents (.yaml, .yml).\n  - Arrays are written as {\"$array\": {...}} envelopes.")
}

// common holds the flags every subcommand accepts.
type common struct {
	in      string
	schema  string
	verbose bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.in, "in", "", "input tree (JSON snapshot or YAML)")
	fs.StringVar(&c.schema, "schema", "", "schema document (YAML or JSON)")
	fs.BoolVar(&c.verbose, "v", false, "enable debug logs")
}

func (c *common) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// open loads the input tree as a model. Assignment is not validated; the
// validate subcommand checks the whole tree instead.
func (c *common) open() *model.Model {
	if c.in == "" {
		fatalf("missing -in")
	}
	var s schema.Schema
	if c.schema != "" {
		var err error
		if s, err = schema.LoadFile(c.schema); err != nil {
			fatalf("schema: %v", err)
		}
	}
	f, err := os.Open(c.in)
	if err != nil {
		fatalf("open: %v", err)
	}
	defer f.Close()
	opts := model.Options{
		PrimaryArray: "data",
		Logger:       c.logger(),
	}
	var m *model.Model
	switch strings.ToLower(filepath.Ext(c.in)) {
	case ".yaml", ".yml":
		m, err = model.OpenYAML(f, s, opts)
	default:
		m, err = model.Open(f, s, opts)
	}
	if err != nil {
		fatalf("%s: %v", c.in, err)
	}
	return m
}

func save(m *model.Model, out string) {
	if out == "" || out == "-" {
		if err := m.Save(os.Stdout); err != nil {
			fatalf("write: %v", err)
		}
		return
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		fatalf("creating output dir: %v", err)
	}
	f, err := os.Create(out)
	if err != nil {
		fatalf("writing output: %v", err)
	}
	if err := m.Save(f); err != nil {
		f.Close()
		fatalf("writing output: %v", err)
	}
	if err := f.Close(); err != nil {
		fatalf("writing output: %v", err)
	}
}

func flattenCmd(args []string) {
	fs := flag.NewFlagSet("flatten", flag.ExitOnError)
	var c common
	c.register(fs)
	_ = fs.Parse(args)
	m := c.open()
	items, err := m.Items()
	if err != nil {
		fatalf("flatten: %v", err)
	}
	for _, it := range items {
		fmt.Printf("%s = %v\n", it.Path, it.Value)
	}
}

func getCmd(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	var c common
	var path string
	c.register(fs)
	fs.StringVar(&path, "path", "", "dot-separated attribute path")
	_ = fs.Parse(args)
	if path == "" {
		fs.Usage()
		os.Exit(2)
	}
	m := c.open()
	v, err := m.GetPath(path)
	if err != nil {
		fatalf("get %s: %v", path, err)
	}
	fmt.Println(v)
}

func putCmd(args []string) {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	var c common
	var path, value, out string
	c.register(fs)
	fs.StringVar(&path, "path", "", "dot-separated path; numeric segments are list indices, \"items\" the last element")
	fs.StringVar(&value, "value", "", "JSON value to store")
	fs.StringVar(&out, "o", "", "output filename (default stdout)")
	_ = fs.Parse(args)
	if path == "" || value == "" {
		fs.Usage()
		os.Exit(2)
	}
	m := c.open()
	var v any
	if err := j.Unmarshal([]byte(value), &v); err != nil {
		fatalf("value: %v", err)
	}
	if err := m.Put(splitPath(path), v); err != nil {
		fatalf("put %s: %v", path, err)
	}
	save(m, out)
}

func mergeCmd(args []string) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	var c common
	var with, out string
	c.register(fs)
	fs.StringVar(&with, "with", "", "tree merged over -in")
	fs.StringVar(&out, "o", "", "output filename (default stdout)")
	_ = fs.Parse(args)
	if with == "" {
		fs.Usage()
		os.Exit(2)
	}
	m := c.open()
	other := common{in: with, verbose: c.verbose}
	m.Update(other.open().Tree())
	save(m, out)
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var c common
	c.register(fs)
	_ = fs.Parse(args)
	if c.schema == "" {
		fs.Usage()
		os.Exit(2)
	}
	m := c.open()
	setColor(os.Stdout)
	err := m.Validate()
	if err == nil {
		fmt.Println(color.GreenString("ok"))
		return
	}
	iss, ok := datanode.AsIssues(err)
	if !ok {
		fatalf("validate: %v", err)
	}
	for _, it := range iss {
		fmt.Printf("%s\t%s\t%s\n", it.Path, color.RedString(it.Code), it.Message)
	}
	os.Exit(1)
}

// splitPath turns "a.2.b" into ["a", 2, "b"].
func splitPath(s string) []any {
	parts := strings.Split(s, ".")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if i, err := strconv.Atoi(p); err == nil {
			out = append(out, i)
			continue
		}
		out = append(out, p)
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
