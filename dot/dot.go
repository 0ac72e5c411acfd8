package dot

import (
	"strings"

	"github.com/siegeai/jsonkit/keypath"
)

type Options struct {
	Indent      int
	RankDir     string
	NodeShape   string
	Concentrate bool
}

func DefaultOptions() Options {
	return Options{
		Indent:    4,
		RankDir:   "LR",
		NodeShape: "box",
	}
}

// Format writes g as a DOT digraph. Node and edge order follow g, which
// keypath keeps sorted, so the same graph always yields the same text.
func Format(g keypath.Graph, opts Options) string {
	def := DefaultOptions()
	if opts.Indent <= 0 {
		opts.Indent = def.Indent
	}
	if opts.RankDir == "" {
		opts.RankDir = def.RankDir
	}
	if opts.NodeShape == "" {
		opts.NodeShape = def.NodeShape
	}

	pad := strings.Repeat(" ", opts.Indent)

	var b strings.Builder
	b.WriteString("digraph G {\n")
	b.WriteString(pad + "rankdir=" + quote(opts.RankDir) + ";\n")
	b.WriteString(pad + "node [shape=" + quote(opts.NodeShape) + ", style=" + quote("rounded") + "];\n")
	if opts.Concentrate {
		b.WriteString(pad + "concentrate=true;\n")
	}

	if len(g.Nodes) > 0 {
		b.WriteString("\n")
	}
	for _, n := range g.Nodes {
		b.WriteString(pad + quote(n.ID))
		if n.Label != "" && n.Label != n.ID {
			b.WriteString(" [label=" + quote(n.Label) + "]")
		}
		b.WriteString(";\n")
	}

	if len(g.Edges) > 0 {
		b.WriteString("\n")
	}
	for _, e := range g.Edges {
		b.WriteString(pad + quote(e.From) + " -> " + quote(e.To) + ";\n")
	}

	b.WriteString("}\n")
	return b.String()
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")

func quote(id string) string {
	return `"` + escaper.Replace(id) + `"`
}
