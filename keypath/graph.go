package keypath

import (
	"cmp"
	"slices"

	"github.com/siegeai/jsonkit/jsonschema"
)

type Node struct {
	ID    string
	Label string
}

// Edge connects a parent key path to one of its children.
type Edge struct {
	From string
	To   string
}

// Graph is the attribute digraph of a schema. Nodes are sorted by ID and
// edges by (From, To).
type Graph struct {
	Root  string
	Nodes []Node
	Edges []Edge
}

type Options struct {
	// Root, when set, adds a node with this ID as the parent of every top
	// level key so the graph is connected.
	Root string
}

func ToGraph(s *jsonschema.Schema, opts Options) Graph {
	nodes := make(map[string]string)
	edges := make(map[Edge]struct{})

	if opts.Root != "" {
		nodes[opts.Root] = opts.Root
	}

	for _, e := range walk(s) {
		nodes[e.path] = e.label

		parent := e.parent
		if e.top {
			if opts.Root == "" {
				continue
			}
			parent = opts.Root
		}
		// the [] prefix of a root array is never emitted as a path of its own
		if _, in := nodes[parent]; !in {
			nodes[parent] = parent
		}
		edges[Edge{From: parent, To: e.path}] = struct{}{}
	}

	g := Graph{
		Root:  opts.Root,
		Nodes: make([]Node, 0, len(nodes)),
		Edges: make([]Edge, 0, len(edges)),
	}
	for id, label := range nodes {
		g.Nodes = append(g.Nodes, Node{ID: id, Label: label})
	}
	for e := range edges {
		g.Edges = append(g.Edges, e)
	}

	slices.SortFunc(g.Nodes, func(a, b Node) int {
		return cmp.Compare(a.ID, b.ID)
	})
	slices.SortFunc(g.Edges, func(a, b Edge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.To, b.To)
	})
	return g
}

// Children returns the IDs of the direct children of a node, sorted.
func (g Graph) Children(id string) []string {
	var res []string
	for _, e := range g.Edges {
		if e.From == id {
			res = append(res, e.To)
		}
	}
	return res
}
