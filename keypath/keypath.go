package keypath

import (
	"sort"

	"github.com/siegeai/jsonkit/jsonschema"
)

const (
	separator   = "."
	arraySuffix = "[]"
)

// Project lists the key paths of a schema in lexicographic order. Nested
// object keys are dotted (a.b.c) and arrays carry a [] suffix (a.b[].d).
func Project(s *jsonschema.Schema) []string {
	seen := make(map[string]struct{})
	for _, e := range walk(s) {
		seen[e.path] = struct{}{}
	}

	res := make([]string, 0, len(seen))
	for p := range seen {
		res = append(res, p)
	}
	sort.Strings(res)
	return res
}

// entry is one key path. top marks children of the root, whose parent is
// empty; an empty parent on any other entry is the key "".
type entry struct {
	path   string
	parent string
	label  string
	top    bool
}

// walk emits one entry per key path in depth-first order. A root that is an
// array of objects is walked through its items under the [] prefix.
func walk(s *jsonschema.Schema) []entry {
	var res []entry
	if s.Is(jsonschema.TypeObject) {
		res = walkProperties(res, s.Properties, "", true)
	}
	if s.Is(jsonschema.TypeArray) && s.Items.Is(jsonschema.TypeObject) {
		res = walkProperties(res, s.Items.Properties, arraySuffix, false)
	}
	return res
}

func walkProperties(res []entry, props jsonschema.Properties, parent string, top bool) []entry {
	for _, k := range props.Keys() {
		res = walkProperty(res, k, props[k], parent, top)
	}
	return res
}

func walkProperty(res []entry, key string, s *jsonschema.Schema, parent string, top bool) []entry {
	path := key
	if !top {
		path = parent + separator + key
	}

	expanded := false
	if s.Is(jsonschema.TypeObject) {
		expanded = true
		res = append(res, entry{path: path, parent: parent, label: key, top: top})
		res = walkProperties(res, s.Properties, path, false)
	}
	if s.Is(jsonschema.TypeArray) {
		expanded = true
		p := path + arraySuffix
		res = append(res, entry{path: p, parent: parent, label: key + arraySuffix, top: top})
		if s.Items.Is(jsonschema.TypeObject) {
			res = walkProperties(res, s.Items.Properties, p, false)
		}
	}

	// a node that is both an object and a scalar already has its path
	if !expanded {
		res = append(res, entry{path: path, parent: parent, label: key, top: top})
	}
	return res
}
