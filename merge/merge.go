package merge

import (
	"github.com/siegeai/jsonkit/jsonschema"
)

// Schemas merges every input into one schema accepting everything any input
// accepts. A single input is returned unchanged. Inputs are never modified and
// the result does not depend on the order of the inputs.
func Schemas(ss ...*jsonschema.Schema) (*jsonschema.Schema, error) {
	if len(ss) == 0 {
		return nil, jsonschema.ErrEmptyInput
	}
	if len(ss) == 1 {
		if ss[0] == nil {
			return nil, jsonschema.ErrEmptyInput
		}
		return ss[0], nil
	}

	var res *jsonschema.Schema
	for _, s := range ss {
		res = Schema(res, s)
	}
	if res == nil {
		return nil, jsonschema.ErrEmptyInput
	}
	return res, nil
}

// Schema merges a pair of schemas. Either side may be nil.
func Schema(a, b *jsonschema.Schema) *jsonschema.Schema {
	if a == nil && b == nil {
		return nil
	}
	if a != nil && b == nil {
		return a
	}
	if a == nil && b != nil {
		return b
	}

	// the unknown node is the identity
	if a.IsUnknown() {
		return b
	}
	if b.IsUnknown() {
		return a
	}

	res := &jsonschema.Schema{
		Types:  a.Types.Union(b.Types),
		Format: mergeFormat(a, b),
	}
	if res.Types.Has(jsonschema.TypeObject) {
		res.Properties = mergeProperties(a, b)
		res.Required = mergeRequired(a, b)
	}
	if res.Types.Has(jsonschema.TypeArray) {
		res.Items = mergeItems(a, b)
	}
	return res
}

// the remaining helpers are only called when the merged type set holds the
// kind they reconcile, so at least one side carries it

func mergeProperties(a, b *jsonschema.Schema) jsonschema.Properties {
	if !a.Is(jsonschema.TypeObject) {
		return b.Properties
	}
	if !b.Is(jsonschema.TypeObject) {
		return a.Properties
	}

	res := make(jsonschema.Properties, max(len(a.Properties), len(b.Properties)))

	visited := make(map[string]struct{}, len(a.Properties))
	for k, v := range a.Properties {
		visited[k] = struct{}{}
		if w, in := b.Properties[k]; in {
			res[k] = Schema(v, w)
		} else {
			res[k] = v
		}
	}

	for k, v := range b.Properties {
		if _, in := visited[k]; in {
			continue
		}
		res[k] = v
	}

	return res
}

// mergeRequired keeps a key only when both sides require it. A side that never
// saw an object does not constrain the other.
func mergeRequired(a, b *jsonschema.Schema) []string {
	if !a.Is(jsonschema.TypeObject) {
		return b.Required
	}
	if !b.Is(jsonschema.TypeObject) {
		return a.Required
	}

	keep := make(map[string]struct{}, len(b.Required))
	for _, r := range b.Required {
		keep[r] = struct{}{}
	}

	// a.Required is sorted, so res is too
	res := make([]string, 0, min(len(a.Required), len(b.Required)))
	for _, r := range a.Required {
		if _, in := keep[r]; in {
			res = append(res, r)
		}
	}
	return res
}

func mergeItems(a, b *jsonschema.Schema) *jsonschema.Schema {
	if !a.Is(jsonschema.TypeArray) {
		return b.Items
	}
	if !b.Is(jsonschema.TypeArray) {
		return a.Items
	}
	items := Schema(a.Items, b.Items)
	if items == nil {
		return jsonschema.Unknown()
	}
	return items
}

// mergeFormat keeps a string format only while every string observation agrees
// on it. A side without strings is neutral.
func mergeFormat(a, b *jsonschema.Schema) string {
	as := a.Is(jsonschema.TypeString)
	bs := b.Is(jsonschema.TypeString)
	switch {
	case as && bs:
		if a.Format == b.Format {
			return a.Format
		}
		return ""
	case as:
		return a.Format
	case bs:
		return b.Format
	}
	return ""
}
