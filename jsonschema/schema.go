package jsonschema

import (
	"slices"
	"sort"
)

// Schema is the inferred shape of one location in a document tree.
//
// Properties and Required only carry meaning when TypeObject is in Types, Items
// only when TypeArray is, and Format only when TypeString is. A Schema with an
// empty type set is the unknown node: nothing was ever observed at that
// location (the items of an array that was always empty).
//
// Schemas are values. Nothing in this module mutates a Schema after it has
// been built, so trees freely share subtrees.
type Schema struct {
	Types      TypeSet
	Properties Properties
	Required   []string
	Items      *Schema
	Format     string
}

// Properties maps a property name onto its schema. Iteration order is always
// the lexicographic order returned by Keys.
type Properties map[string]*Schema

func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Unknown returns the node for a location with no observations.
func Unknown() *Schema {
	return &Schema{}
}

func NewScalarSchema(t Type) *Schema {
	return &Schema{Types: NewTypeSet(t)}
}

func NewStringSchema(format string) *Schema {
	return &Schema{Types: NewTypeSet(TypeString), Format: format}
}

// NewObjectSchema builds the schema of a single observed object: every key is
// required because every key was present.
func NewObjectSchema(props Properties) *Schema {
	if props == nil {
		props = Properties{}
	}
	return &Schema{
		Types:      NewTypeSet(TypeObject),
		Properties: props,
		Required:   props.Keys(),
	}
}

// NewArraySchema builds an array schema; nil items means the unknown node.
func NewArraySchema(items *Schema) *Schema {
	if items == nil {
		items = Unknown()
	}
	return &Schema{
		Types: NewTypeSet(TypeArray),
		Items: items,
	}
}

func (s *Schema) IsUnknown() bool {
	return s == nil || s.Types.IsEmpty()
}

func (s *Schema) Is(t Type) bool {
	return s != nil && s.Types.Has(t)
}

func (s *Schema) IsRequired(key string) bool {
	_, found := slices.BinarySearch(s.Required, key)
	return found
}

// Equal reports structural equality. A nil schema equals the unknown node.
func Equal(a, b *Schema) bool {
	if a.IsUnknown() || b.IsUnknown() {
		return a.IsUnknown() && b.IsUnknown()
	}
	if a.Types != b.Types || a.Format != b.Format {
		return false
	}
	if !slices.Equal(a.Required, b.Required) {
		return false
	}
	if len(a.Properties) != len(b.Properties) {
		return false
	}
	for k, av := range a.Properties {
		bv, in := b.Properties[k]
		if !in || !Equal(av, bv) {
			return false
		}
	}
	if (a.Items == nil) != (b.Items == nil) {
		return false
	}
	return a.Items == nil || Equal(a.Items, b.Items)
}

func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := &Schema{
		Types:    s.Types,
		Required: slices.Clone(s.Required),
		Items:    s.Items.Clone(),
		Format:   s.Format,
	}
	if s.Properties != nil {
		c.Properties = make(Properties, len(s.Properties))
		for k, v := range s.Properties {
			c.Properties[k] = v.Clone()
		}
	}
	return c
}

// CollapseNumbers returns a copy of s where every node observed as both
// integer and number only keeps number. It is a presentation policy and is
// never applied by merge.
func CollapseNumbers(s *Schema) *Schema {
	if s == nil {
		return nil
	}
	c := &Schema{
		Types:    s.Types,
		Required: slices.Clone(s.Required),
		Format:   s.Format,
	}
	if c.Types.Has(TypeInteger) && c.Types.Has(TypeNumber) {
		c.Types = c.Types.Without(TypeInteger)
	}
	if s.Items != nil {
		c.Items = CollapseNumbers(s.Items)
	}
	if s.Properties != nil {
		c.Properties = make(Properties, len(s.Properties))
		for k, v := range s.Properties {
			c.Properties[k] = CollapseNumbers(v)
		}
	}
	return c
}
