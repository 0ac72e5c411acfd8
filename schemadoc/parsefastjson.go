package schemadoc

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/siegeai/jsonkit/merge"
	"github.com/valyala/fastjson"
)

// Parse reads a JSON Schema document restricted to the vocabulary the rest
// of the module produces: type, properties, required, items, format and
// anyOf. Annotations such as title or description are ignored.
func Parse(b []byte) (*jsonschema.Schema, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(b)
	if err != nil {
		return nil, &jsonschema.MalformedDocumentError{Err: err}
	}
	return ParseFastJson(v)
}

func ParseFastJson(v *fastjson.Value) (*jsonschema.Schema, error) {
	return parseFastJsonValue(v, "#")
}

// ParseAll parses every document and merges them into one schema.
func ParseAll(docs ...[]byte) (*jsonschema.Schema, error) {
	var acc merge.Accumulator
	for i, b := range docs {
		s, err := Parse(b)
		if err != nil {
			return nil, fmt.Errorf("schema %d: %w", i, err)
		}
		acc.Add(s)
	}
	return acc.Schema()
}

// keywords that change what a schema accepts but have no equivalent here
var unsupported = map[string]string{
	"oneOf":                 "exclusive alternatives are not supported",
	"allOf":                 "intersections are not supported",
	"not":                   "negation is not supported",
	"$ref":                  "references are not supported",
	"if":                    "conditionals are not supported",
	"patternProperties":     "pattern properties are not supported",
	"dependentSchemas":      "dependent schemas are not supported",
	"prefixItems":           "tuple items are not supported",
	"additionalItems":       "tuple items are not supported",
	"unevaluatedItems":      "unevaluated items are not supported",
	"unevaluatedProperties": "unevaluated properties are not supported",
}

type node struct {
	types       jsonschema.TypeSet
	props       jsonschema.Properties
	required    []string
	items       *jsonschema.Schema
	format      string
	hasRequired bool
	alts        []*jsonschema.Schema
}

func parseFastJsonValue(v *fastjson.Value, loc string) (*jsonschema.Schema, error) {
	switch v.Type() {
	case fastjson.TypeTrue:
		return jsonschema.Unknown(), nil
	case fastjson.TypeObject:
		o, err := v.Object()
		if err != nil {
			return nil, err
		}
		return parseFastJsonObject(o, loc)
	}

	return nil, &jsonschema.UnsupportedShapeError{
		Location: loc,
		Reason:   fmt.Sprintf("expected a schema object, got %s", v.Type()),
	}
}

func parseFastJsonObject(o *fastjson.Object, loc string) (*jsonschema.Schema, error) {
	var n node

	var visitErr error
	o.Visit(func(key []byte, v *fastjson.Value) {
		if visitErr != nil {
			return
		}
		visitErr = n.keyword(string(key), v, loc)
	})
	if visitErr != nil {
		return nil, visitErr
	}

	return n.build(loc)
}

func (n *node) keyword(k string, v *fastjson.Value, loc string) error {
	if reason, in := unsupported[k]; in {
		return &jsonschema.UnsupportedShapeError{Location: loc, Keyword: k, Reason: reason}
	}

	switch k {
	case "type":
		return n.parseType(v, loc)
	case "properties":
		return n.parseProperties(v, loc)
	case "required":
		return n.parseRequired(v, loc)
	case "items":
		return n.parseItems(v, loc)
	case "format":
		sb, err := v.StringBytes()
		if err != nil {
			return keywordError(loc, k, "must be a string")
		}
		n.format = string(sb)
	case "anyOf":
		return n.parseAnyOf(v, loc)
	case "nullable":
		if v.GetBool() {
			n.types = n.types.With(jsonschema.TypeNull)
		}
	}

	// everything else is an annotation or a validation keyword
	return nil
}

func (n *node) parseType(v *fastjson.Value, loc string) error {
	var tags []*fastjson.Value
	switch v.Type() {
	case fastjson.TypeString:
		tags = []*fastjson.Value{v}
	case fastjson.TypeArray:
		tags, _ = v.Array()
	default:
		return keywordError(loc, "type", "must be a string or an array of strings")
	}

	for _, tag := range tags {
		sb, err := tag.StringBytes()
		if err != nil {
			return keywordError(loc, "type", "must be a string or an array of strings")
		}
		t, ok := jsonschema.ParseType(string(sb))
		if !ok {
			return keywordError(loc, "type", fmt.Sprintf("has unknown tag %q", sb))
		}
		n.types = n.types.With(t)
	}
	return nil
}

func (n *node) parseProperties(v *fastjson.Value, loc string) error {
	o, err := v.Object()
	if err != nil {
		return keywordError(loc, "properties", "must be an object")
	}

	n.props = make(jsonschema.Properties, o.Len())
	var visitErr error
	o.Visit(func(key []byte, pv *fastjson.Value) {
		if visitErr != nil {
			return
		}
		k := string(key)
		s, err := parseFastJsonValue(pv, loc+"/properties/"+jsonschema.PointerToken(k))
		if err != nil {
			visitErr = err
			return
		}
		n.props[k] = s
	})
	return visitErr
}

func (n *node) parseRequired(v *fastjson.Value, loc string) error {
	vs, err := v.Array()
	if err != nil {
		return keywordError(loc, "required", "must be an array of strings")
	}

	n.hasRequired = true
	n.required = make([]string, 0, len(vs))
	for _, r := range vs {
		sb, err := r.StringBytes()
		if err != nil {
			return keywordError(loc, "required", "must be an array of strings")
		}
		n.required = append(n.required, string(sb))
	}
	slices.Sort(n.required)
	n.required = slices.Compact(n.required)
	return nil
}

func (n *node) parseItems(v *fastjson.Value, loc string) error {
	if v.Type() == fastjson.TypeArray {
		return keywordError(loc, "items", "tuple items are not supported")
	}
	s, err := parseFastJsonValue(v, loc+"/items")
	if err != nil {
		return err
	}
	n.items = s
	return nil
}

func (n *node) parseAnyOf(v *fastjson.Value, loc string) error {
	vs, err := v.Array()
	if err != nil || len(vs) == 0 {
		return keywordError(loc, "anyOf", "must be a non-empty array of schemas")
	}

	for i, av := range vs {
		s, err := parseFastJsonValue(av, loc+"/anyOf/"+strconv.Itoa(i))
		if err != nil {
			return err
		}
		n.alts = append(n.alts, s)
	}
	return nil
}

func (n *node) build(loc string) (*jsonschema.Schema, error) {
	// properties or items without a type imply the kind that carries them
	types := n.types
	if types.IsEmpty() {
		if n.props != nil || n.hasRequired {
			types = types.With(jsonschema.TypeObject)
		}
		if n.items != nil {
			types = types.With(jsonschema.TypeArray)
		}
	}

	if n.props != nil && !types.Has(jsonschema.TypeObject) {
		return nil, keywordError(loc, "properties", "requires type object")
	}
	if n.hasRequired && !types.Has(jsonschema.TypeObject) {
		return nil, keywordError(loc, "required", "requires type object")
	}
	if n.items != nil && !types.Has(jsonschema.TypeArray) {
		return nil, keywordError(loc, "items", "requires type array")
	}
	for _, r := range n.required {
		if _, in := n.props[r]; !in {
			return nil, keywordError(loc, "required", fmt.Sprintf("names %q which is not a property", r))
		}
	}

	s := &jsonschema.Schema{Types: types}
	if types.Has(jsonschema.TypeObject) {
		s.Properties = n.props
		if s.Properties == nil {
			s.Properties = jsonschema.Properties{}
		}
		s.Required = n.required
		if s.Required == nil {
			s.Required = []string{}
		}
	}
	if types.Has(jsonschema.TypeArray) {
		s.Items = n.items
		if s.Items == nil {
			s.Items = jsonschema.Unknown()
		}
	}
	if types.Has(jsonschema.TypeString) {
		s.Format = n.format
	}

	// alternatives fold into the sibling keywords the same way observations do
	for _, alt := range n.alts {
		s = merge.Schema(s, alt)
	}
	return s, nil
}

func keywordError(loc, keyword, reason string) error {
	return &jsonschema.UnsupportedShapeError{Location: loc, Keyword: keyword, Reason: reason}
}
