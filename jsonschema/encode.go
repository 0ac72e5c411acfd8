package jsonschema

import (
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type wireSchema struct {
	Type       []string    `json:"type,omitempty"`
	Format     string      `json:"format,omitempty"`
	Properties *Properties `json:"properties,omitempty"`
	Required   *[]string   `json:"required,omitempty"`
	Items      *Schema     `json:"items,omitempty"`
}

func (s *Schema) wire() wireSchema {
	var w wireSchema
	if s.IsUnknown() {
		return w
	}
	w.Type = s.Types.Names()
	if s.Types.Has(TypeString) {
		w.Format = s.Format
	}
	if s.Types.Has(TypeObject) {
		props := s.Properties
		if props == nil {
			props = Properties{}
		}
		req := s.Required
		if req == nil {
			req = []string{}
		}
		w.Properties = &props
		w.Required = &req
	}
	if s.Types.Has(TypeArray) {
		w.Items = s.Items
		if w.Items == nil {
			w.Items = Unknown()
		}
	}
	return w
}

// MarshalJSON emits {"type": [...], "properties": {...}, "required": [...],
// "items": {...}} with only the applicable fields. The unknown node is {}.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// Encode writes s as indented JSON followed by a newline.
func Encode(w io.Writer, s *Schema, indent int) error {
	bs, err := marshalIndent(s, indent)
	if err != nil {
		return err
	}
	bs = append(bs, '\n')
	_, err = w.Write(bs)
	return err
}

func marshalIndent(v any, indent int) ([]byte, error) {
	if indent <= 0 {
		return json.Marshal(v)
	}
	pad := make([]byte, indent)
	for i := range pad {
		pad[i] = ' '
	}
	return json.MarshalIndent(v, "", string(pad))
}

// EncodeMap writes a name to schema mapping as one JSON object, keys sorted.
func EncodeMap(w io.Writer, m map[string]*Schema, indent int) error {
	bs, err := marshalIndent(m, indent)
	if err != nil {
		return err
	}
	bs = append(bs, '\n')
	_, err = w.Write(bs)
	return err
}

// MarshalYAML keeps the same field order and vocabulary as MarshalJSON.
func (s *Schema) MarshalYAML() (interface{}, error) {
	return s.yamlNode(), nil
}

func (s *Schema) yamlNode() *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if s.IsUnknown() {
		n.Style = yaml.FlowStyle
		return n
	}
	w := s.wire()

	ts := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, name := range w.Type {
		ts.Content = append(ts.Content, yamlString(name))
	}
	n.Content = append(n.Content, yamlString("type"), ts)

	if w.Format != "" {
		n.Content = append(n.Content, yamlString("format"), yamlString(w.Format))
	}
	if w.Properties != nil {
		ps := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if len(*w.Properties) == 0 {
			ps.Style = yaml.FlowStyle
		}
		for _, k := range w.Properties.Keys() {
			ps.Content = append(ps.Content, yamlString(k), (*w.Properties)[k].yamlNode())
		}
		n.Content = append(n.Content, yamlString("properties"), ps)
	}
	if w.Required != nil {
		rs := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, r := range *w.Required {
			rs.Content = append(rs.Content, yamlString(r))
		}
		n.Content = append(n.Content, yamlString("required"), rs)
	}
	if w.Items != nil {
		n.Content = append(n.Content, yamlString("items"), w.Items.yamlNode())
	}
	return n
}

func yamlString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func EncodeYAML(w io.Writer, s *Schema, indent int) error {
	enc := yaml.NewEncoder(w)
	if indent > 0 {
		enc.SetIndent(indent)
	}
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
