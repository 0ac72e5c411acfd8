package cache

import (
	"github.com/siegeai/jsonkit/jsonschema"
	"github.com/vmihailenco/msgpack/v5"
)

// record is the stored form of a schema node. Keys are kept to one letter
// since a cache holds one tree per input file.
type record struct {
	Types      uint8              `msgpack:"t"`
	Format     string             `msgpack:"f,omitempty"`
	Properties map[string]*record `msgpack:"p,omitempty"`
	Required   []string           `msgpack:"r,omitempty"`
	Items      *record            `msgpack:"i,omitempty"`
}

func toRecord(s *jsonschema.Schema) *record {
	if s == nil {
		return nil
	}
	r := &record{
		Types:    uint8(s.Types),
		Format:   s.Format,
		Required: s.Required,
		Items:    toRecord(s.Items),
	}
	if len(s.Properties) > 0 {
		r.Properties = make(map[string]*record, len(s.Properties))
		for k, v := range s.Properties {
			r.Properties[k] = toRecord(v)
		}
	}
	return r
}

func fromRecord(r *record) *jsonschema.Schema {
	if r == nil {
		return nil
	}
	s := &jsonschema.Schema{
		Types:    jsonschema.TypeSet(r.Types),
		Format:   r.Format,
		Required: r.Required,
		Items:    fromRecord(r.Items),
	}
	if s.Types.Has(jsonschema.TypeObject) {
		s.Properties = make(jsonschema.Properties, len(r.Properties))
		for k, v := range r.Properties {
			s.Properties[k] = fromRecord(v)
		}
		if s.Required == nil {
			s.Required = []string{}
		}
	}
	if s.Types.Has(jsonschema.TypeArray) && s.Items == nil {
		s.Items = jsonschema.Unknown()
	}
	return s
}

func marshalSchema(s *jsonschema.Schema) ([]byte, error) {
	return msgpack.Marshal(toRecord(s))
}

func unmarshalSchema(b []byte) (*jsonschema.Schema, error) {
	var r record
	if err := msgpack.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return fromRecord(&r), nil
}
