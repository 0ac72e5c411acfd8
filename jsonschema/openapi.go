package jsonschema

import "github.com/getkin/kin-openapi/openapi3"

// ToOpenAPI converts s into an OpenAPI 3.0 schema. OpenAPI 3.0 has a single
// type per schema, so null becomes nullable and any remaining type union
// becomes a oneOf with one branch per type.
func ToOpenAPI(s *Schema) *openapi3.Schema {
	if s.IsUnknown() {
		return &openapi3.Schema{}
	}

	nullable := s.Types.Has(TypeNull)
	rest := s.Types.Without(TypeNull).Types()

	switch len(rest) {
	case 0:
		return &openapi3.Schema{Nullable: true}
	case 1:
		o := openAPIBranch(s, rest[0])
		o.Nullable = nullable
		return o
	}

	o := &openapi3.Schema{Nullable: nullable}
	for _, t := range rest {
		o.OneOf = append(o.OneOf, openAPIBranch(s, t).NewRef())
	}
	return o
}

func openAPIBranch(s *Schema, t Type) *openapi3.Schema {
	switch t {
	case TypeBoolean:
		return &openapi3.Schema{Type: openapi3.TypeBoolean}
	case TypeInteger:
		return &openapi3.Schema{Type: openapi3.TypeInteger}
	case TypeNumber:
		return &openapi3.Schema{Type: openapi3.TypeNumber}
	case TypeString:
		return &openapi3.Schema{Type: openapi3.TypeString, Format: s.Format}
	case TypeArray:
		items := s.Items
		if items == nil {
			items = Unknown()
		}
		return &openapi3.Schema{
			Type:  openapi3.TypeArray,
			Items: ToOpenAPI(items).NewRef(),
		}
	case TypeObject:
		ps := make(openapi3.Schemas, len(s.Properties))
		for k, v := range s.Properties {
			ps[k] = ToOpenAPI(v).NewRef()
		}
		var req []string
		if len(s.Required) > 0 {
			req = append(req, s.Required...)
		}
		return &openapi3.Schema{
			Type:       openapi3.TypeObject,
			Properties: ps,
			Required:   req,
		}
	}
	panic("should be unreachable")
}
