package gogen

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"github.com/siegeai/jsonkit/jsonschema"
)

type Options struct {
	Package  string
	RootName string
}

func DefaultOptions() Options {
	return Options{Package: "model", RootName: "Document"}
}

// Generate renders Go declarations for s: a struct per object node, slices
// for arrays, pointers for optional or nullable values and any wherever the
// observed types do not agree.
func Generate(s *jsonschema.Schema, opts Options) ([]byte, error) {
	def := DefaultOptions()
	if opts.Package == "" {
		opts.Package = def.Package
	}
	if opts.RootName == "" {
		opts.RootName = def.RootName
	}

	g := &generator{used: make(map[string]int)}
	root := g.name(goName(opts.RootName))

	f := jen.NewFile(opts.Package)
	f.HeaderComment("Code generated by jsonkit. DO NOT EDIT.")

	if s.Is(jsonschema.TypeObject) && s.Types.Len() == 1 {
		g.defineStruct(root, s)
	} else {
		t := g.typeFor(s, singular(root), true)
		g.decls = append([]jen.Code{jen.Type().Id(root).Add(t)}, g.decls...)
	}

	for _, d := range g.decls {
		f.Add(d)
		f.Line()
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("could not render go source: %w", err)
	}
	return buf.Bytes(), nil
}

type generator struct {
	used  map[string]int
	decls []jen.Code
}

// name reserves a unique type name.
func (g *generator) name(n string) string {
	g.used[n] += 1
	if c := g.used[n]; c > 1 {
		return fmt.Sprintf("%s%d", n, c)
	}
	return n
}

func (g *generator) defineStruct(name string, s *jsonschema.Schema) {
	// reserve the slot first so nested structs follow their parent
	i := len(g.decls)
	g.decls = append(g.decls, nil)

	fieldNames := make(map[string]int)
	fields := make([]jen.Code, 0, len(s.Properties))
	for _, k := range s.Properties.Keys() {
		field := goName(k)
		fieldNames[field] += 1
		if c := fieldNames[field]; c > 1 {
			field = fmt.Sprintf("%s%d", field, c)
		}

		required := s.IsRequired(k)
		tag := k
		if !required {
			tag += ",omitempty"
		}
		t := g.typeFor(s.Properties[k], name+field, required)
		fields = append(fields, jen.Id(field).Add(t).Tag(map[string]string{"json": tag}))
	}

	g.decls[i] = jen.Type().Id(name).Struct(fields...)
}

func (g *generator) typeFor(s *jsonschema.Schema, name string, required bool) *jen.Statement {
	if s.IsUnknown() {
		return jen.Id("any")
	}

	nullable := s.Is(jsonschema.TypeNull)
	kinds := s.Types.Without(jsonschema.TypeNull)

	var t *jen.Statement
	switch {
	case kinds.IsEmpty():
		return jen.Id("any")
	case kinds == jsonschema.NewTypeSet(jsonschema.TypeInteger, jsonschema.TypeNumber):
		t = jen.Float64()
	case kinds.Len() > 1:
		return jen.Id("any")
	case kinds.Has(jsonschema.TypeBoolean):
		t = jen.Bool()
	case kinds.Has(jsonschema.TypeInteger):
		t = jen.Int64()
	case kinds.Has(jsonschema.TypeNumber):
		t = jen.Float64()
	case kinds.Has(jsonschema.TypeString):
		if s.Format == "date-time" {
			t = jen.Qual("time", "Time")
		} else {
			t = jen.String()
		}
	case kinds.Has(jsonschema.TypeArray):
		// nil already stands for a missing or null slice
		return jen.Index().Add(g.typeFor(s.Items, singular(name), true))
	case kinds.Has(jsonschema.TypeObject):
		n := g.name(name)
		g.defineStruct(n, s)
		t = jen.Id(n)
	}

	if nullable || !required {
		return jen.Op("*").Add(t)
	}
	return t
}

func singular(name string) string {
	s := inflect.Singularize(name)
	if s == name {
		return name + "Item"
	}
	return s
}

// goName turns a JSON key into an exported Go identifier.
func goName(key string) string {
	n := inflect.Camelize(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, key))
	n = strings.ReplaceAll(n, "_", "")
	if n == "" {
		return "Field"
	}
	if r := []rune(n); !unicode.IsLetter(r[0]) {
		n = "X" + n
	}
	r := []rune(n)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
